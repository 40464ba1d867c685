package stages

import (
	"fmt"
	"time"

	"github.com/inattention/sportdata/pipeline"
)

// RunInput configures a run of the loading stages.
type RunInput struct {
	Mode        Mode   `json:"mode"`
	LeaguesFile string `json:"leaguesFile"`
	SeasonsFile string `json:"seasonsFile"`
	// SeasonID restricts the lineups stage of an extend run.
	SeasonID int64 `json:"seasonId,omitempty"`
	// Attempts reruns a failed stage up to this many times in total. Zero or one disables retries.
	Attempts uint `json:"attempts,omitempty"`
	// RetryDelay is the initial delay between attempts, doubled after each one.
	RetryDelay time.Duration `json:"retryDelay,omitempty"`
}

// Step is the outcome of one stage of a run.
type Step struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Output   any           `json:"output,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// RunOutput lists the executed stages in order.
type RunOutput struct {
	RunID string `json:"runId"`
	Mode  Mode   `json:"mode"`
	Steps []Step `json:"steps"`
}

func runStage[IN, OUT any](b pipeline.Bundle, stage *pipeline.Stage[IN, OUT, *Deps], deps *Deps, in IN, r RunInput) (Step, error) {
	var opts []pipeline.ExecuteOption[IN, *Deps]
	if r.Attempts > 1 {
		delay := r.RetryDelay
		if delay <= 0 {
			delay = 5 * time.Second
		}
		opts = append(opts, pipeline.WithRetryConfig(pipeline.RetryConfig[IN, *Deps]{
			Enabled: true,
			Policy:  pipeline.RetryPolicy{MaxAttempts: r.Attempts, Delay: delay},
		}))
	}
	report, err := pipeline.ExecuteStage(b, stage, deps, in, opts...)
	s := Step{Stage: stage.ID(), Duration: report.Duration(), Output: report.Output}
	if err != nil {
		s.Err = err.Error()
	}

	return s, err
}

// Run executes leagues, seasons, fixtures, teams, lineups, previous_matches, players and
// team_ratings in that order, stopping at the first failing stage. Each stage is reported
// through the bundle's reporter.
func Run(b pipeline.Bundle, deps *Deps, in RunInput) (RunOutput, error) {
	out := RunOutput{RunID: b.RunID, Mode: in.Mode}
	lggr := b.Logger.Named("run")
	lggr.Infow("Starting run", "runID", b.RunID, "mode", in.Mode)

	steps := []func() (Step, error){
		func() (Step, error) {
			return runStage(b, Leagues, deps, LeaguesInput{LeaguesFile: in.LeaguesFile, Mode: in.Mode}, in)
		},
		func() (Step, error) {
			return runStage(b, Seasons, deps, SeasonsInput{SeasonsFile: in.SeasonsFile, Mode: in.Mode}, in)
		},
		func() (Step, error) { return runStage(b, Fixtures, deps, FixturesInput{Mode: in.Mode}, in) },
		func() (Step, error) { return runStage(b, Teams, deps, TeamsInput{Mode: in.Mode}, in) },
		func() (Step, error) {
			return runStage(b, Lineups, deps, LineupsInput{Mode: in.Mode, SeasonID: in.SeasonID}, in)
		},
		func() (Step, error) { return runStage(b, PreviousMatches, deps, DerivedInput{Mode: in.Mode}, in) },
		func() (Step, error) { return runStage(b, Players, deps, pipeline.EmptyInput{}, in) },
		func() (Step, error) { return runStage(b, TeamRatings, deps, DerivedInput{Mode: in.Mode}, in) },
	}
	for _, run := range steps {
		s, err := run()
		out.Steps = append(out.Steps, s)
		if err != nil {
			return out, fmt.Errorf("run %s: stage %s: %w", b.RunID, s.Stage, err)
		}
	}
	lggr.Infow("Run finished", "runID", b.RunID, "stages", len(out.Steps))

	return out, nil
}
