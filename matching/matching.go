// Package matching links SportMonks fixtures to The Odds API events by team names and
// kickoff time.
package matching

import (
	"regexp"
	"strings"
	"time"

	"github.com/inattention/sportdata/provider/oddsapi"
)

// Kind tells how an event was matched.
type Kind string

const (
	KindExact   Kind = "exact"
	KindSwapped Kind = "swapped"
	KindRelaxed Kind = "relaxed"
)

// Result is the event chosen for a fixture.
type Result struct {
	EventID  string
	Kind     Kind
	Commence time.Time
	HomeTeam string
	AwayTeam string
	// Score is the number of matched team names (relaxed matching only).
	Score int
	// Diff is the absolute distance between event commence time and fixture kickoff.
	Diff time.Duration
}

var (
	spaces  = regexp.MustCompile(`\s+`)
	invalid = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.]`)
)

// NormalizeName lower-cases and trims a team name, spells out "&", collapses whitespace and
// drops punctuation other than "-" and ".".
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", "and")
	s = spaces.ReplaceAllString(s, " ")

	return invalid.ReplaceAllString(s, "")
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}

// BestEvent returns the event whose normalised team names equal home and away, in either
// orientation, with the commence time closest to kickoff. Events without an id or a valid
// commence time are ignored. It returns false when nothing matches.
func BestEvent(events []oddsapi.Event, home, away string, kickoff time.Time) (Result, bool) {
	hn, an := NormalizeName(home), NormalizeName(away)
	var (
		best  Result
		found bool
	)
	for _, e := range events {
		if e.ID == "" || e.CommenceTime == "" {
			continue
		}
		eh, ea := NormalizeName(e.HomeTeam), NormalizeName(e.AwayTeam)
		var kind Kind
		switch {
		case eh == hn && ea == an:
			kind = KindExact
		case eh == an && ea == hn:
			kind = KindSwapped
		default:
			continue
		}
		commence, err := e.Commence()
		if err != nil {
			continue
		}
		diff := absDuration(commence.Sub(kickoff))
		if !found || diff < best.Diff {
			best = Result{
				EventID:  e.ID,
				Kind:     kind,
				Commence: commence,
				HomeTeam: e.HomeTeam,
				AwayTeam: e.AwayTeam,
				Score:    2,
				Diff:     diff,
			}
			found = true
		}
	}

	return best, found
}

// BestEventRelaxed accepts events where at least one expected team name matches (trimmed and
// lower-cased), in either orientation. Candidates with more matching names win; ties go to
// the commence time closest to kickoff. Empty expected names never match.
func BestEventRelaxed(events []oddsapi.Event, home, away string, kickoff time.Time) (Result, bool) {
	eh := strings.ToLower(strings.TrimSpace(home))
	ea := strings.ToLower(strings.TrimSpace(away))
	same := func(expected, got string) int {
		if expected != "" && expected == got {
			return 1
		}
		return 0
	}
	var (
		best  Result
		found bool
	)
	for _, e := range events {
		if e.ID == "" || e.CommenceTime == "" {
			continue
		}
		commence, err := e.Commence()
		if err != nil {
			continue
		}
		ht := strings.ToLower(strings.TrimSpace(e.HomeTeam))
		at := strings.ToLower(strings.TrimSpace(e.AwayTeam))
		score := max(same(eh, ht)+same(ea, at), same(eh, at)+same(ea, ht))
		if score < 1 {
			continue
		}
		diff := absDuration(commence.Sub(kickoff))
		if !found || score > best.Score || (score == best.Score && diff < best.Diff) {
			best = Result{
				EventID:  e.ID,
				Kind:     KindRelaxed,
				Commence: commence,
				HomeTeam: e.HomeTeam,
				AwayTeam: e.AwayTeam,
				Score:    score,
				Diff:     diff,
			}
			found = true
		}
	}

	return best, found
}
