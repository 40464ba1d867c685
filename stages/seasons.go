package stages

import (
	"regexp"
	"slices"
	"strings"

	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/store"
)

// SeasonsInput selects the seasons to load.
type SeasonsInput struct {
	SeasonsFile string `json:"seasonsFile"`
	Mode        Mode   `json:"mode"`
}

// SeasonsOutput summarises a seasons run.
type SeasonsOutput struct {
	Leagues   int      `json:"leagues"`
	Matched   int      `json:"matched"`
	Unmatched []string `json:"unmatched,omitempty"`
	Written   int64    `json:"written"`
	Deleted   int64    `json:"deleted"`
}

var startYear = regexp.MustCompile(`^(\d{4})`)

// seasonStartYear returns the leading four-digit year of a season label, e.g. "2024" for
// "2024/2025".
func seasonStartYear(name string) string {
	m := startYear.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return ""
	}

	return m[1]
}

// seasonMatcher selects API seasons by exact name or by start year.
type seasonMatcher struct {
	exact   map[string]bool
	years   map[string]bool
	matched map[string]bool
}

func newSeasonMatcher(names []string) *seasonMatcher {
	m := &seasonMatcher{exact: map[string]bool{}, years: map[string]bool{}, matched: map[string]bool{}}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		m.exact[n] = true
		if y := seasonStartYear(n); y != "" {
			m.years[y] = true
		}
	}

	return m
}

// match reports whether the API season name is selected and records which file entries it
// satisfied.
func (m *seasonMatcher) match(name string) bool {
	if m.exact[name] {
		m.matched[name] = true
		return true
	}
	y := seasonStartYear(name)
	if y == "" || !m.years[y] {
		return false
	}
	for e := range m.exact {
		if seasonStartYear(e) == y {
			m.matched[e] = true
		}
	}

	return true
}

func (m *seasonMatcher) unmatched() []string {
	var out []string
	for e := range m.exact {
		if !m.matched[e] {
			out = append(out, e)
		}
	}
	slices.Sort(out)

	return out
}

// Seasons loads, for every stored league, the seasons named in the seasons YAML file.
var Seasons = pipeline.NewStage(
	"seasons",
	v1,
	"Load the seasons named in the seasons file for every stored league",
	func(b pipeline.Bundle, deps *Deps, in SeasonsInput) (SeasonsOutput, error) {
		ctx := b.GetContext()
		lggr := b.Logger.Named("seasons")
		provider := deps.provider()

		sm, err := deps.sportmonks("seasons")
		if err != nil {
			return SeasonsOutput{}, err
		}
		names, err := LoadSeasonNames(in.SeasonsFile)
		if err != nil {
			return SeasonsOutput{}, err
		}
		leagueIDs, err := deps.Store.LeagueIDs(ctx, "")
		if err != nil {
			return SeasonsOutput{}, err
		}
		if len(leagueIDs) == 0 {
			lggr.Infow("No leagues stored, run the leagues stage first")
			return SeasonsOutput{}, nil
		}
		out := SeasonsOutput{Leagues: len(leagueIDs)}

		matcher := newSeasonMatcher(names)
		var (
			rows []store.Season
			keep []int64
		)
		for _, leagueID := range leagueIDs {
			seasons, err := sm.Seasons(ctx, leagueID)
			if err != nil {
				return out, err
			}
			for _, s := range seasons {
				name := strings.TrimSpace(s.Name)
				if s.ID == 0 || name == "" || !matcher.match(name) {
					continue
				}
				rows = append(rows, store.Season{
					ID:        s.ID,
					Name:      name,
					LeagueID:  leagueID,
					IsCurrent: s.IsCurrent,
					Provider:  provider,
				})
				keep = append(keep, s.ID)
			}
		}
		out.Matched = len(rows)
		if out.Unmatched = matcher.unmatched(); len(out.Unmatched) > 0 {
			lggr.Warnw("Season file entries did not match any API season", "entries", out.Unmatched)
		}

		if in.Mode.extend() {
			if out.Written, err = deps.Store.InsertSeasons(ctx, rows); err != nil {
				return out, err
			}
			lggr.Infow("Seasons inserted", "inserted", out.Written)

			return out, nil
		}

		err = deps.Store.InTx(ctx, func(tx *store.Store) error {
			var err error
			if out.Written, err = tx.UpsertSeasons(ctx, rows); err != nil {
				return err
			}
			out.Deleted, err = tx.DeleteSeasonsNotIn(ctx, provider, keep)

			return err
		})
		if err != nil {
			return out, err
		}
		b.Metrics.Add("seasons", "written", int(out.Written))
		lggr.Infow("Seasons synchronised", "insertedOrUpdated", out.Written, "deleted", out.Deleted)

		return out, nil
	},
)
