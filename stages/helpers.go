package stages

import (
	"regexp"
	"slices"
	"strings"
)

func sortedUnique(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)

	return slices.Compact(out)
}

// missingIDs returns the ids of wanted (sorted) that no row carries.
func missingIDs[T any](wanted []int64, rows []T, id func(T) int64) []int64 {
	found := make(map[int64]bool, len(rows))
	for _, r := range rows {
		found[id(r)] = true
	}
	var out []int64
	for _, w := range wanted {
		if !found[w] {
			out = append(out, w)
		}
	}

	return out
}

func firstN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}

	return s[:n]
}

var whitespace = regexp.MustCompile(`\s+`)

// cleanName replaces non-breaking spaces, collapses whitespace and trims.
func cleanName(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")

	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func ptr[T any](v T) *T { return &v }
