// Package timeline builds the snapshot schedule used to sample historical odds around a
// fixture.
package timeline

import (
	"fmt"
	"slices"
	"time"
)

// Point is one scheduled snapshot.
type Point struct {
	At    time.Time
	Label string
}

// Build returns the snapshot times of a fixture kicking off at kickoff:
//   - every 10 minutes from two hours before kickoff up to ten minutes before it,
//   - hourly from 24 hours before kickoff up to three hours before it,
//   - when prev (the home team's previous kickoff) is set: one, two and three hours after and
//     before it, plus three days before it.
//
// Times are deduplicated and sorted latest first.
func Build(kickoff time.Time, prev *time.Time) []time.Time {
	k := kickoff.UTC()
	var out []time.Time
	for t := k.Add(-2 * time.Hour); !t.After(k.Add(-10 * time.Minute)); t = t.Add(10 * time.Minute) {
		out = append(out, t)
	}
	for t := k.Add(-24 * time.Hour); !t.After(k.Add(-3 * time.Hour)); t = t.Add(time.Hour) {
		out = append(out, t)
	}
	if prev != nil {
		p := prev.UTC()
		for h := 1; h <= 3; h++ {
			out = append(out, p.Add(time.Duration(h)*time.Hour), p.Add(-time.Duration(h)*time.Hour))
		}
		out = append(out, p.Add(-72*time.Hour))
	}

	slices.SortFunc(out, func(a, b time.Time) int { return b.Compare(a) })

	return slices.CompactFunc(out, time.Time.Equal)
}

// Label names the snapshots of Build: the latest is odd_1, the next odd_2 and so on.
func Label(times []time.Time) []Point {
	out := make([]Point, len(times))
	for i, t := range times {
		out[i] = Point{At: t, Label: fmt.Sprintf("odd_%d", i+1)}
	}

	return out
}

// Points builds and labels the schedule.
func Points(kickoff time.Time, prev *time.Time) []Point {
	return Label(Build(kickoff, prev))
}
