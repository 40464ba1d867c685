package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_WithoutPrevious(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2023, 8, 12, 14, 0, 0, 0, time.UTC)
	got := Build(kickoff, nil)

	// 12 ten-minute snapshots and 22 hourly ones
	require.Len(t, got, 34)
	assert.Equal(t, kickoff.Add(-10*time.Minute), got[0])
	assert.Equal(t, kickoff.Add(-2*time.Hour), got[11])
	assert.Equal(t, kickoff.Add(-3*time.Hour), got[12])
	assert.Equal(t, kickoff.Add(-24*time.Hour), got[33])
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Before(got[i-1]), "descending at %d", i)
	}
}

func TestBuild_WithPrevious(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2023, 8, 19, 14, 0, 0, 0, time.UTC)
	prev := time.Date(2023, 8, 12, 14, 0, 0, 0, time.UTC)
	got := Build(kickoff, &prev)

	require.Len(t, got, 41)
	assert.Equal(t, prev.Add(3*time.Hour), got[34])
	assert.Equal(t, prev.Add(-72*time.Hour), got[40])
}

func TestBuild_Dedupes(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2023, 8, 13, 14, 0, 0, 0, time.UTC)
	// one day earlier: prev+1h..+3h fall inside the hourly window
	prev := time.Date(2023, 8, 12, 14, 0, 0, 0, time.UTC)
	got := Build(kickoff, &prev)

	require.Len(t, got, 34+4)
	seen := map[time.Time]bool{}
	for _, ts := range got {
		assert.False(t, seen[ts], "duplicate %s", ts)
		seen[ts] = true
	}
}

func TestPoints(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2023, 8, 12, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	pts := Points(kickoff, nil)

	require.Len(t, pts, 34)
	assert.Equal(t, "odd_1", pts[0].Label)
	assert.Equal(t, "odd_34", pts[33].Label)
	assert.Equal(t, time.UTC, pts[0].At.Location())
	assert.Equal(t, 11, pts[0].At.Hour())
	assert.Equal(t, 50, pts[0].At.Minute())
}
