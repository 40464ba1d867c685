package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/store"
)

func Test_NewReport(t *testing.T) {
	t.Parallel()

	def := Definition{ID: "leagues", Version: semver.MustParse("1.0.0")}
	started := time.Now().Add(-time.Second)

	r := NewReport(def, "run", 1, "out", started, nil)
	assert.NotEmpty(t, r.ID)
	assert.Nil(t, r.Err)
	assert.GreaterOrEqual(t, r.Duration(), time.Second)
	assert.Equal(t, time.UTC, r.StartedAt.Location())

	r = NewReport(def, "run", 1, "", started, errors.New("boom"))
	require.NotNil(t, r.Err)
	assert.Equal(t, "boom", r.Err.Error())

	g := r.ToGenericReport()
	assert.Equal(t, r.ID, g.ID)
	assert.Equal(t, 1, g.Input)
}

func Test_MemoryReporter(t *testing.T) {
	t.Parallel()

	seed := Report[any, any]{ID: "seed"}
	r := NewMemoryReporter(seed)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.AddReport(Report[any, any]{ID: "x"}))
		}()
	}
	wg.Wait()

	reports, err := r.GetReports()
	require.NoError(t, err)
	assert.Len(t, reports, 11)

	got, err := r.GetReport("seed")
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	_, err = r.GetReport("missing")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func Test_TeeReporter(t *testing.T) {
	t.Parallel()

	a, b := NewMemoryReporter(), NewMemoryReporter()
	tee := Tee(a, b, failingReporter{NewMemoryReporter()})

	err := tee.AddReport(Report[any, any]{ID: "1"})
	require.ErrorContains(t, err, "disk full")

	for _, r := range []Reporter{a, b, tee} {
		got, err := r.GetReport("1")
		require.NoError(t, err)
		assert.Equal(t, "1", got.ID)
	}
}

type fakeReportStore struct {
	mu   sync.Mutex
	rows []store.StageReport
}

func (f *fakeReportStore) InsertStageReport(_ context.Context, r store.StageReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, r)

	return nil
}

func (f *fakeReportStore) StageReport(_ context.Context, id string) (store.StageReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}

	return store.StageReport{}, store.ErrStageReportNotFound
}

func (f *fakeReportStore) StageReports(_ context.Context, runID string) ([]store.StageReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.StageReport
	for _, r := range f.rows {
		if r.RunID == runID {
			out = append(out, r)
		}
	}

	return out, nil
}

func Test_StoreReporter(t *testing.T) {
	t.Parallel()

	db := &fakeReportStore{}
	r := NewStoreReporter(context.Background, db, "run-7")

	type in struct {
		Leagues []int64 `json:"leagues"`
	}
	rep := NewReport(
		Definition{ID: "leagues", Version: semver.MustParse("1.2.0")},
		"", in{Leagues: []int64{8, 82}}, map[string]int{"written": 2},
		time.Now(), errors.New("partial"),
	)
	require.NoError(t, r.AddReport(rep.ToGenericReport()))

	require.Len(t, db.rows, 1)
	row := db.rows[0]
	assert.Equal(t, "run-7", row.RunID)
	assert.Equal(t, "leagues", row.Stage)
	assert.Equal(t, "1.2.0", row.Version)
	assert.JSONEq(t, `{"leagues":[8,82]}`, string(row.Input))
	assert.Equal(t, "partial", row.Error)

	got, err := r.GetReport(rep.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got.Def.Version.String())
	assert.Equal(t, map[string]any{"leagues": []any{float64(8), float64(82)}}, got.Input)
	assert.Equal(t, map[string]any{"written": float64(2)}, got.Output)
	require.NotNil(t, got.Err)

	all, err := r.GetReports()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = r.GetReport("nope")
	require.ErrorIs(t, err, ErrReportNotFound)
}
