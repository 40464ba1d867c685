package stages

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/internal/testutils"
	"github.com/inattention/sportdata/pipeline"
	"github.com/inattention/sportdata/pkg/logger"
	"github.com/inattention/sportdata/store"
)

var testPG *testutils.Postgres

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	pg, err := testutils.StartPostgres(ctx)
	cancel()
	if err != nil {
		log.Printf("postgres unavailable, database tests will be skipped: %v", err)
	} else {
		testPG = pg
	}

	code := m.Run()

	if err := testPG.Stop(); err != nil {
		log.Printf("Warning: failed to stop postgres: %v", err)
	}
	os.Exit(code)
}

// newTestStore returns a store over an empty schema. Database tests must not run in parallel.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db := testutils.RequirePostgres(t, testPG)
	testPG.Reset(t, store.Tables()...)

	s := store.New(logger.Test(t), db)
	require.NoError(t, s.EnsureSchema(t.Context()))

	return s
}

func newTestBundle(t *testing.T) pipeline.Bundle {
	t.Helper()

	return pipeline.NewBundle(t.Context, logger.Test(t), nil, pipeline.WithRunID("test-run"))
}

var fastRetry = pipeline.RateLimitPolicy{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond, Factor: 1.6}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + "/" + name
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func count(t *testing.T, s *store.Store, table string) int64 {
	t.Helper()
	n, err := s.Count(t.Context(), table)
	require.NoError(t, err)

	return n
}
