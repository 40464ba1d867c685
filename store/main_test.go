package store

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inattention/sportdata/internal/testutils"
	"github.com/inattention/sportdata/pkg/logger"
)

// testPG is the database shared by the tests of this package. It is nil when no postgres
// could be started, in which case database tests are skipped.
var testPG *testutils.Postgres

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	pg, err := testutils.StartPostgres(ctx)
	cancel()
	if err != nil {
		log.Printf("postgres unavailable, database tests will be skipped: %v", err)
	} else {
		log.Printf("using postgres from %s", pg.Source)
		testPG = pg
	}

	code := m.Run()

	if err := testPG.Stop(); err != nil {
		log.Printf("Warning: failed to stop postgres: %v", err)
	}
	os.Exit(code)
}

// newTestStore returns a store over a freshly created schema. Database tests share one server
// and must not run in parallel.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := testutils.RequirePostgres(t, testPG)
	testPG.Reset(t, Tables()...)

	s := New(logger.Test(t), db)
	require.NoError(t, s.EnsureSchema(t.Context()))

	return s
}
