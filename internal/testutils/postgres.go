// Package testutils provides shared helpers for database-backed tests.
package testutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/rubenv/pgtest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// EnvTestDatabaseURL points tests at an existing, disposable Postgres database.
const EnvTestDatabaseURL = "SPORTDATA_TEST_DATABASE_URL"

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "postgres"
	postgresPassword = "postgres"
	postgresDB       = "sportdata_test"
	postgresPort     = "5432/tcp"
)

// Postgres is a database server shared by the tests of one package.
type Postgres struct {
	DB     *sql.DB
	Source string
	stop   func() error
}

// StartPostgres returns a database from, in order: the SPORTDATA_TEST_DATABASE_URL environment
// variable, a local postgres started with pgtest, or a testcontainers postgres container.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	if dsn := os.Getenv(EnvTestDatabaseURL); dsn != "" {
		db, err := openDSN(ctx, dsn)
		if err != nil {
			return nil, err
		}

		return &Postgres{DB: db, Source: "env", stop: db.Close}, nil
	}

	pg, pgErr := pgtest.Start()
	if pgErr == nil {
		return &Postgres{DB: pg.DB, Source: "pgtest", stop: pg.Stop}, nil
	}
	log.Printf("pgtest unavailable, trying testcontainers: %v", pgErr)

	p, err := startContainer(ctx)
	if err != nil {
		return nil, errors.Join(pgErr, err)
	}

	return p, nil
}

func startContainer(ctx context.Context) (p *Postgres, err error) {
	// testcontainers panics on some hosts without a docker socket.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start postgres container: %v", r)
		}
	}()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{postgresPort},
			Env: map[string]string{
				"POSTGRES_USER":     postgresUser,
				"POSTGRES_PASSWORD": postgresPassword,
				"POSTGRES_DB":       postgresDB,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}
	terminate := func() error {
		tctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		return ctr.Terminate(tctx)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		return nil, errors.Join(err, terminate())
	}
	port, err := ctr.MappedPort(ctx, postgresPort)
	if err != nil {
		return nil, errors.Join(err, terminate())
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		postgresUser, postgresPassword, host, port.Int(), postgresDB)
	db, err := openDSN(ctx, dsn)
	if err != nil {
		return nil, errors.Join(err, terminate())
	}

	return &Postgres{
		DB:     db,
		Source: "testcontainers",
		stop: func() error {
			return errors.Join(db.Close(), terminate())
		},
	}, nil
}

func openDSN(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping test database: %w", err)
	}

	return db, nil
}

// Stop releases the server.
func (p *Postgres) Stop() error {
	if p == nil || p.stop == nil {
		return nil
	}

	return p.stop()
}

// Reset drops tables so each test starts from an empty schema.
func (p *Postgres) Reset(t testing.TB, tables ...string) {
	t.Helper()
	if len(tables) == 0 {
		return
	}
	_, err := p.DB.ExecContext(t.Context(), "DROP TABLE IF EXISTS "+strings.Join(tables, ", ")+" CASCADE")
	require.NoError(t, err)
}

// RequirePostgres skips the test when no database could be started for the package.
func RequirePostgres(t testing.TB, p *Postgres) *sql.DB {
	t.Helper()
	if p == nil {
		t.Skip("postgres is not available: set " + EnvTestDatabaseURL + ", install postgres, or run docker")
	}

	return p.DB
}
