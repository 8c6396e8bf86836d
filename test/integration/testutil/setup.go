//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plutohub/platform/internal/app"
	"github.com/plutohub/platform/internal/infra"
)

const (
	TestIdentitySecret = "integration-test-identity-secret-0000000"
	TestSessionSecret  = "integration-test-session-secret-00000000"
	TestIdentityIssuer = "pluto-identity"
	PlatformAccountID  = "00000000-0000-0000-0000-000000000001"

	TestDBHost = "localhost"
	TestDBPort = 5435
	TestDBUser = "pluto"
	TestDBPass = "pluto"
	TestDBName = "pluto_test"
)

// TestEnv holds all resources for an integration test: an httptest server
// backed by the real router, the shared pool, and the assembled app for
// direct engine access.
type TestEnv struct {
	Server *httptest.Server
	Pool   *pgxpool.Pool
	App    *app.App
	t      *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, "pluto")
}

func ensureTestDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bPool, err := pgxpool.New(ctx, bootstrapDSN())
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer bPool.Close()

	var exists bool
	err = bPool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", TestDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check db exists: %w", err)
	}
	if !exists {
		if _, err := bPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", TestDBName)); err != nil {
			return fmt.Errorf("create test db: %w", err)
		}
	}
	return nil
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolCfg, err := pgxpool.ParseConfig(testDSN())
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
			return
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		if err := infra.RunMigrations(testDSN(), logger); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			sharedPool.Close()
			sharedPool = nil
			return
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

// NewTestEnv creates a test environment with an httptest.Server backed by the
// real router and test DB. Background loops (heartbeats, sweeper) are not
// started; tests drive them explicitly.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := &infra.Config{
		IdentityJWTSecret:  TestIdentitySecret,
		IdentityIssuer:     TestIdentityIssuer,
		SessionTokenSecret: TestSessionSecret,
		PlatformAccountID:  PlatformAccountID,
		SweepInterval:      time.Minute,
		CORSAllowedOrigins: "*",
	}

	a, err := app.New(app.Deps{Pool: pool, Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("wire app: %v", err)
	}

	server := httptest.NewServer(a.Router)

	env := &TestEnv{
		Server: server,
		Pool:   pool,
		App:    a,
		t:      t,
	}

	t.Cleanup(func() {
		server.Close()
		env.CleanAll()
	})

	env.CleanAll()
	return env
}

// CleanAll truncates all mutable tables and re-seeds the platform account.
func (env *TestEnv) CleanAll() {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx, `
		TRUNCATE event_outbox, ledger_entries, session_players, game_sessions, contracts, games, users`)
	if err != nil {
		env.t.Fatalf("CleanAll: truncate: %v", err)
	}

	_, err = env.Pool.Exec(ctx, `
		INSERT INTO users (id, external_auth_id, display_name)
		VALUES ($1, 'system:platform', 'platform')`, PlatformAccountID)
	if err != nil {
		env.t.Fatalf("CleanAll: seed platform account: %v", err)
	}
}
