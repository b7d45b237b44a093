//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS declaration_batches (
	id               UUID PRIMARY KEY,
	tenant_id        UUID NOT NULL,
	flow_type        TEXT NOT NULL,
	reference_period TEXT NOT NULL,
	status           TEXT NOT NULL,
	total_value      DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_weight     DOUBLE PRECISION NOT NULL DEFAULT 0,
	line_count       INTEGER NOT NULL DEFAULT 0,
	metadata         JSONB,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (tenant_id, reference_period, flow_type)
);

CREATE TABLE IF NOT EXISTS declaration_lines (
	batch_id            UUID NOT NULL REFERENCES declaration_batches(id) ON DELETE CASCADE,
	seq_no              INTEGER NOT NULL,
	commodity_code      TEXT NOT NULL,
	origin_country      TEXT NOT NULL,
	destination_country TEXT NOT NULL,
	net_mass_kg         DOUBLE PRECISION NOT NULL,
	invoice_value       DOUBLE PRECISION NOT NULL,
	statistical_value   DOUBLE PRECISION,
	supplementary_units DOUBLE PRECISION,
	transaction_nature  TEXT NOT NULL DEFAULT '',
	transport_mode      TEXT NOT NULL DEFAULT '',
	delivery_terms      TEXT NOT NULL DEFAULT '',
	extensions          JSONB,
	PRIMARY KEY (batch_id, seq_no)
);

CREATE TABLE IF NOT EXISTS validation_errors (
	batch_id UUID NOT NULL REFERENCES declaration_batches(id) ON DELETE CASCADE,
	code     TEXT NOT NULL,
	severity TEXT NOT NULL,
	message  TEXT NOT NULL,
	line_seq INTEGER NOT NULL DEFAULT 0,
	details  JSONB
);

CREATE TABLE IF NOT EXISTS submission_logs (
	id           UUID PRIMARY KEY,
	batch_id     UUID NOT NULL REFERENCES declaration_batches(id) ON DELETE CASCADE,
	channel      TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	reference    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	success      BOOLEAN NOT NULL DEFAULT FALSE,
	dry_run      BOOLEAN NOT NULL DEFAULT FALSE,
	raw_response TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("infrastat_test"),
		tcpostgres.WithUsername("infrastat"),
		tcpostgres.WithPassword("infrastat"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Note: We don't register t.Cleanup here because the container is managed
	// by the singleton Manager and shared across test suites. Ryuk handles cleanup.

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the given tables and resets their identity columns.
// Use between tests to ensure isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	_, err := p.DB.ExecContext(ctx, query)
	return err
}
