package submission

import (
	"context"
	"database/sql"
	"fmt"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/sentinel"
	txcontext "infrastat/pkg/platform/tx"
)

// PostgresStore persists submission logs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed submission log store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append records a new submission log entry.
func (s *PostgresStore) Append(ctx context.Context, log models.SubmissionLog) error {
	query := `
		INSERT INTO submission_logs
			(id, batch_id, channel, payload_hash, reference, status,
			 success, dry_run, raw_response, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		log.ID.String(), log.BatchID.String(), log.Channel, log.PayloadHash,
		log.Reference, string(log.Status), log.Success, log.DryRun,
		log.RawResponse, log.Error, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission log: %w", err)
	}
	return nil
}

// Update overwrites an existing log entry with its terminal outcome.
func (s *PostgresStore) Update(ctx context.Context, log models.SubmissionLog) error {
	query := `
		UPDATE submission_logs
		SET reference = $2, status = $3, success = $4,
		    raw_response = $5, error = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		log.ID.String(), log.Reference, string(log.Status), log.Success,
		log.RawResponse, log.Error, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update submission log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListByBatch returns the batch's submission history, oldest first.
func (s *PostgresStore) ListByBatch(ctx context.Context, batchID id.BatchID) ([]models.SubmissionLog, error) {
	query := `
		SELECT id, batch_id, channel, payload_hash, reference, status,
		       success, dry_run, raw_response, error, created_at, updated_at
		FROM submission_logs
		WHERE batch_id = $1
		ORDER BY created_at
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("query submission logs: %w", err)
	}
	defer rows.Close()

	var out []models.SubmissionLog
	for rows.Next() {
		var (
			l               models.SubmissionLog
			logID, logBatch string
			status          string
		)
		err := rows.Scan(&logID, &logBatch, &l.Channel, &l.PayloadHash, &l.Reference, &status,
			&l.Success, &l.DryRun, &l.RawResponse, &l.Error, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan submission log: %w", err)
		}
		if l.ID, err = id.ParseSubmissionID(logID); err != nil {
			return nil, err
		}
		if l.BatchID, err = id.ParseBatchID(logBatch); err != nil {
			return nil, err
		}
		l.Status = models.SubmissionStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}
