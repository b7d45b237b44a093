package batch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"infrastat/internal/infrastat/models"
	id "infrastat/pkg/domain"
	"infrastat/pkg/platform/sentinel"
	txcontext "infrastat/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists batches, lines and validation findings in
// PostgreSQL. All methods run against the transaction carried in context
// when one is present, so the ingestion and submission orchestrators can
// scope their writes to one commit.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed batch store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create persists a new batch. Returns sentinel.ErrConflict when another
// batch already covers the same tenant, period and flow.
func (s *PostgresStore) Create(ctx context.Context, batch models.DeclarationBatch) error {
	meta, err := json.Marshal(batch.Metadata)
	if err != nil {
		return fmt.Errorf("marshal batch metadata: %w", err)
	}
	query := `
		INSERT INTO declaration_batches
			(id, tenant_id, flow_type, reference_period, status,
			 total_value, total_weight, line_count, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.conn(ctx).ExecContext(ctx, query,
		batch.ID.String(), batch.TenantID.String(), string(batch.FlowType),
		string(batch.RefPeriod), string(batch.Status),
		batch.TotalValue, batch.TotalWeight, batch.LineCount,
		meta, batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Save updates a batch's mutable fields.
func (s *PostgresStore) Save(ctx context.Context, batch models.DeclarationBatch) error {
	query := `
		UPDATE declaration_batches
		SET status = $2, total_value = $3, total_weight = $4,
		    line_count = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		batch.ID.String(), string(batch.Status),
		batch.TotalValue, batch.TotalWeight, batch.LineCount, batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ReplaceLines swaps the batch's line set wholesale.
func (s *PostgresStore) ReplaceLines(ctx context.Context, batchID id.BatchID, lines []models.DeclarationLine) error {
	conn := s.conn(ctx)
	if _, err := conn.ExecContext(ctx, `DELETE FROM declaration_lines WHERE batch_id = $1`, batchID.String()); err != nil {
		return fmt.Errorf("delete batch lines: %w", err)
	}
	query := `
		INSERT INTO declaration_lines
			(batch_id, seq_no, commodity_code, origin_country, destination_country,
			 net_mass_kg, invoice_value, statistical_value, supplementary_units,
			 transaction_nature, transport_mode, delivery_terms, extensions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for _, l := range lines {
		ext, err := json.Marshal(l.Extensions)
		if err != nil {
			return fmt.Errorf("marshal line extensions: %w", err)
		}
		_, err = conn.ExecContext(ctx, query,
			batchID.String(), l.SeqNo, l.CommodityCode, l.OriginCountry, l.DestinationCountry,
			l.NetMassKG, l.InvoiceValue, l.StatisticalValue, l.SupplementaryUnits,
			l.TransactionNature, l.TransportMode, l.DeliveryTerms, ext,
		)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", l.SeqNo, err)
		}
	}
	return nil
}

// ReplaceFindings swaps the batch's validation findings wholesale.
func (s *PostgresStore) ReplaceFindings(ctx context.Context, batchID id.BatchID, findings []models.ValidationError) error {
	conn := s.conn(ctx)
	if _, err := conn.ExecContext(ctx, `DELETE FROM validation_errors WHERE batch_id = $1`, batchID.String()); err != nil {
		return fmt.Errorf("delete batch findings: %w", err)
	}
	query := `
		INSERT INTO validation_errors (batch_id, code, severity, message, line_seq, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, f := range findings {
		details, err := json.Marshal(f.Details)
		if err != nil {
			return fmt.Errorf("marshal finding details: %w", err)
		}
		_, err = conn.ExecContext(ctx, query,
			batchID.String(), string(f.Code), string(f.Severity), f.Message, f.LineSeq, details,
		)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}
	return nil
}

const batchColumns = `id, tenant_id, flow_type, reference_period, status,
	total_value, total_weight, line_count, metadata, created_at, updated_at`

func scanBatch(row interface{ Scan(...any) error }) (models.DeclarationBatch, error) {
	var (
		b                  models.DeclarationBatch
		batchID, tenantID  string
		flow, period, stat string
		meta               []byte
	)
	err := row.Scan(&batchID, &tenantID, &flow, &period, &stat,
		&b.TotalValue, &b.TotalWeight, &b.LineCount, &meta, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return models.DeclarationBatch{}, err
	}
	if b.ID, err = id.ParseBatchID(batchID); err != nil {
		return models.DeclarationBatch{}, err
	}
	if b.TenantID, err = id.ParseTenantID(tenantID); err != nil {
		return models.DeclarationBatch{}, err
	}
	b.FlowType = id.FlowType(flow)
	b.RefPeriod = id.RefPeriod(period)
	b.Status = models.BatchStatus(stat)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &b.Metadata); err != nil {
			return models.DeclarationBatch{}, fmt.Errorf("unmarshal batch metadata: %w", err)
		}
	}
	return b, nil
}

// FindByID returns the batch for the given tenant.
func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID, batchID id.BatchID) (models.DeclarationBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM declaration_batches WHERE id = $1 AND tenant_id = $2`
	b, err := scanBatch(s.conn(ctx).QueryRowContext(ctx, query, batchID.String(), tenantID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeclarationBatch{}, sentinel.ErrNotFound
		}
		return models.DeclarationBatch{}, fmt.Errorf("find batch: %w", err)
	}
	return b, nil
}

// FindByPeriod returns the batch covering the given tenant, period and flow.
func (s *PostgresStore) FindByPeriod(ctx context.Context, tenantID id.TenantID, period id.RefPeriod, flow id.FlowType) (models.DeclarationBatch, error) {
	query := `SELECT ` + batchColumns + `
		FROM declaration_batches
		WHERE tenant_id = $1 AND reference_period = $2 AND flow_type = $3`
	b, err := scanBatch(s.conn(ctx).QueryRowContext(ctx, query, tenantID.String(), string(period), string(flow)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeclarationBatch{}, sentinel.ErrNotFound
		}
		return models.DeclarationBatch{}, fmt.Errorf("find batch by period: %w", err)
	}
	return b, nil
}

// Lines returns the batch's lines ordered by sequence number.
func (s *PostgresStore) Lines(ctx context.Context, batchID id.BatchID) ([]models.DeclarationLine, error) {
	query := `
		SELECT seq_no, commodity_code, origin_country, destination_country,
		       net_mass_kg, invoice_value, statistical_value, supplementary_units,
		       transaction_nature, transport_mode, delivery_terms, extensions
		FROM declaration_lines
		WHERE batch_id = $1
		ORDER BY seq_no
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var lines []models.DeclarationLine
	for rows.Next() {
		var (
			l   models.DeclarationLine
			ext []byte
		)
		err := rows.Scan(&l.SeqNo, &l.CommodityCode, &l.OriginCountry, &l.DestinationCountry,
			&l.NetMassKG, &l.InvoiceValue, &l.StatisticalValue, &l.SupplementaryUnits,
			&l.TransactionNature, &l.TransportMode, &l.DeliveryTerms, &ext)
		if err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		if len(ext) > 0 {
			if err := json.Unmarshal(ext, &l.Extensions); err != nil {
				return nil, fmt.Errorf("unmarshal line extensions: %w", err)
			}
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Findings returns the batch's validation findings.
func (s *PostgresStore) Findings(ctx context.Context, batchID id.BatchID) ([]models.ValidationError, error) {
	query := `
		SELECT code, severity, message, line_seq, details
		FROM validation_errors
		WHERE batch_id = $1
		ORDER BY line_seq, code
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var findings []models.ValidationError
	for rows.Next() {
		var (
			f       models.ValidationError
			details []byte
		)
		if err := rows.Scan(&f.Code, &f.Severity, &f.Message, &f.LineSeq, &details); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &f.Details); err != nil {
				return nil, fmt.Errorf("unmarshal finding details: %w", err)
			}
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// ListByTenant returns all batches for a tenant, newest first.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]models.DeclarationBatch, error) {
	query := `SELECT ` + batchColumns + `
		FROM declaration_batches
		WHERE tenant_id = $1
		ORDER BY created_at DESC`
	rows, err := s.conn(ctx).QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []models.DeclarationBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
