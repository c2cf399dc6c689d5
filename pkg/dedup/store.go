// Package dedup persists processed invoices in PostgreSQL and answers the
// duplicate-invoice check used by validation.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paperglass/paperglass/pkg/fields"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/validate"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_invoices (
    id             BIGSERIAL PRIMARY KEY,
    run_id         TEXT NOT NULL,
    vendor_name    TEXT NOT NULL DEFAULT '',
    invoice_number TEXT NOT NULL,
    total_amount   TEXT,
    confidence     DOUBLE PRECISION NOT NULL,
    decision       TEXT NOT NULL,
    processed_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS processed_invoices_vendor_number
    ON processed_invoices (lower(vendor_name), invoice_number);
`

// querier is the subset of pgxpool.Pool the store uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store keeps one row per processed invoice. Numbers are stored normalized
// so rescans of the same paper invoice collide regardless of OCR noise.
type Store struct {
	db     querier
	logger logging.Logger
}

// New creates a store on an open pool.
func New(pool *pgxpool.Pool, logger logging.Logger) *Store {
	return newStore(pool, logger)
}

func newStore(db querier, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the backing table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// IsDuplicate reports whether an invoice with the same vendor and normalized
// number was already processed, returning the earlier run ID when so.
func (s *Store) IsDuplicate(ctx context.Context, vendor, invoiceNumber string) (bool, string, error) {
	number := fields.NormalizeIdentifier(invoiceNumber)
	if number == "" {
		return false, "", nil
	}

	var runID string
	err := s.db.QueryRow(ctx,
		`SELECT run_id FROM processed_invoices
		 WHERE lower(vendor_name) = lower($1) AND invoice_number = $2
		 ORDER BY processed_at DESC LIMIT 1`,
		vendor, number).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("duplicate lookup: %w", err)
	}
	return true, runID, nil
}

// Record stores one finished extraction. Extractions without an invoice
// number are skipped; they can never collide.
func (s *Store) Record(ctx context.Context, x *invoice.InvoiceExtraction) error {
	number := fields.NormalizeIdentifier(x.FieldValue(invoice.FieldInvoiceNumber))
	if number == "" {
		s.logger.Debug("skipping dedup record without invoice number",
			logging.F("run_id", x.RunID))
		return nil
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO processed_invoices
		 (run_id, vendor_name, invoice_number, total_amount, confidence, decision, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		x.RunID,
		x.FieldValue(invoice.FieldVendorName),
		number,
		x.FieldValue(invoice.FieldTotalAmount),
		x.Confidence,
		string(x.Decision),
		x.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record extraction: %w", err)
	}
	return nil
}

// Connect opens a pool from a DSN and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// ConnectWithRetry retries Connect with a fixed delay, for worker startup
// racing the database.
func ConnectWithRetry(ctx context.Context, dsn string, maxAttempts int, retryDelay time.Duration) (*pgxpool.Pool, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pool, err := Connect(ctx, dsn)
		if err == nil {
			return pool, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("connect after %d attempts: %w", maxAttempts, lastErr)
}

// Verify interface compliance
var _ validate.DuplicateChecker = (*Store)(nil)
