package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

type fakeRow struct {
	runID string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		if p, ok := dest[0].(*string); ok {
			*p = r.runID
		}
	}
	return nil
}

type fakeDB struct {
	row      fakeRow
	queries  []string
	args     [][]any
	execSQL  []string
	execArgs [][]any
	execErr  error
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.CommandTag{}, f.execErr
}

func TestIsDuplicateFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{runID: "run-first"}}
	s := newStore(db, logging.NewNopLogger())

	dup, runID, err := s.IsDuplicate(context.Background(), "Acme Supplies Inc.", "inv 2024-001")
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "run-first", runID)

	// The lookup sees the normalized number.
	require.Len(t, db.args, 1)
	assert.Equal(t, "Acme Supplies Inc.", db.args[0][0])
	assert.Equal(t, "INV2024-001", db.args[0][1])
}

func TestIsDuplicateNoRows(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	s := newStore(db, logging.NewNopLogger())

	dup, runID, err := s.IsDuplicate(context.Background(), "Acme", "INV-1")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Empty(t, runID)
}

func TestIsDuplicateEmptyNumber(t *testing.T) {
	db := &fakeDB{}
	s := newStore(db, logging.NewNopLogger())

	dup, _, err := s.IsDuplicate(context.Background(), "Acme", "  ")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Empty(t, db.queries, "no query for an empty number")
}

func TestRecordInsertsNormalizedNumber(t *testing.T) {
	db := &fakeDB{}
	s := newStore(db, logging.NewNopLogger())

	x := &invoice.InvoiceExtraction{
		RunID: "run-9",
		Fields: []invoice.ExtractedField{
			{Name: invoice.FieldInvoiceNumber, Value: "inv-2024-002."},
			{Name: invoice.FieldVendorName, Value: "Globex Ltd"},
			{Name: invoice.FieldTotalAmount, Value: "512.00"},
		},
		Confidence:  0.81,
		Decision:    invoice.DecisionManualReview,
		ProcessedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Record(context.Background(), x))

	require.Len(t, db.execArgs, 1)
	args := db.execArgs[0]
	assert.Equal(t, "run-9", args[0])
	assert.Equal(t, "Globex Ltd", args[1])
	assert.Equal(t, "INV-2024-002", args[2])
	assert.Equal(t, "512.00", args[3])
	assert.Equal(t, 0.81, args[4])
	assert.Equal(t, string(invoice.DecisionManualReview), args[5])
}

func TestRecordSkipsWithoutNumber(t *testing.T) {
	db := &fakeDB{}
	s := newStore(db, logging.NewNopLogger())

	x := &invoice.InvoiceExtraction{RunID: "run-10"}
	require.NoError(t, s.Record(context.Background(), x))
	assert.Empty(t, db.execSQL)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	s := newStore(db, logging.NewNopLogger())

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "processed_invoices")
}

func TestConnectEmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), "")
	require.Error(t, err)
}
