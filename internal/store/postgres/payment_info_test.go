package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/identity"
)

type fakeRows struct {
	rows    [][]any
	idx     int
	scanErr error
	iterErr error
}

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*sql.NullString) = row[1].(sql.NullString)
	*dest[2].(*sql.NullString) = row[2].(sql.NullString)
	*dest[3].(*[]byte) = row[3].([]byte)
	return nil
}

func (f *fakeRows) Err() error { return f.iterErr }

func TestScanRecordDecodesRowsInOrder(t *testing.T) {
	rows := &fakeRows{rows: [][]any{
		{"p-1", sql.NullString{String: "PIX_AUTOMATICO", Valid: true}, sql.NullString{String: "PAGA", Valid: true}, []byte(`{"devedor":{"nome":"João"}}`)},
		{"p-2", sql.NullString{}, sql.NullString{}, []byte(`{}`)},
	}}

	record, err := scanRecord("TX-1", rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Identifier != "TX-1" || len(record.Payments) != 2 {
		t.Fatalf("unexpected record %+v", record)
	}
	first := record.Payments[0]
	if first.ID != "p-1" || first.PaymentMethod != "PIX_AUTOMATICO" || first.Status != "PAGA" {
		t.Fatalf("unexpected first entry %+v", first)
	}
	if string(first.Payload) != `{"devedor":{"nome":"João"}}` {
		t.Fatalf("unexpected payload %s", first.Payload)
	}
	if record.Payments[1].PaymentMethod != "" {
		t.Fatalf("expected NULL method to decode as empty")
	}
}

func TestScanRecordNoRowsIsNotFound(t *testing.T) {
	_, err := scanRecord("TX-404", &fakeRows{})
	if !errors.Is(err, identity.ErrPaymentInfoNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestScanRecordPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := scanRecord("TX", &fakeRows{rows: [][]any{{}}, scanErr: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected scan error, got %v", err)
	}
	if _, err := scanRecord("TX", &fakeRows{iterErr: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected iteration error, got %v", err)
	}
}

func TestConstructorsValidateInput(t *testing.T) {
	if _, err := Open(context.Background(), " ", 0, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := NewPaymentInfoStore(nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

// TestPaymentInfoStoreIntegration runs against a real database when
// PIXAUTO_TEST_POSTGRES_DSN is set.
func TestPaymentInfoStoreIntegration(t *testing.T) {
	dsn := os.Getenv("PIXAUTO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PIXAUTO_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, dsn, 2, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if _, err := store.db.ExecContext(ctx, Schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `DELETE FROM payment_info WHERE identifier = 'IT-1'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := store.db.ExecContext(ctx,
		`INSERT INTO payment_info (identifier, entry_id, payment_method, status, payload, position)
		 VALUES ('IT-1', 'b', 'PIX', 'PAGA', '{"n":2}', 2), ('IT-1', 'a', 'PIX', 'PAGA', '{"n":1}', 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	record, err := store.FindByIdentifier(ctx, "IT-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(record.Payments) != 2 || record.Payments[0].ID != "a" {
		t.Fatalf("unexpected record %+v", record)
	}
	if _, err := store.FindByIdentifier(ctx, "IT-missing"); !errors.Is(err, identity.ErrPaymentInfoNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
