// Package postgres reads stored payment records from PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/identity"
	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/models"
)

const findPaymentsQuery = `
	SELECT entry_id, payment_method, status, payload
	FROM payment_info
	WHERE identifier = $1
	ORDER BY position ASC`

// Schema creates the payment_info table when it does not exist. The table is
// owned by the payment hub; this is used by tests and local environments.
const Schema = `
	CREATE TABLE IF NOT EXISTS payment_info (
		identifier     TEXT    NOT NULL,
		entry_id       TEXT    NOT NULL,
		payment_method TEXT    NOT NULL DEFAULT '',
		status         TEXT    NOT NULL DEFAULT '',
		payload        JSONB   NOT NULL,
		position       INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (identifier, entry_id)
	)`

// PaymentInfoStore implements identity.PaymentInfoPort on database/sql.
type PaymentInfoStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to PostgreSQL using dsn and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpenConns int, log zerolog.Logger) (*PaymentInfoStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: dsn is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return NewPaymentInfoStore(db, log)
}

// NewPaymentInfoStore wraps an existing handle.
func NewPaymentInfoStore(db *sql.DB, log zerolog.Logger) (*PaymentInfoStore, error) {
	if db == nil {
		return nil, errors.New("postgres: db handle is required")
	}
	return &PaymentInfoStore{
		db:     db,
		logger: logger.Component(log, "payment_info_store"),
	}, nil
}

// FindByIdentifier loads every payment stored for identifier in position
// order. Unknown identifiers yield identity.ErrPaymentInfoNotFound.
func (s *PaymentInfoStore) FindByIdentifier(ctx context.Context, identifier string) (*models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, findPaymentsQuery, identifier)
	if err != nil {
		return nil, fmt.Errorf("postgres: query payment info: %w", err)
	}
	defer rows.Close()

	record, err := scanRecord(identifier, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("identifier", identifier).
		Int("payments", len(record.Payments)).
		Msg("payment info loaded")
	return record, nil
}

// Ping reports whether the database is reachable.
func (s *PaymentInfoStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *PaymentInfoStore) Close() error {
	return s.db.Close()
}

// rowScanner is the subset of *sql.Rows used to decode results.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecord(identifier string, rows rowScanner) (*models.PaymentRecord, error) {
	record := &models.PaymentRecord{Identifier: identifier}
	for rows.Next() {
		var (
			entry   models.PaymentEntry
			method  sql.NullString
			status  sql.NullString
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &method, &status, &payload); err != nil {
			return nil, fmt.Errorf("postgres: scan payment info: %w", err)
		}
		entry.PaymentMethod = method.String
		entry.Status = status.String
		entry.Payload = json.RawMessage(append([]byte(nil), payload...))
		record.Payments = append(record.Payments, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate payment info: %w", err)
	}
	if len(record.Payments) == 0 {
		return nil, fmt.Errorf("%w: %s", identity.ErrPaymentInfoNotFound, identifier)
	}
	return record, nil
}
