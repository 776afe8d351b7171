package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sellergate/pkg/platform/sentinel"
)

// PostgresStore persists primary records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the primary_records table.
const Schema = `
CREATE TABLE IF NOT EXISTS primary_records (
	id              UUID PRIMARY KEY,
	transaction_id  TEXT NOT NULL,
	message_id      TEXT NOT NULL,
	action          TEXT NOT NULL,
	context         JSONB NOT NULL,
	message         JSONB,
	query           TEXT NOT NULL DEFAULT '',
	billing         JSONB,
	billing_matched BOOLEAN,
	degraded        BOOLEAN NOT NULL DEFAULT FALSE,
	order_id        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_primary_records_txn_action ON primary_records (transaction_id, action, created_at DESC);
`

const recordColumns = `id, transaction_id, message_id, action, context, message, query, billing, billing_matched, degraded, order_id, created_at`

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	ctxJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshal record context: %w", err)
	}
	var billingJSON []byte
	if rec.Billing != nil {
		if billingJSON, err = json.Marshal(rec.Billing); err != nil {
			return fmt.Errorf("marshal record billing: %w", err)
		}
	}
	var matched sql.NullBool
	if rec.BillingMatched != nil {
		matched = sql.NullBool{Bool: *rec.BillingMatched, Valid: true}
	}

	query := `
		INSERT INTO primary_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.TransactionID,
		rec.MessageID,
		rec.Action,
		ctxJSON,
		nullBytes(rec.Message),
		rec.Query,
		nullBytes(billingJSON),
		matched,
		rec.Degraded,
		rec.OrderID,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save primary record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLatest(ctx context.Context, transactionID, action string) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM primary_records
		WHERE transaction_id = $1 AND action = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, transactionID, action))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest primary record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByTransaction(ctx context.Context, transactionID string, limit int) ([]*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM primary_records
		WHERE transaction_id = $1
		ORDER BY created_at DESC
	`
	args := []any{transactionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list primary records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate primary records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec         Record
		ctxJSON     []byte
		msgJSON     []byte
		billingJSON []byte
		matched     sql.NullBool
	)
	if err := row.Scan(
		&rec.ID,
		&rec.TransactionID,
		&rec.MessageID,
		&rec.Action,
		&ctxJSON,
		&msgJSON,
		&rec.Query,
		&billingJSON,
		&matched,
		&rec.Degraded,
		&rec.OrderID,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ctxJSON, &rec.Context); err != nil {
		return nil, fmt.Errorf("unmarshal record context: %w", err)
	}
	if len(msgJSON) > 0 {
		rec.Message = append(json.RawMessage{}, msgJSON...)
	}
	if len(billingJSON) > 0 {
		if err := json.Unmarshal(billingJSON, &rec.Billing); err != nil {
			return nil, fmt.Errorf("unmarshal record billing: %w", err)
		}
	}
	if matched.Valid {
		rec.BillingMatched = &matched.Bool
	}
	return &rec, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
