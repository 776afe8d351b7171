package trail

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sellergate/pkg/platform/sentinel"
	"sellergate/pkg/protocol"
)

// PostgresStore persists audit records in PostgreSQL. Pure I/O; append
// semantics are enforced by never exposing an update path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the trail_records table. Applied by migrations
// in deployment; integration tests execute it directly.
const Schema = `
CREATE TABLE IF NOT EXISTS trail_records (
	id             UUID PRIMARY KEY,
	transaction_id TEXT NOT NULL,
	message_id     TEXT NOT NULL,
	action         TEXT NOT NULL,
	direction      TEXT NOT NULL,
	status         TEXT NOT NULL,
	context        JSONB NOT NULL,
	message        JSONB,
	error          JSONB,
	degraded       BOOLEAN NOT NULL DEFAULT FALSE,
	event_time     TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trail_records_txn ON trail_records (transaction_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trail_records_msg ON trail_records (transaction_id, message_id);
`

const recordColumns = `id, transaction_id, message_id, action, direction, status, context, message, error, degraded, event_time, created_at`

func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	ctxJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshal record context: %w", err)
	}
	var errJSON []byte
	if rec.Error != nil {
		if errJSON, err = json.Marshal(rec.Error); err != nil {
			return fmt.Errorf("marshal record error: %w", err)
		}
	}

	query := `
		INSERT INTO trail_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.TransactionID,
		rec.MessageID,
		rec.Action,
		string(rec.Direction),
		string(rec.Status),
		ctxJSON,
		nullBytes(rec.Message),
		nullBytes(errJSON),
		rec.Degraded,
		rec.Timestamp,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append trail record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByMessage(ctx context.Context, transactionID, messageID string) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM trail_records
		WHERE transaction_id = $1 AND message_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, transactionID, messageID)
	if err != nil {
		return nil, fmt.Errorf("find trail records by message: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) FindLatest(ctx context.Context, transactionID string) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM trail_records
		WHERE transaction_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest trail record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByTransaction(ctx context.Context, transactionID string, limit int) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM trail_records
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
		return nil, fmt.Errorf("list trail records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		direction string
		status    string
		ctxJSON   []byte
		msgJSON   []byte
		errJSON   []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.TransactionID,
		&rec.MessageID,
		&rec.Action,
		&direction,
		&status,
		&ctxJSON,
		&msgJSON,
		&errJSON,
		&rec.Degraded,
		&rec.Timestamp,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Direction = Direction(direction)
	rec.Status = protocol.AckStatus(status)
	if err := json.Unmarshal(ctxJSON, &rec.Context); err != nil {
		return nil, fmt.Errorf("unmarshal record context: %w", err)
	}
	if len(msgJSON) > 0 {
		rec.Message = append(json.RawMessage{}, msgJSON...)
	}
	if len(errJSON) > 0 {
		rec.Error = &RecordError{}
		if err := json.Unmarshal(errJSON, rec.Error); err != nil {
			return nil, fmt.Errorf("unmarshal record error: %w", err)
		}
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trail records: %w", err)
	}
	return out, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
