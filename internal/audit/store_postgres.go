package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"veridoc/internal/document/models"
)

// PostgresStore persists review events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS review_audit (
	id            UUID PRIMARY KEY,
	validation_id UUID NOT NULL,
	document_id   UUID NOT NULL,
	reviewer_id   TEXT NOT NULL,
	from_status   TEXT NOT NULL,
	to_status     TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	at            TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_audit_doc ON review_audit (document_id, at);
`

// EnsureSchema applies the audit table DDL.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_audit (id, validation_id, document_id, reviewer_id, from_status, to_status, notes, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.ValidationID, event.DocumentID, event.ReviewerID,
		string(event.FromStatus), string(event.ToStatus), event.Notes, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, validation_id, document_id, reviewer_id, from_status, to_status, notes, at
		FROM review_audit WHERE document_id = $1 ORDER BY at`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var from, to string
		if err := rows.Scan(&e.ID, &e.ValidationID, &e.DocumentID, &e.ReviewerID, &from, &to, &e.Notes, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("list audit events: %w", err)
		}
		e.FromStatus = models.DocumentStatus(from)
		e.ToStatus = models.DocumentStatus(to)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
