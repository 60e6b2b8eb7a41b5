package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veridoc/internal/document/models"
	"veridoc/pkg/platform/sentinel"
	"veridoc/pkg/platform/tx"
)

// Postgres persists the three tables described by the schema below. Field
// replacement runs in one transaction so readers only ever see complete sets.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn joins an ambient transaction when the context carries one.
func (s *Postgres) conn(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// Schema creates the tables when missing. Called at startup and by
// integration tests; production migrations may manage the same DDL instead.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id             UUID PRIMARY KEY,
	case_id        TEXT NOT NULL,
	document_type  TEXT NOT NULL,
	raw_text       TEXT NOT NULL DEFAULT '',
	ocr_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	content_hash   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_case ON documents (case_id);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents (content_hash);

CREATE TABLE IF NOT EXISTS extracted_fields (
	document_id      UUID NOT NULL REFERENCES documents (id),
	field_name       TEXT NOT NULL,
	raw_value        TEXT NOT NULL DEFAULT '',
	normalized_value TEXT NOT NULL DEFAULT '',
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	source           TEXT NOT NULL DEFAULT '',
	comparable       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extracted_fields_doc ON extracted_fields (document_id);

CREATE TABLE IF NOT EXISTS validation_results (
	id               UUID PRIMARY KEY,
	document_id      UUID NOT NULL REFERENCES documents (id),
	document_type    TEXT NOT NULL,
	status           TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	extracted_data   JSONB NOT NULL DEFAULT '{}',
	warnings         JSONB NOT NULL DEFAULT '[]',
	errors           JSONB NOT NULL DEFAULT '[]',
	cross_validation JSONB NOT NULL DEFAULT '{}',
	fraud_detection  JSONB NOT NULL DEFAULT '{}',
	content_hash     TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validation_results_doc ON validation_results (document_id, created_at);
`

// EnsureSchema applies the schema DDL.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO documents (id, case_id, document_type, raw_text, ocr_confidence, content_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.CaseID, string(doc.Type), doc.RawText, doc.OCRConfidence, doc.ContentHash, string(doc.Status), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *Postgres) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, case_id, document_type, raw_text, ocr_confidence, content_hash, status, created_at, updated_at
		FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (s *Postgres) ListByCase(ctx context.Context, caseID string) ([]*models.Document, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, case_id, document_type, raw_text, ocr_confidence, content_hash, status, created_at, updated_at
		FROM documents WHERE case_id = $1 ORDER BY created_at, id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list documents by case: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents by case: %w", err)
	}
	return docs, nil
}

func (s *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, now time.Time) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), now,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) ReplaceFields(ctx context.Context, documentID uuid.UUID, fields []models.ExtractedField) error {
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM extracted_fields WHERE document_id = $1`, documentID); err != nil {
			return err
		}
		for _, f := range fields {
			_, err := s.conn(ctx).ExecContext(ctx, `
				INSERT INTO extracted_fields (document_id, field_name, raw_value, normalized_value, confidence, source, comparable, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				documentID, f.Name, f.RawValue, f.NormalizedValue, f.Confidence, f.Source, f.Comparable, f.CreatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace fields: %w", err)
	}
	return nil
}

func (s *Postgres) FieldsByDocument(ctx context.Context, documentID uuid.UUID) ([]models.ExtractedField, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT document_id, field_name, raw_value, normalized_value, confidence, source, comparable, created_at
		FROM extracted_fields WHERE document_id = $1 ORDER BY field_name`, documentID)
	if err != nil {
		return nil, fmt.Errorf("fields by document: %w", err)
	}
	defer rows.Close()

	var fields []models.ExtractedField
	for rows.Next() {
		var f models.ExtractedField
		if err := rows.Scan(&f.DocumentID, &f.Name, &f.RawValue, &f.NormalizedValue, &f.Confidence, &f.Source, &f.Comparable, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("fields by document: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fields by document: %w", err)
	}
	return fields, nil
}

func (s *Postgres) SaveResult(ctx context.Context, result *models.ValidationResult) error {
	if result == nil {
		return fmt.Errorf("validation result is required")
	}
	extracted, err := json.Marshal(result.ExtractedData)
	if err != nil {
		return fmt.Errorf("save validation result: %w", err)
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("save validation result: %w", err)
	}
	errs, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("save validation result: %w", err)
	}
	crossval, err := json.Marshal(result.CrossValidation)
	if err != nil {
		return fmt.Errorf("save validation result: %w", err)
	}
	fraudDet, err := json.Marshal(result.FraudDetection)
	if err != nil {
		return fmt.Errorf("save validation result: %w", err)
	}

	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO validation_results
			(id, document_id, document_type, status, confidence, extracted_data, warnings, errors, cross_validation, fraud_detection, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		result.ID, result.DocumentID, string(result.DocumentType), string(result.Status), result.Confidence,
		extracted, warnings, errs, crossval, fraudDet, result.ContentHash, result.CreatedAt, result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save validation result: %w", err)
	}
	return nil
}

func (s *Postgres) GetResult(ctx context.Context, id uuid.UUID) (*models.ValidationResult, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, document_id, document_type, status, confidence, extracted_data, warnings, errors, cross_validation, fraud_detection, content_hash, created_at, updated_at
		FROM validation_results WHERE id = $1`, id)
	return scanResult(row)
}

func (s *Postgres) LatestResult(ctx context.Context, documentID uuid.UUID) (*models.ValidationResult, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, document_id, document_type, status, confidence, extracted_data, warnings, errors, cross_validation, fraud_detection, content_hash, created_at, updated_at
		FROM validation_results WHERE document_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, documentID)
	return scanResult(row)
}

func (s *Postgres) UpdateResultStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, now time.Time) (*models.ValidationResult, error) {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE validation_results SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), now,
	)
	if err != nil {
		return nil, fmt.Errorf("update validation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update validation status: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("validation result %s: %w", id, sentinel.ErrNotFound)
	}
	return s.GetResult(ctx, id)
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var docType, status string
	err := row.Scan(&doc.ID, &doc.CaseID, &docType, &doc.RawText, &doc.OCRConfidence, &doc.ContentHash, &status, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Type = models.DocumentType(docType)
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}

func scanResult(row rowScanner) (*models.ValidationResult, error) {
	var result models.ValidationResult
	var docType, status string
	var extracted, warnings, errs, crossval, fraudDet []byte
	err := row.Scan(&result.ID, &result.DocumentID, &docType, &status, &result.Confidence,
		&extracted, &warnings, &errs, &crossval, &fraudDet, &result.ContentHash, &result.CreatedAt, &result.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("validation result: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan validation result: %w", err)
	}
	result.DocumentType = models.DocumentType(docType)
	result.Status = models.DocumentStatus(status)
	if err := json.Unmarshal(extracted, &result.ExtractedData); err != nil {
		return nil, fmt.Errorf("scan validation result: %w", err)
	}
	if err := json.Unmarshal(warnings, &result.Warnings); err != nil {
		return nil, fmt.Errorf("scan validation result: %w", err)
	}
	if err := json.Unmarshal(errs, &result.Errors); err != nil {
		return nil, fmt.Errorf("scan validation result: %w", err)
	}
	if err := json.Unmarshal(crossval, &result.CrossValidation); err != nil {
		return nil, fmt.Errorf("scan validation result: %w", err)
	}
	if err := json.Unmarshal(fraudDet, &result.FraudDetection); err != nil {
		return nil, fmt.Errorf("scan validation result: %w", err)
	}
	return &result, nil
}
