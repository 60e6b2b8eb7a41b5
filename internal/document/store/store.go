// Package store persists documents, their flattened extracted fields, and the
// append-only validation history. Implementations must guarantee that a
// reader never observes a half-written field set for a document.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"veridoc/internal/document/models"
)

// DocumentStore persists documents. UpdateStatus is the only mutation after
// creation and must be atomic per document.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByCase(ctx context.Context, caseID string) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, now time.Time) error
}

// FieldStore persists extracted field rows. ReplaceFields swaps the whole set
// for a document in one atomic step, so concurrent readers see either the old
// or the new set, never a mix.
type FieldStore interface {
	ReplaceFields(ctx context.Context, documentID uuid.UUID, fields []models.ExtractedField) error
	FieldsByDocument(ctx context.Context, documentID uuid.UUID) ([]models.ExtractedField, error)
}

// ResultStore persists validation runs. SaveResult is append-only: reruns
// insert new rows and never overwrite another run's row. UpdateResultStatus
// exists solely for the manual review transition.
type ResultStore interface {
	SaveResult(ctx context.Context, result *models.ValidationResult) error
	GetResult(ctx context.Context, id uuid.UUID) (*models.ValidationResult, error)
	LatestResult(ctx context.Context, documentID uuid.UUID) (*models.ValidationResult, error)
	UpdateResultStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, now time.Time) (*models.ValidationResult, error)
}

// Store is the full persistence contract of the engine.
type Store interface {
	DocumentStore
	FieldStore
	ResultStore

	// Ping reports backend health for readiness probes.
	Ping(ctx context.Context) error
}
