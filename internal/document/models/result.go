package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades a cross-validation inconsistency by the weight of the
// disagreeing field.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FieldMatch records one field comparison against a sibling document.
type FieldMatch struct {
	Field      string    `json:"field"`
	Matched    bool      `json:"matched"`
	Source     uuid.UUID `json:"source"`
	Similarity float64   `json:"similarity"`
}

// Inconsistency records a heavily weighted field that disagreed with one or
// more sibling documents. Repeated disagreements on the same field merge into
// a single entry listing every offending source.
type Inconsistency struct {
	Field    string      `json:"field"`
	Severity Severity    `json:"severity"`
	Sources  []uuid.UUID `json:"sources"`
}

// CrossValidation is the multi-document consistency outcome for one run.
type CrossValidation struct {
	Status          DocumentStatus  `json:"status"`
	Score           float64         `json:"score"`
	Matches         []FieldMatch    `json:"matches"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
}

// FraudType labels the heuristic that raised a fraud signal.
type FraudType string

const (
	FraudDuplicateSubmission FraudType = "duplicate_submission"
	FraudInconsistentData    FraudType = "inconsistent_data"
)

// FraudDetection is the combined heuristic outcome for one run. Confidence is
// the capped sum of all triggered rules, in [0,100].
type FraudDetection struct {
	FraudDetected bool      `json:"fraud_detected"`
	Confidence    float64   `json:"confidence"`
	Type          FraudType `json:"type,omitempty"`
	Details       []string  `json:"details,omitempty"`
}

// ValidationResult is the auditable record of one validation run. Rows are
// append-only: a rerun inserts a new result, it never rewrites history.
type ValidationResult struct {
	ID              uuid.UUID         `json:"id"`
	DocumentID      uuid.UUID         `json:"document_id"`
	DocumentType    DocumentType      `json:"document_type"`
	Status          DocumentStatus    `json:"status"`
	Confidence      float64           `json:"confidence"`
	ExtractedData   map[string]string `json:"extracted_data"`
	Warnings        []string          `json:"warnings"`
	Errors          []string          `json:"errors"`
	CrossValidation CrossValidation   `json:"cross_validation"`
	FraudDetection  FraudDetection    `json:"fraud_detection"`
	ContentHash     string            `json:"content_hash"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ApplyManualReview records a reviewer decision on a needs_review result.
// The caller must have validated the transition via DocumentStatus.CanTransitionTo.
func (r *ValidationResult) ApplyManualReview(target DocumentStatus, now time.Time) {
	r.Status = target
	r.UpdatedAt = now
}
