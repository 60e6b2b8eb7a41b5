package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentType identifies which extraction table and comparison weights apply.
type DocumentType string

const (
	DocTypeIDCard       DocumentType = "id_card"
	DocTypeTaxID        DocumentType = "tax_id"
	DocTypeAddressProof DocumentType = "address_proof"
	DocTypeSchoolRecord DocumentType = "school_record"
	DocTypeBirthRecord  DocumentType = "birth_record"
	DocTypeOther        DocumentType = "other"
)

// ParseDocumentType validates a document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(s); t {
	case DocTypeIDCard, DocTypeTaxID, DocTypeAddressProof, DocTypeSchoolRecord, DocTypeBirthRecord, DocTypeOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown document type: %q", s)
}

// DocumentStatus is the engine's verdict about a document.
type DocumentStatus string

const (
	StatusPending     DocumentStatus = "pending"
	StatusValid       DocumentStatus = "valid"
	StatusInvalid     DocumentStatus = "invalid"
	StatusNeedsReview DocumentStatus = "needs_review"
)

// CanTransitionTo reports whether a status change is allowed.
//
// pending moves to any verdict through a validation run. valid and invalid
// are terminal. needs_review leaves only through an explicit manual review.
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	switch s {
	case StatusPending:
		return target == StatusValid || target == StatusInvalid || target == StatusNeedsReview
	case StatusNeedsReview:
		return target == StatusValid || target == StatusInvalid
	default:
		return false
	}
}

// IsTerminal reports whether the status can only change via manual override.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusValid || s == StatusInvalid
}

// Document is one submitted file belonging to a case.
//
// Invariants:
//   - ID is unique; CaseID groups sibling documents of one application
//   - ContentHash is a stable digest of the source bytes
//   - OCRConfidence is in [0,100]
//   - Only Status and UpdatedAt mutate after creation
type Document struct {
	ID            uuid.UUID      `json:"id"`
	CaseID        string         `json:"case_id"`
	Type          DocumentType   `json:"document_type"`
	RawText       string         `json:"raw_text"`
	OCRConfidence float64        `json:"ocr_confidence"`
	ContentHash   string         `json:"content_hash"`
	Status        DocumentStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewDocument constructs a pending document for a case.
func NewDocument(caseID string, docType DocumentType, rawText string, ocrConfidence float64, contentHash string, now time.Time) (*Document, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case id is required")
	}
	if ocrConfidence < 0 || ocrConfidence > 100 {
		return nil, fmt.Errorf("ocr confidence out of range: %v", ocrConfidence)
	}
	return &Document{
		ID:            uuid.New(),
		CaseID:        caseID,
		Type:          docType,
		RawText:       rawText,
		OCRConfidence: ocrConfidence,
		ContentHash:   contentHash,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
