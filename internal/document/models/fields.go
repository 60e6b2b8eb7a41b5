package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Canonical field names shared by the extractor, normalizer, and comparison
// weight tables. Nested values from the extractor are flattened into dotted
// keys before they reach the store, so every field is one row.
const (
	FieldName           = "name"
	FieldMotherName     = "mother_name"
	FieldFatherName     = "father_name"
	FieldSchoolName     = "school_name"
	FieldBirthDate      = "birth_date"
	FieldIssueDate      = "issue_date"
	FieldTaxID          = "tax_id"
	FieldIDNumber       = "id_number"
	FieldAddress        = "address"
	FieldEnrollmentYear = "enrollment_year"
)

// FieldKind drives normalization and similarity behavior per field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindName
	KindDate
	KindNumeric
	KindAddress
)

var fieldKinds = map[string]FieldKind{
	FieldName:       KindName,
	FieldMotherName: KindName,
	FieldFatherName: KindName,
	FieldSchoolName: KindName,
	FieldBirthDate:  KindDate,
	FieldIssueDate:  KindDate,
	FieldTaxID:      KindNumeric,
	FieldIDNumber:   KindNumeric,
	FieldAddress:    KindAddress,
}

// KindOf returns the field kind for a (possibly dotted) field name.
// Unknown fields are treated as free text.
func KindOf(fieldName string) FieldKind {
	if kind, ok := fieldKinds[fieldName]; ok {
		return kind
	}
	// Flattened nested keys keep the semantics of their leaf segment.
	if i := strings.LastIndex(fieldName, "."); i >= 0 {
		if kind, ok := fieldKinds[fieldName[i+1:]]; ok {
			return kind
		}
	}
	return KindText
}

// ExtractedField is one normalized field row for a document. Rows are
// append-only; reprocessing a document replaces its row set wholesale.
type ExtractedField struct {
	DocumentID      uuid.UUID `json:"document_id"`
	Name            string    `json:"field_name"`
	RawValue        string    `json:"raw_value"`
	NormalizedValue string    `json:"normalized_value"`
	Confidence      float64   `json:"confidence"`
	Source          string    `json:"source"`
	Comparable      bool      `json:"comparable"`
	CreatedAt       time.Time `json:"created_at"`
}
