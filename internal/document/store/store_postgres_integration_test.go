//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veridoc/internal/document/models"
	"veridoc/pkg/platform/sentinel"
	"veridoc/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *Postgres
}

func TestPostgresSuite(t *testing.T) {
	pg := containers.NewPostgresContainer(t)

	s := new(PostgresSuite)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = NewPostgres(pg.DB)
	if err := s.store.EnsureSchema(s.ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	suite.Run(t, s)
}

func (s *PostgresSuite) newDoc(caseID string, createdAt time.Time) *models.Document {
	doc, err := models.NewDocument(caseID, models.DocTypeTaxID, "cpf: 123.456.789-00", 90, "hash-"+uuid.NewString(), createdAt)
	s.Require().NoError(err)
	return doc
}

func (s *PostgresSuite) TestDocumentRoundtrip() {
	doc := s.newDoc("case-pg-1", s.now)
	s.Require().NoError(s.store.SaveDocument(s.ctx, doc))

	got, err := s.store.GetDocument(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.ID, got.ID)
	s.Equal(doc.CaseID, got.CaseID)
	s.Equal(models.StatusPending, got.Status)
	s.True(got.CreatedAt.Equal(doc.CreatedAt))

	_, err = s.store.GetDocument(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestListByCaseOrdering() {
	caseID := "case-pg-order"
	older := s.newDoc(caseID, s.now.Add(-time.Hour))
	newer := s.newDoc(caseID, s.now)
	s.Require().NoError(s.store.SaveDocument(s.ctx, newer))
	s.Require().NoError(s.store.SaveDocument(s.ctx, older))

	docs, err := s.store.ListByCase(s.ctx, caseID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal(older.ID, docs[0].ID)
	s.Equal(newer.ID, docs[1].ID)
}

func (s *PostgresSuite) TestUpdateStatus() {
	doc := s.newDoc("case-pg-status", s.now)
	s.Require().NoError(s.store.SaveDocument(s.ctx, doc))

	later := s.now.Add(time.Minute)
	s.Require().NoError(s.store.UpdateStatus(s.ctx, doc.ID, models.StatusValid, later))

	got, err := s.store.GetDocument(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusValid, got.Status)

	s.ErrorIs(s.store.UpdateStatus(s.ctx, uuid.New(), models.StatusValid, later), sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestReplaceFields() {
	doc := s.newDoc("case-pg-fields", s.now)
	s.Require().NoError(s.store.SaveDocument(s.ctx, doc))

	fields := []models.ExtractedField{
		{DocumentID: doc.ID, Name: models.FieldName, RawValue: "Joao da Silva", NormalizedValue: "joao silva", Confidence: 90, Source: "ocr", Comparable: true, CreatedAt: s.now},
		{DocumentID: doc.ID, Name: models.FieldTaxID, RawValue: "123.456.789-00", NormalizedValue: "12345678900", Confidence: 90, Source: "ocr", Comparable: true, CreatedAt: s.now},
	}
	s.Require().NoError(s.store.ReplaceFields(s.ctx, doc.ID, fields))

	replacement := []models.ExtractedField{
		{DocumentID: doc.ID, Name: models.FieldName, RawValue: "Joao Silva", NormalizedValue: "joao silva", Confidence: 95, Source: "ocr", Comparable: true, CreatedAt: s.now},
	}
	s.Require().NoError(s.store.ReplaceFields(s.ctx, doc.ID, replacement))

	got, err := s.store.FieldsByDocument(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("joao silva", got[0].NormalizedValue)
	s.Equal(95.0, got[0].Confidence)
}

func (s *PostgresSuite) TestResultHistory() {
	doc := s.newDoc("case-pg-results", s.now)
	s.Require().NoError(s.store.SaveDocument(s.ctx, doc))

	first := &models.ValidationResult{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		DocumentType:  doc.Type,
		Status:        models.StatusNeedsReview,
		Confidence:    70,
		ExtractedData: map[string]string{models.FieldName: "joao silva"},
		Warnings:      []string{},
		Errors:        []string{},
		CrossValidation: models.CrossValidation{
			Status:          models.StatusNeedsReview,
			Score:           0.8,
			Matches:         []models.FieldMatch{{Field: models.FieldName, Matched: true, Source: uuid.New(), Similarity: 1}},
			Inconsistencies: []models.Inconsistency{},
		},
		FraudDetection: models.FraudDetection{Details: []string{}},
		ContentHash:    doc.ContentHash,
		CreatedAt:      s.now,
		UpdatedAt:      s.now,
	}
	s.Require().NoError(s.store.SaveResult(s.ctx, first))

	second := &models.ValidationResult{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		DocumentType:  doc.Type,
		Status:        models.StatusValid,
		Confidence:    100,
		ExtractedData: map[string]string{},
		Warnings:      []string{},
		Errors:        []string{},
		ContentHash:   doc.ContentHash,
		CreatedAt:     s.now.Add(time.Minute),
		UpdatedAt:     s.now.Add(time.Minute),
	}
	s.Require().NoError(s.store.SaveResult(s.ctx, second))

	got, err := s.store.GetResult(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusNeedsReview, got.Status)
	s.Equal("joao silva", got.ExtractedData[models.FieldName])
	s.Require().Len(got.CrossValidation.Matches, 1)
	s.InDelta(0.8, got.CrossValidation.Score, 1e-9)

	latest, err := s.store.LatestResult(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)

	updated, err := s.store.UpdateResultStatus(s.ctx, first.ID, models.StatusValid, s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(models.StatusValid, updated.Status)

	_, err = s.store.GetResult(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
