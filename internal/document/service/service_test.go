package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veridoc/internal/audit"
	"veridoc/internal/document/crossval"
	"veridoc/internal/document/fraud"
	"veridoc/internal/document/models"
	"veridoc/internal/document/store"
	"veridoc/internal/recognition"
	"veridoc/pkg/platform/sentinel"
)

const taxIDText = `receita federal
cadastro de pessoas fisicas
cpf: 123.456.789-00
nome: Joao da Silva
nascimento: 01/05/1990`

const idCardText = `carteira de identidade
registro geral: 12.345.678-9
nome: João da Silva
data de nascimento: 01/05/1990
cpf: 123.456.789-00
data de expedição: 10/05/2015`

const mismatchedIDCardText = `carteira de identidade
registro geral: 98.765.432-1
nome: Pedro Almeida
data de nascimento: 01/05/1990
cpf: 123.456.789-00
data de expedição: 10/05/2015`

// echoRecognizer treats the uploaded bytes as the recognized text, so each
// test controls extraction input and content hashes through the payload.
type echoRecognizer struct {
	confidence float64
}

func (r echoRecognizer) Recognize(_ context.Context, data []byte) (recognition.Result, error) {
	return recognition.Result{Text: string(data), Confidence: r.confidence}, nil
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *store.InMemory
	index   *fraud.MemoryIndex
	auditCh chan audit.Event
	svc     *DocumentService
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = store.NewInMemory()
	s.index = fraud.NewMemoryIndex()
	s.auditCh = make(chan audit.Event, 4)
	s.svc = s.newService(echoRecognizer{confidence: 90})
}

func (s *ServiceSuite) newService(rec recognition.Recognizer) *DocumentService {
	clock := func() time.Time { return s.now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := New(
		s.store,
		rec,
		crossval.NewEngine(nil),
		fraud.NewDetector(s.index, fraud.WithClock(clock)),
		s.index,
		WithClock(clock),
		WithLogger(logger),
		WithAuditSink(s.auditCh),
		WithRecognitionTimeout(time.Second),
	)
	s.Require().NoError(svc.Start(s.ctx))
	return svc
}

func (s *ServiceSuite) process(text string, docType models.DocumentType, caseID string) *models.ValidationResult {
	result, err := s.svc.ProcessDocument(s.ctx, []byte(text), docType, caseID, DefaultOptions())
	s.Require().NoError(err)
	return result
}

func (s *ServiceSuite) TestProcessDocument_FirstDocumentStaysPending() {
	result := s.process(taxIDText, models.DocTypeTaxID, "case-1")

	s.Equal(models.StatusPending, result.Status)
	s.Equal(models.StatusPending, result.CrossValidation.Status)
	s.Equal(90.0, result.Confidence)
	s.Equal("joao silva", result.ExtractedData[models.FieldName])
	s.Equal("12345678900", result.ExtractedData[models.FieldTaxID])
	s.Equal("1990-05-01", result.ExtractedData[models.FieldBirthDate])
	s.Empty(result.Warnings)
	s.Empty(result.Errors)
	s.False(result.FraudDetection.FraudDetected)

	doc, err := s.svc.GetDocument(s.ctx, result.DocumentID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, doc.Status)

	fields, err := s.store.FieldsByDocument(s.ctx, result.DocumentID)
	s.Require().NoError(err)
	s.Len(fields, 3)
}

func (s *ServiceSuite) TestProcessDocument_ConsistentSiblingIsValid() {
	s.process(taxIDText, models.DocTypeTaxID, "case-1")
	result := s.process(idCardText, models.DocTypeIDCard, "case-1")

	s.Equal(models.StatusValid, result.Status)
	s.InDelta(1.0, result.CrossValidation.Score, 1e-9)
	s.Equal(100.0, result.Confidence)
	s.Empty(result.CrossValidation.Inconsistencies)

	doc, err := s.svc.GetDocument(s.ctx, result.DocumentID)
	s.Require().NoError(err)
	s.Equal(models.StatusValid, doc.Status)
}

func (s *ServiceSuite) TestProcessDocument_NameMismatchForcesReview() {
	s.process(taxIDText, models.DocTypeTaxID, "case-1")
	result := s.process(mismatchedIDCardText, models.DocTypeIDCard, "case-1")

	s.Equal(models.StatusNeedsReview, result.Status)
	s.Require().Len(result.CrossValidation.Inconsistencies, 1)
	s.Equal(models.FieldName, result.CrossValidation.Inconsistencies[0].Field)
	s.Equal(models.SeverityHigh, result.CrossValidation.Inconsistencies[0].Severity)

	doc, err := s.svc.GetDocument(s.ctx, result.DocumentID)
	s.Require().NoError(err)
	s.Equal(models.StatusNeedsReview, doc.Status)
}

func (s *ServiceSuite) TestProcessDocument_RecognitionFailure() {
	svc := s.newService(recognition.Static{Err: errors.New("engine offline")})

	result, err := svc.ProcessDocument(s.ctx, []byte("payload"), models.DocTypeIDCard, "case-1", DefaultOptions())
	s.Require().NoError(err)

	s.Equal(models.StatusNeedsReview, result.Status)
	s.Zero(result.Confidence)
	s.Require().NotEmpty(result.Errors)
	s.Contains(result.Errors[0], "recognition")

	doc, err := svc.GetDocument(s.ctx, result.DocumentID)
	s.Require().NoError(err)
	s.Equal(models.StatusNeedsReview, doc.Status)
}

func (s *ServiceSuite) TestProcessDocument_DuplicateAcrossCases() {
	s.process(taxIDText, models.DocTypeTaxID, "case-1")
	result := s.process(taxIDText, models.DocTypeTaxID, "case-2")

	s.True(result.FraudDetection.FraudDetected)
	s.Equal(95.0, result.FraudDetection.Confidence)
	s.Equal(models.FraudDuplicateSubmission, result.FraudDetection.Type)
	s.Equal(models.StatusNeedsReview, result.Status)
	s.Require().NotEmpty(result.Errors)
	s.Contains(result.Errors[0], "fraud signal")
}

func (s *ServiceSuite) TestProcessDocument_FailedRecognitionStillIndexesContent() {
	broken := s.newService(recognition.Static{Err: errors.New("engine offline")})
	failed, err := broken.ProcessDocument(s.ctx, []byte(taxIDText), models.DocTypeTaxID, "case-1", DefaultOptions())
	s.Require().NoError(err)
	s.Require().Equal(models.StatusNeedsReview, failed.Status)

	result := s.process(taxIDText, models.DocTypeTaxID, "case-2")

	s.True(result.FraudDetection.FraudDetected)
	s.Equal(95.0, result.FraudDetection.Confidence)
	s.Equal(models.FraudDuplicateSubmission, result.FraudDetection.Type)
	s.Equal(models.StatusNeedsReview, result.Status)
}

func (s *ServiceSuite) TestProcessDocument_SameCaseResubmission() {
	s.process(taxIDText, models.DocTypeTaxID, "case-1")
	result := s.process(taxIDText, models.DocTypeTaxID, "case-1")

	s.False(result.FraudDetection.FraudDetected)
	s.Zero(result.FraudDetection.Confidence)
	s.Equal(models.StatusValid, result.Status)
}

func (s *ServiceSuite) TestProcessDocument_RequiredFieldWarning() {
	opts := DefaultOptions()
	opts.RequiredFields = []string{models.FieldEnrollmentYear}

	result, err := s.svc.ProcessDocument(s.ctx, []byte(taxIDText), models.DocTypeTaxID, "case-1", opts)
	s.Require().NoError(err)
	s.Require().NotEmpty(result.Warnings)
	s.Contains(result.Warnings[0], models.FieldEnrollmentYear)
}

func (s *ServiceSuite) TestProcessDocument_FraudDetectionDisabled() {
	s.process(taxIDText, models.DocTypeTaxID, "case-1")

	opts := DefaultOptions()
	opts.DetectFraud = false
	result, err := s.svc.ProcessDocument(s.ctx, []byte(taxIDText), models.DocTypeTaxID, "case-2", opts)
	s.Require().NoError(err)

	s.False(result.FraudDetection.FraudDetected)
	s.Zero(result.FraudDetection.Confidence)
}

func (s *ServiceSuite) TestProcessDocument_NotStarted() {
	svc := New(s.store, echoRecognizer{confidence: 90}, crossval.NewEngine(nil), fraud.NewDetector(s.index), s.index)

	_, err := svc.ProcessDocument(s.ctx, []byte(taxIDText), models.DocTypeTaxID, "case-1", DefaultOptions())
	s.ErrorIs(err, sentinel.ErrNotInitialized)

	_, err = svc.GetDocument(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotInitialized)
}

func (s *ServiceSuite) TestListDocumentsByCase() {
	s.process(taxIDText, models.DocTypeTaxID, "case-1")
	s.process(idCardText, models.DocTypeIDCard, "case-1")
	s.process(idCardText, models.DocTypeIDCard, "case-2")

	docs, err := s.svc.ListDocumentsByCase(s.ctx, "case-1")
	s.Require().NoError(err)
	s.Len(docs, 2)
}

func (s *ServiceSuite) TestUpdateValidationStatus() {
	s.process(taxIDText, models.DocTypeTaxID, "case-1")
	reviewed := s.process(mismatchedIDCardText, models.DocTypeIDCard, "case-1")
	s.Require().Equal(models.StatusNeedsReview, reviewed.Status)

	s.Run("review resolves to valid", func() {
		updated, err := s.svc.UpdateValidationStatus(s.ctx, reviewed.ID, models.StatusValid, "reviewer-7", "confirmed by phone")
		s.Require().NoError(err)
		s.Equal(models.StatusValid, updated.Status)

		doc, err := s.svc.GetDocument(s.ctx, reviewed.DocumentID)
		s.Require().NoError(err)
		s.Equal(models.StatusValid, doc.Status)

		select {
		case event := <-s.auditCh:
			s.Equal(reviewed.ID, event.ValidationID)
			s.Equal(reviewed.DocumentID, event.DocumentID)
			s.Equal("reviewer-7", event.ReviewerID)
			s.Equal(models.StatusNeedsReview, event.FromStatus)
			s.Equal(models.StatusValid, event.ToStatus)
		default:
			s.Fail("expected an audit event")
		}
	})

	s.Run("terminal statuses stay terminal", func() {
		_, err := s.svc.UpdateValidationStatus(s.ctx, reviewed.ID, models.StatusInvalid, "reviewer-7", "")
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("needs_review is not a review target", func() {
		pending := s.process(taxIDText, models.DocTypeTaxID, "case-9")
		_, err := s.svc.UpdateValidationStatus(s.ctx, pending.ID, models.StatusNeedsReview, "reviewer-7", "")
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("pending results cannot be reviewed", func() {
		pending := s.process(idCardText, models.DocTypeIDCard, "case-10")
		s.Require().Equal(models.StatusPending, pending.Status)

		_, err := s.svc.UpdateValidationStatus(s.ctx, pending.ID, models.StatusValid, "reviewer-7", "")
		s.ErrorIs(err, sentinel.ErrInvalidState)

		doc, err := s.svc.GetDocument(s.ctx, pending.DocumentID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, doc.Status)
	})

	s.Run("reviewer is required", func() {
		_, err := s.svc.UpdateValidationStatus(s.ctx, reviewed.ID, models.StatusValid, "", "")
		s.Error(err)
	})

	s.Run("unknown validation", func() {
		_, err := s.svc.UpdateValidationStatus(s.ctx, uuid.New(), models.StatusValid, "reviewer-7", "")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
