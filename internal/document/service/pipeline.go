package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"veridoc/internal/document/crossval"
	"veridoc/internal/document/extractor"
	"veridoc/internal/document/fraud"
	"veridoc/internal/document/models"
	"veridoc/internal/document/normalizer"
	"veridoc/pkg/platform/sentinel"
)

const fieldSource = "ocr"

// ProcessDocument runs the full pipeline for one upload and persists the
// outcome. Recognition and heuristic failures are encoded in the returned
// result; only ErrNotInitialized and persistence failures return an error.
func (s *DocumentService) ProcessDocument(ctx context.Context, data []byte, docType models.DocumentType, caseID string, opts Options) (*models.ValidationResult, error) {
	if !s.started.Load() {
		return nil, sentinel.ErrNotInitialized
	}
	if err := s.workers.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire worker: %w", err)
	}
	defer s.workers.Release(1)

	start := s.now()
	defer func() {
		s.metrics.ObservePipelineLatency(time.Since(start))
	}()

	hash := contentHash(data)

	recognized, recErr := s.recognize(ctx, data)

	doc, err := models.NewDocument(caseID, docType, recognized.Text, recognized.Confidence, hash, start)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	// Index the content hash as soon as the document exists so a later
	// submission of the same bytes in another case is caught even when this
	// one never makes it past recognition. The duplicate rule ignores
	// same-case references, so the current document never flags itself.
	if s.dupIndex != nil {
		ref := fraud.DuplicateRef{DocumentID: doc.ID, CaseID: doc.CaseID}
		if err := s.dupIndex.Add(ctx, hash, ref); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "duplicate index update failed", "document_id", doc.ID, "error", err)
		}
	}

	if recErr != nil {
		// The external engine failed or timed out: the document still gets a
		// result instead of hanging in pending.
		return s.finishWithRecognitionFailure(ctx, doc, recErr)
	}

	result := &models.ValidationResult{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		DocumentType:  doc.Type,
		ContentHash:   hash,
		ExtractedData: map[string]string{},
		Warnings:      []string{},
		Errors:        []string{},
		CreatedAt:     start,
		UpdatedAt:     start,
	}

	rawFields := extractor.Extract(recognized.Text, docType)
	for _, required := range opts.RequiredFields {
		if _, ok := rawFields[required]; !ok {
			result.Warnings = append(result.Warnings, "expected field not found: "+required)
		}
	}

	normalized := normalizer.Normalize(rawFields)
	names := make([]string, 0, len(normalized))
	for name := range normalized {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]models.ExtractedField, 0, len(normalized))
	comparableValues := make(map[string]string, len(normalized))
	for _, name := range names {
		field := normalized[name]
		result.ExtractedData[name] = field.Value
		if field.Comparable {
			comparableValues[name] = field.Value
		} else {
			result.Warnings = append(result.Warnings, "field not comparable: "+name)
		}
		rows = append(rows, models.ExtractedField{
			DocumentID:      doc.ID,
			Name:            name,
			RawValue:        field.Raw,
			NormalizedValue: field.Value,
			Confidence:      recognized.Confidence,
			Source:          fieldSource,
			Comparable:      field.Comparable,
			CreatedAt:       start,
		})
	}
	if err := s.store.ReplaceFields(ctx, doc.ID, rows); err != nil {
		return nil, err
	}

	siblings, sibErr := s.gatherSiblings(ctx, doc)
	if sibErr != nil {
		result.Warnings = append(result.Warnings, "cross-validation incomplete: sibling documents unavailable")
		if s.logger != nil {
			s.logger.WarnContext(ctx, "sibling gathering failed", "document_id", doc.ID, "case_id", caseID, "error", sibErr)
		}
	}
	outcome := s.engine.Validate(doc.Type, comparableValues, siblings)
	result.CrossValidation = models.CrossValidation{
		Status:          outcome.Status,
		Score:           outcome.Score,
		Matches:         outcome.Matches,
		Inconsistencies: outcome.Inconsistencies,
	}

	if opts.DetectFraud {
		result.FraudDetection = s.detector.Check(ctx, doc, normalized, data)
		switch {
		case fraud.IsHardSignal(result.FraudDetection):
			result.Errors = append(result.Errors, "fraud signal: "+joinDetails(result.FraudDetection.Details))
			s.metrics.IncrementFraudSignal(string(result.FraudDetection.Type))
		case fraud.IsSoftSignal(result.FraudDetection):
			result.Warnings = append(result.Warnings, "possible fraud: "+joinDetails(result.FraudDetection.Details))
		}
	}

	result.Status = finalStatus(outcome.Status, result.FraudDetection)
	result.Confidence = s.confidence(outcome, recognized.Confidence)

	if result.Status != models.StatusPending {
		if err := s.store.UpdateStatus(ctx, doc.ID, result.Status, s.now()); err != nil {
			return nil, err
		}
	}
	if err := s.store.SaveResult(ctx, result); err != nil {
		return nil, err
	}

	s.metrics.IncrementProcessed(string(result.Status), string(doc.Type))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "document processed",
			"document_id", doc.ID,
			"case_id", caseID,
			"document_type", doc.Type,
			"status", result.Status,
			"score", outcome.Score,
			"fraud_confidence", result.FraudDetection.Confidence,
		)
	}
	return result, nil
}

// recognize calls the external engine under the configured timeout.
func (s *DocumentService) recognize(ctx context.Context, data []byte) (recognitionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ocrTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.recognizer.Recognize(ctx, data)
	s.metrics.ObserveRecognitionLatency(time.Since(start))
	if err != nil {
		return recognitionResult{}, err
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 100 {
		res.Confidence = 100
	}
	return recognitionResult{Text: res.Text, Confidence: res.Confidence}, nil
}

type recognitionResult struct {
	Text       string
	Confidence float64
}

// finishWithRecognitionFailure persists a needs_review result with confidence
// zero and an explicit error entry.
func (s *DocumentService) finishWithRecognitionFailure(ctx context.Context, doc *models.Document, recErr error) (*models.ValidationResult, error) {
	now := s.now()
	result := &models.ValidationResult{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		DocumentType:  doc.Type,
		Status:        models.StatusNeedsReview,
		Confidence:    0,
		ExtractedData: map[string]string{},
		Warnings:      []string{},
		Errors:        []string{"text recognition failed: " + recErr.Error()},
		ContentHash:   doc.ContentHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.UpdateStatus(ctx, doc.ID, models.StatusNeedsReview, now); err != nil {
		return nil, err
	}
	if err := s.store.SaveResult(ctx, result); err != nil {
		return nil, err
	}
	s.metrics.IncrementProcessed(string(models.StatusNeedsReview), string(doc.Type))
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "text recognition failed",
			"document_id", doc.ID,
			"case_id", doc.CaseID,
			"error", recErr,
		)
	}
	return result, nil
}

// finalStatus combines the cross-validation verdict with the fraud outcome.
// needs_review wins over either source's terminal state.
func finalStatus(verdict models.DocumentStatus, det models.FraudDetection) models.DocumentStatus {
	if fraud.IsHardSignal(det) {
		return models.StatusNeedsReview
	}
	return verdict
}

// confidence maps the engine outcome onto the result's 0-100 scale. With
// nothing comparable yet the recognition confidence is all we know.
func (s *DocumentService) confidence(outcome crossval.Outcome, recognitionConfidence float64) float64 {
	if outcome.Status == models.StatusPending {
		return recognitionConfidence
	}
	return outcome.Score * 100
}

func contentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func joinDetails(details []string) string {
	if len(details) == 0 {
		return "heuristics triggered"
	}
	out := details[0]
	for _, d := range details[1:] {
		out += "; " + d
	}
	return out
}
