// Package service orchestrates the document pipeline: recognition,
// extraction, normalization, cross-validation, fraud heuristics, and
// persistence. Callers always receive a ValidationResult; only startup and
// persistence failures surface as errors.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"veridoc/internal/audit"
	"veridoc/internal/document/crossval"
	"veridoc/internal/document/fraud"
	docmetrics "veridoc/internal/document/metrics"
	"veridoc/internal/document/models"
	"veridoc/internal/document/store"
	"veridoc/internal/recognition"
	"veridoc/pkg/platform/sentinel"
)

const (
	defaultRecognitionTimeout = 30 * time.Second
	defaultMaxWorkers         = 8
)

// Options tune one processing request.
type Options struct {
	// RequiredFields produces warnings for expected fields the extractor
	// could not find.
	RequiredFields []string
	// DetectFraud toggles the fraud heuristics. On by default.
	DetectFraud bool
}

// DefaultOptions returns the options applied when the caller passes none.
func DefaultOptions() Options {
	return Options{DetectFraud: true}
}

// DocumentService exposes the engine's operations to the API layer.
type DocumentService struct {
	store      store.Store
	recognizer recognition.Recognizer
	engine     *crossval.Engine
	detector   *fraud.Detector
	dupIndex   fraud.DuplicateIndex

	logger  *slog.Logger
	metrics *docmetrics.Metrics
	auditCh chan<- audit.Event

	workers    *semaphore.Weighted
	ocrTimeout time.Duration
	now        func() time.Time

	started atomic.Bool
}

// Option configures a DocumentService.
type Option func(*DocumentService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *DocumentService) { s.logger = logger }
}

func WithMetrics(m *docmetrics.Metrics) Option {
	return func(s *DocumentService) { s.metrics = m }
}

// WithAuditSink routes manual review events to the audit worker.
func WithAuditSink(ch chan<- audit.Event) Option {
	return func(s *DocumentService) { s.auditCh = ch }
}

// WithMaxWorkers bounds concurrent document processing.
func WithMaxWorkers(n int64) Option {
	return func(s *DocumentService) { s.workers = semaphore.NewWeighted(n) }
}

// WithRecognitionTimeout bounds each external recognition call.
func WithRecognitionTimeout(d time.Duration) Option {
	return func(s *DocumentService) { s.ocrTimeout = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *DocumentService) { s.now = now }
}

// New wires a DocumentService. Call Start before processing.
func New(st store.Store, recognizer recognition.Recognizer, engine *crossval.Engine, detector *fraud.Detector, dupIndex fraud.DuplicateIndex, opts ...Option) *DocumentService {
	s := &DocumentService{
		store:      st,
		recognizer: recognizer,
		engine:     engine,
		detector:   detector,
		dupIndex:   dupIndex,
		workers:    semaphore.NewWeighted(defaultMaxWorkers),
		ocrTimeout: defaultRecognitionTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start verifies the persistence backend and marks the service ready.
func (s *DocumentService) Start(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	s.started.Store(true)
	return nil
}

// GetDocument returns a document by id.
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	if !s.started.Load() {
		return nil, sentinel.ErrNotInitialized
	}
	return s.store.GetDocument(ctx, id)
}

// ListDocumentsByCase returns every document of a case.
func (s *DocumentService) ListDocumentsByCase(ctx context.Context, caseID string) ([]*models.Document, error) {
	if !s.started.Load() {
		return nil, sentinel.ErrNotInitialized
	}
	return s.store.ListByCase(ctx, caseID)
}

// UpdateValidationStatus records a manual reviewer decision. It is the only
// path out of needs_review; every call is audit-logged.
func (s *DocumentService) UpdateValidationStatus(ctx context.Context, validationID uuid.UUID, target models.DocumentStatus, reviewerID, notes string) (*models.ValidationResult, error) {
	if !s.started.Load() {
		return nil, sentinel.ErrNotInitialized
	}
	if reviewerID == "" {
		return nil, fmt.Errorf("reviewer id is required")
	}

	result, err := s.store.GetResult(ctx, validationID)
	if err != nil {
		return nil, err
	}
	if result.Status != models.StatusNeedsReview || !result.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("cannot transition %s to %s: %w", result.Status, target, sentinel.ErrInvalidState)
	}

	now := s.now()
	updated, err := s.store.UpdateResultStatus(ctx, validationID, target, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, result.DocumentID, target, now); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		ID:           uuid.New(),
		ValidationID: validationID,
		DocumentID:   result.DocumentID,
		ReviewerID:   reviewerID,
		FromStatus:   result.Status,
		ToStatus:     target,
		Notes:        notes,
		Timestamp:    now,
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "manual review recorded",
			"validation_id", validationID,
			"document_id", result.DocumentID,
			"reviewer_id", reviewerID,
			"from", result.Status,
			"to", target,
		)
	}
	return updated, nil
}

// ListReviewAudit is exposed for the API layer via the audit store directly;
// the service only emits.
func (s *DocumentService) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditCh == nil {
		return
	}
	select {
	case s.auditCh <- event:
	default:
		// The review itself is already persisted; losing the trail entry is
		// logged, not fatal.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "audit sink full, dropping event", "validation_id", event.ValidationID)
		}
	}
}

// IsNotFound reports whether an error is the store's not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
