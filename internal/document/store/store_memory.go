package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"veridoc/internal/document/models"
	"veridoc/pkg/platform/sentinel"
)

// InMemory is the test and single-instance implementation. One lock covers
// all three tables, which trivially gives readers whole-set snapshots.
type InMemory struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]models.Document
	fields    map[uuid.UUID][]models.ExtractedField
	results   map[uuid.UUID]models.ValidationResult
	byDoc     map[uuid.UUID][]uuid.UUID // insertion-ordered result ids per document
}

func NewInMemory() *InMemory {
	return &InMemory{
		documents: make(map[uuid.UUID]models.Document),
		fields:    make(map[uuid.UUID][]models.ExtractedField),
		results:   make(map[uuid.UUID]models.ValidationResult),
		byDoc:     make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *InMemory) SaveDocument(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("document %s: %w", doc.ID, sentinel.ErrConflict)
	}
	s.documents[doc.ID] = *doc
	return nil
}

func (s *InMemory) GetDocument(_ context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, sentinel.ErrNotFound)
	}
	return &doc, nil
}

func (s *InMemory) ListByCase(_ context.Context, caseID string) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []*models.Document
	for _, doc := range s.documents {
		if doc.CaseID == caseID {
			d := doc
			docs = append(docs, &d)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID.String() < docs[j].ID.String()
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

func (s *InMemory) UpdateStatus(_ context.Context, id uuid.UUID, status models.DocumentStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, sentinel.ErrNotFound)
	}
	doc.Status = status
	doc.UpdatedAt = now
	s.documents[id] = doc
	return nil
}

func (s *InMemory) ReplaceFields(_ context.Context, documentID uuid.UUID, fields []models.ExtractedField) error {
	snapshot := make([]models.ExtractedField, len(fields))
	copy(snapshot, fields)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[documentID] = snapshot
	return nil
}

func (s *InMemory) FieldsByDocument(_ context.Context, documentID uuid.UUID) ([]models.ExtractedField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.fields[documentID]
	out := make([]models.ExtractedField, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *InMemory) SaveResult(_ context.Context, result *models.ValidationResult) error {
	if result == nil {
		return fmt.Errorf("validation result is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.ID]; exists {
		return fmt.Errorf("validation result %s: %w", result.ID, sentinel.ErrConflict)
	}
	if _, ok := s.documents[result.DocumentID]; !ok {
		return fmt.Errorf("validation result references document %s: %w", result.DocumentID, sentinel.ErrNotFound)
	}
	s.results[result.ID] = *result
	s.byDoc[result.DocumentID] = append(s.byDoc[result.DocumentID], result.ID)
	return nil
}

func (s *InMemory) GetResult(_ context.Context, id uuid.UUID) (*models.ValidationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("validation result %s: %w", id, sentinel.ErrNotFound)
	}
	return &result, nil
}

func (s *InMemory) LatestResult(_ context.Context, documentID uuid.UUID) (*models.ValidationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDoc[documentID]
	if len(ids) == 0 {
		return nil, fmt.Errorf("validation result for document %s: %w", documentID, sentinel.ErrNotFound)
	}
	result := s.results[ids[len(ids)-1]]
	return &result, nil
}

func (s *InMemory) UpdateResultStatus(_ context.Context, id uuid.UUID, status models.DocumentStatus, now time.Time) (*models.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("validation result %s: %w", id, sentinel.ErrNotFound)
	}
	result.ApplyManualReview(status, now)
	s.results[id] = result
	return &result, nil
}

func (s *InMemory) Ping(_ context.Context) error {
	return nil
}
