// Package crossval compares a document's normalized fields against every
// sibling document of the same case and produces a deterministic, explainable
// verdict: same inputs always yield the same score and status.
package crossval

import (
	"github.com/google/uuid"

	"veridoc/internal/document/models"
	"veridoc/internal/document/similarity"
)

// Verdict thresholds over the weight-normalized score.
const (
	validThreshold  = 0.85
	reviewThreshold = 0.70
)

// Inconsistency weight cutoffs: a no-match above inconsistencyWeight is
// recorded, above highSeverityWeight it is graded high.
const (
	inconsistencyWeight = 0.3
	highSeverityWeight  = 0.4
)

// Sibling carries the comparable snapshot of another document in the case:
// its type and normalized field values. Non-comparable fields must already be
// filtered out by the caller.
type Sibling struct {
	ID     uuid.UUID
	Type   models.DocumentType
	Fields map[string]string
}

// Outcome is the result of validating one document against its siblings.
// Status is StatusPending when nothing was comparable yet.
type Outcome struct {
	Score           float64
	Status          models.DocumentStatus
	Matches         []models.FieldMatch
	Inconsistencies []models.Inconsistency
}

// Engine aggregates weighted field similarity across sibling documents.
type Engine struct {
	config Config
}

func NewEngine(config Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// Validate scores the document's fields against every sibling. Fields missing
// on either side contribute nothing: they neither penalize nor reward.
func (e *Engine) Validate(docType models.DocumentType, fields map[string]string, siblings []Sibling) Outcome {
	outcome := Outcome{
		Matches:         []models.FieldMatch{},
		Inconsistencies: []models.Inconsistency{},
	}

	var numerator, denominator float64
	merged := map[string]*models.Inconsistency{}
	var mergedOrder []string

	for _, sibling := range siblings {
		weights := e.config.Comparable(docType, sibling.Type)
		if len(weights) == 0 {
			continue
		}
		for _, fw := range weights {
			value, ok := fields[fw.Field]
			if !ok {
				continue
			}
			other, ok := sibling.Fields[fw.Field]
			if !ok {
				continue
			}

			score := similarity.Score(fw.Field, value, other)
			matched := score >= similarity.Threshold(fw.Field)
			numerator += fw.Weight * score
			denominator += fw.Weight

			outcome.Matches = append(outcome.Matches, models.FieldMatch{
				Field:      fw.Field,
				Matched:    matched,
				Source:     sibling.ID,
				Similarity: score,
			})

			if !matched && fw.Weight > inconsistencyWeight {
				severity := models.SeverityMedium
				if fw.Weight > highSeverityWeight {
					severity = models.SeverityHigh
				}
				entry, seen := merged[fw.Field]
				if !seen {
					entry = &models.Inconsistency{Field: fw.Field, Severity: severity}
					merged[fw.Field] = entry
					mergedOrder = append(mergedOrder, fw.Field)
				} else if severity == models.SeverityHigh {
					entry.Severity = models.SeverityHigh
				}
				entry.Sources = append(entry.Sources, sibling.ID)
			}
		}
	}

	forceReview := false
	for _, field := range mergedOrder {
		entry := merged[field]
		if entry.Severity == models.SeverityHigh {
			forceReview = true
		}
		outcome.Inconsistencies = append(outcome.Inconsistencies, *entry)
	}

	if denominator == 0 {
		// Nothing comparable yet: no data to judge, keep the document pending.
		outcome.Status = models.StatusPending
		return outcome
	}

	outcome.Score = numerator / denominator
	switch {
	case forceReview:
		outcome.Status = models.StatusNeedsReview
	case outcome.Score >= validThreshold:
		outcome.Status = models.StatusValid
	case outcome.Score >= reviewThreshold:
		outcome.Status = models.StatusNeedsReview
	default:
		outcome.Status = models.StatusInvalid
	}
	return outcome
}
