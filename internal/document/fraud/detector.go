// Package fraud runs heuristics alongside cross-validation: duplicate
// submissions by content hash and rule-based consistency checks on dates and
// identity numbers. Every heuristic fails closed to "no signal" so one
// unparsable value never sinks the whole pipeline.
package fraud

import (
	"context"
	"log/slog"
	"time"

	"veridoc/internal/document/models"
	"veridoc/internal/document/normalizer"
	"veridoc/internal/recognition"
)

// Rule confidences. Triggered rules sum and cap at 100.
const (
	confidenceTaxIDLength   = 30
	confidenceAllSameDigits = 50
	confidenceAgeOutOfRange = 20
	confidenceFutureIssue   = 50
	confidenceIssuePreBirth = 70
	confidenceTampered      = 40
	confidenceDuplicate     = 95
)

// Signal grading: above hardSignalThreshold the document is forced into
// review with an error entry; between softSignalThreshold and the hard cutoff
// it only warns.
const (
	hardSignalThreshold = 80
	softSignalThreshold = 60
)

const taxIDLength = 11

// Detector combines the duplicate index, the consistency rules, and an
// optional forensics collaborator into one fraud verdict per document.
type Detector struct {
	index     DuplicateIndex
	forensics recognition.ImageForensics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithForensics attaches an optional image-forensics collaborator. The
// detector functions fully without one.
func WithForensics(forensics recognition.ImageForensics) Option {
	return func(d *Detector) { d.forensics = forensics }
}

// WithLogger attaches a logger for swallowed heuristic failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// WithClock overrides the time source, for age and issue-date rules in tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

func NewDetector(index DuplicateIndex, opts ...Option) *Detector {
	d := &Detector{
		index: index,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check runs all heuristics for one document. The returned confidence is the
// capped sum of triggered rules; FraudDetected reports a hard signal.
func (d *Detector) Check(ctx context.Context, doc *models.Document, fields map[string]normalizer.Field, raw []byte) models.FraudDetection {
	det := models.FraudDetection{Details: []string{}}

	if d.checkDuplicate(ctx, doc, &det) {
		det.Type = models.FraudDuplicateSubmission
	}
	rulesBefore := det.Confidence
	d.checkTaxID(fields, &det)
	d.checkDates(fields, &det)
	d.checkForensics(ctx, raw, &det)
	if det.Type == "" && det.Confidence > rulesBefore {
		det.Type = models.FraudInconsistentData
	}

	if det.Confidence > 100 {
		det.Confidence = 100
	}
	det.FraudDetected = det.Confidence > hardSignalThreshold
	return det
}

// IsHardSignal reports whether the detection forces the document into review.
func IsHardSignal(det models.FraudDetection) bool {
	return det.Confidence > hardSignalThreshold
}

// IsSoftSignal reports whether the detection warrants a warning only.
func IsSoftSignal(det models.FraudDetection) bool {
	return det.Confidence >= softSignalThreshold && det.Confidence <= hardSignalThreshold
}

// checkDuplicate flags identical bytes seen outside the current case.
// Resubmission within the same case is reprocessing, not fraud.
func (d *Detector) checkDuplicate(ctx context.Context, doc *models.Document, det *models.FraudDetection) bool {
	if d.index == nil || doc.ContentHash == "" {
		return false
	}
	refs, err := d.index.Find(ctx, doc.ContentHash)
	if err != nil {
		// No signal: the index being down must not fail the pipeline.
		if d.logger != nil {
			d.logger.WarnContext(ctx, "duplicate index lookup failed", "document_id", doc.ID, "error", err)
		}
		return false
	}
	for _, ref := range refs {
		if ref.CaseID != doc.CaseID {
			det.Confidence += confidenceDuplicate
			det.Details = append(det.Details, "identical content already submitted in case "+ref.CaseID)
			return true
		}
	}
	return false
}

func (d *Detector) checkTaxID(fields map[string]normalizer.Field, det *models.FraudDetection) {
	taxID, ok := comparableValue(fields, models.FieldTaxID)
	if !ok {
		return
	}
	if len(taxID) != taxIDLength {
		det.Confidence += confidenceTaxIDLength
		det.Details = append(det.Details, "tax id has unexpected length")
	}
	if allSameDigits(taxID) {
		det.Confidence += confidenceAllSameDigits
		det.Details = append(det.Details, "tax id digits are all identical")
	}
	if idNumber, ok := comparableValue(fields, models.FieldIDNumber); ok && allSameDigits(idNumber) {
		det.Confidence += confidenceAllSameDigits
		det.Details = append(det.Details, "id number digits are all identical")
	}
}

func (d *Detector) checkDates(fields map[string]normalizer.Field, det *models.FraudDetection) {
	now := d.now()

	birth, hasBirth := comparableDate(fields, models.FieldBirthDate)
	if hasBirth {
		age := now.Sub(birth).Hours() / (24 * 365.25)
		if age < 16 || age > 120 {
			det.Confidence += confidenceAgeOutOfRange
			det.Details = append(det.Details, "derived age outside plausible range")
		}
	}

	issue, hasIssue := comparableDate(fields, models.FieldIssueDate)
	if hasIssue {
		if issue.After(now) {
			det.Confidence += confidenceFutureIssue
			det.Details = append(det.Details, "issue date is in the future")
		}
		if hasBirth && issue.Before(birth) {
			det.Confidence += confidenceIssuePreBirth
			det.Details = append(det.Details, "issue date precedes birth date")
		}
	}
}

// checkForensics calls the optional tampering analysis; unavailability is
// not a signal.
func (d *Detector) checkForensics(ctx context.Context, raw []byte, det *models.FraudDetection) {
	if d.forensics == nil || len(raw) == 0 {
		return
	}
	signal, err := d.forensics.Analyze(ctx, raw)
	if err != nil {
		return
	}
	if signal.Tampered {
		det.Confidence += confidenceTampered
		det.Details = append(det.Details, "image forensics reported tampering")
	}
}

func comparableValue(fields map[string]normalizer.Field, name string) (string, bool) {
	f, ok := fields[name]
	if !ok || !f.Comparable || f.Value == "" {
		return "", false
	}
	return f.Value, true
}

func comparableDate(fields map[string]normalizer.Field, name string) (time.Time, bool) {
	value, ok := comparableValue(fields, name)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(normalizer.DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func allSameDigits(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
