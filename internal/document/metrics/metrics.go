package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document pipeline.
type Metrics struct {
	// Processed documents by final status and document type
	DocumentsProcessed *prometheus.CounterVec

	// Fraud rule triggers by detection type
	FraudSignals *prometheus.CounterVec

	// Recognition collaborator latency
	RecognitionLatency prometheus.Histogram

	// Full pipeline latency from upload to persisted result
	PipelineLatency prometheus.Histogram
}

// New creates a Metrics instance with all document pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		DocumentsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_documents_processed_total",
			Help: "Total processed documents by final status and document type",
		}, []string{"status", "document_type"}),

		FraudSignals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_fraud_signals_total",
			Help: "Total fraud detections by type",
		}, []string{"type"}),

		RecognitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veridoc_recognition_duration_seconds",
			Help:    "Duration of external text-recognition calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		PipelineLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veridoc_pipeline_duration_seconds",
			Help:    "Duration of full document processing including recognition",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementProcessed records a finished pipeline run.
func (m *Metrics) IncrementProcessed(status, documentType string) {
	if m != nil {
		m.DocumentsProcessed.WithLabelValues(status, documentType).Inc()
	}
}

// IncrementFraudSignal records a fraud detection.
func (m *Metrics) IncrementFraudSignal(fraudType string) {
	if m != nil {
		m.FraudSignals.WithLabelValues(fraudType).Inc()
	}
}

// ObserveRecognitionLatency records one recognition call duration.
func (m *Metrics) ObserveRecognitionLatency(d time.Duration) {
	if m != nil {
		m.RecognitionLatency.Observe(d.Seconds())
	}
}

// ObservePipelineLatency records one full pipeline duration.
func (m *Metrics) ObservePipelineLatency(d time.Duration) {
	if m != nil {
		m.PipelineLatency.Observe(d.Seconds())
	}
}
