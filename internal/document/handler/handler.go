package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"veridoc/internal/document/models"
	"veridoc/internal/document/service"
	"veridoc/pkg/platform/sentinel"
)

// maxUploadBytes bounds one document upload.
const maxUploadBytes = 20 << 20

// Service defines the document operations the handler depends on.
type Service interface {
	ProcessDocument(ctx context.Context, data []byte, docType models.DocumentType, caseID string, opts service.Options) (*models.ValidationResult, error)
	UpdateValidationStatus(ctx context.Context, validationID uuid.UUID, target models.DocumentStatus, reviewerID, notes string) (*models.ValidationResult, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListDocumentsByCase(ctx context.Context, caseID string) ([]*models.Document, error)
}

// Health reports backend readiness.
type Health interface {
	Ping(ctx context.Context) error
}

// Handler wires document endpoints to the document service.
type Handler struct {
	service Service
	health  Health
	logger  *slog.Logger
}

// New constructs a document handler with its dependencies.
func New(service Service, health Health, logger *slog.Logger) *Handler {
	return &Handler{service: service, health: health, logger: logger}
}

// Register mounts document endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.HandleProcess)
	r.Get("/documents/{documentID}", h.HandleGetDocument)
	r.Get("/cases/{caseID}/documents", h.HandleListByCase)
	r.Patch("/validations/{validationID}/status", h.HandleUpdateStatus)
	r.Get("/healthz", h.HandleHealth)
}

// HandleProcess handles POST /documents: a multipart upload carrying the
// document bytes plus its declared type and case.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, err := parseProcessRequest(r, maxUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ProcessDocument(ctx, req.Data, req.DocumentType, req.CaseID, req.Options)
	if err != nil {
		h.writeServiceError(ctx, w, err, "process document failed",
			"case_id", req.CaseID,
			"document_type", req.DocumentType,
		)
		return
	}

	h.logger.InfoContext(ctx, "document processed",
		"case_id", req.CaseID,
		"document_type", req.DocumentType,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusCreated, result)
}

// HandleUpdateStatus handles PATCH /validations/{validationID}/status: the
// manual reviewer transition out of needs_review.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	validationID, err := uuid.Parse(chi.URLParam(r, "validationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid validation id")
		return
	}
	req, err := decodeUpdateStatusRequest(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.UpdateValidationStatus(ctx, validationID, req.Status, req.ReviewerID, req.Notes)
	if err != nil {
		h.writeServiceError(ctx, w, err, "status update failed", "validation_id", validationID)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGetDocument handles GET /documents/{documentID}.
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "get document failed", "document_id", id)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleListByCase handles GET /cases/{caseID}/documents.
func (h *Handler) HandleListByCase(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	if caseID == "" {
		writeError(w, http.StatusBadRequest, "case id is required")
		return
	}
	docs, err := h.service.ListDocumentsByCase(r.Context(), caseID)
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "list documents failed", "case_id", caseID)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string, attrs ...any) {
	h.logger.ErrorContext(ctx, msg, append(attrs, "error", err)...)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, sentinel.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "engine is starting up")
	case errors.Is(err, sentinel.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// readAll is split out so tests can exercise upload size limits directly.
func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
