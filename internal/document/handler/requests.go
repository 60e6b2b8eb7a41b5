package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"veridoc/internal/document/models"
	"veridoc/internal/document/service"
)

// ProcessRequest is the parsed multipart upload.
type ProcessRequest struct {
	Data         []byte
	DocumentType models.DocumentType
	CaseID       string
	Options      service.Options
}

func parseProcessRequest(r *http.Request, maxBytes int64) (*ProcessRequest, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file part is required")
	}
	defer file.Close()
	data, err := readAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file part is empty")
	}

	docType, err := models.ParseDocumentType(r.FormValue("document_type"))
	if err != nil {
		return nil, err
	}
	caseID := strings.TrimSpace(r.FormValue("case_id"))
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}

	opts := service.DefaultOptions()
	if r.FormValue("detect_fraud") == "false" {
		opts.DetectFraud = false
	}
	if raw := strings.TrimSpace(r.FormValue("required_fields")); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				opts.RequiredFields = append(opts.RequiredFields, f)
			}
		}
	}

	return &ProcessRequest{
		Data:         data,
		DocumentType: docType,
		CaseID:       caseID,
		Options:      opts,
	}, nil
}

// UpdateStatusRequest is the manual review payload.
type UpdateStatusRequest struct {
	Status     models.DocumentStatus `json:"status"`
	ReviewerID string                `json:"reviewer_id"`
	Notes      string                `json:"notes"`
}

func decodeUpdateStatusRequest(body io.Reader) (*UpdateStatusRequest, error) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.Status != models.StatusValid && req.Status != models.StatusInvalid {
		return nil, fmt.Errorf("status must be %q or %q", models.StatusValid, models.StatusInvalid)
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		return nil, fmt.Errorf("reviewer_id is required")
	}
	return &req, nil
}
