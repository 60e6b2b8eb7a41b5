package audit

import (
	"time"

	"github.com/google/uuid"

	"veridoc/internal/document/models"
)

// Event records one manual review decision. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	ID           uuid.UUID
	ValidationID uuid.UUID
	DocumentID   uuid.UUID
	ReviewerID   string
	FromStatus   models.DocumentStatus
	ToStatus     models.DocumentStatus
	Notes        string
	Timestamp    time.Time
}
