package fraud

import (
	"context"

	"github.com/google/uuid"
)

// DuplicateRef locates a previously indexed document by content hash.
type DuplicateRef struct {
	DocumentID uuid.UUID
	CaseID     string
}

// DuplicateIndex maps content hashes to every document ever submitted with
// those bytes, across all cases. Swap with a distributed implementation
// without touching the detector.
type DuplicateIndex interface {
	Add(ctx context.Context, contentHash string, ref DuplicateRef) error
	Find(ctx context.Context, contentHash string) ([]DuplicateRef, error)
}
