package fraud

import (
	"context"
	"sync"
)

// MemoryIndex is an in-process duplicate index for tests and single-instance
// deployments.
type MemoryIndex struct {
	mu   sync.RWMutex
	refs map[string][]DuplicateRef
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{refs: make(map[string][]DuplicateRef)}
}

func (i *MemoryIndex) Add(_ context.Context, contentHash string, ref DuplicateRef) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.refs[contentHash] = append(i.refs[contentHash], ref)
	return nil
}

func (i *MemoryIndex) Find(_ context.Context, contentHash string) ([]DuplicateRef, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	found := i.refs[contentHash]
	out := make([]DuplicateRef, len(found))
	copy(out, found)
	return out, nil
}
