package service

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"veridoc/internal/document/crossval"
	"veridoc/internal/document/models"
)

// gatherSiblings loads the comparable field snapshot of every other document
// in the case, fetching field sets in parallel. The snapshot is taken at read
// time, so a sibling arriving mid-flight may be missed until the next
// submission in the case triggers another pass.
func (s *DocumentService) gatherSiblings(ctx context.Context, doc *models.Document) ([]crossval.Sibling, error) {
	docs, err := s.store.ListByCase(ctx, doc.CaseID)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		siblings []crossval.Sibling
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, other := range docs {
		if other.ID == doc.ID {
			continue
		}
		g.Go(func() error {
			fields, err := s.store.FieldsByDocument(ctx, other.ID)
			if err != nil {
				return err
			}
			values := make(map[string]string, len(fields))
			for _, f := range fields {
				if f.Comparable {
					values[f.Name] = f.NormalizedValue
				}
			}
			mu.Lock()
			siblings = append(siblings, crossval.Sibling{ID: other.ID, Type: other.Type, Fields: values})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Restore case order: goroutine completion order is not deterministic,
	// the verdict must be.
	order := make(map[string]int, len(docs))
	for i, d := range docs {
		order[d.ID.String()] = i
	}
	sort.Slice(siblings, func(i, j int) bool {
		return order[siblings[i].ID.String()] < order[siblings[j].ID.String()]
	})
	return siblings, nil
}
