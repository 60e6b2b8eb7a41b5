package fraud

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key prefix for content-hash sets.
const duplicateKeyPrefix = "dup:hash:"

// RedisIndex is a Redis-backed duplicate index. This is the recommended
// implementation for distributed deployments where multiple instances must
// see each other's submissions.
type RedisIndex struct {
	client *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

// Add records a submission under its content hash.
// Uses a Redis set so repeated adds of the same member stay idempotent.
func (i *RedisIndex) Add(ctx context.Context, contentHash string, ref DuplicateRef) error {
	key := duplicateKeyPrefix + contentHash
	member := ref.CaseID + "|" + ref.DocumentID.String()
	if err := i.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("index content hash: %w", err)
	}
	return nil
}

// Find returns every submission previously recorded for a content hash.
func (i *RedisIndex) Find(ctx context.Context, contentHash string) ([]DuplicateRef, error) {
	key := duplicateKeyPrefix + contentHash
	members, err := i.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup content hash: %w", err)
	}

	refs := make([]DuplicateRef, 0, len(members))
	for _, member := range members {
		caseID, rawID, ok := strings.Cut(member, "|")
		if !ok {
			continue
		}
		docID, err := uuid.Parse(rawID)
		if err != nil {
			continue
		}
		refs = append(refs, DuplicateRef{DocumentID: docID, CaseID: caseID})
	}
	return refs, nil
}
