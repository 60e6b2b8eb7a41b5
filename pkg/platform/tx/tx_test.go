package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom_EmptyContext(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}

func TestWith_NilTransactionIsNoop(t *testing.T) {
	ctx := With(context.Background(), nil)
	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestWith_Roundtrip(t *testing.T) {
	placed := &sql.Tx{}
	ctx := With(context.Background(), placed)

	got, ok := From(ctx)
	assert.True(t, ok)
	assert.Same(t, placed, got)
}

func TestRun_ReusesAmbientTransaction(t *testing.T) {
	ambient := &sql.Tx{}
	ctx := With(context.Background(), ambient)

	called := false
	err := Run(ctx, nil, func(ctx context.Context) error {
		called = true
		got, ok := From(ctx)
		assert.True(t, ok)
		assert.Same(t, ambient, got)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
