package recognition

import (
	"context"
	"errors"
)

// ErrForensicsUnavailable signals that no tampering analysis could be
// produced for the input. Callers treat it as "no signal", not a failure.
var ErrForensicsUnavailable = errors.New("forensics unavailable")

// TamperingSignal is an optional external fraud input produced by pixel-level
// analysis of the source image.
type TamperingSignal struct {
	Tampered   bool
	Confidence float64
	Details    string
}

// ImageForensics analyzes source bytes for signs of manipulation. The engine
// calls it opportunistically and must function fully without it.
type ImageForensics interface {
	Analyze(ctx context.Context, data []byte) (TamperingSignal, error)
}

// NoopForensics always reports ErrForensicsUnavailable.
type NoopForensics struct{}

func (NoopForensics) Analyze(_ context.Context, _ []byte) (TamperingSignal, error) {
	return TamperingSignal{}, ErrForensicsUnavailable
}
