// Package recognition declares the contracts of the external text-recognition
// collaborators. The engine only consumes their output; implementations live
// outside this repository (command-line OCR, cloud vision, ...).
package recognition

import "context"

// Result is the raw output of a text-recognition run.
type Result struct {
	// Text is the recognized text, unnormalized.
	Text string
	// Confidence is the engine's own confidence in [0,100].
	Confidence float64
}

// Recognizer turns image or PDF bytes into raw text. Implementations may
// block on network or process calls; callers bound them with a context
// deadline.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (Result, error)
}

// Static returns a fixed result for every input. Used in tests and as a
// wiring placeholder while no real engine is configured.
type Static struct {
	Result Result
	Err    error
}

func (s Static) Recognize(_ context.Context, _ []byte) (Result, error) {
	if s.Err != nil {
		return Result{}, s.Err
	}
	return s.Result, nil
}
