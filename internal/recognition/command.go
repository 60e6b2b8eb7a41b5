package recognition

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// commandConfidence is reported for successful runs of engines that expose no
// confidence of their own.
const commandConfidence = 75

// Command adapts an external OCR binary (e.g. tesseract) that reads the
// document bytes on stdin and writes recognized text to stdout. The process
// inherits the caller's context deadline.
type Command struct {
	Path string
	Args []string
}

func (c Command) Recognize(ctx context.Context, data []byte) (Result, error) {
	if c.Path == "" {
		return Result{}, fmt.Errorf("no recognition command configured")
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(data)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("recognition command: %w: %s", err, stderr.String())
	}
	return Result{Text: out.String(), Confidence: commandConfidence}, nil
}
