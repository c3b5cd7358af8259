// Package pdf extracts text from CV documents by shelling out to pdftotext.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const tool = "pdftotext"

// ErrToolNotFound is returned when pdftotext is missing from PATH.
var ErrToolNotFound = errors.New(
	"pdftotext not found: install poppler-utils (apt install poppler-utils, brew install poppler)",
)

// CommandRunner executes external commands. Injected so tests never need
// poppler installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return out, nil
}

type Extractor struct {
	runner CommandRunner
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	return NewWithRunner(execRunner{}, logger)
}

func NewWithRunner(runner CommandRunner, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{runner: runner, logger: logger}
}

// CheckAvailable verifies pdftotext can be found on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(tool); err != nil {
		return ErrToolNotFound
	}
	return nil
}

// Extract returns the text content of the PDF at path. Newlines are folded
// into spaces so span offsets stay stable across page layouts.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("pdf path is required")
	}

	// "-" sends the extracted text to stdout.
	out, err := e.runner.Run(ctx, tool, "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}

	text := strings.TrimSpace(strings.ReplaceAll(string(out), "\n", " "))
	if text == "" {
		return "", fmt.Errorf("no text extracted from %s", path)
	}

	e.logger.Debug("extracted pdf text",
		zap.String("path", path),
		zap.Int("characters", len(text)),
	)

	return text, nil
}
