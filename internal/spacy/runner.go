// Package spacy drives the external spaCy toolchain through the companion
// cvner-spacy command. Everything that touches the model itself (training,
// tokenization, the forward pass) happens inside that command; this package
// only builds command lines and parses their output.
package spacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const defaultCommand = "cvner-spacy"

// ErrCommandNotFound is returned when the companion command is not installed.
var ErrCommandNotFound = errors.New(
	"cvner-spacy not found: install the companion helper and make sure it is on PATH",
)

// CommandRunner executes external commands. Injected so tests never run the
// real toolchain.
type CommandRunner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

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

// Runner wraps the companion command.
type Runner struct {
	command string
	runner  CommandRunner
	logger  *zap.Logger
}

func New(command string, logger *zap.Logger) *Runner {
	return NewWithRunner(command, execRunner{}, logger)
}

func NewWithRunner(command string, runner CommandRunner, logger *zap.Logger) *Runner {
	if command = strings.TrimSpace(command); command == "" {
		command = defaultCommand
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{command: command, runner: runner, logger: logger}
}

// CheckAvailable verifies the companion command can be found on PATH.
func (r *Runner) CheckAvailable() error {
	if _, err := exec.LookPath(r.command); err != nil {
		return ErrCommandNotFound
	}
	return nil
}

// TrainRequest describes a single training invocation.
type TrainRequest struct {
	ConfigPath  string
	TrainCorpus string
	DevCorpus   string
	OutputDir   string
	// GPUID selects the GPU device; -1 trains on CPU.
	GPUID int
	// Overrides are spaCy config dotted-key overrides, e.g. training.dropout.
	Overrides map[string]string
}

// Train runs the external trainer to completion. The trainer writes the
// model-best and model-last directories under OutputDir.
func (r *Runner) Train(ctx context.Context, req *TrainRequest) error {
	if req == nil {
		return errors.New("train request is required")
	}
	if req.ConfigPath == "" {
		return errors.New("training config path is required")
	}
	if req.TrainCorpus == "" || req.DevCorpus == "" {
		return errors.New("train and dev corpus paths are required")
	}
	if req.OutputDir == "" {
		return errors.New("output directory is required")
	}

	args := []string{
		"train",
		"--config", req.ConfigPath,
		"--train", req.TrainCorpus,
		"--dev", req.DevCorpus,
		"--output", req.OutputDir,
	}
	if req.GPUID >= 0 {
		args = append(args, "--gpu-id", strconv.Itoa(req.GPUID))
	}

	// Sorted for reproducible command lines in logs.
	keys := make([]string, 0, len(req.Overrides))
	for key := range req.Overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--override", key+"="+req.Overrides[key])
	}

	r.logger.Info("starting external training",
		zap.String("command", r.command),
		zap.Strings("args", args),
	)

	out, err := r.runner.Run(ctx, nil, r.command, args...)
	if err != nil {
		return fmt.Errorf("external training: %w", err)
	}

	r.logger.Debug("trainer output", zap.ByteString("output", bytes.TrimSpace(out)))

	return nil
}

// Entity is one model prediction over a document.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type nerResponse struct {
	Entities []Entity `json:"entities"`
}

// Recognize runs the NER model at modelPath over the text and returns the
// predicted entities. The document travels over stdin, predictions come back
// as JSON on stdout.
func (r *Runner) Recognize(ctx context.Context, modelPath, text string) ([]Entity, error) {
	if modelPath == "" {
		return nil, errors.New("model path is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("document text is empty")
	}

	out, err := r.runner.Run(ctx, strings.NewReader(text), r.command, "ner", "--model", modelPath)
	if err != nil {
		return nil, fmt.Errorf("ner inference: %w", err)
	}

	var resp nerResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("parsing ner output: %w", err)
	}

	r.logger.Debug("ner inference finished",
		zap.String("model", modelPath),
		zap.Int("entities", len(resp.Entities)),
	)

	return resp.Entities, nil
}
