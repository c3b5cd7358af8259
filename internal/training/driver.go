// Package training wraps the external trainer: it assembles the run,
// collects the resulting metrics, and reports them to the experiment
// tracker. The search over hyperparameters lives in sweeprun.go.
package training

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/spacy"
	"github.com/wicaksana/cvner/internal/tracker"
)

// Config is the static part of a training run, shared across sweep trials.
type Config struct {
	SpacyConfig string
	TrainCorpus string
	DevCorpus   string
	OutputDir   string
	GPUID       int
}

// Metrics are the entity-level scores the trainer writes into meta.json.
type Metrics struct {
	Precision float64 `json:"ents_p"`
	Recall    float64 `json:"ents_r"`
	F1        float64 `json:"ents_f"`
}

// Result describes a finished training run.
type Result struct {
	OutputDir string
	ModelPath string
	Metrics   Metrics
}

type Driver struct {
	runner  *spacy.Runner
	tracker *tracker.Client // nil when tracking is disabled
	logger  *zap.Logger
}

func NewDriver(runner *spacy.Runner, trackerClient *tracker.Client, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{runner: runner, tracker: trackerClient, logger: logger}
}

// Run drives one training run to completion and returns the best model's
// metrics. Tracker failures are warnings: losing an experiment record must
// not waste a finished training run.
func (d *Driver) Run(ctx context.Context, cfg *Config, hp Hyperparameters) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("training config is required")
	}

	if err := hp.Validate(); err != nil {
		return nil, err
	}

	runID := d.startTracking(ctx, hp)

	err := d.runner.Train(ctx, &spacy.TrainRequest{
		ConfigPath:  cfg.SpacyConfig,
		TrainCorpus: cfg.TrainCorpus,
		DevCorpus:   cfg.DevCorpus,
		OutputDir:   cfg.OutputDir,
		GPUID:       cfg.GPUID,
		Overrides:   hp.Overrides(),
	})
	if err != nil {
		d.finishTracking(ctx, runID, tracker.StateFailed)
		return nil, err
	}

	modelPath := filepath.Join(cfg.OutputDir, "model-best")
	metrics, err := readMetrics(modelPath)
	if err != nil {
		d.finishTracking(ctx, runID, tracker.StateFailed)
		return nil, err
	}

	d.logger.Info("training finished",
		zap.String("model", modelPath),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall),
		zap.Float64("f1", metrics.F1),
	)

	d.logMetrics(ctx, runID, metrics)
	d.finishTracking(ctx, runID, tracker.StateFinished)

	return &Result{OutputDir: cfg.OutputDir, ModelPath: modelPath, Metrics: metrics}, nil
}

func (d *Driver) startTracking(ctx context.Context, hp Hyperparameters) string {
	if d.tracker == nil {
		return ""
	}

	name := "train-" + uuid.NewString()[:8]
	run, err := d.tracker.StartRun(ctx, name, hp.Map())
	if err != nil {
		d.logger.Warn("experiment tracker unavailable, continuing without it", zap.Error(err))
		return ""
	}

	return run.ID
}

func (d *Driver) logMetrics(ctx context.Context, runID string, metrics Metrics) {
	if d.tracker == nil || runID == "" {
		return
	}

	err := d.tracker.LogMetrics(ctx, runID, tracker.Metrics{
		Precision: metrics.Precision,
		Recall:    metrics.Recall,
		F1:        metrics.F1,
	})
	if err != nil {
		d.logger.Warn("posting metrics to tracker failed", zap.Error(err))
	}
}

func (d *Driver) finishTracking(ctx context.Context, runID, state string) {
	if d.tracker == nil || runID == "" {
		return
	}

	if err := d.tracker.FinishRun(ctx, runID, state); err != nil {
		d.logger.Warn("closing tracker run failed", zap.Error(err))
	}
}

type modelMeta struct {
	Performance Metrics `json:"performance"`
}

// readMetrics parses the meta.json the trainer leaves inside the model
// directory.
func readMetrics(modelPath string) (Metrics, error) {
	data, err := os.ReadFile(filepath.Join(modelPath, "meta.json"))
	if err != nil {
		return Metrics{}, fmt.Errorf("reading model meta: %w", err)
	}

	var meta modelMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metrics{}, fmt.Errorf("parsing model meta: %w", err)
	}

	return meta.Performance, nil
}
