package training

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/sweep"
)

// SweepConfig describes a Bayesian hyperparameter search.
type SweepConfig struct {
	Project    string
	Trials     int
	Metric     string
	Parameters map[string]sweep.Parameter
	// Base is the static training configuration; each trial trains into
	// its own subdirectory under Base.OutputDir.
	Base Config
	// Defaults seed the parameters the sweep does not touch.
	Defaults Hyperparameters
}

// SweepRunner drives the search loop: ask the service for a trial, train,
// report the objective, keep the best run.
type SweepRunner struct {
	driver *Driver
	sweeps *sweep.Client
	logger *zap.Logger
}

func NewSweepRunner(driver *Driver, sweeps *sweep.Client, logger *zap.Logger) *SweepRunner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SweepRunner{driver: driver, sweeps: sweeps, logger: logger}
}

// Run executes the sweep and returns the best trial's result. A trial that
// fails to train is reported as failed and the sweep moves on; the sweep as
// a whole only fails when the service does or when no trial succeeds.
func (s *SweepRunner) Run(ctx context.Context, cfg *SweepConfig) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sweep config is required")
	}
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("sweep needs at least one trial")
	}
	if len(cfg.Parameters) == 0 {
		return nil, fmt.Errorf("sweep parameter space is empty")
	}

	metric := cfg.Metric
	if metric == "" {
		metric = "ents_f"
	}

	objective, err := metricSelector(metric)
	if err != nil {
		return nil, err
	}

	created, err := s.sweeps.CreateSweep(ctx, &sweep.CreateSweepRequest{
		Project:    cfg.Project,
		Method:     sweep.MethodBayes,
		Metric:     sweep.Metric{Name: metric, Goal: sweep.GoalMaximize},
		Parameters: cfg.Parameters,
	})
	if err != nil {
		return nil, err
	}

	var (
		best      *Result
		bestScore float64
	)
	for i := 0; i < cfg.Trials; i++ {
		trial, err := s.sweeps.SuggestTrial(ctx, created.ID)
		if err != nil {
			return nil, err
		}

		s.logger.Info("starting sweep trial",
			zap.String("trial_id", trial.ID),
			zap.Int("trial", i+1),
			zap.Int("trials", cfg.Trials),
			zap.Any("params", trial.Params),
		)

		result, err := s.runTrial(ctx, cfg, trial)
		if err != nil {
			s.logger.Warn("sweep trial failed",
				zap.String("trial_id", trial.ID),
				zap.Error(err),
			)
			s.report(ctx, trial.ID, &sweep.TrialResult{State: sweep.StateFailed})
			continue
		}

		score := objective(result.Metrics)
		s.report(ctx, trial.ID, &sweep.TrialResult{State: sweep.StateFinished, Metric: score})

		if best == nil || score > bestScore {
			best = result
			bestScore = score
		}
	}

	if best == nil {
		return nil, fmt.Errorf("all %d sweep trials failed", cfg.Trials)
	}

	s.logger.Info("sweep finished",
		zap.String("best_model", best.ModelPath),
		zap.String("metric", metric),
		zap.Float64("best_score", bestScore),
	)

	return best, nil
}

// metricSelector resolves the sweep objective name to the corresponding
// score from meta.json. The service is told to optimize this metric, so
// reporting any other value would corrupt the search.
func metricSelector(name string) (func(Metrics) float64, error) {
	switch name {
	case "ents_p":
		return func(m Metrics) float64 { return m.Precision }, nil
	case "ents_r":
		return func(m Metrics) float64 { return m.Recall }, nil
	case "ents_f":
		return func(m Metrics) float64 { return m.F1 }, nil
	default:
		return nil, fmt.Errorf("unknown sweep metric %q, expected ents_p, ents_r or ents_f", name)
	}
}

func (s *SweepRunner) runTrial(ctx context.Context, cfg *SweepConfig, trial *sweep.Trial) (*Result, error) {
	hp, err := Merge(cfg.Defaults, trial.Params)
	if err != nil {
		return nil, err
	}

	trialCfg := cfg.Base
	trialCfg.OutputDir = filepath.Join(cfg.Base.OutputDir, "sweep", trial.ID)

	return s.driver.Run(ctx, &trialCfg, hp)
}

func (s *SweepRunner) report(ctx context.Context, trialID string, result *sweep.TrialResult) {
	if err := s.sweeps.ReportResult(ctx, trialID, result); err != nil {
		s.logger.Warn("reporting trial result failed",
			zap.String("trial_id", trialID),
			zap.Error(err),
		)
	}
}
