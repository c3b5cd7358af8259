package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/logger"
	"github.com/wicaksana/cvner/internal/secrets"
	"github.com/wicaksana/cvner/internal/spacy"
	"github.com/wicaksana/cvner/internal/sweep"
	"github.com/wicaksana/cvner/internal/tracker"
	"github.com/wicaksana/cvner/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the NER model, directly or through a hyperparameter sweep",
	Run: func(cmd *cobra.Command, _ []string) {
		train(cmd)
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringP("output", "o", "", "model output directory, overrides training.output-dir")
	trainCmd.Flags().Bool("no-sweep", false, "train once with the configured parameters even if the sweep is enabled")
}

func train(cmd *cobra.Command) {
	ctx := context.Background()

	log := logger.WithStage(newLogger(), "train")

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	if config.Spacy == nil || config.Spacy.Config == "" {
		log.Fatal("training config is required under spacy.config")
	}

	outputDir := cmd.Flag("output").Value.String()
	if outputDir == "" && config.Training != nil {
		outputDir = config.Training.OutputDir
	}
	if outputDir == "" {
		outputDir = "models"
	}

	runner := spacy.New(config.Spacy.Command, log)
	if err := runner.CheckAvailable(); err != nil {
		log.Fatal("checking the trainer command", zap.Error(err))
	}

	hp := training.Defaults()
	if config.Training != nil && len(config.Training.Params) > 0 {
		hp, err = training.Merge(hp, config.Training.Params)
		if err != nil {
			log.Fatal("applying training.params", zap.Error(err))
		}
	}

	base := training.Config{
		SpacyConfig: config.Spacy.Config,
		TrainCorpus: filepath.Join(config.Data.CorpusDir, trainCorpusFile),
		DevCorpus:   filepath.Join(config.Data.CorpusDir, devCorpusFile),
		OutputDir:   outputDir,
		GPUID:       config.Spacy.GPUID,
	}

	driver := training.NewDriver(runner, newTrackerClient(config.Tracker, log), log)

	noSweep := cmd.Flag("no-sweep").Value.String() == "true"

	var result *training.Result
	if config.Sweep != nil && config.Sweep.Enabled && !noSweep {
		result, err = runSweep(ctx, config, driver, base, hp, log)
	} else {
		result, err = driver.Run(ctx, &base, hp)
	}
	if err != nil {
		log.Fatal("training failed", zap.Error(err))
	}

	log.Info("training finished",
		zap.String("model", result.ModelPath),
		zap.Float64("precision", result.Metrics.Precision),
		zap.Float64("recall", result.Metrics.Recall),
		zap.Float64("f1", result.Metrics.F1),
	)
	fmt.Printf("best model: %s (f1=%.4f)\n", result.ModelPath, result.Metrics.F1)
}

func runSweep(ctx context.Context, config *Config, driver *training.Driver, base training.Config, hp training.Hyperparameters, log *zap.Logger) (*training.Result, error) {
	if config.Sweep.URL == "" {
		return nil, fmt.Errorf("sweep service url is required under sweep.url")
	}
	if len(config.Sweep.Parameters) == 0 {
		return nil, fmt.Errorf("sweep.parameters must describe at least one search dimension")
	}

	token, err := secrets.Load(secrets.Source{
		Name: "sweep api key",
		File: config.Sweep.APIKeyFile,
		Env:  "CVNER_SWEEP_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	runner := training.NewSweepRunner(driver, sweep.New(config.Sweep.URL, token, log), log)

	return runner.Run(ctx, &training.SweepConfig{
		Project:    config.Sweep.Project,
		Trials:     config.Sweep.Trials,
		Metric:     config.Sweep.Metric,
		Parameters: config.Sweep.Parameters,
		Base:       base,
		Defaults:   hp,
	})
}

func newTrackerClient(cfg *TrackerConfig, log *zap.Logger) *tracker.Client {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	token, err := secrets.Load(secrets.Source{
		Name: "tracker api key",
		File: cfg.APIKeyFile,
		Env:  "CVNER_TRACKER_API_KEY",
	})
	if err != nil {
		log.Warn("experiment tracking disabled", zap.Error(err))
		return nil
	}

	if cfg.URL == "" {
		log.Warn("experiment tracking disabled", zap.String("reason", "tracker.url is not set"))
		return nil
	}

	return tracker.New(cfg.URL, token, cfg.Project, log)
}
