package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/annotation"
	"github.com/wicaksana/cvner/internal/corpus"
	"github.com/wicaksana/cvner/internal/logger"
)

const (
	trainCorpusFile = "train.corpus"
	devCorpusFile   = "dev.corpus"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Clean raw annotations and write the train and dev corpora",
	Run: func(cmd *cobra.Command, _ []string) {
		preprocess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(preprocessCmd)

	preprocessCmd.Flags().StringP("annotations", "a", "", "raw annotations JSON file, overrides data.annotations")
	preprocessCmd.Flags().StringP("out", "o", "", "output directory for the corpora, overrides data.corpus-dir")
}

func preprocess(cmd *cobra.Command) {
	log := logger.WithStage(newLogger(), "preprocess")

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	annotationsPath := strings.TrimSpace(cmd.Flag("annotations").Value.String())
	if annotationsPath == "" && config.Data != nil {
		annotationsPath = config.Data.Annotations
	}
	if annotationsPath == "" {
		log.Fatal("annotations file is required",
			zap.String("hint", "set data.annotations in the config or pass --annotations"),
		)
	}

	outDir := strings.TrimSpace(cmd.Flag("out").Value.String())
	if outDir == "" {
		outDir = config.Data.CorpusDir
	}

	records, err := annotation.NewLoader(log).Load(annotationsPath)
	if err != nil {
		log.Fatal("loading annotations", zap.Error(err), zap.String("path", annotationsPath))
	}

	log.Info("loaded annotations", zap.Int("records", len(records)))

	cleaned, steps := annotation.Clean(log, records)

	dropped := 0
	for _, step := range steps {
		dropped += step.Dropped
	}

	train, dev := corpus.Split(cleaned, config.Data.TestSplit, config.Data.Seed)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal("creating corpus directory", zap.Error(err), zap.String("dir", outDir))
	}

	trainPath := filepath.Join(outDir, trainCorpusFile)
	if err := corpus.Write(trainPath, train); err != nil {
		log.Fatal("writing train corpus", zap.Error(err), zap.String("path", trainPath))
	}

	devPath := filepath.Join(outDir, devCorpusFile)
	if err := corpus.Write(devPath, dev); err != nil {
		log.Fatal("writing dev corpus", zap.Error(err), zap.String("path", devPath))
	}

	log.Info("corpora written",
		zap.Int("train_records", len(train)),
		zap.Int("dev_records", len(dev)),
		zap.Int("spans_dropped", dropped),
		zap.String("train", trainPath),
		zap.String("dev", devPath),
	)
	fmt.Printf("wrote %d train and %d dev records to %s\n", len(train), len(dev), outDir)
}
