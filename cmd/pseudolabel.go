package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/logger"
	"github.com/wicaksana/cvner/internal/pseudo"
	"github.com/wicaksana/cvner/internal/spacy"
)

var pseudoLabelCmd = &cobra.Command{
	Use:   "pseudo-label",
	Short: "Label unannotated documents with a trained model and export Label Studio tasks",
	Run: func(cmd *cobra.Command, _ []string) {
		pseudoLabel(cmd)
	},
}

func init() {
	rootCmd.AddCommand(pseudoLabelCmd)

	pseudoLabelCmd.Flags().StringP("input", "i", "", "text file, directory of .txt files, or JSON string array to label")
	pseudoLabelCmd.Flags().StringP("model", "m", "", "trained model directory")
	pseudoLabelCmd.Flags().StringP("out", "o", "tasks.json", "output file for the Label Studio tasks")

	pseudoLabelCmd.MarkFlagRequired("input")
	pseudoLabelCmd.MarkFlagRequired("model")
}

func pseudoLabel(cmd *cobra.Command) {
	ctx := context.Background()

	log := logger.WithStage(newLogger(), "pseudo-label")

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	input := cmd.Flag("input").Value.String()
	modelPath := cmd.Flag("model").Value.String()
	out := cmd.Flag("out").Value.String()

	command := ""
	if config.Spacy != nil {
		command = config.Spacy.Command
	}

	runner := spacy.New(command, log)
	if err := runner.CheckAvailable(); err != nil {
		log.Fatal("checking the recognizer command", zap.Error(err))
	}

	docs, err := pseudo.LoadDocuments(input)
	if err != nil {
		log.Fatal("loading documents", zap.Error(err), zap.String("input", input))
	}

	log.Info("labelling documents", zap.Int("count", len(docs)), zap.String("model", modelPath))

	exporter := pseudo.NewExporter(filepath.Base(strings.TrimRight(modelPath, "/")), log)

	tasks := make([]pseudo.Task, 0, len(docs))
	failed := 0
	for _, doc := range docs {
		entities, err := runner.Recognize(ctx, modelPath, doc.Text)
		if err != nil {
			failed++
			log.Warn("skipping document", zap.Error(err), zap.String("ref_id", doc.RefID))
			continue
		}

		tasks = append(tasks, exporter.Task(doc, entities))
	}

	if len(tasks) == 0 {
		log.Fatal("no documents could be labelled", zap.Int("failed", failed))
	}

	if err := pseudo.WriteTasks(out, tasks); err != nil {
		log.Fatal("writing tasks", zap.Error(err), zap.String("path", out))
	}

	log.Info("tasks written",
		zap.Int("tasks", len(tasks)),
		zap.Int("failed", failed),
		zap.String("path", out),
	)
	fmt.Printf("wrote %d tasks to %s\n", len(tasks), out)
}
