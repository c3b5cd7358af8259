package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/ai"
	"github.com/wicaksana/cvner/internal/ai/gemini"
	"github.com/wicaksana/cvner/internal/logger"
	"github.com/wicaksana/cvner/internal/pdf"
	"github.com/wicaksana/cvner/internal/secrets"
	"github.com/wicaksana/cvner/internal/spacy"
)

// inferReport is the JSON document the infer command emits.
type inferReport struct {
	Document string         `json:"document"`
	Position string         `json:"position,omitempty"`
	Entities []spacy.Entity `json:"entities"`
	Summary  *ai.Summary    `json:"summary,omitempty"`
}

var inferCmd = &cobra.Command{
	Use:   "infer <cv.pdf>",
	Short: "Extract entities from a CV and, optionally, ask for a recruiter verdict",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		infer(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inferCmd)

	inferCmd.Flags().StringP("model", "m", "", "trained model directory")
	inferCmd.Flags().StringP("position", "p", "", "target position for the verdict, prompted for when empty")
	inferCmd.Flags().StringP("out", "o", "", "write the report to a file instead of stdout")

	inferCmd.MarkFlagRequired("model")
}

func infer(cmd *cobra.Command, document string) {
	ctx := context.Background()

	log := logger.WithStage(newLogger(), "infer")

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	if err := pdf.CheckAvailable(); err != nil {
		log.Fatal("checking the pdf extractor", zap.Error(err))
	}

	command := ""
	if config.Spacy != nil {
		command = config.Spacy.Command
	}

	runner := spacy.New(command, log)
	if err := runner.CheckAvailable(); err != nil {
		log.Fatal("checking the recognizer command", zap.Error(err))
	}

	text, err := pdf.New(log).Extract(ctx, document)
	if err != nil {
		log.Fatal("extracting text", zap.Error(err), zap.String("document", document))
	}

	log.Info("extracted text", zap.String("document", document), zap.Int("characters", len(text)))

	modelPath := cmd.Flag("model").Value.String()

	entities, err := runner.Recognize(ctx, modelPath, text)
	if err != nil {
		log.Fatal("recognizing entities", zap.Error(err))
	}

	log.Info("recognized entities", zap.Int("count", len(entities)))

	report := &inferReport{
		Document: document,
		Entities: entities,
	}

	if config.AI != nil && config.AI.Enabled {
		position := strings.TrimSpace(cmd.Flag("position").Value.String())
		if position == "" {
			position, err = promptPosition()
			if err != nil {
				log.Fatal("reading the target position", zap.Error(err))
			}
		}
		report.Position = position

		// A broken verdict service must not cost us the extraction result.
		summary, err := summarize(ctx, config.AI, position, entities, log)
		if err != nil {
			log.Warn("skipping the recruiter verdict", zap.Error(err))
		} else {
			report.Summary = summary
		}
	}

	if err := writeReport(cmd.Flag("out").Value.String(), report); err != nil {
		log.Fatal("writing the report", zap.Error(err))
	}

	if report.Summary != nil {
		fmt.Printf("verdict: %s (%s)\n", report.Summary.Verdict, report.Summary.Reason)
	}
}

func promptPosition() (string, error) {
	prompt := promptui.Prompt{
		Label: "Target position",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("position must not be empty")
			}
			return nil
		},
	}

	position, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(position), nil
}

func summarize(ctx context.Context, cfg *AIConfig, position string, entities []spacy.Entity, log *zap.Logger) (*ai.Summary, error) {
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
	if err != nil {
		return nil, err
	}

	var summarizer ai.Summarizer = gemini.NewSummarizer(generator, cfg.Gemini.MaxLogLength, log)

	return summarizer.Summarize(ctx, position, entities)
}

func writeReport(path string, report *inferReport) error {
	pretty, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if path == "" {
		fmt.Println(string(pretty))
		return nil
	}

	return os.WriteFile(path, append(pretty, '\n'), 0o644)
}
