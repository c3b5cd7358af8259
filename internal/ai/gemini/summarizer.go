package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/ai"
	"github.com/wicaksana/cvner/internal/logger"
	"github.com/wicaksana/cvner/internal/spacy"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Summarizer turns extracted CV entities into a recruiter verdict via Gemini.
type Summarizer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewSummarizer(generator contentGenerator, maxLogLength int, log *zap.Logger) *Summarizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Summarizer{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Summarize asks the model whether the candidate fits the position. The
// verdict is strictly one of the three categories; a response outside them
// is treated as a failure.
func (s *Summarizer) Summarize(ctx context.Context, position string, entities []spacy.Entity) (*ai.Summary, error) {
	position = strings.TrimSpace(position)
	if position == "" {
		return nil, fmt.Errorf("target position is required")
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no entities to evaluate")
	}

	entitiesJSON, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal entities payload: %w", err)
	}

	prompt := buildPrompt(position, string(entitiesJSON))

	s.logger.Debug("gemini summary request",
		zap.String("position", position),
		zap.Int("entities", len(entities)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini summary response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, s.maxLogLen)),
	)

	summary, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	summary.Raw = raw
	return summary, nil
}

func buildPrompt(position, entitiesJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Position: {{POSITION}}\n\nEntities:\n{{ENTITIES_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{POSITION}}", position)
	prompt = strings.ReplaceAll(prompt, "{{ENTITIES_JSON}}", entitiesJSON)
	return prompt
}

func parseResponse(raw string) (*ai.Summary, error) {
	cleaned := extractJSON(raw)

	var data struct {
		Verdict string `json:"verdict"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	verdict, err := ai.ParseVerdict(data.Verdict)
	if err != nil {
		return nil, err
	}

	return &ai.Summary{
		Verdict: verdict,
		Reason:  strings.TrimSpace(data.Reason),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
