package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/wicaksana/cvner/internal/spacy"
)

// Verdict is the categorical recruiter outcome. It is always one of the
// three values below, never free text.
type Verdict string

const (
	VerdictSuitable         Verdict = "suitable"
	VerdictWorthConsidering Verdict = "worth_considering"
	VerdictNotSuitable      Verdict = "not_suitable"
)

// ParseVerdict normalizes a model-provided verdict string into one of the
// three categories. Anything else is an error.
func ParseVerdict(s string) (Verdict, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	switch Verdict(normalized) {
	case VerdictSuitable, VerdictWorthConsidering, VerdictNotSuitable:
		return Verdict(normalized), nil
	default:
		return "", fmt.Errorf("verdict %q is not one of suitable, worth_considering, not_suitable", s)
	}
}

// Summary is a recruiter-style assessment of a candidate against a position.
type Summary struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
	Raw     string  `json:"-"`
}

// Summarizer evaluates extracted CV entities against a target position.
type Summarizer interface {
	Summarize(ctx context.Context, position string, entities []spacy.Entity) (*Summary, error)
}
