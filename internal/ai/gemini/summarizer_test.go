package gemini

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/ai"
	"github.com/wicaksana/cvner/internal/spacy"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func sampleEntities() []spacy.Entity {
	return []spacy.Entity{
		{Text: "John Doe", Label: "NAME", Start: 0, End: 8},
		{Text: "Go", Label: "SKILL", Start: 20, End: 22},
		{Text: "Backend Engineer", Label: "ROLE", Start: 30, End: 46},
	}
}

func TestSummarize(t *testing.T) {
	stub := &stubGenerator{response: `{"verdict": "suitable", "reason": "Skills match the position."}`}
	summarizer := NewSummarizer(stub, 0, zap.NewNop())

	summary, err := summarizer.Summarize(context.Background(), "Backend Engineer", sampleEntities())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Verdict != ai.VerdictSuitable {
		t.Fatalf("expected suitable verdict, got %q", summary.Verdict)
	}
	if summary.Reason != "Skills match the position." {
		t.Fatalf("unexpected reason: %s", summary.Reason)
	}
	if summary.Raw == "" {
		t.Fatal("expected raw response to be kept")
	}

	if !strings.Contains(stub.lastPrompt, "Backend Engineer") {
		t.Fatal("expected prompt to carry the target position")
	}
	if !strings.Contains(stub.lastPrompt, `"label": "SKILL"`) {
		t.Fatalf("expected prompt to carry the entity payload: %s", stub.lastPrompt)
	}
}

func TestSummarizeHandlesCodeBlock(t *testing.T) {
	stub := &stubGenerator{
		response: "```json\n{\"verdict\": \"worth considering\", \"reason\": \"Partial skill overlap.\"}\n```",
	}
	summarizer := NewSummarizer(stub, 0, zap.NewNop())

	summary, err := summarizer.Summarize(context.Background(), "Data Engineer", sampleEntities())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Verdict != ai.VerdictWorthConsidering {
		t.Fatalf("expected worth_considering, got %q", summary.Verdict)
	}
}

func TestSummarizeRejectsFreeTextVerdict(t *testing.T) {
	stub := &stubGenerator{response: `{"verdict": "probably fine I guess", "reason": "..."}`}
	summarizer := NewSummarizer(stub, 0, zap.NewNop())

	if _, err := summarizer.Summarize(context.Background(), "Backend Engineer", sampleEntities()); err == nil {
		t.Fatal("expected an error for an out-of-category verdict")
	}
}

func TestSummarizeRejectsBrokenResponse(t *testing.T) {
	stub := &stubGenerator{response: "The candidate is great!"}
	summarizer := NewSummarizer(stub, 0, zap.NewNop())

	if _, err := summarizer.Summarize(context.Background(), "Backend Engineer", sampleEntities()); err == nil {
		t.Fatal("expected a parse error for non-JSON output")
	}
}

func TestSummarizeRequiresInputs(t *testing.T) {
	stub := &stubGenerator{response: `{"verdict": "suitable", "reason": "ok"}`}
	summarizer := NewSummarizer(stub, 0, zap.NewNop())

	if _, err := summarizer.Summarize(context.Background(), "", sampleEntities()); err == nil {
		t.Fatal("expected an error for a missing position")
	}
	if _, err := summarizer.Summarize(context.Background(), "Backend Engineer", nil); err == nil {
		t.Fatal("expected an error for empty entities")
	}
}
