package annotation

import (
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// cleanStep rewrites the spans of a single record and returns how many
// spans it dropped.
type cleanStep struct {
	name  string
	apply func(text string, spans []Span) ([]Span, int)
}

// Step describes the result of executing a cleaning step over a batch.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

var cleanSteps = []cleanStep{
	{name: "trim_whitespace", apply: trimSpans},
	{name: "bounds", apply: boundSpans},
	{name: "taxonomy", apply: taxonomySpans},
	{name: "overlap", apply: dedupeSpans},
}

// Clean runs the span cleaning steps over all records in order. After Clean
// every remaining span lies within the record text, carries a taxonomy label,
// starts and ends on non-whitespace, and overlaps no other span. Records are
// never dropped here, only their spans.
func Clean(logger *zap.Logger, records []Record) ([]Record, []Step) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cleaned := make([]Record, len(records))
	copy(cleaned, records)

	steps := make([]Step, 0, len(cleanSteps))
	for _, step := range cleanSteps {
		initial := countSpans(cleaned)
		for i := range cleaned {
			spans, _ := step.apply(cleaned[i].Text, cleaned[i].Spans)
			cleaned[i].Spans = spans
		}
		left := countSpans(cleaned)

		info := Step{Name: step.name, Initial: initial, Dropped: initial - left, Left: left}
		steps = append(steps, info)

		logger.Info("cleaning step",
			zap.String("name", info.Name),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
	}

	return cleaned, steps
}

func countSpans(records []Record) int {
	total := 0
	for _, record := range records {
		total += len(record.Spans)
	}
	return total
}

// trimSpans moves span boundaries inwards past any leading or trailing
// whitespace and drops spans that become empty.
func trimSpans(text string, spans []Span) ([]Span, int) {
	kept := make([]Span, 0, len(spans))
	for _, span := range spans {
		start, end := span.Start, span.End
		if start < 0 || end > len(text) || start >= end {
			// Out-of-bounds spans are handled by the bounds step.
			kept = append(kept, span)
			continue
		}

		for start < end {
			r, size := utf8.DecodeRuneInString(text[start:end])
			if !unicode.IsSpace(r) {
				break
			}
			start += size
		}
		for end > start {
			r, size := utf8.DecodeLastRuneInString(text[start:end])
			if !unicode.IsSpace(r) {
				break
			}
			end -= size
		}

		if start >= end {
			continue
		}

		kept = append(kept, Span{Start: start, End: end, Label: span.Label})
	}
	return kept, len(spans) - len(kept)
}

// boundSpans drops spans that fall outside the document text or are inverted.
func boundSpans(text string, spans []Span) ([]Span, int) {
	kept := make([]Span, 0, len(spans))
	for _, span := range spans {
		if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
			continue
		}
		kept = append(kept, span)
	}
	return kept, len(spans) - len(kept)
}

// taxonomySpans drops spans whose label is not part of the fixed taxonomy.
func taxonomySpans(_ string, spans []Span) ([]Span, int) {
	kept := make([]Span, 0, len(spans))
	for _, span := range spans {
		if !span.Label.Valid() {
			continue
		}
		kept = append(kept, span)
	}
	return kept, len(spans) - len(kept)
}

// dedupeSpans drops spans overlapping an earlier span. The first span listed
// wins, matching how the annotation export orders corrections.
func dedupeSpans(_ string, spans []Span) ([]Span, int) {
	kept := make([]Span, 0, len(spans))
	for _, span := range spans {
		overlaps := false
		for _, existing := range kept {
			if span.Start < existing.End && existing.Start < span.End {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		kept = append(kept, span)
	}
	return kept, len(spans) - len(kept)
}
