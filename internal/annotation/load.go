package annotation

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Loader reads annotation exports produced by the labelling tooling.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// rawEntities matches the {"entities": [[start, end, label], ...]} object
// sitting next to the text in each exported pair.
type rawEntities struct {
	Entities [][]json.RawMessage `json:"entities"`
}

// Load reads an annotation file laid out as an array of [text, {"entities": ...}]
// pairs. Records that cannot be decoded are skipped with a warning; only an
// unreadable file or a broken top-level document is fatal.
func (l *Loader) Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading annotations: %w", err)
	}

	return l.Parse(data)
}

// Parse decodes the annotation payload. See Load.
func (l *Loader) Parse(data []byte) ([]Record, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing annotations: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for idx, entry := range entries {
		record, err := parseEntry(idx, entry)
		if err != nil {
			l.logger.Warn("skipping malformed annotation record",
				zap.Int("index", idx),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
	}

	l.logger.Info("loaded annotations",
		zap.Int("total", len(entries)),
		zap.Int("accepted", len(records)),
		zap.Int("skipped", len(entries)-len(records)),
	)

	return records, nil
}

func parseEntry(idx int, entry json.RawMessage) (Record, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(entry, &pair); err != nil {
		return Record{}, fmt.Errorf("record is not a pair: %w", err)
	}

	if len(pair) != 2 {
		return Record{}, fmt.Errorf("expected [text, annotations] pair, got %d elements", len(pair))
	}

	var text string
	if err := json.Unmarshal(pair[0], &text); err != nil {
		return Record{}, fmt.Errorf("text element: %w", err)
	}

	if text == "" {
		return Record{}, fmt.Errorf("empty document text")
	}

	var raw rawEntities
	if err := json.Unmarshal(pair[1], &raw); err != nil {
		return Record{}, fmt.Errorf("annotations element: %w", err)
	}

	spans := make([]Span, 0, len(raw.Entities))
	for i, ent := range raw.Entities {
		span, err := parseSpan(ent)
		if err != nil {
			return Record{}, fmt.Errorf("entity %d: %w", i, err)
		}
		spans = append(spans, span)
	}

	return Record{
		ID:    fmt.Sprintf("doc-%04d", idx),
		Text:  text,
		Spans: spans,
	}, nil
}

func parseSpan(ent []json.RawMessage) (Span, error) {
	if len(ent) != 3 {
		return Span{}, fmt.Errorf("expected [start, end, label] triple, got %d elements", len(ent))
	}

	var start, end int
	if err := json.Unmarshal(ent[0], &start); err != nil {
		return Span{}, fmt.Errorf("start offset: %w", err)
	}
	if err := json.Unmarshal(ent[1], &end); err != nil {
		return Span{}, fmt.Errorf("end offset: %w", err)
	}

	var label string
	if err := json.Unmarshal(ent[2], &label); err != nil {
		return Span{}, fmt.Errorf("label: %w", err)
	}

	return Span{Start: start, End: end, Label: Label(label)}, nil
}
