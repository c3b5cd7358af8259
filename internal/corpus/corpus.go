// Package corpus serializes cleaned annotation records into the binary
// training corpus consumed by the external trainer. The format is a msgpack
// stream: a fixed header followed by one message per record. Output bytes are
// deterministic for identical input, so re-running preprocessing never churns
// the corpus files.
package corpus

import (
	"bytes"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wicaksana/cvner/internal/annotation"
)

const (
	magic   = "CVNERCORPUS"
	version = 1
)

type header struct {
	Magic   string `msgpack:"magic"`
	Version int    `msgpack:"version"`
	Count   int    `msgpack:"count"`
}

type record struct {
	ID    string `msgpack:"id"`
	Text  string `msgpack:"text"`
	Spans []span `msgpack:"spans"`
}

type span struct {
	Start int    `msgpack:"start"`
	End   int    `msgpack:"end"`
	Label string `msgpack:"label"`
}

// Encode serializes the records into the binary corpus format.
func Encode(records []annotation.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.Encode(header{Magic: magic, Version: version, Count: len(records)}); err != nil {
		return nil, fmt.Errorf("encoding corpus header: %w", err)
	}

	for _, rec := range records {
		spans := make([]span, 0, len(rec.Spans))
		for _, s := range rec.Spans {
			spans = append(spans, span{Start: s.Start, End: s.End, Label: string(s.Label)})
		}
		if err := enc.Encode(record{ID: rec.ID, Text: rec.Text, Spans: spans}); err != nil {
			return nil, fmt.Errorf("encoding corpus record %s: %w", rec.ID, err)
		}
	}

	return buf.Bytes(), nil
}

// Write serializes the records and writes them to path.
func Write(path string, records []annotation.Record) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing corpus file: %w", err)
	}

	return nil
}

// Read loads a binary corpus file back into annotation records.
func Read(path string) ([]annotation.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))

	var head header
	if err := dec.Decode(&head); err != nil {
		return nil, fmt.Errorf("decoding corpus header: %w", err)
	}

	if head.Magic != magic {
		return nil, fmt.Errorf("%s is not a corpus file", path)
	}
	if head.Version != version {
		return nil, fmt.Errorf("unsupported corpus version %d", head.Version)
	}

	records := make([]annotation.Record, 0, head.Count)
	for i := 0; i < head.Count; i++ {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decoding corpus record %d: %w", i, err)
		}

		spans := make([]annotation.Span, 0, len(rec.Spans))
		for _, s := range rec.Spans {
			spans = append(spans, annotation.Span{Start: s.Start, End: s.End, Label: annotation.Label(s.Label)})
		}
		records = append(records, annotation.Record{ID: rec.ID, Text: rec.Text, Spans: spans})
	}

	return records, nil
}
