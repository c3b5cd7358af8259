package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/wicaksana/cvner/internal/annotation"
)

func sampleRecords() []annotation.Record {
	return []annotation.Record{
		{
			ID:   "doc-0000",
			Text: "John Doe, Backend Engineer at Acme",
			Spans: []annotation.Span{
				{Start: 0, End: 8, Label: annotation.LabelName},
				{Start: 10, End: 26, Label: annotation.LabelRole},
				{Start: 30, End: 34, Label: annotation.LabelOrganization},
			},
		},
		{
			ID:    "doc-0001",
			Text:  "Fluent in English and Go",
			Spans: []annotation.Span{{Start: 10, End: 17, Label: annotation.LabelLanguage}},
		},
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Encode(sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := Encode(sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatal("expected identical input to produce identical corpus bytes")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "train.bin")
	records := sampleRecords()

	if err := Write(path, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(loaded) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(loaded))
	}
	if loaded[0].Text != records[0].Text {
		t.Fatalf("unexpected text: %s", loaded[0].Text)
	}
	if loaded[0].Spans[1] != records[0].Spans[1] {
		t.Fatalf("unexpected span: %+v", loaded[0].Spans[1])
	}
}

func TestReadRejectsForeignFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-a-corpus.bin")
	if err := os.WriteFile(path, []byte(`{"random": "json"}`), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := Read(path); err == nil {
		t.Fatal("expected an error for a non-corpus file")
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	t.Parallel()

	records := make([]annotation.Record, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, annotation.Record{ID: string(rune('a' + i)), Text: "text"})
	}

	train1, dev1 := Split(records, 0.2, 42)
	train2, dev2 := Split(records, 0.2, 42)

	if len(train1) != 8 || len(dev1) != 2 {
		t.Fatalf("unexpected split sizes: %d/%d", len(train1), len(dev1))
	}

	for i := range train1 {
		if train1[i].ID != train2[i].ID {
			t.Fatalf("train split differs at %d: %s vs %s", i, train1[i].ID, train2[i].ID)
		}
	}
	for i := range dev1 {
		if dev1[i].ID != dev2[i].ID {
			t.Fatalf("dev split differs at %d: %s vs %s", i, dev1[i].ID, dev2[i].ID)
		}
	}
}

func TestSplitIsDisjointAndComplete(t *testing.T) {
	t.Parallel()

	records := make([]annotation.Record, 0, 25)
	for i := 0; i < 25; i++ {
		records = append(records, annotation.Record{ID: string(rune('a' + i)), Text: "text"})
	}

	train, dev := Split(records, 0.2, 7)

	seen := make(map[string]int)
	for _, r := range train {
		seen[r.ID]++
	}
	for _, r := range dev {
		seen[r.ID]++
	}

	if len(seen) != len(records) {
		t.Fatalf("expected all %d records across both sets, saw %d", len(records), len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("record %s appears %d times", id, count)
		}
	}
}
