package pseudo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/spacy"
)

func TestExporterTask(t *testing.T) {
	t.Parallel()

	exporter := NewExporter("output/model-last", zap.NewNop())

	task := exporter.Task(Document{RefID: "cv-01.txt", Text: "John Doe knows Go"}, []spacy.Entity{
		{Text: "John Doe", Label: "NAME", Start: 0, End: 8},
		{Text: "Go", Label: "SKILL", Start: 15, End: 17},
	})

	if task.Data.Text != "John Doe knows Go" {
		t.Fatalf("unexpected task text: %s", task.Data.Text)
	}
	if task.Data.RefID != "cv-01.txt" {
		t.Fatalf("unexpected ref id: %s", task.Data.RefID)
	}

	if len(task.Predictions) != 1 {
		t.Fatalf("expected one prediction block, got %d", len(task.Predictions))
	}

	prediction := task.Predictions[0]
	if prediction.ModelVersion != "output/model-last" {
		t.Fatalf("unexpected model version: %s", prediction.ModelVersion)
	}
	if len(prediction.Result) != 2 {
		t.Fatalf("expected 2 results, got %d", len(prediction.Result))
	}

	first := prediction.Result[0]
	if first.FromName != "label" || first.ToName != "text" || first.Type != "labels" {
		t.Fatalf("unexpected region wiring: %+v", first)
	}
	if first.Value.Start != 0 || first.Value.End != 8 || first.Value.Text != "John Doe" {
		t.Fatalf("unexpected value: %+v", first.Value)
	}
	if len(first.Value.Labels) != 1 || first.Value.Labels[0] != "NAME" {
		t.Fatalf("unexpected labels: %+v", first.Value.Labels)
	}
	if first.ID == "" {
		t.Fatal("expected a region id")
	}
}

func TestExporterTaskDropsUnknownLabels(t *testing.T) {
	t.Parallel()

	exporter := NewExporter("model", zap.NewNop())

	task := exporter.Task(Document{RefID: "cv", Text: "text"}, []spacy.Entity{
		{Text: "x", Label: "GIBBERISH", Start: 0, End: 1},
		{Text: "t", Label: "SKILL", Start: 0, End: 1},
	})

	if len(task.Predictions[0].Result) != 1 {
		t.Fatalf("expected the unknown label to be dropped, got %+v", task.Predictions[0].Result)
	}
	if task.Predictions[0].Result[0].Value.Labels[0] != "SKILL" {
		t.Fatalf("wrong prediction survived: %+v", task.Predictions[0].Result[0])
	}
}

func TestWriteTasks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tasks.json")
	exporter := NewExporter("model", zap.NewNop())

	tasks := []Task{
		exporter.Task(Document{RefID: "a", Text: "some text"}, nil),
	}

	if err := WriteTasks(path, tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written file is not valid json: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 task, got %d", len(decoded))
	}
}

func TestLoadDocumentsFromDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"b.txt":    "second cv",
		"a.txt":    "first cv",
		"skip.pdf": "binary stuff",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	docs, err := LoadDocuments(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].RefID != "a.txt" || docs[1].RefID != "b.txt" {
		t.Fatalf("expected sorted txt files, got %+v", docs)
	}
	if docs[0].Text != "first cv" {
		t.Fatalf("unexpected text: %s", docs[0].Text)
	}
}

func TestLoadDocumentsFromJSONArray(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "unlabeled.json")
	if err := os.WriteFile(path, []byte(`["cv one", "cv two"]`), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docs, err := LoadDocuments(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].RefID != "doc-0000" || docs[1].Text != "cv two" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
}

func TestLoadDocumentsMissingPath(t *testing.T) {
	t.Parallel()

	if _, err := LoadDocuments(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}
