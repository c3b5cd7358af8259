// Package pseudo exports model predictions as Label Studio tasks so a human
// can correct them before they are folded back into the training set.
package pseudo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wicaksana/cvner/internal/annotation"
	"github.com/wicaksana/cvner/internal/spacy"
)

// Task is one Label Studio annotation task with model predictions attached.
type Task struct {
	Data        TaskData     `json:"data"`
	Predictions []Prediction `json:"predictions"`
}

type TaskData struct {
	Text  string `json:"text"`
	RefID string `json:"ref_id,omitempty"`
}

type Prediction struct {
	ModelVersion string   `json:"model_version,omitempty"`
	Result       []Result `json:"result"`
}

// Result is a single predicted span in Label Studio's region format.
type Result struct {
	ID       string `json:"id"`
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
	Type     string `json:"type"`
	Value    Value  `json:"value"`
}

type Value struct {
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// Document is an unlabeled input document.
type Document struct {
	RefID string
	Text  string
}

// Exporter builds Label Studio tasks out of raw predictions.
type Exporter struct {
	modelVersion string
	logger       *zap.Logger
}

func NewExporter(modelVersion string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{modelVersion: modelVersion, logger: logger}
}

// Task converts the predictions over one document into a review task.
// Predictions outside the label taxonomy are dropped: the review tool only
// knows the fixed label set.
func (e *Exporter) Task(doc Document, entities []spacy.Entity) Task {
	results := make([]Result, 0, len(entities))
	for _, ent := range entities {
		if !annotation.Label(ent.Label).Valid() {
			e.logger.Warn("dropping prediction with unknown label",
				zap.String("ref_id", doc.RefID),
				zap.String("label", ent.Label),
			)
			continue
		}

		results = append(results, Result{
			ID:       uuid.NewString()[:8],
			FromName: "label",
			ToName:   "text",
			Type:     "labels",
			Value: Value{
				Start:  ent.Start,
				End:    ent.End,
				Text:   ent.Text,
				Labels: []string{ent.Label},
			},
		})
	}

	return Task{
		Data: TaskData{Text: doc.Text, RefID: doc.RefID},
		Predictions: []Prediction{{
			ModelVersion: e.modelVersion,
			Result:       results,
		}},
	}
}

// WriteTasks writes the task batch as a Label Studio import file.
func WriteTasks(path string, tasks []Task) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating task file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}

	return nil
}

// LoadDocuments reads unlabeled documents from path: a directory of .txt
// files (sorted by name), a .json array of strings, or a single plain-text
// file.
func LoadDocuments(path string) ([]Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading unlabeled input: %w", err)
	}

	if info.IsDir() {
		return loadDirectory(path)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadJSONArray(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading unlabeled input: %w", err)
	}

	return []Document{{RefID: filepath.Base(path), Text: string(data)}}, nil
}

func loadDirectory(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading unlabeled directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		docs = append(docs, Document{RefID: name, Text: string(data)})
	}

	return docs, nil
}

func loadJSONArray(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading unlabeled input: %w", err)
	}

	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("parsing unlabeled input: %w", err)
	}

	docs := make([]Document, 0, len(texts))
	for i, text := range texts {
		docs = append(docs, Document{RefID: fmt.Sprintf("doc-%04d", i), Text: text})
	}

	return docs, nil
}
