package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: FieldProvider, Value: "gemini"},
		StringField{Key: "  ", Value: "ignored"},
		StringField{Key: FieldModel, Value: "   "},
		StringField{Key: FieldStage, Value: " infer "},
	)

	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldProvider || fields[0].String != "gemini" {
		t.Fatalf("unexpected first field: %+v", fields[0])
	}
	if fields[1].Key != FieldStage || fields[1].String != "infer" {
		t.Fatalf("unexpected second field: %+v", fields[1])
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	log := WithFields(nil, zap.String("k", "v"))
	if log == nil {
		t.Fatal("expected a usable logger")
	}
	log.Info("should not panic")
}

func TestWithStage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := WithStage(zap.New(core), "preprocess")

	log.Info("cleaning annotations")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx[FieldStage] != "preprocess" {
		t.Fatalf("expected stage field, got %v", ctx)
	}
}

func TestWithCommonFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := WithCommonFields(zap.New(core), "gemini", "gemini-2.5-flash")

	log.Info("request")

	ctx := logs.All()[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field, got %v", ctx)
	}
	if ctx[FieldModel] != "gemini-2.5-flash" {
		t.Fatalf("expected model field, got %v", ctx)
	}
}

func TestWithCommonFieldsSkipsEmptyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := WithCommonFields(zap.New(core), "gemini", "")

	log.Info("request")

	ctx := logs.All()[0].ContextMap()
	if _, ok := ctx[FieldModel]; ok {
		t.Fatal("expected empty model to be omitted")
	}
}
