package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	enriched := WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	enriched.Info("must not panic")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	WithCommonFields(log, "gemini", "gemini-2.5-flash").Info("generate")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field to be gemini, got %q", ctx[FieldProvider])
	}

	if ctx[FieldModel] != "gemini-2.5-flash" {
		t.Fatalf("expected model field, got %q", ctx[FieldModel])
	}
}

func TestWithSession(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithSession(zap.New(core), "abc-123").Info("analysis")
	WithSession(zap.New(core), "  ").Info("no session")

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if got := entries[0].ContextMap()[FieldSession]; got != "abc-123" {
		t.Fatalf("unexpected session field: %v", got)
	}

	if _, ok := entries[1].ContextMap()[FieldSession]; ok {
		t.Fatalf("blank session id must not be logged")
	}
}

func TestNewLogger(t *testing.T) {
	log, err := New(Options{JSON: true, Debug: true, OutputPaths: []string{"stdout"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
}
