package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	if err := WaitFor(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("returned too early: %s", elapsed)
	}
}

func TestWaitForHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitFor(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForNonPositiveDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestOneLine(t *testing.T) {
	got := OneLine("  Senior Go\tengineer\n\n 5 years ")
	if got != "Senior Go engineer 5 years" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "resume text", limit: 0, expect: ""},
		{name: "shorter than limit", input: "resume", limit: 10, expect: "resume"},
		{name: "truncated", input: "percentage match", limit: 10, expect: "percentage..."},
		{name: "counts runes", input: "Разработчик Go", limit: 11, expect: "Разработчик..."},
		{name: "trims whitespace first", input: "  spaced  ", limit: 5, expect: "space..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
