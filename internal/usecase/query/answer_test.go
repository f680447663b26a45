package query

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragquery/internal/metrics"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("Cats purr.", "Do cats purr?")
	want := "Context:\nCats purr.\n\nQuestion: Do cats purr?\nAnswer:"
	if got != want {
		t.Errorf("BuildPrompt = %q, want %q", got, want)
	}
}

func TestAnswerGenerator_Success(t *testing.T) {
	gen := &mockGenerator{}
	answer, generated := NewAnswerGenerator(gen).Generate(context.Background(), "ctx", "q")
	if !generated || answer.Text != "answer from ctx" {
		t.Fatalf("unexpected answer %q generated=%v", answer.Text, generated)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != BuildPrompt("ctx", "q") {
		t.Errorf("unexpected prompts %v", gen.prompts)
	}
}

func TestAnswerGenerator_FailureFallsBack(t *testing.T) {
	before := testutil.ToFloat64(metrics.GenerationFallbacksTotal)

	answer, generated := NewAnswerGenerator(&mockGenerator{err: errBoom}).Generate(context.Background(), "ctx", "q")
	if generated {
		t.Error("expected generated=false")
	}
	if answer.Text != FallbackAnswer {
		t.Errorf("expected fallback answer, got %q", answer.Text)
	}
	if got := testutil.ToFloat64(metrics.GenerationFallbacksTotal) - before; got != 1 {
		t.Errorf("expected one fallback counted, got %f", got)
	}
}
