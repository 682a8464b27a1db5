package embed

import (
	"context"
	"math"
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Session-State: continue, v2 (résumé)!")
	want := []string{"session", "state", "continue", "v2", "résumé"}
	if !slices.Equal(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestHashEmbedder_Defaults(t *testing.T) {
	h := NewHashEmbedder(0)
	if h.Dims() != DefaultHashDims {
		t.Errorf("Dims() = %d, want %d", h.Dims(), DefaultHashDims)
	}
	if h.Name() != "hash-512" {
		t.Errorf("Name() = %q, want hash-512", h.Name())
	}
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	h := NewHashEmbedder(256)
	ctx := context.Background()

	a, err := h.Embed(ctx, []string{"current task: fix the flaky test", "current task: fix the flaky test"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(a) != 2 || len(a[0]) != 256 {
		t.Fatalf("Embed() shape = %d x %d", len(a), len(a[0]))
	}
	if !slices.Equal(a[0], a[1]) {
		t.Error("same text produced different vectors")
	}

	var norm float64
	for _, f := range a[0] {
		norm += float64(f) * float64(f)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("squared norm = %v, want 1", norm)
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	vecs, err := NewHashEmbedder(16).Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	for _, f := range vecs[0] {
		if f != 0 {
			t.Fatal("empty text should embed to the zero vector")
		}
	}
}

func TestHashEmbedder_Similarity(t *testing.T) {
	h := NewHashEmbedder(512)
	ctx := context.Background()

	vecs, err := h.Embed(ctx, []string{
		"session state continuation context",
		"Session state: continuation context for the next session",
		"grocery list: apples bananas oat milk",
	})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	related := Score(vecs[0], vecs[1])
	unrelated := Score(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("related score %v should exceed unrelated score %v", related, unrelated)
	}
	if related < 0.5 {
		t.Errorf("related score = %v, want >= 0.5", related)
	}
}

func TestHashEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).Embed(ctx, []string{"x"}); err == nil {
		t.Error("Embed() expected error on canceled context")
	}
}
