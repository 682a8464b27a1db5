package embed

import (
	"testing"

	"github.com/hpungsan/carryon/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		embedder string
		dims     int
		want     string
		wantErr  bool
	}{
		{"default config", "", 0, "hash-512", false},
		{"hash with dims", "HASH", 128, "hash-128", false},
		{"openai", "openai", 0, "", false},
		{"unknown", "word2vec", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.embedder != "" {
				cfg.Embedder = tt.embedder
			}
			if tt.dims > 0 {
				cfg.EmbeddingDims = tt.dims
			}
			e, err := New(cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if tt.embedder == BackendOpenAI {
				if _, ok := e.(*OpenAIEmbedder); !ok {
					t.Errorf("New() = %T, want *OpenAIEmbedder", e)
				}
				return
			}
			if e.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", e.Name(), tt.want)
			}
		})
	}
}
