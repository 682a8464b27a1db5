package embed

import (
	"fmt"
	"strings"

	"github.com/hpungsan/carryon/internal/config"
)

// Backend names accepted by New.
const (
	BackendHash   = "hash"
	BackendOpenAI = "openai"
)

// New builds the embedder selected by cfg.Embedder. An empty name selects
// the offline hash embedder.
func New(cfg *config.Config) (Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Embedder)) {
	case "", BackendHash:
		return NewHashEmbedder(cfg.EmbeddingDims), nil
	case BackendOpenAI:
		return NewOpenAIEmbedder(func(o *OpenAIOptions) {
			if cfg.EmbeddingModel != "" {
				o.Model = cfg.EmbeddingModel
			}
			o.APIKey = cfg.OpenAIAPIKey
			o.BaseURL = cfg.OpenAIBaseURL
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q (want hash or openai)", cfg.Embedder)
	}
}
