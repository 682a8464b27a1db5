package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/errors"
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// New builds the summarizer selected by cfg.SummarizerProvider.
// The "none" provider (and an empty one) returns a summarizer whose every
// call fails with SUMMARIZER_UNAVAILABLE.
func New(cfg *config.Config) (Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.SummarizerProvider))
	apply := func(apiKey string) func(o *Options) {
		return func(o *Options) {
			if cfg.SummarizerModel != "" {
				o.Model = cfg.SummarizerModel
			}
			o.UtilityModel = cfg.UtilityModel
			o.APIKey = apiKey
			if cfg.SummarizerTimeoutSeconds > 0 {
				o.Timeout = time.Duration(cfg.SummarizerTimeoutSeconds) * time.Second
			}
		}
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAI(apply(cfg.OpenAIAPIKey), func(o *Options) { o.BaseURL = cfg.OpenAIBaseURL }), nil
	case ProviderAnthropic:
		if strings.HasPrefix(cfg.SummarizerModel, "gpt-") {
			// the shared default model name belongs to OpenAI
			return NewAnthropic(apply(cfg.AnthropicAPIKey), func(o *Options) { o.Model = DefaultAnthropicModel }), nil
		}
		return NewAnthropic(apply(cfg.AnthropicAPIKey)), nil
	case "", ProviderNone:
		return Unavailable(ProviderNone), nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown summarizer provider %q (want openai, anthropic or none)", cfg.SummarizerProvider))
	}
}

// Unavailable returns a summarizer that always fails with SUMMARIZER_UNAVAILABLE.
func Unavailable(provider string) Summarizer {
	return Func(func(context.Context, string, string, bool) (string, error) {
		return "", errors.NewSummarizerUnavailable(provider)
	})
}
