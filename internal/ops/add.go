package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/record"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Text     string            // required
	Metadata map[string]string // optional
}

// AddOutput contains the result of the Add operation.
type AddOutput struct {
	ID             string `json:"id"`
	TextChars      int    `json:"text_chars"`
	TokensEstimate int    `json:"tokens_estimate"`
}

// Add stores a free-form document. Metadata keys must be non-empty.
func Add(ctx context.Context, deps *Deps, input AddInput) (*AddOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	for k := range input.Metadata {
		if strings.TrimSpace(k) == "" {
			return nil, errors.NewInvalidRequest("metadata keys must not be empty")
		}
	}

	id, err := deps.Store.InsertText(ctx, input.Text, input.Metadata)
	if err != nil {
		return nil, err
	}
	return &AddOutput{
		ID:             id,
		TextChars:      record.CountChars(input.Text),
		TokensEstimate: record.EstimateTokens(input.Text),
	}, nil
}
