package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query     string  // required
	Limit     int     // default: 5, max: 50
	Threshold float64 // minimum score in [0, 1], default 0
	Filter    string  // e.g. area=='session_state'
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items  []vectorstore.Document `json:"items"`
	Count  int                    `json:"count"`
	Filter string                 `json:"filter,omitempty"`
}

// Search runs a similarity search over stored documents.
func Search(ctx context.Context, deps *Deps, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	filter, err := vectorstore.ParseFilter(input.Filter)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)

	docs, err := deps.Store.SearchSimilarityThreshold(ctx, query, limit, input.Threshold, filter)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []vectorstore.Document{}
	}
	return &SearchOutput{
		Items:  docs,
		Count:  len(docs),
		Filter: filter.String(),
	}, nil
}
