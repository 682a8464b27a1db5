package ops

import (
	"context"

	"github.com/hpungsan/carryon/internal/vectorstore"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Filter string // optional
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []vectorstore.Document `json:"items"`
	Pagination Pagination             `json:"pagination"`
	Sort       string                 `json:"sort"`
}

// List retrieves stored documents, newest first, with pagination.
func List(ctx context.Context, deps *Deps, input ListInput) (*ListOutput, error) {
	filter, err := vectorstore.ParseFilter(input.Filter)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	items, total, err := deps.Store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []vectorstore.Document{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
