package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/carryon/internal/continuity"
	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// ForgetInput contains parameters for the Forget operation.
// Exactly one of IDs or Query must be given.
type ForgetInput struct {
	IDs       []string
	Query     string
	Threshold *float64 // default: 0.8, the capture delete threshold
	Filter    string
}

// ForgetOutput contains the result of the Forget operation.
type ForgetOutput struct {
	Deleted int      `json:"deleted"`
	IDs     []string `json:"ids"`
}

// Forget deletes documents by id, or every document that a search for Query
// would return at Threshold with no limit.
func Forget(ctx context.Context, deps *Deps, input ForgetInput) (*ForgetOutput, error) {
	ids := make([]string, 0, len(input.IDs))
	for _, id := range input.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	query := strings.TrimSpace(input.Query)

	switch {
	case len(ids) > 0 && query != "":
		return nil, errors.NewInvalidRequest("specify either ids or query, not both")
	case len(ids) > 0:
		if input.Filter != "" || input.Threshold != nil {
			return nil, errors.NewInvalidRequest("filter and threshold only apply to query deletes")
		}
		n, err := deps.Store.Delete(ctx, ids...)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, errors.NewNotFound(strings.Join(ids, ","))
		}
		return &ForgetOutput{Deleted: n, IDs: ids}, nil
	case query == "":
		return nil, errors.NewInvalidRequest("must specify either ids or query")
	}

	filter, err := vectorstore.ParseFilter(input.Filter)
	if err != nil {
		return nil, err
	}
	threshold := continuity.DeleteThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	deleted, err := deps.Store.DeleteDocumentsByQuery(ctx, query, threshold, filter)
	if err != nil {
		return nil, err
	}
	out := &ForgetOutput{Deleted: len(deleted), IDs: make([]string, len(deleted))}
	for i, d := range deleted {
		out.IDs[i] = d.ID
	}
	return out, nil
}
