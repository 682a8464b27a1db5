package continuity

import (
	"context"

	"github.com/hpungsan/carryon/internal/vectorstore"
)

// Store is the similarity store capture and recall work against.
type Store interface {
	SearchSimilarityThreshold(ctx context.Context, query string, limit int, threshold float64, filter vectorstore.Filter) ([]vectorstore.Document, error)
	InsertText(ctx context.Context, text string, metadata map[string]string) (string, error)
	DeleteDocumentsByQuery(ctx context.Context, query string, threshold float64, filter vectorstore.Filter) ([]vectorstore.Document, error)
}

// Replacer is implemented by stores that can delete and insert atomically.
// Capture prefers it over separate delete and insert calls.
type Replacer interface {
	Replace(ctx context.Context, in vectorstore.ReplaceInput) (*vectorstore.ReplaceResult, error)
}

// StoreFunc opens the store for one unit of work.
type StoreFunc func(ctx context.Context) (Store, error)

// StaticStore returns a StoreFunc that always yields s.
func StaticStore(s Store) StoreFunc {
	return func(context.Context) (Store, error) { return s, nil }
}

// Turn is what capture and recall see of the conversation at one point.
type Turn struct {
	ContextID   string
	Counter     int    // messages so far, including this turn's
	Transcript  string // full transcript text, consumed by capture
	UserMessage string // consumed by recall
}
