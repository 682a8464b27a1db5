package continuity

import (
	"context"
	"fmt"
	"sync"

	"github.com/hpungsan/carryon/internal/vectorstore"
)

// fakeStore scores every document at a fixed similarity.
type fakeStore struct {
	mu     sync.Mutex
	docs   []vectorstore.Document
	score  float64
	nextID int

	searchErr error
	deleteErr error
	insertErr error

	searches int
	deletes  int
	inserts  int
}

func newFakeStore(score float64) *fakeStore {
	return &fakeStore{score: score}
}

func (f *fakeStore) SearchSimilarityThreshold(_ context.Context, _ string, limit int, threshold float64, filter vectorstore.Filter) ([]vectorstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matchLocked(limit, threshold, filter), nil
}

func (f *fakeStore) DeleteDocumentsByQuery(_ context.Context, _ string, threshold float64, filter vectorstore.Filter) ([]vectorstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	matched := f.matchLocked(0, threshold, filter)
	gone := map[string]bool{}
	for _, d := range matched {
		gone[d.ID] = true
	}
	kept := f.docs[:0]
	for _, d := range f.docs {
		if !gone[d.ID] {
			kept = append(kept, d)
		}
	}
	f.docs = kept
	return matched, nil
}

func (f *fakeStore) InsertText(_ context.Context, text string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.docs = append(f.docs, vectorstore.Document{ID: id, Text: text, Metadata: metadata})
	return id, nil
}

func (f *fakeStore) matchLocked(limit int, threshold float64, filter vectorstore.Filter) []vectorstore.Document {
	if f.score < threshold {
		return nil
	}
	var out []vectorstore.Document
	// newest first
	for i := len(f.docs) - 1; i >= 0; i-- {
		d := f.docs[i]
		if filter.Match(d.Metadata) {
			d.Score = f.score
			out = append(out, d)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeStore) all() []vectorstore.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vectorstore.Document(nil), f.docs...)
}

// fakeReplacer adds an atomic Replace to fakeStore.
type fakeReplacer struct {
	*fakeStore
	replaces int
}

func (r *fakeReplacer) Replace(ctx context.Context, in vectorstore.ReplaceInput) (*vectorstore.ReplaceResult, error) {
	r.replaces++
	deleted, err := r.DeleteDocumentsByQuery(ctx, in.Query, in.Threshold, in.Filter)
	if err != nil {
		return nil, err
	}
	id, err := r.InsertText(ctx, in.Text, in.Metadata)
	if err != nil {
		return nil, err
	}
	return &vectorstore.ReplaceResult{Deleted: deleted, ID: id}, nil
}
