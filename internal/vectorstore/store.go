// Package vectorstore is a similarity-searchable document store on SQLite.
// Documents are embedded on insert and scored by cosine similarity on read.
package vectorstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/carryon/internal/db"
	"github.com/hpungsan/carryon/internal/embed"
	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/record"
)

// Document is a stored text as returned by reads. Score is set by searches.
type Document struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	Metadata       map[string]string `json:"metadata"`
	Score          float64           `json:"score,omitempty"`
	TextChars      int               `json:"text_chars"`
	TokensEstimate int               `json:"tokens_estimate"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Store implements similarity search over the documents table.
type Store struct {
	db       *sql.DB
	embedder embed.Embedder
	now      func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store over an initialized database.
func New(conn *sql.DB, e embed.Embedder, opts ...Option) *Store {
	s := &Store{
		db:       conn,
		embedder: e,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embedder returns the embedder used for queries and inserts.
func (s *Store) Embedder() embed.Embedder { return s.embedder }

// SearchSimilarityThreshold returns up to limit documents scoring at least
// threshold against query and matching filter, best first. Ties go to the
// newest document. limit <= 0 means no limit.
func (s *Store) SearchSimilarityThreshold(ctx context.Context, query string, limit int, threshold float64, filter Filter) ([]Document, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	return s.search(ctx, s.db, query, limit, threshold, filter)
}

// InsertText embeds text and stores it with metadata. Returns the new id.
func (s *Store) InsertText(ctx context.Context, text string, metadata map[string]string) (string, error) {
	doc, err := s.prepare(ctx, text, metadata)
	if err != nil {
		return "", err
	}
	if err := db.InsertDocument(ctx, s.db, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// DeleteDocumentsByQuery deletes every document search would return for
// query, threshold and filter with no limit, and returns what it removed.
func (s *Store) DeleteDocumentsByQuery(ctx context.Context, query string, threshold float64, filter Filter) ([]Document, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	return s.deleteByQuery(ctx, s.db, query, threshold, filter)
}

// ReplaceInput describes a delete-by-query followed by an insert.
type ReplaceInput struct {
	Query     string
	Threshold float64
	Filter    Filter
	Text      string
	Metadata  map[string]string
}

// ReplaceResult reports what Replace removed and the id it inserted.
type ReplaceResult struct {
	Deleted []Document
	ID      string
}

// Replace runs DeleteDocumentsByQuery and InsertText in one transaction, so
// readers never observe the gap between them and a failed insert keeps the
// old documents.
func (s *Store) Replace(ctx context.Context, in ReplaceInput) (*ReplaceResult, error) {
	if err := validateThreshold(in.Threshold); err != nil {
		return nil, err
	}
	// Embed outside the transaction; remote embedders can be slow.
	doc, err := s.prepare(ctx, in.Text, in.Metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted, err := s.deleteByQuery(ctx, tx, in.Query, in.Threshold, in.Filter)
	if err != nil {
		return nil, err
	}
	if err := db.InsertDocument(ctx, tx, doc); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ReplaceResult{Deleted: deleted, ID: doc.ID}, nil
}

// Get returns a document by id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	row, err := db.GetDocument(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	doc := toDocument(row)
	return &doc, nil
}

// List returns documents matching filter, newest first, plus the total
// number of matches.
func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Document, int, error) {
	rows, err := db.ListDocuments(ctx, s.db, filter.area(), 0, 0)
	if err != nil {
		return nil, 0, err
	}
	var matched []Document
	for _, r := range rows {
		if filter.Match(r.Metadata) {
			matched = append(matched, toDocument(r))
		}
	}
	total := len(matched)
	if offset >= total {
		return []Document{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// Count returns the number of documents matching filter.
func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	if len(filter) == 0 || (len(filter) == 1 && filter.area() != "") {
		return db.CountDocuments(ctx, s.db, filter.area())
	}
	_, total, err := s.List(ctx, filter, 0, 0)
	return total, err
}

// Delete removes documents by id.
func (s *Store) Delete(ctx context.Context, ids ...string) (int, error) {
	return db.DeleteDocuments(ctx, s.db, ids)
}

func (s *Store) deleteByQuery(ctx context.Context, q db.Querier, query string, threshold float64, filter Filter) ([]Document, error) {
	matches, err := s.search(ctx, q, query, 0, threshold, filter)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	if _, err := db.DeleteDocuments(ctx, q, ids); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *Store) search(ctx context.Context, q db.Querier, query string, limit int, threshold float64, filter Filter) ([]Document, error) {
	qv, err := embed.EmbedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("embed query: %w", err))
	}

	rows, err := db.ListDocuments(ctx, q, filter.area(), 0, 0)
	if err != nil {
		return nil, err
	}
	candidates := rows[:0]
	for _, r := range rows {
		if filter.Match(r.Metadata) {
			candidates = append(candidates, r)
		}
	}
	vectors, err := s.vectors(ctx, q, candidates)
	if err != nil {
		return nil, err
	}

	var out []Document
	for i, r := range candidates {
		score := embed.Score(qv, vectors[i])
		if score < threshold {
			continue
		}
		d := toDocument(r)
		d.Score = score
		out = append(out, d)
	}

	// rows arrive newest first, so a stable sort keeps that order on ties
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// vectors decodes stored embeddings. Rows written by a different embedder
// are re-embedded with the current one and written back best-effort.
func (s *Store) vectors(ctx context.Context, q db.Querier, rows []*db.Document) ([][]float32, error) {
	out := make([][]float32, len(rows))
	var (
		staleIdx   []int
		staleTexts []string
	)
	for i, r := range rows {
		if r.Embedder != s.embedder.Name() {
			staleIdx = append(staleIdx, i)
			staleTexts = append(staleTexts, record.EmbeddingText(r.Text, r.Metadata))
			continue
		}
		v, err := embed.Decode(r.Embedding)
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("document %s: %w", r.ID, err))
		}
		out[i] = v
	}
	if len(staleIdx) == 0 {
		return out, nil
	}

	fresh, err := s.embedder.Embed(ctx, staleTexts)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("re-embed documents: %w", err))
	}
	for j, i := range staleIdx {
		out[i] = fresh[j]
		r := rows[i]
		if err := db.UpdateEmbedding(ctx, q, r.ID, embed.Encode(fresh[j]), s.embedder.Name(), len(fresh[j])); err != nil {
			slog.Debug("re-embedded document not persisted", "id", r.ID, "error", err)
		}
	}
	return out, nil
}

func (s *Store) prepare(ctx context.Context, text string, metadata map[string]string) (*db.Document, error) {
	if text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	v, err := embed.EmbedOne(ctx, s.embedder, record.EmbeddingText(text, metadata))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("embed document: %w", err))
	}
	md := make(map[string]string, len(metadata))
	for k, val := range metadata {
		md[k] = val
	}
	now := s.now()
	return &db.Document{
		ID:             s.newID(now),
		Text:           text,
		Metadata:       md,
		TextChars:      record.CountChars(text),
		TokensEstimate: record.EstimateTokens(text),
		Embedding:      embed.Encode(v),
		Embedder:       s.embedder.Name(),
		Dims:           len(v),
		CreatedAt:      now.UnixMilli(),
	}, nil
}

func (s *Store) newID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

func toDocument(r *db.Document) Document {
	return Document{
		ID:             r.ID,
		Text:           r.Text,
		Metadata:       r.Metadata,
		TextChars:      r.TextChars,
		TokensEstimate: r.TokensEstimate,
		CreatedAt:      time.UnixMilli(r.CreatedAt),
	}
}

func validateThreshold(t float64) error {
	if t < 0 || t > 1 {
		return errors.NewInvalidRequest(fmt.Sprintf("threshold must be within [0, 1], got %v", t))
	}
	return nil
}
