package vectorstore

import (
	"context"
	"fmt"

	"github.com/hpungsan/carryon/internal/db"
	"github.com/hpungsan/carryon/internal/embed"
	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/record"
)

// RestoreMode controls what Restore does when a document id already exists.
type RestoreMode string

const (
	RestoreError   RestoreMode = "error"   // abort on any collision, nothing written
	RestoreReplace RestoreMode = "replace" // overwrite the existing document
	RestoreRename  RestoreMode = "rename"  // store under a fresh id
)

// RestoreResult reports the outcome of Restore.
type RestoreResult struct {
	Restored   int
	Collisions []string          // ids that already existed
	Renamed    map[string]string // old id -> new id, rename mode only
}

// Restore writes previously exported documents back, keeping their ids and
// creation times. Texts are re-embedded with the current embedder. All
// writes happen in one transaction.
func (s *Store) Restore(ctx context.Context, docs []Document, mode RestoreMode) (*RestoreResult, error) {
	switch mode {
	case RestoreError, RestoreReplace, RestoreRename:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}
	res := &RestoreResult{}
	if len(docs) == 0 {
		return res, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("document %d: id is required", i))
		}
		if d.Text == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("document %s: text is required", d.ID))
		}
		texts[i] = record.EmbeddingText(d.Text, d.Metadata)
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("embed documents: %w", err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	for i, d := range docs {
		id := d.ID
		_, err := db.GetDocument(ctx, tx, id)
		switch {
		case err == nil:
			res.Collisions = append(res.Collisions, id)
			switch mode {
			case RestoreError:
				continue
			case RestoreReplace:
				if _, err := db.DeleteDocuments(ctx, tx, []string{id}); err != nil {
					return nil, err
				}
			case RestoreRename:
				id = s.newID(now)
				if res.Renamed == nil {
					res.Renamed = map[string]string{}
				}
				res.Renamed[d.ID] = id
			}
		case !errors.Is(err, errors.ErrNotFound):
			return nil, err
		}
		if mode == RestoreError && len(res.Collisions) > 0 {
			continue
		}

		created := d.CreatedAt.UnixMilli()
		if d.CreatedAt.IsZero() {
			created = now.UnixMilli()
		}
		row := &db.Document{
			ID:             id,
			Text:           d.Text,
			Metadata:       d.Metadata,
			TextChars:      record.CountChars(d.Text),
			TokensEstimate: record.EstimateTokens(d.Text),
			Embedding:      embed.Encode(vectors[i]),
			Embedder:       s.embedder.Name(),
			Dims:           len(vectors[i]),
			CreatedAt:      created,
		}
		if err := db.InsertDocument(ctx, tx, row); err != nil {
			return nil, err
		}
		res.Restored++
	}

	if mode == RestoreError && len(res.Collisions) > 0 {
		res.Restored = 0
		return res, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return res, nil
}
