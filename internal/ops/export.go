package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/record"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// ExportSchemaVersion is written to every export header.
const ExportSchemaVersion = "1.0"

const exportPageSize = 200

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string // optional, default: ~/.carryon/exports/<label>-<timestamp>.jsonl
	Filter string // optional
	Label  string // file name prefix for the default path, default "all"
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	CarryonExport bool   `json:"_carryon_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	Embedder      string `json:"embedder"`
}

// ExportRecord is one document line. Embeddings are not exported; they are
// rebuilt on import with whatever embedder is configured then.
type ExportRecord struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt int64             `json:"created_at"` // unix millis
}

// Export writes matching documents to a JSONL file: a header line, then one
// line per document, newest first. The file is written to a temp name and
// renamed into place so an existing export survives a failure.
func Export(ctx context.Context, deps *Deps, input ExportInput) (*ExportOutput, error) {
	filter, err := vectorstore.ParseFilter(input.Filter)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	path := input.Path
	if path == "" {
		if path, err = defaultExportPath(input.Label, now); err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(path, PathCheckWrite, deps.Config); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ExportHeader{
		CarryonExport: true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
		Embedder:      deps.Store.Embedder().Name(),
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	count := 0
	for offset := 0; ; offset += exportPageSize {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		docs, total, err := deps.Store.List(ctx, filter, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if err := enc.Encode(ExportRecord{
				ID:        d.ID,
				Text:      d.Text,
				Metadata:  d.Metadata,
				CreatedAt: d.CreatedAt.UnixMilli(),
			}); err != nil {
				return nil, errors.NewInternal(err)
			}
			count++
		}
		if offset+len(docs) >= total || len(docs) == 0 {
			break
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if isSymlink(path) {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}
	// Windows refuses to rename over an existing file; keep the old one.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{Path: path, Count: count, ExportedAt: now.Unix()}, nil
}

func defaultExportPath(label string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := "all"
	if label != "" {
		name = SanitizeForFilename(record.Normalize(label))
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))), nil
}
