package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 4 << 20

// ImportMode controls collision behavior during import.
type ImportMode = vectorstore.RestoreMode

const (
	ImportModeError   = vectorstore.RestoreError   // fail on collision (atomic)
	ImportModeReplace = vectorstore.RestoreReplace // overwrite on collision
	ImportModeRename  = vectorstore.RestoreRename  // fresh id on collision
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Renamed  map[string]string `json:"renamed,omitempty"`
	Errors   []ImportError     `json:"errors"`
}

// ImportError describes a line or document that was not imported.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import reads a JSONL export and restores its documents.
// In error mode any unreadable line or id collision aborts the whole import
// and nothing is written. In the other modes bad lines are skipped and
// reported.
func Import(ctx context.Context, deps *Deps, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeRename:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}
	if err := ValidatePath(input.Path, PathCheckRead, deps.Config); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	docs, parseErrors := parseExport(file)
	out := &ImportOutput{Errors: []ImportError{}}
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		out.Errors = parseErrors
		return out, nil
	}
	out.Errors = append(out.Errors, parseErrors...)
	out.Skipped = len(parseErrors)

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("import")
	}
	res, err := deps.Store.Restore(ctx, docs, input.Mode)
	if err != nil {
		return nil, err
	}

	out.Imported = res.Restored
	out.Renamed = res.Renamed
	if input.Mode == ImportModeError {
		for _, id := range res.Collisions {
			out.Errors = append(out.Errors, ImportError{
				ID:      id,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("document with id %q already exists", id),
			})
		}
	}
	return out, nil
}

// parseExport reads every document line, skipping the header.
func parseExport(r io.Reader) ([]vectorstore.Document, []ImportError) {
	var (
		docs []vectorstore.Document
		errs []ImportError
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var probe struct {
			Header bool `json:"_carryon_export"`
			ExportRecord
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			errs = append(errs, ImportError{Line: line, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if probe.Header {
			continue
		}
		rec := probe.ExportRecord
		switch {
		case rec.ID == "":
			errs = append(errs, ImportError{Line: line, Code: "INVALID_RECORD", Message: "missing id field"})
			continue
		case rec.Text == "":
			errs = append(errs, ImportError{Line: line, ID: rec.ID, Code: "INVALID_RECORD", Message: "missing text field"})
			continue
		}

		doc := vectorstore.Document{ID: rec.ID, Text: rec.Text, Metadata: rec.Metadata}
		if rec.CreatedAt > 0 {
			doc.CreatedAt = time.UnixMilli(rec.CreatedAt)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: line, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return docs, errs
}
