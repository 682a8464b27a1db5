package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/record"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so that the same queries
// run inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Document is a stored text with its embedding and metadata.
type Document struct {
	ID             string
	Text           string
	Metadata       map[string]string
	TextChars      int
	TokensEstimate int
	Embedding      []byte
	Embedder       string
	Dims           int
	CreatedAt      int64 // unix millis
}

const documentColumns = `id, text, metadata_json, text_chars, tokens_estimate,
	embedding, embedder, dims, created_at`

// InsertDocument stores a new document. The area, context_id and
// message_count columns are derived from metadata.
func InsertDocument(ctx context.Context, q Querier, d *Document) error {
	md := d.Metadata
	if md == nil {
		md = map[string]string{}
	}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return errors.NewInternal(err)
	}

	var messageCount sql.NullInt64
	if v, ok := md[record.KeyMessageCount]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			messageCount = sql.NullInt64{Int64: int64(n), Valid: true}
		}
	}

	query := `
		INSERT INTO documents (
			id, text, metadata_json, area, context_id, message_count,
			text_chars, tokens_estimate, embedding, embedder, dims, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		d.ID, d.Text, string(mdJSON),
		nullIfEmpty(md[record.KeyArea]), nullIfEmpty(md[record.KeyContextID]), messageCount,
		d.TextChars, d.TokensEstimate, d.Embedding, d.Embedder, d.Dims, d.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func GetDocument(ctx context.Context, q Querier, id string) (*Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// ListDocuments returns documents newest first. An empty area matches every
// document. limit <= 0 means no limit.
func ListDocuments(ctx context.Context, q Querier, area string, limit, offset int) ([]*Document, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + documentColumns + ` FROM documents`)
	if area != "" {
		sb.WriteString(` WHERE area = ?`)
		args = append(args, area)
	}
	sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	if limit > 0 {
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, offset)
	} else if offset > 0 {
		sb.WriteString(` LIMIT -1 OFFSET ?`)
		args = append(args, offset)
	}

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return docs, nil
}

// CountDocuments counts documents in area (all documents when area is empty).
func CountDocuments(ctx context.Context, q Querier, area string) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	var args []any
	if area != "" {
		query += ` WHERE area = ?`
		args = append(args, area)
	}
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// DeleteDocuments hard-deletes the given ids and returns how many rows went.
func DeleteDocuments(ctx context.Context, q Querier, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := q.ExecContext(ctx, `DELETE FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// UpdateEmbedding replaces a document's stored vector, e.g. after the
// configured embedder changed.
func UpdateEmbedding(ctx context.Context, q Querier, id string, embedding []byte, embedder string, dims int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE documents SET embedding = ?, embedder = ?, dims = ? WHERE id = ?`,
		embedding, embedder, dims, id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single row into a Document.
func scanDocument(row scanner) (*Document, error) {
	var (
		d      Document
		mdJSON string
	)
	err := row.Scan(
		&d.ID, &d.Text, &mdJSON, &d.TextChars, &d.TokensEstimate,
		&d.Embedding, &d.Embedder, &d.Dims, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if mdJSON != "" {
		if err := json.Unmarshal([]byte(mdJSON), &d.Metadata); err != nil {
			return nil, err
		}
	}
	if d.Metadata == nil {
		d.Metadata = map[string]string{}
	}
	return &d, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
