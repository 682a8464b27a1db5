package ops

import (
	"context"
	"time"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/record"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// StatusSettings echoes the continuation settings in effect.
type StatusSettings struct {
	Enabled      bool `json:"enabled"`
	SaveInterval int  `json:"save_interval"`
	MaxChars     int  `json:"max_chars"`
}

// StatusOutput describes the current session state record.
type StatusOutput struct {
	ID              string         `json:"id"`
	ContextID       string         `json:"context_id"`
	MessageCount    int            `json:"message_count"`
	Text            string         `json:"text"`
	TextChars       int            `json:"text_chars"`
	TokensEstimate  int            `json:"tokens_estimate"`
	CreatedAt       time.Time      `json:"created_at"`
	StateRecords    int            `json:"state_records"`
	MissingSections []string       `json:"missing_sections,omitempty"`
	Settings        StatusSettings `json:"settings"`
}

// Status returns the newest session state record, or NOT_FOUND when none
// exists. StateRecords counts every record in the area and is 1 in steady
// state.
func Status(ctx context.Context, deps *Deps) (*StatusOutput, error) {
	docs, total, err := deps.Store.List(ctx, vectorstore.AreaIs(record.Area), 1, 0)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.NewNotFound("session state")
	}

	doc := docs[0]
	rec, _ := record.FromMetadata(doc.ID, doc.Text, doc.Metadata)
	return &StatusOutput{
		ID:              doc.ID,
		ContextID:       rec.ContextID,
		MessageCount:    rec.MessageCount,
		Text:            doc.Text,
		TextChars:       doc.TextChars,
		TokensEstimate:  doc.TokensEstimate,
		CreatedAt:       doc.CreatedAt,
		StateRecords:    total,
		MissingSections: record.LintSummary(doc.Text).MissingSections,
		Settings:        CurrentSettings(deps),
	}, nil
}

// CurrentSettings reports the continuation settings in effect, with
// defaults substituted for non-positive values.
func CurrentSettings(deps *Deps) StatusSettings {
	s := deps.settings()
	return StatusSettings{
		Enabled:      s.Enabled,
		SaveInterval: s.Interval(),
		MaxChars:     s.TailChars(),
	}
}
