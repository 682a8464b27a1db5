// Package ops implements the carryon operations shared by the CLI, the MCP
// server and the web UI. Every operation validates its input, talks to the
// similarity store and returns a JSON-ready output struct.
package ops

import (
	"log/slog"

	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/continuity"
	"github.com/hpungsan/carryon/internal/observe"
	"github.com/hpungsan/carryon/internal/summarize"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// Pagination limits
const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Deps bundles what operations need. Summarizer may be nil when only the
// store operations are used.
type Deps struct {
	Store      *vectorstore.Store
	Summarizer summarize.Summarizer
	Config     *config.Config
	Sink       observe.Sink
	Logger     *slog.Logger
}

func (d *Deps) settings() continuity.Settings {
	return continuity.SettingsFromConfig(d.Config)
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// sink returns a sink that feeds both the configured sink and rec.
func (d *Deps) sink(rec *observe.Recorder) observe.Sink {
	if d.Sink == nil {
		return rec
	}
	return observe.Multi{d.Sink, rec}
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
