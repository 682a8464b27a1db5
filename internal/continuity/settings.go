// Package continuity keeps one condensed state record per store so a new
// conversation can pick up where the last one stopped.
//
// Capture runs at the end of a turn: every SaveInterval turns the tail of the
// transcript is summarized in the background and replaces the stored
// record. Recall runs at the start of a turn: on the first turn, or when the
// user asks to continue, the stored record is injected into the working
// context extras.
package continuity

import (
	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/record"
)

// Settings are read fresh for every turn.
type Settings struct {
	Enabled      bool
	SaveInterval int
	MaxChars     int
}

// SettingsFromConfig extracts continuation settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{
		Enabled:      cfg.SessionContinuationEnabled,
		SaveInterval: cfg.SessionSaveInterval,
		MaxChars:     cfg.SessionStateMaxChars,
	}
}

// Interval returns the save interval, substituting the default for
// non-positive values.
func (s Settings) Interval() int {
	if s.SaveInterval <= 0 {
		return config.DefaultSessionSaveInterval
	}
	return s.SaveInterval
}

// TailChars returns the transcript tail length, substituting the default
// for non-positive values.
func (s Settings) TailChars() int {
	if s.MaxChars <= 0 {
		return config.DefaultSessionStateMaxChars
	}
	return s.MaxChars
}

// ExtrasSlot is the working-context extras key recall writes to.
const ExtrasSlot = record.Area

// Capture and recall tuning. The query phrases are matched against the
// record.Descriptor vector every session state record is stored under; the
// area filter does the exact scoping.
const (
	DeleteQuery     = record.Descriptor
	DeleteThreshold = 0.8

	RecallQuery     = "session state continuation current task goal next steps context"
	RecallThreshold = 0.5
	RecallLimit     = 1

	MinTranscriptChars = 100
	MinSummaryChars    = 30

	SavePreviewChars   = 200
	RecallPreviewChars = 300
)
