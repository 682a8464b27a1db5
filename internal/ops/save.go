package ops

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hpungsan/carryon/internal/continuity"
	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/observe"
	"github.com/hpungsan/carryon/internal/summarize"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Transcript   string // required
	ContextID    string // optional, a fresh uuid when empty
	MessageCount int    // messages in the conversation so far
	Force        bool   // skip the capture gate
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	Status          string          `json:"status"`
	RecordID        string          `json:"record_id,omitempty"`
	ContextID       string          `json:"context_id"`
	MessageCount    int             `json:"message_count"`
	Preview         string          `json:"preview,omitempty"`
	Replaced        int             `json:"replaced"`
	MissingSections []string        `json:"missing_sections,omitempty"`
	Log             []observe.Entry `json:"log"`
}

// Save condenses a transcript into the session state record synchronously.
// Unless Force is set the capture gate applies, so a call that would not
// have captured at this message count returns status "disabled" or "skipped".
func Save(ctx context.Context, deps *Deps, input SaveInput) (*SaveOutput, error) {
	if strings.TrimSpace(input.Transcript) == "" {
		return nil, errors.NewInvalidRequest("transcript is required")
	}
	if input.MessageCount < 0 {
		return nil, errors.NewInvalidRequest("message_count must not be negative")
	}
	contextID := strings.TrimSpace(input.ContextID)
	if contextID == "" {
		contextID = uuid.NewString()
	}

	out := &SaveOutput{ContextID: contextID, MessageCount: input.MessageCount}
	settings := deps.settings()
	if !input.Force {
		switch {
		case !settings.Enabled:
			out.Status = string(continuity.CaptureDisabled)
			out.Log = []observe.Entry{}
			return out, nil
		case !continuity.ShouldCapture(settings, input.MessageCount):
			out.Status = string(continuity.CaptureSkipped)
			out.Log = []observe.Entry{}
			return out, nil
		}
	}

	sum := deps.Summarizer
	if sum == nil {
		sum = summarize.Unavailable(summarize.ProviderNone)
	}
	rec := &observe.Recorder{}
	capturer := continuity.NewCapturer(
		continuity.StaticStore(deps.Store), sum, deps.sink(rec),
		continuity.WithCaptureLogger(deps.logger()),
	)

	res := capturer.Condense(ctx, settings, continuity.Turn{
		ContextID:  contextID,
		Counter:    input.MessageCount,
		Transcript: input.Transcript,
	}, nil)
	if res.Status == continuity.CaptureFailed {
		return nil, asCarryonError(res.Err)
	}

	out.Status = string(res.Status)
	out.RecordID = res.RecordID
	out.Preview = res.Preview
	out.Replaced = res.Replaced
	out.MissingSections = res.MissingSections
	out.Log = rec.Entries()
	return out, nil
}

// asCarryonError keeps structured errors and wraps everything else.
func asCarryonError(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewInternal(err)
}
