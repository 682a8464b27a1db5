package ops

import (
	"context"

	"github.com/hpungsan/carryon/internal/continuity"
	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/observe"
)

// RecallInput contains parameters for the Recall operation.
type RecallInput struct {
	MessageCount    int    // messages so far, including UserMessage; 0 or 1 means first turn
	UserMessage     string // scanned for continuation keywords
	AlreadyRecalled bool   // the caller already holds recalled state
}

// RecallOutput contains the result of the Recall operation.
type RecallOutput struct {
	Status   string          `json:"status"`
	RecordID string          `json:"record_id,omitempty"`
	Score    float64         `json:"score,omitempty"`
	Context  string          `json:"context,omitempty"`
	Preview  string          `json:"preview,omitempty"`
	Log      []observe.Entry `json:"log"`
}

// Recall runs the recall gate and returns the text that would be injected
// into the working context.
func Recall(ctx context.Context, deps *Deps, input RecallInput) (*RecallOutput, error) {
	if input.MessageCount < 0 {
		return nil, errors.NewInvalidRequest("message_count must not be negative")
	}

	extras := continuity.NewExtras()
	if input.AlreadyRecalled {
		extras.Set(continuity.ExtrasSlot, "")
	}

	rec := &observe.Recorder{}
	recaller := continuity.NewRecaller(
		continuity.StaticStore(deps.Store), deps.sink(rec),
		continuity.WithRecallLogger(deps.logger()),
	)
	res := recaller.Recall(ctx, deps.settings(), continuity.Turn{
		Counter:     input.MessageCount,
		UserMessage: input.UserMessage,
	}, extras)
	if res.Status == continuity.RecallFailed {
		return nil, asCarryonError(res.Err)
	}

	return &RecallOutput{
		Status:   string(res.Status),
		RecordID: res.RecordID,
		Score:    res.Score,
		Context:  res.Injected,
		Preview:  res.Preview,
		Log:      rec.Entries(),
	}, nil
}
