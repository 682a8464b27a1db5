package ops

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hpungsan/carryon/internal/continuity"
	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/observe"
	"github.com/hpungsan/carryon/internal/session"
	"github.com/hpungsan/carryon/internal/summarize"
)

// ReplayInput contains parameters for the Replay operation.
type ReplayInput struct {
	Messages  []session.Message // required, in conversation order
	ContextID string            // optional, generated when empty
}

// ReplayRecall is one recall attempt made at the start of a user turn.
type ReplayRecall struct {
	Counter  int    `json:"counter"`
	Status   string `json:"status"`
	RecordID string `json:"record_id,omitempty"`
}

// ReplayCapture is one background capture dispatched at the end of an
// assistant turn.
type ReplayCapture struct {
	Status   string `json:"status"`
	RecordID string `json:"record_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReplayOutput contains the result of the Replay operation.
type ReplayOutput struct {
	ContextID     string          `json:"context_id"`
	Messages      int             `json:"messages"`
	Recalls       []ReplayRecall  `json:"recalls"`
	Captures      []ReplayCapture `json:"captures"`
	PromptContext string          `json:"prompt_context,omitempty"`
	Log           []observe.Entry `json:"log"`
}

// Replay feeds a recorded conversation through a session: recall runs before
// each user message and capture after each assistant message, exactly as a
// live host would drive them. Replay waits for every capture before
// returning. PromptContext is the extras text in force after the last turn.
func Replay(ctx context.Context, deps *Deps, input ReplayInput) (*ReplayOutput, error) {
	if len(input.Messages) == 0 {
		return nil, errors.NewInvalidRequest("messages are required")
	}
	for i, m := range input.Messages {
		if m.Role != session.RoleUser && m.Role != session.RoleAssistant {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("messages[%d]: role must be user or assistant", i))
		}
	}

	sum := deps.Summarizer
	if sum == nil {
		sum = summarize.Unavailable(summarize.ProviderNone)
	}
	rec := &observe.Recorder{}
	sink := deps.sink(rec)

	out := &ReplayOutput{Recalls: []ReplayRecall{}, Captures: []ReplayCapture{}}
	var mu sync.Mutex
	capturer := continuity.NewCapturer(
		continuity.StaticStore(deps.Store), sum, sink,
		continuity.WithCaptureLogger(deps.logger()),
		continuity.OnCaptureDone(func(res continuity.CaptureResult) {
			c := ReplayCapture{Status: string(res.Status), RecordID: res.RecordID}
			if res.Err != nil {
				c.Error = res.Err.Error()
			}
			mu.Lock()
			out.Captures = append(out.Captures, c)
			mu.Unlock()
		}),
	)
	recaller := continuity.NewRecaller(
		continuity.StaticStore(deps.Store), sink,
		continuity.WithRecallLogger(deps.logger()),
	)

	sess := session.New(deps.settings, capturer, recaller, session.WithID(strings.TrimSpace(input.ContextID)))
	for _, m := range input.Messages {
		if err := ctx.Err(); err != nil {
			capturer.Wait()
			return nil, errors.NewCancelled("replay")
		}
		if m.Role == session.RoleUser {
			res := sess.BeginTurn(ctx, m.Text)
			out.Recalls = append(out.Recalls, ReplayRecall{
				Counter:  sess.Counter(),
				Status:   string(res.Status),
				RecordID: res.RecordID,
			})
			continue
		}
		sess.EndTurn(ctx, m.Text)
	}
	capturer.Wait()

	out.ContextID = sess.ID()
	out.Messages = sess.Counter()
	out.PromptContext = sess.PromptContext()
	out.Log = rec.Entries()
	sess.Close()
	return out, nil
}

// ParseTranscript splits "role: text" lines into messages. Lines without a
// known role prefix continue the previous message.
func ParseTranscript(text string) []session.Message {
	var msgs []session.Message
	for _, line := range strings.Split(text, "\n") {
		role, rest, ok := strings.Cut(line, ":")
		role = strings.ToLower(strings.TrimSpace(role))
		if ok && (role == session.RoleUser || role == session.RoleAssistant) {
			msgs = append(msgs, session.Message{Role: role, Text: strings.TrimSpace(rest)})
			continue
		}
		if len(msgs) > 0 {
			msgs[len(msgs)-1].Text += "\n" + line
		}
	}
	for i := range msgs {
		msgs[i].Text = strings.TrimSpace(msgs[i].Text)
	}
	return msgs
}
