// Package summarize adapts chat model APIs to a single condense-this-text call.
package summarize

import (
	"context"
	"time"
)

// DefaultTimeout bounds a background summarization call.
const DefaultTimeout = 2 * time.Minute

// Summarizer condenses message under the system instruction.
//
// When background is true the call is utility work running off the user's
// critical path: it is detached from the caller's cancellation, bounded by
// the summarizer's own timeout, and may use a cheaper utility model.
type Summarizer interface {
	Summarize(ctx context.Context, system, message string, background bool) (string, error)
}

// Func adapts a plain function to Summarizer.
type Func func(ctx context.Context, system, message string, background bool) (string, error)

func (f Func) Summarize(ctx context.Context, system, message string, background bool) (string, error) {
	return f(ctx, system, message, background)
}

// Options are shared by the provider adapters.
type Options struct {
	Model        string
	UtilityModel string // used for background calls when set
	Temperature  float64
	MaxTokens    int64
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
}

func (o Options) model(background bool) string {
	if background && o.UtilityModel != "" {
		return o.UtilityModel
	}
	return o.Model
}

// callContext derives the context for one call. Background calls outlive
// the caller; every call is bounded by the timeout when one is set.
func (o Options) callContext(ctx context.Context, background bool) (context.Context, context.CancelFunc) {
	if background {
		ctx = context.WithoutCancel(ctx)
	}
	timeout := o.Timeout
	if timeout <= 0 {
		if !background {
			return context.WithCancel(ctx)
		}
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
