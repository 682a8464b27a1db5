package continuity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/carryon/internal/observe"
	"github.com/hpungsan/carryon/internal/record"
	"github.com/hpungsan/carryon/internal/summarize"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// DefaultCaptureTimeout bounds one background capture unit.
const DefaultCaptureTimeout = 2 * time.Minute

// CaptureStatus is the outcome of a capture attempt.
type CaptureStatus string

const (
	CaptureDisabled       CaptureStatus = "disabled"
	CaptureSkipped        CaptureStatus = "skipped"
	CaptureTooShort       CaptureStatus = "too_short"
	CaptureNotSignificant CaptureStatus = "not_significant"
	CaptureSaved          CaptureStatus = "saved"
	CaptureFailed         CaptureStatus = "failed"
)

// CaptureResult describes one capture attempt.
type CaptureResult struct {
	Status          CaptureStatus
	RecordID        string
	Preview         string
	Replaced        int      // prior records removed
	MissingSections []string // advisory summary lint
	Err             error
}

// Capturer condenses the conversation into the stored state record.
type Capturer struct {
	store   StoreFunc
	sum     summarize.Summarizer
	sink    observe.Sink
	logger  *slog.Logger
	timeout time.Duration
	onDone  func(CaptureResult)

	wg sync.WaitGroup
	mu sync.Mutex // one unit at a time, so overlapping units cannot both insert
}

// CapturerOption configures a Capturer.
type CapturerOption func(*Capturer)

// WithCaptureTimeout bounds each background unit.
func WithCaptureTimeout(d time.Duration) CapturerOption {
	return func(c *Capturer) { c.timeout = d }
}

// WithCaptureLogger sets the logger used for result reporting.
func WithCaptureLogger(l *slog.Logger) CapturerOption {
	return func(c *Capturer) { c.logger = l }
}

// OnCaptureDone registers a callback run after each background unit.
func OnCaptureDone(fn func(CaptureResult)) CapturerOption {
	return func(c *Capturer) { c.onDone = fn }
}

// NewCapturer returns a Capturer writing through store.
func NewCapturer(store StoreFunc, sum summarize.Summarizer, sink observe.Sink, opts ...CapturerOption) *Capturer {
	c := &Capturer{
		store:   store,
		sum:     sum,
		sink:    sink,
		logger:  slog.Default(),
		timeout: DefaultCaptureTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTurnEnd evaluates the capture gate and, when it passes, starts a
// background unit and returns true immediately. The unit is detached from
// ctx cancellation and bounded by the capture timeout.
func (c *Capturer) OnTurnEnd(ctx context.Context, s Settings, t Turn) bool {
	if !ShouldCapture(s, t.Counter) {
		return false
	}

	item := observe.Util(c.sink, "Saving session state for continuation...", "")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		unitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		c.mu.Lock()
		res := c.run(unitCtx, s, t, item)
		c.mu.Unlock()

		c.report(t, res)
		if c.onDone != nil {
			c.onDone(res)
		}
	}()
	return true
}

// Wait blocks until every dispatched unit has finished.
func (c *Capturer) Wait() {
	c.wg.Wait()
}

// run is Condense with panics converted into a failed result.
func (c *Capturer) run(ctx context.Context, s Settings, t Turn, item *observe.Item) (res CaptureResult) {
	defer func() {
		if p := recover(); p != nil {
			res = c.fail(item, fmt.Errorf("panic: %v", p))
		}
	}()
	return c.Condense(ctx, s, t, item)
}

// Condense runs the capture algorithm synchronously. It never returns an
// error; failures are logged as warnings and reported in the result.
// item may be nil.
func (c *Capturer) Condense(ctx context.Context, s Settings, t Turn, item *observe.Item) CaptureResult {
	if item == nil {
		item = observe.Util(c.sink, "Saving session state for continuation...", "")
	}

	tail := record.Tail(t.Transcript, s.TailChars())
	if record.CountChars(tail) < MinTranscriptChars {
		item.Update("Session too short to save state.", "")
		return CaptureResult{Status: CaptureTooShort}
	}

	summary, err := c.sum.Summarize(ctx, SystemInstruction, MessagePrefix+tail, true)
	if err != nil {
		return c.fail(item, err)
	}
	if record.CountChars(summary) < MinSummaryChars {
		item.Update("No significant session state to save.", "")
		return CaptureResult{Status: CaptureNotSignificant}
	}

	store, err := c.store(ctx)
	if err != nil {
		return c.fail(item, err)
	}

	text := record.Envelope(t.ContextID, t.Counter, summary)
	meta := record.Record{ContextID: t.ContextID, MessageCount: t.Counter}.Metadata()

	var (
		id       string
		replaced int
	)
	if r, ok := store.(Replacer); ok {
		out, err := r.Replace(ctx, vectorstore.ReplaceInput{
			Query:     DeleteQuery,
			Threshold: DeleteThreshold,
			Filter:    vectorstore.AreaIs(record.Area),
			Text:      text,
			Metadata:  meta,
		})
		if err != nil {
			return c.fail(item, err)
		}
		id, replaced = out.ID, len(out.Deleted)
	} else {
		deleted, err := store.DeleteDocumentsByQuery(ctx, DeleteQuery, DeleteThreshold, vectorstore.AreaIs(record.Area))
		if err != nil {
			return c.fail(item, err)
		}
		id, err = store.InsertText(ctx, text, meta)
		if err != nil {
			return c.fail(item, err)
		}
		replaced = len(deleted)
	}

	preview := record.Preview(summary, SavePreviewChars)
	item.Update("Session state saved.", preview)

	return CaptureResult{
		Status:          CaptureSaved,
		RecordID:        id,
		Preview:         preview,
		Replaced:        replaced,
		MissingSections: record.LintSummary(summary).MissingSections,
	}
}

func (c *Capturer) fail(item *observe.Item, err error) CaptureResult {
	item.Update("Error saving session state: "+err.Error(), "")
	observe.Warning(c.sink, "Error saving session state", err.Error())
	return CaptureResult{Status: CaptureFailed, Err: err}
}

func (c *Capturer) report(t Turn, res CaptureResult) {
	attrs := []any{
		"status", string(res.Status),
		"context_id", t.ContextID,
		"message_count", t.Counter,
	}
	switch res.Status {
	case CaptureFailed:
		c.logger.Warn("session state capture failed", append(attrs, "error", res.Err)...)
	case CaptureSaved:
		attrs = append(attrs, "record_id", res.RecordID, "replaced", res.Replaced)
		if len(res.MissingSections) > 0 {
			attrs = append(attrs, "missing_sections", res.MissingSections)
		}
		c.logger.Info("session state saved", attrs...)
	default:
		c.logger.Debug("session state not saved", attrs...)
	}
}
