package continuity

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/carryon/internal/observe"
	"github.com/hpungsan/carryon/internal/record"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// DefaultRecallTimeout bounds the store query so a turn never stalls on recall.
const DefaultRecallTimeout = 10 * time.Second

// RecallStatus is the outcome of a recall attempt.
type RecallStatus string

const (
	RecallDisabled        RecallStatus = "disabled"
	RecallSkipped         RecallStatus = "skipped"
	RecallAlreadyRecalled RecallStatus = "already_recalled"
	RecallNoState         RecallStatus = "no_state"
	RecallRecalled        RecallStatus = "recalled"
	RecallFailed          RecallStatus = "failed"
)

// RecallResult describes one recall attempt.
type RecallResult struct {
	Status   RecallStatus
	RecordID string
	Score    float64
	Injected string // text written to the extras slot
	Preview  string
	Err      error
}

// Recaller injects the stored state record into a session's extras.
type Recaller struct {
	store   StoreFunc
	sink    observe.Sink
	logger  *slog.Logger
	timeout time.Duration
}

// RecallerOption configures a Recaller.
type RecallerOption func(*Recaller)

// WithRecallTimeout bounds the store query.
func WithRecallTimeout(d time.Duration) RecallerOption {
	return func(r *Recaller) { r.timeout = d }
}

// WithRecallLogger sets the logger used for result reporting.
func WithRecallLogger(l *slog.Logger) RecallerOption {
	return func(r *Recaller) { r.logger = l }
}

// NewRecaller returns a Recaller reading through store.
func NewRecaller(store StoreFunc, sink observe.Sink, opts ...RecallerOption) *Recaller {
	r := &Recaller{
		store:   store,
		sink:    sink,
		logger:  slog.Default(),
		timeout: DefaultRecallTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recall runs the recall gate and, when it passes, looks up the state record
// and writes it into extras. Errors are logged and reported, never returned.
func (r *Recaller) Recall(ctx context.Context, s Settings, t Turn, extras *Extras) RecallResult {
	res := r.recall(ctx, s, t, extras)
	r.report(t, res)
	return res
}

func (r *Recaller) recall(ctx context.Context, s Settings, t Turn, extras *Extras) RecallResult {
	if extras == nil {
		extras = NewExtras()
	}
	switch {
	case !s.Enabled:
		return RecallResult{Status: RecallDisabled}
	case t.Counter > 1 && !WantsContinue(t.UserMessage):
		return RecallResult{Status: RecallSkipped}
	case extras.Has(ExtrasSlot):
		return RecallResult{Status: RecallAlreadyRecalled}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	store, err := r.store(ctx)
	if err != nil {
		return r.fail(err)
	}
	docs, err := store.SearchSimilarityThreshold(ctx, RecallQuery, RecallLimit, RecallThreshold, vectorstore.AreaIs(record.Area))
	if err != nil {
		return r.fail(err)
	}
	if len(docs) == 0 {
		return RecallResult{Status: RecallNoState}
	}

	doc := docs[0]
	injected := RecallText(doc.Text)
	if !extras.SetOnce(ExtrasSlot, injected) {
		return RecallResult{Status: RecallAlreadyRecalled}
	}

	preview := record.Preview(doc.Text, RecallPreviewChars)
	observe.Util(r.sink, "Session state recalled", preview)

	return RecallResult{
		Status:   RecallRecalled,
		RecordID: doc.ID,
		Score:    doc.Score,
		Injected: injected,
		Preview:  preview,
	}
}

func (r *Recaller) fail(err error) RecallResult {
	observe.Warning(r.sink, "Could not recall session state: "+err.Error(), "")
	return RecallResult{Status: RecallFailed, Err: err}
}

func (r *Recaller) report(t Turn, res RecallResult) {
	attrs := []any{"status", string(res.Status), "context_id", t.ContextID, "message_count", t.Counter}
	switch res.Status {
	case RecallFailed:
		r.logger.Warn("session state recall failed", append(attrs, "error", res.Err)...)
	case RecallRecalled:
		r.logger.Info("session state recalled", append(attrs, "record_id", res.RecordID, "score", res.Score)...)
	default:
		r.logger.Debug("session state not recalled", attrs...)
	}
}
