// Package observe is the user-facing progress log for background work.
// Items are logged once and may be updated in place as work progresses.
package observe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind classifies a log item.
type Kind string

const (
	KindUtil    Kind = "util"
	KindWarning Kind = "warning"
)

// Entry is a single log line as first emitted.
type Entry struct {
	Kind    Kind   `json:"kind"`
	Heading string `json:"heading"`
	Content string `json:"content,omitempty"`
}

// Sink receives log entries. Implementations must not block or panic.
type Sink interface {
	Log(Entry) *Item
}

// Item is a handle to a logged entry that can be updated later.
type Item struct {
	mu       sync.Mutex
	entry    Entry
	updated  time.Time
	onUpdate func(Entry)
}

func newItem(e Entry, onUpdate func(Entry)) *Item {
	return &Item{entry: e, updated: time.Now(), onUpdate: onUpdate}
}

// Update replaces heading and content. Empty values leave the field unchanged.
// Safe on a nil item.
func (it *Item) Update(heading, content string) {
	if it == nil {
		return
	}
	it.mu.Lock()
	if heading != "" {
		it.entry.Heading = heading
	}
	if content != "" {
		it.entry.Content = content
	}
	it.updated = time.Now()
	e := it.entry
	fn := it.onUpdate
	it.mu.Unlock()

	if fn != nil {
		fn(e)
	}
}

// Entry returns the current state of the item.
func (it *Item) Entry() Entry {
	if it == nil {
		return Entry{}
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.entry
}

// SlogSink writes entries through a slog logger.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink returns a sink backed by logger, or slog.Default() when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{Logger: logger}
}

func (s *SlogSink) logger() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *SlogSink) Log(e Entry) *Item {
	emit := func(e Entry) {
		level := slog.LevelInfo
		if e.Kind == KindWarning {
			level = slog.LevelWarn
		}
		s.logger().Log(context.Background(), level, e.Heading, "kind", string(e.Kind), "content", e.Content)
	}
	emit(e)
	return newItem(e, emit)
}

// Recorder keeps every entry in memory. Updates are reflected in place.
type Recorder struct {
	mu    sync.Mutex
	items []*Item
}

func (r *Recorder) Log(e Entry) *Item {
	it := newItem(e, nil)
	r.mu.Lock()
	r.items = append(r.items, it)
	r.mu.Unlock()
	return it
}

// Entries returns a snapshot of all entries in log order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.items))
	for i, it := range r.items {
		out[i] = it.Entry()
	}
	return out
}

// Warnings returns entries of kind warning.
func (r *Recorder) Warnings() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Kind == KindWarning {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans entries out to several sinks. The returned item propagates
// updates to every child item.
type Multi []Sink

func (m Multi) Log(e Entry) *Item {
	children := make([]*Item, 0, len(m))
	for _, s := range m {
		if s == nil {
			continue
		}
		children = append(children, s.Log(e))
	}
	return newItem(e, func(e Entry) {
		for _, c := range children {
			c.Update(e.Heading, e.Content)
		}
	})
}

// Discard drops everything.
type Discard struct{}

func (Discard) Log(e Entry) *Item { return newItem(e, nil) }

// Util logs a util entry.
func Util(s Sink, heading, content string) *Item {
	return log(s, Entry{Kind: KindUtil, Heading: heading, Content: content})
}

// Warning logs a warning entry.
func Warning(s Sink, heading, content string) *Item {
	return log(s, Entry{Kind: KindWarning, Heading: heading, Content: content})
}

func log(s Sink, e Entry) *Item {
	if s == nil {
		return newItem(e, nil)
	}
	return s.Log(e)
}
