package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/carryon/internal/continuity"
	"github.com/hpungsan/carryon/internal/db"
	"github.com/hpungsan/carryon/internal/logging"
	"github.com/hpungsan/carryon/internal/observe"
	"github.com/hpungsan/carryon/internal/record"
	"github.com/hpungsan/carryon/internal/summarize"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// flatEmbedder scores every document 1.0 against every query.
type flatEmbedder struct{}

func (flatEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}
func (flatEmbedder) Dims() int    { return 1 }
func (flatEmbedder) Name() string { return "flat" }

type harness struct {
	store    *vectorstore.Store
	capturer *continuity.Capturer
	recaller *continuity.Recaller
	sink     *observe.Recorder

	mu      sync.Mutex
	results []continuity.CaptureResult
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	h := &harness{
		store: vectorstore.New(conn, flatEmbedder{}),
		sink:  &observe.Recorder{},
	}
	sum := summarize.Func(func(_ context.Context, _, message string, _ bool) (string, error) {
		return "Current task: summarizing " + strings.TrimPrefix(message, continuity.MessagePrefix)[:20], nil
	})
	h.capturer = continuity.NewCapturer(continuity.StaticStore(h.store), sum, h.sink,
		continuity.WithCaptureLogger(logging.Discard()),
		continuity.OnCaptureDone(func(r continuity.CaptureResult) {
			h.mu.Lock()
			h.results = append(h.results, r)
			h.mu.Unlock()
		}))
	h.recaller = continuity.NewRecaller(continuity.StaticStore(h.store), h.sink,
		continuity.WithRecallLogger(logging.Discard()))
	return h
}

func enabledSettings() continuity.Settings {
	return continuity.Settings{Enabled: true, SaveInterval: 3, MaxChars: 6000}
}

func TestNew_GeneratesID(t *testing.T) {
	s := New(enabledSettings, nil, nil)
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	s = New(enabledSettings, nil, nil, WithID("fixed"))
	require.Equal(t, "fixed", s.ID())
}

func TestTranscriptAndCounter(t *testing.T) {
	s := New(enabledSettings, nil, nil)
	ctx := context.Background()

	res := s.BeginTurn(ctx, "hello")
	require.Equal(t, continuity.RecallDisabled, res.Status)
	require.False(t, s.EndTurn(ctx, "hi there"))

	require.Equal(t, 2, s.Counter())
	require.Equal(t, "user: hello\nassistant: hi there", s.Transcript())
	require.Equal(t, []Message{{RoleUser, "hello"}, {RoleAssistant, "hi there"}}, s.Messages())
}

func TestSession_CapturesOnInterval(t *testing.T) {
	h := newHarness(t)
	s := New(enabledSettings, h.capturer, h.recaller, WithID("ctx-a"))
	ctx := context.Background()

	var dispatchedAt []int
	for turn := 1; turn <= 6; turn++ {
		s.BeginTurn(ctx, strings.Repeat("user words ", 5))
		if s.EndTurn(ctx, strings.Repeat("assistant words ", 5)) {
			dispatchedAt = append(dispatchedAt, s.Counter())
			// let each unit finish so the later capture lands last
			h.capturer.Wait()
		}
	}
	s.Close()

	// counters after each reply are 2, 4, 6, ..., 12; multiples of 3 are 6 and 12
	require.Equal(t, []int{6, 12}, dispatchedAt)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.results, 2)
	for _, r := range h.results {
		require.Equal(t, continuity.CaptureSaved, r.Status)
	}

	n, err := h.store.Count(ctx, vectorstore.AreaIs(record.Area))
	require.NoError(t, err)
	require.Equal(t, 1, n, "replacement keeps a single state record")

	docs, _, err := h.store.List(ctx, vectorstore.AreaIs(record.Area), 1, 0)
	require.NoError(t, err)
	require.Equal(t, "12", docs[0].Metadata[record.KeyMessageCount])
	require.Equal(t, "ctx-a", docs[0].Metadata[record.KeyContextID])
}

func TestSession_RecallsInNextSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := New(enabledSettings, h.capturer, h.recaller)
	for range 3 {
		first.BeginTurn(ctx, strings.Repeat("planning the migration ", 4))
		first.EndTurn(ctx, strings.Repeat("sounds good, next step ", 4))
	}
	first.Close()

	second := New(enabledSettings, h.capturer, h.recaller)
	res := second.BeginTurn(ctx, "hi again")
	require.Equal(t, continuity.RecallRecalled, res.Status)
	require.Contains(t, second.PromptContext(), "## Previous Session Context")
	require.Contains(t, second.PromptContext(), "Context ID: "+first.ID())

	// a later "continue" does not inject twice
	second.EndTurn(ctx, "welcome back")
	res = second.BeginTurn(ctx, "continue please")
	require.Equal(t, continuity.RecallAlreadyRecalled, res.Status)

	second.Close()
	require.Empty(t, second.PromptContext())
}

func TestSession_DisabledDoesNothing(t *testing.T) {
	h := newHarness(t)
	off := func() continuity.Settings { return continuity.Settings{} }
	s := New(off, h.capturer, h.recaller)
	ctx := context.Background()

	for range 6 {
		require.Equal(t, continuity.RecallDisabled, s.BeginTurn(ctx, "continue").Status)
		require.False(t, s.EndTurn(ctx, strings.Repeat("reply ", 30)))
	}
	s.Close()

	n, err := h.store.Count(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, h.sink.Entries())
}
