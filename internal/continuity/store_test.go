package continuity

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/db"
	"github.com/hpungsan/carryon/internal/embed"
	"github.com/hpungsan/carryon/internal/observe"
	"github.com/hpungsan/carryon/internal/record"
	"github.com/hpungsan/carryon/internal/summarize"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

var stateSummaries = []string{
	`## Current task
Migrating the billing webhook handler from polling to push delivery.

## Decisions
Keep the retry queue in Postgres; drop the Redis dedupe set.

## Context
services/billing/webhook.go, services/billing/queue.go

## Next steps
Wire the signature check and add a replay test.`,
	`## Current task
Adding signature verification to the billing webhook handler.

## Decisions
HMAC-SHA256 with the shared secret from the vault; reject clock skew over five minutes.

## Context
services/billing/signature.go

## Next steps
Backfill the replay test fixtures.`,
	`## Current task
Writing replay tests for signed billing webhooks.

## Decisions
Fixtures live in testdata/webhooks as raw HTTP dumps.

## Context
services/billing/webhook_test.go

## Next steps
Run the load test against staging and update the runbook.`,
}

// newDefaultStore returns a store on the embedder the default config selects.
func newDefaultStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	conn, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	e, err := embed.New(config.DefaultConfig())
	require.NoError(t, err)
	return vectorstore.New(conn, e)
}

func sequenceSummarizer(replies []string) summarize.Summarizer {
	next := 0
	return summarize.Func(func(context.Context, string, string, bool) (string, error) {
		r := replies[next%len(replies)]
		next++
		return r, nil
	})
}

func realTranscript(turn int) string {
	var b strings.Builder
	for i := range 6 {
		b.WriteString("user: next change for turn " + strconv.Itoa(turn) + " step " + strconv.Itoa(i) + "\n")
		b.WriteString("assistant: updated the webhook handler and ran the billing tests\n")
	}
	return b.String()
}

func TestCondense_DefaultEmbedderKeepsOneRecord(t *testing.T) {
	store := newDefaultStore(t)
	ctx := context.Background()
	_, err := store.InsertText(ctx, "grocery list: eggs, flour, butter", map[string]string{"area": "notes"})
	require.NoError(t, err)

	c := newTestCapturer(store, sequenceSummarizer(stateSummaries), observe.Discard{})
	for i := range stateSummaries {
		counter := (i + 1) * 3
		res := c.Condense(ctx, enabled, Turn{ContextID: "billing", Counter: counter, Transcript: realTranscript(counter)}, nil)
		require.Equal(t, CaptureSaved, res.Status)
		if i == 0 {
			require.Zero(t, res.Replaced)
		} else {
			require.Equal(t, 1, res.Replaced, "capture %d", i+1)
		}

		n, err := store.Count(ctx, vectorstore.AreaIs(record.Area))
		require.NoError(t, err)
		require.Equal(t, 1, n, "after capture %d", i+1)
	}

	docs, _, err := store.List(ctx, vectorstore.AreaIs(record.Area), 0, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Contains(t, docs[0].Text, stateSummaries[2])
	require.Equal(t, "9", docs[0].Metadata[record.KeyMessageCount])

	total, err := store.Count(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, total, "unrelated documents survive")
}

func TestRecall_DefaultEmbedderFirstTurn(t *testing.T) {
	store := newDefaultStore(t)
	ctx := context.Background()

	c := newTestCapturer(store, sequenceSummarizer(stateSummaries[:1]), observe.Discard{})
	saved := c.Condense(ctx, enabled, Turn{ContextID: "billing", Counter: 3, Transcript: realTranscript(3)}, nil)
	require.Equal(t, CaptureSaved, saved.Status)

	// a fresh session reusing the same store
	r := newTestRecaller(store, observe.Discard{})
	extras := NewExtras()
	res := r.Recall(ctx, enabled, Turn{ContextID: "next", Counter: 1, UserMessage: "hello again"}, extras)

	require.Equal(t, RecallRecalled, res.Status)
	require.Equal(t, saved.RecordID, res.RecordID)
	require.GreaterOrEqual(t, res.Score, RecallThreshold)
	require.Contains(t, res.Injected, stateSummaries[0])
	require.True(t, extras.Has(ExtrasSlot))
}

func TestQueries_ClearThresholdsOnDefaultEmbedder(t *testing.T) {
	store := newDefaultStore(t)
	ctx := context.Background()

	text := record.Envelope("billing", 12, stateSummaries[1])
	id, err := store.InsertText(ctx, text, record.Record{ContextID: "billing", MessageCount: 12}.Metadata())
	require.NoError(t, err)

	for _, tt := range []struct {
		query     string
		threshold float64
	}{
		{DeleteQuery, DeleteThreshold},
		{RecallQuery, RecallThreshold},
	} {
		docs, err := store.SearchSimilarityThreshold(ctx, tt.query, 1, tt.threshold, vectorstore.AreaIs(record.Area))
		require.NoError(t, err)
		require.Len(t, docs, 1, "query %q", tt.query)
		require.Equal(t, id, docs[0].ID)
	}
}
