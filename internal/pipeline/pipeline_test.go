package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/broker"
	"sentitrade/internal/domain"
	"sentitrade/internal/engine"
	"sentitrade/internal/sentiment"
	"sentitrade/internal/sizing"
	"sentitrade/internal/store"
	"sentitrade/internal/strategy/builtins"
	"sentitrade/internal/util"
)

type fakeMarket struct {
	mu    sync.Mutex
	snaps map[string]domain.Snapshot
	asked []string
}

func (f *fakeMarket) GetSnapshot(_ context.Context, ticker string) (domain.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, ticker)
	s, ok := f.snaps[ticker]
	return s, ok
}

type failingSentiment struct{}

func (failingSentiment) Analyze(context.Context, string) (domain.Sentiment, error) {
	return domain.Sentiment{}, errors.New("model unavailable")
}

func (failingSentiment) ExtractEntities(text string) []domain.Entity {
	return sentiment.ExtractCashtags(text)
}

type harness struct {
	sim *broker.SimulatorBroker
	md  *fakeMarket
	p   *Pipeline
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	sim := broker.NewSimulatorBroker(map[string]float64{"TSLA": 200})
	md := &fakeMarket{snaps: map[string]domain.Snapshot{}}
	guard, err := engine.NewRiskGuard(true, 0.05, sizing.QuotePrice{Quoter: sim})
	require.NoError(t, err)
	eng := engine.NewEngine(sim, sizing.Policy{MaxCapitalPerTrade: 1000, Prices: sizing.FlatPrice(100)}, guard, util.Discard())
	p := New(sentiment.NewLexiconAnalyzer(nil), md, builtins.NewRuleBased(0.3), eng, opts, util.Discard())
	return &harness{sim: sim, md: md, p: p}
}

func TestProcessBuysOnPositiveNews(t *testing.T) {
	h := newHarness(t, Options{MaxConcurrency: 4})

	rep, err := h.p.Process(context.Background(), domain.NewsItem{
		ID:   "n1",
		Text: "Tesla ($TSLA) reports record profits and surging demand!",
	})
	require.NoError(t, err)

	assert.Greater(t, rep.Sentiment.Score, 0.3)
	assert.Equal(t, []domain.Entity{{Ticker: "TSLA"}}, rep.Entities)
	require.Len(t, rep.Signals, 1)
	assert.Equal(t, domain.ActionBuy, rep.Signals[0].Action)
	assert.False(t, rep.Signals[0].CreatedAt.IsZero())

	require.Len(t, rep.Trades, 1)
	tr := rep.Trades[0]
	assert.Equal(t, domain.StatusSuccess, tr.Status)
	assert.Equal(t, "TSLA", tr.Ticker)
	require.NotNil(t, tr.Protection)
	assert.Equal(t, domain.ProtectionPlaced, tr.Protection.Status)
	assert.Equal(t, 190.0, *tr.Protection.StopPrice)
}

func TestProcessNoEntitiesReachesNothing(t *testing.T) {
	h := newHarness(t, Options{})

	rep, err := h.p.Process(context.Background(), domain.NewsItem{ID: "n2", Text: "Markets surge on great news!"})
	require.NoError(t, err)
	assert.Empty(t, rep.Entities)
	assert.Empty(t, rep.Signals)
	assert.Empty(t, rep.Trades)
	assert.Empty(t, h.md.asked, "no market lookups without tickers")
}

func TestProcessHoldMakesNoTrade(t *testing.T) {
	h := newHarness(t, Options{})

	rep, err := h.p.Process(context.Background(), domain.NewsItem{ID: "n3", Text: "$AAPL holds its annual meeting"})
	require.NoError(t, err)
	require.Len(t, rep.Signals, 1)
	assert.Equal(t, domain.ActionHold, rep.Signals[0].Action)
	assert.Empty(t, rep.Trades)
}

func TestProcessUsesSnapshotTrend(t *testing.T) {
	h := newHarness(t, Options{})
	h.md.snaps["TSLA"] = domain.Snapshot{Price: 180, MA20: 200}

	rep, err := h.p.Process(context.Background(), domain.NewsItem{Text: "$TSLA great quarter, strong growth"})
	require.NoError(t, err)
	require.Len(t, rep.Signals, 1)
	assert.Equal(t, domain.ActionHold, rep.Signals[0].Action, "price below MA20 blocks the BUY")
	assert.Empty(t, rep.Trades)
}

func TestProcessMergesSourceSymbols(t *testing.T) {
	h := newHarness(t, Options{MaxConcurrency: 2})

	rep, err := h.p.Process(context.Background(), domain.NewsItem{
		Text:    "$NVDA and Tesla post strong growth",
		Symbols: []string{"tsla", "NVDA"},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{Ticker: "NVDA"}, {Ticker: "TSLA"}}, rep.Entities)
	assert.Len(t, rep.Trades, 2)
	for _, tr := range rep.Trades {
		assert.Equal(t, domain.StatusSuccess, tr.Status)
	}
}

func TestProcessSentimentFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.p.sentiment = failingSentiment{}

	rep, err := h.p.Process(context.Background(), domain.NewsItem{ID: "n4", Text: "$TSLA soars"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Equal(t, "n4", rep.ItemID)
	assert.Empty(t, rep.Trades)
}

func TestProcessAllSkipsSeenItems(t *testing.T) {
	seen, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "seen.db"))
	require.NoError(t, err)
	defer seen.Close()

	h := newHarness(t, Options{Seen: seen})
	items := []domain.NewsItem{
		{ID: "a", Text: "$TSLA record profits!", Source: "file"},
		{ID: "b", Text: "nothing to trade"},
	}
	ctx := context.Background()

	reports, err := h.p.ProcessAll(ctx, items)
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	reports, err = h.p.ProcessAll(ctx, items)
	require.NoError(t, err)
	assert.Empty(t, reports, "a restart must not trade the same news again")

	ok, err := seen.Seen(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	seen, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "seen.db"))
	require.NoError(t, err)
	defer seen.Close()

	h := newHarness(t, Options{Seen: seen})
	h.p.sentiment = failingSentiment{}

	reports, err := h.p.ProcessAll(context.Background(), []domain.NewsItem{
		{ID: "x", Text: "$TSLA"}, {ID: "y", Text: "$GME"},
	})
	assert.Error(t, err)
	assert.Empty(t, reports)

	// Items that failed analysis are retried on the next run.
	ok, _ := seen.Seen(context.Background(), "x")
	assert.False(t, ok)
}

func TestProcessWithConfirmedRetry(t *testing.T) {
	h := newHarness(t, Options{Retry: engine.RetryPolicy{MaxAttempts: 3}})

	rep, err := h.p.Process(context.Background(), domain.NewsItem{Text: "$XYZ fraud scandal and terrible losses"})
	require.NoError(t, err)
	require.Len(t, rep.Trades, 1)
	assert.Equal(t, domain.ActionSell, rep.Trades[0].Action)
	assert.Equal(t, domain.StatusSuccess, rep.Trades[0].Status)
	assert.Nil(t, rep.Trades[0].Protection)
}
