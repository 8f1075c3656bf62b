package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/config"
	"sentitrade/internal/domain"
	"sentitrade/internal/store"
)

var day0 = time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)

func dailyBars(symbol string, closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: day0.AddDate(0, 0, i),
			Close:     c,
			Volume:    int64(1000 * (i + 1)),
		}
	}
	return bars
}

func TestSummarize(t *testing.T) {
	_, ok := Summarize(nil)
	assert.False(t, ok)

	bars := dailyBars("TSLA", 10, 20, 30)
	// Order of input does not matter.
	bars[0], bars[2] = bars[2], bars[0]

	snap, ok := Summarize(bars)
	require.True(t, ok)
	assert.Equal(t, 30.0, snap.Price)
	assert.Equal(t, 3000.0, snap.Volume)
	assert.Equal(t, 20.0, snap.MA20)
	assert.Equal(t, 2000.0, snap.AvgVolume)
}

func TestSummarizeUsesLastTwentyBars(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1) // 1..25
	}
	snap, ok := Summarize(dailyBars("AAPL", closes...))
	require.True(t, ok)
	assert.Equal(t, 25.0, snap.Price)
	assert.Equal(t, 15.5, snap.MA20) // mean of 6..25
}

type fakeBars struct {
	bars  []alpacamd.Bar
	err   error
	calls int
	last  alpacamd.GetBarsRequest
}

func (f *fakeBars) GetBars(_ string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error) {
	f.calls++
	f.last = req
	return f.bars, f.err
}

func alpacaBars(closes ...float64) []alpacamd.Bar {
	out := make([]alpacamd.Bar, len(closes))
	for i, c := range closes {
		out[i] = alpacamd.Bar{Timestamp: day0.AddDate(0, 0, i), Close: c, Volume: uint64(100 * (i + 1))}
	}
	return out
}

func TestAlpacaProviderSnapshot(t *testing.T) {
	fb := &fakeBars{bars: alpacaBars(100, 110, 120)}
	p := newAlpacaProvider(fb, "iex", nil, nil)
	p.now = func() time.Time { return day0.AddDate(0, 0, 3) }

	snap, ok := p.GetSnapshot(context.Background(), "tsla")
	require.True(t, ok)
	assert.Equal(t, 120.0, snap.Price)
	assert.Equal(t, 110.0, snap.MA20)
	assert.Equal(t, alpacamd.OneDay, fb.last.TimeFrame)
	assert.Equal(t, alpacamd.Feed("iex"), fb.last.Feed)
	assert.True(t, fb.last.End.Sub(fb.last.Start) >= 30*24*time.Hour)
}

func TestAlpacaProviderUnavailable(t *testing.T) {
	p := newAlpacaProvider(&fakeBars{err: errors.New("forbidden")}, "iex", nil, nil)
	_, ok := p.GetSnapshot(context.Background(), "TSLA")
	assert.False(t, ok)

	p = newAlpacaProvider(&fakeBars{}, "iex", nil, nil)
	_, ok = p.GetSnapshot(context.Background(), "TSLA")
	assert.False(t, ok)
}

func TestAlpacaProviderWriteThroughCache(t *testing.T) {
	cache := store.NewParquetStore(t.TempDir())
	fb := &fakeBars{bars: alpacaBars(100, 110, 120)}
	p := newAlpacaProvider(fb, "iex", cache, nil)
	p.now = func() time.Time { return day0.AddDate(0, 0, 3) }
	ctx := context.Background()

	first, ok := p.GetSnapshot(ctx, "TSLA")
	require.True(t, ok)

	stored, err := cache.ReadBars(ctx, "TSLA", day0, day0.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// The venue goes away; the cache answers.
	fb.bars, fb.err = nil, errors.New("503 service unavailable")
	second, ok := p.GetSnapshot(ctx, "TSLA")
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestParquetProvider(t *testing.T) {
	bars := store.NewParquetStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, bars.WriteBars(ctx, dailyBars("GME", 20, 22, 24, 26)))

	p := NewParquetProvider(bars, nil)
	p.now = func() time.Time { return day0.AddDate(0, 1, 0) }

	snap, ok := p.GetSnapshot(ctx, "gme")
	require.True(t, ok)
	assert.Equal(t, 26.0, snap.Price)
	assert.Equal(t, 23.0, snap.MA20)
	assert.Equal(t, 4000.0, snap.Volume)

	_, ok = p.GetSnapshot(ctx, "AMC")
	assert.False(t, ok)
}

func TestNone(t *testing.T) {
	_, ok := None{}.GetSnapshot(context.Background(), "TSLA")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	p, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, None{}, p)

	cfg.MarketData = config.MarketDataConfig{Source: "parquet", DataDir: t.TempDir()}
	p, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &ParquetProvider{}, p)

	cfg.MarketData.Source = "alpaca"
	p, err = New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &AlpacaProvider{}, p)

	cfg.MarketData.Source = "yahoo"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}
