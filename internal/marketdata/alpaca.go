package marketdata

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"sentitrade/internal/domain"
	"sentitrade/internal/store"
	"sentitrade/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// barsAPI is the subset of *marketdata.Client the provider uses.
type barsAPI interface {
	GetBars(symbol string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error)
}

// AlpacaOptions configures an AlpacaProvider.
type AlpacaOptions struct {
	APIKey      string
	APISecret   string
	DataURL     string
	Feed        string
	CallTimeout time.Duration
}

// AlpacaProvider builds snapshots from Alpaca daily bars. Fetched bars are
// written through to cache when one is configured, and the cache answers
// when the API fails.
type AlpacaProvider struct {
	client barsAPI
	feed   alpacamd.Feed
	cache  store.BarStore
	now    func() time.Time
	log    *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider. cache may be nil.
func NewAlpacaProvider(opts AlpacaOptions, cache store.BarStore, log *slog.Logger) *AlpacaProvider {
	mdOpts := alpacamd.ClientOpts{
		APIKey:     opts.APIKey,
		APISecret:  opts.APISecret,
		HTTPClient: &http.Client{Timeout: opts.CallTimeout},
	}
	if opts.DataURL != "" {
		mdOpts.BaseURL = opts.DataURL
	}
	return newAlpacaProvider(alpacamd.NewClient(mdOpts), opts.Feed, cache, log)
}

func newAlpacaProvider(client barsAPI, feed string, cache store.BarStore, log *slog.Logger) *AlpacaProvider {
	if log == nil {
		log = util.Discard()
	}
	return &AlpacaProvider{
		client: client,
		feed:   alpacamd.Feed(feed),
		cache:  cache,
		now:    time.Now,
		log:    log.With("component", "marketdata", "source", "alpaca"),
	}
}

// GetSnapshot fetches recent daily bars for ticker and summarizes them.
func (p *AlpacaProvider) GetSnapshot(ctx context.Context, ticker string) (domain.Snapshot, bool) {
	ticker = strings.ToUpper(ticker)
	end := p.now().UTC()
	start := end.Add(-lookback)

	bars, err := p.fetch(ticker, start, end)
	if err != nil {
		p.log.Warn("bars request failed", "ticker", ticker, "error", err)
		bars = p.cached(ctx, ticker, start, end)
	} else if p.cache != nil && len(bars) > 0 {
		if err := p.cache.WriteBars(ctx, bars); err != nil {
			p.log.Warn("caching bars failed", "ticker", ticker, "error", err)
		}
	}

	snap, ok := Summarize(bars)
	if !ok {
		p.log.Warn("no market data", "ticker", ticker)
	}
	return snap, ok
}

func (p *AlpacaProvider) fetch(ticker string, start, end time.Time) ([]domain.Bar, error) {
	raw, err := p.client.GetBars(ticker, alpacamd.GetBarsRequest{
		TimeFrame: alpacamd.OneDay,
		Start:     start,
		End:       end,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, err
	}
	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, domain.Bar{
			Symbol:     ticker,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars, nil
}

func (p *AlpacaProvider) cached(ctx context.Context, ticker string, start, end time.Time) []domain.Bar {
	if p.cache == nil {
		return nil
	}
	bars, err := p.cache.ReadBars(ctx, ticker, start, end)
	if err != nil {
		p.log.Warn("reading cached bars failed", "ticker", ticker, "error", err)
		return nil
	}
	return bars
}
