package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"sentitrade/internal/domain"
	"sentitrade/internal/util"
)

// Compile-time interface check.
var _ Source = (*AlpacaSource)(nil)

// newsAPI is the subset of *marketdata.Client the source uses.
type newsAPI interface {
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// AlpacaSource fetches news from the Alpaca marketdata API.
type AlpacaSource struct {
	client newsAPI
	limit  int
	log    *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
func NewAlpacaSource(apiKey, apiSecret, dataURL string, timeout time.Duration, log *slog.Logger) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return newAlpacaSource(marketdata.NewClient(opts), log)
}

func newAlpacaSource(client newsAPI, log *slog.Logger) *AlpacaSource {
	if log == nil {
		log = util.Discard()
	}
	return &AlpacaSource{client: client, limit: 50, log: log.With("component", "news", "source", "alpaca")}
}

// Name returns "alpaca".
func (s *AlpacaSource) Name() string { return "alpaca" }

// Fetch returns articles for each symbol, oldest first. A failing symbol is
// logged and skipped; the error is returned only when every symbol fails.
func (s *AlpacaSource) Fetch(ctx context.Context, symbols []string, start, end time.Time) ([]domain.NewsItem, error) {
	var (
		items   []domain.NewsItem
		lastErr error
		failed  int
	)
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sym = strings.ToUpper(sym)
		got, err := s.fetchSymbol(sym, start, end)
		if err != nil {
			s.log.Warn("news request failed", "symbol", sym, "error", err)
			lastErr = err
			failed++
			continue
		}
		items = append(items, got...)
	}
	if failed > 0 && failed == len(symbols) {
		return nil, fmt.Errorf("alpaca news: %w", lastErr)
	}
	return Dedupe(items), nil
}

func (s *AlpacaSource) fetchSymbol(symbol string, start, end time.Time) ([]domain.NewsItem, error) {
	articles, err := s.client.GetNews(marketdata.GetNewsRequest{
		Symbols:            []string{symbol},
		Start:              start,
		End:                end,
		TotalLimit:         s.limit,
		IncludeContent:     true,
		ExcludeContentless: true,
		Sort:               marketdata.SortAsc,
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.NewsItem, 0, len(articles))
	for _, a := range articles {
		body := a.Summary
		if a.Content != "" {
			body = ExtractSymbolContent(a.Content, symbol)
		}
		items = append(items, domain.NewsItem{
			ID:      fmt.Sprintf("alpaca-%d", a.ID),
			Text:    joinText(a.Headline, body),
			Source:  "alpaca",
			Time:    a.CreatedAt.UTC(),
			Symbols: []string{symbol},
		})
	}
	return items, nil
}
