package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"sentitrade/internal/domain"
	"sentitrade/internal/util"
)

// Compile-time interface check.
var _ Source = (*RSSSource)(nil)

// Feed URL templates; %s is replaced with the escaped symbol.
const (
	GoogleNewsURL    = "https://news.google.com/rss/search?q=%s+stock&hl=en-US&gl=US&ceid=US:en"
	GlobeNewswireURL = "https://www.globenewswire.com/RssFeed/keyword/%s/feedTitle/GlobeNewswire.xml"
)

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 02 Jan 2006 15:04 MST",
}

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

// RSSSource fetches a per-symbol RSS feed.
type RSSSource struct {
	name        string
	urlTemplate string
	client      *resty.Client
	log         *slog.Logger
}

// NewRSSSource creates an RSS source named name whose feed URL is
// urlTemplate with the symbol substituted for %s.
func NewRSSSource(name, urlTemplate string, timeout time.Duration, log *slog.Logger) *RSSSource {
	client := resty.New().
		SetTransport(&http.Transport{Proxy: http.ProxyFromEnvironment}).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", "Mozilla/5.0")
	return newRSSSource(name, urlTemplate, client, log)
}

func newRSSSource(name, urlTemplate string, client *resty.Client, log *slog.Logger) *RSSSource {
	if log == nil {
		log = util.Discard()
	}
	return &RSSSource{
		name:        name,
		urlTemplate: urlTemplate,
		client:      client,
		log:         log.With("component", "news", "source", name),
	}
}

// Name returns the source name.
func (s *RSSSource) Name() string { return s.name }

// Fetch returns feed items for each symbol within [start, end], oldest
// first. Items with an unparseable date are dropped. A failing symbol is
// logged and skipped; the error is returned only when every symbol fails.
func (s *RSSSource) Fetch(ctx context.Context, symbols []string, start, end time.Time) ([]domain.NewsItem, error) {
	var (
		items   []domain.NewsItem
		lastErr error
		failed  int
	)
	for _, sym := range symbols {
		sym = strings.ToUpper(sym)
		got, err := s.fetchSymbol(ctx, sym, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("feed request failed", "symbol", sym, "error", err)
			lastErr = err
			failed++
			continue
		}
		items = append(items, got...)
	}
	if failed > 0 && failed == len(symbols) {
		return nil, fmt.Errorf("%s feed: %w", s.name, lastErr)
	}
	return Dedupe(items), nil
}

func (s *RSSSource) fetchSymbol(ctx context.Context, symbol string, start, end time.Time) ([]domain.NewsItem, error) {
	u := fmt.Sprintf(s.urlTemplate, url.QueryEscape(symbol))
	resp, err := s.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var rss rssResponse
	if err := xml.Unmarshal(resp.Body(), &rss); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	var items []domain.NewsItem
	for _, it := range rss.Channel.Items {
		t, ok := parsePubDate(it.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		headline := it.Title
		// Google News appends " - Publisher" to titles.
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			headline = headline[:idx]
		}
		key := it.GUID
		if key == "" {
			key = it.Link
		}
		if key == "" {
			key = it.Title
		}
		items = append(items, domain.NewsItem{
			ID:      StableID(s.name, key),
			Text:    joinText(StripHTML(headline), StripHTML(it.Desc)),
			Source:  s.name,
			Time:    t.UTC(),
			Symbols: []string{symbol},
		})
	}
	return items, nil
}

func parsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
