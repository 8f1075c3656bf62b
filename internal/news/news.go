// Package news loads the news items fed into the pipeline: from a local
// JSON-lines file, the Alpaca news API, or RSS feeds.
package news

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentitrade/internal/domain"
)

// Source fetches news for symbols published within [start, end].
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbols []string, start, end time.Time) ([]domain.NewsItem, error)
}

// LoadFile reads one JSON object per line:
//
//	{"id": "...", "text": "...", "source": "...", "time": "RFC3339"}
//
// Blank lines are skipped. Items without an id get one derived from their
// text, so reloading the same file yields the same ids.
func LoadFile(path string) ([]domain.NewsItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []domain.NewsItem
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var item domain.NewsItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if strings.TrimSpace(item.Text) == "" {
			return nil, fmt.Errorf("%s:%d: item has no text", path, line)
		}
		if item.ID == "" {
			item.ID = StableID("file", item.Text)
		}
		if item.Source == "" {
			item.Source = "file"
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return items, nil
}

// StableID derives a deterministic id from a source name and a key such as
// a URL or the item text.
func StableID(source, key string) string {
	return source + "-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"|"+key)).String()
}

// Dedupe drops items whose id was already returned, keeping first
// occurrences, and sorts the result oldest first.
func Dedupe(items []domain.NewsItem) []domain.NewsItem {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// --- HTML helpers ---

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)
var htmlParaRe = regexp.MustCompile(`(?i)</?(p|br|div|li|h[1-6])\b[^>]*>`)

// StripHTML removes HTML tags and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// ExtractSymbolContent extracts paragraphs mentioning the symbol from HTML content.
// Falls back to full stripped HTML if no paragraphs mention the symbol.
func ExtractSymbolContent(rawHTML, symbol string) string {
	chunks := htmlParaRe.Split(rawHTML, -1)
	var matched []string
	upper := strings.ToUpper(symbol)
	for _, chunk := range chunks {
		plain := StripHTML(chunk)
		if plain == "" {
			continue
		}
		if strings.Contains(strings.ToUpper(plain), upper) {
			matched = append(matched, plain)
		}
	}
	if len(matched) > 0 {
		return strings.Join(matched, " ")
	}
	return StripHTML(rawHTML)
}

func joinText(headline, body string) string {
	headline = strings.TrimSpace(headline)
	body = strings.TrimSpace(body)
	switch {
	case body == "":
		return headline
	case headline == "":
		return body
	}
	return headline + ". " + body
}
