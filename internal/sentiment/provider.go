// Package sentiment scores free text and extracts the tickers it mentions.
package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"sentitrade/internal/config"
	"sentitrade/internal/domain"
)

// Provider scores text and finds the tickers in it.
type Provider interface {
	Analyze(ctx context.Context, text string) (domain.Sentiment, error)
	ExtractEntities(text string) []domain.Entity
}

// New builds the provider named by cfg.Model.
func New(cfg config.SentimentConfig, log *slog.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Model) {
	case "", "lexicon", "vader":
		return NewLexiconAnalyzer(nil), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("sentiment model openai requires an api key")
		}
		return NewOpenAIAnalyzer(OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIURL,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown sentiment model %q", cfg.Model)
	}
}

var cashtagRe = regexp.MustCompile(`\$([A-Z]{1,5})\b`)

// ExtractCashtags returns the $TICKER mentions in text, first occurrence
// order, without duplicates.
func ExtractCashtags(text string) []domain.Entity {
	matches := cashtagRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]domain.Entity, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, domain.Entity{Ticker: m[1]})
	}
	return out
}

// normalize forces a provider's output into the documented ranges.
func normalize(s domain.Sentiment) domain.Sentiment {
	return domain.Sentiment{
		Score:      clamp(s.Score, -1, 1),
		Confidence: clamp(s.Confidence, 0, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v != v, v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
