// Package pipeline runs news items through sentiment analysis, signal
// generation, and order execution.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sentitrade/internal/domain"
	"sentitrade/internal/engine"
	"sentitrade/internal/marketdata"
	"sentitrade/internal/sentiment"
	"sentitrade/internal/store"
	"sentitrade/internal/strategy"
	"sentitrade/internal/util"
)

// Report is the outcome of processing one news item.
type Report struct {
	ItemID    string               `json:"item_id,omitempty"`
	Sentiment domain.Sentiment     `json:"sentiment"`
	Entities  []domain.Entity      `json:"entities"`
	Signals   []domain.Signal      `json:"signals"`
	Trades    []domain.OrderResult `json:"trades"`
}

// Options tunes a Pipeline.
type Options struct {
	// MaxConcurrency bounds in-flight snapshot lookups and executions per
	// item. Values below 1 mean 1.
	MaxConcurrency int
	// Retry enables confirmed retries of failed submissions when
	// MaxAttempts > 1.
	Retry engine.RetryPolicy
	// Seen, when set, makes ProcessAll skip items processed before.
	Seen store.SeenStore
}

// Pipeline wires the collaborators of one trading process.
type Pipeline struct {
	sentiment sentiment.Provider
	market    marketdata.Provider
	generator strategy.Generator
	engine    *engine.Engine
	opts      Options
	now       func() time.Time
	log       *slog.Logger
}

// New creates a Pipeline. market may be nil when no market data is
// configured.
func New(sp sentiment.Provider, market marketdata.Provider, gen strategy.Generator, eng *engine.Engine, opts Options, log *slog.Logger) *Pipeline {
	if market == nil {
		market = marketdata.None{}
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if log == nil {
		log = util.Discard()
	}
	return &Pipeline{
		sentiment: sp,
		market:    market,
		generator: gen,
		engine:    eng,
		opts:      opts,
		now:       time.Now,
		log:       log.With("component", "pipeline"),
	}
}

// Process analyzes one item and executes the resulting BUY and SELL
// signals. Only a sentiment failure is returned as an error; execution
// failures are reported as ERROR trades in the Report.
func (p *Pipeline) Process(ctx context.Context, item domain.NewsItem) (Report, error) {
	rep := Report{ItemID: item.ID, Entities: []domain.Entity{}, Signals: []domain.Signal{}, Trades: []domain.OrderResult{}}
	log := p.log.With("item_id", item.ID)

	s, err := p.sentiment.Analyze(ctx, item.Text)
	if err != nil {
		log.Error("sentiment analysis failed", "error", err)
		return rep, fmt.Errorf("analyzing item %s: %w", item.ID, err)
	}
	rep.Sentiment = s

	rep.Entities = p.entities(item)
	if len(rep.Entities) == 0 {
		log.Info("no tickers in item", "score", s.Score)
		return rep, nil
	}

	rep.Signals = p.signals(ctx, rep.Entities, s)
	rep.Trades = p.execute(ctx, rep.Signals)

	log.Info("processed item", "score", s.Score, "confidence", s.Confidence,
		"entities", len(rep.Entities), "trades", len(rep.Trades))
	return rep, nil
}

// entities merges cashtags found in the text with the symbols the source
// attached, in that order, without duplicates.
func (p *Pipeline) entities(item domain.NewsItem) []domain.Entity {
	found := p.sentiment.ExtractEntities(item.Text)
	seen := make(map[string]bool, len(found)+len(item.Symbols))
	out := make([]domain.Entity, 0, len(found)+len(item.Symbols))
	add := func(t string) {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, domain.Entity{Ticker: t})
	}
	for _, e := range found {
		add(e.Ticker)
	}
	for _, sym := range item.Symbols {
		add(sym)
	}
	return out
}

func (p *Pipeline) signals(ctx context.Context, entities []domain.Entity, s domain.Sentiment) []domain.Signal {
	out := make([]domain.Signal, len(entities))
	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrency)
	for i, e := range entities {
		g.Go(func() error {
			var snap *domain.Snapshot
			if v, ok := p.market.GetSnapshot(ctx, e.Ticker); ok {
				snap = &v
			}
			sig := p.generator.Generate(e.Ticker, s, snap)
			sig.CreatedAt = p.now().UTC()
			out[i] = sig
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) execute(ctx context.Context, signals []domain.Signal) []domain.OrderResult {
	var actionable []domain.Signal
	for _, sig := range signals {
		if sig.Action == domain.ActionBuy || sig.Action == domain.ActionSell {
			actionable = append(actionable, sig)
		}
	}

	results := make([]domain.OrderResult, len(actionable))
	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrency)
	for i, sig := range actionable {
		g.Go(func() error {
			if p.opts.Retry.MaxAttempts > 1 {
				results[i] = p.engine.ExecuteConfirmed(ctx, sig, engine.ExecuteOptions{}, p.opts.Retry)
			} else {
				results[i] = p.engine.Execute(ctx, sig, engine.ExecuteOptions{})
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ProcessAll processes items in order. Items already in the seen ledger
// are skipped; an item is recorded once its sentiment was scored, whatever
// its trades' outcome. Failures of individual items are joined into the
// returned error and do not stop the run.
func (p *Pipeline) ProcessAll(ctx context.Context, items []domain.NewsItem) ([]Report, error) {
	var (
		reports []Report
		errs    []error
	)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if p.opts.Seen != nil && item.ID != "" {
			seen, err := p.opts.Seen.Seen(ctx, item.ID)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if seen {
				p.log.Debug("skipping processed item", "item_id", item.ID)
				continue
			}
		}

		rep, err := p.Process(ctx, item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, rep)

		if p.opts.Seen != nil && item.ID != "" {
			if _, err := p.opts.Seen.MarkSeen(ctx, item.ID, item.Source); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return reports, errors.Join(errs...)
}
