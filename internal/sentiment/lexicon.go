package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"

	"sentitrade/internal/domain"
)

// Compile-time interface check.
var _ Provider = (*LexiconAnalyzer)(nil)

const (
	compoundAlpha = 15.0
	negationScale = -0.74
	boosterIncr   = 0.293
	exclaimIncr   = 0.292
	maxExclaims   = 4
	negationReach = 3
)

// baseLexicon holds word valences on a -4..4 scale, weighted toward
// financial news vocabulary.
var baseLexicon = map[string]float64{
	// positive
	"beat": 1.6, "beats": 1.6, "boom": 1.9, "breakthrough": 2.3, "bullish": 2.2,
	"buy": 0.9, "gain": 2.0, "gains": 2.0, "good": 1.9, "great": 3.1,
	"growth": 1.9, "high": 0.7, "improve": 1.9, "improved": 2.1, "jump": 1.4,
	"jumps": 1.4, "outperform": 2.0, "positive": 2.6, "profit": 1.9,
	"profits": 1.9, "profitable": 2.1, "rally": 1.7, "rallies": 1.7,
	"record": 1.2, "rise": 1.3, "rises": 1.3, "soar": 2.2, "soars": 2.2,
	"strong": 2.3, "success": 2.7, "surge": 1.8, "surges": 1.8,
	"surging": 1.8, "upgrade": 1.9, "upgraded": 1.9, "win": 2.8, "wins": 2.7,
	"excellent": 2.7, "demand": 0.5, "optimistic": 2.1, "approval": 2.0,
	"approved": 1.8,
	// negative
	"bad": -2.5, "bankrupt": -2.6, "bankruptcy": -2.6, "bearish": -2.2,
	"crash": -2.9, "crashes": -2.9, "decline": -1.6, "declines": -1.6,
	"downgrade": -1.9, "downgraded": -1.9, "drop": -1.1, "drops": -1.1,
	"fail": -2.5, "fails": -2.4, "failure": -2.4, "fall": -1.2, "falls": -1.2,
	"fraud": -2.8, "investigation": -1.3, "lawsuit": -1.9, "layoffs": -2.0,
	"loss": -1.9, "losses": -1.9, "miss": -1.3, "misses": -1.3,
	"negative": -2.7, "plunge": -2.4, "plunges": -2.4, "recall": -1.4,
	"risk": -1.1, "scandal": -2.8, "sell": -0.8, "slump": -2.1,
	"terrible": -3.1, "weak": -1.9, "warning": -1.4, "worst": -3.1,
	"pessimistic": -1.9, "tumble": -1.9, "tumbles": -1.9,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"without": true, "cannot": true, "isnt": true, "wasnt": true,
	"dont": true, "doesnt": true, "didnt": true, "wont": true,
}

var boosters = map[string]float64{
	"very": boosterIncr, "extremely": boosterIncr, "hugely": boosterIncr,
	"really": boosterIncr, "incredibly": boosterIncr, "massive": boosterIncr,
	"sharply": boosterIncr, "significantly": boosterIncr,
	"slightly": -boosterIncr, "somewhat": -boosterIncr, "marginally": -boosterIncr,
	"barely": -boosterIncr,
}

var wordRe = regexp.MustCompile(`[A-Za-z']+`)

// LexiconAnalyzer scores text with a valence lexicon, negation and
// intensifier handling, and the normalized compound score
// x / sqrt(x² + 15). Confidence is the magnitude of the compound score.
type LexiconAnalyzer struct {
	lexicon map[string]float64
}

// NewLexiconAnalyzer creates an analyzer over the built-in lexicon plus
// extra, whose entries win on conflict.
func NewLexiconAnalyzer(extra map[string]float64) *LexiconAnalyzer {
	lex := make(map[string]float64, len(baseLexicon)+len(extra))
	for w, v := range baseLexicon {
		lex[w] = v
	}
	for w, v := range extra {
		lex[strings.ToLower(w)] = v
	}
	return &LexiconAnalyzer{lexicon: lex}
}

// Analyze returns the compound sentiment of text. It never fails.
func (a *LexiconAnalyzer) Analyze(_ context.Context, text string) (domain.Sentiment, error) {
	c := a.Compound(text)
	return normalize(domain.Sentiment{Score: c, Confidence: math.Abs(c)}), nil
}

// ExtractEntities returns the cashtags in text.
func (a *LexiconAnalyzer) ExtractEntities(text string) []domain.Entity {
	return ExtractCashtags(text)
}

// Compound returns the normalized compound score of text in [-1, 1].
func (a *LexiconAnalyzer) Compound(text string) float64 {
	tokens := wordRe.FindAllString(text, -1)
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = strings.ReplaceAll(strings.ToLower(t), "'", "")
	}

	var sum float64
	for i, w := range words {
		v, ok := a.lexicon[w]
		if !ok {
			continue
		}
		for j := i - 1; j >= 0 && j >= i-negationReach; j-- {
			if b, ok := boosters[words[j]]; ok {
				if v < 0 {
					b = -b
				}
				v += b
			}
		}
		if negated(words, i) {
			v *= negationScale
		}
		sum += v
	}
	if sum == 0 {
		return 0
	}

	excl := strings.Count(text, "!")
	if excl > maxExclaims {
		excl = maxExclaims
	}
	if sum > 0 {
		sum += float64(excl) * exclaimIncr
	} else {
		sum -= float64(excl) * exclaimIncr
	}

	return clamp(sum/math.Sqrt(sum*sum+compoundAlpha), -1, 1)
}

func negated(words []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-negationReach; j-- {
		if negations[words[j]] {
			return true
		}
	}
	return false
}
