package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/config"
	"sentitrade/internal/domain"
)

func TestExtractCashtags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "Tesla ($TSLA) reports record profits", []string{"TSLA"}},
		{"several in order", "$AAPL beats, $MSFT lags, $AAPL again", []string{"AAPL", "MSFT"}},
		{"lowercase ignored", "$tsla is not a cashtag", nil},
		{"too long", "$ABCDEF is not a ticker", nil},
		{"bare dollar", "costs $ 100 or $100", nil},
		{"punctuation", "Watch $GME!", []string{"GME"}},
		{"none", "no tickers here", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, e := range ExtractCashtags(tc.text) {
				got = append(got, e.Ticker)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLexiconPositiveHeadline(t *testing.T) {
	a := NewLexiconAnalyzer(nil)
	s, err := a.Analyze(context.Background(), "Tesla ($TSLA) reports record profits and surging demand!")
	require.NoError(t, err)
	assert.Greater(t, s.Score, 0.5)
	assert.LessOrEqual(t, s.Score, 1.0)
	assert.InDelta(t, s.Score, s.Confidence, 1e-12)
}

func TestLexiconNegativeHeadline(t *testing.T) {
	a := NewLexiconAnalyzer(nil)
	s, err := a.Analyze(context.Background(), "$XYZ plunges after fraud investigation and massive layoffs")
	require.NoError(t, err)
	assert.Less(t, s.Score, -0.5)
	assert.Greater(t, s.Confidence, 0.5)
}

func TestLexiconNeutral(t *testing.T) {
	a := NewLexiconAnalyzer(nil)
	s, err := a.Analyze(context.Background(), "The company held its annual meeting on Tuesday.")
	require.NoError(t, err)
	assert.Equal(t, domain.Sentiment{}, s)
}

func TestLexiconNegationAndBoosters(t *testing.T) {
	a := NewLexiconAnalyzer(nil)

	assert.Less(t, a.Compound("the quarter was not profitable"), 0.0)
	assert.Greater(t, a.Compound("very strong quarter"), a.Compound("strong quarter"))
	assert.Less(t, a.Compound("slightly strong quarter"), a.Compound("strong quarter"))
	assert.Greater(t, a.Compound("strong quarter!!!"), a.Compound("strong quarter"))
	assert.Less(t, a.Compound("very weak quarter"), a.Compound("weak quarter"))
}

func TestLexiconExtraWords(t *testing.T) {
	a := NewLexiconAnalyzer(map[string]float64{"Moon": 3})
	assert.Greater(t, a.Compound("to the moon"), 0.0)
}

func TestLexiconBounded(t *testing.T) {
	a := NewLexiconAnalyzer(nil)
	text := strings.Repeat("great excellent success ", 50) + "!!!!!!!!"
	c := a.Compound(text)
	assert.LessOrEqual(t, c, 1.0)
	assert.Greater(t, c, 0.99)
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, content string) *OpenAIAnalyzer {
	srv := chatServer(t, content)
	return NewOpenAIAnalyzer(OpenAIOptions{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL + "/v1"}, nil)
}

func TestOpenAIAnalyze(t *testing.T) {
	a := newTestOpenAI(t, `{"score": 0.6, "confidence": 0.8}`)
	s, err := a.Analyze(context.Background(), "$TSLA beats estimates")
	require.NoError(t, err)
	assert.Equal(t, domain.Sentiment{Score: 0.6, Confidence: 0.8}, s)
	assert.Equal(t, []domain.Entity{{Ticker: "TSLA"}}, a.ExtractEntities("$TSLA beats estimates"))
}

func TestOpenAIClampsOutOfRange(t *testing.T) {
	a := newTestOpenAI(t, "```json\n{\"score\": -1.7, \"confidence\": 3}\n```")
	s, err := a.Analyze(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, domain.Sentiment{Score: -1, Confidence: 1}, s)
}

func TestOpenAIMissingConfidence(t *testing.T) {
	a := newTestOpenAI(t, `{"score": -0.4}`)
	s, err := a.Analyze(context.Background(), "anything")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, s.Confidence, 1e-12)
}

func TestOpenAIBadReply(t *testing.T) {
	for _, content := range []string{"I think it's bullish", `{"confidence": 0.5}`} {
		a := newTestOpenAI(t, content)
		_, err := a.Analyze(context.Background(), "anything")
		assert.Error(t, err, content)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := New(config.SentimentConfig{Model: "lexicon"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LexiconAnalyzer{}, p)

	_, err = New(config.SentimentConfig{Model: "openai"}, nil)
	assert.Error(t, err)

	p, err = New(config.SentimentConfig{Model: "openai", OpenAIAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIAnalyzer{}, p)

	_, err = New(config.SentimentConfig{Model: "finbert"}, nil)
	assert.Error(t, err)
}
