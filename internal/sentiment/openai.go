package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"sentitrade/internal/domain"
	"sentitrade/internal/util"
)

// Compile-time interface check.
var _ Provider = (*OpenAIAnalyzer)(nil)

const systemPrompt = `You score financial news sentiment for equity traders.
Reply with a JSON object {"score": number, "confidence": number} where score
is in [-1, 1] (negative is bearish) and confidence is in [0, 1].`

// OpenAIOptions configures an OpenAIAnalyzer.
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIAnalyzer scores text with a chat completion model.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

// NewOpenAIAnalyzer creates an analyzer. An empty model selects GPT-4o mini.
func NewOpenAIAnalyzer(opts OpenAIOptions, log *slog.Logger) *OpenAIAnalyzer {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	if log == nil {
		log = util.Discard()
	}
	return &OpenAIAnalyzer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log.With("component", "sentiment", "model", model),
	}
}

type scoreReply struct {
	Score      *float64 `json:"score"`
	Confidence *float64 `json:"confidence"`
}

// Analyze asks the model for a score. Out-of-range values are clamped; a
// missing confidence falls back to the score's magnitude.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Sentiment{}, errors.New("openai returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```json"), "```")

	var reply scoreReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &reply); err != nil {
		return domain.Sentiment{}, fmt.Errorf("parse sentiment reply: %w", err)
	}
	if reply.Score == nil {
		return domain.Sentiment{}, errors.New("sentiment reply has no score")
	}

	s := domain.Sentiment{Score: *reply.Score}
	if reply.Confidence != nil {
		s.Confidence = *reply.Confidence
	} else {
		s.Confidence = clamp(*reply.Score, -1, 1)
		if s.Confidence < 0 {
			s.Confidence = -s.Confidence
		}
	}
	out := normalize(s)
	a.log.Debug("scored text", "score", out.Score, "confidence", out.Confidence)
	return out, nil
}

// ExtractEntities returns the cashtags in text.
func (a *OpenAIAnalyzer) ExtractEntities(text string) []domain.Entity {
	return ExtractCashtags(text)
}
