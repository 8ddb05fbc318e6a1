package synthesis

import (
	"context"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"semsearch/internal/domain"
)

// Request carries everything needed to synthesize an answer from ranked
// chunks. Provider, Model and Endpoint are all optional; resolution picks
// a family from whatever is present.
type Request struct {
	Query    string
	Results  []domain.RetrievalResult
	Provider string
	Model    string
	Endpoint string
}

// Response is a synthesized answer with the provider it came from.
type Response struct {
	Answer   string
	Provider string
	Model    string
}

// Synthesizer routes retrieval results to a chat-completion-compatible
// provider and returns a grounded answer. It is stateless per call and
// performs no retries; embedding is the only retried path in the engine.
type Synthesizer struct {
	temperature float32
	maxTokens   int
	timeout     time.Duration
	getenv      func(string) string
	log         *zap.Logger
}

// Config tunes the synthesizer. Getenv defaults to os.Getenv and exists so
// tests can run hermetically.
type Config struct {
	MaxTokens int
	Timeout   time.Duration
	Getenv    func(string) string
	Logger    *zap.Logger
}

// New creates a Synthesizer with defaults filled in.
func New(cfg Config) *Synthesizer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Synthesizer{
		temperature: 0.2,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		getenv:      cfg.Getenv,
		log:         cfg.Logger,
	}
}

// Synthesize resolves a provider and asks it to answer the query grounded
// in the ranked chunks. Any HTTP or parse failure comes back as an error
// value, never a panic or partial answer.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Response, error) {
	resolved, err := s.Resolve(req.Provider, req.Model, req.Endpoint)
	if err != nil {
		return nil, err
	}
	s.log.Debug("synthesis provider resolved",
		zap.String("family", resolved.Family.String()),
		zap.String("model", resolved.Model))

	cfg := openai.DefaultConfig(resolved.APIKey)
	cfg.BaseURL = resolved.BaseURL
	cfg.HTTPClient = &http.Client{Timeout: s.timeout}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: resolved.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(resolved.Family)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req.Query, req.Results)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, domain.Errf(domain.KindTransient, "synthesis.Synthesize",
			"%s chat completion failed: %v", resolved.Family, err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.Errf(domain.KindMalformed, "synthesis.Synthesize",
			"%s returned no choices", resolved.Family)
	}
	return &Response{
		Answer:   resp.Choices[0].Message.Content,
		Provider: resolved.Family.String(),
		Model:    resolved.Model,
	}, nil
}
