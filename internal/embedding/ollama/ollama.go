package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"semsearch/internal/domain"
	"semsearch/internal/embedding"
)

// Client embeds texts through an Ollama-compatible /api/embed endpoint,
// batching requests under the configured limits and retrying transient
// failures with exponential backoff.
type Client struct {
	baseURL         string
	model           string
	client          *http.Client
	limits          embedding.BatchLimits
	maxAttempts     int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	cooldown        time.Duration
	checkpointEvery int
	log             *zap.Logger
}

// Config configures the embedding client. Zero values fall back to
// defaults suitable for a local Ollama server.
type Config struct {
	BaseURL         string
	Model           string
	Timeout         time.Duration
	Limits          embedding.BatchLimits
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	Cooldown        time.Duration
	CheckpointEvery int
	Logger          *zap.Logger
}

// NewClient creates an embedding client from the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 200 * time.Millisecond
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 500
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:         cfg.BaseURL,
		model:           cfg.Model,
		client:          &http.Client{Timeout: cfg.Timeout},
		limits:          cfg.Limits,
		maxAttempts:     cfg.MaxAttempts,
		initialBackoff:  cfg.InitialBackoff,
		maxBackoff:      cfg.MaxBackoff,
		cooldown:        cfg.Cooldown,
		checkpointEvery: cfg.CheckpointEvery,
		log:             cfg.Logger,
	}
}

// Model returns the embedding model identifier.
func (c *Client) Model() string { return c.model }

// Embed performs a single embedding call for a small number of texts,
// such as a query. Texts are truncated to the chunk limit; the request
// still goes through the retry policy.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	batch := make([]string, len(texts))
	for i, t := range texts {
		batch[i] = embedding.Truncate(t, c.limits.MaxChunkChars)
	}
	return c.embedBatch(ctx, batch)
}

// EmbedAll embeds texts batch by batch in order. Every checkpointEvery
// processed items sink is invoked with all vectors produced so far, and
// again before a terminal failure propagates, so a crash or outage loses
// at most one checkpoint interval of work.
func (c *Client) EmbedAll(ctx context.Context, texts []string, sink domain.CheckpointSink) ([][]float64, error) {
	batches := embedding.PlanBatches(texts, c.limits)
	done := make([][]float64, 0, len(texts))
	lastCheckpoint := 0
	for i, batch := range batches {
		vecs, err := c.embedBatch(ctx, batch)
		if err != nil {
			if sink != nil {
				if serr := sink(done); serr != nil {
					c.log.Warn("checkpoint save failed", zap.Error(serr))
				}
			}
			// Data-integrity failures keep their kind; only exhausted
			// retries escalate to fatal. The offset counts texts embedded
			// in this run, which on a resumed build starts past the
			// checkpointed prefix.
			kind := domain.KindFatal
			if domain.KindOf(err) == domain.KindMalformed {
				kind = domain.KindMalformed
			}
			return nil, domain.E(kind, "ollama.EmbedAll",
				fmt.Errorf("embedding stopped after %d of %d texts this run: %w", len(done), len(texts), err))
		}
		done = append(done, vecs...)
		if sink != nil && len(done)-lastCheckpoint >= c.checkpointEvery {
			if err := sink(done); err != nil {
				c.log.Warn("checkpoint save failed", zap.Error(err))
			} else {
				lastCheckpoint = len(done)
				c.log.Info("checkpoint saved", zap.Int("embedded", len(done)), zap.Int("total", len(texts)))
			}
		}
		if i < len(batches)-1 && c.cooldown > 0 {
			select {
			case <-time.After(c.cooldown):
			case <-ctx.Done():
				if sink != nil {
					_ = sink(done)
				}
				return nil, ctx.Err()
			}
		}
	}
	return done, nil
}

// embedBatch posts one batch, retrying transient failures with exponential
// backoff up to the attempt budget. Count mismatches are permanent.
func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	var vecs [][]float64
	attempt := 0
	op := func() error {
		attempt++
		v, err := c.post(ctx, batch)
		if err != nil {
			if domain.KindOf(err) == domain.KindMalformed {
				return backoff.Permanent(err)
			}
			c.log.Warn("embedding request failed",
				zap.Int("attempt", attempt), zap.Int("batch_size", len(batch)), zap.Error(err))
			return err
		}
		vecs = v
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxInterval = c.maxBackoff
	bo.MaxElapsedTime = 0
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (c *Client) post(ctx context.Context, batch []string) ([][]float64, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": batch,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.E(domain.KindTransient, "ollama.post", err)
	}
	payload, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, domain.E(domain.KindTransient, "ollama.post", err)
	}
	if resp.StatusCode >= 300 {
		return nil, domain.Errf(domain.KindTransient, "ollama.post", "embedding endpoint returned %s", resp.Status)
	}

	var out struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, domain.Errf(domain.KindMalformed, "ollama.post", "decoding embedding response: %v", err)
	}
	if len(out.Embeddings) != len(batch) {
		return nil, domain.Errf(domain.KindMalformed, "ollama.post",
			"embedding count mismatch: sent %d texts, got %d vectors", len(batch), len(out.Embeddings))
	}
	for i := range out.Embeddings {
		out.Embeddings[i] = embedding.Normalize(out.Embeddings[i])
	}
	return out.Embeddings, nil
}

var _ domain.Embedder = (*Client)(nil)

// String implements fmt.Stringer for log output.
func (c *Client) String() string {
	return fmt.Sprintf("ollama(%s, %s)", c.baseURL, c.model)
}
