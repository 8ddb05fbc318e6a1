package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"semsearch/internal/cache"
	"semsearch/internal/config"
	"semsearch/internal/corpus"
	"semsearch/internal/domain"
	"semsearch/internal/embedding"
	"semsearch/internal/embedding/ollama"
	"semsearch/internal/search"
	"semsearch/internal/synthesis"
)

// Engine wires the corpus reader, cache manager, search engine and
// synthesizer into the query operation the CLI and TUI expose.
type Engine struct {
	embedder    domain.Embedder
	synthesizer *synthesis.Synthesizer
	cacheDir    string
	log         *zap.Logger
}

// QueryRequest is one retrieval invocation against a corpus file.
type QueryRequest struct {
	CorpusPath   string
	Query        string
	TopK         int
	ForceRebuild bool
	Synthesize   bool
	Provider     string
	Model        string
	Endpoint     string
}

// QueryResult carries the ranked chunks, how the cache was satisfied, and
// the optional synthesized answer.
type QueryResult struct {
	CacheStatus string
	Results     []domain.RetrievalResult
	Answer      string
	Provider    string
	Model       string
}

// New creates an Engine from explicit components.
func New(embedder domain.Embedder, synthesizer *synthesis.Synthesizer, cacheDir string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{embedder: embedder, synthesizer: synthesizer, cacheDir: cacheDir, log: log}
}

// FromConfig assembles an Engine with the default ollama embedding client
// and synthesizer.
func FromConfig(cfg *config.EngineConfig, log *zap.Logger) *Engine {
	embedder := ollama.NewClient(ollama.Config{
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		Timeout: time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		Limits: embedding.BatchLimits{
			MaxBatchItems: cfg.Embedding.MaxBatchItems,
			MaxBatchChars: cfg.Embedding.MaxBatchChars,
			MaxChunkChars: cfg.Embedding.MaxChunkChars,
		},
		MaxAttempts:     cfg.Embedding.MaxAttempts,
		Cooldown:        time.Duration(cfg.Embedding.CooldownMillis) * time.Millisecond,
		CheckpointEvery: cfg.Embedding.CheckpointEvery,
		Logger:          log,
	})
	synthesizer := synthesis.New(synthesis.Config{
		MaxTokens: cfg.Synthesis.MaxTokens,
		Timeout:   time.Duration(cfg.Synthesis.TimeoutSecs) * time.Second,
		Logger:    log,
	})
	return New(embedder, synthesizer, cfg.Cache.Dir, log)
}

// Query loads the corpus, resolves the embedding cache, ranks chunks for
// the query, and optionally synthesizes an answer from the top results.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	chunks, mtime, err := corpus.Load(req.CorpusPath)
	if err != nil {
		return nil, err
	}
	e.log.Debug("corpus loaded", zap.Int("chunks", len(chunks)), zap.Time("mtime", mtime))

	manager := cache.NewManager(e.embedder, req.CorpusPath, e.cacheDir, e.log)
	manifest, status, err := manager.Resolve(ctx, chunks, mtime, req.ForceRebuild)
	if err != nil {
		return nil, err
	}

	results, err := search.Retrieve(ctx, e.embedder, req.Query, manifest, chunks, req.TopK)
	if err != nil {
		return nil, err
	}

	out := &QueryResult{CacheStatus: string(status), Results: results}
	if req.Synthesize {
		resp, err := e.synthesizer.Synthesize(ctx, synthesis.Request{
			Query:    req.Query,
			Results:  results,
			Provider: req.Provider,
			Model:    req.Model,
			Endpoint: req.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		out.Answer = resp.Answer
		out.Provider = resp.Provider
		out.Model = resp.Model
	}
	return out, nil
}
