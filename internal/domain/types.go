package domain

import "context"

// ChunkRecord is one retrievable unit of a corpus. Records are read fresh
// from the corpus store on every run and never persisted by the engine.
type ChunkRecord struct {
	ID         string
	Content    string
	DocumentID string
	ChunkIndex int
	Metadata   map[string]any
}

// RetrievalResult is a ranked chunk returned by a similarity query.
// Rank is 1-based; Score is cosine similarity rounded to 4 decimals.
type RetrievalResult struct {
	Rank  int
	Score float64
	Chunk ChunkRecord
}

// CheckpointSink receives all vectors embedded so far in the current run.
// Implementations persist them so an interrupted build can resume later.
type CheckpointSink func(done [][]float64) error

// Embedder converts texts into L2-normalized embedding vectors via a
// remote embedding provider.
type Embedder interface {
	// Embed performs a single ad-hoc embedding call (e.g. for a query).
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	// EmbedAll embeds a full corpus in batches, invoking sink periodically
	// and before surfacing a terminal failure.
	EmbedAll(ctx context.Context, texts []string, sink CheckpointSink) ([][]float64, error)
	// Model returns the embedding model identifier.
	Model() string
}
