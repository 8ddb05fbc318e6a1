package search

import (
	"context"
	"math"
	"sort"

	"semsearch/internal/cache"
	"semsearch/internal/domain"
)

// Retrieve embeds the query and ranks every cached vector by cosine
// similarity. Stored vectors and the query embedding are unit length, so
// similarity reduces to a dot product. Ties keep corpus order (stable
// sort) and the result is deterministic for a fixed cache and query.
func Retrieve(ctx context.Context, embedder domain.Embedder, query string, manifest *cache.Manifest, chunks []domain.ChunkRecord, k int) ([]domain.RetrievalResult, error) {
	if len(manifest.Embeddings) != len(chunks) {
		return nil, domain.Errf(domain.KindMalformed, "search.Retrieve",
			"manifest holds %d vectors for %d chunks", len(manifest.Embeddings), len(chunks))
	}
	if k <= 0 {
		k = 5
	}
	if k > len(chunks) {
		k = len(chunks)
	}

	vecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	qvec := vecs[0]

	scores := make([]float64, len(chunks))
	for i, v := range manifest.Embeddings {
		scores[i] = dot(qvec, v)
	}
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	results := make([]domain.RetrievalResult, 0, k)
	for rank := 1; rank <= k; rank++ {
		idx := order[rank-1]
		results = append(results, domain.RetrievalResult{
			Rank:  rank,
			Score: round4(scores[idx]),
			Chunk: chunks[idx],
		})
	}
	return results, nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
