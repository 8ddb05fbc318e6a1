package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semsearch/internal/cache"
	"semsearch/internal/domain"
	"semsearch/internal/embedding"
)

// bagEmbedder maps texts onto a fixed vocabulary as normalized token-count
// vectors, so similarity behaves like word overlap and stays deterministic.
type bagEmbedder struct {
	vocab []string
}

func (b *bagEmbedder) Model() string { return "bag-of-words" }

func (b *bagEmbedder) vector(text string) []float64 {
	v := make([]float64, len(b.vocab))
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		for i, w := range b.vocab {
			if tok == w {
				v[i]++
			}
		}
	}
	return embedding.Normalize(v)
}

func (b *bagEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = b.vector(t)
	}
	return out, nil
}

func (b *bagEmbedder) EmbedAll(ctx context.Context, texts []string, _ domain.CheckpointSink) ([][]float64, error) {
	return b.Embed(ctx, texts)
}

func fixture(t *testing.T, emb *bagEmbedder, contents ...string) (*cache.Manifest, []domain.ChunkRecord) {
	t.Helper()
	chunks := make([]domain.ChunkRecord, len(contents))
	ids := make([]string, len(contents))
	vecs := make([][]float64, len(contents))
	for i, c := range contents {
		chunks[i] = domain.ChunkRecord{ID: string(rune('a' + i)), Content: c, DocumentID: "doc", ChunkIndex: i}
		ids[i] = chunks[i].ID
		vecs[i] = emb.vector(c)
	}
	return &cache.Manifest{
		Model:       emb.Model(),
		ChunkCount:  len(contents),
		SourceMtime: time.Now().UnixNano(),
		ChunkIDs:    ids,
		Embeddings:  vecs,
	}, chunks
}

func catsEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: []string{"cats", "dogs", "are", "great", "loyal", "purr"}}
}

func TestRetrieveRanksRelevantChunksFirst(t *testing.T) {
	emb := catsEmbedder()
	manifest, chunks := fixture(t, emb, "cats are great", "dogs are loyal", "cats purr")

	results, err := Retrieve(context.Background(), emb, "cats", manifest, chunks, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	got := []string{results[0].Chunk.Content, results[1].Chunk.Content}
	assert.Contains(t, got, "cats are great")
	assert.Contains(t, got, "cats purr")
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestRetrieveIdenticalTextScoresHighest(t *testing.T) {
	emb := catsEmbedder()
	manifest, chunks := fixture(t, emb, "cats are great", "dogs are loyal", "cats purr")

	results, err := Retrieve(context.Background(), emb, "dogs are loyal", manifest, chunks, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "dogs are loyal", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestRetrieveDeterministic(t *testing.T) {
	emb := catsEmbedder()
	manifest, chunks := fixture(t, emb, "cats are great", "dogs are loyal", "cats purr")

	first, err := Retrieve(context.Background(), emb, "loyal cats", manifest, chunks, 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Retrieve(context.Background(), emb, "loyal cats", manifest, chunks, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRetrieveTiesKeepCorpusOrder(t *testing.T) {
	emb := catsEmbedder()
	// Identical contents produce identical scores; corpus order must win.
	manifest, chunks := fixture(t, emb, "cats purr", "cats purr", "dogs are loyal")

	results, err := Retrieve(context.Background(), emb, "cats", manifest, chunks, 2)
	require.NoError(t, err)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "b", results[1].Chunk.ID)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestRetrieveScoresRounded(t *testing.T) {
	emb := catsEmbedder()
	manifest, chunks := fixture(t, emb, "cats are great", "dogs are loyal")

	results, err := Retrieve(context.Background(), emb, "cats", manifest, chunks, 2)
	require.NoError(t, err)
	// "cats" against "cats are great" is 1/sqrt(3), rounded to 0.5774.
	assert.InDelta(t, 0.5774, results[0].Score, 1e-12)
}

func TestRetrieveKClampedToCorpus(t *testing.T) {
	emb := catsEmbedder()
	manifest, chunks := fixture(t, emb, "cats are great", "dogs are loyal")

	results, err := Retrieve(context.Background(), emb, "cats", manifest, chunks, 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieveLengthMismatchIsMalformed(t *testing.T) {
	emb := catsEmbedder()
	manifest, chunks := fixture(t, emb, "cats are great", "dogs are loyal")
	manifest.Embeddings = manifest.Embeddings[:1]

	_, err := Retrieve(context.Background(), emb, "cats", manifest, chunks, 2)
	require.Error(t, err)
	assert.Equal(t, domain.KindMalformed, domain.KindOf(err))
}
