package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semsearch/internal/domain"
)

func stubSynthesizer(env map[string]string) *Synthesizer {
	return New(Config{Getenv: func(key string) string { return env[key] }})
}

func TestResolveCustomEndpoint(t *testing.T) {
	s := stubSynthesizer(map[string]string{"LLM_API_KEY": "secret"})
	r, err := s.Resolve("", "some-model", "https://llm.internal/v1")
	require.NoError(t, err)
	assert.Equal(t, FamilyCustom, r.Family)
	assert.Equal(t, "https://llm.internal/v1", r.BaseURL)
	assert.Equal(t, "secret", r.APIKey)
	assert.Equal(t, "some-model", r.Model)
}

func TestResolveCustomEndpointWithoutKey(t *testing.T) {
	s := stubSynthesizer(nil)
	_, err := s.Resolve("", "", "https://llm.internal/v1")
	require.Error(t, err)
	assert.Equal(t, domain.KindCredentialMissing, domain.KindOf(err))
}

func TestResolveExplicitProvider(t *testing.T) {
	env := map[string]string{
		"OPENROUTER_API_KEY": "or-key",
		"OPENAI_API_KEY":     "oa-key",
	}
	tests := []struct {
		provider string
		family   Family
	}{
		{"openrouter", FamilyMarketplace},
		{"openai", FamilySmallCatalog},
		{"ollama", FamilyLocal},
		{"local", FamilyLocal},
	}
	for _, tc := range tests {
		t.Run(tc.provider, func(t *testing.T) {
			r, err := stubSynthesizer(env).Resolve(tc.provider, "", "")
			require.NoError(t, err)
			assert.Equal(t, tc.family, r.Family)
			assert.NotEmpty(t, r.Model, "each family carries a default model")
		})
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	_, err := stubSynthesizer(nil).Resolve("bedrock", "", "")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnknownProvider, domain.KindOf(err))
}

func TestResolveExplicitProviderMissingKey(t *testing.T) {
	_, err := stubSynthesizer(nil).Resolve("openrouter", "", "")
	require.Error(t, err)
	assert.Equal(t, domain.KindCredentialMissing, domain.KindOf(err))
}

func TestResolveModelShape(t *testing.T) {
	env := map[string]string{"OPENROUTER_API_KEY": "or-key"}

	r, err := stubSynthesizer(env).Resolve("", "anthropic/claude-3", "")
	require.NoError(t, err)
	assert.Equal(t, FamilyMarketplace, r.Family, "slash-separated names are marketplace style")
	assert.Equal(t, "https://openrouter.ai/api/v1", r.BaseURL)
	assert.Equal(t, "anthropic/claude-3", r.Model)

	r, err = stubSynthesizer(nil).Resolve("", "qwen2.5:7b", "")
	require.NoError(t, err)
	assert.Equal(t, FamilyLocal, r.Family, "catalog-style names resolve to the local family")
	assert.Equal(t, "http://localhost:11434/v1", r.BaseURL)
	assert.Empty(t, r.APIKey, "local family needs no credential")
}

func TestResolveEnvPresenceOrder(t *testing.T) {
	r, err := stubSynthesizer(map[string]string{
		"OPENROUTER_API_KEY": "or-key",
		"OPENAI_API_KEY":     "oa-key",
	}).Resolve("", "", "")
	require.NoError(t, err)
	assert.Equal(t, FamilyMarketplace, r.Family)

	r, err = stubSynthesizer(map[string]string{"OPENAI_API_KEY": "oa-key"}).Resolve("", "", "")
	require.NoError(t, err)
	assert.Equal(t, FamilySmallCatalog, r.Family)
	assert.Equal(t, "gpt-4o-mini", r.Model)

	r, err = stubSynthesizer(map[string]string{"OLLAMA_HOST": "http://gpu-box:11434"}).Resolve("", "", "")
	require.NoError(t, err)
	assert.Equal(t, FamilyLocal, r.Family)
	assert.Equal(t, "http://gpu-box:11434/v1", r.BaseURL)
}

func TestResolveNothingAvailable(t *testing.T) {
	_, err := stubSynthesizer(nil).Resolve("", "", "")
	require.Error(t, err)
	assert.Equal(t, domain.KindCredentialMissing, domain.KindOf(err))
}

func TestSystemPromptPerFamily(t *testing.T) {
	assert.Equal(t, antiHedge, systemPrompt(FamilyLocal))
	assert.Equal(t, strictGrounding, systemPrompt(FamilyMarketplace))
	assert.Equal(t, strictGrounding, systemPrompt(FamilySmallCatalog))
	assert.Equal(t, strictGrounding, systemPrompt(FamilyCustom))
	assert.Contains(t, antiHedge, "Never reply that there is insufficient information")
	assert.Contains(t, strictGrounding, "state that plainly")
}

func TestBuildUserPrompt(t *testing.T) {
	results := []domain.RetrievalResult{
		{Rank: 1, Score: 0.9123, Chunk: domain.ChunkRecord{DocumentID: "manual.md", Content: "cats purr"}},
		{Rank: 2, Score: 0.5, Chunk: domain.ChunkRecord{DocumentID: "guide.md", Content: "dogs are loyal"}},
	}
	prompt := buildUserPrompt("why do cats purr?", results)
	assert.Contains(t, prompt, "[source 1] (document manual.md, score 0.9123)")
	assert.Contains(t, prompt, "[source 2] (document guide.md, score 0.5000)")
	assert.Contains(t, prompt, "\n---\n")
	assert.Contains(t, prompt, "cats purr")
	assert.Contains(t, prompt, "Question: why do cats purr?")
}
