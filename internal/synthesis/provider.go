package synthesis

import (
	"strings"

	"semsearch/internal/domain"
)

// Family identifies a class of chat-completion-compatible providers. Each
// family carries its own base URL, credential source, and prompt template.
type Family int

const (
	// FamilyLocal is an Ollama server exposing the OpenAI-compatible /v1
	// surface. Models use small-catalog names like "qwen2.5:7b".
	FamilyLocal Family = iota
	// FamilyMarketplace is OpenRouter-style hosting where models are named
	// "vendor/model".
	FamilyMarketplace
	// FamilySmallCatalog is a hosted provider with a fixed model catalog
	// (OpenAI-style naming without a separator).
	FamilySmallCatalog
	// FamilyCustom is a user-supplied endpoint with a generic credential.
	FamilyCustom
)

func (f Family) String() string {
	switch f {
	case FamilyLocal:
		return "local"
	case FamilyMarketplace:
		return "openrouter"
	case FamilySmallCatalog:
		return "openai"
	case FamilyCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Credential env vars per family. FamilyLocal needs no key; its presence
// signal is an explicit OLLAMA_HOST.
const (
	envMarketplaceKey = "OPENROUTER_API_KEY"
	envSmallCatalog   = "OPENAI_API_KEY"
	envLocalHost      = "OLLAMA_HOST"
	envCustomKey      = "LLM_API_KEY"
)

// Resolved is a fully determined synthesis target: where to send the
// request and as whom.
type Resolved struct {
	Family  Family
	BaseURL string
	APIKey  string
	Model   string
}

// Resolve picks a provider family for the request. Order: explicit custom
// endpoint, explicit provider name, model-name shape, then the first
// family with a credential present. With nothing resolvable it fails
// before any HTTP call is made.
func (s *Synthesizer) Resolve(provider, model, endpoint string) (Resolved, error) {
	if endpoint != "" {
		key := s.getenv(envCustomKey)
		if key == "" {
			return Resolved{}, domain.Errf(domain.KindCredentialMissing, "synthesis.Resolve",
				"custom endpoint requires %s", envCustomKey)
		}
		return s.finish(FamilyCustom, endpoint, key, model)
	}

	if provider != "" {
		switch strings.ToLower(provider) {
		case "ollama", "local":
			return s.finish(FamilyLocal, "", "", model)
		case "openrouter":
			return s.finish(FamilyMarketplace, "", "", model)
		case "openai":
			return s.finish(FamilySmallCatalog, "", "", model)
		default:
			return Resolved{}, domain.Errf(domain.KindUnknownProvider, "synthesis.Resolve",
				"unknown provider: %s", provider)
		}
	}

	if model != "" {
		if strings.Contains(model, "/") {
			return s.finish(FamilyMarketplace, "", "", model)
		}
		return s.finish(FamilyLocal, "", "", model)
	}

	switch {
	case s.getenv(envMarketplaceKey) != "":
		return s.finish(FamilyMarketplace, "", "", model)
	case s.getenv(envSmallCatalog) != "":
		return s.finish(FamilySmallCatalog, "", "", model)
	case s.getenv(envLocalHost) != "":
		return s.finish(FamilyLocal, "", "", model)
	}
	return Resolved{}, domain.Errf(domain.KindCredentialMissing, "synthesis.Resolve",
		"no synthesis provider credential found (set %s, %s, %s or pass an endpoint)",
		envMarketplaceKey, envSmallCatalog, envLocalHost)
}

// finish fills in base URL, credential and default model for the chosen
// family, verifying the credential where one is required.
func (s *Synthesizer) finish(f Family, baseURL, apiKey, model string) (Resolved, error) {
	switch f {
	case FamilyLocal:
		host := s.getenv(envLocalHost)
		if host == "" {
			host = "http://localhost:11434"
		}
		baseURL = strings.TrimSuffix(host, "/") + "/v1"
		if model == "" {
			model = "qwen2.5:7b"
		}
	case FamilyMarketplace:
		apiKey = s.getenv(envMarketplaceKey)
		if apiKey == "" {
			return Resolved{}, domain.Errf(domain.KindCredentialMissing, "synthesis.Resolve",
				"%s not set", envMarketplaceKey)
		}
		baseURL = "https://openrouter.ai/api/v1"
		if model == "" {
			model = "anthropic/claude-3.5-sonnet"
		}
	case FamilySmallCatalog:
		apiKey = s.getenv(envSmallCatalog)
		if apiKey == "" {
			return Resolved{}, domain.Errf(domain.KindCredentialMissing, "synthesis.Resolve",
				"%s not set", envSmallCatalog)
		}
		baseURL = "https://api.openai.com/v1"
		if model == "" {
			model = "gpt-4o-mini"
		}
	case FamilyCustom:
		if model == "" {
			model = "default"
		}
	}
	return Resolved{Family: f, BaseURL: baseURL, APIKey: apiKey, Model: model}, nil
}
