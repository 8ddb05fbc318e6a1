package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"semsearch/internal/config"
	"semsearch/internal/domain"
	"semsearch/internal/service"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath      string
		topK         int
		forceRebuild bool
		synthesize   bool
		provider     string
		model        string
		endpoint     string
		jsonOut      bool
		verbose      bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/semsearch/config.yaml if not provided)")
	flag.IntVar(&topK, "k", 0, "Number of results to return (default from config)")
	flag.BoolVar(&forceRebuild, "force-rebuild", false, "Rebuild the embedding cache even if it is valid")
	flag.BoolVar(&synthesize, "synthesize", false, "Synthesize an answer from the retrieved chunks")
	flag.StringVar(&provider, "provider", "", "Synthesis provider (ollama, openrouter, openai)")
	flag.StringVar(&model, "model", "", "Synthesis model name")
	flag.StringVar(&endpoint, "endpoint", "", "Custom chat-completion endpoint URL")
	flag.BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON output")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: semsearch [flags] corpus.json \"your question\"")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var cfg *config.EngineConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if topK == 0 {
		topK = cfg.Search.TopK
	}
	if provider == "" {
		provider = cfg.Synthesis.Provider
	}
	if model == "" {
		model = cfg.Synthesis.Model
	}
	if endpoint == "" {
		endpoint = cfg.Synthesis.Endpoint
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("failed to build logger: %v", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	engine := service.FromConfig(cfg, logger)
	result, err := engine.Query(context.Background(), service.QueryRequest{
		CorpusPath:   args[0],
		Query:        args[1],
		TopK:         topK,
		ForceRebuild: forceRebuild,
		Synthesize:   synthesize,
		Provider:     provider,
		Model:        model,
		Endpoint:     endpoint,
	})
	if err != nil {
		exitErr(err, jsonOut)
	}

	if jsonOut {
		printJSON(result)
		return
	}
	fmt.Printf("cache: %s\n\n", result.CacheStatus)
	for _, r := range result.Results {
		fmt.Printf("%2d. [%.4f] %s #%d\n    %s\n", r.Rank, r.Score, r.Chunk.DocumentID, r.Chunk.ChunkIndex, preview(r.Chunk.Content, 160))
	}
	if result.Answer != "" {
		fmt.Printf("\nAnswer (%s, %s):\n%s\n", result.Provider, result.Model, result.Answer)
	}
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// exitErr maps error kinds to exit codes: 1 for a missing or empty corpus,
// 2 for data-integrity failures, 3 for exhausted retries, 4 for provider
// resolution problems.
func exitErr(err error, jsonOut bool) {
	kind := domain.KindOf(err)
	if jsonOut {
		printJSON(map[string]any{"error": map[string]string{
			"kind":    kind.String(),
			"message": err.Error(),
		}})
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	switch kind {
	case domain.KindNotFound, domain.KindEmpty:
		os.Exit(1)
	case domain.KindMalformed:
		os.Exit(2)
	case domain.KindFatal, domain.KindTransient:
		os.Exit(3)
	case domain.KindCredentialMissing, domain.KindUnknownProvider:
		os.Exit(4)
	default:
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
