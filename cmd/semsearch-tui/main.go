package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"semsearch/internal/config"
	"semsearch/internal/domain"
	"semsearch/internal/service"
	"semsearch/internal/tui"
)

// enginePort adapts the service engine to the TUI's query interface,
// pinning the corpus path chosen at startup.
type enginePort struct {
	engine     *service.Engine
	corpusPath string
}

func (p *enginePort) Query(query string, topK int) ([]domain.RetrievalResult, error) {
	res, err := p.engine.Query(context.Background(), service.QueryRequest{
		CorpusPath: p.corpusPath,
		Query:      query,
		TopK:       topK,
	})
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var forceRebuild bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file")
	flag.BoolVar(&forceRebuild, "force-rebuild", false, "Rebuild the embedding cache before starting")
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: semsearch-tui [--config=semsearch.yaml] corpus.json")
		os.Exit(1)
	}
	corpusPath := args[0]

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

	engine := service.FromConfig(cfg, zap.NewNop())

	// Warm the cache up front so the first interactive query is fast and
	// build errors surface before the terminal goes raw.
	warm, err := engine.Query(context.Background(), service.QueryRequest{
		CorpusPath:   corpusPath,
		Query:        "warmup",
		TopK:         1,
		ForceRebuild: forceRebuild,
	})
	if err != nil {
		log.Fatalf("preparing corpus failed: %v", err)
	}

	header := fmt.Sprintf("%s (cache: %s, model: %s)", corpusPath, warm.CacheStatus, cfg.Embedding.Model)
	m := tui.New(&enginePort{engine: engine, corpusPath: corpusPath}, header, cfg.Search.TopK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
