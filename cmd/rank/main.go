package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wisslab/wissrank/internal/util"
	"github.com/wisslab/wissrank/pkg/ai"
	oai "github.com/wisslab/wissrank/pkg/ai/ollama"
	gai "github.com/wisslab/wissrank/pkg/ai/openai"
	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/logger/console"
	"github.com/wisslab/wissrank/pkg/rank"
	"github.com/wisslab/wissrank/pkg/snapshot"
)

// wissrank-rank scores one CSV snapshot against a concept and writes the
// ranked scholars as CSV, without needing Postgres or RabbitMQ.
func main() {
	util.LoadEnv()

	snapshotDir := flag.String("snapshot", "", "directory holding scholars.csv, works.csv and attributions.csv")
	concept := flag.String("concept", "", "target concept text to rank against")
	outPath := flag.String("out", "", "output CSV path (default stdout)")
	eraStart := flag.String("era-start", "", "era start date YYYY-MM-DD (default 1801-01-01)")
	eraEnd := flag.String("era-end", "", "era end date YYYY-MM-DD (default 1900-12-31)")
	wSemantic := flag.Float64("w-semantic", 1.0/3.0, "semantic signal weight")
	wGraph := flag.Float64("w-graph", 1.0/3.0, "graph signal weight")
	wTemporal := flag.Float64("w-temporal", 1.0/3.0, "temporal signal weight")
	flag.Parse()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if *snapshotDir == "" {
		logger.Fatal("Missing -snapshot directory")
	}
	if *concept == "" {
		logger.Fatal("Missing -concept text")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter := util.GetEnv("AI_ADAPTER")
	embedModel := util.GetEnv("AI_EMBED_MODEL")
	var embedder ai.Embedder

	switch adapter {
	case "ollama":
		client, err := oai.NewOllamaEmbedder(oai.NewOllamaEmbedderParams{
			Model:   embedModel,
			BaseURL: util.GetEnv("AI_EMBED_URL"),
			ApiKey:  util.GetEnv("AI_EMBED_KEY"),

			Dimensions: int(util.GetEnvNumeric("AI_EMBED_DIM", 1024)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		embedder = client
	default:
		embedder = gai.NewOpenAIEmbedder(gai.NewOpenAIEmbedderParams{
			Model:   embedModel,
			BaseURL: util.GetEnv("AI_EMBED_URL"),
			ApiKey:  util.GetEnv("AI_EMBED_KEY"),

			Dimensions: int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),
		})
	}

	snap, warnings, err := snapshot.Load(*snapshotDir)
	if err != nil {
		logger.Fatal("Failed to load snapshot", "dir", *snapshotDir, "err", err)
	}
	for _, w := range warnings {
		logger.Warn("Quarantined snapshot record", "code", w.Code, "detail", w.Message)
	}
	logger.Info("Snapshot loaded", "persons", snap.PersonCount(), "works", snap.WorkCount(), "quarantined", len(warnings))

	cfg := rank.DefaultConfig()
	cfg.ConceptText = *concept
	cfg.EmbedDim = embedder.Dimensions()
	cfg.Weights = rank.Weights{
		Semantic: *wSemantic,
		Graph:    *wGraph,
		Temporal: *wTemporal,
	}
	if *eraStart != "" {
		start, err := time.Parse("2006-01-02", *eraStart)
		if err != nil {
			logger.Fatal("Invalid -era-start date", "err", err)
		}
		cfg.EraStart = start
	}
	if *eraEnd != "" {
		end, err := time.Parse("2006-01-02", *eraEnd)
		if err != nil {
			logger.Fatal("Invalid -era-end date", "err", err)
		}
		cfg.EraEnd = end
	}

	engine, err := rank.NewEngine(cfg, embedder)
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	start := time.Now()
	result, err := engine.Run(ctx, snap)
	if err != nil {
		logger.Fatal("Ranking failed", "err", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal("Failed to create output file", "path", *outPath, "err", err)
		}
		defer f.Close()
		out = f
	}
	if err := rank.WriteCSV(out, result.Entries); err != nil {
		logger.Fatal("Failed to write ranking", "err", err)
	}

	diag := result.Diagnostics
	logger.Info(
		"Ranking complete",
		"ranked", len(result.Entries),
		"excluded", len(diag.ExcludedPersons),
		"skipped_normalization", diag.SkippedNormalization,
		"centrality_iterations", diag.CentralityIterations,
		"approximate_centrality", diag.ApproximateCentrality,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
