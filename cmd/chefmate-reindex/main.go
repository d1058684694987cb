// Command chefmate-reindex re-embeds every stored recipe document with
// the current weighting settings. Documents are updated in place; the
// operation spends embedding quota and cannot be undone, so it requires
// an explicit --yes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/config"
	dbRedis "github.com/chefmate-cloud/chefmate/internal/db/redis"
	logpkg "github.com/chefmate-cloud/chefmate/internal/logger"
	"github.com/chefmate-cloud/chefmate/internal/metrics"
	reciperepo "github.com/chefmate-cloud/chefmate/internal/repository/recipe"
	openaiTransport "github.com/chefmate-cloud/chefmate/internal/transport/openai"
	reindexuc "github.com/chefmate-cloud/chefmate/internal/usecase/reindex"
)

func main() {
	var yes, recreateIndex bool
	flag.BoolVar(&yes, "yes", false, "confirm reindexing all recipes")
	flag.BoolVar(&yes, "y", false, "confirm reindexing all recipes (shorthand)")
	flag.BoolVar(&recreateIndex, "recreate-index", false,
		"drop and recreate the vector index first (required after changing embedding dimensions)")
	flag.Parse()

	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	fmt.Println("Recipe embeddings reindexing tool")
	fmt.Println()
	fmt.Println("Current settings:")
	fmt.Printf("  embedding model:  %s (%d dims)\n", cfg.Embedding.Model, cfg.Embedding.Dimensions)
	fmt.Printf("  dish name weight: %dx\n", cfg.Document.DishNameWeight)
	fmt.Printf("  category weight:  %dx\n", cfg.Document.CategoryWeight)
	fmt.Printf("  max text length:  %d chars\n", cfg.Document.MaxTextLength)
	fmt.Println()

	if !yes {
		fmt.Println("This re-generates embeddings for ALL recipes, spends embedding")
		fmt.Println("API quota and cannot be undone.")
		fmt.Println()
		fmt.Println("Aborted. Run with --yes or -y to confirm and proceed.")
		return
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Database.Addrs) == 0 {
		fmt.Fprintln(os.Stderr, "database.addrs is not configured, nothing to reindex")
		os.Exit(1)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	fmt.Println("Connected to database")

	metrics.RegisterEmbeddingMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	repo := reciperepo.New(reciperepo.Config{
		KeyPrefix:  cfg.Database.KeyPrefix,
		IndexName:  cfg.Database.IndexName,
		Dimensions: cfg.Embedding.Dimensions,
		TopK:       cfg.RAG.TopK,
		Threshold:  cfg.RAG.SimilarityThreshold,
		Text: reciperepo.TextPolicy{
			MaxTextLength:  cfg.Document.MaxTextLength,
			DishNameWeight: cfg.Document.DishNameWeight,
			CategoryWeight: cfg.Document.CategoryWeight,
		},
	}, store, embedder)

	if recreateIndex {
		if err := repo.RecreateIndex(ctx); err != nil {
			logger.Fatal("Failed to recreate vector index", zap.Error(err))
		}
		fmt.Printf("Index %s recreated with %d dimensions\n", cfg.Database.IndexName, cfg.Embedding.Dimensions)
	}

	fmt.Println("Starting reindex...")
	fmt.Println()

	report, err := reindexuc.New(repo, logger).Run(ctx)
	if err != nil {
		logger.Fatal("Reindex failed", zap.Error(err))
	}

	fmt.Println("Reindex complete")
	fmt.Printf("  total:   %d\n", report.Total)
	fmt.Printf("  success: %d\n", report.Success)
	fmt.Printf("  failed:  %d\n", report.Failed)

	if report.Failed > 0 {
		fmt.Println()
		fmt.Println("Some recipes failed to reindex, check logs for details.")
		os.Exit(1)
	}
}
