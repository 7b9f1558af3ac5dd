// Recalld is a per-tenant retrieval-augmented generation daemon.
//
// This binary starts the recalld HTTP server with full service
// initialization: blob snapshot store, embedding provider, tenant state
// manager, retrieval pipeline, and generation orchestrator.
//
// Configuration is loaded from ~/.config/recalld/config.yaml and overridden
// by environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	recalld
//
//	# Configure via environment
//	SERVER_HTTP_PORT=8081 EMBEDDINGS_API_KEY=... recalld
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/blob"
	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/generation"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/rag"
	"github.com/fyrsmithlabs/recalld/internal/retrieval"
	"github.com/fyrsmithlabs/recalld/internal/server"
	"github.com/fyrsmithlabs/recalld/internal/telemetry"
	"github.com/fyrsmithlabs/recalld/internal/tenant"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/recalld/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  recalld           Start the recalld daemon\n")
			fmt.Fprintf(os.Stderr, "  recalld version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("recalld by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the recalld server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes the logger and telemetry providers
//  3. Connects the blob snapshot store (fs or NATS object store)
//  4. Creates the embedding provider and text generator
//  5. Wires the tenant manager, retrieval pipeline, and orchestrator
//  6. Starts the HTTP server
//  7. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "Starting recalld",
		zap.Int("port", cfg.Server.Port),
		zap.String("blob_provider", cfg.Blob.Provider),
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	// Registers the global tracer and meter providers so package-level
	// instruments export when telemetry is enabled.
	tel, err := telemetry.New(ctx, &cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn(context.Background(), "Telemetry shutdown failed", zap.Error(err))
		}
	}()

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info(ctx, "Dependencies initialized",
		zap.Int("embedding_dimension", deps.embedder.Dimension()),
		zap.String("generation_model", cfg.Generation.Model))

	manager := tenant.NewManager(deps.blobs, deps.embedder, logger)
	pipeline := retrieval.NewPipeline(manager, deps.embedder, logger)
	orchestrator := rag.NewOrchestrator(pipeline, deps.generator, cfg.Retrieval.TopK, logger)

	srv, err := server.NewServer(manager, orchestrator, logger, &server.Config{
		Host: "0.0.0.0",
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	blobs     blob.Store
	embedder  embeddings.Embedder
	generator generation.Generator
	logger    *logging.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.generator != nil {
		_ = d.generator.Close()
	}
	if d.embedder != nil {
		_ = d.embedder.Close()
	}
	if d.blobs != nil {
		_ = d.blobs.Close()
	}
	if d.logger != nil {
		_ = d.logger.Sync() // Best-effort sync
	}
}

// initDependencies initializes all infrastructure dependencies.
func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	blobs, err := blob.NewStore(blob.Config{
		Provider: cfg.Blob.Provider,
		Path:     cfg.Blob.Path,
		URL:      cfg.Blob.URL,
		Bucket:   cfg.Blob.Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	logger.Info(ctx, "Blob store connected", zap.String("provider", cfg.Blob.Provider))

	embedder, err := embeddings.NewProvider(ctx, embeddings.ProviderConfig{
		Provider:  cfg.Embeddings.Provider,
		Model:     cfg.Embeddings.Model,
		Dimension: cfg.Embeddings.Dimension,
		APIKey:    cfg.Embeddings.APIKey.Value(),
		BaseURL:   cfg.Embeddings.BaseURL,
	}, logger.Underlying())
	if err != nil {
		_ = blobs.Close()
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	logger.Info(ctx, "Embedding provider initialized",
		zap.String("provider", cfg.Embeddings.Provider),
		zap.String("model", cfg.Embeddings.Model),
		zap.Int("dimension", cfg.Embeddings.Dimension))

	generator, err := generation.NewGeminiGenerator(ctx, generation.Config{
		APIKey:          cfg.Generation.APIKey.Value(),
		Model:           cfg.Generation.Model,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		Temperature:     cfg.Generation.Temperature,
		TopP:            cfg.Generation.TopP,
	})
	if err != nil {
		_ = embedder.Close()
		_ = blobs.Close()
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	return &dependencies{
		blobs:     blobs,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}, nil
}
