package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oscillatelabsllc/nflpicker/internal/api"
	"github.com/oscillatelabsllc/nflpicker/internal/config"
	"github.com/oscillatelabsllc/nflpicker/internal/db"
	"github.com/oscillatelabsllc/nflpicker/internal/logger"
	"github.com/oscillatelabsllc/nflpicker/internal/mcp"
	"github.com/oscillatelabsllc/nflpicker/internal/notebook"
	"github.com/oscillatelabsllc/nflpicker/internal/odds"
	"github.com/oscillatelabsllc/nflpicker/internal/search"
	"github.com/oscillatelabsllc/nflpicker/internal/session"
	"github.com/oscillatelabsllc/nflpicker/internal/storage"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "info"})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	blobs, err := openStorage(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer blobs.Close()

	tokenizer, err := notebook.NewCL100K()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load tokenizer")
	}

	notebooks := notebook.NewStore(blobs, tokenizer, cfg.Season, cfg.ScratchpadMaxTokens, log)
	searcher := search.NewClient(cfg.ExaAPIKey, log, search.WithTimeout(cfg.SearchTimeout))
	env := session.NewEnvironment(odds.NewStore(blobs), searcher, blobs, log)

	mcpServer := mcp.NewServer(env, notebooks, cfg.ModelName, log)

	log.Info().
		Str("transport", cfg.Transport).
		Str("storage", cfg.StorageBackend).
		Str("data_dir", cfg.DataDir).
		Int("season", cfg.Season).
		Str("model", cfg.ModelName).
		Bool("search_enabled", cfg.ExaAPIKey != "").
		Msg("NFL picker starting")

	if cfg.Transport == config.TransportStdio {
		if err := mcpServer.Serve(); err != nil {
			log.Fatal().Err(err).Msg("MCP server error")
		}
		return
	}

	httpServer := api.NewServer(env, notebooks, blobs, cfg.Port, log)
	httpServer.AddMCPServer(mcpServer.GetMCPServer())

	go func() {
		if err := httpServer.Serve(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}

func openStorage(cfg *config.Config, log zerolog.Logger) (storage.BlobStore, error) {
	if cfg.StorageBackend == config.BackendDuckDB {
		log.Info().Str("path", cfg.DuckDBPath).Msg("Using DuckDB storage")
		store, err := db.NewStore(cfg.DuckDBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	log.Info().Str("path", cfg.DataDir).Msg("Using file storage")
	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}
