// Package main provides the campaign manager HTTP API server.
// It serves the REST surface for accounts, campaigns, campaign content,
// and D&D Beyond character imports.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/api"
	"github.com/cory-johannsen/lorekeeper/internal/auth"
	"github.com/cory-johannsen/lorekeeper/internal/config"
	"github.com/cory-johannsen/lorekeeper/internal/dndbeyond"
	"github.com/cory-johannsen/lorekeeper/internal/observability"
	"github.com/cory-johannsen/lorekeeper/internal/server"
	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting Lorekeeper API",
		zap.String("http_addr", cfg.Server.Addr()),
	)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	// Build services
	tokens := auth.NewManager(cfg.Auth)
	client := dndbeyond.NewClient(cfg.DndBeyond)
	importer := dndbeyond.NewImporter(client, cfg.DndBeyond.CobaltToken, logger)

	stores := api.Stores{
		Users:      postgres.NewUserRepository(pool.DB(), cfg.Auth.BcryptCost),
		Campaigns:  postgres.NewCampaignRepository(pool.DB()),
		Characters: postgres.NewCharacterRepository(pool.DB()),
		Places:     postgres.NewPlaceRepository(pool.DB()),
		Items:      postgres.NewItemRepository(pool.DB()),
		Quests:     postgres.NewQuestRepository(pool.DB()),
		Sessions:   postgres.NewSessionRepository(pool.DB()),
		Notes:      postgres.NewNoteRepository(pool.DB()),
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(stores, tokens, importer, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			err := httpServer.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http server shutdown", zap.Error(err))
			}
		},
	})

	logger.Info("api server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.Server.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
