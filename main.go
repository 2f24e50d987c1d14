package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/mediakeep/mediakeep-engine/pkg/config"
	"github.com/mediakeep/mediakeep-engine/pkg/database"
	"github.com/mediakeep/mediakeep-engine/pkg/handlers"
	"github.com/mediakeep/mediakeep-engine/pkg/repositories"
	"github.com/mediakeep/mediakeep-engine/pkg/services"
	"github.com/mediakeep/mediakeep-engine/pkg/tmdb"
	"github.com/mediakeep/mediakeep-engine/pkg/trakt"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("database_host", cfg.Database.Host),
		zap.String("trakt_base_url", cfg.Trakt.BaseURL),
		zap.String("tmdb_base_url", cfg.TMDB.BaseURL))

	ctx := context.Background()

	// Migrations run over database/sql; the application itself uses pgx pools.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	settingsRepo := repositories.NewUserSettingsRepository(db)
	catalogRepo := repositories.NewCatalogItemRepository(db)
	factRepo := repositories.NewUserFactRepository(db)
	jobRepo := repositories.NewImportJobRepository(db)
	eventRepo := repositories.NewIngestEventRepository(db)

	historyClient, err := trakt.New(cfg.Trakt.BaseURL, trakt.WithTimeout(cfg.Trakt.Timeout))
	if err != nil {
		logger.Fatal("Failed to create history client", zap.Error(err))
	}
	metadataClient, err := tmdb.New(cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		logger.Fatal("Failed to create metadata client", zap.Error(err))
	}

	importService := services.NewImportService(jobRepo, settingsRepo, catalogRepo, factRepo,
		historyClient, metadataClient, cfg.TMDB.Timeout, logger)
	webhookService := services.NewWebhookService(settingsRepo, catalogRepo, factRepo, eventRepo,
		metadataClient, cfg.TMDB.Timeout, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewImportHandler(importService, logger).RegisterRoutes(mux)
	handlers.NewWebhookHandler(webhookService, logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting mediakeep-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
