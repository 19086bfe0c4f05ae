package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mytheresa/catalog-admin/app"
	"github.com/mytheresa/catalog-admin/app/catalog"
	"github.com/mytheresa/catalog-admin/app/categories"
	"github.com/mytheresa/catalog-admin/app/web"
	"github.com/mytheresa/catalog-admin/config"
	"github.com/mytheresa/catalog-admin/database"
	"github.com/mytheresa/catalog-admin/logger"
	"github.com/mytheresa/catalog-admin/media"
	"github.com/mytheresa/catalog-admin/models"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
	}
	if cfg.IsDevelopment() {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	appLogger, err := logger.NewZapLogger(logConfig)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := database.Open(cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			appLogger.Fatal("Could not migrate database", zap.Error(err))
		}
	}

	// 4. Initialize Repositories and Storage
	categoryRepo := models.NewCategoriesRepository(db)
	productRepo := models.NewProductsRepository(db)

	if err := os.MkdirAll(cfg.Media.Root, 0o755); err != nil {
		appLogger.Fatal("Could not create media directory", zap.String("root", cfg.Media.Root), zap.Error(err))
	}
	files := media.NewLocalStore(cfg.Media.Root, cfg.Media.URL)

	// 5. Initialize Handlers
	renderer := web.MustRenderer(files)
	catHandler := categories.NewCategoryHandler(categoryRepo, renderer, appLogger)
	prodHandler := catalog.NewProductHandler(productRepo, categoryRepo, files, renderer, appLogger)

	router := app.NewRouter(app.RouterConfig{
		MediaRoot:    cfg.Media.Root,
		MediaURL:     cfg.Media.URL,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, catHandler, prodHandler, appLogger)

	// 6. Start HTTP Server
	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server shutdown failed", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	appLogger.Info("Server stopped")
}
