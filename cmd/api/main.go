package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pantry-chef/internal/api"
	"pantry-chef/internal/core/pantry"
	"pantry-chef/internal/core/querycache"
	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// An invalid configuration, including scoring weights that do not sum
	// to 1.0, stops the process here.
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("configuration loaded",
		zap.String("recipe_source", cfg.RecipeSource.BaseURL),
		zap.String("recipe_source_api_key", config.MaskAPIKey(cfg.RecipeSource.APIKey)),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	var store pantry.Store
	if cfg.Redis.Enabled {
		redisStore, err := pantry.NewRedisStore(cfg)
		if err != nil {
			common.LogFatal("Failed to initialize pantry store", zap.Error(err))
		}
		store = redisStore
	} else {
		common.LogInfo("redis disabled, using in-memory pantry store")
		store = pantry.NewMemoryStore()
	}
	defer store.Close()

	cacheManager := querycache.NewManager(cfg)
	defer cacheManager.Close()

	router, err := api.SetupRouter(cfg, cacheManager, store)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("starting server",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
