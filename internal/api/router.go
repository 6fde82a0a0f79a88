package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	engineHandler "pantry-chef/internal/api/handlers/engine"
	"pantry-chef/internal/api/handlers/health"
	"pantry-chef/internal/api/middleware"
	"pantry-chef/internal/core/detection"
	"pantry-chef/internal/core/pantry"
	"pantry-chef/internal/core/querycache"
	"pantry-chef/internal/core/recipesource"
	"pantry-chef/internal/core/recommend"
	"pantry-chef/internal/core/scorer"
	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// Per-request timeout.
	timeoutDuration = 30 * time.Second
	// Request body size limit (1MB); the API carries detection metadata
	// and pantry rows, never image payloads.
	maxBodySize = 1 << 20
)

// SetupRouter wires services and routes into a gin engine.
func SetupRouter(cfg *config.Config, cacheManager *querycache.Manager, store pantry.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("recipe_source", cfg.RecipeSource.BaseURL),
		zap.String("recipe_source_api_key", config.MaskAPIKey(cfg.RecipeSource.APIKey)),
	)

	// Weight validation happened at config load; a failure here means the
	// scorer was handed a config that never passed LoadConfig.
	recipeScorer, err := scorer.New(cfg)
	if err != nil {
		common.LogError("Failed to initialize scorer", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize scorer: %w", err)
	}

	resolver := detection.NewResolver(cfg.Detection.MinConfidence, cfg.Detection.IoUThreshold)
	source := recipesource.NewClient(cfg)
	recommendSvc := recommend.NewService(cfg, store, cacheManager, source, recipeScorer)
	handler := engineHandler.NewHandler(resolver, recommendSvc)

	// Per-request timeout plus context injection for the health endpoint.
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("query_cache", cacheManager)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeGatewayTimeout,
			})
			c.Abort()
			return
		}
	})

	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	{
		detectGroup := api.Group("/detect")
		{
			detectGroup.POST("/resolve", handler.HandleResolve)
		}

		pantryGroup := api.Group("/pantry")
		{
			pantryGroup.GET("", handler.HandleListPantry)
			pantryGroup.POST("", handler.HandleUpsertPantry)
			pantryGroup.PUT("", handler.HandleUpsertPantry)
			pantryGroup.DELETE("/:id", handler.HandleDeletePantry)
		}

		api.GET("/preferences", handler.HandleGetPreferences)
		api.PUT("/preferences", handler.HandlePutPreferences)

		api.POST("/recommend", handler.HandleRecommend)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
