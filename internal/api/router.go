package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-recipes/internal/api/handlers/health"
	recipeHandler "pantry-recipes/internal/api/handlers/recipe"
	"pantry-recipes/internal/api/middleware"
	"pantry-recipes/internal/core/jobs"
	"pantry-recipes/internal/core/matching"
	recipeService "pantry-recipes/internal/core/recipe"
	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

const (
	// 請求超時
	timeoutDuration = 30 * time.Second
	// 補貨可在短時間內重複送出相同內容
	pantryRoute = "/api/v1/pantry"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Store       store.Store
	Queue       jobs.Backend
	Ingredients *recipeService.IngredientService
	Groceries   *recipeService.GroceryService
	Recipes     *recipeService.RecipeService
	Matcher     *matching.IngredientMatcher
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Store == nil || deps.Ingredients == nil || deps.Groceries == nil || deps.Recipes == nil || deps.Matcher == nil {
		return nil, fmt.Errorf("failed to setup router: missing service dependency")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID", middleware.OwnerHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 設置請求超時與健康檢查需要的依賴
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set(health.ConfigKey, cfg)
		c.Set(health.StoreKey, deps.Store)
		if deps.Queue != nil {
			c.Set(health.QueueKey, deps.Queue)
		}

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeoutDuration),
			)
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Owner())
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	v1.Use(middleware.Deduplication(cfg.DedupWindow, pantryRoute))

	handler := recipeHandler.NewHandler(deps.Ingredients, deps.Groceries, deps.Recipes, deps.Matcher)
	handler.Register(v1)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Duration("timeout", timeoutDuration),
	)

	return router, nil
}
