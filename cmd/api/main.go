package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pantry-recipes/internal/api"
	"pantry-recipes/internal/core/cache"
	"pantry-recipes/internal/core/jobs"
	"pantry-recipes/internal/core/matching"
	"pantry-recipes/internal/core/parser"
	"pantry-recipes/internal/core/recipe"
	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/infrastructure/store/memory"
	"pantry-recipes/internal/infrastructure/store/postgres"
	"pantry-recipes/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("queue_backend", cfg.Queue.Backend),
		zap.Float64("fuzzy_threshold", cfg.Matching.FuzzyThreshold),
	)

	st, err := openStore(cfg.Database)
	if err != nil {
		common.LogFatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	emoji, err := config.LoadEmojiCatalog(cfg.Emoji)
	if err != nil {
		common.LogFatal("Failed to load emoji catalog", zap.Error(err))
	}

	// 初始化快取，停用時為 nil
	cacheManager := cache.NewManager(cfg.Cache)
	defer cacheManager.Close()

	matchCfg := matching.NewConfig(cfg.Matching.FuzzyThreshold)
	ingredientMatcher := matching.NewIngredientMatcher(st, matchCfg)
	groceryMatcher := matching.NewGroceryMatcher(st, matchCfg)

	dispatcher := jobs.NewDispatcher(cfg.Queue.MaxRetries, cfg.Queue.RetryBackoff, jobs.NewAlerter(cfg.Alert))
	recipe.RegisterJobHandlers(dispatcher, st, ingredientMatcher, groceryMatcher)

	queue, err := openQueue(cfg, dispatcher)
	if err != nil {
		common.LogFatal("Failed to start job queue", zap.Error(err))
	}
	queue.Start()

	base := recipe.NewService(st, queue, parser.New(parser.DefaultVocabulary()), cacheManager)
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Store:       st,
		Queue:       queue,
		Ingredients: recipe.NewIngredientService(base),
		Groceries:   recipe.NewGroceryService(base, groceryMatcher, emoji),
		Recipes:     recipe.NewRecipeService(base),
		Matcher:     ingredientMatcher,
	})
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
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 伺服器停止後再讓 worker 處理完剩餘工作
	if err := queue.Close(); err != nil {
		common.LogError("Failed to close job queue", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(cfg)
	default:
		common.LogWarn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
}

func openQueue(cfg *config.Config, dispatcher *jobs.Dispatcher) (jobs.Backend, error) {
	switch cfg.Queue.Backend {
	case "redis":
		return jobs.NewRedisQueue(cfg.Redis, cfg.Queue, dispatcher)
	default:
		return jobs.NewManager(cfg.Queue, dispatcher), nil
	}
}
