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

	"profile-matcher/internal/config"
	"profile-matcher/internal/db"
	apihttp "profile-matcher/internal/http"
	"profile-matcher/internal/llm"
	"profile-matcher/internal/logger"
	"profile-matcher/internal/repository"
	"profile-matcher/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	zlog, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		zlog.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		zlog.Warn("db ping failed", zap.Error(err))
	}

	profileRepo := repository.NewPgProfileRepository(pool)
	var vectorCache repository.VectorCache = repository.NewPgVectorRepository(pool)

	var refreshLimiter service.RefreshLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			zlog.Warn("redis ping failed", zap.Error(err))
		} else {
			vectorCache = repository.NewRedisVectorCache(redisClient, vectorCache, cfg.VectorCacheTTL, zlog)
			refreshLimiter = service.NewRedisRefreshLimiter(redisClient, cfg.RefreshWindow, cfg.RefreshMax)
		}
		cancel()
	}
	if refreshLimiter == nil {
		refreshLimiter = service.NewRefreshLimiter(cfg.RefreshWindow, cfg.RefreshMax)
	}

	embedder, err := llm.NewEmbedder(ctx, cfg.Embedding, zlog)
	if err != nil {
		zlog.Fatal("embedding client", zap.Error(err))
	}
	if cfg.Embedding.APIKey == "" {
		zlog.Warn("embedding api key not configured")
	}

	embeddingSvc := service.NewEmbeddingService(embedder, cfg.Embedding.Timeout, zlog)
	resolver := service.NewVectorResolver(vectorCache, profileRepo, embeddingSvc, zlog)
	matchSvc := service.NewMatchService(resolver, embeddingSvc, cfg.RankWorkers, zlog)
	matchHandler := apihttp.NewMatchHandler(zlog, matchSvc, resolver, refreshLimiter)
	router := apihttp.NewRouter(zlog, matchHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn("server shutdown", zap.Error(err))
		}
	}()

	zlog.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("server error", zap.Error(err))
	}
}
