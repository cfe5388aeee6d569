package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/SlpAus/engagement-metrics-backend/api"
	"github.com/SlpAus/engagement-metrics-backend/internal/bulk"
	"github.com/SlpAus/engagement-metrics-backend/internal/counter"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/config"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/database"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/health"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/logger"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/ratelimit"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/schema"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/shutdown"
	"github.com/SlpAus/engagement-metrics-backend/internal/rating"
	"github.com/SlpAus/engagement-metrics-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "服务启动失败: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 加载配置与日志
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// 2. 连接数据库并把结构迁移到最新版本；失败则直接退出
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	migrator := schema.NewManager(db, log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = migrator.Ensure(ctx)
	cancel()
	if err != nil {
		_ = database.Close(db)
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 3. Redis是可选的，只用于写操作限流
	rdb, err := database.InitRedis(context.Background(), cfg.Redis)
	if err != nil {
		log.Warn("Redis不可用，限流将暂时放行所有请求", zap.Error(err))
		// 地址已配置：仍然创建客户端，由健康检查器在恢复后重新启用限流
		rdb = database.NewRedisClient(cfg.Redis)
		database.UpdateStatus(false)
	}

	background := lifecycle.NewManager(log)
	closers := []shutdown.Closer{{Name: "database", Close: func() error { return database.Close(db) }}}
	if rdb != nil {
		closers = append([]shutdown.Closer{{Name: "redis", Close: rdb.Close}}, closers...)
	}
	coordinator := shutdown.NewCoordinator(background, log, closers...)
	if rdb != nil {
		if err := background.Go("redis-health", health.NewChecker(rdb, log).Run); err != nil {
			coordinator.Shutdown(nil)
			return err
		}
	}

	// 4. 组装各模块
	counterRepo := counter.NewRepository(db, nil)
	ratingRepo := rating.NewRepository(db, nil)
	counterSvc := counter.NewService(counterRepo, cfg.Metrics.DefaultHistoryDays)

	gin.SetMode(cfg.Server.Mode)
	router, err := api.NewRouter(cfg.Server, log)
	if err != nil {
		coordinator.Shutdown(nil)
		return err
	}
	api.SetupRoutes(router, api.Handlers{
		Counter: counter.NewHandler(counterSvc, log),
		Rating:  rating.NewHandler(rating.NewService(ratingRepo), log),
		Bulk:    bulk.NewHandler(bulk.NewService(counterRepo, ratingRepo, cfg.Metrics), log),
		Health:  health.NewHandler(migrator, cfg.Redis.Enabled(), log),
		Limiter: ratelimit.New(rdb, cfg.RateLimit),
	}, log)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// 5. 启动服务器，主Goroutine等待停机信号
	go func() {
		log.Info("服务器已准备就绪，开始监听", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	coordinator.ListenForSignalsAndShutdown(server)
	return nil
}
