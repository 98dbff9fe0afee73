package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"formcraft/internal/core/auth"
	"formcraft/internal/core/blob"
	"formcraft/internal/core/cache"
	"formcraft/internal/core/config"
	"formcraft/internal/core/logger"
	"formcraft/internal/core/server"
	"formcraft/internal/repo"
	"formcraft/internal/service"
	"formcraft/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	undo := logger.RedirectStdLog(log, zapcore.InfoLevel)
	defer undo()
	server.UseZapForGin(log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 存储网关：持久库不可用时自动落到内存库，后台定期探测恢复
	gw := repo.NewGatewayFromConfig(ctx, cfg.Store, log)
	go gw.Run(ctx)

	// Redis 缓存（可选）
	var rc *cache.Cache
	if cfg.Redis.Addr != "" {
		rc = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, form reads go to the store", zap.Error(err))
		}
	}

	deps := service.FormDeps{
		Forms:       gw,
		Submissions: gw,
		Cache:       cache.NewFormCache(rc, time.Duration(cfg.Redis.FormTTLSec)*time.Second),
		Log:         log.Named("forms"),
	}
	// 对象存储（可选）；nil 的 *blob.Store 不能塞进接口
	if bs := blob.New(cfg.Blob); bs != nil {
		deps.Blobs = bs
		log.Info("file uploads enabled", zap.String("bucket", cfg.Blob.Bucket))
	}

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	users := service.NewUserService(gw, jwter, log.Named("users"))
	forms := service.NewFormService(deps)

	// 路由（用户端）
	r := router.NewAPIEngine(router.APIDeps{
		Log:     log,
		JWT:     jwter,
		Users:   users,
		Forms:   forms,
		Gateway: gw,
		Limits:  cfg.Limits,
		CORS:    cfg.App.HTTP.CORSOrigins,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.WithErrorLog(server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	), log)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/api/health"),
		zap.String("api", baseURL+"/api"),
		zap.String("store", cfg.Store.Driver),
	)

	// 异步启动
	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("user api start FAILED", zap.Error(err))
		}
	}()
	log.Info("user api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	if err := gw.Close(sctx); err != nil {
		log.Warn("store close", zap.Error(err))
	}
	if err := rc.Close(); err != nil {
		log.Warn("redis close", zap.Error(err))
	}
	log.Info("user api stopped gracefully")
}
