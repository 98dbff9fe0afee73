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

	// 后台自己连一份网关，只读用户列表和存储状态
	gw := repo.NewGatewayFromConfig(ctx, cfg.Store, log)
	go gw.Run(ctx)

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	users := service.NewUserService(gw, jwter, log.Named("users"))

	// 路由（后台端）
	r := router.NewAdminEngine(router.AdminDeps{Log: log, JWT: jwter, Users: users, Gateway: gw})

	// HTTP Server
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.WithErrorLog(server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second), log)

	// 启动前打印可点击地址
	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	// 异步启动；失败立即标红退出
	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()
	log.Info("admin api started SUCCESS")

	// 关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	_ = gw.Close(sctx)
	log.Info("admin api stopped gracefully")
}
