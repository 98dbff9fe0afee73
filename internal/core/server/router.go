package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"formcraft/internal/core/logger"
	mdw "formcraft/internal/transport/http/middleware"
)

// UseZapForGin 把 gin 自己打印的路由表和告警也写进 zap
func UseZapForGin(l *zap.Logger) {
	gl := l.Named("gin")
	gin.DefaultWriter = logger.ToWriter(gl, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(gl, zapcore.ErrorLevel)
}

// NewRouter 是两个进程共用的 gin 底座：panic 恢复 + CORS
// origins 为空时放行所有来源（表单要能嵌到任意站点）
func NewRouter(l *zap.Logger, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(mdw.Recovery(l))
	r.Use(cors.New(corsConfig(origins)))
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", mdw.KeyRequestID)
	c.ExposeHeaders = []string{mdw.KeyRequestID}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.MaxAge = 12 * time.Hour
	return c
}

func StartHTTP(srv *http.Server, l *zap.Logger) error {
	l.Info("http starting", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

// WithErrorLog 让 net/http 自己的错误日志也走 zap
func WithErrorLog(srv *http.Server, l *zap.Logger) *http.Server {
	if el, err := logger.ToStdLogger(l.Named("http"), zapcore.WarnLevel); err == nil {
		srv.ErrorLog = el
	}
	return srv
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
