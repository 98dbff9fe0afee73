package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"formcraft/internal/core/auth"
	"formcraft/internal/core/config"
	"formcraft/internal/core/server"
	"formcraft/internal/render"
	"formcraft/internal/repo"
	"formcraft/internal/service"
	"formcraft/internal/transport/http/handler"
	mdw "formcraft/internal/transport/http/middleware"
	resp "formcraft/internal/transport/http/response"
)

// APIDeps 用户端引擎的依赖
type APIDeps struct {
	Log     *zap.Logger
	JWT     *auth.JWTer
	Users   *service.UserService
	Forms   *service.FormService
	Gateway *repo.Gateway
	Limits  config.Limits
	CORS    []string
}

func NewAPIEngine(d APIDeps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	lim := withLimitDefaults(d.Limits)

	r := server.NewRouter(d.Log, d.CORS)
	r.SetHTMLTemplate(render.Templates())

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.Concurrency, 2*time.Second),
		mdw.MaxBodyBytes(lim.MaxBodyBytes),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 匿名提交按 IP 限速，JSON 接口和 HTML 页面共用一份额度
	submitLimit := mdw.RateLimitPerIP(rate.Limit(lim.SubmitRPS), lim.SubmitBurst)

	api := r.Group("/api")
	api.GET("/health", health(d.Gateway))

	// 鉴权分组（拿得到 userId）
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWT, ""))

	mountAuthActions(New(api, d.Log), d.Users)
	mountFormActions(New(api, d.Log), New(authed, d.Log), d.Forms, submitLimit)

	// 白标表单页面
	pages := handler.NewPublicForm(d.Forms, d.Log)
	r.GET("/f/:id", pages.Show)
	r.POST("/f/:id", submitLimit, pages.Submit)

	return r
}

func withLimitDefaults(l config.Limits) config.Limits {
	if l.RPS <= 0 {
		l.RPS = 200
	}
	if l.Burst <= 0 {
		l.Burst = 400
	}
	if l.SubmitRPS <= 0 {
		l.SubmitRPS = 1
	}
	if l.SubmitBurst <= 0 {
		l.SubmitBurst = 10
	}
	if l.Concurrency <= 0 {
		l.Concurrency = 300
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = 16 << 20
	}
	if l.TimeoutSec <= 0 {
		l.TimeoutSec = 10
	}
	return l
}

type healthOut struct {
	Status string      `json:"status"`
	Store  repo.Status `json:"store"`
}

// health 永远 200；存储降级时 status=DEGRADED
func health(g *repo.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := healthOut{Status: "OK"}
		if g != nil {
			out.Store = g.Status()
			if out.Store.Degraded() {
				out.Status = "DEGRADED"
			}
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}
}
