package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"formcraft/internal/core/auth"
	"formcraft/internal/core/server"
	"formcraft/internal/repo"
	"formcraft/internal/service"
	mdw "formcraft/internal/transport/http/middleware"
	resp "formcraft/internal/transport/http/response"
)

type AdminDeps struct {
	Log     *zap.Logger
	JWT     *auth.JWTer
	Users   *service.UserService
	Gateway *repo.Gateway
}

func NewAdminEngine(d AdminDeps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := server.NewRouter(d.Log, nil)

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300, time.Second),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(gin.H{"ok": 1})) })

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWT, "admin"))

	mountAdminActions(New(admin, d.Log), d.Users, d.Gateway)

	return r
}
