package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formcraft/internal/domain"
	"formcraft/internal/repo"
	"formcraft/internal/service"
)

type listUsersQ struct {
	Offset int `form:"offset,default=0" binding:"min=0"`
	Limit  int `form:"limit,default=20" binding:"min=0,max=200"`
}

type listUsersOut struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

// 把管理端接口集中在这里注册；分组已走 AuthJWT("admin")
func mountAdminActions(ez EZ, users *service.UserService, g *repo.Gateway) {
	// --- GET /admin/v1/users  用户列表（两个库合并分页） ---
	RegisterAction(ez, Action[listUsersQ, listUsersOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: BindQuery,
		Handler: func(c *gin.Context, in *listUsersQ) (listUsersOut, error) {
			items, total, err := users.List(c.Request.Context(), in.Offset, in.Limit)
			if err != nil {
				return listUsersOut{}, Internal("list users failed", err)
			}
			if items == nil {
				items = []domain.User{}
			}
			return listUsersOut{Total: total, Items: items}, nil
		},
	})

	// --- GET /admin/v1/store  存储网关状态 ---
	RegisterAction(ez, Action[struct{}, repo.Status]{
		Method: http.MethodGet,
		Path:   "/store",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (repo.Status, error) {
			return g.Status(), nil
		},
	})

	// --- POST /admin/v1/store/probe  立即探测一次持久库 ---
	RegisterAction(ez, Action[struct{}, repo.Status]{
		Method: http.MethodPost,
		Path:   "/store/probe",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (repo.Status, error) {
			g.Probe(c.Request.Context())
			return g.Status(), nil
		},
	})
}
