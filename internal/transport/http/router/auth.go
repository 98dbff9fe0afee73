package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formcraft/internal/domain"
	"formcraft/internal/service"
)

type registerIn struct {
	Name     string          `json:"name"     binding:"required,max=100"`
	Email    string          `json:"email"    binding:"required,email"`
	Password string          `json:"password" binding:"required,min=6"`
	Company  *domain.Company `json:"company"`
}

type loginIn struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// /auth/register + /auth/login（公共）
func mountAuthActions(ez EZ, users *service.UserService) {
	RegisterAction(ez, Action[registerIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerIn) (*service.AuthResult, error) {
			return users.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Email: in.Email, Password: in.Password, Company: in.Company,
			})
		},
	})

	RegisterAction(ez, Action[loginIn, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (*service.AuthResult, error) {
			return users.Login(c.Request.Context(), in.Email, in.Password)
		},
	})
}
