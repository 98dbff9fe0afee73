package router

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"formcraft/internal/core/auth"
	"formcraft/internal/domain"
	"formcraft/internal/service"
	mdw "formcraft/internal/transport/http/middleware"
	resp "formcraft/internal/transport/http/response"
)

// 校验错误里的字段名用 json tag，和请求体保持一致
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			}
			return name
		})
	}
}

// EZ 是一个路由分组的轻封装，Action 都挂在它上面
type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// AErr 统一错误对象；Code 同时是 HTTP 状态码
type AErr struct {
	Code int
	Msg  string
	Data any
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Action 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method     string // "GET" | "POST" | "PUT" | "DELETE"
	Path       string // 例："/auth/login"、"/forms/:id/submit"
	Binder     Binder
	Auth       bool     // 是否要求登录（检查 userId）
	Roles      []string // 限定角色（可选）
	Status     int      // 成功时的 HTTP 状态码，默认 200
	Middleware []gin.HandlerFunc
	Handler    func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 绑定 → 执行 → 统一错误映射
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth {
			if c.GetString(mdw.KeyUserID) == "" {
				e.fail(c, Unauthorized("No token provided"))
				return
			}
			if len(a.Roles) > 0 && !hasRole(c.GetString(mdw.KeyRole), a.Roles) {
				e.fail(c, Forbidden("Not authorized"))
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			e.fail(c, bindError(bindErr))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Middleware...), h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

// fail 写错误信封；5xx 才打日志
func (e EZ) fail(c *gin.Context, err error) {
	ae := toAErr(err)
	if ae.Code >= http.StatusInternalServerError {
		e.log.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(resp.Status(ae.Code), resp.ErrorWithData(ae.Code, ae.Msg, ae.Data))
}

// toAErr 把领域错误映射成 HTTP 语义
func toAErr(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return &AErr{Code: resp.CodeBadRequest, Msg: "Validation failed", Err: err,
			Data: gin.H{"details": domain.FieldErrors(err)}}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &AErr{Code: resp.CodeBadRequest, Msg: "Invalid credentials", Err: err}
	case errors.Is(err, domain.ErrConflict):
		return &AErr{Code: resp.CodeBadRequest, Msg: "User already exists", Err: err}
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		return &AErr{Code: resp.CodeUnauthorized, Msg: "Invalid token", Err: err}
	case errors.Is(err, domain.ErrForbidden):
		return &AErr{Code: resp.CodeForbidden, Msg: "Not authorized", Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: "Not found", Err: err}
	case errors.Is(err, service.ErrUploadsDisabled):
		return &AErr{Code: resp.CodeNotImplemented, Msg: "File uploads are not configured", Err: err}
	}
	return &AErr{Code: resp.CodeServerError, Msg: "Server error", Err: err}
}

// bindError 把 validator 的错误翻译成字段级明细
func bindError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &AErr{Code: resp.CodeBadRequest, Msg: "Invalid request body", Err: err}
	}
	details := make([]domain.FieldError, 0, len(ve))
	for _, fe := range ve {
		details = append(details, fieldError(fe))
	}
	return domain.Validation(details)
}

func fieldError(fe validator.FieldError) domain.FieldError {
	out := domain.FieldError{Field: fe.Field(), Code: domain.CodeInvalidValue}
	switch fe.Tag() {
	case "required":
		out.Code = domain.CodeMissingRequiredField
		out.Message = fe.Field() + " is required"
	case "email":
		out.Code = domain.CodeInvalidEmailFormat
		out.Message = "Please enter a valid email address"
	case "min":
		out.Message = fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		out.Message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		out.Message = fe.Field() + " is invalid"
	}
	return out
}
