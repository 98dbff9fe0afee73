package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"formcraft/internal/domain"
	"formcraft/internal/render"
	"formcraft/internal/service"
)

// 表单页最多接受的 multipart 内存
const maxFormMemory = 1 << 20

// PublicForm serves the white-label HTML page of a form at /f/:id.
// An unknown id renders the built-in demo form instead of a 404.
type PublicForm struct {
	forms *service.FormService
	log   *zap.Logger
}

func NewPublicForm(forms *service.FormService, l *zap.Logger) *PublicForm {
	if l == nil {
		l = zap.NewNop()
	}
	return &PublicForm{forms: forms, log: l}
}

func (h *PublicForm) session(c *gin.Context) (*render.Session, error) {
	f, err := h.forms.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return render.NewDemoSession(), nil
	case err != nil:
		return nil, err
	}
	return render.NewSession(f), nil
}

func (h *PublicForm) page(c *gin.Context, status int, s *render.Session) {
	id := c.Param("id")
	upload := ""
	if h.forms.UploadsEnabled() {
		upload = "/api/forms/" + id + "/uploads"
	}
	c.HTML(status, render.PageTemplate, s.Page("/f/"+id, upload))
}

func (h *PublicForm) Show(c *gin.Context) {
	s, err := h.session(c)
	if err != nil {
		h.log.Error("load form page", zap.String("form_id", c.Param("id")), zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to load form")
		return
	}
	h.page(c, http.StatusOK, s)
}

// Submit 处理浏览器的表单 POST：校验失败带着错误和已填的值重新渲染
func (h *PublicForm) Submit(c *gin.Context) {
	s, err := h.session(c)
	if err != nil {
		h.log.Error("load form page", zap.String("form_id", c.Param("id")), zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to load form")
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		err = c.Request.ParseMultipartForm(maxFormMemory)
	} else {
		err = c.Request.ParseForm()
	}
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid form post")
		return
	}
	_ = s.ApplyForm(c.Request.PostForm)

	meta := domain.Meta{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	_, err = s.Submit(c.Request.Context(), h.forms, meta)
	switch {
	case err == nil:
		h.page(c, http.StatusOK, s)
	case errors.Is(err, domain.ErrValidation):
		h.page(c, http.StatusBadRequest, s)
	default:
		h.log.Error("form page submit failed", zap.String("form_id", c.Param("id")), zap.Error(err))
		h.page(c, http.StatusInternalServerError, s)
	}
}
