package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"formcraft/internal/domain"
	"formcraft/internal/service"
	mdw "formcraft/internal/transport/http/middleware"
)

type createFormIn struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Fields      []domain.Field `json:"fields"`
	IsPublic    bool           `json:"isPublic"`
	Theme       *domain.Theme  `json:"theme"`
}

// formId 以路径为准；submittedAt 见 FormService.Submit
type submitIn struct {
	FormID      string                     `json:"formId"`
	Responses   map[string]json.RawMessage `json:"responses"`
	SubmittedAt *time.Time                 `json:"submittedAt"`
}

type submitOut struct {
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId"`
}

type uploadIn struct {
	FieldID     string `json:"fieldId"     binding:"required"`
	Filename    string `json:"filename"    binding:"required,max=255"`
	ContentType string `json:"contentType"`
}

type deleteOut struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// formErr 表单路由里的 404 文案
func formErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return NotFound("Form not found")
	}
	return err
}

func mountFormActions(public, authed EZ, forms *service.FormService, submitLimit gin.HandlerFunc) {
	uid := func(c *gin.Context) string { return c.GetString(mdw.KeyUserID) }

	// --- 我的表单 ---
	RegisterAction(authed, Action[struct{}, []domain.Form]{
		Method: http.MethodGet,
		Path:   "/forms",
		Binder: BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Form, error) {
			return forms.List(c.Request.Context(), uid(c))
		},
	})

	RegisterAction(authed, Action[createFormIn, *domain.Form]{
		Method: http.MethodPost,
		Path:   "/forms",
		Binder: BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *createFormIn) (*domain.Form, error) {
			return forms.Create(c.Request.Context(), uid(c), service.CreateFormInput{
				Title:       in.Title,
				Description: in.Description,
				Fields:      in.Fields,
				IsPublic:    in.IsPublic,
				Theme:       in.Theme,
			})
		},
	})

	// --- 任何人都能按 id 取表单 ---
	RegisterAction(public, Action[struct{}, *domain.Form]{
		Method: http.MethodGet,
		Path:   "/forms/:id",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Form, error) {
			f, err := forms.Get(c.Request.Context(), c.Param("id"))
			return f, formErr(err)
		},
	})

	RegisterAction(authed, Action[domain.FormPatch, *domain.Form]{
		Method: http.MethodPut,
		Path:   "/forms/:id",
		Binder: BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *domain.FormPatch) (*domain.Form, error) {
			f, err := forms.Update(c.Request.Context(), uid(c), c.Param("id"), *in)
			return f, formErr(err)
		},
	})

	RegisterAction(authed, Action[struct{}, deleteOut]{
		Method: http.MethodDelete,
		Path:   "/forms/:id",
		Binder: BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (deleteOut, error) {
			f, err := forms.Delete(c.Request.Context(), uid(c), c.Param("id"))
			if err != nil {
				return deleteOut{}, formErr(err)
			}
			return deleteOut{Message: "Form deleted successfully", ID: f.ID}, nil
		},
	})

	RegisterAction(authed, Action[struct{}, []domain.Submission]{
		Method: http.MethodGet,
		Path:   "/forms/:id/submissions",
		Binder: BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Submission, error) {
			subs, err := forms.Submissions(c.Request.Context(), uid(c), c.Param("id"))
			return subs, formErr(err)
		},
	})

	// --- 匿名提交 / 上传 ---
	RegisterAction(public, Action[submitIn, submitOut]{
		Method:     http.MethodPost,
		Path:       "/forms/:id/submit",
		Binder:     BindJSON,
		Status:     http.StatusCreated,
		Middleware: []gin.HandlerFunc{submitLimit},
		Handler: func(c *gin.Context, in *submitIn) (submitOut, error) {
			sub, err := forms.Submit(c.Request.Context(), c.Param("id"), in.Responses, meta(c), in.SubmittedAt)
			if err != nil {
				return submitOut{}, formErr(err)
			}
			return submitOut{Message: "Form submitted successfully", SubmissionID: sub.ID}, nil
		},
	})

	RegisterAction(public, Action[uploadIn, *service.Upload]{
		Method:     http.MethodPost,
		Path:       "/forms/:id/uploads",
		Binder:     BindJSON,
		Status:     http.StatusCreated,
		Middleware: []gin.HandlerFunc{submitLimit},
		Handler: func(c *gin.Context, in *uploadIn) (*service.Upload, error) {
			up, err := forms.PresignUpload(c.Request.Context(), c.Param("id"), in.FieldID, in.Filename, in.ContentType)
			return up, formErr(err)
		},
	})
}

func meta(c *gin.Context) domain.Meta {
	return domain.Meta{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
