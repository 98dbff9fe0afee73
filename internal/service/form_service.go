package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"formcraft/internal/core/blob"
	"formcraft/internal/core/cache"
	"formcraft/internal/domain"
)

var ErrUploadsDisabled = errors.New("file uploads are not configured")

// 客户端时钟最多允许比服务端快这么多
const maxClockSkew = time.Minute

// Uploader issues upload URLs for file fields and checks what was uploaded.
type Uploader interface {
	PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type FormDeps struct {
	Forms       domain.FormRepository
	Submissions domain.SubmissionRepository
	Cache       *cache.FormCache // 可为 nil
	Blobs       Uploader         // 可为 nil，此时 uploads 返回 ErrUploadsDisabled
	Log         *zap.Logger
}

type FormService struct {
	forms domain.FormRepository
	subs  domain.SubmissionRepository
	cache *cache.FormCache
	blobs Uploader
	log   *zap.Logger
	now   func() time.Time
}

func NewFormService(d FormDeps) *FormService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &FormService{forms: d.Forms, subs: d.Submissions, cache: d.Cache, blobs: d.Blobs, log: d.Log, now: time.Now}
}

type CreateFormInput struct {
	Title       string
	Description string
	Fields      []domain.Field
	IsPublic    bool
	Theme       *domain.Theme
}

func (s *FormService) Create(ctx context.Context, ownerID string, in CreateFormInput) (*domain.Form, error) {
	f := &domain.Form{
		Title:       in.Title,
		Description: in.Description,
		Fields:      in.Fields,
		UserID:      ownerID,
		IsPublic:    in.IsPublic,
		Theme:       domain.DefaultTheme(),
	}
	if f.Fields == nil {
		f.Fields = []domain.Field{}
	}
	if in.Theme != nil {
		f.Theme = in.Theme.WithDefaults()
	}
	if err := domain.Validation(domain.ValidateForm(f)); err != nil {
		return nil, err
	}
	if err := s.forms.CreateForm(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info("form created", zap.String("form_id", f.ID), zap.String("user_id", ownerID), zap.Int("fields", len(f.Fields)))
	return f, nil
}

func (s *FormService) List(ctx context.Context, ownerID string) ([]domain.Form, error) {
	out, err := s.forms.FindFormsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Form{}
	}
	return out, nil
}

// Get is the public read; anyone may fetch a form by id.
func (s *FormService) Get(ctx context.Context, id string) (*domain.Form, error) {
	return s.cache.Get(ctx, id, func(ctx context.Context) (*domain.Form, error) {
		return s.forms.FindFormByID(ctx, id)
	})
}

// owned 总是绕过缓存读最新版本
func (s *FormService) owned(ctx context.Context, ownerID, id string) (*domain.Form, error) {
	f, err := s.forms.FindFormByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.OwnedBy(ownerID) {
		return nil, fmt.Errorf("form %s: %w", id, domain.ErrForbidden)
	}
	return f, nil
}

// Update merges p into the owner's form. The merged form must still be valid.
func (s *FormService) Update(ctx context.Context, ownerID, id string, p domain.FormPatch) (*domain.Form, error) {
	cur, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	next := cur.Apply(p)
	if err := domain.Validation(domain.ValidateForm(&next)); err != nil {
		return nil, err
	}
	out, err := s.forms.UpdateForm(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return out, nil
}

func (s *FormService) Delete(ctx context.Context, ownerID, id string) (*domain.Form, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	out, err := s.forms.DeleteForm(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.log.Info("form deleted", zap.String("form_id", id), zap.String("user_id", ownerID))
	return out, nil
}

func (s *FormService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn("form cache invalidate failed", zap.String("form_id", id), zap.Error(err))
	}
}

// Submissions lists a form's submissions, newest first, for its owner.
func (s *FormService) Submissions(ctx context.Context, ownerID, formID string) ([]domain.Submission, error) {
	if _, err := s.owned(ctx, ownerID, formID); err != nil {
		return nil, err
	}
	out, err := s.subs.FindSubmissionsByForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Submission{}
	}
	return out, nil
}

// Submit decodes raw JSON answers against the form and records them.
// Every accepted call creates a new submission. clientTime, when given,
// becomes the submission time unless it predates the form or runs ahead
// of the server clock by more than a minute.
func (s *FormService) Submit(ctx context.Context, formID string, raw map[string]json.RawMessage, meta domain.Meta, clientTime *time.Time) (*domain.Submission, error) {
	f, err := s.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	r, errs := domain.DecodeResponses(f, raw)
	if len(errs) > 0 {
		return nil, domain.Validation(errs)
	}
	return s.record(ctx, f, r, meta, s.submittedAt(f, clientTime))
}

func (s *FormService) submittedAt(f *domain.Form, client *time.Time) time.Time {
	now := s.now()
	if client == nil || client.IsZero() || client.After(now.Add(maxClockSkew)) || client.Before(f.CreatedAt) {
		return now
	}
	return *client
}

// SubmitResponses validates already typed answers and writes the submission.
// A validation failure never reaches the store. It is the server-rendered
// page's sink, so the submission time is the server's.
func (s *FormService) SubmitResponses(ctx context.Context, f *domain.Form, r domain.Responses, meta domain.Meta) (*domain.Submission, error) {
	return s.record(ctx, f, r, meta, s.now())
}

func (s *FormService) record(ctx context.Context, f *domain.Form, r domain.Responses, meta domain.Meta, at time.Time) (*domain.Submission, error) {
	errs := domain.ValidateSubmission(f, r)
	errs = append(errs, s.checkFiles(ctx, f, r)...)
	if err := domain.Validation(errs); err != nil {
		return nil, err
	}
	sub := &domain.Submission{
		FormID:      f.ID,
		Responses:   r,
		Meta:        meta,
		SubmittedAt: at,
	}
	if err := s.subs.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	s.log.Info("submission recorded", zap.String("form_id", f.ID), zap.String("submission_id", sub.ID))
	return sub, nil
}

// checkFiles 只在配置了对象存储时校验 key 的归属和存在性
func (s *FormService) checkFiles(ctx context.Context, f *domain.Form, r domain.Responses) []domain.FieldError {
	if s.blobs == nil {
		return nil
	}
	var errs []domain.FieldError
	for _, fd := range f.Fields {
		v, ok := r[fd.ID]
		if !ok || fd.Type != domain.FieldFile || v.Kind != domain.KindFile || v.IsEmpty() {
			continue
		}
		if !blob.KeyBelongsTo(v.Text, f.ID, fd.ID) {
			errs = append(errs, domain.FieldError{Field: fd.ID, Code: domain.CodeInvalidValue, Message: "Please upload the file again"})
			continue
		}
		exists, err := s.blobs.Exists(ctx, v.Text)
		if err != nil {
			// 对象存储故障不拦截提交
			s.log.Warn("blob exists check failed", zap.String("key", v.Text), zap.Error(err))
			continue
		}
		if !exists {
			errs = append(errs, domain.FieldError{Field: fd.ID, Code: domain.CodeInvalidValue, Message: "Please upload the file again"})
		}
	}
	return errs
}

func (s *FormService) UploadsEnabled() bool { return s.blobs != nil }

type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PresignUpload hands an anonymous respondent a one-off URL for a file field.
func (s *FormService) PresignUpload(ctx context.Context, formID, fieldID, filename, contentType string) (*Upload, error) {
	if s.blobs == nil {
		return nil, ErrUploadsDisabled
	}
	f, err := s.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	fd, ok := f.Field(fieldID)
	if !ok || fd.Type != domain.FieldFile {
		return nil, domain.Validation([]domain.FieldError{{
			Field: fieldID, Code: domain.CodeInvalidValue, Message: "not a file field",
		}})
	}
	key := blob.ObjectKey(f.ID, fd.ID, filename)
	url, exp, err := s.blobs.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &Upload{Key: key, UploadURL: url, ExpiresAt: exp}, nil
}
