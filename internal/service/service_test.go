package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formcraft/internal/core/auth"
	"formcraft/internal/domain"
	"formcraft/internal/repo"
)

type mockUploader struct{ mock.Mock }

func (m *mockUploader) PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockUploader) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func newForms(t *testing.T, up Uploader) (*FormService, *repo.MemoryStore) {
	t.Helper()
	store := repo.NewMemoryStore()
	return NewFormService(FormDeps{Forms: store, Submissions: store, Blobs: up}), store
}

func contactInput() CreateFormInput {
	return CreateFormInput{
		Title: "Contact",
		Fields: []domain.Field{
			{ID: "f1", Type: domain.FieldText, Label: "Name", Required: true},
			{ID: "f2", Type: domain.FieldEmail, Label: "Email"},
		},
	}
}

func raw(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestUserService_RegisterLogin(t *testing.T) {
	store := repo.NewMemoryStore()
	users := NewUserService(store, auth.NewJWTer("secret", "formcraft", time.Hour), nil)
	ctx := context.Background()

	res, err := users.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, domain.DefaultRole, res.User.Role)

	_, err = users.Register(ctx, RegisterInput{Name: "Ada 2", Email: "ada@example.com", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// exact, case-sensitive match
	_, err = users.Register(ctx, RegisterInput{Name: "Ada 3", Email: "ADA@example.com", Password: "x"})
	assert.NoError(t, err)

	in, err := users.Login(ctx, "ada@example.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, in.User.ID)

	_, err = users.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = users.Login(ctx, "nobody@example.com", "pw123456")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	items, total, err := users.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
}

func TestFormService_CreateValidatesAndDefaults(t *testing.T) {
	forms, _ := newForms(t, nil)
	ctx := context.Background()

	_, err := forms.Create(ctx, "user_1", CreateFormInput{Title: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	f, err := forms.Create(ctx, "user_1", contactInput())
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, domain.DefaultTheme(), f.Theme)
	assert.False(t, f.IsPublic)

	got, err := forms.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, []string{got.Fields[0].ID, got.Fields[1].ID})
}

func TestFormService_Ownership(t *testing.T) {
	for name, backend := range map[string]interface {
		domain.FormRepository
		domain.SubmissionRepository
	}{
		"memory":  repo.NewMemoryStore(),
		"gateway": repo.NewGateway(repo.NewMemoryStore(), nil, nil, repo.Options{}),
	} {
		t.Run(name, func(t *testing.T) {
			forms := NewFormService(FormDeps{Forms: backend, Submissions: backend})
			ctx := context.Background()
			f, err := forms.Create(ctx, "owner", contactInput())
			require.NoError(t, err)

			title := "Hijacked"
			_, err = forms.Update(ctx, "intruder", f.ID, domain.FormPatch{Title: &title})
			assert.ErrorIs(t, err, domain.ErrForbidden)
			_, err = forms.Delete(ctx, "intruder", f.ID)
			assert.ErrorIs(t, err, domain.ErrForbidden)
			_, err = forms.Submissions(ctx, "intruder", f.ID)
			assert.ErrorIs(t, err, domain.ErrForbidden)

			_, err = forms.Update(ctx, "owner", "form_404", domain.FormPatch{Title: &title})
			assert.ErrorIs(t, err, domain.ErrNotFound)

			empty := ""
			_, err = forms.Update(ctx, "owner", f.ID, domain.FormPatch{Title: &empty})
			assert.ErrorIs(t, err, domain.ErrValidation)

			title = "Renamed"
			out, err := forms.Update(ctx, "owner", f.ID, domain.FormPatch{Title: &title})
			require.NoError(t, err)
			assert.Equal(t, "Renamed", out.Title)
			assert.Len(t, out.Fields, 2)
			assert.False(t, out.UpdatedAt.Before(f.UpdatedAt))

			_, err = forms.Delete(ctx, "owner", f.ID)
			require.NoError(t, err)
			_, err = forms.Get(ctx, f.ID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestFormService_SubmitRequiredAndNonIdempotent(t *testing.T) {
	forms, store := newForms(t, nil)
	ctx := context.Background()
	f, err := forms.Create(ctx, "owner", contactInput())
	require.NoError(t, err)

	_, err = forms.Submit(ctx, f.ID, raw(t, `{}`), domain.Meta{}, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
	fe := domain.FieldErrors(err)
	require.Len(t, fe, 1)
	assert.Equal(t, domain.CodeMissingRequiredField, fe[0].Code)
	assert.Equal(t, "f1", fe[0].Field)
	assert.Zero(t, store.Counts().Submissions)

	_, err = forms.Submit(ctx, f.ID, raw(t, `{"f1":"Alice","f2":"not-an-email"}`), domain.Meta{}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	a, err := forms.Submit(ctx, f.ID, raw(t, `{"f1":"Alice"}`), domain.Meta{IPAddress: "10.0.0.1"}, nil)
	require.NoError(t, err)
	b, err := forms.Submit(ctx, f.ID, raw(t, `{"f1":"Alice"}`), domain.Meta{}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	subs, err := forms.Submissions(ctx, "owner", f.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = forms.Submit(ctx, "form_404", raw(t, `{}`), domain.Meta{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFormService_Uploads(t *testing.T) {
	ctx := context.Background()

	disabled, _ := newForms(t, nil)
	_, err := disabled.PresignUpload(ctx, "form_1", "cv", "cv.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrUploadsDisabled)

	up := &mockUploader{}
	forms, _ := newForms(t, up)
	in := contactInput()
	in.Fields = append(in.Fields, domain.Field{ID: "cv", Type: domain.FieldFile, Label: "CV"})
	f, err := forms.Create(ctx, "owner", in)
	require.NoError(t, err)

	exp := time.Now().Add(15 * time.Minute)
	up.On("PresignPut", mock.Anything, mock.MatchedBy(func(k string) bool {
		return len(k) > 0
	}), "application/pdf").Return("https://blob.example.com/put", exp, nil).Once()

	u, err := forms.PresignUpload(ctx, f.ID, "cv", "cv.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://blob.example.com/put", u.UploadURL)
	assert.Contains(t, u.Key, "forms/"+f.ID+"/cv/")

	_, err = forms.PresignUpload(ctx, f.ID, "f1", "cv.pdf", "application/pdf")
	assert.ErrorIs(t, err, domain.ErrValidation)

	up.On("Exists", mock.Anything, u.Key).Return(true, nil).Once()
	_, err = forms.Submit(ctx, f.ID, raw(t, `{"f1":"Alice","cv":"`+u.Key+`"}`), domain.Meta{}, nil)
	require.NoError(t, err)

	// a key issued for another form is refused without asking the bucket
	_, err = forms.Submit(ctx, f.ID, raw(t, `{"f1":"Alice","cv":"forms/other/cv/x-cv.pdf"}`), domain.Meta{}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	up.On("Exists", mock.Anything, u.Key).Return(false, errors.New("bucket down")).Once()
	_, err = forms.Submit(ctx, f.ID, raw(t, `{"f1":"Alice","cv":"`+u.Key+`"}`), domain.Meta{}, nil)
	assert.NoError(t, err)

	up.AssertExpectations(t)
}

func TestFormService_SubmitClientTime(t *testing.T) {
	forms, _ := newForms(t, nil)
	ctx := context.Background()
	f, err := forms.Create(ctx, "owner", contactInput())
	require.NoError(t, err)
	now := f.CreatedAt.Add(10 * time.Minute)
	forms.now = func() time.Time { return now }

	at := func(client *time.Time) time.Time {
		sub, err := forms.Submit(ctx, f.ID, raw(t, `{"f1":"Alice"}`), domain.Meta{}, client)
		require.NoError(t, err)
		return sub.SubmittedAt
	}
	tp := func(v time.Time) *time.Time { return &v }

	assert.Equal(t, now, at(nil))
	assert.Equal(t, now, at(&time.Time{}))

	// 表单创建之后、服务端时间 +1 分钟之内的客户端时间原样保存
	ok := f.CreatedAt.Add(time.Second)
	assert.True(t, at(tp(ok)).Equal(ok))
	slightlyAhead := now.Add(30 * time.Second)
	assert.True(t, at(tp(slightlyAhead)).Equal(slightlyAhead))

	assert.Equal(t, now, at(tp(now.Add(time.Hour))))
	assert.Equal(t, now, at(tp(f.CreatedAt.Add(-time.Hour))))

	sub, err := forms.SubmitResponses(ctx, f, domain.Responses{"f1": domain.TextValue("Bob")}, domain.Meta{})
	require.NoError(t, err)
	assert.Equal(t, now, sub.SubmittedAt)
}
