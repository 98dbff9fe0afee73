package render

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcraft/internal/domain"
)

type fakeSink struct {
	calls int
	err   error
	got   domain.Responses
}

func (f *fakeSink) SubmitResponses(_ context.Context, form *domain.Form, r domain.Responses, _ domain.Meta) (*domain.Submission, error) {
	f.calls++
	f.got = r
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Submission{ID: "submission_1", FormID: form.ID, Responses: r}, nil
}

func surveyForm() *domain.Form {
	return &domain.Form{
		ID:    "form_1",
		Title: "Survey",
		Fields: []domain.Field{
			{ID: "name", Type: domain.FieldText, Label: "Name", Required: true},
			{ID: "mail", Type: domain.FieldEmail, Label: "Email"},
			{ID: "size", Type: domain.FieldSelect, Label: "Size", Options: []string{"S", "M"}},
			{ID: "diet", Type: domain.FieldCheckbox, Label: "Diet", Options: []string{"Vegan", "Halal"}},
			{ID: "cv", Type: domain.FieldFile, Label: "CV"},
		},
		Theme: domain.DefaultTheme(),
	}
}

func TestSession_ToggleOnOffIsEmpty(t *testing.T) {
	s := NewSession(surveyForm())
	require.NoError(t, s.Toggle("diet", "Vegan"))
	require.NoError(t, s.Toggle("diet", "Halal"))
	assert.Equal(t, []string{"Vegan", "Halal"}, s.Value("diet").Items)

	require.NoError(t, s.Toggle("diet", "Vegan"))
	require.NoError(t, s.Toggle("diet", "Halal"))
	assert.True(t, s.Value("diet").IsEmpty())

	require.NoError(t, s.Set("name", "Alice"))
	_, err := s.Submit(context.Background(), &fakeSink{}, domain.Meta{})
	assert.NoError(t, err)
}

func TestSession_FieldKindChecks(t *testing.T) {
	s := NewSession(surveyForm())
	assert.Error(t, s.Set("diet", "Vegan"))
	assert.Error(t, s.Toggle("name", "x"))
	assert.Error(t, s.Attach("name", "k"))
	assert.ErrorIs(t, s.Set("nope", "x"), ErrUnknownField)
	assert.NoError(t, s.Attach("cv", "forms/form_1/cv/k-cv.pdf"))
}

func TestSession_ValidationFailureSkipsSink(t *testing.T) {
	s := NewSession(surveyForm())
	require.NoError(t, s.Set("mail", "not-an-email"))
	sink := &fakeSink{}

	_, err := s.Submit(context.Background(), sink, domain.Meta{})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, sink.calls)
	assert.Equal(t, Editing, s.State())
	assert.Equal(t, "Name is required", s.Error("name"))
	assert.Equal(t, "Please enter a valid email address", s.Error("mail"))

	// 修改字段会清掉它的错误
	require.NoError(t, s.Set("name", "Alice"))
	assert.Empty(t, s.Error("name"))
}

func TestSession_SinkFailureKeepsValues(t *testing.T) {
	s := NewSession(surveyForm())
	require.NoError(t, s.Set("name", "Alice"))
	require.NoError(t, s.Toggle("diet", "Vegan"))
	sink := &fakeSink{err: errors.New("store down")}

	_, err := s.Submit(context.Background(), sink, domain.Meta{})
	require.Error(t, err)
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, Editing, s.State())
	assert.Equal(t, SubmitFailedMessage, s.SubmitError())
	assert.Equal(t, "Alice", s.Value("name").Text)
	assert.Equal(t, []string{"Vegan"}, s.Value("diet").Items)

	sink.err = nil
	sub, err := s.Submit(context.Background(), sink, domain.Meta{})
	require.NoError(t, err)
	assert.Equal(t, "submission_1", sub.ID)
	assert.Empty(t, s.SubmitError())
	assert.Equal(t, Submitted, s.State())
}

func TestSession_SinkFieldErrorsShowOnFields(t *testing.T) {
	s := NewSession(surveyForm())
	require.NoError(t, s.Set("name", "Alice"))
	require.NoError(t, s.Attach("cv", "forms/other/cv/x"))
	sink := &fakeSink{err: domain.Validation([]domain.FieldError{{Field: "cv", Code: domain.CodeInvalidValue, Message: "Please upload the file again"}})}

	_, err := s.Submit(context.Background(), sink, domain.Meta{})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Please upload the file again", s.Error("cv"))
	assert.Empty(t, s.SubmitError())
}

func TestSession_SubmittedIsTerminal(t *testing.T) {
	s := NewSession(surveyForm())
	require.NoError(t, s.Set("name", "Alice"))
	sink := &fakeSink{}
	_, err := s.Submit(context.Background(), sink, domain.Meta{})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Set("name", "Bob"), ErrSessionClosed)
	assert.ErrorIs(t, s.Toggle("diet", "Vegan"), ErrSessionClosed)
	assert.ErrorIs(t, s.ApplyForm(url.Values{}), ErrSessionClosed)
	_, err = s.Submit(context.Background(), sink, domain.Meta{})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, 1, sink.calls)
}

func TestSession_ApplyForm(t *testing.T) {
	s := NewSession(surveyForm())
	err := s.ApplyForm(url.Values{
		"name":  {"Alice"},
		"size":  {"M"},
		"diet":  {"Halal", "Vegan", "Halal"},
		"cv":    {"forms/form_1/cv/k"},
		"other": {"ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TextValue("Alice"), s.Value("name"))
	assert.Equal(t, []string{"Halal", "Vegan"}, s.Value("diet").Items)
	assert.Equal(t, domain.KindFile, s.Value("cv").Kind)

	ctrls := s.Controls()
	require.Len(t, ctrls, 5)
	assert.Equal(t, "input", ctrls[0].Kind)
	assert.Equal(t, "text", ctrls[0].InputType)
	assert.Equal(t, "email", ctrls[1].InputType)
	assert.Equal(t, []Option{{"S", false}, {"M", true}}, ctrls[2].Options)
	assert.Equal(t, []Option{{"Vegan", true}, {"Halal", true}}, ctrls[3].Options)
	assert.Equal(t, "file", ctrls[4].Kind)
}

func TestDemoSession_NeverCallsSink(t *testing.T) {
	s := NewDemoSession()
	assert.True(t, s.Demo())
	assert.Equal(t, "Demo Contact Form", s.Form().Title)

	_, err := s.Submit(context.Background(), nil, domain.Meta{})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, domain.FieldErrors(err), 3)

	require.NoError(t, s.Set("name", "Ada"))
	require.NoError(t, s.Set("email", "ada@example.com"))
	require.NoError(t, s.Set("message", "hi"))
	sub, err := s.Submit(context.Background(), nil, domain.Meta{})
	require.NoError(t, err)
	assert.Empty(t, sub.ID)
	assert.Equal(t, Submitted, s.State())
}

func TestTheme(t *testing.T) {
	v := Theme(domain.Theme{PrimaryColor: "#ff0000"})
	assert.Equal(t, "#ff0000", v.Primary)
	assert.Equal(t, "#ff000020", v.Border)
	assert.Equal(t, domain.DefaultBackgroundColor, v.Background)

	v = Theme(domain.Theme{CompanyName: "Acme"})
	assert.Equal(t, domain.DefaultPrimaryColor, v.Primary)
	assert.Equal(t, DefaultBorderColor, v.Border)

	css := string(Theme(domain.Theme{PrimaryColor: "red;} body{display:none"}).Style())
	assert.NotContains(t, css, ";}")
	assert.NotContains(t, css, "{")
}

func TestTemplates_Render(t *testing.T) {
	tpl := Templates()

	s := NewSession(surveyForm())
	_, _ = s.Submit(context.Background(), &fakeSink{}, domain.Meta{})
	var buf bytes.Buffer
	require.NoError(t, tpl.ExecuteTemplate(&buf, PageTemplate, s.Page("/f/form_1", "/api/forms/form_1/uploads")))
	html := buf.String()
	assert.Contains(t, html, "<h1>Survey</h1>")
	assert.Contains(t, html, "Name is required")
	assert.Contains(t, html, `<option value="">Select an option</option>`)
	assert.Contains(t, html, "--primary-color: #6366f1")

	buf.Reset()
	require.NoError(t, tpl.ExecuteTemplate(&buf, PageTemplate, NewDemoSession().Page("/f/nope", "")))
	assert.Contains(t, buf.String(), "Demo Mode:")
	assert.Contains(t, buf.String(), "Submit Demo Form")
	assert.Contains(t, buf.String(), "Demo Company")
}

func TestPage_RequiredFileWithoutUploads(t *testing.T) {
	tpl := Templates()
	f := surveyForm()
	f.Fields[4].Required = true

	p := NewSession(f).Page("/f/form_1", "")
	assert.True(t, p.Blocked)
	assert.True(t, p.Controls[4].Unavailable)
	assert.Equal(t, BlockedNotice, p.Notice)

	var buf bytes.Buffer
	require.NoError(t, tpl.ExecuteTemplate(&buf, PageTemplate, p))
	html := buf.String()
	assert.Contains(t, html, UploadUnavailableNote)
	assert.Contains(t, html, BlockedNotice)
	assert.Contains(t, html, `<button type="submit" disabled>`)
	assert.NotContains(t, html, `type="file"`)

	// 有上传地址时正常渲染
	p = NewSession(f).Page("/f/form_1", "/api/forms/form_1/uploads")
	assert.False(t, p.Blocked)
	assert.False(t, p.Controls[4].Unavailable)
	buf.Reset()
	require.NoError(t, tpl.ExecuteTemplate(&buf, PageTemplate, p))
	assert.Contains(t, buf.String(), `type="file"`)
	assert.Contains(t, buf.String(), `<button type="submit">`)

	// 可选的 file 字段不挡提交
	p = NewSession(surveyForm()).Page("/f/form_1", "")
	assert.False(t, p.Blocked)
	assert.True(t, p.Controls[4].Unavailable)
	assert.Empty(t, p.Notice)
}
