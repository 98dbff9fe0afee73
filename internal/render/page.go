package render

import (
	"embed"
	"html/template"
	"time"

	"formcraft/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const PageTemplate = "form.tmpl"

// Templates parses the public page templates, for gin's SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}

type Option struct {
	Value   string
	Checked bool
}

// Control is one rendered field.
type Control struct {
	ID          string
	Label       string
	Placeholder string
	Required    bool
	Kind        string // input | textarea | select | radio | checkbox | file
	InputType   string // only for Kind == "input"
	Value       string
	Options     []Option
	Error       string
	Unavailable bool // file 字段但没有上传地址
}

func (s *Session) Controls() []Control {
	out := make([]Control, 0, len(s.form.Fields))
	for _, f := range s.form.Fields {
		v := s.values[f.ID]
		c := Control{
			ID:          f.ID,
			Label:       f.Label,
			Placeholder: f.Placeholder,
			Required:    f.Required,
			Value:       v.Text,
			Error:       s.errs[f.ID],
		}
		switch f.Type {
		case domain.FieldText, domain.FieldEmail, domain.FieldNumber, domain.FieldDate:
			c.Kind, c.InputType = "input", string(f.Type)
		case domain.FieldTextarea:
			c.Kind = "textarea"
		case domain.FieldFile:
			c.Kind = "file"
		default:
			c.Kind = string(f.Type)
		}
		if f.Type.HasOptions() {
			chosen := map[string]bool{}
			if f.Type == domain.FieldCheckbox {
				for _, it := range v.Items {
					chosen[it] = true
				}
			} else if v.Text != "" {
				chosen[v.Text] = true
			}
			for _, o := range f.Options {
				c.Options = append(c.Options, Option{Value: o, Checked: chosen[o]})
			}
		}
		out = append(out, c)
	}
	return out
}

// Page is the template model of the public form page.
type Page struct {
	FormID      string
	Title       string
	Description string
	Theme       ThemeVars
	Controls    []Control
	Demo        bool
	Notice      string
	Submitted   bool
	SubmitError string
	SubmitLabel string
	Action      string
	UploadURL   string
	Blocked     bool // 有必填的 file 字段但上传不可用，提交按钮禁用
	Year        int
}

const (
	UploadUnavailableNote = "File uploads are not available for this form right now."
	BlockedNotice         = "This form requires a file upload, which is currently unavailable. Please try again later."
)

func (s *Session) Page(action, uploadURL string) Page {
	p := Page{
		FormID:      s.form.ID,
		Title:       s.form.Title,
		Description: s.form.Description,
		Theme:       Theme(s.form.Theme),
		Controls:    s.Controls(),
		Demo:        s.demo,
		Submitted:   s.state == Submitted,
		SubmitError: s.submitErr,
		SubmitLabel: "Submit",
		Action:      action,
		UploadURL:   uploadURL,
		Year:        time.Now().Year(),
	}
	if s.demo {
		p.Notice = DemoNotice
		p.SubmitLabel = "Submit Demo Form"
		p.UploadURL = ""
	}
	if p.UploadURL == "" {
		for i := range p.Controls {
			c := &p.Controls[i]
			if c.Kind != "file" {
				continue
			}
			c.Unavailable = true
			if c.Required {
				p.Blocked = true
			}
		}
		if p.Blocked && p.Notice == "" {
			p.Notice = BlockedNotice
		}
	}
	return p
}

func (Page) UploadNote() string { return UploadUnavailableNote }
