package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"formcraft/internal/domain"
)

type State int

const (
	Editing State = iota
	Validating
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrSessionClosed = errors.New("form session is closed")
	ErrUnknownField  = errors.New("unknown field")
)

const SubmitFailedMessage = "Failed to submit form. Please try again."

// Sink records a validated submission.
type Sink interface {
	SubmitResponses(ctx context.Context, f *domain.Form, r domain.Responses, meta domain.Meta) (*domain.Submission, error)
}

// Session is one respondent filling one form. The form is read only; the
// answers, per-field errors and state change as the respondent works.
// A Session is not safe for concurrent use.
type Session struct {
	form   *domain.Form
	demo   bool
	values domain.Responses
	errs   map[string]string
	state  State

	submitErr string
	result    *domain.Submission
}

func NewSession(f *domain.Form) *Session {
	c := f.Clone()
	return &Session{form: &c, values: domain.Responses{}, errs: map[string]string{}}
}

// NewDemoSession serves the built-in demo form. Its submissions are
// validated but never stored.
func NewDemoSession() *Session {
	s := NewSession(DemoForm())
	s.demo = true
	return s
}

func (s *Session) Form() *domain.Form                { return s.form }
func (s *Session) Demo() bool                        { return s.demo }
func (s *Session) State() State                      { return s.state }
func (s *Session) Result() *domain.Submission        { return s.result }
func (s *Session) Value(fieldID string) domain.Value { return s.values[fieldID] }
func (s *Session) Error(fieldID string) string       { return s.errs[fieldID] }
func (s *Session) SubmitError() string               { return s.submitErr }

func (s *Session) edit(fieldID string) (domain.Field, error) {
	if s.state == Submitted {
		return domain.Field{}, ErrSessionClosed
	}
	f, ok := s.form.Field(fieldID)
	if !ok {
		return domain.Field{}, fmt.Errorf("%w: %s", ErrUnknownField, fieldID)
	}
	// 改了就清掉该字段的错误
	delete(s.errs, fieldID)
	return f, nil
}

// Set stores a single-value answer.
func (s *Session) Set(fieldID, text string) error {
	f, err := s.edit(fieldID)
	if err != nil {
		return err
	}
	if f.Type.ValueKind() != domain.KindText {
		return fmt.Errorf("field %s is %s, not a text field", fieldID, f.Type)
	}
	s.values[fieldID] = domain.TextValue(text)
	return nil
}

// Toggle flips one option of a checkbox field.
func (s *Session) Toggle(fieldID, option string) error {
	f, err := s.edit(fieldID)
	if err != nil {
		return err
	}
	if f.Type != domain.FieldCheckbox {
		return fmt.Errorf("field %s is %s, not a checkbox", fieldID, f.Type)
	}
	cur := s.values[fieldID].Items
	next := make([]string, 0, len(cur)+1)
	found := false
	for _, it := range cur {
		if it == option {
			found = true
			continue
		}
		next = append(next, it)
	}
	if !found {
		next = append(next, option)
	}
	s.values[fieldID] = domain.ChoicesValue(next...)
	return nil
}

// Attach records the blob key of an uploaded file.
func (s *Session) Attach(fieldID, key string) error {
	f, err := s.edit(fieldID)
	if err != nil {
		return err
	}
	if f.Type != domain.FieldFile {
		return fmt.Errorf("field %s is %s, not a file field", fieldID, f.Type)
	}
	s.values[fieldID] = domain.FileValue(key)
	return nil
}

// ApplyForm replaces the answers with a posted HTML form. Unknown keys are ignored.
func (s *Session) ApplyForm(v url.Values) error {
	if s.state == Submitted {
		return ErrSessionClosed
	}
	next := domain.Responses{}
	for _, f := range s.form.Fields {
		vals, ok := v[f.ID]
		if !ok {
			continue
		}
		switch f.Type.ValueKind() {
		case domain.KindChoices:
			next[f.ID] = domain.ChoicesValue(vals...)
		case domain.KindFile:
			next[f.ID] = domain.FileValue(v.Get(f.ID))
		default:
			next[f.ID] = domain.TextValue(v.Get(f.ID))
		}
	}
	s.values = next
	s.errs = map[string]string{}
	return nil
}

// Submit runs Validating, then Submitting. Validation problems return the
// session to Editing without calling sink; a sink failure does the same and
// keeps every answer.
func (s *Session) Submit(ctx context.Context, sink Sink, meta domain.Meta) (*domain.Submission, error) {
	if s.state == Submitted {
		return nil, ErrSessionClosed
	}
	s.submitErr = ""
	s.state = Validating
	if errs := domain.ValidateSubmission(s.form, s.values); len(errs) > 0 {
		s.setErrors(errs)
		s.state = Editing
		return nil, domain.Validation(errs)
	}
	s.errs = map[string]string{}

	if s.demo {
		s.state = Submitted
		s.result = &domain.Submission{FormID: s.form.ID, Responses: s.values.Clone(), Meta: meta}
		return s.result, nil
	}

	s.state = Submitting
	sub, err := sink.SubmitResponses(ctx, s.form, s.values.Clone(), meta)
	if err != nil {
		if fe := domain.FieldErrors(err); len(fe) > 0 {
			s.setErrors(fe)
		} else {
			s.submitErr = SubmitFailedMessage
		}
		s.state = Editing
		return nil, err
	}
	s.state = Submitted
	s.result = sub
	return sub, nil
}

func (s *Session) setErrors(errs []domain.FieldError) {
	s.errs = make(map[string]string, len(errs))
	for _, e := range errs {
		if _, dup := s.errs[e.Field]; !dup {
			s.errs[e.Field] = e.Message
		}
	}
}
