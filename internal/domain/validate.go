package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsEmail(s string) bool { return emailRe.MatchString(s) }

// ValidateField checks one field definition in isolation.
func ValidateField(f Field) error {
	if !f.Type.Valid() {
		return FieldError{Field: f.ID, Code: CodeUnknownFieldType, Message: fmt.Sprintf("unknown field type %q", f.Type)}
	}
	if strings.TrimSpace(f.Label) == "" {
		return FieldError{Field: f.ID, Code: CodeMissingLabel, Message: "label is required"}
	}
	switch {
	case f.Type.HasOptions() && len(f.Options) == 0:
		return FieldError{Field: f.ID, Code: CodeInvalidOptions, Message: fmt.Sprintf("%s fields need at least one option", f.Type)}
	case !f.Type.HasOptions() && f.Options != nil:
		return FieldError{Field: f.ID, Code: CodeInvalidOptions, Message: fmt.Sprintf("%s fields take no options", f.Type)}
	}
	return nil
}

// ValidateForm collects every schema problem of form; nil means valid.
func ValidateForm(form *Form) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(form.Title) == "" {
		errs = append(errs, FieldError{Code: CodeMissingTitle, Message: "title is required"})
	}
	seen := make(map[string]struct{}, len(form.Fields))
	for i, f := range form.Fields {
		if f.ID == "" {
			errs = append(errs, FieldError{Code: CodeMissingFieldID, Message: fmt.Sprintf("field #%d has no id", i+1)})
		} else if _, dup := seen[f.ID]; dup {
			errs = append(errs, FieldError{Field: f.ID, Code: CodeDuplicateFieldID, Message: "field id is used more than once"})
		}
		seen[f.ID] = struct{}{}

		if err := ValidateField(f); err != nil {
			errs = append(errs, err.(FieldError))
		}
	}
	return errs
}

// ValidateSubmission checks answers against the form. Number and date
// values are not coerced here.
func ValidateSubmission(form *Form, responses Responses) []FieldError {
	var errs []FieldError
	for _, f := range form.Fields {
		v, ok := responses[f.ID]
		if !ok || v.IsEmpty() {
			if f.Required {
				errs = append(errs, FieldError{Field: f.ID, Code: CodeMissingRequiredField, Message: f.Label + " is required"})
			}
			continue
		}
		if v.Kind != f.Type.ValueKind() {
			errs = append(errs, FieldError{Field: f.ID, Code: CodeInvalidValue, Message: fmt.Sprintf("%s expects a %s value", f.Label, f.Type.ValueKind())})
			continue
		}
		switch f.Type {
		case FieldEmail:
			if !IsEmail(v.Text) {
				errs = append(errs, FieldError{Field: f.ID, Code: CodeInvalidEmailFormat, Message: "Please enter a valid email address"})
			}
		case FieldSelect, FieldRadio:
			if len(f.Options) > 0 && !f.HasOption(v.Text) {
				errs = append(errs, FieldError{Field: f.ID, Code: CodeInvalidOption, Message: "Please choose one of the listed options"})
			}
		case FieldCheckbox:
			for _, it := range v.Items {
				if !f.HasOption(it) {
					errs = append(errs, FieldError{Field: f.ID, Code: CodeInvalidOption, Message: "Please choose one of the listed options"})
					break
				}
			}
		}
	}
	return errs
}

// DecodeResponses reads a JSON answer object into typed values using the
// form's field types. Keys that name no field are dropped.
func DecodeResponses(form *Form, raw map[string]json.RawMessage) (Responses, []FieldError) {
	out := make(Responses, len(raw))
	var errs []FieldError
	for _, f := range form.Fields {
		msg, ok := raw[f.ID]
		if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		v, err := decodeValue(f.Type.ValueKind(), msg)
		if err != nil {
			errs = append(errs, FieldError{Field: f.ID, Code: CodeInvalidValue, Message: fmt.Sprintf("%s: %v", f.Label, err)})
			continue
		}
		out[f.ID] = v
	}
	return out, errs
}

func decodeValue(kind ValueKind, msg json.RawMessage) (Value, error) {
	switch kind {
	case KindChoices:
		var items []string
		if err := json.Unmarshal(msg, &items); err == nil {
			return ChoicesValue(items...), nil
		}
		var one string
		if err := json.Unmarshal(msg, &one); err == nil {
			if one == "" {
				return ChoicesValue(), nil
			}
			return ChoicesValue(one), nil
		}
		return Value{}, fmt.Errorf("expected a list of strings")
	case KindFile:
		var key string
		if err := json.Unmarshal(msg, &key); err != nil {
			return Value{}, fmt.Errorf("expected a file reference")
		}
		return FileValue(key), nil
	default:
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			return TextValue(s), nil
		}
		// 数字字段常以 JSON number 发送，原样保留字面量
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		if err := dec.Decode(&n); err == nil {
			return TextValue(n.String()), nil
		}
		return Value{}, fmt.Errorf("expected a string")
	}
}
