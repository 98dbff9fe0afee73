package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("not authorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type FieldErrorCode string

const (
	CodeMissingTitle         FieldErrorCode = "MissingTitle"
	CodeMissingLabel         FieldErrorCode = "MissingLabel"
	CodeInvalidOptions       FieldErrorCode = "InvalidOptions"
	CodeUnknownFieldType     FieldErrorCode = "UnknownFieldType"
	CodeMissingFieldID       FieldErrorCode = "MissingFieldId"
	CodeDuplicateFieldID     FieldErrorCode = "DuplicateFieldId"
	CodeMissingRequiredField FieldErrorCode = "MissingRequiredField"
	CodeInvalidEmailFormat   FieldErrorCode = "InvalidEmailFormat"
	CodeInvalidOption        FieldErrorCode = "InvalidOption"
	CodeInvalidValue         FieldErrorCode = "InvalidValue"
)

// FieldError is one schema or response rule violation. Field is empty for
// form-level problems such as a missing title.
type FieldError struct {
	Field   string         `json:"field,omitempty"`
	Code    FieldErrorCode `json:"code"`
	Message string         `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Code, e.Field, e.Message)
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation wraps errs, or returns nil when there are none.
func Validation(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// FieldErrors extracts the per-field details from a validation error.
func FieldErrors(err error) []FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return nil
}
