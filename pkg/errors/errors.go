package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// Code classifies a ChainError for callers that need to branch on it.
type Code string

const (
	CodeInvalid   Code = "invalid"
	CodeNotFound  Code = "not_found"
	CodeConflict  Code = "conflict"
	CodeImmutable Code = "immutable"
	CodeCorrupt   Code = "corrupt"
	CodeTooLarge  Code = "too_large"
)

// ChainError describes a rejected configuration or chain operation, with the
// module, kind and field it concerns.
type ChainError struct {
	Code    Code
	Module  string
	Kind    string
	Field   string
	Preset  string
	Message string
}

func NewChainError(code Code, msg string) *ChainError {
	return &ChainError{
		Code:    code,
		Message: msg,
	}
}

// NewChainErrorf creates a new ChainError with a formatted message
func NewChainErrorf(code Code, format string, args ...any) *ChainError {
	for i, arg := range args {
		if err, ok := arg.(error); ok && strings.Contains(format, "%w") {
			format = strings.Replace(format, "%w", "%v", 1)
			args[i] = err.Error()
		}
	}

	return &ChainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func WrapChainError(code Code, e error) *ChainError {
	if e == nil {
		return nil
	}

	var chainErr *ChainError
	if errors.As(e, &chainErr) {
		return chainErr
	}

	return &ChainError{
		Code:    code,
		Message: e.Error(),
	}
}

func (e *ChainError) Error() string {
	path := []string{}
	if e.Preset != "" {
		path = append(path, fmt.Sprintf("preset '%s'", e.Preset))
	}
	if e.Module != "" {
		path = append(path, fmt.Sprintf("module '%s'", e.Module))
	}
	if e.Kind != "" {
		path = append(path, fmt.Sprintf("kind '%s'", e.Kind))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *ChainError) AddModule(moduleID string) *ChainError {
	e.Module = moduleID
	return e
}

func (e *ChainError) AddKind(kind string) *ChainError {
	e.Kind = kind
	return e
}

func (e *ChainError) AddField(field string) *ChainError {
	e.Field = field
	return e
}

func (e *ChainError) AddPreset(name string) *ChainError {
	e.Preset = name
	return e
}

// StatusCode maps the error code to an HTTP status.
func (e *ChainError) StatusCode() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeImmutable:
		return http.StatusConflict
	case CodeCorrupt:
		return http.StatusUnprocessableEntity
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

func (e *ChainError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(e.StatusCode(), e.Error()).
		AddMetaValue("code", string(e.Code)).
		AddMetaValue("module_id", e.Module).
		AddMetaValue("module_type", e.Kind).
		AddMetaValue("field", e.Field).
		AddMetaValue("preset", e.Preset)
}

func IsChainError(err error) bool {
	var chainErr *ChainError
	return errors.As(err, &chainErr)
}

// HasCode reports whether err is a ChainError with the given code.
func HasCode(err error, code Code) bool {
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		return false
	}
	return chainErr.Code == code
}

func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
