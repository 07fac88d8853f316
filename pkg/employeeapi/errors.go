package employeeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorKind separates failures that never reached the backend from failures
// the backend reported.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindBackend
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindBackend:
		return "backend"
	case KindInvalid:
		return "invalid"
	default:
		return "transport"
	}
}

// Error is returned by every Client operation. Its message is ready for
// display.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBackend:
		return fmt.Sprintf("Backend returned code %d: %s", e.Status, e.Detail)
	case KindInvalid:
		return fmt.Sprintf("Invalid employee: %s", e.Detail)
	default:
		return fmt.Sprintf("An error occurred: %s", e.Detail)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindBackend && apiErr.Status == 404
}

func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Detail: err.Error(), Err: err}
}

// invalidError reports a record rejected before it was sent.
func invalidError(op string, err error) *Error {
	detail := err.Error()
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		parts := make([]string, 0, len(fields))
		for _, fe := range fields {
			parts = append(parts, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
		}
		detail = strings.Join(parts, ", ")
	}
	return &Error{Kind: KindInvalid, Op: op, Detail: detail, Err: err}
}

func backendError(op string, status int, body []byte) *Error {
	return &Error{Kind: KindBackend, Op: op, Status: status, Detail: bodyErrorText(body)}
}

// bodyErrorText prefers the "error" member of a JSON body and falls back to
// the raw body text.
func bodyErrorText(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var s string
		if json.Unmarshal(payload.Error, &s) == nil {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		return string(payload.Error)
	}
	return strings.TrimSpace(string(body))
}
