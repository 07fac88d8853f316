package form

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyField   = errors.New("form: empty field name")
	ErrUnknownField = errors.New("form: unknown field")
)

// UnknownRuleError is returned when a rule name or parameter is not supported.
type UnknownRuleError struct {
	Field string
	Rule  string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("form: unsupported rule %q on field %q", e.Rule, e.Field)
}
