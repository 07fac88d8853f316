package events

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Operations reported by RecordChanged.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// RecordChanged is the payload of every employee.* event.
type RecordChanged struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Op   string `json:"op" validate:"required,oneof=created updated deleted"`
}

func (s *RecordChanged) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// Topic returns the topic the change is published to.
func (s RecordChanged) Topic() string {
	return TopicFor(s.Op)
}

// TopicFor maps an operation to its topic, or "" for an unknown operation.
func TopicFor(op string) string {
	switch op {
	case OpCreated:
		return EmployeeCreated
	case OpUpdated:
		return EmployeeUpdated
	case OpDeleted:
		return EmployeeDeleted
	default:
		return ""
	}
}

func (s RecordChanged) String() string {
	return fmt.Sprintf("%s %s (%s)", s.Op, s.ID, s.Name)
}
