package employee

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewID marks an in-memory record that has never been persisted.
const NewID = "0"

// Field names as they appear on the wire and in forms.
const (
	FieldName        = "name"
	FieldAddress     = "address"
	FieldGender      = "gender"
	FieldCompany     = "company"
	FieldDesignation = "designation"
)

// Fields lists the editable fields in display order.
var Fields = []string{FieldName, FieldAddress, FieldGender, FieldCompany, FieldDesignation}

// Employee is the record managed by the edit workflow.
//
// JSON null decodes to the empty string for every field.
type Employee struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required,min=3,max=50"`
	Address     string `json:"address" validate:"required"`
	Gender      string `json:"gender"`
	Company     string `json:"company"`
	Designation string `json:"designation"`
}

// New returns an empty, unsaved record.
func New() Employee {
	return Employee{ID: NewID}
}

// Empty returns a record with every field blank, including the id.
func Empty() Employee {
	return Employee{}
}

// IsNew reports whether the record carries the unsaved sentinel id.
func (e Employee) IsNew() bool {
	return e.ID == NewID
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the record before it is sent. A record without an id is
// checked on its other fields only, leaving the id to the backend.
func (e Employee) Validate() error {
	if e.ID == "" {
		return validate.StructExcept(e, "ID")
	}
	return validate.Struct(e)
}

// Values returns the editable fields keyed by field name.
func (e Employee) Values() map[string]string {
	return map[string]string{
		FieldName:        e.Name,
		FieldAddress:     e.Address,
		FieldGender:      e.Gender,
		FieldCompany:     e.Company,
		FieldDesignation: e.Designation,
	}
}

// Merge overlays form values on a copy of the record. Values win over the
// record for every field they name; the id is never taken from values.
func (e Employee) Merge(values map[string]string) Employee {
	out := e
	for field, v := range values {
		switch field {
		case FieldName:
			out.Name = v
		case FieldAddress:
			out.Address = v
		case FieldGender:
			out.Gender = v
		case FieldCompany:
			out.Company = v
		case FieldDesignation:
			out.Designation = v
		}
	}
	return out
}
