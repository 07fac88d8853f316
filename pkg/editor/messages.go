package editor

import (
	"github.com/quiby-ai/staffdesk/pkg/employee"
	"github.com/quiby-ai/staffdesk/pkg/form"
	"github.com/quiby-ai/staffdesk/pkg/route"
)

// ListRoute is where the controller navigates once a record is saved,
// deleted or abandoned.
const ListRoute = route.List

const (
	TitleDefault = "Employee Edit"
	TitleAdd     = "Add Employee"
	titleEdit    = "Edit Employee: %s"

	MsgCorrectErrors = "Please correct the validation errors."
	deletePrompt     = "Are you sure want to delete this Employee: %s?"
	leavePrompt      = "Navigate away and lose all changes to %s?"
	unnamed          = "New Employee"
)

// DefaultRules are the employee form rules in priority order.
var DefaultRules = form.MustRuleSet(
	form.Field(employee.FieldName,
		form.Required("Employee name is required."),
		form.MinLength(3, "Employee name must be at least three characters."),
		form.MaxLength(50, "Employee name cannot exceed 50 characters."),
	),
	form.Field(employee.FieldAddress,
		form.Required("Employee address is required."),
	),
)
