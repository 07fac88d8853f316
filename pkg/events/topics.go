package events

// Topics carrying employee record changes. Each topic name doubles as the
// envelope type.
const (
	EmployeeCreated = "employee.created"
	EmployeeUpdated = "employee.updated"
	EmployeeDeleted = "employee.deleted"
)

// Topics lists every employee topic.
var Topics = []string{EmployeeCreated, EmployeeUpdated, EmployeeDeleted}
