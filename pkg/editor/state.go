package editor

import "github.com/quiby-ai/staffdesk/pkg/employee"

// State is the workflow state of a Controller.
type State int

const (
	Loading State = iota
	Editing
	Saving
	Deleting
	Errored
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	case Deleting:
		return "deleting"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// View is what the presentation layer renders. Maps are copies.
type View struct {
	State     State
	Title     string
	Record    employee.Employee
	Loaded    bool
	Values    map[string]string
	Messages  map[string]string
	Error     string
	Dirty     bool
	Valid     bool
	Completed bool
}

// Busy reports whether a remote call is in flight.
func (v View) Busy() bool {
	return v.State == Loading || v.State == Saving || v.State == Deleting
}
