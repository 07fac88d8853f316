// Package form models editable form state: per-field controls, declarative
// validation rules and the generic validator that turns violations into
// display messages.
package form

import (
	"github.com/go-playground/validator/v10"

	"github.com/quiby-ai/staffdesk/pkg/stream"
)

// ControlState is a read-only snapshot of one field.
type ControlState struct {
	Value   string
	Errors  []string
	Dirty   bool
	Touched bool
}

// Control holds the live state of one field. A control is dirty while its
// value differs from the value it was last loaded with.
type Control struct {
	value    string
	pristine string
	touched  bool
}

func (c *Control) Value() string { return c.value }
func (c *Control) Dirty() bool   { return c.value != c.pristine }
func (c *Control) Touched() bool { return c.touched }

// Form owns the controls of an edit form. It is not safe for concurrent use;
// a single owner performs every write.
type Form struct {
	rules    RuleSet
	validate *validator.Validate
	fields   []string
	controls map[string]*Control
	changes  *stream.Subject[map[string]string]
}

// New creates a form with one control per field. Fields that carry rules but
// are not listed are appended after the listed ones.
func New(rules RuleSet, fields ...string) *Form {
	f := &Form{
		rules:    rules,
		validate: validator.New(),
		controls: make(map[string]*Control),
		changes:  stream.NewSubject[map[string]string](),
	}
	for _, name := range fields {
		f.add(name)
	}
	for _, name := range rules.Fields() {
		f.add(name)
	}
	return f
}

func (f *Form) add(name string) {
	if _, ok := f.controls[name]; ok || name == "" {
		return
	}
	f.fields = append(f.fields, name)
	f.controls[name] = &Control{}
}

// Fields returns the registered field names in order.
func (f *Form) Fields() []string {
	out := make([]string, len(f.fields))
	copy(out, f.fields)
	return out
}

// ValueChanges emits the full value map after every value change, patch or
// reset.
func (f *Form) ValueChanges() stream.Stream[map[string]string] {
	return f.changes
}

// SetValue records user input for field.
func (f *Form) SetValue(field, value string) error {
	c, ok := f.controls[field]
	if !ok {
		return ErrUnknownField
	}
	c.value = value
	f.changes.Emit(f.Values())
	return nil
}

// MarkTouched flags field as visited by the user.
func (f *Form) MarkTouched(field string) error {
	c, ok := f.controls[field]
	if !ok {
		return ErrUnknownField
	}
	c.touched = true
	return nil
}

// Patch loads values into the named controls. Loaded values become the
// pristine values, so patched controls are not dirty. Unknown names are
// ignored.
func (f *Form) Patch(values map[string]string) {
	for name, v := range values {
		c, ok := f.controls[name]
		if !ok {
			continue
		}
		c.value = v
		c.pristine = v
	}
	f.changes.Emit(f.Values())
}

// Reset clears every value and flag.
func (f *Form) Reset() {
	for _, c := range f.controls {
		*c = Control{}
	}
	f.changes.Emit(f.Values())
}

// Values returns the current value of every control.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.controls))
	for name, c := range f.controls {
		out[name] = c.value
	}
	return out
}

// Errors returns the rules field currently violates, in declared order.
func (f *Form) Errors(field string) []string {
	c, ok := f.controls[field]
	if !ok {
		return nil
	}
	return f.rules.Violations(f.validate, field, c.value)
}

// Valid reports whether no field violates a rule.
func (f *Form) Valid() bool {
	for _, name := range f.fields {
		if len(f.Errors(name)) > 0 {
			return false
		}
	}
	return true
}

// Dirty reports whether any control is dirty.
func (f *Form) Dirty() bool {
	for _, c := range f.controls {
		if c.Dirty() {
			return true
		}
	}
	return false
}

func (f *Form) State(field string) (ControlState, bool) {
	c, ok := f.controls[field]
	if !ok {
		return ControlState{}, false
	}
	return ControlState{
		Value:   c.value,
		Errors:  f.Errors(field),
		Dirty:   c.Dirty(),
		Touched: c.touched,
	}, true
}

// States snapshots every control.
func (f *Form) States() map[string]ControlState {
	out := make(map[string]ControlState, len(f.controls))
	for _, name := range f.fields {
		out[name], _ = f.State(name)
	}
	return out
}
