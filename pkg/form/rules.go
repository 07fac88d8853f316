package form

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Rule names understood by the validator.
const (
	RuleRequired  = "required"
	RuleMinLength = "minlength"
	RuleMaxLength = "maxlength"
)

// Rule is a single field constraint and the message shown when it is violated.
type Rule struct {
	Name    string
	Param   int
	Message string
}

func Required(message string) Rule {
	return Rule{Name: RuleRequired, Message: message}
}

// MinLength is violated by non-empty values shorter than n runes.
func MinLength(n int, message string) Rule {
	return Rule{Name: RuleMinLength, Param: n, Message: message}
}

// MaxLength is violated by values longer than n runes.
func MaxLength(n int, message string) Rule {
	return Rule{Name: RuleMaxLength, Param: n, Message: message}
}

// Tag returns the go-playground/validator tag that checks the rule. Length
// rules skip empty values, those are the business of required.
func (r Rule) Tag() string {
	switch r.Name {
	case RuleRequired:
		return "required"
	case RuleMinLength:
		return "omitempty,min=" + strconv.Itoa(r.Param)
	case RuleMaxLength:
		return "omitempty,max=" + strconv.Itoa(r.Param)
	default:
		return ""
	}
}

// FieldRules is the ordered rule list of one field. Order decides which
// message wins when several rules are violated.
type FieldRules struct {
	Field string
	Rules []Rule
}

func Field(name string, rules ...Rule) FieldRules {
	return FieldRules{Field: name, Rules: rules}
}

// RuleSet maps field names to their ordered rules. It is immutable once built.
type RuleSet struct {
	fields []FieldRules
	index  map[string]int
}

// NewRuleSet builds a RuleSet. A field declared twice keeps its first
// declaration.
func NewRuleSet(fields ...FieldRules) (RuleSet, error) {
	rs := RuleSet{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.Field == "" {
			return RuleSet{}, ErrEmptyField
		}
		for _, r := range f.Rules {
			if r.Tag() == "" {
				return RuleSet{}, &UnknownRuleError{Field: f.Field, Rule: r.Name}
			}
			if r.Name != RuleRequired && r.Param < 0 {
				return RuleSet{}, &UnknownRuleError{Field: f.Field, Rule: r.Name}
			}
		}
		if _, dup := rs.index[f.Field]; dup {
			continue
		}
		rules := make([]Rule, len(f.Rules))
		copy(rules, f.Rules)
		rs.index[f.Field] = len(rs.fields)
		rs.fields = append(rs.fields, FieldRules{Field: f.Field, Rules: rules})
	}
	return rs, nil
}

// MustRuleSet is NewRuleSet that panics on error, for static declarations.
func MustRuleSet(fields ...FieldRules) RuleSet {
	rs, err := NewRuleSet(fields...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Fields returns the declared field names in order.
func (rs RuleSet) Fields() []string {
	out := make([]string, len(rs.fields))
	for i, f := range rs.fields {
		out[i] = f.Field
	}
	return out
}

// Rules returns a copy of the rules declared for field.
func (rs RuleSet) Rules(field string) []Rule {
	i, ok := rs.index[field]
	if !ok {
		return nil
	}
	out := make([]Rule, len(rs.fields[i].Rules))
	copy(out, rs.fields[i].Rules)
	return out
}

// Violations checks value against the rules of field and returns the names
// of the violated rules in declared order.
func (rs RuleSet) Violations(validate *validator.Validate, field, value string) []string {
	i, ok := rs.index[field]
	if !ok {
		return nil
	}
	var out []string
	for _, r := range rs.fields[i].Rules {
		if err := validate.Var(value, r.Tag()); err != nil {
			out = append(out, r.Name)
		}
	}
	return out
}
