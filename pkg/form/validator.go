package form

// GenericValidator turns control states into display messages using a
// static RuleSet.
type GenericValidator struct {
	rules RuleSet
}

func NewGenericValidator(rules RuleSet) *GenericValidator {
	return &GenericValidator{rules: rules}
}

// ProcessMessages returns, for every field that has violations and has been
// changed or visited, the message of the first violated rule in declared
// order. Fields without a message are absent. The result is built fresh on
// every call and the input is never modified.
func (v *GenericValidator) ProcessMessages(states map[string]ControlState) map[string]string {
	messages := make(map[string]string)
	for _, fr := range v.rules.fields {
		st, ok := states[fr.Field]
		if !ok || len(st.Errors) == 0 || !(st.Dirty || st.Touched) {
			continue
		}
		for _, r := range fr.Rules {
			if contains(st.Errors, r.Name) {
				messages[fr.Field] = r.Message
				break
			}
		}
	}
	return messages
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
