package employee

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New()
	assert.Equal(t, NewID, e.ID)
	assert.True(t, e.IsNew())
	assert.Empty(t, e.Name)

	assert.False(t, Empty().IsNew())
	assert.False(t, Employee{ID: "42"}.IsNew())
}

func TestMergeFormValuesWin(t *testing.T) {
	e := Employee{ID: "42", Name: "Bob", Address: "2 Side St", Company: "Acme"}

	got := e.Merge(map[string]string{
		FieldName:    "Alice",
		FieldAddress: "1 Main St",
		"id":         "99",
		"unknown":    "x",
	})

	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Bob", e.Name, "receiver must not change")
}

func TestValuesRoundTripThroughMerge(t *testing.T) {
	e := Employee{ID: "7", Name: "Carol", Address: "3 Elm", Gender: "f", Company: "Initech", Designation: "Dev"}
	assert.Equal(t, e, Employee{ID: "7"}.Merge(e.Values()))
	assert.Len(t, e.Values(), len(Fields))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		e       Employee
		wantErr bool
	}{
		{"valid", Employee{ID: "1", Name: "Alice", Address: "1 Main St"}, false},
		{"short name", Employee{ID: "1", Name: "Al", Address: "1 Main St"}, true},
		{"missing address", Employee{ID: "1", Name: "Alice"}, true},
		{"unsaved sentinel", Employee{ID: NewID, Name: "Alice", Address: "1 Main St"}, false},
		{"blank id left to backend", Employee{Name: "Alice", Address: "1 Main St"}, false},
		{"blank id still checks fields", Employee{Name: "Al"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNamesJSONFields(t *testing.T) {
	err := Employee{ID: "1", Name: "Al"}.Validate()

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fe.Field())
	}
	assert.ElementsMatch(t, []string{FieldName, FieldAddress}, fields)
}

func TestJSONNullFields(t *testing.T) {
	var e Employee
	err := json.Unmarshal([]byte(`{"id":"5","name":null,"address":"x","gender":null}`), &e)
	require.NoError(t, err)
	assert.Equal(t, Employee{ID: "5", Address: "x"}, e)
}
