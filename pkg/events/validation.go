package events

import "slices"

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationResult contains validation results and errors.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func (r *ValidationResult) require(ok bool, field string) {
	if ok {
		return
	}
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: field + " is required"})
}

// Err returns the first error, or nil when the result is valid.
func (r ValidationResult) Err() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// ValidateEnvelope validates the envelope structure and metadata.
func ValidateEnvelope[T any](envelope Envelope[T]) ValidationResult {
	result := ValidationResult{Valid: true}

	result.require(envelope.Key != "", "key")
	result.require(envelope.Type != "", "type")
	result.require(!envelope.OccurredAt.IsZero(), "occurred_at")
	result.require(envelope.Meta.Source != "", "meta.source")
	result.require(envelope.Meta.Initiator != "", "meta.initiator")
	result.require(envelope.Meta.SchemaVersion != "", "meta.schema_version")

	if envelope.Type != "" && !slices.Contains(Topics, envelope.Type) {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Field:   "type",
			Message: "unknown event type " + envelope.Type,
		})
	}

	return result
}
