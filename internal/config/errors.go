package config

import "fmt"

// FieldError carries the field path and reason so the CLI can point users at
// the offending configuration line.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// toolField builds Tool[name].Field style paths for tool-level errors.
func toolField(name, field string) string {
	if name == "" {
		return fmt.Sprintf("Tool[].%s", field)
	}
	return fmt.Sprintf("Tool[%s].%s", name, field)
}
