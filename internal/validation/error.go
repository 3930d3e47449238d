package validation

import "fmt"

// Error reports which field failed and which rule it broke. No write is
// performed when one is returned from a persist path.
type Error struct {
	Field string
	Rule  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Rule)
}

func fieldError(field, rule string) *Error {
	return &Error{Field: field, Rule: rule}
}
