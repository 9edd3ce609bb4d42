package db

import "fmt"

// ValidationError reports a missing required task field. The operation that
// raised it wrote nothing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required field missing: %s", e.Field)
}
