package envvar

import "errors"

var (
	// ErrVariableNotFound is returned when a variable id does not exist.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrVariableExists is returned when the broker already has a variable
	// with the same name.
	ErrVariableExists = errors.New("variable already exists")

	// ErrInvalidVariable is returned when a variable name is not usable as a
	// placeholder.
	ErrInvalidVariable = errors.New("invalid variable")
)
