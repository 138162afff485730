package template

import "errors"

var (
	// ErrTemplateNotFound is returned when a template id does not exist for
	// the broker.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidTemplate is returned when a template fails validation or an
	// import document cannot be read.
	ErrInvalidTemplate = errors.New("invalid template")
)
