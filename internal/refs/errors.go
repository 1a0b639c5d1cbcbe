package refs

import "errors"

var (
	// ErrMalformedRef is returned when a $ref node is not a lone string-valued key.
	ErrMalformedRef = errors.New("malformed $ref")
	// ErrTargetNotFound is returned when a referenced logical path is absent from the namespace.
	ErrTargetNotFound = errors.New("reference target not found")
	// ErrPointer is returned when a JSON Pointer cannot be evaluated against the target document.
	ErrPointer = errors.New("json pointer resolution failed")
	// ErrCircularReference is returned when an expansion re-enters itself.
	ErrCircularReference = errors.New("circular reference")
)
