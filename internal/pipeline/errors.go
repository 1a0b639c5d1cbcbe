package pipeline

import "errors"

var (
	// ErrServiceNotFound is returned when the requested service name is absent
	// from the resolved services sequence.
	ErrServiceNotFound = errors.New("service not found")
	// ErrServicesMalformed is returned when the resolved document's services
	// entry is missing or is not a sequence of named mappings.
	ErrServicesMalformed = errors.New("services entry malformed")
)
