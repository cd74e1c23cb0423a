package rigid

import "errors"

var (
	// ErrInvalidBody indicates a body definition the world cannot integrate.
	ErrInvalidBody = errors.New("rigid: invalid body")

	// ErrInvalidJoint indicates a joint definition with bad limits or ends.
	ErrInvalidJoint = errors.New("rigid: invalid joint")

	// ErrInvalidStep indicates a non-positive or non-finite time step.
	ErrInvalidStep = errors.New("rigid: invalid time step")
)
