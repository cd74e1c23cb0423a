package joint

import "errors"

// Domain errors for joint operations.
var (
	// ErrJointExists indicates CreateJoint on a controller that already owns a joint.
	ErrJointExists = errors.New("joint: controller already has an active joint")

	// ErrInvalidParams indicates a configuration value outside its valid range.
	ErrInvalidParams = errors.New("joint: invalid parameters")

	// ErrNoBody indicates an engine call on a body that does not exist.
	ErrNoBody = errors.New("joint: body not found")

	// ErrNoJoint indicates an engine call on a joint that does not exist.
	ErrNoJoint = errors.New("joint: joint not found")
)
