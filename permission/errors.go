package permission

import "errors"

var (
	// ErrUnknownRole is returned by ParseRole for names outside the role set.
	ErrUnknownRole = errors.New("unknown role")
	// ErrInvalidGuardConfig is returned when a guard configuration document
	// cannot be decoded.
	ErrInvalidGuardConfig = errors.New("invalid guard config")
)
