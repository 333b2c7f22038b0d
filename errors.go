package portal

import "errors"

var (
	// ErrCartEmpty is returned by Checkout when the cart has no entries.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrInvalidThemeMode is returned for modes other than light, dark and system.
	ErrInvalidThemeMode = errors.New("invalid theme mode")
	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("invalid portal config")
	// ErrBuilderUsed is returned by a second call to Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClosed is returned by operations on a closed Portal.
	ErrClosed = errors.New("portal closed")
)
