package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned when an authenticated call has no token, and
	// matched by any *Error with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRequestFailed wraps transport failures and unparsable non-OK responses.
	ErrRequestFailed = errors.New("request failed")
	// ErrInvalidResponse is returned when an OK response is not a valid envelope.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrConfirmationRequired is returned by destructive calls made without
	// explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrInvalidInput is returned when a call's arguments fail local validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Fallbacks used when the server does not declare its own error.
const (
	CodeRequestFailed    = "REQUEST_FAILED"
	MessageRequestFailed = "request failed"
)

// Error is a server-declared (or status-derived) request failure.
type Error struct {
	Status    int            `json:"-"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches ErrUnauthorized for 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

func (e *Error) Unwrap() error {
	return e.cause
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Message returns the text to show a user for err: the server message for an
// *Error, the error string otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func requireConfirmation(confirmed bool, what string) error {
	if !confirmed {
		return fmt.Errorf("%w: %s", ErrConfirmationRequired, what)
	}
	return nil
}
