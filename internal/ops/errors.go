package ops

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any request was sent.
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrScaleMismatch marks a ledger response holding scores outside the
	// configured scale. The ledger is left untouched.
	ErrScaleMismatch = errors.New("ratings do not match the configured scale")
	ErrNotSignedIn   = errors.New("not signed in")
	// ErrIdentityChanged marks a confirmation that arrived after the session
	// switched to another user. It is not applied to the ledger.
	ErrIdentityChanged = errors.New("signed-in user changed during the request")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Reason strips the sentinel prefix from a validation error for display.
func Reason(err error) string {
	var msg string
	if err != nil {
		msg = err.Error()
	}
	prefix := ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
