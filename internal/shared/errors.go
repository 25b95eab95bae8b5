package shared

import "errors"

var (
	// ErrSessionExpired indicates the upstream rejected the bearer token.
	// Any operation observing it must force a logout.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetwork indicates the upstream could not be reached; session state
	// is left unchanged so the caller may retry.
	ErrNetwork = errors.New("upstream unreachable")
	// ErrCSRFTokenMissing occurs when the CSRF token is missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// AuthError carries the upstream's rejection message for a login or
// registration attempt. The message is surfaced to the user unmodified.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}
