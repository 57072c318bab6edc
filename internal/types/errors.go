package types

import "errors"

var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthenticated = errors.New("authentication required")
var ErrForbidden = errors.New("action forbidden")
var ErrInternal = errors.New("internal error")

// ErrInvalidCredentials covers every login failure the end user is allowed
// to see: unknown user, wrong password, locked account and throttled
// attempts all surface as this one error. The distinct reasons are kept
// server-side as security events.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrAccountLocked and ErrRateLimited are internal reason codes. Handlers
// must never expose them directly; they map to the same generic message as
// ErrInvalidCredentials.
var ErrAccountLocked = errors.New("account temporarily locked")
var ErrRateLimited = errors.New("too many login attempts")

// ValidationError carries per-field validation messages from a service up
// to the handler, which renders them as a 422 payload.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string { return "validation failed" }

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
