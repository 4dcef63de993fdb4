package core

import "errors"

// Error taxonomy sentinels. Remote clients wrap their failures with either
// ErrTransient or ErrPermanent so the retry policy can classify them without
// knowing about HTTP status codes or transport details.
var (
	// ErrTransient marks a remote failure expected to succeed on retry
	// (timeout, rate limit, 5xx).
	ErrTransient = errors.New("transient remote failure")

	// ErrPermanent marks a remote failure that retrying cannot fix
	// (4xx, malformed response, empty content).
	ErrPermanent = errors.New("permanent remote failure")

	// ErrValidation marks locally detected bad content. Stages with a
	// defined fallback absorb it; everywhere else it aborts the run.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration marks a configuration problem detected before any
	// remote call is made.
	ErrConfiguration = errors.New("invalid configuration")
)

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
