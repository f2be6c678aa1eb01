package upstream

import "errors"

// Classification errors for upstream calls. Checked with errors.Is.
var (
	// ErrRejected means the upstream answered and refused the credentials.
	ErrRejected = errors.New("upstream: credentials rejected")

	// ErrUnreachable means the upstream could not be contacted, timed out,
	// or answered with an unexpected status.
	ErrUnreachable = errors.New("upstream: server unreachable")

	// ErrInvalidResponse means the upstream answered 200 but the body was
	// not the documented shape.
	ErrInvalidResponse = errors.New("upstream: invalid response")
)
