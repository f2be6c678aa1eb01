package device

import "errors"

// ErrNotFound is returned by the store when a device ID does not exist.
// Operation results returned to callers use the result package taxonomy
// instead.
var ErrNotFound = errors.New("device: not found")
