package mqtt

import "errors"

// ErrAckTimeout is returned when a resource does not acknowledge a work order
// in time.
var ErrAckTimeout = errors.New("timeout waiting for work order ack")
