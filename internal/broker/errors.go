package broker

import "errors"

// Sentinel errors for the broker's fatal input paths. Wrap with %w when
// adding context so callers can still errors.Is against these.
var (
	ErrConfig       = errors.New("broker: invalid config")
	ErrInvalidOrder = errors.New("broker: invalid order")
)
