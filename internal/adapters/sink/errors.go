package sink

import "errors"

// Sentinel errors for result sinks.
var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrWrite             = errors.New("write output")
)
