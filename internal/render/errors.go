package render

import "errors"

// Sentinel kinds for render errors.
var (
	ErrNothingToDraw = errors.New("nothing to draw")
	ErrDraw          = errors.New("draw failed")
)
