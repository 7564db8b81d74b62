package deviation

import "errors"

// ErrColumnConflict is returned when the deviation column would overwrite the
// identifier, nominal or actual column.
var ErrColumnConflict = errors.New("deviation: column conflicts with an input column")
