package structure

import "errors"

// ErrNoVariables is returned when no structural or no outcome variable is named.
var ErrNoVariables = errors.New("structure: structural and outcome variables are required")
