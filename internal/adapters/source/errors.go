package source

import "errors"

// Sentinel errors for dataset sources.
var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrRead              = errors.New("read dataset")
	ErrSheetNotFound     = errors.New("sheet not found")
)
