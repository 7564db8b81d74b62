package service

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoAnalyses      = errors.New("no analyses requested")
	ErrUnknownAnalysis = errors.New("unknown analysis")
)
