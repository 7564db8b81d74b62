package api

import (
	"github.com/okian/ida/internal/adapters/source"
	"github.com/okian/ida/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithReader sets the reader used to decode uploaded datasets.
func WithReader(r *source.Reader) Option {
	return func(s *Server) {
		if r != nil {
			s.reader = r
		}
	}
}

// WithMaxUploadBytes caps the size of an uploaded dataset.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
