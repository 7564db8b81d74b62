package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/ida/pkg/logger"
	"github.com/okian/ida/pkg/metrics"
)

// Safe runs draw and never lets its outcome reach the caller. Errors and
// panics are logged and counted per kind; computed results stay untouched.
func Safe(ctx context.Context, log logger.Logger, kind string, draw func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: panic: %v", ErrDraw, r)
			}
		}()
		return draw()
	}()

	switch {
	case err == nil:
		metrics.RecordRender(kind)
	case errors.Is(err, ErrNothingToDraw):
		log.Debug(ctx, "plot skipped", logger.String("kind", kind), logger.Error(err))
	default:
		metrics.RecordRenderFailure(kind)
		log.Warn(ctx, "plot rendering failed; results are unaffected",
			logger.String("kind", kind),
			logger.Error(err),
		)
	}
}
