package region

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/region-runtime/errors"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the region package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the region package's logger.
// This must be called before any region operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// fatal logs the fault and aborts the current operation.
func fatal(err *errors.Error) {
	fields := []zap.Field{
		zap.String("phase", string(err.Phase)),
		zap.String("kind", string(err.Kind)),
	}
	if err.Region != "" {
		fields = append(fields, zap.String("region", err.Region))
		if err.HasDepth {
			fields = append(fields, zap.Uint32("depth", err.Depth))
		}
	}
	Logger().Error(err.Error(), fields...)
	panic(err)
}
