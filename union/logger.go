package union

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/region-runtime/errors"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the union package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the union package's logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

func fatal(err *errors.Error) {
	Logger().Error(err.Error(),
		zap.String("phase", string(err.Phase)),
		zap.String("kind", string(err.Kind)),
		zap.String("type", err.TypeName))
	panic(err)
}
