package driver

import (
	"sync/atomic"

	"go.uber.org/zap"

	"bindforge/internal/bind"
	"bindforge/internal/emit"
	"bindforge/internal/layout"
	"bindforge/internal/verify"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the driver package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	logger.CompareAndSwap(nil, zap.NewNop())
	return logger.Load()
}

// SetLogger configures the driver's logger and hands named children of it
// to every stage package.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
	layout.SetLogger(l.Named("layout"))
	bind.SetLogger(l.Named("bind"))
	emit.SetLogger(l.Named("emit"))
	verify.SetLogger(l.Named("verify"))
}
