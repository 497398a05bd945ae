// Package vmlog provides the shared logger used across the VM's
// subsystems. It defaults to a no-op logger so the engine is silent
// until an embedder opts in.
package vmlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
	mu         sync.Mutex
)

// L returns the shared logger instance.
func L() *zap.Logger {
	loggerOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// SetLogger installs the embedder-provided logger. Must be called before
// any subsystem has cached a reference via L(), ideally right after
// host.New.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	loggerOnce.Do(func() {})
	if l == nil {
		logger = zap.NewNop()
	} else {
		logger = l
	}
}
