// Package shutdown turns SIGINT/SIGTERM into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"photo-cleaner/internal/logger"
)

type Manager struct {
	logger logger.Logger
	mu     sync.Mutex
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	stop   func()
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		logger: log,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		stop:   func() {},
	}
}

// Listen starts shutdown on the first interrupt or termination signal.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	m.mu.Lock()
	m.stop = func() { signal.Stop(sigChan) }
	m.mu.Unlock()

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

// Shutdown stops listening and cancels the context. Later calls are no-ops.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}

	m.stop()
	m.cancel()
}

func (m *Manager) Context() context.Context {
	return m.ctx
}
