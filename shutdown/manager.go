package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"spooktrunt/core"
	"spooktrunt/logging"

	"go.uber.org/zap"
)

// Manager coordinates graceful shutdown of the studio server.
//
// Background studio operations are started through Go so that Shutdown can
// wait for them; cleanup hooks run afterwards in priority order. The first
// SIGINT or SIGTERM cancels Context, a second one exits immediately.
//
// Usage:
//
//	manager := shutdown.NewManager(ctx, logger)
//	manager.Register("http", 0, srv.Shutdown)
//	manager.Start()
//	<-manager.Context().Done()
//	err := manager.Shutdown()
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration
	exit    func(code int)

	mu       sync.Mutex
	started  bool
	finished bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker *Tracker
	hooks   Hooks
	sigChan chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout bounds the whole shutdown sequence. Default is 60 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithExit replaces os.Exit for the forced-exit path.
func WithExit(exit func(code int)) ManagerOption {
	return func(m *Manager) {
		m.exit = exit
	}
}

// NewManager creates a Manager whose context derives from parent.
func NewManager(parent context.Context, logger *logging.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	m := &Manager{
		logger:  logger.Named("shutdown"),
		timeout: 60 * time.Second,
		exit:    os.Exit,
		ctx:     ctx,
		cancel:  cancel,
		tracker: NewTracker(),
		sigChan: make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled when shutdown begins. Background operations receive
// it, so provider calls are abandoned only when the process is stopping.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup hook. Lower priorities run first.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.hooks.Add(name, priority, fn)
	m.logger.Debug("registered shutdown hook",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// Go runs fn on a new goroutine as a tracked operation. It returns ErrClosed
// without running fn once shutdown has begun.
func (m *Manager) Go(name string, fn func(ctx context.Context)) error {
	if err := m.tracker.Begin(name); err != nil {
		m.logger.Debug("operation refused during shutdown", logging.Operation(name))
		return err
	}
	go func() {
		defer m.tracker.End(name)
		fn(m.ctx)
	}()
	return nil
}

// ActiveOperations returns the number of running tracked operations.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.Count()
}

// Start listens for SIGINT and SIGTERM. Calling Start again is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	gate := &signalGate{
		onFirst: func(sig os.Signal) {
			m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			m.cancel()
		},
		onForce: func(sig os.Signal) {
			m.logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
			_ = m.logger.Sync()
			m.exit(ExitCodeFor(sig))
		},
	}

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			gate.handle(sig)
		}
	}()
}

// Shutdown refuses new operations, waits for running ones and then runs the
// cleanup hooks within the remaining time. It is idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.finished {
		m.mu.Unlock()
		return nil
	}
	m.finished = true
	started := m.started
	m.mu.Unlock()

	start := time.Now()
	m.cancel()
	m.tracker.Close()

	if pending := m.tracker.Pending(); len(pending) > 0 {
		m.logger.Info("waiting for in-flight operations", zap.Strings("operations", pending))
	}
	if err := m.tracker.Drain(m.timeout); err != nil {
		m.logger.Warn("abandoning operations still running",
			zap.Strings("operations", m.tracker.Pending()),
			zap.Duration("waited", time.Since(start)))
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Info("running shutdown hooks", zap.Strings("hooks", m.hooks.Names()))
	err := m.hooks.Run(ctx)

	if started {
		signal.Stop(m.sigChan)
	}

	if err != nil {
		m.logger.Error("shutdown completed with errors", zap.Error(err), logging.Elapsed(start))
		return fmt.Errorf("shutdown: %w", err)
	}
	m.logger.Info("shutdown complete", logging.Elapsed(start))
	return nil
}

// ExitCodeFor maps a termination signal to the conventional exit code.
func ExitCodeFor(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeError
	}
}
