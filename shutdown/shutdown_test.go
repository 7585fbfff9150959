package shutdown

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"spooktrunt/core"
	"spooktrunt/logging"

	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	return NewManager(context.Background(), logging.NewFromZap(zaptest.NewLogger(t)), opts...)
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	if err := tr.Begin("summon"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Begin("summon"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Begin("analyze"); err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(tr.Pending(), ","); got != "analyze,summon,summon" {
		t.Errorf("Pending() = %s", got)
	}
	if tr.Count() != 3 {
		t.Errorf("Count() = %d, want 3", tr.Count())
	}

	tr.Close()
	if err := tr.Begin("revive"); !errors.Is(err, ErrClosed) {
		t.Errorf("Begin() after Close = %v, want ErrClosed", err)
	}

	if err := tr.Drain(10 * time.Millisecond); !errors.Is(err, ErrDrainTimeout) {
		t.Errorf("Drain() = %v, want ErrDrainTimeout", err)
	}

	go func() {
		tr.End("summon")
		tr.End("summon")
		tr.End("analyze")
	}()
	if err := tr.Drain(5 * time.Second); err != nil {
		t.Errorf("Drain() = %v", err)
	}
	if tr.Count() != 0 || len(tr.Pending()) != 0 {
		t.Error("tracker not empty after drain")
	}
}

func TestTracker_DrainEmpty(t *testing.T) {
	if err := NewTracker().Drain(time.Millisecond); err != nil {
		t.Errorf("Drain() on empty tracker = %v", err)
	}
}

func TestHooks_Order(t *testing.T) {
	var h Hooks
	var order []string
	add := func(name string, priority int) {
		h.Add(name, priority, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	add("logs", 30)
	add("http", 0)
	add("sessions", 10)
	add("sockets", 10)

	want := "http,sessions,sockets,logs"
	if got := strings.Join(h.Names(), ","); got != want {
		t.Errorf("Names() = %s, want %s", got, want)
	}
	if err := h.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != want {
		t.Errorf("run order = %s, want %s", got, want)
	}

	add("late", 0)
	if err := h.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(order) != 4 {
		t.Error("Run should be idempotent and ignore late hooks")
	}
}

func TestHooks_ErrorsJoined(t *testing.T) {
	var h Hooks
	errA, errB := errors.New("a failed"), errors.New("b failed")
	ran := 0
	h.Add("a", 0, func(ctx context.Context) error { ran++; return errA })
	h.Add("ok", 1, func(ctx context.Context) error { ran++; return nil })
	h.Add("b", 2, func(ctx context.Context) error { ran++; return errB })

	err := h.Run(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Run() = %v, want both errors", err)
	}
	if ran != 3 {
		t.Errorf("ran %d hooks, want 3", ran)
	}
}

func TestSignalGate(t *testing.T) {
	var first, forced int
	g := &signalGate{
		onFirst: func(os.Signal) { first++ },
		onForce: func(os.Signal) { forced++ },
	}
	g.handle(os.Interrupt)
	if first != 1 || forced != 0 {
		t.Fatalf("after one signal: first=%d forced=%d", first, forced)
	}
	if n := g.handle(syscall.SIGTERM); n != 2 {
		t.Errorf("handle() = %d, want 2", n)
	}
	if first != 1 || forced != 1 {
		t.Errorf("after two signals: first=%d forced=%d", first, forced)
	}
}

func TestExitCodeFor(t *testing.T) {
	if ExitCodeFor(os.Interrupt) != core.ExitCodeSIGINT {
		t.Error("SIGINT code")
	}
	if ExitCodeFor(syscall.SIGTERM) != core.ExitCodeSIGTERM {
		t.Error("SIGTERM code")
	}
	if ExitCodeFor(syscall.SIGHUP) != core.ExitCodeError {
		t.Error("other signal code")
	}
}

func TestManager_GoAndShutdown(t *testing.T) {
	m := newTestManager(t, WithTimeout(5*time.Second))

	release := make(chan struct{})
	var finished atomic.Bool
	var sawCancel atomic.Bool
	if err := m.Go("summon", func(ctx context.Context) {
		<-release
		sawCancel.Store(ctx.Err() != nil)
		finished.Store(true)
	}); err != nil {
		t.Fatal(err)
	}
	if m.ActiveOperations() != 1 {
		t.Errorf("ActiveOperations() = %d", m.ActiveOperations())
	}

	var hookRan atomic.Bool
	m.Register("http", 0, func(ctx context.Context) error {
		if !finished.Load() {
			t.Error("hook ran before in-flight operation finished")
		}
		hookRan.Store(true)
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Shutdown(); err != nil {
			t.Errorf("Shutdown() = %v", err)
		}
	}()

	<-m.Context().Done()
	close(release)
	wg.Wait()

	if !hookRan.Load() {
		t.Error("hook did not run")
	}
	if !sawCancel.Load() {
		t.Error("operation context was not cancelled at shutdown")
	}
	if err := m.Go("revive", func(context.Context) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Go() after shutdown = %v, want ErrClosed", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
}

func TestManager_ShutdownHookError(t *testing.T) {
	m := newTestManager(t)
	boom := errors.New("boom")
	m.Register("broken", 0, func(ctx context.Context) error { return boom })

	if err := m.Shutdown(); !errors.Is(err, boom) {
		t.Errorf("Shutdown() = %v, want wrapped boom", err)
	}
}

func TestManager_DrainTimeout(t *testing.T) {
	m := newTestManager(t, WithTimeout(20*time.Millisecond))
	block := make(chan struct{})
	defer close(block)
	_ = m.Go("stuck", func(context.Context) { <-block })

	start := time.Now()
	if err := m.Shutdown(); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("Shutdown did not honor the timeout")
	}
}

func TestManager_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, nil)
	cancel()
	select {
	case <-m.Context().Done():
	case <-time.After(time.Second):
		t.Error("manager context did not follow parent")
	}
}
