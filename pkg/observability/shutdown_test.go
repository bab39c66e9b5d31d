package observability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestNewShutdownManager(t *testing.T) {
	logger := NewLogger(InfoLevel, nil)

	t.Run("with explicit timeout", func(t *testing.T) {
		sm := NewShutdownManager(logger, nil, 10*time.Second)
		if sm.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout = %v, want 10s", sm.shutdownTimeout)
		}
	})

	t.Run("zero timeout falls back to default", func(t *testing.T) {
		sm := NewShutdownManager(logger, nil, 0)
		if sm.shutdownTimeout != 30*time.Second {
			t.Errorf("timeout = %v, want 30s default", sm.shutdownTimeout)
		}
	})
}

func TestRegisterShutdownFunc(t *testing.T) {
	logger := NewLogger(InfoLevel, nil)
	sm := NewShutdownManager(logger, nil, time.Second)

	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })

	if len(sm.shutdownFuncs) != 2 {
		t.Errorf("registered %d funcs, want 2", len(sm.shutdownFuncs))
	}
}

func TestRegisterShutdownFunc_Concurrent(t *testing.T) {
	logger := NewLogger(InfoLevel, nil)
	sm := NewShutdownManager(logger, nil, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	if len(sm.shutdownFuncs) != 20 {
		t.Errorf("registered %d funcs, want 20", len(sm.shutdownFuncs))
	}
}

// WaitForShutdown blocks on a signal, so these tests deliver SIGTERM to the
// test process itself.
func TestWaitForShutdown(t *testing.T) {
	t.Run("runs registered funcs on SIGTERM", func(t *testing.T) {
		logger := NewLogger(InfoLevel, nil)
		sm := NewShutdownManager(logger, nil, 5*time.Second)

		var ran int32
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})

		errCh := make(chan error, 1)
		go func() { errCh <- sm.WaitForShutdown() }()

		// Give WaitForShutdown time to install its signal handler
		time.Sleep(100 * time.Millisecond)
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
			t.Fatalf("failed to send signal: %v", err)
		}

		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("WaitForShutdown() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("WaitForShutdown did not return")
		}

		if atomic.LoadInt32(&ran) != 2 {
			t.Errorf("ran %d shutdown funcs, want 2", ran)
		}
	})

	t.Run("reports shutdown func errors", func(t *testing.T) {
		logger := NewLogger(InfoLevel, nil)
		sm := NewShutdownManager(logger, nil, 5*time.Second)
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			return errors.New("close failed")
		})

		errCh := make(chan error, 1)
		go func() { errCh <- sm.WaitForShutdown() }()

		time.Sleep(100 * time.Millisecond)
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
			t.Fatalf("failed to send signal: %v", err)
		}

		select {
		case err := <-errCh:
			if err == nil {
				t.Error("expected error from failing shutdown func")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("WaitForShutdown did not return")
		}
	})
}
