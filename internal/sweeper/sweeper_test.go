package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubPayments struct {
	sweeps int64
	err    error
}

func (s *stubPayments) SweepExpired(ctx context.Context) (int, error) {
	atomic.AddInt64(&s.sweeps, 1)
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	payments := &stubPayments{}
	sweeper := New(payments, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for atomic.LoadInt64(&payments.sweeps) < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not tick in time")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}

func TestSweeperKeepsTickingAfterErrors(t *testing.T) {
	payments := &stubPayments{err: errors.New("db is down")}
	sweeper := New(payments, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for atomic.LoadInt64(&payments.sweeps) < 3 {
		select {
		case <-deadline:
			t.Fatal("sweeper stopped ticking after an error")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}
