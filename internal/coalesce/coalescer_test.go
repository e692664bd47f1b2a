package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_SingleCall(t *testing.T) {
	c := New[string, int]()
	got, err := c.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if c.InFlight() != 0 {
		t.Errorf("expected no flights after completion, got %d", c.InFlight())
	}
}

func TestDo_ConcurrentCallersShareOneInvocation(t *testing.T) {
	c := New[string, string]()
	var invocations atomic.Int32
	release := make(chan struct{})

	const callers = 20
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Do(context.Background(), "k", func(ctx context.Context) (string, error) {
				invocations.Add(1)
				<-release
				return "artifact", nil
			})
		}(i)
	}

	// Let all callers register before the work completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := invocations.Load(); n != 1 {
		t.Fatalf("expected exactly 1 work invocation, got %d", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error: %v", i, errs[i])
		}
		if results[i] != "artifact" {
			t.Errorf("caller %d got %q", i, results[i])
		}
	}
}

func TestDo_NotACache(t *testing.T) {
	c := New[string, int]()
	var invocations atomic.Int32
	work := func(ctx context.Context) (int, error) {
		return int(invocations.Add(1)), nil
	}

	first, _ := c.Do(context.Background(), "k", work)
	second, _ := c.Do(context.Background(), "k", work)
	if first != 1 || second != 2 {
		t.Errorf("expected work to run per call when not concurrent, got %d then %d", first, second)
	}
}

func TestDo_DistinctKeysRunIndependently(t *testing.T) {
	c := New[string, string]()
	var invocations atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _ = c.Do(context.Background(), key, func(ctx context.Context) (string, error) {
				invocations.Add(1)
				<-release
				return key, nil
			})
		}(key)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := invocations.Load(); n != 2 {
		t.Errorf("expected one invocation per key, got %d", n)
	}
}

func TestDo_ErrorFansOut(t *testing.T) {
	c := New[string, int]()
	wantErr := errors.New("build failed")
	release := make(chan struct{})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
				<-release
				return 0, wantErr
			})
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("caller %d expected build error, got %v", i, err)
		}
	}
}

func TestDo_CancelledCallerDoesNotCancelSharedWork(t *testing.T) {
	c := New[string, string]()
	release := make(chan struct{})
	workCancelled := make(chan struct{}, 1)

	work := func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			workCancelled <- struct{}{}
			return "", ctx.Err()
		}
	}

	// First caller will be cancelled; second keeps waiting.
	cancelCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var firstErr, secondErr error
	var secondVal string

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Do(cancelCtx, "k", work)
	}()
	time.Sleep(20 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		secondVal, secondErr = c.Do(context.Background(), "k", work)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	select {
	case <-workCancelled:
		t.Fatal("work was cancelled while a waiter was still active")
	default:
	}

	close(release)
	wg.Wait()

	if !errors.Is(firstErr, context.Canceled) {
		t.Errorf("cancelled caller expected context.Canceled, got %v", firstErr)
	}
	if secondErr != nil {
		t.Fatalf("surviving waiter error: %v", secondErr)
	}
	if secondVal != "done" {
		t.Errorf("surviving waiter got %q", secondVal)
	}
}

func TestDo_LastWaiterCancelsWork(t *testing.T) {
	c := New[string, string]()
	workCancelled := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Do(ctx, "k", func(workCtx context.Context) (string, error) {
			<-workCtx.Done()
			close(workCancelled)
			return "", workCtx.Err()
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-workCancelled:
	case <-time.After(time.Second):
		t.Fatal("work context was not cancelled after the last waiter left")
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	// The key must be reusable after the aborted flight.
	got, err := c.Do(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || got != "fresh" {
		t.Errorf("expected fresh run after abort, got %q, %v", got, err)
	}
}
