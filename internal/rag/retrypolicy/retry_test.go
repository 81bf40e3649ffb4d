package retrypolicy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	p := New(3, time.Millisecond, 10*time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDo_RecoversAfterFailures(t *testing.T) {
	p := New(3, time.Millisecond, 10*time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected recovery on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	p := New(3, time.Millisecond, 10*time.Millisecond)

	calls := 0
	wantErr := errors.New("permanent")
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected last error back, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected exactly MaxAttempts calls, got %d", calls)
	}
}

func TestDo_ContextCancelStopsRetrying(t *testing.T) {
	p := New(5, time.Second, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	start := time.Now()
	err := p.Do(ctx, "op", func() error {
		calls++
		return errors.New("failing")
	})

	if err == nil {
		t.Fatal("Expected error from cancelled retry loop")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", calls)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Cancelled retry loop should return immediately, not sleep")
	}
}

func TestNew_ClampsAttempts(t *testing.T) {
	p := New(0, time.Millisecond, time.Millisecond)
	if p.MaxAttempts != 1 {
		t.Errorf("Expected MaxAttempts clamped to 1, got %d", p.MaxAttempts)
	}
}
