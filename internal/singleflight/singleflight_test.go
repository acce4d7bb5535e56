package singleflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoSingleCaller(t *testing.T) {
	g := New()

	val, err, owner := g.Do("key", func() (any, error) {
		return "result", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if val != "result" {
		t.Errorf("val = %v, want result", val)
	}
	if !owner {
		t.Error("owner = false for the sole caller")
	}
}

func TestDoCoalescesConcurrentCallers(t *testing.T) {
	g := New()
	var executions atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	var owners atomic.Int64

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, owner := g.Do("key", func() (any, error) {
			executions.Add(1)
			close(started)
			<-release
			return 42, nil
		})
		if owner {
			owners.Add(1)
		}
	}()

	<-started
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err, owner := g.Do("key", func() (any, error) {
				executions.Add(1)
				return 42, nil
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			if val != 42 {
				t.Errorf("val = %v, want 42", val)
			}
			if owner {
				owners.Add(1)
			}
		}()
	}

	// Give the waiters a moment to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := executions.Load(); got != 1 {
		t.Errorf("executions = %d, want 1", got)
	}
	if got := owners.Load(); got != 1 {
		t.Errorf("owners = %d, want exactly 1", got)
	}
}

func TestDoPropagatesError(t *testing.T) {
	g := New()
	wantErr := errors.New("boom")

	_, err, _ := g.Do("key", func() (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestDoAllowsSequentialCalls(t *testing.T) {
	g := New()
	var executions int

	for i := 0; i < 3; i++ {
		_, _, owner := g.Do("key", func() (any, error) {
			executions++
			return nil, nil
		})
		if !owner {
			t.Errorf("call %d: owner = false", i)
		}
	}
	if executions != 3 {
		t.Errorf("executions = %d, want 3 (key released between calls)", executions)
	}
}

func TestDoDistinctKeys(t *testing.T) {
	g := New()
	var executions atomic.Int64

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _, _ = g.Do(key, func() (any, error) {
				executions.Add(1)
				return nil, nil
			})
		}(key)
	}
	wg.Wait()

	if got := executions.Load(); got != 3 {
		t.Errorf("executions = %d, want 3 for distinct keys", got)
	}
}
