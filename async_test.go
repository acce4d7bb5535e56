package go24so

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func asyncBackendClient(t *testing.T, handler http.HandlerFunc) (*testBackend, *AsyncClient) {
	t.Helper()
	backend := newTestBackend(t, handler)
	return backend, NewAsyncFrom(backend.client(t))
}

func TestAsyncClientGet(t *testing.T) {
	_, async := asyncBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"id":"42","name":"Acme"}`)
	})

	future := async.Customers.Get(context.Background(), "42")
	customer, err := future.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if customer.Name != "Acme" {
		t.Errorf("Name = %q, want Acme", customer.Name)
	}
}

func TestAsyncFuturesRunConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int64
	_, async := asyncBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		jsonResponse(w, http.StatusOK, `{"id":"1"}`)
	})

	ctx := context.Background()
	futures := []*Future[*Customer]{
		async.Customers.Get(ctx, "1"),
		async.Customers.Get(ctx, "2"),
		async.Customers.Get(ctx, "3"),
	}
	for i, future := range futures {
		if _, err := future.Wait(ctx); err != nil {
			t.Fatalf("future %d error = %v", i, err)
		}
	}

	if peak.Load() < 2 {
		t.Errorf("peak concurrent requests = %d, want >= 2", peak.Load())
	}
}

func TestAsyncSharesCacheWithSyncClient(t *testing.T) {
	backend, async := asyncBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"id":"1","name":"Acme"}`)
	})
	ctx := context.Background()

	// Warm through the blocking surface, read through the async one.
	if _, err := async.Client().Customers.Get(ctx, "1"); err != nil {
		t.Fatalf("sync Get() error = %v", err)
	}
	if _, err := async.Customers.Get(ctx, "1").Wait(ctx); err != nil {
		t.Fatalf("async Get() error = %v", err)
	}

	if got := backend.apiRequests.Load(); got != 1 {
		t.Errorf("api requests = %d, want 1 (async read served from the shared cache)", got)
	}
}

func TestFutureWaitTimeout(t *testing.T) {
	release := make(chan struct{})
	_, async := asyncBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonResponse(w, http.StatusOK, `{}`)
	})
	// Registered after the backend so it runs before server.Close (cleanups are LIFO),
	// otherwise Close waits forever on the handler blocked in <-release.
	t.Cleanup(func() { close(release) })

	future := async.Customers.Get(context.Background(), "1")

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := future.Wait(waitCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}

	// The abandoned wait does not lose the result.
	select {
	case <-future.Done():
		t.Fatal("future resolved before the server replied")
	default:
	}
}

func TestAsyncErrorsPropagate(t *testing.T) {
	_, async := asyncBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusNotFound, `{"message":"gone"}`)
	})

	_, err := async.Customers.Get(context.Background(), "1").Wait(context.Background())
	if !IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestAsyncDeleteFuture(t *testing.T) {
	_, async := asyncBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if _, err := async.Customers.Delete(context.Background(), "1").Wait(context.Background()); err != nil {
		t.Errorf("Delete future error = %v", err)
	}
}

func TestAsyncValidationShortCircuits(t *testing.T) {
	async := NewAsync("id", "secret", "org-1", WithTimeout(-time.Second))
	if async.IsValid() {
		t.Fatal("IsValid() = true for a negative timeout")
	}

	_, err := async.Customers.Get(context.Background(), "1").Wait(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindValidation {
		t.Errorf("err = %v, want KindValidation", err)
	}
}
