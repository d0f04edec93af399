package cipher

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCacheResolvesOnce(t *testing.T) {
	var c Cache
	var calls int32

	resolve := func() (*Manifest, error) {
		atomic.AddInt32(&calls, 1)
		return &Manifest{SignatureTimestamp: "19000", Operations: []Operation{Reverse()}}, nil
	}

	m1, err := c.GetOrResolve(resolve)
	if err != nil {
		t.Fatalf("GetOrResolve() error: %v", err)
	}
	m2, err := c.GetOrResolve(resolve)
	if err != nil {
		t.Fatalf("GetOrResolve() error: %v", err)
	}
	if m1 != m2 {
		t.Error("expected the same manifest instance on repeat calls")
	}
	if calls != 1 {
		t.Errorf("resolve called %d times, want 1", calls)
	}
}

func TestCacheConcurrentCallersShareOneResolution(t *testing.T) {
	var c Cache
	var calls int32
	gate := make(chan struct{})

	resolve := func() (*Manifest, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return &Manifest{SignatureTimestamp: "19000"}, nil
	}

	const workers = 16
	results := make([]*Manifest, workers)
	var wg sync.WaitGroup
	var started sync.WaitGroup
	wg.Add(workers)
	started.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			started.Done()
			m, err := c.GetOrResolve(resolve)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = m
		}(i)
	}
	started.Wait()
	close(gate)
	wg.Wait()

	if calls != 1 {
		t.Errorf("resolve called %d times under contention, want 1", calls)
	}
	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d got a different manifest instance", i)
		}
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	var c Cache
	var calls int32
	resolveErr := errors.New("fetch failed")

	failing := func() (*Manifest, error) {
		atomic.AddInt32(&calls, 1)
		return nil, resolveErr
	}

	if _, err := c.GetOrResolve(failing); !errors.Is(err, resolveErr) {
		t.Fatalf("expected resolve error, got %v", err)
	}
	if _, err := c.GetOrResolve(failing); !errors.Is(err, resolveErr) {
		t.Fatalf("expected resolve error on retry, got %v", err)
	}
	if calls != 2 {
		t.Errorf("resolve called %d times, want 2 (failures must not be cached)", calls)
	}

	m, err := c.GetOrResolve(func() (*Manifest, error) {
		return &Manifest{SignatureTimestamp: "19000"}, nil
	})
	if err != nil || m == nil {
		t.Fatalf("expected successful resolve after failures, got %v, %v", m, err)
	}
}

func TestCacheInvalidate(t *testing.T) {
	var c Cache
	var calls int32

	resolve := func() (*Manifest, error) {
		n := atomic.AddInt32(&calls, 1)
		return &Manifest{SignatureTimestamp: "1900" + string(rune('0'+n))}, nil
	}

	m1, _ := c.GetOrResolve(resolve)
	c.Invalidate()
	m2, _ := c.GetOrResolve(resolve)

	if calls != 2 {
		t.Errorf("resolve called %d times, want 2 after Invalidate", calls)
	}
	if m1 == m2 {
		t.Error("expected a fresh manifest after Invalidate")
	}
}
