package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerRunsEventsInPostOrder(t *testing.T) {
	w := NewWorker(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		w.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	w.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 20 {
		t.Fatalf("expected 20 events run, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d (single producer must be FIFO)", i, v, i)
		}
	}
}

func TestWorkerWaitBlocksUntilDrained(t *testing.T) {
	w := NewWorker(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	var ran int32
	w.Post(func() {
		time.Sleep(10 * time.Millisecond)
		atomic.StoreInt32(&ran, 1)
	})
	w.Wait()

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("Wait returned before the posted event ran")
	}
}

func TestWorkerContainsPanics(t *testing.T) {
	w := NewWorker(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	w.Post(func() { panic("boom") })

	var ran int32
	w.Post(func() { atomic.StoreInt32(&ran, 1) })
	w.Wait()

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("worker loop died after a panicking event")
	}
}

func TestWorkerDrainsOnCancel(t *testing.T) {
	w := NewWorker(nil, 4)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	var ran int32
	w.Post(func() { atomic.AddInt32(&ran, 1) })
	w.Post(func() { atomic.AddInt32(&ran, 1) })
	cancel()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not shut down after cancel")
	}
	if atomic.LoadInt32(&ran) != 2 {
		t.Fatalf("ran = %d, want 2 (queued events must drain on shutdown)", ran)
	}
}
