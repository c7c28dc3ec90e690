package node

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSupervisorStopAllWaitsForTasks(t *testing.T) {
	sup := newSupervisor()
	var ran int32

	sup.spawn(context.Background(), "t1", func(ctx context.Context) {
		<-ctx.Done()
		atomic.AddInt32(&ran, 1)
	})
	sup.spawn(context.Background(), "t2", func(ctx context.Context) {
		<-ctx.Done()
		atomic.AddInt32(&ran, 1)
	})

	sup.stopAll()
	if got := atomic.LoadInt32(&ran); got != 2 {
		t.Fatalf("expected both tasks to observe cancellation, got %d", got)
	}
}

func TestSupervisorCancelSingleTask(t *testing.T) {
	sup := newSupervisor()
	done := make(chan struct{})
	id := sup.spawn(context.Background(), "t1", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})

	if !sup.cancel(id) {
		t.Fatalf("expected cancel to find the running task")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task did not observe cancellation")
	}
	time.Sleep(10 * time.Millisecond) // let the spawned goroutine's deferred cleanup run
	if sup.cancel(id) {
		t.Fatalf("expected second cancel of a finished task to report false")
	}
}
