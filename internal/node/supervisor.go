package node

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// supervisor tracks every long-running task the node spawns, giving each
// one a cancellation token (spec.md §5 "every long-running operation is
// cancellable") identified by a uuid so individual tasks can be cancelled
// by id as well as all together.
type supervisor struct {
	mu    sync.Mutex
	wg    sync.WaitGroup
	tasks map[uuid.UUID]context.CancelFunc
}

func newSupervisor() *supervisor {
	return &supervisor{tasks: make(map[uuid.UUID]context.CancelFunc)}
}

// spawn runs fn in its own goroutine under a child context derived from
// ctx, tracking it until fn returns or the task is cancelled.
func (s *supervisor) spawn(ctx context.Context, name string, fn func(ctx context.Context)) uuid.UUID {
	cctx, cancel := context.WithCancel(ctx)
	id := uuid.New()

	s.mu.Lock()
	s.tasks[id] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.remove(id)
		fn(cctx)
	}()
	return id
}

func (s *supervisor) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// cancel stops a single task by id, returning false if it had already
// finished.
func (s *supervisor) cancel(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.tasks[id]
	if !ok {
		return false
	}
	cancel()
	return true
}

// stopAll cancels every tracked task and waits for all of them to return,
// per spec.md §5's stop() ordering.
func (s *supervisor) stopAll() {
	s.mu.Lock()
	for _, cancel := range s.tasks {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
