// SPDX-License-Identifier: MPL-2.0

package cmdserver

import "sync"

type (
	// Worker is one listener incarnation. Run blocks until the incarnation
	// ends; ForceClose may be called from any goroutine to make Run return.
	Worker interface {
		Run()
		ForceClose()
	}

	// WorkerFactory builds a fresh incarnation for each spawn.
	WorkerFactory func() Worker

	// slot holds at most one live worker and its completion signal.
	slot struct {
		mu   sync.Mutex
		w    Worker
		done chan struct{}
	}
)

func (s *slot) spawn(w Worker) {
	done := make(chan struct{})
	s.mu.Lock()
	s.w, s.done = w, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		w.Run()
	}()
}

// forceClose unblocks the current worker. It is a no-op on an empty slot.
func (s *slot) forceClose() {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	if w != nil {
		w.ForceClose()
	}
}

// join waits for the current worker to return and empties the slot.
func (s *slot) join() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}

	<-done

	s.mu.Lock()
	if s.done == done {
		s.w, s.done = nil, nil
	}
	s.mu.Unlock()
}

func (s *slot) occupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w != nil
}
