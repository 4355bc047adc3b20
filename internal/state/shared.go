package state

import "sync"

// Shared guards the state with a reader-writer lock. The scheduler is the
// only writer; workers, handlers and reflection read.
type Shared struct {
	mu sync.RWMutex
	s  *State
}

func NewShared(s *State) *Shared {
	return &Shared{s: s}
}

// Read runs fn under the read lock. fn must not keep s.
func (sh *Shared) Read(fn func(s *State)) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	fn(sh.s)
}

// Write runs fn under the write lock.
func (sh *Shared) Write(fn func(s *State)) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fn(sh.s)
}

// Swap replaces the whole state, as done after a snapshot load.
func (sh *Shared) Swap(s *State) {
	sh.mu.Lock()
	sh.s = s
	sh.mu.Unlock()
}
