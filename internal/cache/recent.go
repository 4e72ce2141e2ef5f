// Package cache holds small in-process caches shared between workers.
package cache

import (
	"container/list"
	"sync"
)

// RecentSet is a bounded FIFO set of recently seen keys. Once the set is
// full the oldest key is evicted on every insert. Membership is
// best-effort by construction: a key older than the last `capacity`
// inserts is forgotten.
type RecentSet struct {
	mu       sync.RWMutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

// NewRecentSet creates a RecentSet holding at most capacity keys.
func NewRecentSet(capacity int) *RecentSet {
	if capacity < 1 {
		capacity = 1
	}
	return &RecentSet{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Contains reports whether key is currently in the set.
func (s *RecentSet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// Add inserts key, evicting the oldest entry when the set is full.
// Re-adding an existing key does not change its position.
func (s *RecentSet) Add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(key)
}

// CheckAndAdd atomically tests membership and, when absent, reserves the
// key. It returns true when the key was already present. Callers use the
// reservation to suppress duplicate work racing on the same key.
func (s *RecentSet) CheckAndAdd(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return true
	}
	s.add(key)
	return false
}

// Len reports the number of keys currently held.
func (s *RecentSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *RecentSet) add(key string) {
	if _, ok := s.items[key]; ok {
		return
	}
	for s.order.Len() >= s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(string))
	}
	s.items[key] = s.order.PushBack(key)
}
