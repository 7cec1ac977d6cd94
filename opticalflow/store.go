package opticalflow

import (
	"sort"
	"sync"
)

// Store is a time-ordered collection of frame results safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	frames []*FrameResult
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) search(ts int64) int {
	return sort.Search(len(s.frames), func(i int) bool { return s.frames[i].Timestamp >= ts })
}

// Insert adds fr, replacing any result with the same timestamp.
func (s *Store) Insert(fr *FrameResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.search(fr.Timestamp)
	if i < len(s.frames) && s.frames[i].Timestamp == fr.Timestamp {
		s.frames[i] = fr
		return
	}
	s.frames = append(s.frames, nil)
	copy(s.frames[i+1:], s.frames[i:])
	s.frames[i] = fr
}

// Get returns the result at exactly ts.
func (s *Store) Get(ts int64) (*FrameResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.search(ts)
	if i < len(s.frames) && s.frames[i].Timestamp == ts {
		return s.frames[i], true
	}
	return nil, false
}

// Len returns the number of frames.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Range calls fn, in timestamp order, for every frame with from <= timestamp < to while holding
// the read lock. fn must not call back into the store's write methods.
func (s *Store) Range(from, to int64, fn func(*FrameResult)) {
	if to <= from {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := s.search(from); i < len(s.frames) && s.frames[i].Timestamp < to; i++ {
		fn(s.frames[i])
	}
}
