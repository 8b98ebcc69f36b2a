package capture

import (
	"context"
	"sync"
)

// Slot holds the most recent frame only. Putting a new frame replaces and
// releases the previous one, so a slow reader never causes a backlog.
type Slot struct {
	mu      sync.Mutex
	frame   *Frame
	notify  chan struct{}
	dropped uint64
}

// NewSlot creates an empty Slot.
func NewSlot() *Slot {
	return &Slot{notify: make(chan struct{})}
}

// Put stores f as the latest frame. The Slot takes ownership of f.
func (s *Slot) Put(f *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil {
		s.frame.Close()
		s.dropped++
	}
	s.frame = f

	close(s.notify)
	s.notify = make(chan struct{})
}

// Snapshot returns a copy of the latest frame, if there is one.
// The caller owns the returned frame.
func (s *Slot) Snapshot() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil, false
	}
	return s.frame.Clone(), true
}

// Wait blocks until a frame is available and returns a copy of it.
func (s *Slot) Wait(ctx context.Context) (*Frame, error) {
	for {
		s.mu.Lock()
		if s.frame != nil {
			f := s.frame.Clone()
			s.mu.Unlock()
			return f, nil
		}
		ch := s.notify
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Reset releases the stored frame and leaves the slot empty.
func (s *Slot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
}

// Dropped returns how many frames have been replaced by newer ones.
func (s *Slot) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
