package scan

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/detector"
)

// MinObjects is how many distinct objects a scan needs before the user may
// continue to the quiz.
const MinObjects = 5

// Update reports a change to the detected object set.
type Update struct {
	Added      []string `json:"added"`
	Objects    []string `json:"objects"`
	CanProceed bool     `json:"can_proceed"`
}

// Stats counts what happened to submitted frames.
type Stats struct {
	Submitted  uint64 `json:"submitted"`
	Replaced   uint64 `json:"replaced"`
	Throttled  uint64 `json:"throttled"`
	Classified uint64 `json:"classified"`
	Failed     uint64 `json:"failed"`
	Discarded  uint64 `json:"discarded"`
}

// Options configures a Session.
type Options struct {
	// Interval is the minimum spacing between classifications.
	Interval time.Duration

	// Orientation supplies the device orientation for each classification.
	// Nil means upright.
	Orientation capture.OrientationSource

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Session accumulates distinct object labels from a stream of frames.
//
// Frames are handed over through a single-slot mailbox: a frame submitted
// while a classification is running replaces any frame still waiting, so
// classification never backs up frame delivery.
type Session struct {
	classifier  detector.Classifier
	throttler   *Throttler
	orientation capture.OrientationSource
	now         func() time.Time

	mu      sync.Mutex
	live    bool
	started bool
	stopped bool
	pending *capture.Frame
	objects map[string]struct{}
	stats   Stats

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	updates  chan Update
	done     chan struct{}
}

// NewSession creates a session classifying frames with classifier.
func NewSession(classifier detector.Classifier, opts Options) *Session {
	if opts.Interval == 0 {
		opts.Interval = ScanInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		classifier:  classifier,
		throttler:   NewThrottler(opts.Interval),
		orientation: opts.Orientation,
		now:         opts.Now,
		objects:     make(map[string]struct{}),
		wake:        make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		updates:     make(chan Update, 1),
		done:        make(chan struct{}),
	}
}

// Start launches the detection goroutine. It runs until Stop is called or
// ctx is cancelled. Only the first call has any effect, and a stopped
// session cannot be restarted.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.live = true
	s.mu.Unlock()

	go s.run(ctx)
}

// SubmitFrame hands f to the detection goroutine. It never blocks. The
// session takes ownership of f.
func (s *Session) SubmitFrame(f *capture.Frame) {
	s.mu.Lock()
	if !s.live {
		s.mu.Unlock()
		f.Close()
		return
	}

	s.stats.Submitted++
	if s.pending != nil {
		s.pending.Close()
		s.stats.Replaced++
	}
	s.pending = f
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop ends the session. A classification already running may finish but
// its result is discarded. Stop does not wait; use Done for that.
func (s *Session) Stop() {
	s.mu.Lock()
	s.live = false
	s.stopped = true
	if s.pending != nil {
		s.pending.Close()
		s.pending = nil
	}
	started := s.started
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		close(s.stopCh)
		if !started {
			close(s.updates)
			close(s.done)
		}
	})
}

// Done is closed once the detection goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Updates delivers object set changes. Only the latest undelivered update
// is kept. The channel is closed when the session ends.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Live reports whether the session still accepts results.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Objects returns the detected objects in sorted order.
func (s *Session) Objects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedObjectsLocked()
}

// CanProceed reports whether enough objects have been found.
func (s *Session) CanProceed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects) >= MinObjects
}

// Stats returns a copy of the frame counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) sortedObjectsLocked() []string {
	objects := make([]string, 0, len(s.objects))
	for o := range s.objects {
		objects = append(objects, o)
	}
	sort.Strings(objects)
	return objects
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)
	defer s.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.wake:
			s.mu.Lock()
			f := s.pending
			s.pending = nil
			s.mu.Unlock()

			if f != nil {
				s.detect(ctx, f)
			}
		}
	}
}

// detect classifies one frame and merges the result.
func (s *Session) detect(ctx context.Context, f *capture.Frame) {
	defer f.Close()

	if !s.throttler.Admit(s.now()) {
		s.mu.Lock()
		s.stats.Throttled++
		s.mu.Unlock()
		return
	}

	orientation := capture.ImageUp
	if s.orientation != nil {
		orientation = capture.ImageOrientationFor(s.orientation.Orientation())
	}

	candidates, err := s.classifier.Classify(ctx, &f.Mat, orientation)
	if err != nil {
		s.mu.Lock()
		s.stats.Failed++
		first := s.stats.Failed == 1
		s.mu.Unlock()
		if first {
			log.Printf("Error classifying frame: %v", err)
		}
		return
	}

	labels := Sanitize(Labels(FilterCandidates(candidates, MinConfidence, MaxCandidates)))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live {
		s.stats.Discarded++
		return
	}
	s.stats.Classified++

	var added []string
	for _, l := range labels {
		if _, ok := s.objects[l]; ok {
			continue
		}
		s.objects[l] = struct{}{}
		added = append(added, l)
	}
	if len(added) == 0 {
		return
	}

	s.publishLocked(Update{
		Added:      added,
		Objects:    s.sortedObjectsLocked(),
		CanProceed: len(s.objects) >= MinObjects,
	})
}

// publishLocked replaces any undelivered update with u. Only the detection
// goroutine sends, so the drain-then-send cannot race another sender.
func (s *Session) publishLocked(u Update) {
	select {
	case s.updates <- u:
		return
	default:
	}

	select {
	case <-s.updates:
	default:
	}
	s.updates <- u
}
