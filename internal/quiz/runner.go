package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/detector"
	"github.com/ayusman/lingolens/internal/lang"
	"github.com/ayusman/lingolens/internal/llm"
	"github.com/ayusman/lingolens/internal/scan"
)

// DefaultRetryDelay is how long a failed attempt is shown before the
// learner may try again.
const DefaultRetryDelay = 1800 * time.Millisecond

var (
	ErrNoItems     = errors.New("quiz has no items")
	ErrFinished    = errors.New("quiz is finished")
	ErrNotAnswered = errors.New("current item is neither matched nor revealed")
	ErrThrottled   = errors.New("attempt throttled")
	ErrNoFrame     = errors.New("no camera frame available")
	ErrStale       = errors.New("result belongs to a previous item")
	ErrUnknownSlot = errors.New("unknown sentence slot")
	ErrClosed      = errors.New("quiz is closed")
)

// SentenceSource produces example sentences.
type SentenceSource interface {
	BilingualSentence(ctx context.Context, word string, l lang.Language) (llm.Sentence, bool)
}

// Slot names one of the three independent sentence caches of an item.
type Slot int

const (
	SlotHint Slot = iota
	SlotSuccess
	SlotReveal
	numSlots
)

var slotNames = [numSlots]string{"hint", "success", "reveal"}

func (s Slot) String() string {
	if s >= 0 && s < numSlots {
		return slotNames[s]
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// ParseSlot resolves a slot by name.
func ParseSlot(name string) (Slot, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
}

// SentenceState is one sentence cache. Unavailable is set when the last
// load finished without a usable sentence.
type SentenceState struct {
	Loading     bool          `json:"loading"`
	Sentence    *llm.Sentence `json:"sentence,omitempty"`
	Unavailable bool          `json:"unavailable"`
}

// Result is the outcome of one item.
type Result struct {
	Item     Item `json:"item"`
	Matched  bool `json:"matched"`
	Revealed bool `json:"revealed"`
}

// Progress is returned by Advance.
type Progress struct {
	Index int  `json:"index"`
	Score int  `json:"score"`
	Done  bool `json:"done"`
}

// State is a consistent snapshot of a running quiz.
type State struct {
	Index       int                      `json:"index"`
	Total       int                      `json:"total"`
	Score       int                      `json:"score"`
	Done        bool                     `json:"done"`
	ItemID      string                   `json:"item_id,omitempty"`
	Word        string                   `json:"word,omitempty"`
	Answer      string                   `json:"answer,omitempty"`
	Attempt     AttemptState             `json:"attempt"`
	Locked      bool                     `json:"locked"`
	Revealed    bool                     `json:"revealed"`
	CanContinue bool                     `json:"can_continue"`
	Sentences   map[string]SentenceState `json:"sentences,omitempty"`
}

// Options configures a Runner.
type Options struct {
	Language lang.Language

	// Interval is the minimum spacing between attempts. Zero selects
	// scan.HuntInterval; a negative value disables throttling.
	Interval time.Duration

	// RetryDelay is how long Failure is held before returning to Ready.
	RetryDelay time.Duration

	// Orientation supplies the device orientation for each attempt.
	Orientation capture.OrientationSource

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Runner sequences quiz items and owns all quiz state. Every asynchronous
// result captures the item index it was issued for and is applied only if
// the runner is still on that item.
type Runner struct {
	classifier  detector.Classifier
	sentences   SentenceSource
	language    lang.Language
	throttler   *scan.Throttler
	retryDelay  time.Duration
	orientation capture.OrientationSource
	now         func() time.Time

	mu      sync.Mutex
	items   []Item
	index   int
	score   int
	hunt    Hunt
	results []Result
	slots   [numSlots]SentenceState
	retry   *time.Timer
	closed  bool

	inflight sync.WaitGroup
}

// NewRunner creates a runner over items, which must not be empty.
func NewRunner(items []Item, classifier detector.Classifier, sentences SentenceSource, opts Options) (*Runner, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if opts.Language == "" {
		opts.Language = lang.Default
	}
	if opts.Interval == 0 {
		opts.Interval = scan.HuntInterval
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	results := make([]Result, len(items))
	for i, it := range items {
		results[i] = Result{Item: it}
	}

	return &Runner{
		classifier:  classifier,
		sentences:   sentences,
		language:    opts.Language,
		throttler:   scan.NewThrottler(opts.Interval),
		retryDelay:  opts.RetryDelay,
		orientation: opts.Orientation,
		now:         opts.Now,
		items:       append([]Item(nil), items...),
		results:     results,
	}, nil
}

func (r *Runner) finishedLocked() bool {
	return r.index >= len(r.items)
}

// Attempt classifies frame and checks it against the current item. The
// caller keeps ownership of frame. It returns the attempt state after the
// result was applied.
func (r *Runner) Attempt(ctx context.Context, frame *capture.Frame) (AttemptState, error) {
	if frame == nil {
		return Ready, ErrNoFrame
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Ready, ErrClosed
	}
	if r.finishedLocked() {
		r.mu.Unlock()
		return Ready, ErrFinished
	}
	if err := r.hunt.check(); err != nil {
		state := r.hunt.State()
		r.mu.Unlock()
		return state, err
	}
	if !r.throttler.Admit(r.now()) {
		state := r.hunt.State()
		r.mu.Unlock()
		return state, ErrThrottled
	}
	token, err := r.hunt.Begin()
	if err != nil {
		state := r.hunt.State()
		r.mu.Unlock()
		return state, err
	}
	index := r.index
	target := r.items[index].CorrectEnglish
	r.mu.Unlock()

	orientation := capture.ImageUp
	if r.orientation != nil {
		orientation = capture.ImageOrientationFor(r.orientation.Orientation())
	}

	matched := false
	candidates, err := r.classifier.Classify(ctx, &frame.Mat, orientation)
	if err == nil {
		labels := scan.Labels(scan.FilterCandidates(candidates, scan.MinConfidence, scan.MaxCandidates))
		matched = IsMatch(labels, target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return r.hunt.State(), ErrClosed
	}
	if r.index != index || !r.hunt.Finish(token, matched) {
		return r.hunt.State(), ErrStale
	}

	if matched {
		r.score++
		r.results[index].Matched = true
		r.loadSentenceLocked(SlotSuccess)
		return Success, nil
	}

	r.retry = time.AfterFunc(r.retryDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.index == index {
			r.hunt.Recover(token)
		}
	})
	return Failure, nil
}

// Reveal shows the answer for the current item and enables Advance.
func (r *Runner) Reveal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.finishedLocked() {
		return ErrFinished
	}
	if err := r.hunt.Reveal(); err != nil {
		return err
	}
	r.stopRetryLocked()
	r.results[r.index].Revealed = true
	r.loadSentenceLocked(SlotReveal)
	return nil
}

// Advance moves to the next item. On the last item the quiz ends and the
// final score is reported. Otherwise the hunt and all sentence slots are
// reset in one step.
func (r *Runner) Advance() (Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Progress{Index: r.index, Score: r.score, Done: r.finishedLocked()}, ErrClosed
	}
	if r.finishedLocked() {
		return Progress{Index: r.index, Score: r.score, Done: true}, ErrFinished
	}
	if !r.hunt.CanContinue() {
		return Progress{Index: r.index, Score: r.score}, ErrNotAnswered
	}

	r.stopRetryLocked()
	r.index++
	r.hunt.Reset()
	r.slots = [numSlots]SentenceState{}

	return Progress{Index: r.index, Score: r.score, Done: r.finishedLocked()}, nil
}

// LoadSentence starts loading slot for the current item unless it already
// holds a sentence or is loading. It returns the slot state after the call.
func (r *Runner) LoadSentence(slot Slot) (SentenceState, error) {
	if slot < 0 || slot >= numSlots {
		return SentenceState{}, ErrUnknownSlot
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return SentenceState{}, ErrClosed
	}
	if r.finishedLocked() {
		return SentenceState{}, ErrFinished
	}
	r.loadSentenceLocked(slot)
	return r.slots[slot], nil
}

func (r *Runner) loadSentenceLocked(slot Slot) bool {
	st := &r.slots[slot]
	if r.closed || st.Sentence != nil || st.Loading || r.sentences == nil {
		return false
	}
	st.Loading = true
	st.Unavailable = false

	index := r.index
	word := DisplayWord(r.items[index].CorrectEnglish)
	language := r.language

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		sentence, ok := r.sentences.BilingualSentence(context.Background(), word, language)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.index != index {
			return
		}
		st := &r.slots[slot]
		st.Loading = false
		if ok {
			st.Sentence = &sentence
		} else {
			st.Unavailable = true
		}
	}()
	return true
}

func (r *Runner) stopRetryLocked() {
	if r.retry != nil {
		r.retry.Stop()
		r.retry = nil
	}
}

// Snapshot returns the current state.
func (r *Runner) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := State{
		Index:       r.index,
		Total:       len(r.items),
		Score:       r.score,
		Done:        r.finishedLocked(),
		Attempt:     r.hunt.State(),
		Locked:      r.hunt.Locked(),
		Revealed:    r.hunt.Revealed(),
		CanContinue: r.hunt.CanContinue(),
	}
	if s.Done {
		return s
	}

	item := r.items[r.index]
	s.ItemID = item.ID
	s.Word = DisplayWord(item.TranslatedWord)
	if s.CanContinue {
		s.Answer = DisplayWord(item.CorrectEnglish)
	}
	s.Sentences = make(map[string]SentenceState, numSlots)
	for i, st := range r.slots {
		if st.Loading || st.Sentence != nil || st.Unavailable {
			s.Sentences[Slot(i).String()] = st
		}
	}
	return s
}

// Items returns the quiz items in play order.
func (r *Runner) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.items...)
}

// Results returns the per-item outcomes so far.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

// Score returns the current score.
func (r *Runner) Score() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score
}

// Drain waits for every sentence load started so far to complete.
func (r *Runner) Drain() {
	r.inflight.Wait()
}

// Stop freezes the runner: results arriving afterwards are dropped and no
// new attempts or sentence loads start. Results are final once Stop returns.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.stopRetryLocked()
}

// Close stops the runner and waits for sentence loads.
func (r *Runner) Close() {
	r.Stop()
	r.Drain()
}
