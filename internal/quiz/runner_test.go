package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/detector"
	"github.com/ayusman/lingolens/internal/lang"
	"github.com/ayusman/lingolens/internal/llm"
	"gocv.io/x/gocv"
)

type runnerFixture struct {
	runner     *Runner
	classifier *detector.MockClassifier
	oracle     *llm.MockOracle
}

func newRunnerFixture(t *testing.T, items []Item, opts Options) *runnerFixture {
	t.Helper()

	cls := detector.NewMockClassifier()
	oracle := llm.NewMockOracle(func(string) (string, error) {
		return "E: The mug is here.\nT: La tasse est ici.", nil
	})
	if opts.Interval == 0 {
		opts.Interval = -1
	}
	if opts.Language == "" {
		opts.Language = lang.French
	}

	r, err := NewRunner(items, cls, llm.NewService(oracle, time.Second), opts)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	t.Cleanup(func() {
		cls.Release()
		oracle.Release()
		r.Close()
	})
	return &runnerFixture{runner: r, classifier: cls, oracle: oracle}
}

func testFrame(t *testing.T) *capture.Frame {
	t.Helper()
	f := capture.NewFrame(gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3), time.Now())
	t.Cleanup(func() { f.Close() })
	return f
}

func threeItems() []Item {
	return []Item{
		NewItem("tasse", "coffee mug"),
		NewItem("chaise", "chair"),
		NewItem("lampe", "lamp"),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNewRunner_NoItems(t *testing.T) {
	if _, err := NewRunner(nil, detector.NewMockClassifier(), nil, Options{}); !errors.Is(err, ErrNoItems) {
		t.Errorf("NewRunner() error = %v, want ErrNoItems", err)
	}
}

func TestRunner_CoffeeMugMatch(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.classifier.SetCandidates(
		detector.Candidate{Label: "mug", Confidence: 0.8},
		detector.Candidate{Label: "table", Confidence: 0.6},
	)

	state, err := fx.runner.Attempt(context.Background(), testFrame(t))
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if state != Success {
		t.Fatalf("Attempt() state = %s, want success", state)
	}
	if got := fx.runner.Score(); got != 1 {
		t.Errorf("Score() = %d, want 1", got)
	}

	// The success sentence loads on its own.
	fx.runner.Drain()
	snap := fx.runner.Snapshot()
	if st := snap.Sentences["success"]; st.Sentence == nil {
		t.Errorf("success sentence not loaded: %+v", snap.Sentences)
	}
	if snap.Answer != "coffee mug" {
		t.Errorf("Snapshot().Answer = %q, want coffee mug", snap.Answer)
	}
}

func TestRunner_LowConfidenceLabelsIgnored(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{RetryDelay: time.Hour})
	fx.classifier.SetCandidates(detector.Candidate{Label: "coffee mug", Confidence: 0.1})

	state, err := fx.runner.Attempt(context.Background(), testFrame(t))
	if err != nil {
		t.Fatalf("Attempt() error = %v", err)
	}
	if state != Failure {
		t.Errorf("Attempt() state = %s, want failure", state)
	}
}

func TestRunner_NoDoubleCount(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.classifier.SetLabels("coffee mug")

	fx.runner.Attempt(context.Background(), testFrame(t))
	for i := 0; i < 3; i++ {
		if _, err := fx.runner.Attempt(context.Background(), testFrame(t)); !errors.Is(err, ErrAlreadyMatched) {
			t.Errorf("repeat Attempt() error = %v, want ErrAlreadyMatched", err)
		}
	}
	if got := fx.runner.Score(); got != 1 {
		t.Errorf("Score() = %d, want 1", got)
	}
}

func TestRunner_ConcurrentAttemptsLocked(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.classifier.SetLabels("mug")
	fx.classifier.Hold()

	frame := testFrame(t)

	first := make(chan AttemptState, 1)
	go func() {
		state, _ := fx.runner.Attempt(context.Background(), frame)
		first <- state
	}()
	<-fx.classifier.Started()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fx.runner.Attempt(context.Background(), frame); !errors.Is(err, ErrAttemptLocked) {
				t.Errorf("concurrent Attempt() error = %v, want ErrAttemptLocked", err)
			}
		}()
	}
	wg.Wait()

	fx.classifier.Release()
	if state := <-first; state != Success {
		t.Errorf("first Attempt() state = %s, want success", state)
	}
	if got := fx.runner.Score(); got != 1 {
		t.Errorf("Score() = %d, want 1", got)
	}
	if got := fx.classifier.Calls(); got != 1 {
		t.Errorf("classifier called %d times, want 1", got)
	}
}

func TestRunner_FailureReturnsToReady(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{RetryDelay: 30 * time.Millisecond})
	fx.classifier.SetLabels("table")

	state, err := fx.runner.Attempt(context.Background(), testFrame(t))
	if err != nil || state != Failure {
		t.Fatalf("Attempt() = %s, %v; want failure", state, err)
	}
	if _, err := fx.runner.Attempt(context.Background(), testFrame(t)); !errors.Is(err, ErrAttemptLocked) {
		t.Errorf("Attempt() during failure display error = %v, want ErrAttemptLocked", err)
	}

	waitFor(t, "return to ready", func() bool {
		s := fx.runner.Snapshot()
		return s.Attempt == Ready && !s.Locked
	})

	fx.classifier.SetLabels("coffee_mug")
	if state, err := fx.runner.Attempt(context.Background(), testFrame(t)); err != nil || state != Success {
		t.Errorf("retry Attempt() = %s, %v; want success", state, err)
	}
}

func TestRunner_ClassifierErrorIsFailure(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{RetryDelay: time.Hour})
	fx.classifier.SetError(errors.New("model crashed"))

	state, err := fx.runner.Attempt(context.Background(), testFrame(t))
	if err != nil || state != Failure {
		t.Errorf("Attempt() = %s, %v; want failure without error", state, err)
	}
}

func TestRunner_ThrottledAttemptDoesNotLock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fx := newRunnerFixture(t, threeItems(), Options{
		Interval:   time.Hour,
		RetryDelay: 10 * time.Millisecond,
		Now:        func() time.Time { return now },
	})
	fx.classifier.SetLabels("table")

	fx.runner.Attempt(context.Background(), testFrame(t))
	waitFor(t, "return to ready", func() bool { return fx.runner.Snapshot().Attempt == Ready })

	if _, err := fx.runner.Attempt(context.Background(), testFrame(t)); !errors.Is(err, ErrThrottled) {
		t.Fatalf("Attempt() error = %v, want ErrThrottled", err)
	}
	if s := fx.runner.Snapshot(); s.Locked || s.Attempt != Ready {
		t.Errorf("after throttled attempt: state=%s locked=%v", s.Attempt, s.Locked)
	}
}

func TestRunner_AttemptWithoutFrame(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	if _, err := fx.runner.Attempt(context.Background(), nil); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Attempt(nil) error = %v, want ErrNoFrame", err)
	}
}

func TestRunner_AdvanceRequiresAnswer(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})

	if _, err := fx.runner.Advance(); !errors.Is(err, ErrNotAnswered) {
		t.Fatalf("Advance() error = %v, want ErrNotAnswered", err)
	}

	if err := fx.runner.Reveal(); err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if _, err := fx.runner.Attempt(context.Background(), testFrame(t)); !errors.Is(err, ErrAnswerRevealed) {
		t.Errorf("Attempt() after reveal error = %v, want ErrAnswerRevealed", err)
	}

	p, err := fx.runner.Advance()
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if p.Index != 1 || p.Done || p.Score != 0 {
		t.Errorf("Advance() = %+v, want index 1, not done, score 0", p)
	}

	s := fx.runner.Snapshot()
	if s.Attempt != Ready || s.Locked || s.Revealed || len(s.Sentences) != 0 || s.Answer != "" {
		t.Errorf("state not reset after advance: %+v", s)
	}
}

func TestRunner_FullSessionScore(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	ctx := context.Background()

	fx.classifier.SetLabels("mug")
	fx.runner.Attempt(ctx, testFrame(t))
	scores := []int{fx.runner.Score()}
	fx.runner.Advance()

	fx.runner.Reveal()
	scores = append(scores, fx.runner.Score())
	fx.runner.Advance()

	fx.classifier.SetLabels("desk lamp")
	fx.runner.Attempt(ctx, testFrame(t))
	scores = append(scores, fx.runner.Score())

	p, err := fx.runner.Advance()
	if err != nil {
		t.Fatalf("final Advance() error = %v", err)
	}
	if !p.Done || p.Index != 3 || p.Score != 2 {
		t.Errorf("final Advance() = %+v, want done at index 3 with score 2", p)
	}

	want := []int{1, 1, 2}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("score after item %d = %d, want %d", i, scores[i], want[i])
		}
	}

	results := fx.runner.Results()
	if !results[0].Matched || !results[1].Revealed || results[1].Matched || !results[2].Matched {
		t.Errorf("Results() = %+v", results)
	}

	if _, err := fx.runner.Advance(); !errors.Is(err, ErrFinished) {
		t.Errorf("Advance() after end error = %v, want ErrFinished", err)
	}
	if _, err := fx.runner.Attempt(ctx, testFrame(t)); !errors.Is(err, ErrFinished) {
		t.Errorf("Attempt() after end error = %v, want ErrFinished", err)
	}
	if s := fx.runner.Snapshot(); !s.Done || s.Word != "" {
		t.Errorf("Snapshot() after end = %+v", s)
	}
}

func TestRunner_StaleSentenceDiscarded(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.oracle.Hold()

	st, err := fx.runner.LoadSentence(SlotHint)
	if err != nil {
		t.Fatalf("LoadSentence() error = %v", err)
	}
	if !st.Loading {
		t.Fatalf("LoadSentence() state = %+v, want loading", st)
	}
	<-fx.oracle.Started()

	fx.runner.Reveal()
	<-fx.oracle.Started()
	if _, err := fx.runner.Advance(); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	fx.oracle.Release()
	fx.runner.Drain()

	s := fx.runner.Snapshot()
	if s.Index != 1 {
		t.Fatalf("Index = %d, want 1", s.Index)
	}
	if len(s.Sentences) != 0 {
		t.Errorf("stale sentences written to item 1: %+v", s.Sentences)
	}
}

func TestRunner_StaleAttemptDiscarded(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.classifier.SetLabels("mug")
	fx.classifier.Hold()

	frame := testFrame(t)

	result := make(chan error, 1)
	go func() {
		_, err := fx.runner.Attempt(context.Background(), frame)
		result <- err
	}()
	<-fx.classifier.Started()

	fx.runner.Reveal()
	fx.runner.Advance()
	fx.classifier.Release()

	if err := <-result; !errors.Is(err, ErrStale) {
		t.Errorf("Attempt() error = %v, want ErrStale", err)
	}
	if got := fx.runner.Score(); got != 0 {
		t.Errorf("Score() = %d, want 0", got)
	}
	if s := fx.runner.Snapshot(); s.Attempt != Ready {
		t.Errorf("item 1 attempt state = %s, want ready", s.Attempt)
	}
}

func TestRunner_StopDropsLateResults(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.classifier.SetLabels("mug")
	fx.classifier.Hold()

	frame := testFrame(t)

	result := make(chan error, 1)
	go func() {
		_, err := fx.runner.Attempt(context.Background(), frame)
		result <- err
	}()
	<-fx.classifier.Started()

	fx.runner.Stop()
	fx.classifier.Release()

	if err := <-result; !errors.Is(err, ErrClosed) {
		t.Errorf("Attempt() error = %v, want ErrClosed", err)
	}
	if got := fx.runner.Score(); got != 0 {
		t.Errorf("Score() = %d, want 0", got)
	}
	if res := fx.runner.Results(); res[0].Matched {
		t.Error("match recorded after Stop")
	}

	// Nothing new starts, so Close has nothing to wait for.
	calls := []struct {
		name string
		call func() error
	}{
		{"Attempt", func() error { _, err := fx.runner.Attempt(context.Background(), frame); return err }},
		{"Reveal", fx.runner.Reveal},
		{"Advance", func() error { _, err := fx.runner.Advance(); return err }},
		{"LoadSentence", func() error { _, err := fx.runner.LoadSentence(SlotHint); return err }},
	}
	for _, c := range calls {
		if err := c.call(); !errors.Is(err, ErrClosed) {
			t.Errorf("%s() after Stop error = %v, want ErrClosed", c.name, err)
		}
	}
	if len(fx.runner.Snapshot().Sentences) != 0 {
		t.Error("sentence load started after Stop")
	}
	fx.runner.Close()
}

func TestRunner_SentenceSlotsDeduplicated(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.oracle.Hold()

	fx.runner.LoadSentence(SlotHint)
	fx.runner.LoadSentence(SlotHint)
	<-fx.oracle.Started()
	if got := fx.oracle.Calls(); got != 1 {
		t.Errorf("oracle called %d times while loading, want 1", got)
	}

	fx.oracle.Release()
	fx.runner.Drain()

	st, _ := fx.runner.LoadSentence(SlotHint)
	if st.Sentence == nil || st.Loading {
		t.Errorf("hint slot = %+v, want loaded", st)
	}
	if got := fx.oracle.Calls(); got != 1 {
		t.Errorf("oracle called %d times after load, want 1", got)
	}

	// The reveal slot is independent of the hint slot.
	fx.runner.LoadSentence(SlotReveal)
	fx.runner.Drain()
	if got := fx.oracle.Calls(); got != 2 {
		t.Errorf("oracle called %d times, want 2", got)
	}
}

func TestRunner_SentenceUnavailable(t *testing.T) {
	fx := newRunnerFixture(t, threeItems(), Options{})
	fx.oracle.SetResponder(func(string) (string, error) { return "E: guardrail", nil })

	fx.runner.LoadSentence(SlotHint)
	fx.runner.Drain()

	st := fx.runner.Snapshot().Sentences["hint"]
	if !st.Unavailable || st.Sentence != nil || st.Loading {
		t.Errorf("hint slot = %+v, want unavailable", st)
	}
}

func TestParseSlot(t *testing.T) {
	for _, name := range []string{"hint", "success", "reveal"} {
		s, err := ParseSlot(name)
		if err != nil || s.String() != name {
			t.Errorf("ParseSlot(%q) = %v, %v", name, s, err)
		}
	}
	if _, err := ParseSlot("bonus"); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("ParseSlot(bonus) error = %v, want ErrUnknownSlot", err)
	}
}
