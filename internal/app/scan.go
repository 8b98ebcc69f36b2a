package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/lingolens/internal/detector"
	"github.com/ayusman/lingolens/internal/lang"
	"github.com/ayusman/lingolens/internal/quiz"
	"github.com/ayusman/lingolens/internal/scan"
)

// ScanStatus describes the current or most recent scan.
type ScanStatus struct {
	Scanning   bool       `json:"scanning"`
	Objects    []string   `json:"objects"`
	CanProceed bool       `json:"can_proceed"`
	Stats      scan.Stats `json:"stats"`
}

// Quick scan states.
const (
	QuickScanDisplaying = "displaying"
	QuickScanEmpty      = "empty"
)

// QuickScanResult is the outcome of a one-shot scan.
type QuickScanResult struct {
	Status   string        `json:"status"`
	Language lang.Language `json:"language"`
	Labels   []string      `json:"labels,omitempty"`
	Results  []quiz.Item   `json:"results"`
}

// scanner is one scan session together with the goroutine forwarding its
// updates to subscribers.
type scanner struct {
	session   *scan.Session
	forwarded chan struct{}
}

// StartScan begins a new scan, replacing any previous one. Frames flow from
// the camera straight into the session's mailbox.
func (a *App) StartScan() (ScanStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopScanLocked()

	session := scan.NewSession(a.classifier, scan.Options{
		Interval:    a.config.ScanInterval,
		Orientation: a.orientation,
	})
	session.Start(context.Background())

	if err := a.controller.Start(OwnerScan, session); err != nil {
		session.Stop()
		return ScanStatus{}, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	sc := &scanner{session: session, forwarded: make(chan struct{})}
	go a.forward(sc)
	a.scanner = sc

	log.Println("Scan started")
	return a.scanStatusLocked(), nil
}

// forward copies session updates to the scan event subscribers until the
// session ends.
func (a *App) forward(sc *scanner) {
	defer close(sc.forwarded)
	for u := range sc.session.Updates() {
		a.events.publish(u)
	}
}

// StopScan ends the scan and returns the objects it collected.
func (a *App) StopScan() ScanStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopScanLocked()
	return a.scanStatusLocked()
}

// stopScanLocked stops the session first so no late result is merged, then
// gives up the camera if the scan still holds it.
func (a *App) stopScanLocked() {
	if a.scanner == nil || !a.scanner.session.Live() {
		return
	}
	a.scanner.session.Stop()
	a.controller.Release(OwnerScan)
	<-a.scanner.session.Done()
	<-a.scanner.forwarded

	log.Printf("Scan stopped with %d objects", len(a.scanner.session.Objects()))
}

// ScanStatus reports the current scan, or the last one if it has stopped.
func (a *App) ScanStatus() ScanStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scanStatusLocked()
}

func (a *App) scanStatusLocked() ScanStatus {
	if a.scanner == nil {
		return ScanStatus{Objects: []string{}}
	}
	s := a.scanner.session
	return ScanStatus{
		Scanning:   s.Live() && a.controller.Owner() == OwnerScan,
		Objects:    s.Objects(),
		CanProceed: s.CanProceed(),
		Stats:      s.Stats(),
	}
}

// SubscribeScan returns a channel of scan updates and a function that
// cancels the subscription. A slow subscriber only sees the latest update.
func (a *App) SubscribeScan() (<-chan scan.Update, func()) {
	return a.events.subscribe()
}

// QuickScan classifies a single frame and translates every object the
// language model accepts.
func (a *App) QuickScan(ctx context.Context) (QuickScanResult, error) {
	a.mu.Lock()
	a.stopScanLocked()
	a.mu.Unlock()

	language := a.settings.Language()
	result := QuickScanResult{Status: QuickScanEmpty, Language: language, Results: []quiz.Item{}}

	frame, err := a.grabFrame(ctx, OwnerQuickScan)
	a.controller.Release(OwnerQuickScan)
	if err != nil {
		return result, err
	}
	defer frame.Close()

	candidates, err := a.classifier.Classify(ctx, &frame.Mat, a.imageOrientation())
	if err != nil {
		// A failed classification is an empty result, never a user-facing error.
		if !errors.Is(err, detector.ErrUnavailable) {
			log.Printf("Quick scan classification failed: %v", err)
		}
		return result, nil
	}

	labels := scan.Sanitize(scan.Labels(scan.FilterCandidates(candidates, scan.MinConfidence, scan.MaxCandidates)))
	result.Labels = labels
	if len(labels) == 0 {
		return result, nil
	}

	objects := a.llm.FilterObjects(ctx, labels)
	if len(objects) == 0 {
		return result, nil
	}

	items := a.assembler.Assemble(ctx, objects, language)
	if len(items) == 0 {
		return result, nil
	}

	result.Status = QuickScanDisplaying
	result.Results = items
	return result, nil
}

// broadcaster fans scan updates out to subscribers. Each subscriber has a
// single-slot channel holding the newest undelivered update.
type broadcaster struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan scan.Update
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan scan.Update)}
}

func (b *broadcaster) subscribe() (<-chan scan.Update, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan scan.Update, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *broadcaster) publish(u scan.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
