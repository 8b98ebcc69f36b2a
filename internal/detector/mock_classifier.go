package detector

import (
	"context"
	"sync"

	"github.com/ayusman/lingolens/internal/capture"
	"gocv.io/x/gocv"
)

// MockClassifier is a test implementation of the Classifier interface.
// It allows tests to control the classification results and latency.
type MockClassifier struct {
	mu          sync.Mutex
	candidates  []Candidate
	err         error
	gate        chan struct{}
	calls       int
	orientation capture.ImageOrientation
	started     chan struct{}
}

// NewMockClassifier creates a new MockClassifier instance.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{started: make(chan struct{}, 64)}
}

// SetCandidates sets the candidates that will be returned by Classify.
func (m *MockClassifier) SetCandidates(candidates ...Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = candidates
}

// SetLabels is shorthand for SetCandidates with full confidence.
func (m *MockClassifier) SetLabels(labels ...string) {
	candidates := make([]Candidate, len(labels))
	for i, l := range labels {
		candidates[i] = Candidate{Label: l, Confidence: 1}
	}
	m.SetCandidates(candidates...)
}

// SetError sets the error that will be returned by Classify.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Hold makes subsequent Classify calls block until Release is called.
func (m *MockClassifier) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks every call waiting since Hold.
func (m *MockClassifier) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Started receives one value each time Classify is entered.
func (m *MockClassifier) Started() <-chan struct{} {
	return m.started
}

// Calls returns how many times Classify has been invoked.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastOrientation returns the orientation passed to the latest call.
func (m *MockClassifier) LastOrientation() capture.ImageOrientation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orientation
}

// Classify returns the pre-configured candidates or error.
func (m *MockClassifier) Classify(ctx context.Context, img *gocv.Mat, orientation capture.ImageOrientation) ([]Candidate, error) {
	m.mu.Lock()
	m.calls++
	m.orientation = orientation
	gate := m.gate
	m.mu.Unlock()

	select {
	case m.started <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]Candidate(nil), m.candidates...), nil
}

// Close is a no-op for the mock classifier.
func (m *MockClassifier) Close() error {
	return nil
}
