package llm

import (
	"context"
	"sync"
)

// MockOracle is a test implementation of the Oracle interface.
type MockOracle struct {
	mu        sync.Mutex
	responder func(prompt string) (string, error)
	gate      chan struct{}
	prompts   []string
	started   chan string
}

// NewMockOracle creates a MockOracle that answers with responder.
func NewMockOracle(responder func(prompt string) (string, error)) *MockOracle {
	return &MockOracle{
		responder: responder,
		started:   make(chan string, 64),
	}
}

// SetResponder replaces the response function.
func (m *MockOracle) SetResponder(responder func(prompt string) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = responder
}

// Hold makes subsequent calls block until Release.
func (m *MockOracle) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks every call waiting since Hold.
func (m *MockOracle) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Started receives the prompt of each call as it begins.
func (m *MockOracle) Started() <-chan string {
	return m.started
}

// Calls returns how many prompts have been received.
func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received.
func (m *MockOracle) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Generate records prompt and returns the responder's answer.
func (m *MockOracle) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	gate := m.gate
	m.mu.Unlock()

	select {
	case m.started <- prompt:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	responder := m.responder
	m.mu.Unlock()

	if responder == nil {
		return "", ErrNoResult
	}
	return responder(prompt)
}
