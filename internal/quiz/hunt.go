package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAttemptLocked is returned while a previous attempt is unresolved.
	ErrAttemptLocked = errors.New("attempt already in progress")
	// ErrAlreadyMatched is returned once the current item has been found.
	ErrAlreadyMatched = errors.New("item already matched")
	// ErrAnswerRevealed is returned once the answer has been shown.
	ErrAnswerRevealed = errors.New("answer already revealed")
)

// AttemptState is the state of the hunt for the current item.
type AttemptState int

const (
	Ready AttemptState = iota
	Detecting
	Success
	Failure
)

func (s AttemptState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Detecting:
		return "detecting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("AttemptState(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s AttemptState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *AttemptState) UnmarshalText(text []byte) error {
	for _, st := range []AttemptState{Ready, Detecting, Success, Failure} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown attempt state %q", text)
}

// IsMatch reports whether any label matches target. A label matches when
// either string contains the other, ignoring case and treating underscores
// as spaces. The policy is deliberately loose: "mug" matches "coffee mug".
func IsMatch(labels []string, target string) bool {
	target = normalizeLabel(target)
	if target == "" {
		return false
	}
	for _, l := range labels {
		l = normalizeLabel(l)
		if l == "" {
			continue
		}
		if strings.Contains(l, target) || strings.Contains(target, l) {
			return true
		}
	}
	return false
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
}

// Hunt is the attempt state machine for one item:
// Ready -> Detecting -> Success | Failure, and Failure -> Ready on Recover.
// A Hunt is not safe for concurrent use.
type Hunt struct {
	state    AttemptState
	locked   bool
	revealed bool
	token    uint64
}

// check reports why an attempt would be rejected, if it would.
func (h *Hunt) check() error {
	switch {
	case h.state == Success:
		return ErrAlreadyMatched
	case h.revealed:
		return ErrAnswerRevealed
	case h.locked:
		return ErrAttemptLocked
	}
	return nil
}

// Begin starts an attempt and returns its token.
func (h *Hunt) Begin() (uint64, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	h.token++
	h.locked = true
	h.state = Detecting
	return h.token, nil
}

// Finish records the outcome of the attempt identified by token. It reports
// false if that attempt is no longer current.
func (h *Hunt) Finish(token uint64, matched bool) bool {
	if token != h.token || h.state != Detecting {
		return false
	}
	if matched {
		// The lock stays set until Reset so a match is counted once.
		h.state = Success
	} else {
		h.state = Failure
	}
	return true
}

// Recover returns a failed attempt to Ready.
func (h *Hunt) Recover(token uint64) bool {
	if token != h.token || h.state != Failure {
		return false
	}
	h.state = Ready
	h.locked = false
	return true
}

// Reveal shows the answer. Any unresolved attempt is abandoned.
func (h *Hunt) Reveal() error {
	if h.state == Success {
		return ErrAlreadyMatched
	}
	h.revealed = true
	if h.state == Detecting || h.state == Failure {
		h.token++
		h.state = Ready
		h.locked = false
	}
	return nil
}

// Reset prepares the hunt for the next item.
func (h *Hunt) Reset() {
	h.token++
	h.state = Ready
	h.locked = false
	h.revealed = false
}

// State returns the current attempt state.
func (h *Hunt) State() AttemptState { return h.state }

// Locked reports whether new attempts are blocked.
func (h *Hunt) Locked() bool { return h.locked }

// Revealed reports whether the answer was shown.
func (h *Hunt) Revealed() bool { return h.revealed }

// CanContinue reports whether the learner may move to the next item.
func (h *Hunt) CanContinue() bool {
	return h.state == Success || h.revealed
}
