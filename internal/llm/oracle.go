// Package llm talks to a text-in/text-out language model. It builds the
// filter, translation and sentence prompts and parses the replies; every
// failure mode collapses to "no result".
package llm

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnavailable is returned when no language model is configured.
	ErrUnavailable = errors.New("language model unavailable")
	// ErrBlocked is returned when the model refused to answer.
	ErrBlocked = errors.New("response blocked by safety filters")
	// ErrNoResult is returned when a reply was empty or unparseable.
	ErrNoResult = errors.New("no usable result")
)

// Oracle generates a text completion for a prompt.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Unavailable is the Oracle used when no model could be configured.
type Unavailable struct{}

// Generate always fails with ErrUnavailable.
func (Unavailable) Generate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// Available reports whether o can generate text.
func Available(o Oracle) bool {
	switch o.(type) {
	case nil, Unavailable, *Unavailable:
		return false
	}
	return true
}

var guardrailMarkers = []string{
	"guardrail",
	"safety guideline",
	"i can't help with",
	"i cannot help with",
	"i'm unable to help",
}

// IsGuardrail reports whether text looks like a refusal instead of content.
func IsGuardrail(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range guardrailMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
