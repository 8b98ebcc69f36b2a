package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ayusman/lingolens/internal/lang"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 20 * time.Second

// Service runs the three prompt templates against an Oracle.
type Service struct {
	oracle  Oracle
	timeout time.Duration
}

// NewService creates a Service. A nil oracle behaves as Unavailable.
func NewService(oracle Oracle, timeout time.Duration) *Service {
	if oracle == nil {
		oracle = Unavailable{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{oracle: oracle, timeout: timeout}
}

// Available reports whether a real model is configured.
func (s *Service) Available() bool {
	return Available(s.oracle)
}

// generate calls the oracle with the service timeout and rejects
// guardrail replies.
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.oracle.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if IsGuardrail(text) {
		return "", ErrBlocked
	}
	return text, nil
}

// FilterObjects keeps only the labels the model considers concrete
// countable objects. Any failure yields an empty list.
func (s *Service) FilterObjects(ctx context.Context, labels []string) []string {
	if len(labels) == 0 {
		return nil
	}

	text, err := s.generate(ctx, FilterPrompt(labels))
	if err != nil {
		log.Printf("Object filtering failed: %v", err)
		return nil
	}
	return ParseObjectList(text)
}

// Translate returns word in language l, lowercased.
func (s *Service) Translate(ctx context.Context, word string, l lang.Language) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return "", ErrNoResult
	}

	text, err := s.generate(ctx, TranslatePrompt(word, l))
	if err != nil {
		return "", fmt.Errorf("translate %q: %w", word, err)
	}

	translated := ParseTranslation(text)
	if translated == "" {
		return "", fmt.Errorf("translate %q: %w", word, ErrNoResult)
	}
	return translated, nil
}

// BilingualSentence generates an example sentence for word. It reports
// false when no usable sentence was produced.
func (s *Service) BilingualSentence(ctx context.Context, word string, l lang.Language) (Sentence, bool) {
	text, err := s.generate(ctx, SentencePrompt(word, l))
	if err != nil {
		log.Printf("Sentence generation for %q failed: %v", word, err)
		return Sentence{}, false
	}
	return ParseSentence(text)
}
