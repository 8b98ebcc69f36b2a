// Package settings holds the process-wide learner preferences.
//
// Preferences are loaded once at startup and handed to every component that
// needs them; nothing reads the underlying store directly.
package settings

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/lingolens/internal/lang"
	"github.com/ayusman/lingolens/internal/store"
)

// KeyLanguage is the settings key of the selected target language.
const KeyLanguage = "selected_language"

// Repository is the persistence the settings are loaded from and saved to.
type Repository interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Settings is the in-memory copy of the learner preferences.
type Settings struct {
	repo     Repository
	mu       sync.RWMutex
	language lang.Language
}

// Load reads the settings from repo, falling back to defaults for missing
// or unreadable values.
func Load(repo Repository) (*Settings, error) {
	s := &Settings{
		repo:     repo,
		language: lang.Default,
	}

	raw, err := repo.Get(KeyLanguage)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", KeyLanguage, err)
	}

	l, err := lang.Parse(raw)
	if err != nil {
		log.Printf("Ignoring stored language %q: %v", raw, err)
		return s, nil
	}
	s.language = l
	return s, nil
}

// Language returns the selected target language.
func (s *Settings) Language() lang.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage persists and applies a new target language.
// The in-memory value only changes once the write succeeds.
func (s *Settings) SetLanguage(l lang.Language) error {
	if !l.Valid() {
		return lang.ErrUnknownLanguage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Set(KeyLanguage, string(l)); err != nil {
		return fmt.Errorf("save %s: %w", KeyLanguage, err)
	}
	s.language = l
	return nil
}
