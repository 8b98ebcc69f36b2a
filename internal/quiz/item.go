// Package quiz builds quizzes from detected objects and runs them: a hunt
// per item where the learner must show the camera the object named in the
// target language.
package quiz

import (
	"strings"

	"github.com/google/uuid"
)

// Item is one word to find. Items are immutable once created.
type Item struct {
	ID             string `json:"id"`
	TranslatedWord string `json:"translated_word"`
	CorrectEnglish string `json:"correct_english"`
}

// NewItem creates an item with a fresh ID.
func NewItem(translated, english string) Item {
	return Item{
		ID:             uuid.NewString(),
		TranslatedWord: translated,
		CorrectEnglish: english,
	}
}

// Passthrough is the item used when an object could not be translated:
// the learner sees the English word itself.
func Passthrough(object string) Item {
	return NewItem(object, object)
}

// DisplayWord replaces underscores with spaces.
func DisplayWord(raw string) string {
	return strings.ReplaceAll(raw, "_", " ")
}

// NormalizeObjects trims and lowercases objects and removes empty entries
// and duplicates, keeping the first occurrence.
func NormalizeObjects(objects []string) []string {
	seen := make(map[string]struct{}, len(objects))
	result := make([]string, 0, len(objects))
	for _, o := range objects {
		o = strings.ToLower(strings.TrimSpace(o))
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		result = append(result, o)
	}
	return result
}
