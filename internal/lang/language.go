// Package lang defines the target languages a learner can practise.
package lang

import (
	"errors"
	"strings"
)

// ErrUnknownLanguage is returned when a language name or code is not supported.
var ErrUnknownLanguage = errors.New("unknown language")

// Language is a supported target language. The value is its English name,
// which is also what the translation prompts use.
type Language string

const (
	French   Language = "French"
	Spanish  Language = "Spanish"
	German   Language = "German"
	Japanese Language = "Japanese"
)

// Default is the language used until the learner picks one.
const Default = French

// All returns every supported language in display order.
func All() []Language {
	return []Language{French, Spanish, German, Japanese}
}

// DisplayName returns the human-readable name of the language.
func (l Language) DisplayName() string {
	return string(l)
}

// Code returns the BCP 47 locale code used for prompts and speech playback.
func (l Language) Code() string {
	switch l {
	case French:
		return "fr-FR"
	case Spanish:
		return "es-ES"
	case German:
		return "de-DE"
	case Japanese:
		return "ja-JP"
	default:
		return ""
	}
}

// Flag returns the flag emoji shown next to the language.
func (l Language) Flag() string {
	switch l {
	case French:
		return "🇫🇷"
	case Spanish:
		return "🇪🇸"
	case German:
		return "🇩🇪"
	case Japanese:
		return "🇯🇵"
	default:
		return ""
	}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l.Code() != ""
}

// Parse resolves a language from its name ("german"), its locale code
// ("de-DE") or its two-letter prefix ("de"). Matching is case-insensitive.
func Parse(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrUnknownLanguage
	}
	for _, l := range All() {
		if strings.EqualFold(s, string(l)) || strings.EqualFold(s, l.Code()) || strings.EqualFold(s, l.Code()[:2]) {
			return l, nil
		}
	}
	return "", ErrUnknownLanguage
}
