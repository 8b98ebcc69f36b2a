package llm

import (
	"strings"
)

// NoneSentinel is what the filter prompt asks the model to return when
// nothing qualifies.
const NoneSentinel = "none"

// Sentence is an example sentence in English with its translation.
type Sentence struct {
	English    string `json:"english"`
	Translated string `json:"translated"`
}

// ParseObjectList reads a comma- or newline-separated object list. An empty
// reply or the NONE sentinel yields an empty list.
func ParseObjectList(text string) []string {
	text = strings.ToLower(strings.TrimSpace(stripCodeFences(text)))
	if text == "" || trimItem(text) == NoneSentinel {
		return nil
	}

	text = strings.ReplaceAll(text, "\n", ",")

	var objects []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(text, ",") {
		item := trimItem(part)
		if item == "" || item == NoneSentinel {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		objects = append(objects, item)
	}
	return objects
}

// ParseTranslation extracts the translated word from a reply. It returns ""
// when the reply has no usable content.
func ParseTranslation(text string) string {
	text = strings.TrimSpace(stripCodeFences(text))
	for _, line := range strings.Split(text, "\n") {
		if w := trimItem(strings.ToLower(line)); w != "" {
			return w
		}
	}
	return ""
}

// ParseSentence reads the "E:" and "T:" lines of a sentence reply. The long
// forms "English:" and "Translated:" are accepted too. It reports false if
// the English line is missing or is a guardrail notice.
func ParseSentence(text string) (Sentence, bool) {
	var s Sentence

	for _, line := range strings.Split(stripCodeFences(text), "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "*-• ")
		if v, ok := cutPrefixFold(line, "English:", "E:"); ok {
			s.English = v
		} else if v, ok := cutPrefixFold(line, "Translated:", "Translation:", "T:"); ok {
			s.Translated = v
		}
	}

	if s.English == "" || strings.Contains(strings.ToLower(s.English), "guardrail") {
		return Sentence{}, false
	}
	return s, true
}

func cutPrefixFold(line string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if len(line) >= len(p) && strings.EqualFold(line[:len(p)], p) {
			return strings.TrimSpace(strings.Trim(line[len(p):], "* ")), true
		}
	}
	return "", false
}

// trimItem strips whitespace, quotes and trailing punctuation.
func trimItem(s string) string {
	return strings.Trim(strings.TrimSpace(s), " \t\"'`.!*")
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
