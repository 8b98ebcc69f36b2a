package llm

import (
	"fmt"
	"strings"

	"github.com/ayusman/lingolens/internal/lang"
)

// FilterPrompt asks which raw classifier labels name concrete objects.
func FilterPrompt(labels []string) string {
	return fmt.Sprintf(`Analyze these labels: %s

Task: Identify only specific, discrete and physical objects.

Strict exclusion rules:
1. No generic categories (for example electronics, machinery, appliance, conveyance).
2. No materials or textures (for example wood, metal, plastic, fabric).
3. No abstract concepts, people or environments (for example adult, structure, indoor, portal).
4. No collective nouns (for example furniture, equipment, material).

Requirement: return only the names of individual items.

Output format: a comma-separated list of objects. If no specific objects are found, return NONE.`,
		strings.Join(labels, ", "))
}

// TranslatePrompt asks for a single translated word.
func TranslatePrompt(word string, l lang.Language) string {
	return fmt.Sprintf("You are a translation expert. Translate the English word '%s' to %s (%s). Return ONLY the translated word.",
		word, l.DisplayName(), l.Code())
}

// SentencePrompt asks for a simple example sentence and its translation.
func SentencePrompt(word string, l lang.Language) string {
	return fmt.Sprintf(`Objective: educational language example.
Word: %[1]s
Language: %[2]s

Task: write a neutral, simple English sentence using '%[1]s'.
Then translate it to %[2]s.

Format:
E: [English]
T: [Translation]`, word, l.DisplayName())
}
