package detector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

// LoadLabels reads one class label per line from path.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseLabels(f)
}

// ParseLabels reads class labels, one per line. ImageNet synset prefixes
// ("n03063599 coffee mug") are stripped and only the first of several
// comma-separated synonyms is kept.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if fields := strings.SplitN(line, " ", 2); len(fields) == 2 && isSynsetID(fields[0]) {
			line = fields[1]
		}
		if i := strings.Index(line, ","); i >= 0 {
			line = line[:i]
		}
		labels = append(labels, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, errors.New("no labels found")
	}
	return labels, nil
}

func isSynsetID(s string) bool {
	if len(s) != 9 || s[0] != 'n' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// softmax converts logits to probabilities in place.
func softmax(scores []float32) {
	if len(scores) == 0 {
		return
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s - maxScore))
		scores[i] = float32(e)
		sum += e
	}
	for i := range scores {
		scores[i] = float32(float64(scores[i]) / sum)
	}
}

// topK returns the k best scoring labels, best first.
func topK(scores []float32, labels []string, k int) []Candidate {
	n := len(scores)
	if len(labels) < n {
		n = len(labels)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	if k > 0 && k < n {
		idx = idx[:k]
	}

	result := make([]Candidate, len(idx))
	for i, j := range idx {
		result[i] = Candidate{Label: labels[j], Confidence: scores[j]}
	}
	return result
}
