package scan

import (
	"sort"
	"strings"

	"github.com/ayusman/lingolens/internal/detector"
)

// Candidate filtering parameters.
const (
	MinConfidence = 0.25
	MaxCandidates = 5
)

// Blacklist holds generic terms; any label containing one is dropped.
var Blacklist = []string{
	"structure",
	"room",
	"indoor",
	"interior",
	"architecture",
	"machine",
	"object",
	"material",
}

// FilterCandidates keeps candidates whose confidence exceeds threshold and
// returns at most max of them, best first.
func FilterCandidates(candidates []detector.Candidate, threshold float32, max int) []detector.Candidate {
	kept := make([]detector.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence > threshold {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})

	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}
	return kept
}

// Labels extracts the label of each candidate.
func Labels(candidates []detector.Candidate) []string {
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label
	}
	return labels
}

// Sanitize lowercases and trims labels, removes duplicates and empty
// labels, and drops every label containing a blacklisted term. Order of
// first appearance is kept.
func Sanitize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	result := make([]string, 0, len(raw))

	for _, label := range raw {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || isGeneric(label) {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		result = append(result, label)
	}
	return result
}

func isGeneric(label string) bool {
	for _, term := range Blacklist {
		if strings.Contains(label, term) {
			return true
		}
	}
	return false
}
