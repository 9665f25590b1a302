// merchant_matcher.go - Matches recognized receipt headers against known store chains
//
// OCR engines often misread one or two letters of a store logo
// ("CARREF0UR", "DELHA1ZE"). Exact containment is tried first, then a
// Levenshtein similarity over the first lines of the ticket.

package processor

import (
	"regexp"
	"strings"
)

const (
	// Minimum similarity (0-100) for a fuzzy match
	merchantMatchThreshold = 80.0
	// Short names match too many ordinary words
	minFuzzyNameLength = 6
	// Store names are printed in the header
	headerLines = 8
)

// MerchantMatchResult is the outcome of matching text against the chains.
type MerchantMatchResult struct {
	Found      bool    `json:"found"`
	Name       string  `json:"name,omitempty"`
	Similarity float64 `json:"similarity"` // 0-100
	Method     string  `json:"method"`     // "exact", "fuzzy", "not_found"
}

var (
	legalFormWordRe = regexp.MustCompile(`\b(?:SPRL|SRL|SA|NV|BV|BVBA|SARL|SAS)\b`)
	nonWordRe       = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// MatchMerchant finds the known chain printed on a receipt.
func MatchMerchant(text string) MerchantMatchResult {
	upper := strings.ToUpper(text)
	for _, m := range knownMerchants {
		if strings.Contains(upper, m) {
			return MerchantMatchResult{Found: true, Name: m, Similarity: 100, Method: "exact"}
		}
	}

	best := MerchantMatchResult{Method: "not_found"}
	lines := strings.Split(text, "\n")
	if len(lines) > headerLines {
		lines = lines[:headerLines]
	}
	for _, line := range lines {
		words := strings.Fields(normalizeMerchantName(line))
		for _, known := range knownMerchants {
			size := len(strings.Fields(known))
			if len([]rune(known)) < minFuzzyNameLength || size > len(words) {
				continue
			}
			for i := 0; i+size <= len(words); i++ {
				candidate := strings.Join(words[i:i+size], " ")
				similarity := nameSimilarity(candidate, known)
				if similarity > best.Similarity {
					best = MerchantMatchResult{Found: true, Name: known, Similarity: similarity, Method: "fuzzy"}
				}
			}
		}
	}

	if best.Similarity < merchantMatchThreshold {
		return MerchantMatchResult{Method: "not_found"}
	}
	return best
}

// normalizeMerchantName upper-cases a name and drops legal forms and
// punctuation.
func normalizeMerchantName(name string) string {
	name = strings.ToUpper(name)
	name = legalFormWordRe.ReplaceAllString(name, " ")
	name = nonWordRe.ReplaceAllString(name, " ")
	return strings.Join(strings.Fields(name), " ")
}

// nameSimilarity returns 100 for identical names and decreases with the
// edit distance.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 0
	}
	similarity := (1 - float64(levenshteinDistance(ra, rb))/float64(maxLen)) * 100
	return max(similarity, 0)
}

// levenshteinDistance is the classic dynamic programming edit distance.
func levenshteinDistance(s1, s2 []rune) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
