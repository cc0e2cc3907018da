package core

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultSuggestLimit is the number of suggestions returned for an unknown brand.
const DefaultSuggestLimit = 3

// FilterBrands returns the brands containing query, case-insensitively, in
// their original order. An empty query returns every brand.
func FilterBrands(brands []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0, len(brands))
	for _, b := range brands {
		if q == "" || strings.Contains(strings.ToLower(b), q) {
			out = append(out, b)
		}
	}
	return out
}

// SuggestBrands returns up to limit brands that are close to input, nearest
// first. Distance is measured case-insensitively; brands further than
// maxSuggestDistance(input) are never suggested.
func SuggestBrands(brands []string, input string, limit int) []string {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" || limit <= 0 {
		return nil
	}

	type candidate struct {
		brand string
		dist  int
	}
	maxDist := maxSuggestDistance(in)
	var cands []candidate
	for _, b := range brands {
		lb := strings.ToLower(b)
		d := levenshtein.ComputeDistance(in, lb)
		if strings.Contains(lb, in) && d > maxDist {
			// A prefix typed in full still deserves a suggestion.
			d = maxDist
		}
		if d <= maxDist {
			cands = append(cands, candidate{brand: b, dist: d})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].dist < cands[j].dist
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.brand
	}
	return out
}

// maxSuggestDistance scales the allowed edit distance with input length.
func maxSuggestDistance(input string) int {
	if d := len([]rune(input)) / 3; d > 2 {
		return d
	}
	return 2
}
