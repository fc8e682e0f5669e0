package service

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/debtboard/internal/debt"
)

// minNameSimilarity is the fuzzy cut-off below which no debtor is returned.
const minNameSimilarity = 0.5

// FindDebtor returns the index of the debtor that best matches query, by
// exact name, name prefix, id prefix, substring, then edit distance.
func FindDebtor(debtors []debt.Customer, query string) (int, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(debtors) == 0 {
		return -1, false
	}
	stages := []func(name, id string) bool{
		func(name, _ string) bool { return name == q },
		func(name, _ string) bool { return strings.HasPrefix(name, q) },
		func(_, id string) bool { return strings.HasPrefix(id, q) },
		func(name, _ string) bool { return strings.Contains(name, q) },
	}
	for _, match := range stages {
		for i, c := range debtors {
			if match(strings.ToLower(c.Name), strings.ToLower(c.ID)) {
				return i, true
			}
		}
	}

	best, bestScore := -1, 0.0
	for i, c := range debtors {
		name := strings.ToLower(c.Name)
		score := similarity(q, name)
		for _, word := range strings.Fields(name) {
			if s := similarity(q, word); s > score {
				score = s
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < minNameSimilarity {
		return -1, false
	}
	return best, true
}

func similarity(a, b string) float64 {
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
