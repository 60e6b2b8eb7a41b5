// Package similarity scores two normalized field values in [0,1], aware of
// the field kind. Identity-bearing fields (ids, dates) are exact-match only;
// a one-digit difference is a different identity, never a fuzzy match.
package similarity

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"veridoc/internal/document/models"
)

// tokenMatchThreshold is the edit similarity above which two name tokens
// count as the same token.
const tokenMatchThreshold = 0.85

// streetBonus is added to address similarity when the leading token (street
// name) is identical on both sides.
const streetBonus = 0.15

// Score compares two normalized values of the same field.
func Score(fieldName, a, b string) float64 {
	switch models.KindOf(fieldName) {
	case models.KindNumeric, models.KindDate:
		if a == b && a != "" {
			return 1.0
		}
		return 0.0
	case models.KindName:
		return tokenSetSimilarity(a, b)
	case models.KindAddress:
		return addressSimilarity(a, b)
	default:
		return editSimilarity(a, b)
	}
}

// Threshold is the minimum Score at which the field counts as matched.
func Threshold(fieldName string) float64 {
	switch models.KindOf(fieldName) {
	case models.KindName:
		return 0.75
	case models.KindNumeric, models.KindDate:
		return 0.9
	default:
		return 0.8
	}
}

// editSimilarity is 1 minus the normalized Levenshtein distance.
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// tokenSetSimilarity matches each token against the closest token on the
// other side and averages the matched fraction of both sides, so token order
// and dropped middle names do not dominate the score.
func tokenSetSimilarity(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}
	return (matchedFraction(tokensA, tokensB) + matchedFraction(tokensB, tokensA)) / 2.0
}

func matchedFraction(from, against []string) float64 {
	matched := 0
	for _, tok := range from {
		best := 0.0
		for _, other := range against {
			if sim := editSimilarity(tok, other); sim > best {
				best = sim
			}
		}
		if best > tokenMatchThreshold {
			matched++
		}
	}
	return float64(matched) / float64(len(from))
}

// addressSimilarity compares whole normalized addresses, with a small bonus
// when the street name leads both values.
func addressSimilarity(a, b string) float64 {
	score := editSimilarity(a, b)
	firstA, _, _ := strings.Cut(a, " ")
	firstB, _, _ := strings.Cut(b, " ")
	if firstA != "" && firstA == firstB {
		score += streetBonus
	}
	return min(score, 1.0)
}
