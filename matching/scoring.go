package matching

import (
	"strings"

	"github.com/giygas/substance-mapper/entities"
)

// Score tiers. ScoreHigh is only a classification threshold: a full phrase
// match always scores ScoreExact first, so no candidate ever scores 90.
const (
	ScoreExact   = 100
	ScoreHigh    = 90
	ScoreMedium  = 50
	ScorePartial = 25
	ScoreNone    = 0
)

// exactPhrase is the lowercase "product containing only" phrase for a substance
func exactPhrase(substance string) string {
	return "product containing only " + strings.ToLower(substance)
}

// IsExactOnlyMatch reports whether the concept's FSN names the substance as
// the only ingredient
func IsExactOnlyMatch(concept entities.Concept, substance string) bool {
	return strings.Contains(strings.ToLower(concept.FullySpecifiedName), exactPhrase(substance))
}

// Score rates how well a concept matches a substance name. Comparisons are
// case-insensitive.
func Score(concept entities.Concept, substance string) int {
	fsn := strings.ToLower(concept.FullySpecifiedName)
	pt := strings.ToLower(concept.PreferredTerm)
	lower := strings.ToLower(substance)
	phrase := exactPhrase(substance)

	switch {
	case strings.Contains(fsn, phrase), strings.Contains(pt, phrase):
		return ScoreExact
	case strings.Contains(fsn, lower):
		return ScoreMedium
	}

	for _, token := range strings.Fields(lower) {
		if strings.Contains(fsn, token) {
			return ScorePartial
		}
	}

	return ScoreNone
}

// Classify labels the concept chosen for a substance
func Classify(concept entities.Concept, substance string) entities.MatchClass {
	if IsExactOnlyMatch(concept, substance) {
		return entities.ExactOnlyMatch
	}

	switch score := Score(concept, substance); {
	case score >= ScoreHigh:
		return entities.HighPriority
	case score >= ScoreMedium:
		return entities.MediumPriority
	default:
		return entities.LowPriority
	}
}
