package matching

import (
	"reflect"
	"testing"

	"github.com/giygas/substance-mapper/entities"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		fsn       string
		pt        string
		substance string
		expected  int
	}{
		{"phrase in fsn", "Product containing only lithium (medicinal product)", "", "Lithium", ScoreExact},
		{"phrase in pt", "Lithium product", "Product containing only lithium", "lithium", ScoreExact},
		{"substance in fsn", "Product containing lithium and sodium", "", "Lithium", ScoreMedium},
		{"token in fsn", "Vitamin B12 product", "", "Vitamin D", ScorePartial},
		{"no match", "Paracetamol product", "", "Litium", ScoreNone},
		{"empty substance", "Paracetamol product", "", "", ScoreMedium},
		{"whitespace substance", "Paracetamol product", "", "   ", ScoreNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(concept("1", tt.fsn, tt.pt), tt.substance)
			if got != tt.expected {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.fsn, tt.substance, got, tt.expected)
			}
		})
	}
}

func TestScoreNeverReturnsHighTier(t *testing.T) {
	c := concept("1", "Product containing only lithium (medicinal product)", "")
	if got := Score(c, "Lithium"); got == ScoreHigh {
		t.Errorf("Score returned the classification only tier %d", got)
	}
}

func TestScoreMonotonic(t *testing.T) {
	substance := "Vitamin D"
	scores := []int{
		Score(concept("1", "Product containing only vitamin d", ""), substance),
		Score(concept("2", "Vitamin D product", ""), substance),
		Score(concept("3", "Vitamin B product", ""), substance),
		Score(concept("4", "Paracetamol product", ""), substance),
	}

	for i := 1; i < len(scores); i++ {
		if scores[i-1] < scores[i] {
			t.Errorf("Expected non-increasing scores, got %v", scores)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		fsn      string
		pt       string
		expected entities.MatchClass
	}{
		{"exact only", "Product containing only litium (medicinal product)", "", entities.ExactOnlyMatch},
		// Phrase only in the preferred term scores 100 but is not exact-only
		{"phrase in pt", "Litium product", "Product containing only litium", entities.HighPriority},
		{"substance in fsn", "Product containing litium", "", entities.MediumPriority},
		{"unrelated", "Paracetamol product", "", entities.LowPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(concept("1", tt.fsn, tt.pt), "Litium"); got != tt.expected {
				t.Errorf("Classify = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestVariations(t *testing.T) {
	tests := []struct {
		substance string
		expected  []string
	}{
		{"Hydrokodon", []string{"Hydrokodon", "hydrocodone", "hydrocodone bitartrate"}},
		{"hydrokortison", []string{"hydrokortison", "hydrocortisone", "cortisol"}},
		{"ARTEMETER", []string{"ARTEMETER", "artemether"}},
		{"Ofloksacin", []string{"Ofloksacin", "ofloxacin"}},
		{"Litium", []string{"Litium"}},
	}

	for _, tt := range tests {
		if got := Variations(tt.substance); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Variations(%q) = %v, want %v", tt.substance, got, tt.expected)
		}
	}
}

func TestCaseVariants(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Litium", []string{"Litium", "litium"}},
		{"vitamin d", []string{"vitamin d", "Vitamin D"}},
		{"ACETYLCYSTEIN", []string{"ACETYLCYSTEIN", "acetylcystein", "Acetylcystein"}},
	}

	for _, tt := range tests {
		if got := caseVariants(tt.input); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("caseVariants(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
