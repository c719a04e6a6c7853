package entities

// MatchClass describes how a concept was chosen for a substance.
type MatchClass int

const (
	NotFound MatchClass = iota
	ExactOnlyMatch
	HighPriority
	MediumPriority
	LowPriority
)

// String returns the label surfaced as match_type in tool responses.
func (c MatchClass) String() string {
	switch c {
	case ExactOnlyMatch:
		return "Exact 'Product containing only' match"
	case HighPriority:
		return "High priority match"
	case MediumPriority:
		return "Medium priority match"
	case LowPriority:
		return "Low priority match"
	default:
		return "Not found"
	}
}

// MatchResult is the outcome of resolving one substance name.
type MatchResult struct {
	Substance  string
	Found      bool
	Concept    *Concept
	MatchClass MatchClass
}

// ConceptID returns the concept id or the not-found sentinel.
func (m MatchResult) ConceptID() string {
	if !m.Found || m.Concept == nil {
		return SnomedNotFound
	}
	return m.Concept.ConceptID
}

const SnomedNotFound = "SNOMED CT not found"
