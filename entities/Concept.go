package entities

// Concept is a candidate returned by the terminology search.
type Concept struct {
	ConceptID          string `json:"conceptId"`
	FullySpecifiedName string `json:"fsn"`
	PreferredTerm      string `json:"pt"`
	Active             bool   `json:"active"`
	DefinitionStatus   string `json:"definitionStatus"`
	EffectiveTime      string `json:"effectiveTime"`
}
