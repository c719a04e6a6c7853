package entities

// Medication is one <Medication> record of an input document.
// Ref1 fields are optional and count as absent when empty.
type Medication struct {
	SubID      string `json:"sub_id"`
	Substance  string `json:"substance"`
	Advice     string `json:"advice"`
	Ref1ID     string `json:"ref_1_id,omitempty"`
	Ref1Name   string `json:"ref_1_name,omitempty"`
	Ref1Advice string `json:"ref_1_advice,omitempty"`
}
