package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/giygas/substance-mapper/entities"
	"github.com/giygas/substance-mapper/interfaces"
	"github.com/giygas/substance-mapper/mapper"
)

const (
	DefaultMaxMedications = 10
	MaxMedicationsLimit   = 50

	ATCSourceLabel    = "Felleskatalogen (https://www.felleskatalogen.no/medisin/substansregister/)"
	SnomedSourceLabel = "SNOMED CT Norwegian Edition"

	noMedicationsError = "No medications found in XML input"
	noProductError     = "No medicinal product found for this substance"
)

// Services are the components the tools run against
type Services struct {
	Mapper    *mapper.Mapper
	Matcher   interfaces.SubstanceMatcher
	ATC       interfaces.ATCResolver
	Validator interfaces.DataValidator
}

// NewDefaultRegistry registers the four mapping tools
func NewDefaultRegistry(svc Services, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	substanceParam := Param{
		Name:        "substance_name",
		Type:        "string",
		Description: "Name of the substance, e.g. Paracetamol",
		Required:    true,
	}

	r.Register(&Tool{
		Name:        "map_medications_from_xml",
		Description: "Map every medication of an XML document to SNOMED CT and ATC codes",
		Params: []Param{
			{Name: "xml_content", Type: "string", Description: "XML document with Medication elements", Required: true},
			{Name: "max_medications", Type: "integer", Description: "Maximum number of medications to process (at most 50)", Default: DefaultMaxMedications},
		},
		Handler: svc.mapDocument,
	})
	r.Register(&Tool{
		Name:        "map_single_medication",
		Description: "Map one substance to its SNOMED CT concept and ATC codes",
		Params:      []Param{substanceParam},
		Handler:     svc.mapSingle,
	})
	r.Register(&Tool{
		Name:        "get_atc_codes",
		Description: "Look up the ATC codes of a substance",
		Params:      []Param{substanceParam},
		Handler:     svc.atcCodes,
	})
	r.Register(&Tool{
		Name:        "get_snomed_concept_id",
		Description: "Look up the SNOMED CT concept of a substance",
		Params:      []Param{substanceParam},
		Handler:     svc.snomedConcept,
	})

	return r
}

// ClampMaxMedications applies the default and the upper bound. The value
// is bounded before truncation so huge numbers cannot overflow int.
func ClampMaxMedications(n float64) int {
	switch {
	case n > MaxMedicationsLimit:
		return MaxMedicationsLimit
	case n < 1:
		return DefaultMaxMedications
	default:
		return int(n)
	}
}

type mapArgs struct {
	XMLContent     string   `json:"xml_content"`
	MaxMedications *float64 `json:"max_medications"`
}

type substanceArgs struct {
	SubstanceName string `json:"substance_name"`
}

type medicationJSON struct {
	SubID      string `json:"sub_id"`
	Substance  string `json:"substance"`
	Advice     string `json:"advice"`
	SnomedCT   string `json:"snomed_ct"`
	ATCCodes   string `json:"atc_codes"`
	Found      bool   `json:"found"`
	MatchType  string `json:"match_type"`
	Ref1ID     string `json:"ref_1_id,omitempty"`
	Ref1Name   string `json:"ref_1_name,omitempty"`
	Ref1Advice string `json:"ref_1_advice,omitempty"`
}

type mapResponse struct {
	Success     bool             `json:"success"`
	Error       string           `json:"error,omitempty"`
	XMLOutput   string           `json:"xml_output,omitempty"`
	Medications []medicationJSON `json:"medications"`
	Summary     mapper.Summary   `json:"summary"`
}

func mapFailure(msg string) mapResponse {
	return mapResponse{Error: msg, Medications: []medicationJSON{}}
}

func (s Services) mapDocument(ctx context.Context, raw json.RawMessage) (any, error) {
	var args mapArgs
	if err := decodeArgs(raw, &args); err != nil {
		return mapFailure(err.Error()), nil
	}
	if err := s.Validator.ValidateDocument(args.XMLContent); err != nil {
		return mapFailure(fmt.Sprintf("Invalid XML input: %v", err)), nil
	}

	limit := DefaultMaxMedications
	if args.MaxMedications != nil {
		limit = ClampMaxMedications(*args.MaxMedications)
	}

	result := s.Mapper.Map(ctx, args.XMLContent, limit)
	if len(result.Entries) == 0 {
		return mapFailure(noMedicationsError), nil
	}

	meds := make([]medicationJSON, 0, len(result.Entries))
	for _, e := range result.Entries {
		meds = append(meds, medicationJSON{
			SubID:      e.Medication.SubID,
			Substance:  e.Medication.Substance,
			Advice:     e.Medication.Advice,
			SnomedCT:   e.Match.ConceptID(),
			ATCCodes:   e.ATC.Codes,
			Found:      e.Match.Found,
			MatchType:  e.Match.MatchClass.String(),
			Ref1ID:     e.Medication.Ref1ID,
			Ref1Name:   e.Medication.Ref1Name,
			Ref1Advice: e.Medication.Ref1Advice,
		})
	}

	return mapResponse{
		Success:     true,
		XMLOutput:   result.Render(),
		Medications: meds,
		Summary:     result.Summary(),
	}, nil
}

type snomedJSON struct {
	ConceptID     string `json:"concept_id"`
	FSN           string `json:"fsn"`
	PT            string `json:"pt"`
	Status        string `json:"status"`
	EffectiveTime string `json:"effective_time"`
	MatchType     string `json:"match_type"`
}

type singleResponse struct {
	Success   bool        `json:"success"`
	Substance string      `json:"substance"`
	Error     string      `json:"error,omitempty"`
	SnomedCT  *snomedJSON `json:"snomed_ct,omitempty"`
	ATCCodes  string      `json:"atc_codes,omitempty"`
	Found     bool        `json:"found"`
}

func snomedFromMatch(m entities.MatchResult) *snomedJSON {
	out := &snomedJSON{ConceptID: m.ConceptID(), MatchType: m.MatchClass.String()}
	if m.Found && m.Concept != nil {
		out.FSN = m.Concept.FullySpecifiedName
		out.PT = m.Concept.PreferredTerm
		out.Status = m.Concept.DefinitionStatus
		out.EffectiveTime = m.Concept.EffectiveTime
	}
	return out
}

func (s Services) substance(raw json.RawMessage) (string, error) {
	var args substanceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	if err := s.Validator.ValidateSubstance(args.SubstanceName); err != nil {
		return args.SubstanceName, fmt.Errorf("invalid substance_name: %w", err)
	}
	return args.SubstanceName, nil
}

func (s Services) mapSingle(ctx context.Context, raw json.RawMessage) (any, error) {
	name, err := s.substance(raw)
	if err != nil {
		return singleResponse{Substance: name, Error: err.Error()}, nil
	}

	entry := s.Mapper.Resolve(ctx, entities.Medication{Substance: name})
	return singleResponse{
		Success:   true,
		Substance: name,
		SnomedCT:  snomedFromMatch(entry.Match),
		ATCCodes:  entry.ATC.Codes,
		Found:     entry.Match.Found,
	}, nil
}

type atcResponse struct {
	Success   bool   `json:"success"`
	Substance string `json:"substance"`
	Error     string `json:"error,omitempty"`
	ATCCodes  string `json:"atc_codes"`
	Source    string `json:"source,omitempty"`
}

func (s Services) atcCodes(ctx context.Context, raw json.RawMessage) (any, error) {
	name, err := s.substance(raw)
	if err != nil {
		return atcResponse{Substance: name, Error: err.Error(), ATCCodes: entities.ATCNotFound}, nil
	}

	res := s.ATC.Resolve(ctx, name)
	return atcResponse{
		Success:   true,
		Substance: name,
		ATCCodes:  res.Codes,
		Source:    ATCSourceLabel,
	}, nil
}

type conceptFound struct {
	Success       bool   `json:"success"`
	Substance     string `json:"substance"`
	ConceptID     string `json:"concept_id"`
	FSN           string `json:"fsn"`
	PT            string `json:"pt"`
	Status        string `json:"status"`
	EffectiveTime string `json:"effective_time"`
	MatchType     string `json:"match_type"`
	Source        string `json:"source"`
}

type conceptMissing struct {
	Success   bool   `json:"success"`
	Substance string `json:"substance"`
	ConceptID string `json:"concept_id"`
	Error     string `json:"error"`
	Source    string `json:"source"`
}

func (s Services) snomedConcept(ctx context.Context, raw json.RawMessage) (any, error) {
	name, err := s.substance(raw)
	if err != nil {
		return conceptMissing{
			Substance: name,
			ConceptID: entities.SnomedNotFound,
			Error:     err.Error(),
			Source:    SnomedSourceLabel,
		}, nil
	}

	match := s.Matcher.Resolve(ctx, name)
	if !match.Found || match.Concept == nil {
		return conceptMissing{
			Substance: name,
			ConceptID: entities.SnomedNotFound,
			Error:     noProductError,
			Source:    SnomedSourceLabel,
		}, nil
	}

	c := match.Concept
	return conceptFound{
		Success:       true,
		Substance:     name,
		ConceptID:     c.ConceptID,
		FSN:           c.FullySpecifiedName,
		PT:            c.PreferredTerm,
		Status:        c.DefinitionStatus,
		EffectiveTime: c.EffectiveTime,
		MatchType:     match.MatchClass.String(),
		Source:        SnomedSourceLabel,
	}, nil
}
