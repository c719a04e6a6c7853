// Package document reads medication documents and writes the annotated
// output document
package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/giygas/substance-mapper/entities"
)

// ErrMultipleRoots is returned for input with more than one top-level element
var ErrMultipleRoots = errors.New("document has more than one root element")

// Parse extracts every Medication element below the document root, in
// document order. A leading <XML> wrapper is removed first. Malformed
// input returns nil and an error.
func Parse(content string) ([]entities.Medication, error) {
	if strings.HasPrefix(strings.TrimSpace(content), "<XML>") {
		content = strings.TrimSpace(strings.NewReplacer("<XML>", "", "</XML>", "").Replace(content))
	}

	dec := xml.NewDecoder(strings.NewReader(content))
	// Input is already decoded text whatever its declaration says
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		meds  []entities.Medication
		open  []*medicationState
		depth int
		roots int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				roots++
				if roots > 1 {
					return nil, ErrMultipleRoots
				}
			}

			if n := len(open); n > 0 {
				open[n-1].start(t.Name.Local, depth)
			}

			if t.Name.Local == "Medication" && depth > 1 {
				meds = append(meds, entities.Medication{})
				open = append(open, &medicationState{index: len(meds) - 1, depth: depth})
			}

		case xml.CharData:
			if n := len(open); n > 0 {
				open[n-1].text(t, depth)
			}

		case xml.EndElement:
			if n := len(open); n > 0 {
				st := open[n-1]
				if st.depth == depth {
					st.apply(&meds[st.index])
					open = open[:n-1]
				} else {
					st.end(depth)
				}
			}
			depth--
		}
	}

	if roots == 0 {
		return nil, errors.New("invalid XML: no root element")
	}

	return meds, nil
}

// medicationState collects the direct child fields of one Medication
type medicationState struct {
	index  int
	depth  int
	fields map[string]string

	// field being read, its depth and whether a nested element ended its text
	current string
	fdepth  int
	closed  bool
	buf     strings.Builder
}

func (s *medicationState) start(name string, depth int) {
	switch {
	case depth == s.depth+1:
		s.current, s.fdepth, s.closed = name, depth, false
		s.buf.Reset()
	case s.current != "" && depth > s.fdepth:
		// Only text before the first nested element counts
		s.closed = true
	}
}

func (s *medicationState) text(data xml.CharData, depth int) {
	if s.current != "" && depth == s.fdepth && !s.closed {
		s.buf.Write(data)
	}
}

func (s *medicationState) end(depth int) {
	if s.current == "" || depth != s.fdepth {
		return
	}
	if s.fields == nil {
		s.fields = make(map[string]string)
	}
	if _, seen := s.fields[s.current]; !seen {
		s.fields[s.current] = s.buf.String()
	}
	s.current = ""
}

func (s *medicationState) apply(m *entities.Medication) {
	m.SubID = s.fields["sub_id"]
	m.Substance = s.fields["substance"]
	m.Advice = s.fields["advice"]
	m.Ref1ID = s.fields["ref_1_id"]
	m.Ref1Name = s.fields["ref_1_name"]
	m.Ref1Advice = s.fields["ref_1_advice"]
}
