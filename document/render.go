package document

import (
	"strings"

	"github.com/giygas/substance-mapper/entities"
)

const (
	// Header starts every output document
	Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

	rootName = "XML-File"
	xsiNS    = "http://www.w3.org/2001/XMLSchema-instance"
)

// Record is a medication together with its resolved codes
type Record struct {
	Medication entities.Medication
	SnomedCT   string
	ATC        string
}

// A raw \r would be normalized to \n by the next parser, so it is kept as
// a character reference.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\r", "&#13;")

type attr struct {
	name, value string
}

type element struct {
	name     string
	attrs    []attr
	text     string
	children []*element
}

func (e *element) add(name, text string) {
	e.children = append(e.children, &element{name: name, text: text})
}

// write renders e at level, indenting with tabs. Elements with text render
// inline, elements with children render them one per line and anything
// else self-closes.
func (e *element) write(b *strings.Builder, level int) {
	indent := strings.Repeat("\t", level)
	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(e.name)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.value))
		b.WriteByte('"')
	}

	switch {
	case strings.TrimSpace(e.text) != "":
		b.WriteByte('>')
		b.WriteString(textEscaper.Replace(e.text))
		b.WriteString("</")
		b.WriteString(e.name)
		b.WriteByte('>')
	case len(e.children) > 0:
		b.WriteString(">\n")
		for _, c := range e.children {
			c.write(b, level+1)
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteString("</")
		b.WriteString(e.name)
		b.WriteByte('>')
	default:
		b.WriteString("/>")
	}
}

// Render writes the output document for records. Fields appear in a fixed
// order; ref_1 fields only when set on the input.
func Render(records []Record) string {
	root := &element{
		name:  rootName,
		attrs: []attr{{"xmlns:xsi", xsiNS}},
	}

	for _, r := range records {
		med := &element{name: "Medication"}
		snomed := r.SnomedCT
		if snomed == "" {
			snomed = entities.SnomedNotFound
		}
		med.add("snomed_ct", snomed)
		med.add("atc", r.ATC)
		med.add("sub_id", r.Medication.SubID)
		med.add("substance", r.Medication.Substance)
		med.add("advice", r.Medication.Advice)
		if r.Medication.Ref1ID != "" {
			med.add("ref_1_id", r.Medication.Ref1ID)
		}
		if r.Medication.Ref1Name != "" {
			med.add("ref_1_name", r.Medication.Ref1Name)
		}
		if r.Medication.Ref1Advice != "" {
			med.add("ref_1_advice", r.Medication.Ref1Advice)
		}
		root.children = append(root.children, med)
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	root.write(&b, 0)
	return b.String()
}
