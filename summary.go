package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/giygas/substance-mapper/mapper"
	"github.com/olekukonko/tablewriter"
)

var rule = strings.Repeat("=", 80)

// printSummary prints the totals, a table of found concepts and the
// substances that could not be mapped. Substances repeated in the document
// are listed once.
func printSummary(w io.Writer, result *mapper.Result) {
	s := result.Summary()

	green := color.New(color.Bold, color.FgGreen).SprintFunc()
	red := color.New(color.Bold, color.FgRed).SprintFunc()

	fmt.Fprintf(w, "\n%s\nXML MAPPING SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total medications: %d\n", s.Total)
	fmt.Fprintf(w, "Found: %s\n", green(s.Found))
	fmt.Fprintf(w, "Not found: %s\n", red(s.NotFound))
	fmt.Fprintf(w, "Success rate: %.1f%%\n", s.SuccessRate)

	seen := make(map[string]bool, len(result.Entries))
	var found [][]string
	var missing []string

	for _, e := range result.Entries {
		name := e.Medication.Substance
		if seen[name] {
			continue
		}
		seen[name] = true

		if e.Match.Found {
			found = append(found, []string{name, e.Match.ConceptID(), e.Match.MatchClass.String(), e.ATC.Codes})
		} else {
			missing = append(missing, name)
		}
	}

	if len(found) > 0 {
		fmt.Fprintln(w, "\nFound concept IDs:")

		tw := tablewriter.NewWriter(w)
		tw.SetHeader([]string{"substance", "concept id", "match type", "atc"})
		tw.SetAutoWrapText(false)
		tw.AppendBulk(found)
		tw.Render()
	}

	if len(missing) > 0 {
		fmt.Fprintln(w, "\nNot found:")
		for _, name := range missing {
			fmt.Fprintf(w, "   %s\n", red(name))
		}
	}
}
