package matching

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// synonyms maps lowercase Norwegian substance names to the international
// names the terminology server knows them by
var synonyms = map[string][]string{
	"hydrokodon":    {"hydrocodone", "hydrocodone bitartrate"},
	"hydrokortison": {"hydrocortisone", "cortisol"},
	"artemeter":     {"artemether"},
	"ofloksacin":    {"ofloxacin"},
}

// Variations returns the substance name followed by its known synonyms
func Variations(substance string) []string {
	out := []string{substance}
	return append(out, synonyms[strings.ToLower(substance)]...)
}

// caseVariants returns s as given, lowercased and title cased, without
// repeating identical strings
func caseVariants(s string) []string {
	title := cases.Title(language.Und).String(s)
	return dedupe([]string{s, strings.ToLower(s), title})
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
