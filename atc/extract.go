package atc

import (
	"regexp"
	"strings"
)

var atcLabelRe = regexp.MustCompile(`(?i)ATC-koder:\s*([^<]+)`)

// ExtractCodes collects the codes listed after every "ATC-koder:" label in
// html. Codes are trimmed and de-duplicated in first-seen order and joined
// with ", ". It returns "" when the page lists none.
func ExtractCodes(html string) string {
	seen := make(map[string]struct{})
	var codes []string

	for _, m := range atcLabelRe.FindAllStringSubmatch(html, -1) {
		for _, code := range strings.Split(m[1], ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}

	return strings.Join(codes, ", ")
}
