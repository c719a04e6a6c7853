// Package validation checks user supplied tool arguments before they reach
// the terminology server or the substance register
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/substance-mapper/interfaces"
)

// MaxSubstanceLength is the longest accepted substance name in characters
const MaxSubstanceLength = 200

var (
	// Letters of any script including æøå and accents, digits, space and
	// the punctuation used in substance names
	substanceRegex = regexp.MustCompile(`^[\p{L}\p{M}0-9 \-.,+'()/]+$`)

	// Patterns that survive the character check but are never part of a
	// substance name
	dangerousPatterns = []string{
		"' or ", "--", "../", "union select", "drop table", "delete from", "insert into",
	}
)

// Validator implements interfaces.DataValidator
type Validator struct {
	maxDocumentSize int64
}

// NewValidator creates a validator accepting documents up to maxDocumentSize
// bytes. A size of 0 or less disables the size check.
func NewValidator(maxDocumentSize int64) interfaces.DataValidator {
	return &Validator{maxDocumentSize: maxDocumentSize}
}

// ValidateSubstance checks a substance name
func (v *Validator) ValidateSubstance(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("substance name cannot be empty")
	}

	if n := utf8.RuneCountInString(input); n > MaxSubstanceLength {
		return fmt.Errorf("substance name too long: %d characters, maximum %d", n, MaxSubstanceLength)
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("substance name is not valid UTF-8")
	}

	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("substance name contains potentially dangerous content")
		}
	}

	if !substanceRegex.MatchString(input) {
		return fmt.Errorf("substance name contains invalid characters. Only letters, digits, spaces and -.,+'()/ are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("substance name contains excessive character repetition")
	}

	return nil
}

// ValidateDocument checks the size and shape of an XML document argument
func (v *Validator) ValidateDocument(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fmt.Errorf("XML content cannot be empty")
	}

	if v.maxDocumentSize > 0 && int64(len(input)) > v.maxDocumentSize {
		return fmt.Errorf("XML content too large: %d bytes, maximum %d", len(input), v.maxDocumentSize)
	}

	if !strings.HasPrefix(trimmed, "<") {
		return fmt.Errorf("XML content must start with an element or declaration")
	}

	return nil
}

// hasExcessiveRepetition reports a character repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		prev, run = r, 1
	}
	return false
}
