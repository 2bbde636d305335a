package services

import (
	"regexp"
	"strings"
)

// dosageFormAliases maps the wording seen in concept names and package
// listings onto a small canonical vocabulary used for compatibility checks.
var dosageFormAliases = map[string]string{
	"tablet":                "tablet",
	"tablets":               "tablet",
	"oral tablet":           "tablet",
	"tab":                   "tablet",
	"capsule":               "capsule",
	"capsules":              "capsule",
	"oral capsule":          "capsule",
	"cap":                   "capsule",
	"solution":              "solution",
	"oral solution":         "solution",
	"suspension":            "suspension",
	"oral suspension":       "suspension",
	"syrup":                 "solution",
	"injection":             "injection",
	"injectable solution":   "injection",
	"injectable suspension": "injection",
	"cream":                 "cream",
	"ointment":              "ointment",
	"gel":                   "gel",
	"patch":                 "patch",
	"transdermal patch":     "patch",
	"inhaler":               "inhaler",
	"inhalation":            "inhaler",
	"lozenge":               "lozenge",
	"suppository":           "suppository",
	"drops":                 "drops",
	"spray":                 "spray",
	"nasal spray":           "spray",
}

// formTokens is the alias list ordered longest-first so multi-word forms
// win over their single-word suffixes.
var formTokens = buildFormTokens()

var strengthPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*((?:mg/ml|mcg/ml|mg|mcg|ml|units?|g)\b|%)`)

func buildFormTokens() []string {
	tokens := make([]string, 0, len(dosageFormAliases))
	for alias := range dosageFormAliases {
		tokens = append(tokens, alias)
	}
	// insertion sort by descending length keeps this dependency free
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0 && len(tokens[j]) > len(tokens[j-1]); j-- {
			tokens[j], tokens[j-1] = tokens[j-1], tokens[j]
		}
	}
	return tokens
}

// CanonicalDosageForm reduces free-text dosage form wording to the
// canonical vocabulary. Returns "" when no known form is present.
func CanonicalDosageForm(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return ""
	}
	if canonical, ok := dosageFormAliases[lowered]; ok {
		return canonical
	}
	for _, token := range formTokens {
		if containsWord(lowered, token) {
			return dosageFormAliases[token]
		}
	}
	return ""
}

// CompatibleDosageForm reports whether two dosage form descriptions refer
// to the same canonical form. Unknown or empty forms are treated as
// compatible so sparse upstream data never filters everything out.
func CompatibleDosageForm(a, b string) bool {
	ca := CanonicalDosageForm(a)
	cb := CanonicalDosageForm(b)
	if ca == "" || cb == "" {
		return true
	}
	return ca == cb
}

// ParseStrength extracts the first strength expression from a concept
// name, e.g. "200 mg" out of "ibuprofen 200 MG Oral Tablet".
func ParseStrength(text string) string {
	match := strengthPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1] + " " + strings.ToLower(match[2])
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isWordChar(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
