// Package textutil matches free-form labels against keyword lists. Sources
// use it to map account labels ("COMPTE TITRES M X", "P.E.A. ...") onto
// account types without caring about case, spacing, punctuation or accents.
package textutil

import (
	"regexp"
	"strings"
)

var separators = regexp.MustCompile(`[\s.\-']+`)

// Sites spell the same label with and without accents.
var accentFold = strings.NewReplacer(
	"à", "a", "â", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c",
)

// NormalizeName lowercases a label, folds accents and strips whitespace,
// dots, hyphens and apostrophes, so matchers can be written in one
// canonical form: "P.E.A. Monsieur X" and "PEA MONSIEUR X" normalize to
// the same string.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = accentFold.Replace(name)
	return separators.ReplaceAllString(name, "")
}

// MatchName reports whether the normalized label contains any of the
// matchers. Matchers are expected to be normalized already.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
