// Package resolve decides which company records describe the same real-world entity.
package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// suffixPatterns strip trailing legal-form tokens. They run once each, in
// this order, so "Elbit Systems Group Ltd" loses "Ltd" and then "Group",
// while "Acme Inc Ltd" keeps "Inc" because its pattern has already run.
var suffixPatterns = compileSuffixes(
	`LLC`, `Inc\.?`, `Ltd\.?`, `Corporation`,
	`Corp\.?`, `Company`, `Co\.?`, `Group`,
	`plc`, `PLC`, `SE`, `SA`, `AG`,
	`GmbH`, `NV`, `BV`, `AB`, `AS`,
)

func compileSuffixes(tokens ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(tokens))
	for i, tok := range tokens {
		res[i] = regexp.MustCompile(`(?i)\s+` + tok + `$`)
	}
	return res
}

// NormalizeName canonicalizes a company name for comparison by:
//  1. Folding Unicode compatibility forms (NFKC) and trimming whitespace
//  2. Removing trailing corporate suffixes (LLC, Inc, Corp, GmbH, ...)
//  3. Converting to lowercase
//  4. Dropping every rune that is not a letter, number, underscore or whitespace
//  5. Collapsing runs of whitespace into single spaces
//
// Empty or whitespace-only input yields "".
func NormalizeName(name string) string {
	name = strings.TrimSpace(norm.NFKC.String(name))
	if name == "" {
		return ""
	}

	for _, re := range suffixPatterns {
		name = re.ReplaceAllString(name, "")
	}
	name = strings.ToLower(name)

	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, name)

	return strings.Join(strings.Fields(name), " ")
}
