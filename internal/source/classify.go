package source

import (
	"strings"
	"unicode/utf8"

	"github.com/sells-group/bds-unify/internal/company"
)

// summaryLimit bounds reason summaries; the full text goes in Details.
const summaryLimit = 200

type keywordRule struct {
	keywords    []string
	involvement string
	detail      string
}

// Keyword rules per source. Sources describe involvement in free text, and
// each wording maps differently.
var (
	afscRules = []keywordRule{
		{[]string{"settlement"}, company.InvolvementSettlements, "settlements"},
		{[]string{"military", "weapon", "defense"}, company.InvolvementMilitary, "military"},
	}
	witnessRules = []keywordRule{
		{[]string{"military", "weapon"}, company.InvolvementMilitary, ""},
		{[]string{"surveillance"}, company.InvolvementSurveillance, ""},
		{[]string{"settlement"}, company.InvolvementSettlements, ""},
		{[]string{"occupation"}, company.InvolvementOccupation, ""},
	}
	whoProfitsRules = []keywordRule{
		{[]string{"settlement"}, company.InvolvementSettlements, ""},
		{[]string{"military", "defense"}, company.InvolvementMilitary, ""},
		{[]string{"occupation"}, company.InvolvementOccupation, ""},
	}
)

// classify matches text against rules, appending involvement types and
// setting detail flags.
func classify(text string, rules []keywordRule, types []string, details map[string]bool) []string {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			types = append(types, rule.involvement)
			if rule.detail != "" && details != nil {
				details[rule.detail] = true
			}
			break
		}
	}
	return types
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// reasonFrom builds the single reason a source attaches to a record. An
// empty text falls back to a generic summary.
func reasonFrom(text, source, fallback string) company.Reason {
	text = strings.TrimSpace(text)
	if text == "" {
		return company.Reason{Summary: fallback, Source: source}
	}
	return company.Reason{
		Summary: truncate(text, summaryLimit),
		Details: text,
		Source:  source,
	}
}

// splitLinks splits a comma-separated link cell.
func splitLinks(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// trimAll trims every element and drops blanks.
func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
