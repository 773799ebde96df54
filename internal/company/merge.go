package company

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// ErrMalformed marks a record whose list elements do not have the expected
// shape. Merging such a record would corrupt the canonical collection.
var ErrMalformed = eris.New("company: malformed record")

// Merge folds incoming into existing and returns the merged record. Neither
// input is modified. Field policies:
//   - standard_name, parent_company, country_hq, industry: fill if empty
//   - description: the strictly longer text wins
//   - list fields and data_sources: set union, existing order first
//   - stock_symbols: union keyed by symbol, existing entry wins
//   - involvement_details: shallow merge, incoming wins per key
//   - reasons: appended
//   - divestment_priority: only "shortlist" overrides
//   - booth_number: latest non-empty wins
//
// ConfidenceScore and LastUpdated are recomputed afterwards.
func Merge(existing, incoming Record, now time.Time) (Record, error) {
	if err := CheckShape(incoming); err != nil {
		return Record{}, err
	}

	m := existing.Clone()

	fillIfEmpty(&m.StandardName, incoming.StandardName)
	fillIfEmpty(&m.ParentCompany, incoming.ParentCompany)
	fillIfEmpty(&m.CountryHQ, incoming.CountryHQ)
	fillIfEmpty(&m.Industry, incoming.Industry)

	if utf8.RuneCountInString(incoming.Description) > utf8.RuneCountInString(m.Description) {
		m.Description = incoming.Description
	}

	m.Aliases = Union(m.Aliases, incoming.Aliases)
	m.Sectors = Union(m.Sectors, incoming.Sectors)
	m.InvolvementTypes = Union(m.InvolvementTypes, incoming.InvolvementTypes)
	m.Sources = Union(m.Sources, incoming.Sources)
	m.EvidenceLinks = Union(m.EvidenceLinks, incoming.EvidenceLinks)
	m.BoycottActions = Union(m.BoycottActions, incoming.BoycottActions)
	m.Alternatives = Union(m.Alternatives, incoming.Alternatives)
	m.Campaigns = Union(m.Campaigns, incoming.Campaigns)
	m.DataSources = Union(m.DataSources, incoming.DataSources)

	m.StockSymbols = mergeSymbols(m.StockSymbols, incoming.StockSymbols)

	if len(incoming.InvolvementDetails) > 0 {
		if m.InvolvementDetails == nil {
			m.InvolvementDetails = make(map[string]bool, len(incoming.InvolvementDetails))
		}
		for k, v := range incoming.InvolvementDetails {
			m.InvolvementDetails[k] = v
		}
	}

	m.Reasons = append(m.Reasons, incoming.Reasons...)

	if incoming.DivestmentPriority == PriorityShortlist {
		m.DivestmentPriority = PriorityShortlist
	}

	if strings.TrimSpace(incoming.BoothNumber) != "" {
		m.BoothNumber = incoming.BoothNumber
	}

	m.ConfidenceScore = Score(m)
	m.LastUpdated = now

	return m, nil
}

// CheckShape reports ErrMalformed when a stock symbol has no symbol or a
// reason carries neither a summary nor details.
func CheckShape(r Record) error {
	for i, s := range r.StockSymbols {
		if strings.TrimSpace(s.Symbol) == "" {
			return eris.Wrapf(ErrMalformed, "%q: stock_symbols[%d] has no symbol", r.Name, i)
		}
	}
	for i, reason := range r.Reasons {
		if strings.TrimSpace(reason.Summary) == "" && strings.TrimSpace(reason.Details) == "" {
			return eris.Wrapf(ErrMalformed, "%q: reasons[%d] is empty", r.Name, i)
		}
	}
	return nil
}

// Dedupe returns a copy of r with every list field reduced to distinct,
// non-blank values and stock symbols unique by symbol. It seeds a canonical
// record from a raw one.
func Dedupe(r Record) Record {
	d := r.Clone()
	d.Aliases = Union(d.Aliases, nil)
	d.Sectors = Union(d.Sectors, nil)
	d.InvolvementTypes = Union(d.InvolvementTypes, nil)
	d.Sources = Union(d.Sources, nil)
	d.EvidenceLinks = Union(d.EvidenceLinks, nil)
	d.BoycottActions = Union(d.BoycottActions, nil)
	d.Alternatives = Union(d.Alternatives, nil)
	d.Campaigns = Union(d.Campaigns, nil)
	d.DataSources = Union(d.DataSources, nil)
	d.StockSymbols = mergeSymbols(nil, d.StockSymbols)
	return d
}

// Union returns the distinct non-blank values of a followed by the values of
// b not already present. The result is nil when both inputs are empty.
func Union(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func mergeSymbols(existing, incoming []StockSymbol) []StockSymbol {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, s := range existing {
		seen[s.Symbol] = struct{}{}
	}
	for _, s := range incoming {
		if _, ok := seen[s.Symbol]; ok {
			continue
		}
		seen[s.Symbol] = struct{}{}
		existing = append(existing, s)
	}
	return existing
}

func fillIfEmpty(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(v) != "" {
		*dst = v
	}
}
