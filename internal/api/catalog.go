package api

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/report"
)

// Catalog is an immutable, query-ready view of one unified document.
type Catalog struct {
	generatedAt time.Time
	byName      []company.Record // sorted by name
	byID        map[string]int   // index into byName
	search      []string         // lowercased searchable text, parallel to byName
}

// NewCatalog indexes the companies of doc.
func NewCatalog(doc *report.Document) *Catalog {
	recs := slices.Clone(doc.Companies)
	slices.SortStableFunc(recs, func(a, b company.Record) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	})

	c := &Catalog{
		generatedAt: doc.Metadata.GeneratedAt,
		byName:      recs,
		byID:        make(map[string]int, len(recs)),
		search:      make([]string, len(recs)),
	}
	for i, r := range recs {
		c.byID[r.ID] = i
		c.search[i] = searchText(r)
	}
	return c
}

func searchText(r company.Record) string {
	parts := []string{r.Name, r.Description, r.Industry}
	parts = append(parts, r.InvolvementTypes...)
	parts = append(parts, r.Sectors...)
	for _, reason := range r.Reasons {
		parts = append(parts, reason.Summary, reason.Details)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// Len returns the number of companies.
func (c *Catalog) Len() int { return len(c.byName) }

// Get returns the company with id.
func (c *Catalog) Get(id string) (company.Record, bool) {
	i, ok := c.byID[id]
	if !ok {
		return company.Record{}, false
	}
	return c.byName[i], true
}

// Search returns companies whose name, description, industry, involvement
// types, sectors or reasons contain query, ignoring case, ordered by name.
// An empty query matches everything.
func (c *Catalog) Search(query string) []company.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.byName
	}
	var out []company.Record
	for i, text := range c.search {
		if strings.Contains(text, q) {
			out = append(out, c.byName[i])
		}
	}
	return out
}

// byConfidence orders by confidence descending, then name.
func byConfidence(a, b company.Record) int {
	return cmp.Or(
		cmp.Compare(b.ConfidenceScore, a.ConfidenceScore),
		cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
	)
}

// ByInvolvement returns companies tagged with involvementType, most
// confident first.
func (c *Catalog) ByInvolvement(involvementType string) []company.Record {
	var out []company.Record
	for _, r := range c.byName {
		if slices.Contains(r.InvolvementTypes, involvementType) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, byConfidence)
	return out
}

// Suggestion is a name completion.
type Suggestion struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Suggest returns up to limit companies whose name contains prefix,
// most confident first.
func (c *Catalog) Suggest(q string, limit int) []Suggestion {
	needle := strings.ToLower(strings.TrimSpace(q))
	var matches []company.Record
	for _, r := range c.byName {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			matches = append(matches, r)
		}
	}
	slices.SortStableFunc(matches, byConfidence)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Suggestion, len(matches))
	for i, r := range matches {
		out[i] = Suggestion{Name: r.Name, ID: r.ID}
	}
	return out
}

// InvolvementCount is the number of companies with an involvement type.
type InvolvementCount struct {
	InvolvementType string `json:"involvement_type"`
	Count           int    `json:"count"`
}

// CountryCount is the number of companies headquartered in a country.
type CountryCount struct {
	CountryHQ string `json:"country_hq"`
	Count     int    `json:"count"`
}

// IndustryCount is the number of companies in an industry.
type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

// Stats aggregates the catalog.
type Stats struct {
	TotalCompanies   int                `json:"totalCompanies"`
	TotalSources     int                `json:"totalSources"`
	InvolvementTypes []InvolvementCount `json:"involvementTypes"`
	TopCountries     []CountryCount     `json:"topCountries"`
	TopIndustries    []IndustryCount    `json:"topIndustries"`
}

const topN = 10

// Stats computes catalog-wide counts. Empty countries and industries are
// not counted.
func (c *Catalog) Stats() Stats {
	sources := make(map[string]struct{})
	involvement := make(map[string]int)
	countries := make(map[string]int)
	industries := make(map[string]int)

	for _, r := range c.byName {
		for _, ds := range r.DataSources {
			sources[ds] = struct{}{}
		}
		for _, t := range r.InvolvementTypes {
			involvement[t]++
		}
		if r.CountryHQ != "" {
			countries[r.CountryHQ]++
		}
		if r.Industry != "" {
			industries[r.Industry]++
		}
	}

	s := Stats{
		TotalCompanies:   len(c.byName),
		TotalSources:     len(sources),
		InvolvementTypes: []InvolvementCount{},
		TopCountries:     []CountryCount{},
		TopIndustries:    []IndustryCount{},
	}
	for _, kv := range ranked(involvement, 0) {
		s.InvolvementTypes = append(s.InvolvementTypes, InvolvementCount{InvolvementType: kv.key, Count: kv.count})
	}
	for _, kv := range ranked(countries, topN) {
		s.TopCountries = append(s.TopCountries, CountryCount{CountryHQ: kv.key, Count: kv.count})
	}
	for _, kv := range ranked(industries, topN) {
		s.TopIndustries = append(s.TopIndustries, IndustryCount{Industry: kv.key, Count: kv.count})
	}
	return s
}

type keyCount struct {
	key   string
	count int
}

// ranked sorts counts descending, ties by key, keeping at most limit
// entries (all when limit is 0).
func ranked(counts map[string]int, limit int) []keyCount {
	out := make([]keyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, keyCount{k, n})
	}
	slices.SortFunc(out, func(a, b keyCount) int {
		return cmp.Or(cmp.Compare(b.count, a.count), cmp.Compare(a.key, b.key))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
