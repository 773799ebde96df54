package store

import (
	"time"

	"github.com/sells-group/bds-unify/internal/company"
)

// Source URL kinds stored in company_sources.source_type.
const (
	sourceTypeSource   = "source"
	sourceTypeEvidence = "evidence"
)

var companyColumns = []string{
	"id", "name", "standard_name", "parent_company", "country_hq",
	"industry", "description", "booth_number", "divestment_priority",
	"confidence_score", "verification_status", "involvement_details",
	"last_updated",
}

// child is a table holding one list field of a company, keyed by company_id.
type child struct {
	table   string
	columns []string
	values  func(r company.Record) [][]any
}

var children = []child{
	{"company_stock_symbols", []string{"symbol", "exchange", "isin"}, func(r company.Record) [][]any {
		out := make([][]any, 0, len(r.StockSymbols))
		for _, s := range r.StockSymbols {
			out = append(out, []any{s.Symbol, s.Exchange, nullIfEmpty(s.ISIN)})
		}
		return out
	}},
	{"company_sources", []string{"source_url", "source_type"}, func(r company.Record) [][]any {
		out := make([][]any, 0, len(r.Sources)+len(r.EvidenceLinks))
		for _, s := range r.Sources {
			out = append(out, []any{s, sourceTypeSource})
		}
		for _, s := range r.EvidenceLinks {
			out = append(out, []any{s, sourceTypeEvidence})
		}
		return out
	}},
	{"company_data_sources", []string{"data_source"}, listOf(func(r company.Record) []string { return r.DataSources })},
	{"company_reasons", []string{"summary", "details", "source_url", "date_added"}, func(r company.Record) [][]any {
		out := make([][]any, 0, len(r.Reasons))
		for _, rs := range r.Reasons {
			out = append(out, []any{rs.Summary, nullIfEmpty(rs.Details), nullIfEmpty(rs.Source), parseDate(rs.DateAdded)})
		}
		return out
	}},
	{"company_boycott_actions", []string{"action"}, listOf(func(r company.Record) []string { return r.BoycottActions })},
	{"company_alternatives", []string{"alternative"}, listOf(func(r company.Record) []string { return r.Alternatives })},
	{"company_campaigns", []string{"campaign_name"}, listOf(func(r company.Record) []string { return r.Campaigns })},
	{"company_sectors", []string{"sector"}, listOf(func(r company.Record) []string { return r.Sectors })},
	{"company_involvement_types", []string{"involvement_type"}, listOf(func(r company.Record) []string { return r.InvolvementTypes })},
	{"company_aliases", []string{"alias"}, listOf(func(r company.Record) []string { return r.Aliases })},
}

func listOf(field func(company.Record) []string) func(company.Record) [][]any {
	return func(r company.Record) [][]any {
		vals := field(r)
		out := make([][]any, 0, len(vals))
		for _, v := range vals {
			out = append(out, []any{v})
		}
		return out
	}
}

// companyRow flattens the scalar fields of r in companyColumns order.
func companyRow(r company.Record) []any {
	var details any
	if len(r.InvolvementDetails) > 0 {
		details = r.InvolvementDetails
	}
	var lastUpdated any
	if !r.LastUpdated.IsZero() {
		lastUpdated = r.LastUpdated.UTC()
	}
	return []any{
		r.ID,
		r.Name,
		nullIfEmpty(r.StandardName),
		nullIfEmpty(r.ParentCompany),
		nullIfEmpty(r.CountryHQ),
		nullIfEmpty(r.Industry),
		nullIfEmpty(r.Description),
		nullIfEmpty(r.BoothNumber),
		nullIfEmpty(r.DivestmentPriority),
		r.ConfidenceScore,
		nullIfEmpty(r.VerificationStatus),
		details,
		lastUpdated,
	}
}

// batch is the row data for one upsert: company rows plus, per child table,
// rows prefixed with company_id.
type batch struct {
	ids       []string
	companies [][]any
	children  [][][]any
}

func newBatch(records []company.Record) batch {
	b := batch{
		ids:       make([]string, 0, len(records)),
		companies: make([][]any, 0, len(records)),
		children:  make([][][]any, len(children)),
	}
	for _, r := range records {
		b.ids = append(b.ids, r.ID)
		b.companies = append(b.companies, companyRow(r))
		for i, c := range children {
			for _, vals := range c.values(r) {
				b.children[i] = append(b.children[i], append([]any{r.ID}, vals...))
			}
		}
	}
	return b
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseDate converts a YYYY-MM-DD string for a DATE column. Anything else
// is stored as NULL.
func parseDate(s string) any {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return t
}
