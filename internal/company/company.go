// Package company defines the canonical record for a company listed by one or
// more boycott data sources, and the rules for merging two views of it.
package company

import (
	"time"
)

// Record is a company as seen by one source (a raw record) or the merged,
// canonical view across sources. The two share a shape; ID, ConfidenceScore
// and LastUpdated are only meaningful on canonical records.
type Record struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	StandardName  string   `json:"standard_name,omitempty"`
	Aliases       []string `json:"aliases,omitempty"`
	ParentCompany string   `json:"parent_company,omitempty"`
	CountryHQ     string   `json:"country_hq,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	Description   string   `json:"description,omitempty"`

	StockSymbols []StockSymbol `json:"stock_symbols,omitempty"`
	Sectors      []string      `json:"sectors,omitempty"`

	InvolvementTypes   []string        `json:"involvement_types,omitempty"`
	InvolvementDetails map[string]bool `json:"involvement_details,omitempty"`
	DivestmentPriority string          `json:"divestment_priority,omitempty"`
	BoothNumber        string          `json:"booth_number,omitempty"`

	Reasons        []Reason `json:"reasons,omitempty"`
	Sources        []string `json:"sources,omitempty"`
	EvidenceLinks  []string `json:"evidence_links,omitempty"`
	BoycottActions []string `json:"boycott_actions,omitempty"`
	Alternatives   []string `json:"alternatives,omitempty"`
	Campaigns      []string `json:"campaigns,omitempty"`

	DataSources        []string  `json:"data_sources"`
	ConfidenceScore    float64   `json:"confidence_score"`
	VerificationStatus string    `json:"verification_status,omitempty"`
	LastUpdated        time.Time `json:"last_updated"`
}

// StockSymbol is a listing of the company on an exchange.
type StockSymbol struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	ISIN     string `json:"isin,omitempty"`
}

// Reason explains why a source lists the company.
type Reason struct {
	Summary   string `json:"summary"`
	Details   string `json:"details,omitempty"`
	Source    string `json:"source,omitempty"`
	DateAdded string `json:"date_added,omitempty"`
}

// Divestment priority tiers. PriorityShortlist is the most urgent and is
// never downgraded by a merge.
const (
	PriorityShortlist = "shortlist"
	PriorityHigh      = "high"
	PriorityMedium    = "medium"
	PriorityLow       = "low"
)

// Verification statuses.
const (
	StatusVerified   = "verified"
	StatusUnverified = "unverified"
	StatusDisputed   = "disputed"
)

// Involvement types assigned by source loaders.
const (
	InvolvementSettlements    = "settlements"
	InvolvementMilitary       = "military_support"
	InvolvementSurveillance   = "surveillance"
	InvolvementOccupation     = "occupation"
	InvolvementPrisonIndustry = "prison_industry"
	InvolvementBorderSecurity = "border_security"
)

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	c.Aliases = cloneStrings(r.Aliases)
	c.Sectors = cloneStrings(r.Sectors)
	c.InvolvementTypes = cloneStrings(r.InvolvementTypes)
	c.Sources = cloneStrings(r.Sources)
	c.EvidenceLinks = cloneStrings(r.EvidenceLinks)
	c.BoycottActions = cloneStrings(r.BoycottActions)
	c.Alternatives = cloneStrings(r.Alternatives)
	c.Campaigns = cloneStrings(r.Campaigns)
	c.DataSources = cloneStrings(r.DataSources)
	if r.StockSymbols != nil {
		c.StockSymbols = append([]StockSymbol(nil), r.StockSymbols...)
	}
	if r.Reasons != nil {
		c.Reasons = append([]Reason(nil), r.Reasons...)
	}
	if r.InvolvementDetails != nil {
		c.InvolvementDetails = make(map[string]bool, len(r.InvolvementDetails))
		for k, v := range r.InvolvementDetails {
			c.InvolvementDetails[k] = v
		}
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
