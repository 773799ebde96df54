package source

import (
	"context"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/fetcher"
)

// readTable reads a CSV or XLSX export, chosen by extension, into rows keyed
// by header.
func readTable(ctx context.Context, o *fetcher.Opener, location string) ([]fetcher.Row, error) {
	if fetcher.Ext(location) == ".xlsx" {
		path, cleanup, err := o.Localize(ctx, location)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		return fetcher.ReadXLSXRows(path, fetcher.XLSXOptions{})
	}

	rc, err := o.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	return fetcher.ReadCSVRows(ctx, rc)
}

// bdsCoalition loads the BDS Coalition shame list.
// Columns: Name, Parent Company, Country, Description, Sources / Links.
type bdsCoalition struct{}

func (*bdsCoalition) Name() string { return BDSCoalition }

func (*bdsCoalition) Load(ctx context.Context, o *fetcher.Opener, location string) ([]company.Record, error) {
	rows, err := readTable(ctx, o, location)
	if err != nil {
		return nil, err
	}

	records := make([]company.Record, 0, len(rows))
	for _, row := range rows {
		desc := row.Get("Description")
		links := row.Get("Sources / Links")

		records = append(records, company.Record{
			Name:          row.Get("Name"),
			ParentCompany: row.Get("Parent Company"),
			CountryHQ:     row.Get("Country"),
			Description:   desc,
			Reasons:       []company.Reason{reasonFrom(desc, links, "Listed in BDS Coalition database")},
			Sources:       splitLinks(links),
			DataSources:   []string{BDSCoalition},
		})
	}
	return records, nil
}

// afscInvestigate loads the AFSC Investigate dataset. The Prisons,
// Occupations and Borders columns are "1" when the company is involved.
type afscInvestigate struct{}

func (*afscInvestigate) Name() string { return AFSC }

func (*afscInvestigate) Load(ctx context.Context, o *fetcher.Opener, location string) ([]company.Record, error) {
	rows, err := readTable(ctx, o, location)
	if err != nil {
		return nil, err
	}

	records := make([]company.Record, 0, len(rows))
	for _, row := range rows {
		details := make(map[string]bool)
		var types []string

		if row.Get("Prisons") == "1" {
			details["prisons"] = true
			types = append(types, company.InvolvementPrisonIndustry)
		}
		if row.Get("Occupations") == "1" {
			details["occupations"] = true
			types = append(types, company.InvolvementOccupation)
		}
		if row.Get("Borders") == "1" {
			details["borders"] = true
			types = append(types, company.InvolvementBorderSecurity)
		}

		summary := row.Get("Summary")
		types = classify(summary, afscRules, types, details)

		link := row.Get("Link")
		r := company.Record{
			Name:               row.Get("Company Short Name"),
			StandardName:       row.Get("Company Standard Name"),
			CountryHQ:          row.Get("Country of HQ"),
			Industry:           row.Get("Industry"),
			Description:        summary,
			InvolvementTypes:   types,
			InvolvementDetails: details,
			Reasons:            []company.Reason{reasonFrom(summary, link, "Listed in AFSC Investigate database")},
			DataSources:        []string{AFSC},
		}
		if link != "" {
			r.Sources = []string{link}
		}
		if row.Get("Divestment Shortlist") == "1" {
			r.DivestmentPriority = company.PriorityShortlist
		}
		if symbol := row.Get("Primary Symbol"); symbol != "" {
			exchange := row.Get("Primary Exchange Name")
			if exchange == "" {
				exchange = row.Get("Primary Exchange Short")
			}
			r.StockSymbols = []company.StockSymbol{{
				Symbol:   symbol,
				Exchange: exchange,
				ISIN:     row.Get("Primary ISIN"),
			}}
		}

		records = append(records, r)
	}
	return records, nil
}
