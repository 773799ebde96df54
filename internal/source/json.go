package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/fetcher"
	"github.com/sells-group/bds-unify/internal/whoprofits"
)

const whoProfitsURL = "https://www.whoprofits.org"

func decodeJSON[T any](ctx context.Context, o *fetcher.Opener, location string) (*T, error) {
	rc, err := o.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	return fetcher.DecodeJSONObject[T](rc)
}

type witnessFile struct {
	Brands []witnessBrand `json:"sample_enhanced_brands"`
}

type witnessBrand struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Categories   []string `json:"categories"`
	Reason       string   `json:"reason"`
	Source       string   `json:"source"`
	HowToBoycott []string `json:"how_to_boycott"`
	Alternatives []string `json:"alternatives"`
}

// theWitness loads the boycott.thewitness brand dump.
type theWitness struct{}

func (*theWitness) Name() string { return TheWitness }

func (*theWitness) Load(ctx context.Context, o *fetcher.Opener, location string) ([]company.Record, error) {
	f, err := decodeJSON[witnessFile](ctx, o, location)
	if err != nil {
		return nil, err
	}

	records := make([]company.Record, 0, len(f.Brands))
	for _, b := range f.Brands {
		source := strings.TrimSpace(b.Source)
		r := company.Record{
			Name:             strings.TrimSpace(b.Name),
			Description:      strings.TrimSpace(b.Description),
			Sectors:          trimAll(b.Categories),
			InvolvementTypes: classify(b.Reason, witnessRules, nil, nil),
			Reasons:          []company.Reason{reasonFrom(b.Reason, source, "Listed in boycott database")},
			BoycottActions:   trimAll(b.HowToBoycott),
			Alternatives:     trimAll(b.Alternatives),
			DataSources:      []string{TheWitness},
		}
		if source != "" {
			r.Sources = []string{source}
		}
		records = append(records, r)
	}
	return records, nil
}

// whoProfits loads the results file written by the whoprofits command, keyed
// by exhibition booth.
// Booths are visited in sorted order.
type whoProfits struct{}

func (*whoProfits) Name() string { return WhoProfits }

func (*whoProfits) Load(ctx context.Context, o *fetcher.Opener, location string) ([]company.Record, error) {
	f, err := decodeJSON[whoprofits.File](ctx, o, location)
	if err != nil {
		return nil, err
	}

	booths := make([]string, 0, len(f.Results))
	for booth := range f.Results {
		booths = append(booths, booth)
	}
	sort.Strings(booths)

	var records []company.Record
	for _, booth := range booths {
		entry := f.Results[booth]
		if !entry.Found {
			continue
		}
		for _, m := range entry.Matches {
			involvement := strings.TrimSpace(m.Involvement)
			label := involvement
			if label == "" {
				label = "Listed"
			}
			records = append(records, company.Record{
				Name:             strings.TrimSpace(m.CompanyName),
				CountryHQ:        strings.TrimSpace(m.Headquarters),
				BoothNumber:      booth,
				InvolvementTypes: classify(involvement, whoProfitsRules, nil, nil),
				Reasons: []company.Reason{{
					Summary: truncate(fmt.Sprintf("Found in Who Profits database: %s", label), summaryLimit),
					Details: involvement,
					Source:  whoProfitsURL,
				}},
				Sources:     []string{whoProfitsURL},
				DataSources: []string{WhoProfits},
			})
		}
	}
	return records, nil
}
