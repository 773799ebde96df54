package company

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mergeTime = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

func TestMerge_ScalarFillIfEmpty(t *testing.T) {
	existing := Record{Name: "Acme", CountryHQ: "USA", DataSources: []string{"s1"}}
	incoming := Record{
		Name:          "ACME INC.",
		StandardName:  "Acme Incorporated",
		ParentCompany: "Acme Holdings",
		CountryHQ:     "Israel",
		Industry:      "Defense",
		DataSources:   []string{"s2"},
	}

	m, err := Merge(existing, incoming, mergeTime)
	require.NoError(t, err)

	assert.Equal(t, "Acme", m.Name)
	assert.Equal(t, "Acme Incorporated", m.StandardName)
	assert.Equal(t, "Acme Holdings", m.ParentCompany)
	assert.Equal(t, "USA", m.CountryHQ, "existing non-empty scalar wins")
	assert.Equal(t, "Defense", m.Industry)
}

func TestMerge_BlankExistingScalarIsFilled(t *testing.T) {
	m, err := Merge(Record{Industry: "  "}, Record{Industry: "Retail"}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, "Retail", m.Industry)
}

func TestMerge_DescriptionLongestWins(t *testing.T) {
	m, err := Merge(Record{Description: "short"}, Record{Description: "a much longer text"}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, "a much longer text", m.Description)

	m, err = Merge(Record{Description: "a much longer text"}, Record{Description: "short"}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, "a much longer text", m.Description)

	// Equal length keeps existing.
	m, err = Merge(Record{Description: "abc"}, Record{Description: "xyz"}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, "abc", m.Description)
}

func TestMerge_DescriptionMeasuredInRunes(t *testing.T) {
	// "ééé" is 6 bytes but 3 runes.
	m, err := Merge(Record{Description: "abcd"}, Record{Description: "ééé"}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, "abcd", m.Description)
}

func TestMerge_ListUnion(t *testing.T) {
	existing := Record{
		Sectors:     []string{"tech", "defense"},
		Sources:     []string{"https://a"},
		DataSources: []string{"s1"},
	}
	incoming := Record{
		Sectors:          []string{"defense", "surveillance"},
		Sources:          []string{"https://a", "https://b"},
		InvolvementTypes: []string{InvolvementMilitary},
		Aliases:          []string{"ACME"},
		EvidenceLinks:    []string{"https://proof"},
		BoycottActions:   []string{"Divest"},
		Alternatives:     []string{"Other Co"},
		Campaigns:        []string{"Campaign 2024"},
		DataSources:      []string{"s2", "s1"},
	}

	m, err := Merge(existing, incoming, mergeTime)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"tech", "defense", "surveillance"}, m.Sectors)
	assert.ElementsMatch(t, []string{"https://a", "https://b"}, m.Sources)
	assert.ElementsMatch(t, []string{InvolvementMilitary}, m.InvolvementTypes)
	assert.ElementsMatch(t, []string{"ACME"}, m.Aliases)
	assert.ElementsMatch(t, []string{"https://proof"}, m.EvidenceLinks)
	assert.ElementsMatch(t, []string{"Divest"}, m.BoycottActions)
	assert.ElementsMatch(t, []string{"Other Co"}, m.Alternatives)
	assert.ElementsMatch(t, []string{"Campaign 2024"}, m.Campaigns)
	assert.ElementsMatch(t, []string{"s1", "s2"}, m.DataSources)
}

func TestMerge_UnionIsIdempotent(t *testing.T) {
	a := Record{
		Name:        "Acme",
		Sectors:     []string{"tech"},
		Sources:     []string{"https://a"},
		DataSources: []string{"s1"},
	}
	b := Record{
		Name:        "Acme Inc",
		Sectors:     []string{"tech", "defense"},
		Sources:     []string{"https://b"},
		DataSources: []string{"s2"},
	}

	ab, err := Merge(a, b, mergeTime)
	require.NoError(t, err)

	again, err := Merge(b.Clone(), ab, mergeTime)
	require.NoError(t, err)

	assert.Len(t, again.Sectors, len(ab.Sectors))
	assert.Len(t, again.Sources, len(ab.Sources))
	assert.Len(t, again.DataSources, len(ab.DataSources))

	twice, err := Merge(ab, b, mergeTime)
	require.NoError(t, err)
	assert.Len(t, twice.Sectors, len(ab.Sectors))
	assert.Len(t, twice.DataSources, len(ab.DataSources))
}

func TestMerge_UnionDropsDuplicatesAlreadyInExisting(t *testing.T) {
	m, err := Merge(Record{Sectors: []string{"a", "a", ""}}, Record{}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, m.Sectors)
}

func TestMerge_StockSymbols(t *testing.T) {
	existing := Record{StockSymbols: []StockSymbol{{Symbol: "A", Exchange: "X"}}}
	incoming := Record{StockSymbols: []StockSymbol{
		{Symbol: "A", Exchange: "Y"},
		{Symbol: "B", Exchange: "Z"},
	}}

	m, err := Merge(existing, incoming, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, []StockSymbol{
		{Symbol: "A", Exchange: "X"},
		{Symbol: "B", Exchange: "Z"},
	}, m.StockSymbols)
}

func TestMerge_StockSymbolsRepeatedInIncoming(t *testing.T) {
	incoming := Record{StockSymbols: []StockSymbol{
		{Symbol: "B", Exchange: "Z"},
		{Symbol: "B", Exchange: "W"},
	}}
	m, err := Merge(Record{}, incoming, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, []StockSymbol{{Symbol: "B", Exchange: "Z"}}, m.StockSymbols)
}

func TestMerge_InvolvementDetailsIncomingOverwrites(t *testing.T) {
	existing := Record{InvolvementDetails: map[string]bool{"prisons": true, "borders": false}}
	incoming := Record{InvolvementDetails: map[string]bool{"borders": true, "military": true}}

	m, err := Merge(existing, incoming, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"prisons": true, "borders": true, "military": true}, m.InvolvementDetails)
}

func TestMerge_ReasonsAppend(t *testing.T) {
	r := Reason{Summary: "Listed in BDS Coalition database"}
	m, err := Merge(Record{Reasons: []Reason{r}}, Record{Reasons: []Reason{r}}, mergeTime)
	require.NoError(t, err)
	assert.Len(t, m.Reasons, 2, "reasons accumulate without dedupe")
}

func TestMerge_DivestmentPriority(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		incoming string
		want     string
	}{
		{"shortlist overrides empty", "", PriorityShortlist, PriorityShortlist},
		{"shortlist overrides lower tier", PriorityHigh, PriorityShortlist, PriorityShortlist},
		{"lower tier never overrides shortlist", PriorityShortlist, PriorityLow, PriorityShortlist},
		{"empty never overrides shortlist", PriorityShortlist, "", PriorityShortlist},
		{"non-shortlist keeps existing", PriorityMedium, PriorityHigh, PriorityMedium},
		{"non-shortlist keeps existing empty", "", PriorityHigh, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Merge(Record{DivestmentPriority: tt.existing}, Record{DivestmentPriority: tt.incoming}, mergeTime)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.DivestmentPriority)
		})
	}
}

func TestMerge_BoothNumberLatestWins(t *testing.T) {
	m, err := Merge(Record{BoothNumber: "12"}, Record{BoothNumber: "42"}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, "42", m.BoothNumber)

	m, err = Merge(Record{BoothNumber: "12"}, Record{}, mergeTime)
	require.NoError(t, err)
	assert.Equal(t, "12", m.BoothNumber)
}

func TestMerge_RecomputesScoreAndTimestamp(t *testing.T) {
	existing := Record{
		DataSources:     []string{"s1"},
		ConfidenceScore: 0.9,
		LastUpdated:     mergeTime.Add(-time.Hour),
	}
	m, err := Merge(existing, Record{DataSources: []string{"s2"}}, mergeTime)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.ConfidenceScore, 1e-9)
	assert.Equal(t, mergeTime, m.LastUpdated)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := Record{
		Sectors:            []string{"a"},
		StockSymbols:       []StockSymbol{{Symbol: "A", Exchange: "X"}},
		InvolvementDetails: map[string]bool{"prisons": true},
		Reasons:            []Reason{{Summary: "one"}},
		DataSources:        []string{"s1"},
	}
	incoming := Record{
		Sectors:            []string{"b"},
		StockSymbols:       []StockSymbol{{Symbol: "B", Exchange: "Y"}},
		InvolvementDetails: map[string]bool{"prisons": false},
		Reasons:            []Reason{{Summary: "two"}},
		DataSources:        []string{"s2"},
	}

	_, err := Merge(existing, incoming, mergeTime)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, existing.Sectors)
	assert.Len(t, existing.StockSymbols, 1)
	assert.True(t, existing.InvolvementDetails["prisons"])
	assert.Len(t, existing.Reasons, 1)
	assert.Equal(t, []string{"s1"}, existing.DataSources)
}

func TestMerge_MalformedStockSymbol(t *testing.T) {
	incoming := Record{Name: "Broken", StockSymbols: []StockSymbol{{Exchange: "NYSE"}}}
	_, err := Merge(Record{}, incoming, mergeTime)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformed))
	assert.Contains(t, err.Error(), "stock_symbols[0]")
}

func TestMerge_MalformedReason(t *testing.T) {
	incoming := Record{Name: "Broken", Reasons: []Reason{{Source: "https://x"}}}
	_, err := Merge(Record{}, incoming, mergeTime)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformed))
}

func TestDedupe(t *testing.T) {
	raw := Record{
		Sectors:      []string{"tech", "tech", " "},
		DataSources:  []string{"s1", "s1"},
		StockSymbols: []StockSymbol{{Symbol: "A", Exchange: "X"}, {Symbol: "A", Exchange: "Y"}},
	}
	d := Dedupe(raw)
	assert.Equal(t, []string{"tech"}, d.Sectors)
	assert.Equal(t, []string{"s1"}, d.DataSources)
	assert.Equal(t, []StockSymbol{{Symbol: "A", Exchange: "X"}}, d.StockSymbols)
	assert.Len(t, raw.Sectors, 3, "input untouched")
}

func TestUnion(t *testing.T) {
	assert.Nil(t, Union(nil, nil))
	assert.Equal(t, []string{"a", "b"}, Union([]string{"a"}, []string{"b", "a"}))
	assert.Equal(t, []string{"x"}, Union([]string{" ", "x"}, nil))
}
