package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/report"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var generated = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

func fixtureCompanies() []company.Record {
	return []company.Record{
		{
			ID: "comp_1_caterpillar", Name: "Caterpillar", CountryHQ: "United States", Industry: "Machinery",
			InvolvementTypes: []string{company.InvolvementOccupation, company.InvolvementMilitary},
			DataSources:      []string{"investigate.afsc.org", "bdscoalition.ca"},
			Reasons:          []company.Reason{{Summary: "Bulldozers used in home demolitions"}},
			ConfidenceScore:  0.7,
		},
		{
			ID: "comp_2_airbnb", Name: "airbnb", CountryHQ: "United States", Industry: "Travel",
			InvolvementTypes: []string{company.InvolvementSettlements},
			DataSources:      []string{"bdscoalition.ca"},
			Sectors:          []string{"Hospitality"},
			ConfidenceScore:  0.4,
		},
		{
			ID: "comp_3_elbit", Name: "Elbit Systems", CountryHQ: "Israel", Industry: "Defense",
			InvolvementTypes: []string{company.InvolvementMilitary, company.InvolvementSurveillance},
			DataSources:      []string{"investigate.afsc.org", "whoprofits.org", "boycott.thewitness"},
			ConfidenceScore:  0.9,
		},
		{
			ID: "comp_4_cafe", Name: "Café Cat", DataSources: []string{"boycott.thewitness"},
			Description: "coffee chain", ConfidenceScore: 0.4,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	w := report.NewWriter(dir)
	_, err := w.Write(report.Build("run-1", fixtureCompanies(), report.Stats{}, generated))
	require.NoError(t, err)

	s := NewServer(filepath.Join(dir, report.LatestFile), []string{"*"})
	require.NoError(t, s.Reload())
	return s
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func names(recs []company.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var body map[string]any
	rec := get(t, s.Handler(), "/api/health", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.EqualValues(t, 4, body["companies"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHealth_NoDataset(t *testing.T) {
	s := NewServer(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, s.Reload())

	var body map[string]string
	rec := get(t, s.Handler(), "/api/health", &body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "unhealthy", body["status"])

	rec = get(t, s.Handler(), "/api/stats", &body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestListCompanies(t *testing.T) {
	s := newTestServer(t)

	var page CompanyPage
	rec := get(t, s.Handler(), "/api/companies", &page)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"airbnb", "Café Cat", "Caterpillar", "Elbit Systems"}, names(page.Companies))
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Total: 4, TotalPages: 1}, page.Pagination)
}

func TestListCompanies_Pagination(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query     string
		wantNames []string
		want      Pagination
	}{
		{"page=1&limit=3", []string{"airbnb", "Café Cat", "Caterpillar"}, Pagination{Page: 1, Limit: 3, Total: 4, TotalPages: 2, HasNext: true}},
		{"page=2&limit=3", []string{"Elbit Systems"}, Pagination{Page: 2, Limit: 3, Total: 4, TotalPages: 2, HasPrev: true}},
		{"page=5&limit=3", []string{}, Pagination{Page: 5, Limit: 3, Total: 4, TotalPages: 2, HasPrev: true}},
		{"page=0&limit=-1", []string{"airbnb", "Café Cat", "Caterpillar", "Elbit Systems"}, Pagination{Page: 1, Limit: 20, Total: 4, TotalPages: 1}},
		{"limit=1000", []string{"airbnb", "Café Cat", "Caterpillar", "Elbit Systems"}, Pagination{Page: 1, Limit: 100, Total: 4, TotalPages: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var page CompanyPage
			get(t, s.Handler(), "/api/companies?"+tt.query, &page)
			assert.Equal(t, tt.wantNames, names(page.Companies))
			assert.Equal(t, tt.want, page.Pagination)
		})
	}
}

func TestListCompanies_Search(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		search string
		want   []string
	}{
		{"cat", []string{"Café Cat", "Caterpillar"}},
		{"DEFENSE", []string{"Elbit Systems"}},
		{"surveillance", []string{"Elbit Systems"}},
		{"hospitality", []string{"airbnb"}},
		{"demolitions", []string{"Caterpillar"}},
		{"coffee", []string{"Café Cat"}},
		{"nothing-matches", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			var page CompanyPage
			get(t, s.Handler(), "/api/companies?search="+tt.search, &page)
			assert.Equal(t, tt.want, names(page.Companies))
			assert.Equal(t, len(tt.want), page.Pagination.Total)
		})
	}
}

func TestGetCompany(t *testing.T) {
	s := newTestServer(t)

	var rec company.Record
	resp := get(t, s.Handler(), "/api/companies/comp_3_elbit", &rec)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Elbit Systems", rec.Name)
	assert.Len(t, rec.DataSources, 3)

	var body map[string]string
	resp = get(t, s.Handler(), "/api/companies/comp_missing", &body)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Company not found", body["error"])
}

func TestInvolvement(t *testing.T) {
	s := newTestServer(t)

	var page CompanyPage
	get(t, s.Handler(), "/api/involvement/"+company.InvolvementMilitary, &page)
	assert.Equal(t, []string{"Elbit Systems", "Caterpillar"}, names(page.Companies))
	assert.Equal(t, 2, page.Pagination.Total)

	get(t, s.Handler(), "/api/involvement/unknown", &page)
	assert.Empty(t, page.Companies)
	assert.Zero(t, page.Pagination.TotalPages)
}

func TestStats(t *testing.T) {
	s := newTestServer(t)

	var stats Stats
	get(t, s.Handler(), "/api/stats", &stats)
	assert.Equal(t, 4, stats.TotalCompanies)
	assert.Equal(t, 4, stats.TotalSources)
	assert.Equal(t, []InvolvementCount{
		{company.InvolvementMilitary, 2},
		{company.InvolvementOccupation, 1},
		{company.InvolvementSettlements, 1},
		{company.InvolvementSurveillance, 1},
	}, stats.InvolvementTypes)
	assert.Equal(t, []CountryCount{{"United States", 2}, {"Israel", 1}}, stats.TopCountries)
	assert.Len(t, stats.TopIndustries, 3)
}

func TestSuggestions(t *testing.T) {
	s := newTestServer(t)

	var got []Suggestion
	get(t, s.Handler(), "/api/search/suggestions?q=c", &got)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	get(t, s.Handler(), "/api/search/suggestions?q=ca", &got)
	assert.Equal(t, []Suggestion{
		{Name: "Caterpillar", ID: "comp_1_caterpillar"},
		{Name: "Café Cat", ID: "comp_4_cafe"},
	}, got)
}

func TestSuggest_Limit(t *testing.T) {
	var recs []company.Record
	for i := range 15 {
		recs = append(recs, company.Record{ID: fmt.Sprintf("comp_%02d", i), Name: fmt.Sprintf("Brand %02d", i)})
	}
	c := NewCatalog(&report.Document{Companies: recs})
	got := c.Suggest("brand", suggestionLimit)
	require.Len(t, got, suggestionLimit)
	assert.Equal(t, "Brand 00", got[0].Name)
}

func TestReload_KeepsPreviousOnError(t *testing.T) {
	s := newTestServer(t)
	s.path = filepath.Join(t.TempDir(), "gone.json")
	require.Error(t, s.Reload())

	var page CompanyPage
	get(t, s.Handler(), "/api/companies", &page)
	assert.Equal(t, 4, page.Pagination.Total)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
