package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bds-unify/internal/config"
	"github.com/sells-group/bds-unify/internal/fetcher"
	"github.com/sells-group/bds-unify/internal/source"
	"github.com/sells-group/bds-unify/internal/whoprofits"
)

const whoProfitsPage = `<html><body><table class="search-tbl"><tbody>
<tr><td></td><td>Glencore PLC</td><td>London</td><td>Switzerland</td><td>Settlement construction</td></tr>
</tbody></table></body></html>`

func TestWhoProfitsCommand_Flags(t *testing.T) {
	for _, name := range []string{"booths", "output-dir", "search-url", "rate"} {
		assert.NotNil(t, whoprofitsCmd.Flags().Lookup(name), "whoprofits should have --%s flag", name)
	}
	assert.Equal(t, whoprofits.DefaultSearchURL, whoprofitsCmd.Flags().Lookup("search-url").DefValue)
}

func TestWhoProfitsDir(t *testing.T) {
	cfg = &config.Config{Sources: config.SourcesConfig{Dir: "data"}}
	assert.Equal(t, filepath.Join("data", "dontbuyintooccupation.org", "output"), whoProfitsDir())
}

func TestRunWhoProfits_FeedsSourceLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Text") != "Glencore Ltd." {
			_, _ = w.Write([]byte(`<html></html>`))
			return
		}
		_, _ = w.Write([]byte(whoProfitsPage))
	}))
	defer srv.Close()

	dl := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1, DefaultRate: 1000})
	client := whoprofits.NewClient(dl, srv.URL)
	booths := []whoprofits.Booth{{Booth: "48", Company: "Glencore Ltd."}, {Booth: "44", Company: "Amgen"}}
	outDir := t.TempDir()

	f, files, err := runWhoProfits(context.Background(), client, booths, outDir, time.Date(2025, 8, 20, 14, 30, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, f.Metadata.CompaniesFound)
	assert.Equal(t, filepath.Join(outDir, whoprofits.LatestFile), files.Latest)

	loader, err := source.NewRegistry().Get(source.WhoProfits)
	require.NoError(t, err)
	records, err := loader.Load(context.Background(), fetcher.NewOpener(outDir, outDir, nil, nil), whoprofits.LatestFile)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Glencore PLC", records[0].Name)
	assert.Equal(t, "Switzerland", records[0].CountryHQ)
	assert.Equal(t, "48", records[0].BoothNumber)
}

func TestFormatWhoProfits(t *testing.T) {
	booths := []whoprofits.Booth{{Booth: "48", Company: "Glencore Ltd."}, {Booth: "44", Company: "Amgen"}}
	f := &whoprofits.File{
		Metadata: whoprofits.Metadata{TotalCompanies: 2, CompaniesFound: 1, CompaniesNotFound: 1},
		Results: map[string]whoprofits.Entry{
			"48": {CompanyName: "Glencore Ltd.", Found: true, Matches: []whoprofits.Match{{CompanyName: "Glencore PLC", Headquarters: "Switzerland"}}},
			"44": {CompanyName: "Amgen", Matches: []whoprofits.Match{}},
		},
	}

	var buf bytes.Buffer
	formatWhoProfits(&buf, f, booths)
	out := buf.String()
	assert.Contains(t, out, "Companies searched: 2")
	assert.Contains(t, out, "Booth 48: Glencore Ltd.")
	assert.Contains(t, out, "  - Glencore PLC (Switzerland)")
	assert.NotContains(t, out, "Amgen")
}
