// Package whoprofits searches the Who Profits company database for the
// exhibitors of a booth list and records the matches in the results file the
// whoprofits.org source loads.
package whoprofits

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultSearchURL is the Who Profits company search endpoint.
const DefaultSearchURL = "https://www.whoprofits.org/companies/find"

// cleanSuffixes are removed, in order and wherever they occur, to build the
// relaxed search term.
var cleanSuffixes = []string{
	" LLC", " Inc.", " Inc", " Ltd.", " Ltd", " Corporation", " Corp.",
	" Corp", " Company", " Co.", " Group", " (HPE)", " Guard",
}

// Downloader fetches a URL. fetcher.HTTPFetcher satisfies it.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Match is one row of the Who Profits search table judged relevant to the
// search term.
type Match struct {
	CompanyName  string `json:"company_name"`
	TradedIn     string `json:"traded_in"`
	Headquarters string `json:"headquarters"`
	Involvement  string `json:"involvement"`
	SearchTerm   string `json:"search_term"`
}

// Client runs searches against the Who Profits site. Request pacing and
// retries belong to the Downloader.
type Client struct {
	dl        Downloader
	searchURL string
}

// NewClient returns a Client. An empty searchURL uses DefaultSearchURL.
func NewClient(dl Downloader, searchURL string) *Client {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &Client{dl: dl, searchURL: searchURL}
}

// CleanName strips common legal suffixes and booth qualifiers from name.
func CleanName(name string) string {
	for _, s := range cleanSuffixes {
		name = strings.ReplaceAll(name, s, "")
	}
	return strings.TrimSpace(name)
}

// Variations returns the distinct search terms tried for name: the name
// itself, its cleaned form and, for multi-word names, the first word.
func Variations(name string) []string {
	terms := []string{name, CleanName(name)}
	if words := strings.Fields(name); len(words) > 1 {
		terms = append(terms, words[0])
	}

	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Search tries every variation of name and returns the relevant matches,
// deduplicated by company name in discovery order. A failed request is
// logged and the next variation is tried; only cancellation aborts.
func (c *Client) Search(ctx context.Context, name string) ([]Match, error) {
	var matches []Match
	seen := make(map[string]bool)

	for _, term := range Variations(name) {
		rows, err := c.query(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "whoprofits: search cancelled")
			}
			zap.L().Warn("whoprofits: search failed",
				zap.String("term", term),
				zap.Error(err),
			)
			continue
		}
		for _, m := range rows {
			if !Relevant(m.CompanyName, term) || seen[m.CompanyName] {
				continue
			}
			seen[m.CompanyName] = true
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// Relevant reports whether a result named company plausibly answers term:
// the whole term, or any of its words, occurs in the name, ignoring case.
func Relevant(company, term string) bool {
	company = strings.ToLower(company)
	term = strings.ToLower(term)
	if strings.Contains(company, term) {
		return true
	}
	for _, w := range strings.Fields(term) {
		if strings.Contains(company, w) {
			return true
		}
	}
	return false
}

func (c *Client) query(ctx context.Context, term string) ([]Match, error) {
	params := url.Values{}
	params.Set("Text", term)
	for _, k := range []string{"Name", "Category", "Sector", "Headquarter", "Revenue", "Traded", "Presence", "Settlement"} {
		params.Set(k, "")
	}
	params.Set("Type", "Table")

	body, err := c.dl.Download(ctx, c.searchURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	return ParseResults(body, term)
}

// ParseResults extracts the rows of the search results table. Rows with
// fewer than five cells are skipped.
func ParseResults(r io.Reader, term string) ([]Match, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "whoprofits: parse results page")
	}

	var out []Match
	doc.Find("table.search-tbl tbody tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 5 {
			return
		}
		cell := func(i int) string { return strings.TrimSpace(cols.Eq(i).Text()) }
		out = append(out, Match{
			CompanyName:  cell(1),
			TradedIn:     cell(2),
			Headquarters: cell(3),
			Involvement:  cell(4),
			SearchTerm:   term,
		})
	})
	return out, nil
}
