package whoprofits

import (
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LatestFile is the results file the whoprofits.org source reads by default.
const LatestFile = "who_profits_results_latest.json"

const timestampLayout = "20060102_150405"

//go:embed booths.yaml
var defaultBooths []byte

// Booth is an exhibitor to look up.
type Booth struct {
	Booth   string `yaml:"booth"`
	Company string `yaml:"company"`
}

type boothList struct {
	Booths []Booth `yaml:"booths"`
}

// LoadBooths reads a booth list from a YAML file. An empty path returns the
// built-in list.
func LoadBooths(path string) ([]Booth, error) {
	data := defaultBooths
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, eris.Wrapf(err, "whoprofits: read booths %s", path)
		}
	}

	var l boothList
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, eris.Wrap(err, "whoprofits: parse booths")
	}
	seen := make(map[string]bool, len(l.Booths))
	for _, b := range l.Booths {
		if b.Booth == "" || strings.TrimSpace(b.Company) == "" {
			return nil, eris.Errorf("whoprofits: booth %q needs a booth number and a company", b.Booth)
		}
		if seen[b.Booth] {
			return nil, eris.Errorf("whoprofits: booth %q listed twice", b.Booth)
		}
		seen[b.Booth] = true
	}
	return l.Booths, nil
}

// Metadata summarizes a search run. SearchDate is an ISO-8601 timestamp kept
// as text, since older results files carry it without a zone.
type Metadata struct {
	SearchDate        string `json:"search_date"`
	TotalCompanies    int    `json:"total_companies"`
	CompaniesFound    int    `json:"companies_found"`
	CompaniesNotFound int    `json:"companies_not_found"`
}

// Entry is the outcome for one booth.
type Entry struct {
	CompanyName string  `json:"company_name"`
	Found       bool    `json:"found"`
	Matches     []Match `json:"matches"`
}

// File is the results document, keyed by booth number.
type File struct {
	Metadata Metadata         `json:"metadata"`
	Results  map[string]Entry `json:"results"`
}

// Run searches every booth's company in order.
func (c *Client) Run(ctx context.Context, booths []Booth, now time.Time) (*File, error) {
	f := &File{
		Metadata: Metadata{SearchDate: now.Format(time.RFC3339), TotalCompanies: len(booths)},
		Results:  make(map[string]Entry, len(booths)),
	}

	for i, b := range booths {
		zap.L().Info("whoprofits: searching",
			zap.Int("n", i+1),
			zap.Int("of", len(booths)),
			zap.String("company", b.Company),
			zap.String("booth", b.Booth),
		)

		matches, err := c.Search(ctx, b.Company)
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = []Match{}
		}
		entry := Entry{CompanyName: b.Company, Found: len(matches) > 0, Matches: matches}
		if entry.Found {
			f.Metadata.CompaniesFound++
		} else {
			f.Metadata.CompaniesNotFound++
		}
		f.Results[b.Booth] = entry
	}
	return f, nil
}

// Files are the paths written by Write.
type Files struct {
	Results string
	Latest  string
	Summary string
}

// Write stores f as a results file stamped with now, the latest copy and a
// CSV summary in dir. booths sets the summary row order.
func Write(dir string, f *File, booths []Booth, now time.Time) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, eris.Wrapf(err, "whoprofits: create %s", dir)
	}
	ts := now.Format(timestampLayout)
	files := Files{
		Results: filepath.Join(dir, "who_profits_results_"+ts+".json"),
		Latest:  filepath.Join(dir, LatestFile),
		Summary: filepath.Join(dir, "who_profits_summary_"+ts+".csv"),
	}

	for _, path := range []string{files.Results, files.Latest} {
		if err := writeJSON(path, f); err != nil {
			return Files{}, err
		}
	}
	if err := writeSummary(files.Summary, f, booths); err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".whoprofits-*.json")
	if err != nil {
		return eris.Wrap(err, "whoprofits: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "whoprofits: encode results")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "whoprofits: close temp file")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "whoprofits: write %s", path)
}

func writeSummary(path string, f *File, booths []Booth) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "whoprofits: create %s", path)
	}
	defer out.Close() //nolint:errcheck

	w := csv.NewWriter(out)
	_ = w.Write([]string{"Booth", "Company Name", "Found in Who Profits", "Matches"})
	for _, b := range booths {
		e, ok := f.Results[b.Booth]
		if !ok {
			continue
		}
		names := make([]string, len(e.Matches))
		for i, m := range e.Matches {
			names[i] = m.CompanyName
		}
		matches := strings.Join(names, "; ")
		if matches == "" {
			matches = "None"
		}
		found := "False"
		if e.Found {
			found = "True"
		}
		_ = w.Write([]string{b.Booth, e.CompanyName, found, matches})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "whoprofits: write summary")
	}
	return out.Close()
}
