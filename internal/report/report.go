// Package report writes the unified dataset produced by a reconciliation run:
// a timestamped JSON document, a copy under a stable "latest" name and a CSV
// summary for spreadsheet users.
package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/reconcile"
)

// SchemaVersion is the version of the document layout.
const SchemaVersion = "1.0"

// LatestFile is the name of the copy that always holds the newest document.
const LatestFile = "unified_bds_data_latest.json"

const timestampLayout = "20060102_150405"

// Stats are the run counters embedded in the document metadata.
type Stats struct {
	TotalRecords     int                    `json:"total_records"`
	SourcesProcessed int                    `json:"sources_processed"`
	DuplicatesMerged int                    `json:"duplicates_merged"`
	ValidationErrors int                    `json:"validation_errors"`
	DatabaseInserts  int64                  `json:"database_inserts"`
	DatabaseErrors   int                    `json:"database_errors"`
	Sources          []reconcile.SourceStat `json:"sources,omitempty"`
}

// Metadata describes a document.
type Metadata struct {
	GeneratedAt      time.Time `json:"generated_at"`
	RunID            string    `json:"run_id,omitempty"`
	TotalRecords     int       `json:"total_records"`
	SourcesProcessed []string  `json:"sources_processed"`
	SchemaVersion    string    `json:"schema_version"`
	Stats            Stats     `json:"stats"`
}

// Document is the unified dataset as written to disk.
type Document struct {
	Metadata  Metadata         `json:"metadata"`
	Companies []company.Record `json:"companies"`
}

// Build assembles a document from the valid records of a run.
// SourcesProcessed lists the distinct data sources of those records.
func Build(runID string, valid []company.Record, stats Stats, generatedAt time.Time) Document {
	seen := make(map[string]struct{})
	sources := []string{}
	for _, r := range valid {
		for _, ds := range r.DataSources {
			if _, ok := seen[ds]; ok {
				continue
			}
			seen[ds] = struct{}{}
			sources = append(sources, ds)
		}
	}
	slices.Sort(sources)

	companies := valid
	if companies == nil {
		companies = []company.Record{}
	}

	return Document{
		Metadata: Metadata{
			GeneratedAt:      generatedAt.UTC(),
			RunID:            runID,
			TotalRecords:     len(valid),
			SourcesProcessed: sources,
			SchemaVersion:    SchemaVersion,
			Stats:            stats,
		},
		Companies: companies,
	}
}

// StatsFrom converts reconciliation counters into document stats.
func StatsFrom(s reconcile.Stats, inserted int64, dbErrors int) Stats {
	processed := 0
	for _, src := range s.Sources {
		if src.Records > 0 {
			processed++
		}
	}
	return Stats{
		TotalRecords:     s.TotalRecords,
		SourcesProcessed: processed,
		DuplicatesMerged: s.DuplicatesMerged,
		ValidationErrors: s.ValidationErrors,
		DatabaseInserts:  inserted,
		DatabaseErrors:   dbErrors,
		Sources:          s.Sources,
	}
}

// Files are the paths written by Writer.Write.
type Files struct {
	Data    string `json:"data"`
	Latest  string `json:"latest"`
	Summary string `json:"summary"`
}

// Writer writes documents into an output directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write stores doc as a timestamped JSON file, replaces the latest copy and
// writes the CSV summary. The timestamp comes from the writer's clock.
func (w *Writer) Write(doc Document) (Files, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Files{}, eris.Wrapf(err, "report: create output dir %s", w.dir)
	}

	ts := w.now().Format(timestampLayout)
	files := Files{
		Data:    filepath.Join(w.dir, "unified_bds_data_"+ts+".json"),
		Latest:  filepath.Join(w.dir, LatestFile),
		Summary: filepath.Join(w.dir, "unified_bds_summary_"+ts+".csv"),
	}

	for _, path := range []string{files.Data, files.Latest} {
		if err := writeJSON(path, doc); err != nil {
			return Files{}, err
		}
	}
	if err := writeSummary(files.Summary, doc.Companies); err != nil {
		return Files{}, err
	}

	zap.L().Info("report written",
		zap.String("component", "report"),
		zap.String("data", files.Data),
		zap.String("summary", files.Summary),
		zap.Int("companies", len(doc.Companies)),
	)
	return files, nil
}

// writeJSON writes doc to a temp file in the same directory and renames it
// into place so readers never see a partial document.
func writeJSON(path string, doc Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.json")
	if err != nil {
		return eris.Wrap(err, "report: create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "report: encode %s", filepath.Base(path))
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "report: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "report: rename to %s", path)
	}
	return nil
}

var summaryHeader = []string{
	"name", "standard_name", "parent_company", "country_hq", "industry",
	"involvement_types", "data_sources", "confidence_score",
}

func writeSummary(path string, records []company.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return eris.Wrap(err, "report: write summary header")
	}
	for _, r := range records {
		row := []string{
			r.Name,
			r.StandardName,
			r.ParentCompany,
			r.CountryHQ,
			r.Industry,
			strings.Join(r.InvolvementTypes, ", "),
			strings.Join(r.DataSources, ", "),
			strconv.FormatFloat(r.ConfidenceScore, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "report: write summary row %s", r.ID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "report: flush summary")
	}
	return f.Close()
}

// ReadDocument loads a document written by Writer.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "report: decode %s", path)
	}
	return &doc, nil
}

// TopByConfidence returns up to n records with the highest confidence.
// Ties keep their input order.
func TopByConfidence(records []company.Record, n int) []company.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b company.Record) int {
		switch {
		case a.ConfidenceScore > b.ConfidenceScore:
			return -1
		case a.ConfidenceScore < b.ConfidenceScore:
			return 1
		default:
			return 0
		}
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// LogSummary logs the run counters and the ten most confident companies.
func LogSummary(doc Document) {
	log := zap.L().With(zap.String("component", "report"))
	s := doc.Metadata.Stats
	log.Info("unification summary",
		zap.Int("total_records", s.TotalRecords),
		zap.Int("valid_records", doc.Metadata.TotalRecords),
		zap.Int("sources_processed", s.SourcesProcessed),
		zap.Int("duplicates_merged", s.DuplicatesMerged),
		zap.Int("validation_errors", s.ValidationErrors),
		zap.Int64("database_inserts", s.DatabaseInserts),
		zap.Int("database_errors", s.DatabaseErrors),
	)
	for i, r := range TopByConfidence(doc.Companies, 10) {
		log.Info("top company",
			zap.Int("rank", i+1),
			zap.String("name", r.Name),
			zap.String("confidence", strconv.FormatFloat(r.ConfidenceScore, 'f', 2, 64)),
			zap.Int("sources", len(r.DataSources)),
		)
	}
}
