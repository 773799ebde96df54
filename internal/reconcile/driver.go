// Package reconcile folds the raw records of every source into one canonical
// record per company.
package reconcile

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/resolve"
	"github.com/sells-group/bds-unify/internal/source"
)

const progressEvery = 100

// Validator checks a canonical record before it is persisted.
type Validator interface {
	Validate(r company.Record) (bool, []string)
}

// SourceStat summarizes one source's contribution to a run.
type SourceStat struct {
	Source   string        `json:"source"`
	Location string        `json:"location"`
	Status   source.Status `json:"status"`
	Records  int           `json:"records"`
	Error    string        `json:"error,omitempty"`
}

// Stats are the counters of a reconciliation run.
type Stats struct {
	TotalRecords     int          `json:"total_records"`
	DuplicatesMerged int          `json:"duplicates_merged"`
	ValidationErrors int          `json:"validation_errors"`
	Sources          []SourceStat `json:"sources"`
}

// Invalid is a canonical record that failed validation.
type Invalid struct {
	Record company.Record
	Errors []string
}

// Result is the outcome of a run. Records holds every canonical record in
// insertion order; Valid is the subset that passed validation.
type Result struct {
	Records []company.Record
	Valid   []company.Record
	Invalid []Invalid
	Stats   Stats
}

// Driver runs reconciliation passes.
type Driver struct {
	validator Validator
	now       func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock overrides the time source used for last_updated.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New creates a Driver. A nil validator accepts every record.
func New(v Validator, opts ...Option) *Driver {
	d := &Driver{
		validator: v,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run reconciles the records of results, taken in the given order, then
// validates every canonical record. A malformed raw record aborts the run.
func (d *Driver) Run(results []source.Result) (*Result, error) {
	log := zap.L().With(zap.String("component", "reconcile"))

	var (
		idx     = resolve.NewIndex()
		pos     = make(map[string]int)
		records []company.Record
		stats   Stats
	)

	for _, res := range results {
		stat := SourceStat{
			Source:   res.Source,
			Location: res.Location,
			Status:   res.Status,
			Records:  len(res.Records),
		}
		if res.Err != nil {
			stat.Error = res.Err.Error()
		}
		stats.Sources = append(stats.Sources, stat)

		if len(res.Records) == 0 {
			log.Info("nothing to reconcile from source",
				zap.String("source", res.Source),
				zap.String("status", string(res.Status)),
			)
			continue
		}

		log.Info("processing records", zap.String("source", res.Source), zap.Int("count", len(res.Records)))

		for i, raw := range res.Records {
			if i > 0 && i%progressEvery == 0 {
				log.Info("progress", zap.String("source", res.Source), zap.Int("processed", i), zap.Int("total", len(res.Records)))
			}

			normalized := resolve.NormalizeName(raw.Name)
			id := resolve.GenerateID(raw.Name)

			if existingID, ok := idx.Find(normalized, id); ok {
				p := pos[existingID]
				merged, err := company.Merge(records[p], raw, d.now())
				if err != nil {
					return nil, eris.Wrapf(err, "reconcile: merge %s record %d", res.Source, i)
				}
				records[p] = merged
				stats.DuplicatesMerged++
				log.Debug("merged duplicate",
					zap.String("id", existingID),
					zap.String("name", raw.Name),
					zap.String("source", res.Source),
				)
				continue
			}

			if err := company.CheckShape(raw); err != nil {
				return nil, eris.Wrapf(err, "reconcile: insert %s record %d", res.Source, i)
			}

			if idx.Has(id) {
				id = disambiguate(idx, id)
			}

			rec := company.Dedupe(raw)
			rec.ID = id
			rec.ConfidenceScore = company.Score(rec)
			rec.LastUpdated = d.now()

			idx.Add(normalized, id)
			pos[id] = len(records)
			records = append(records, rec)
		}
	}

	stats.TotalRecords = len(records)

	// Finalize scores for records that were never merged.
	for i := range records {
		records[i].ConfidenceScore = company.Score(records[i])
	}

	out := &Result{Records: records}
	for _, r := range records {
		if d.validator == nil {
			out.Valid = append(out.Valid, r)
			continue
		}
		ok, errs := d.validator.Validate(r)
		if ok {
			out.Valid = append(out.Valid, r)
			continue
		}
		stats.ValidationErrors++
		out.Invalid = append(out.Invalid, Invalid{Record: r, Errors: errs})
		log.Warn("validation failed",
			zap.String("id", r.ID),
			zap.String("name", r.Name),
			zap.Strings("errors", errs),
		)
	}
	out.Stats = stats

	log.Info("reconciliation complete",
		zap.Int("total_records", stats.TotalRecords),
		zap.Int("duplicates_merged", stats.DuplicatesMerged),
		zap.Int("validation_errors", stats.ValidationErrors),
	)
	return out, nil
}

// disambiguate suffixes id with the first free ordinal. Only records whose
// names normalize to "" share an id without matching.
func disambiguate(idx *resolve.Index, id string) string {
	for n := 2; ; n++ {
		candidate := id + "_" + strconv.Itoa(n)
		if !idx.Has(candidate) {
			return candidate
		}
	}
}
