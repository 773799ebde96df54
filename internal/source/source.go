// Package source loads raw company records from the boycott data sources.
// Each source has a Loader registered in a fixed order; that order is the
// order in which records are reconciled.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/fetcher"
)

// Source names, also used as data_sources values.
const (
	BDSCoalition = "bdscoalition.ca"
	AFSC         = "investigate.afsc.org"
	TheWitness   = "boycott.thewitness"
	WhoProfits   = "whoprofits.org"
)

// Status is the outcome of loading one source.
type Status string

const (
	StatusOK      Status = "ok"      // records loaded
	StatusEmpty   Status = "empty"   // parsed, but no records
	StatusMissing Status = "missing" // required local file not found
	StatusSkipped Status = "skipped" // optional source not present
	StatusFailed  Status = "failed"  // fetch or parse error
)

// Result is the outcome of loading one source: its records, or the reason
// it contributed none.
type Result struct {
	Source   string
	Location string
	Status   Status
	Records  []company.Record
	Err      error
}

// Loader parses one source's export into raw records.
type Loader interface {
	// Name returns the source name, e.g. "bdscoalition.ca".
	Name() string
	// Load reads the export at location.
	Load(ctx context.Context, o *fetcher.Opener, location string) ([]company.Record, error)
}

// Registry maps source names to loaders in registration order.
type Registry struct {
	loaders map[string]Loader
	order   []string
}

// NewRegistry creates a registry with every known source, in processing order.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	r.Register(&bdsCoalition{})
	r.Register(&afscInvestigate{})
	r.Register(&theWitness{})
	r.Register(&whoProfits{})
	return r
}

// Register adds a loader. Registering a name twice replaces the loader but
// keeps its original position.
func (r *Registry) Register(l Loader) {
	name := l.Name()
	if _, ok := r.loaders[name]; !ok {
		r.order = append(r.order, name)
	}
	r.loaders[name] = l
}

// Get returns the loader for name.
func (r *Registry) Get(name string) (Loader, error) {
	l, ok := r.loaders[name]
	if !ok {
		return nil, eris.Errorf("source: unknown source %q", name)
	}
	return l, nil
}

// Names returns the registered source names in processing order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Plan checks specs against the registry and returns them in processing
// order. Unknown or repeated sources are rejected.
func (r *Registry) Plan(specs []Spec) ([]Spec, error) {
	byName := make(map[string]Spec, len(specs))
	for _, s := range specs {
		if _, ok := r.loaders[s.Name]; !ok {
			return nil, eris.Errorf("source: unknown source %q", s.Name)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, eris.Errorf("source: %q listed twice", s.Name)
		}
		if s.Location == "" {
			return nil, eris.Errorf("source: %q has no location", s.Name)
		}
		byName[s.Name] = s
	}

	planned := make([]Spec, 0, len(byName))
	for _, name := range r.order {
		if s, ok := byName[name]; ok && !s.Disabled {
			planned = append(planned, s)
		}
	}
	return planned, nil
}
