package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/resilience"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverNone     = "none"
)

// Options selects and configures a Store implementation.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	Pool        *PoolConfig
	Retry       resilience.RetryConfig
}

// ResolveDriver returns the effective driver. An empty driver means
// postgres when a database URL is set and no persistence otherwise.
func (o Options) ResolveDriver() string {
	if o.Driver != "" {
		return o.Driver
	}
	if o.DatabaseURL != "" {
		return DriverPostgres
	}
	return DriverNone
}

// Open returns the Store selected by opts. The caller runs Migrate.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch d := opts.ResolveDriver(); d {
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires a database url")
		}
		s, err := NewPostgres(ctx, opts.DatabaseURL, opts.Pool, opts.Retry)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		if opts.SQLitePath == "" {
			return nil, eris.New("store: sqlite driver requires a path")
		}
		s, err := NewSQLite(opts.SQLitePath, opts.Retry)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverNone:
		return NopStore{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", d)
	}
}

// NopStore discards everything. Runs get ids so logs stay correlated.
type NopStore struct{}

func (NopStore) UpsertCompanies(context.Context, []company.Record) (int64, error) { return 0, nil }

func (NopStore) GetCompany(_ context.Context, id string) (*company.Record, error) {
	return nil, eris.Wrapf(ErrNotFound, "store: company %s", id)
}

func (NopStore) StartRun(_ context.Context, sources []string) (*Run, error) {
	return &Run{ID: uuid.New().String(), Status: RunStatusRunning, Sources: sources, StartedAt: time.Now().UTC()}, nil
}

func (NopStore) CompleteRun(context.Context, string, RunSummary) error { return nil }
func (NopStore) FailRun(context.Context, string, string) error         { return nil }

func (NopStore) GetRun(_ context.Context, runID string) (*Run, error) {
	return nil, eris.Wrapf(ErrNotFound, "store: run %s", runID)
}

func (NopStore) ListRuns(context.Context, int) ([]Run, error) { return nil, nil }

func (NopStore) Migrate(context.Context) error { return nil }
func (NopStore) Close() error                  { return nil }
