package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/db"
	"github.com/sells-group/bds-unify/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	retry   resilience.RetryConfig
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, retry resilience.RetryConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, retry: retry}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return migrate(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertCompanies writes records and replaces their child rows in a single
// transaction, retrying the whole transaction on transient errors.
func (s *PostgresStore) UpsertCompanies(ctx context.Context, records []company.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	b := newBatch(records)
	cfg := s.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("store.postgres", "upsert_companies")
	}

	n, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (int64, error) {
		return s.upsertBatch(ctx, b)
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("companies upserted",
		zap.String("component", "store.postgres"),
		zap.Int("records", len(records)),
		zap.Int64("rows_affected", n),
	)
	return n, nil
}

func (s *PostgresStore) upsertBatch(ctx context.Context, b batch) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin upsert")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "companies",
		Columns:      companyColumns,
		ConflictKeys: []string{"id"},
	}, b.companies)
	if err != nil {
		return 0, err
	}

	for i, c := range children {
		del := fmt.Sprintf("DELETE FROM %s WHERE company_id = ANY($1)", pgx.Identifier{c.table}.Sanitize())
		if _, err := tx.Exec(ctx, del, b.ids); err != nil {
			return 0, eris.Wrapf(err, "postgres: clear %s", c.table)
		}
		cols := append([]string{"company_id"}, c.columns...)
		if _, err := db.CopyFrom(ctx, tx, c.table, cols, b.children[i]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit upsert")
	}
	return n, nil
}

const getCompanySQL = `SELECT id, name, standard_name, parent_company, country_hq, industry,
	description, booth_number, divestment_priority, confidence_score, verification_status,
	involvement_details, last_updated, stock_symbols, sources, evidence_links, data_sources,
	reasons, boycott_actions, alternatives, campaigns, sectors, involvement_types, aliases
	FROM companies_full_view WHERE id = $1`

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*company.Record, error) {
	var (
		r                                                          company.Record
		standardName, parent, country, industry, desc, booth, prio *string
		status                                                     *string
		lastUpdated                                                *time.Time
	)
	err := s.pool.QueryRow(ctx, getCompanySQL, id).Scan(
		&r.ID, &r.Name, &standardName, &parent, &country, &industry,
		&desc, &booth, &prio, &r.ConfidenceScore, &status,
		&r.InvolvementDetails, &lastUpdated, &r.StockSymbols, &r.Sources, &r.EvidenceLinks, &r.DataSources,
		&r.Reasons, &r.BoycottActions, &r.Alternatives, &r.Campaigns, &r.Sectors, &r.InvolvementTypes, &r.Aliases,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: company %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}

	r.StandardName = deref(standardName)
	r.ParentCompany = deref(parent)
	r.CountryHQ = deref(country)
	r.Industry = deref(industry)
	r.Description = deref(desc)
	r.BoothNumber = deref(booth)
	r.DivestmentPriority = deref(prio)
	r.VerificationStatus = deref(status)
	if lastUpdated != nil {
		r.LastUpdated = lastUpdated.UTC()
	}
	return &r, nil
}

func (s *PostgresStore) StartRun(ctx context.Context, sources []string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		Sources:   sources,
		StartedAt: time.Now().UTC(),
	}
	sourcesJSON, err := json.Marshal(nonNil(sources))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run sources")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO unify_runs (id, status, sources, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, string(run.Status), sourcesJSON, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE unify_runs SET status = $1, summary = $2, completed_at = $3 WHERE id = $4`,
		string(RunStatusComplete), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE unify_runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

const pgRunColumns = `id, status, sources, summary, error, started_at, completed_at`

func scanPostgresRun(row pgx.Row) (*Run, error) {
	var (
		r           Run
		status      string
		sourcesJSON []byte
		summaryJSON []byte
		errStr      *string
	)
	if err := row.Scan(&r.ID, &status, &sourcesJSON, &summaryJSON, &errStr, &r.StartedAt, &r.CompletedAt); err != nil {
		return nil, err
	}

	r.Status = RunStatus(status)
	r.Error = deref(errStr)
	if err := decodeRunJSON(&r, sourcesJSON, summaryJSON); err != nil {
		return nil, eris.Wrapf(err, "decode run %s", r.ID)
	}
	return &r, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	r, err := scanPostgresRun(s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM unify_runs WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgRunColumns+` FROM unify_runs ORDER BY started_at DESC, id LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	return runs, nil
}

func decodeRunJSON(r *Run, sourcesJSON, summaryJSON []byte) error {
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &r.Sources); err != nil {
			return err
		}
	}
	if len(summaryJSON) > 0 {
		r.Summary = &RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return err
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
