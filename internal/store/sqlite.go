package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bds-unify/internal/company"
	"github.com/sells-group/bds-unify/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. List fields are
// stored as JSON text columns.
type SQLiteStore struct {
	db    *sql.DB
	retry resilience.RetryConfig
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, retry resilience.RetryConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, retry: retry}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	standard_name       TEXT,
	aliases             TEXT NOT NULL DEFAULT '[]',
	parent_company      TEXT,
	country_hq          TEXT,
	industry            TEXT,
	description         TEXT,
	stock_symbols       TEXT NOT NULL DEFAULT '[]',
	sectors             TEXT NOT NULL DEFAULT '[]',
	involvement_types   TEXT NOT NULL DEFAULT '[]',
	involvement_details TEXT NOT NULL DEFAULT '{}',
	divestment_priority TEXT,
	booth_number        TEXT,
	reasons             TEXT NOT NULL DEFAULT '[]',
	sources             TEXT NOT NULL DEFAULT '[]',
	evidence_links      TEXT NOT NULL DEFAULT '[]',
	boycott_actions     TEXT NOT NULL DEFAULT '[]',
	alternatives        TEXT NOT NULL DEFAULT '[]',
	campaigns           TEXT NOT NULL DEFAULT '[]',
	data_sources        TEXT NOT NULL DEFAULT '[]',
	confidence_score    REAL NOT NULL DEFAULT 0,
	verification_status TEXT,
	last_updated        DATETIME,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS unify_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	sources      TEXT NOT NULL DEFAULT '[]',
	summary      TEXT,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
CREATE INDEX IF NOT EXISTS idx_unify_runs_started ON unify_runs(started_at);
`

const sqliteUpsert = `
INSERT INTO companies (
	id, name, standard_name, aliases, parent_company, country_hq, industry, description,
	stock_symbols, sectors, involvement_types, involvement_details, divestment_priority,
	booth_number, reasons, sources, evidence_links, boycott_actions, alternatives,
	campaigns, data_sources, confidence_score, verification_status, last_updated
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	standard_name = excluded.standard_name,
	aliases = excluded.aliases,
	parent_company = excluded.parent_company,
	country_hq = excluded.country_hq,
	industry = excluded.industry,
	description = excluded.description,
	stock_symbols = excluded.stock_symbols,
	sectors = excluded.sectors,
	involvement_types = excluded.involvement_types,
	involvement_details = excluded.involvement_details,
	divestment_priority = excluded.divestment_priority,
	booth_number = excluded.booth_number,
	reasons = excluded.reasons,
	sources = excluded.sources,
	evidence_links = excluded.evidence_links,
	boycott_actions = excluded.boycott_actions,
	alternatives = excluded.alternatives,
	campaigns = excluded.campaigns,
	data_sources = excluded.data_sources,
	confidence_score = excluded.confidence_score,
	verification_status = excluded.verification_status,
	last_updated = excluded.last_updated`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCompanies(ctx context.Context, records []company.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	args := make([][]any, 0, len(records))
	for _, r := range records {
		a, err := sqliteArgs(r)
		if err != nil {
			return 0, err
		}
		args = append(args, a)
	}

	cfg := s.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("store.sqlite", "upsert_companies")
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (int64, error) {
		return s.upsertArgs(ctx, args)
	})
}

func (s *SQLiteStore) upsertArgs(ctx context.Context, args [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, a := range args {
		res, err := stmt.ExecContext(ctx, a...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert company %v", a[0])
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return n, nil
}

func sqliteArgs(r company.Record) ([]any, error) {
	lists := []any{
		r.Aliases, r.StockSymbols, r.Sectors, r.InvolvementTypes, r.InvolvementDetails,
		r.Reasons, r.Sources, r.EvidenceLinks, r.BoycottActions, r.Alternatives,
		r.Campaigns, r.DataSources,
	}
	enc := make([]string, len(lists))
	for i, v := range lists {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: marshal company %s", r.ID)
		}
		enc[i] = emptyJSON(string(b), i == 4)
	}

	var lastUpdated any
	if !r.LastUpdated.IsZero() {
		lastUpdated = r.LastUpdated.UTC()
	}
	return []any{
		r.ID, r.Name, nullIfEmpty(r.StandardName), enc[0], nullIfEmpty(r.ParentCompany),
		nullIfEmpty(r.CountryHQ), nullIfEmpty(r.Industry), nullIfEmpty(r.Description),
		enc[1], enc[2], enc[3], enc[4], nullIfEmpty(r.DivestmentPriority),
		nullIfEmpty(r.BoothNumber), enc[5], enc[6], enc[7], enc[8], enc[9],
		enc[10], enc[11], r.ConfidenceScore, nullIfEmpty(r.VerificationStatus), lastUpdated,
	}, nil
}

// emptyJSON replaces a JSON null with an empty array or object.
func emptyJSON(s string, object bool) string {
	if s != "null" {
		return s
	}
	if object {
		return "{}"
	}
	return "[]"
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*company.Record, error) {
	var (
		r                                                          company.Record
		standardName, parent, country, industry, desc, prio, booth sql.NullString
		status                                                     sql.NullString
		lastUpdated                                                sql.NullTime
		lists                                                      [12]string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, standard_name, aliases, parent_company,
		country_hq, industry, description, stock_symbols, sectors, involvement_types,
		involvement_details, divestment_priority, booth_number, reasons, sources, evidence_links,
		boycott_actions, alternatives, campaigns, data_sources, confidence_score,
		verification_status, last_updated FROM companies WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.Name, &standardName, &lists[0], &parent,
		&country, &industry, &desc, &lists[1], &lists[2], &lists[3],
		&lists[4], &prio, &booth, &lists[5], &lists[6], &lists[7],
		&lists[8], &lists[9], &lists[10], &lists[11], &r.ConfidenceScore,
		&status, &lastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: company %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}

	targets := []any{
		&r.Aliases, &r.StockSymbols, &r.Sectors, &r.InvolvementTypes, &r.InvolvementDetails,
		&r.Reasons, &r.Sources, &r.EvidenceLinks, &r.BoycottActions, &r.Alternatives,
		&r.Campaigns, &r.DataSources,
	}
	for i, dst := range targets {
		if err := json.Unmarshal([]byte(lists[i]), dst); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode company %s", id)
		}
	}

	r.StandardName = standardName.String
	r.ParentCompany = parent.String
	r.CountryHQ = country.String
	r.Industry = industry.String
	r.Description = desc.String
	r.DivestmentPriority = prio.String
	r.BoothNumber = booth.String
	r.VerificationStatus = status.String
	if lastUpdated.Valid {
		r.LastUpdated = lastUpdated.Time.UTC()
	}
	return &r, nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, sources []string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		Sources:   sources,
		StartedAt: time.Now().UTC(),
	}
	sourcesJSON, err := json.Marshal(nonNil(sources))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run sources")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO unify_runs (id, status, sources, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, string(run.Status), string(sourcesJSON), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE unify_runs SET status = ?, summary = ?, completed_at = ? WHERE id = ?`,
		string(RunStatusComplete), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE unify_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const sqliteRunColumns = `id, status, sources, summary, error, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row rowScanner) (*Run, error) {
	var (
		r           Run
		status      string
		sourcesJSON string
		summaryJSON sql.NullString
		errStr      sql.NullString
		completedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &status, &sourcesJSON, &summaryJSON, &errStr, &r.StartedAt, &completedAt); err != nil {
		return nil, err
	}

	r.Status = RunStatus(status)
	r.Error = errStr.String
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		r.CompletedAt = &t
	}
	if err := decodeRunJSON(&r, []byte(sourcesJSON), []byte(summaryJSON.String)); err != nil {
		return nil, eris.Wrapf(err, "decode run %s", r.ID)
	}
	return &r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	r, err := scanSQLiteRun(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM unify_runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM unify_runs ORDER BY started_at DESC, id LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}
	return runs, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", entity, id)
	}
	return nil
}
