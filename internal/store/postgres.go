package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/casino-research/internal/db"
	"github.com/sells-group/casino-research/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS research_runs (
	id         TEXT PRIMARY KEY,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS research_history (
	id                  TEXT PRIMARY KEY REFERENCES research_runs(id) ON DELETE CASCADE,
	entry               JSONB NOT NULL,
	states              TEXT[] NOT NULL,
	casinos_found       INTEGER NOT NULL DEFAULT 0,
	offers_found        INTEGER NOT NULL DEFAULT 0,
	better_offers_found INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_comparisons (
	run_id           TEXT NOT NULL REFERENCES research_runs(id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	casino           TEXT NOT NULL,
	state            TEXT NOT NULL,
	current_offer    TEXT,
	discovered_offer TEXT NOT NULL,
	is_better        BOOLEAN NOT NULL,
	is_new           BOOLEAN NOT NULL,
	difference_notes TEXT NOT NULL,
	confidence_score INTEGER NOT NULL,
	website          TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS researched_websites (
	website  TEXT PRIMARY KEY,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_research_runs_created_at ON research_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_research_history_created_at ON research_history(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_comparisons_casino ON run_comparisons(casino, state);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveRun writes the run, its history entry and its comparisons in one
// transaction. Comparisons are bulk-loaded with COPY.
func (s *PostgresStore) SaveRun(ctx context.Context, result *model.ResearchResult, entry model.HistoryEntry) error {
	if result == nil || result.RunID == "" {
		return eris.New("postgres: save run: result has no run id")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal history entry")
	}
	created := result.Timestamp.UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save run")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO research_runs (id, result, created_at) VALUES ($1, $2, $3)`,
		result.RunID, resultJSON, created,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", result.RunID)
	}

	states := make([]string, len(entry.States))
	for i, st := range entry.States {
		states[i] = string(st)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO research_history (id, entry, states, casinos_found, offers_found, better_offers_found, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.RunID, entryJSON, states, entry.CasinosFound, entry.OffersFound, entry.BetterOffersFound, created,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert history %s", result.RunID)
	}

	if _, err := db.CopyFrom(ctx, tx, "run_comparisons", comparisonColumns, comparisonRows(result.RunID, result.OfferComparisons)); err != nil {
		return eris.Wrap(err, "postgres: copy comparisons")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save run")
}

func (s *PostgresStore) Latest(ctx context.Context) (*model.ResearchResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM research_runs ORDER BY created_at DESC LIMIT 1`,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest result")
	}
	var res model.ResearchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &res, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	q := `SELECT entry FROM research_history ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	defer rows.Close()

	out := []model.HistoryEntry{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history")
		}
		var h model.HistoryEntry
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal history")
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate history")
}

func (s *PostgresStore) DeleteHistory(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM research_runs WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "history entry %s", id)
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE research_runs, research_history, run_comparisons, researched_websites`)
	return eris.Wrap(err, "postgres: reset")
}

func (s *PostgresStore) ResearchedWebsites(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT website FROM researched_websites ORDER BY added_at, website`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list researched websites")
	}
	sites, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan websites")
	}
	if sites == nil {
		sites = []string{}
	}
	return sites, nil
}

func (s *PostgresStore) AddResearchedWebsites(ctx context.Context, websites []string) error {
	websites = cleanWebsites(websites)
	if len(websites) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO researched_websites (website, added_at)
		 SELECT unnest($1::text[]), $2
		 ON CONFLICT (website) DO NOTHING`,
		websites, s.now().UTC(),
	)
	return eris.Wrap(err, "postgres: add researched websites")
}
