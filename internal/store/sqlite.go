package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/casino-research/internal/model"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS research_runs (
	id         TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS research_history (
	id                  TEXT PRIMARY KEY,
	entry               TEXT NOT NULL,
	states              TEXT NOT NULL,
	casinos_found       INTEGER NOT NULL DEFAULT 0,
	offers_found        INTEGER NOT NULL DEFAULT 0,
	better_offers_found INTEGER NOT NULL DEFAULT 0,
	created_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_comparisons (
	run_id           TEXT NOT NULL,
	position         INTEGER NOT NULL,
	casino           TEXT NOT NULL,
	state            TEXT NOT NULL,
	current_offer    TEXT,
	discovered_offer TEXT NOT NULL,
	is_better        INTEGER NOT NULL,
	is_new           INTEGER NOT NULL,
	difference_notes TEXT NOT NULL,
	confidence_score INTEGER NOT NULL,
	website          TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS researched_websites (
	website  TEXT PRIMARY KEY,
	added_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_runs_created_at ON research_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_research_history_created_at ON research_history(created_at);
CREATE INDEX IF NOT EXISTS idx_run_comparisons_casino ON run_comparisons(casino, state);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, result *model.ResearchResult, entry model.HistoryEntry) error {
	if result == nil || result.RunID == "" {
		return eris.New("sqlite: save run: result has no run id")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal history entry")
	}
	created := result.Timestamp.UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save run")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO research_runs (id, result, created_at) VALUES (?, ?, ?)`,
		result.RunID, string(resultJSON), created,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", result.RunID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO research_history (id, entry, states, casinos_found, offers_found, better_offers_found, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, string(entryJSON), joinStates(entry.States),
		entry.CasinosFound, entry.OffersFound, entry.BetterOffersFound, created,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert history %s", result.RunID)
	}

	if len(result.OfferComparisons) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_comparisons (`+strings.Join(comparisonColumns, ", ")+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare comparison insert")
		}
		defer stmt.Close()
		for _, row := range comparisonRows(result.RunID, result.OfferComparisons) {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return eris.Wrapf(err, "sqlite: insert comparisons %s", result.RunID)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save run")
}

func (s *SQLiteStore) Latest(ctx context.Context) (*model.ResearchResult, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM research_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest result")
	}
	var res model.ResearchResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &res, nil
}

func (s *SQLiteStore) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	q := `SELECT entry FROM research_history ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	defer rows.Close()

	out := []model.HistoryEntry{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history")
		}
		var h model.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal history")
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

func (s *SQLiteStore) DeleteHistory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete history")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_comparisons WHERE run_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete comparisons %s", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM research_history WHERE id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete history %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM research_runs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "history entry %s", id)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete history")
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	for _, table := range []string{"run_comparisons", "research_history", "research_runs", "researched_websites"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return eris.Wrapf(err, "sqlite: reset %s", table)
		}
	}
	return nil
}

func (s *SQLiteStore) ResearchedWebsites(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT website FROM researched_websites ORDER BY added_at, website`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list researched websites")
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan website")
		}
		out = append(out, w)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate websites")
}

func (s *SQLiteStore) AddResearchedWebsites(ctx context.Context, websites []string) error {
	websites = cleanWebsites(websites)
	if len(websites) == 0 {
		return nil
	}
	now := s.now().UTC().Format(timeLayout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin add websites")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, w := range websites {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO researched_websites (website, added_at) VALUES (?, ?) ON CONFLICT(website) DO NOTHING`,
			w, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: add website %s", w)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit add websites")
}

func joinStates(states []model.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
