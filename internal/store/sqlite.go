package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/maplanning/lead-scout/internal/db"
	"github.com/maplanning/lead-scout/internal/model"
)

// SQLiteStore implements LeadStore using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	upsertSQL string
	now       func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	upsertSQL, err := db.UpsertSQL(db.SQLite, leadUpsert)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build upsert")
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn, upsertSQL: upsertSQL, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	source_id       TEXT NOT NULL,
	reference       TEXT NOT NULL,
	address         TEXT NOT NULL DEFAULT 'N/A',
	description     TEXT NOT NULL DEFAULT 'N/A',
	applicant       TEXT NOT NULL DEFAULT 'N/A',
	status          TEXT NOT NULL DEFAULT 'N/A',
	date_received   TEXT NOT NULL DEFAULT 'N/A',
	origin_link     TEXT NOT NULL DEFAULT '#',
	is_synthetic    BOOLEAN NOT NULL DEFAULT 0,
	score           INTEGER NOT NULL DEFAULT 0,
	priority        TEXT NOT NULL DEFAULT 'Low',
	reasons         TEXT NOT NULL DEFAULT '[]',
	workflow_status TEXT NOT NULL DEFAULT 'New',
	first_seen      DATETIME NOT NULL,
	last_seen       DATETIME NOT NULL,
	PRIMARY KEY (source_id, reference)
);

CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score DESC);
CREATE INDEX IF NOT EXISTS idx_leads_workflow_status ON leads(workflow_status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]model.PersistedLead, error) {
	rows, err := s.db.QueryContext(ctx,
		db.SelectSQL(leadsTable, leadColumns)+` ORDER BY score DESC, source_id, reference`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.PersistedLead
	for rows.Next() {
		p, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, p)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) Upsert(ctx context.Context, lead model.ScoredLead) (model.PersistedLead, error) {
	rec := prepare(lead, s.now)
	reasons, err := json.Marshal(nonNil(rec.Reasons))
	if err != nil {
		return model.PersistedLead{}, eris.Wrap(err, "sqlite: marshal reasons")
	}

	row := s.db.QueryRowContext(ctx, s.upsertSQL, leadArgs(rec, string(reasons))...)
	stored, err := scanSQLiteLead(row)
	if err != nil {
		return model.PersistedLead{}, eris.Wrapf(err, "sqlite: upsert lead %s/%s", rec.SourceID, rec.Reference)
	}
	return stored, nil
}

func (s *SQLiteStore) SetWorkflowStatus(ctx context.Context, key model.LeadKey, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET workflow_status = ? WHERE source_id = ? AND reference = ?`,
		status, key.SourceID, key.Reference,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set workflow status %s/%s", key.SourceID, key.Reference)
	}
	return checkRowsAffected(res)
}

func scanSQLiteLead(row scannable) (model.PersistedLead, error) {
	var reasons string
	p, err := scanLead(row, &reasons)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, eris.Wrap(err, "sqlite: scan lead")
	}
	if err := json.Unmarshal([]byte(reasons), &p.Reasons); err != nil {
		return p, eris.Wrap(err, "sqlite: unmarshal reasons")
	}
	return p, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
