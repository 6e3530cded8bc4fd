package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/db"
	"github.com/maplanning/lead-scout/internal/model"
)

// PostgresStore implements LeadStore using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	upsertSQL string
	now       func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
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
	return newPostgresWithPool(pool)
}

func newPostgresWithPool(pool db.Pool) (*PostgresStore, error) {
	upsertSQL, err := db.UpsertSQL(db.Postgres, leadUpsert)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build upsert")
	}
	return &PostgresStore{pool: pool, upsertSQL: upsertSQL, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	source_id       TEXT NOT NULL,
	reference       TEXT NOT NULL,
	address         TEXT NOT NULL DEFAULT 'N/A',
	description     TEXT NOT NULL DEFAULT 'N/A',
	applicant       TEXT NOT NULL DEFAULT 'N/A',
	status          TEXT NOT NULL DEFAULT 'N/A',
	date_received   TEXT NOT NULL DEFAULT 'N/A',
	origin_link     TEXT NOT NULL DEFAULT '#',
	is_synthetic    BOOLEAN NOT NULL DEFAULT false,
	score           INTEGER NOT NULL DEFAULT 0,
	priority        TEXT NOT NULL DEFAULT 'Low',
	reasons         TEXT[] NOT NULL DEFAULT '{}',
	workflow_status TEXT NOT NULL DEFAULT 'New',
	first_seen      TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (source_id, reference)
);

CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score DESC);
CREATE INDEX IF NOT EXISTS idx_leads_workflow_status ON leads(workflow_status);
`

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]model.PersistedLead, error) {
	rows, err := s.pool.Query(ctx,
		db.SelectSQL(leadsTable, leadColumns)+` ORDER BY score DESC, source_id, reference`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load leads")
	}
	defer rows.Close()

	var leads []model.PersistedLead
	for rows.Next() {
		var reasons []string
		p, err := scanLead(rows, &reasons)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		p.Reasons = reasons
		leads = append(leads, p)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) Upsert(ctx context.Context, lead model.ScoredLead) (model.PersistedLead, error) {
	rec := prepare(lead, s.now)

	var reasons []string
	stored, err := scanLead(s.pool.QueryRow(ctx, s.upsertSQL, leadArgs(rec, nonNil(rec.Reasons))...), &reasons)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PersistedLead{}, ErrNotFound
	}
	if err != nil {
		return model.PersistedLead{}, eris.Wrapf(err, "postgres: upsert lead %s/%s", rec.SourceID, rec.Reference)
	}
	stored.Reasons = reasons
	return stored, nil
}

func (s *PostgresStore) SetWorkflowStatus(ctx context.Context, key model.LeadKey, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET workflow_status = $1 WHERE source_id = $2 AND reference = $3`,
		status, key.SourceID, key.Reference,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set workflow status %s/%s", key.SourceID, key.Reference)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
