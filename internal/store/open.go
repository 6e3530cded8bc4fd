package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/pkg/notion"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNotion   = "notion"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	DatabaseURL string
	Pool        *PoolConfig
	NotionToken string
	NotionDB    string
}

// Open constructs the configured backend and runs its migration.
func Open(ctx context.Context, opts Options) (LeadStore, error) {
	var (
		st  LeadStore
		err error
	)
	switch opts.Driver {
	case DriverSQLite, "":
		dsn := opts.DatabaseURL
		if dsn == "" {
			dsn = "leads.db"
		}
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		st, err = NewPostgres(ctx, opts.DatabaseURL, opts.Pool)
	case DriverNotion:
		if opts.NotionToken == "" || opts.NotionDB == "" {
			return nil, eris.New("store: notion requires token and lead_db")
		}
		st = NewNotion(notion.NewClient(opts.NotionToken), opts.NotionDB)
	case DriverMemory:
		st = NewMemory()
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
