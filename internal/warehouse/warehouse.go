package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guttosm/cryptopulse/config"
	sf "github.com/snowflakedb/gosnowflake"
)

// Warehouse is an open connection pool plus the dialect used to talk to it.
type Warehouse struct {
	DB      *sql.DB
	Dialect Dialect
	// DSN is kept for side channels that need their own connection
	// (e.g. the postgres LISTEN/NOTIFY change feed).
	DSN string
}

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// Open connects to the warehouse selected by cfg.Warehouse.Dialect.
//
// Behavior:
//   - Resolves the dialect and builds its DSN from cfg.
//   - Opens a database handle with sql.Open.
//   - Immediately pings the database to validate connectivity.
//
// Returns the live warehouse, or an error if the dialect is unknown or
// opening/pinging fails.
func Open(ctx context.Context, cfg config.Config) (*Warehouse, error) {
	d, err := New(cfg.Warehouse.Dialect)
	if err != nil {
		return nil, err
	}

	dsn, err := buildDSN(d, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpener(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Name(), err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name(), err)
	}

	return &Warehouse{DB: db, Dialect: d, DSN: dsn}, nil
}

func buildDSN(d Dialect, cfg config.Config) (string, error) {
	switch d.(type) {
	case Snowflake:
		dsn, err := sf.DSN(&sf.Config{
			Account:   cfg.Snowflake.Account,
			User:      cfg.Snowflake.User,
			Password:  cfg.Snowflake.Password,
			Database:  cfg.Snowflake.Database,
			Warehouse: cfg.Snowflake.Warehouse,
			Role:      cfg.Snowflake.Role,
		})
		if err != nil {
			return "", fmt.Errorf("build snowflake dsn: %w", err)
		}
		return dsn, nil
	default:
		if cfg.Postgres.URL != "" {
			return cfg.Postgres.URL, nil
		}
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.DBName,
			cfg.Postgres.SSLMode,
		), nil
	}
}

// Ping checks the connection; used by the readiness check.
func (w *Warehouse) Ping(ctx context.Context) error {
	return w.DB.PingContext(ctx)
}

// Close releases the connection pool.
func (w *Warehouse) Close() error {
	return w.DB.Close()
}
