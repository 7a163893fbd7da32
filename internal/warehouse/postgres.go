package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pq "github.com/lib/pq"
)

// Postgres is the default dialect, backed by lib/pq.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "postgres" }

func (Postgres) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }

func (p Postgres) Table(schema, table string) string {
	return p.QuoteIdent(schema) + "." + p.QuoteIdent(table)
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (p Postgres) AddColumnSQL(schema, table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT", p.Table(schema, table), p.QuoteIdent(column))
}

// BulkInsert streams rows through COPY FROM STDIN.
func (Postgres) BulkInsert(ctx context.Context, tx *sql.Tx, schema, table string, cols []string, rows [][]any) error {
	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(schema, table, cols...))
	if err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return err
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	return stmt.Close()
}

// IsConnectivityError treats SQLSTATE classes 08 (connection exception),
// 28 (invalid authorization) and 57P (operator intervention) as fatal.
func (Postgres) IsConnectivityError(err error) bool {
	if isTransportError(err) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return sqlStateClass(code) || (len(code) == 5 && code[:3] == "57P")
	}
	return false
}
