package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sf "github.com/snowflakedb/gosnowflake"
)

// snowflakeInsertChunk bounds the rows of one multi-row INSERT.
const snowflakeInsertChunk = 500

// Snowflake authentication failure codes returned by the login endpoint.
var snowflakeAuthCodes = map[int]bool{
	390100: true, // incorrect username or password
	390101: true, // user disabled
	390144: true, // JWT token invalid
}

// Snowflake is the managed-warehouse dialect, backed by gosnowflake.
// Identifiers are upper-cased so quoted and unquoted references agree.
type Snowflake struct{}

func (Snowflake) Name() string       { return "snowflake" }
func (Snowflake) DriverName() string { return "snowflake" }

func (Snowflake) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(strings.ToUpper(name), `"`, `""`) + `"`
}

func (s Snowflake) Table(schema, table string) string {
	return s.QuoteIdent(schema) + "." + s.QuoteIdent(table)
}

func (Snowflake) Placeholder(int) string { return "?" }

func (s Snowflake) AddColumnSQL(schema, table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s VARCHAR", s.Table(schema, table), s.QuoteIdent(column))
}

// BulkInsert issues multi-row INSERT statements of at most snowflakeInsertChunk rows.
func (s Snowflake) BulkInsert(ctx context.Context, tx *sql.Tx, schema, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	rowTuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", s.Table(schema, table), QuoteIdents(s, cols))

	for start := 0; start < len(rows); start += snowflakeInsertChunk {
		end := min(start+snowflakeInsertChunk, len(rows))
		chunk := rows[start:end]

		tuples := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(cols))
		for i, row := range chunk {
			tuples[i] = rowTuple
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, prefix+strings.Join(tuples, ", "), args...); err != nil {
			return err
		}
	}
	return nil
}

// IsConnectivityError treats SQLSTATE classes 08/28 and login failures as fatal.
func (Snowflake) IsConnectivityError(err error) bool {
	if isTransportError(err) {
		return true
	}
	var sfErr *sf.SnowflakeError
	if errors.As(err, &sfErr) {
		return sqlStateClass(sfErr.SQLState) || snowflakeAuthCodes[sfErr.Number]
	}
	return false
}
