// Package warehouse hides the differences between the SQL engines that can
// host the raw, staging and analytics schemas.
package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrUnsupportedDialect is returned for an unknown WAREHOUSE_DIALECT.
var ErrUnsupportedDialect = errors.New("unsupported warehouse dialect")

// Schema names shared by every dialect.
const (
	SchemaRaw       = "raw"
	SchemaStaging   = "staging"
	SchemaAnalytics = "analytics"
)

// Dialect captures the SQL that differs between engines.
type Dialect interface {
	// Name is the WAREHOUSE_DIALECT value ("postgres", "snowflake").
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// QuoteIdent quotes a single identifier.
	QuoteIdent(name string) string
	// Table returns the quoted schema-qualified name of a table.
	Table(schema, table string) string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// AddColumnSQL adds a nullable text column if it does not exist yet.
	AddColumnSQL(schema, table, column string) string
	// BulkInsert appends rows inside tx using the engine's fastest path.
	BulkInsert(ctx context.Context, tx *sql.Tx, schema, table string, cols []string, rows [][]any) error
	// IsConnectivityError reports connection and authentication failures,
	// which abort a load instead of failing a single file.
	IsConnectivityError(err error) bool
}

// New returns the dialect for name.
func New(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "snowflake":
		return Snowflake{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
}

// Placeholders returns n comma separated bind parameters starting at from.
func Placeholders(d Dialect, from, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Placeholder(from + i))
	}
	return b.String()
}

// QuoteIdents quotes and joins a column list.
func QuoteIdents(d Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// isTransportError covers failures below the SQL layer, common to every driver.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sqlStateClass reports whether a five-character SQLSTATE belongs to a
// connection (08) or authorization (28) class.
func sqlStateClass(state string) bool {
	return strings.HasPrefix(state, "08") || strings.HasPrefix(state, "28")
}
