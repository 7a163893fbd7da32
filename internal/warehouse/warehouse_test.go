package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/cryptopulse/config"
	pq "github.com/lib/pq"
	sf "github.com/snowflakedb/gosnowflake"
)

func TestNew(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"postgres", "postgres", false},
		{"PostgreSQL", "postgres", false},
		{"snowflake", "snowflake", false},
		{"mysql", "", true},
	}
	for _, c := range cases {
		d, err := New(c.in)
		if c.wantErr {
			if !errors.Is(err, ErrUnsupportedDialect) {
				t.Fatalf("New(%q) err=%v, want ErrUnsupportedDialect", c.in, err)
			}
			continue
		}
		if err != nil || d.Name() != c.want {
			t.Fatalf("New(%q)=%v,%v", c.in, d, err)
		}
	}
}

func TestDialectSQL(t *testing.T) {
	pg := Postgres{}
	if got := pg.Table("raw", "user_trades"); got != `"raw"."user_trades"` {
		t.Fatalf("pg table=%s", got)
	}
	if got := Placeholders(pg, 3, 2); got != "$3, $4" {
		t.Fatalf("pg placeholders=%s", got)
	}
	if got := pg.AddColumnSQL("raw", "order_book", "venue"); got != `ALTER TABLE "raw"."order_book" ADD COLUMN IF NOT EXISTS "venue" TEXT` {
		t.Fatalf("pg add column=%s", got)
	}

	sn := Snowflake{}
	if got := sn.Table("raw", "user_trades"); got != `"RAW"."USER_TRADES"` {
		t.Fatalf("sf table=%s", got)
	}
	if got := Placeholders(sn, 1, 3); got != "?, ?, ?" {
		t.Fatalf("sf placeholders=%s", got)
	}
	if got := QuoteIdents(sn, []string{"a", `b"c`}); got != `"A", "B""C"` {
		t.Fatalf("sf idents=%s", got)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsConnectivityError(t *testing.T) {
	pg, sn := Postgres{}, Snowflake{}
	cases := []struct {
		name string
		d    Dialect
		err  error
		want bool
	}{
		{"nil", pg, nil, false},
		{"bad conn", pg, fmt.Errorf("wrap: %w", driver.ErrBadConn), true},
		{"net error", sn, &net.OpError{Op: "dial", Err: timeoutErr{}}, true},
		{"pg auth", pg, &pq.Error{Code: "28P01"}, true},
		{"pg connection", pg, &pq.Error{Code: "08006"}, true},
		{"pg admin shutdown", pg, &pq.Error{Code: "57P01"}, true},
		{"pg undefined table", pg, &pq.Error{Code: "42P01"}, false},
		{"sf auth", sn, &sf.SnowflakeError{Number: 390100}, true},
		{"sf sqlstate 08", sn, &sf.SnowflakeError{SQLState: "08001"}, true},
		{"sf syntax", sn, &sf.SnowflakeError{Number: 1003, SQLState: "42000"}, false},
		{"plain", pg, errors.New("boom"), false},
	}
	for _, c := range cases {
		if got := c.d.IsConnectivityError(c.err); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestOpen_OpenError(t *testing.T) {
	old := sqlOpener
	sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
		return nil, errors.New("open failed")
	}
	t.Cleanup(func() { sqlOpener = old })

	_, err := Open(context.Background(), config.Config{Warehouse: config.WarehouseConfig{Dialect: "postgres"}})
	if err == nil {
		t.Fatalf("expected error from Open when open fails")
	}
}

func TestOpen_PingError(t *testing.T) {
	old := sqlOpener
	sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("sqlmock new: %v", err)
		}
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		return db, nil
	}
	t.Cleanup(func() { sqlOpener = old })

	_, err := Open(context.Background(), config.Config{Warehouse: config.WarehouseConfig{Dialect: "postgres"}})
	if err == nil {
		t.Fatalf("expected ping error from Open")
	}
}

func TestOpen_SelectsDriverAndDSN(t *testing.T) {
	cases := []struct {
		name       string
		cfg        config.Config
		wantDriver string
		wantDSN    string
	}{
		{
			name: "postgres",
			cfg: config.Config{
				Warehouse: config.WarehouseConfig{Dialect: "postgres"},
				Postgres:  config.PostgresConfig{URL: "postgres://u:p@h:5432/d?sslmode=disable"},
			},
			wantDriver: "postgres",
			wantDSN:    "postgres://u:p@h:5432/d?sslmode=disable",
		},
		{
			name: "snowflake",
			cfg: config.Config{
				Warehouse: config.WarehouseConfig{Dialect: "snowflake"},
				Snowflake: config.SnowflakeConfig{Account: "acme-xy12345", User: "loader", Password: "pw", Database: "CRYPTO_DB", Warehouse: "CRYPTO_WH"},
			},
			wantDriver: "snowflake",
			wantDSN:    "acme-xy12345",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var gotDriver, gotDSN string
			old := sqlOpener
			sqlOpener = func(driverName, dataSourceName string) (*sql.DB, error) {
				gotDriver, gotDSN = driverName, dataSourceName
				db, _, err := sqlmock.New()
				return db, err
			}
			t.Cleanup(func() { sqlOpener = old })

			w, err := Open(context.Background(), c.cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer w.Close()
			if gotDriver != c.wantDriver || !strings.Contains(gotDSN, c.wantDSN) {
				t.Fatalf("driver=%s dsn=%s", gotDriver, gotDSN)
			}
			if w.Dialect.Name() != c.wantDriver {
				t.Fatalf("dialect=%s", w.Dialect.Name())
			}
		})
	}
}

func TestBootstrap_PostgresRunsMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	calls := 0
	old := migrate
	migrate = func(ctx context.Context, got *sql.DB) error {
		calls++
		if got != db {
			t.Fatalf("migrations ran against the wrong handle")
		}
		return nil
	}
	t.Cleanup(func() { migrate = old })

	dir := filepath.Join(t.TempDir(), "landing")
	w := &Warehouse{DB: db, Dialect: Postgres{}}
	cfg := config.Config{Loader: config.LoaderConfig{DataDir: dir}}
	for i := 0; i < 2; i++ {
		if err := Bootstrap(context.Background(), w, cfg); err != nil {
			t.Fatalf("Bootstrap run %d: %v", i+1, err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected migrations on each run, got %d", calls)
	}
}

func TestBootstrap_SnowflakeStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	sfCfg := config.SnowflakeConfig{Database: "CRYPTO_DB", Warehouse: "CRYPTO_WH"}
	stmts := SnowflakeBootstrap(sfCfg)
	for _, s := range stmts {
		mock.ExpectExec(regexp.QuoteMeta(s)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	w := &Warehouse{DB: db, Dialect: Snowflake{}}
	cfg := config.Config{Snowflake: sfCfg, Loader: config.LoaderConfig{DataDir: t.TempDir()}}
	if err := Bootstrap(context.Background(), w, cfg); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}

	joined := strings.Join(stmts, "\n")
	for _, want := range []string{
		"WAREHOUSE_SIZE = 'XSMALL' AUTO_SUSPEND = 60",
		`CREATE STAGE IF NOT EXISTS "CRYPTO_DB"."RAW"."CSV_STAGE"`,
		`"CRYPTO_DB"."RAW"."USER_TRADES"`,
		`"CRYPTO_DB"."ANALYTICS"."DAILY_TRADING_METRICS"`,
		`"NOTIONAL_VALUE" NUMBER(38,18)`,
		`"VWAP" NUMBER(38,18)`,
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("bootstrap statements missing %q", want)
		}
	}
	if strings.Contains(joined, "NUMBER(38,12)") {
		t.Fatalf("derived decimals must keep 18 fractional digits")
	}
}

func TestBootstrap_SnowflakeStatementError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()
	mock.ExpectExec(".*").WillReturnError(errors.New("insufficient privileges"))

	w := &Warehouse{DB: db, Dialect: Snowflake{}}
	cfg := config.Config{Snowflake: config.SnowflakeConfig{Database: "D", Warehouse: "W"}, Loader: config.LoaderConfig{DataDir: t.TempDir()}}
	if err := Bootstrap(context.Background(), w, cfg); err == nil {
		t.Fatalf("expected bootstrap error")
	}
}

func TestSnowflakeBulkInsert_Chunks(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	rows := make([][]any, snowflakeInsertChunk+1)
	for i := range rows {
		rows[i] = []any{fmt.Sprintf("T%d", i), nil}
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "RAW"."USER_TRADES" ("TRADE_ID", "PRICE") VALUES (?, ?), (?, ?)`)).
		WillReturnResult(sqlmock.NewResult(0, snowflakeInsertChunk))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "RAW"."USER_TRADES" ("TRADE_ID", "PRICE") VALUES (?, ?)`)).
		WithArgs(fmt.Sprintf("T%d", snowflakeInsertChunk), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := (Snowflake{}).BulkInsert(context.Background(), tx, "raw", "user_trades", []string{"trade_id", "price"}, rows); err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
