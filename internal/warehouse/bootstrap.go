package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/db/migrations"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/logger"
	goose "github.com/pressly/goose/v3"
)

// migrate applies the embedded goose migrations; overridden in tests.
var migrate = func(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Bootstrap idempotently creates the storage layout: the landing directory
// for batches plus, in the warehouse, the schemas, raw tables, registry and
// audit tables, and the derived tables. Running it twice is a no-op.
func Bootstrap(ctx context.Context, w *Warehouse, cfg config.Config) error {
	if err := os.MkdirAll(cfg.Loader.DataDir, 0o755); err != nil {
		return fmt.Errorf("create landing directory %s: %w", cfg.Loader.DataDir, err)
	}

	switch w.Dialect.(type) {
	case Snowflake:
		for _, stmt := range SnowflakeBootstrap(cfg.Snowflake) {
			if _, err := w.DB.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap statement %q: %w", abbreviate(stmt), err)
			}
		}
	default:
		if err := migrate(ctx, w.DB); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	logger.L().Info().
		Str("dialect", w.Dialect.Name()).
		Str("data_dir", cfg.Loader.DataDir).
		Msg("bootstrap complete")
	return nil
}

// SnowflakeBootstrap returns the ordered CREATE ... IF NOT EXISTS
// statements that build the Snowflake layout.
func SnowflakeBootstrap(cfg config.SnowflakeConfig) []string {
	d := Snowflake{}
	db := d.QuoteIdent(cfg.Database)
	wh := d.QuoteIdent(cfg.Warehouse)
	raw := db + "." + d.QuoteIdent(SchemaRaw)

	stmts := []string{
		fmt.Sprintf(`CREATE WAREHOUSE IF NOT EXISTS %s WITH WAREHOUSE_SIZE = 'XSMALL' AUTO_SUSPEND = 60 AUTO_RESUME = TRUE INITIALLY_SUSPENDED = TRUE`, wh),
		fmt.Sprintf(`USE WAREHOUSE %s`, wh),
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`USE DATABASE %s`, db),
	}
	for _, s := range []string{SchemaRaw, SchemaStaging, SchemaAnalytics} {
		stmts = append(stmts, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s.%s`, db, d.QuoteIdent(s)))
	}
	stmts = append(stmts,
		fmt.Sprintf(`CREATE FILE FORMAT IF NOT EXISTS %s.%s TYPE = 'CSV' FIELD_DELIMITER = ',' SKIP_HEADER = 1 FIELD_OPTIONALLY_ENCLOSED_BY = '"' TRIM_SPACE = TRUE NULL_IF = ('NULL', 'null', '') EMPTY_FIELD_AS_NULL = TRUE ERROR_ON_COLUMN_COUNT_MISMATCH = FALSE`, raw, d.QuoteIdent("csv_format")),
		fmt.Sprintf(`CREATE STAGE IF NOT EXISTS %s.%s FILE_FORMAT = %s.%s`, raw, d.QuoteIdent("csv_stage"), raw, d.QuoteIdent("csv_format")),
	)

	for _, t := range models.RawTables() {
		cols := make([]string, 0, len(t.BaseColumns())+3)
		cols = append(cols, d.QuoteIdent(models.ColRowSeq)+" NUMBER AUTOINCREMENT")
		for _, c := range t.BaseColumns() {
			cols = append(cols, d.QuoteIdent(c)+" VARCHAR")
		}
		cols = append(cols,
			d.QuoteIdent(models.ColIngestedAt)+" TIMESTAMP_TZ DEFAULT CURRENT_TIMESTAMP()",
			d.QuoteIdent(models.ColSourceFile)+" VARCHAR",
		)
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (%s) ENABLE_SCHEMA_EVOLUTION = TRUE`, raw, d.QuoteIdent(string(t)), strings.Join(cols, ", ")))
	}

	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s ("TABLE_NAME" VARCHAR NOT NULL, "VERSION" NUMBER NOT NULL, "COLUMN_NAME" VARCHAR NOT NULL, "SOURCE_FILE" VARCHAR, "ADDED_AT" TIMESTAMP_TZ DEFAULT CURRENT_TIMESTAMP(), PRIMARY KEY ("TABLE_NAME", "COLUMN_NAME"))`, raw, d.QuoteIdent("schema_versions")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s ("ID" NUMBER AUTOINCREMENT, "LOAD_ID" VARCHAR NOT NULL, "BATCH_LABEL" VARCHAR NOT NULL, "TABLE_NAME" VARCHAR, "FILE_NAME" VARCHAR NOT NULL, "ROW_COUNT" NUMBER NOT NULL, "STATUS" VARCHAR NOT NULL, "ERROR" VARCHAR, "STARTED_AT" TIMESTAMP_TZ NOT NULL, "FINISHED_AT" TIMESTAMP_TZ NOT NULL)`, raw, d.QuoteIdent("load_log")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s.%s ("USER_ID" VARCHAR, "EMAIL" VARCHAR, "FIRST_NAME" VARCHAR, "LAST_NAME" VARCHAR, "COUNTRY" VARCHAR, "TIER" VARCHAR, "KYC_STATUS" VARCHAR, "DATE_OF_BIRTH" DATE, "INGESTED_AT" TIMESTAMP_TZ, "SOURCE_FILE" VARCHAR, "ROW_SEQ" NUMBER)`, db, d.QuoteIdent(SchemaStaging), d.QuoteIdent("latest_user_profiles")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s.%s ("TRADE_ID" VARCHAR, "USER_ID" VARCHAR, "TRADE_TIMESTAMP" TIMESTAMP_TZ, "TRADE_DATE" DATE, "TRADE_HOUR" NUMBER, "SYMBOL" VARCHAR, "BASE_CURRENCY" VARCHAR, "QUOTE_CURRENCY" VARCHAR, "SIDE" VARCHAR, "QUANTITY" NUMBER(38,18), "PRICE" NUMBER(38,18), "NOTIONAL_VALUE" NUMBER(38,18), "STATUS" VARCHAR, "EXCHANGE" VARCHAR, "ORDER_TYPE" VARCHAR, "FEES" NUMBER(38,18), "SETTLEMENT_DATE" DATE, "IS_COMPLETED" BOOLEAN, "INGESTED_AT" TIMESTAMP_TZ, "SOURCE_FILE" VARCHAR)`, db, d.QuoteIdent(SchemaStaging), d.QuoteIdent("cleaned_trades")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s.%s ("TRADE_DATE" DATE, "SYMBOL" VARCHAR, "BASE_CURRENCY" VARCHAR, "QUOTE_CURRENCY" VARCHAR, "EXCHANGE" VARCHAR, "TOTAL_TRADES" NUMBER, "BUY_TRADES" NUMBER, "SELL_TRADES" NUMBER, "COMPLETED_TRADES" NUMBER, "TOTAL_VOLUME" NUMBER(38,18), "TOTAL_NOTIONAL" NUMBER(38,18), "AVG_PRICE" NUMBER(38,18), "MIN_PRICE" NUMBER(38,18), "MAX_PRICE" NUMBER(38,18), "TOTAL_FEES" NUMBER(38,18), "UNIQUE_TRADERS" NUMBER, "VWAP" NUMBER(38,18))`, db, d.QuoteIdent(SchemaAnalytics), d.QuoteIdent("daily_trading_metrics")),
	)
	return stmts
}

func abbreviate(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
