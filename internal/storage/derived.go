package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/warehouse"
)

// Derived table names.
const (
	TableLatestProfiles = "latest_user_profiles"
	TableCleanedTrades  = "cleaned_trades"
	TableDailyMetrics   = "daily_trading_metrics"
)

var (
	profileColumns = []string{
		"user_id", "email", "first_name", "last_name", "country", "tier", "kyc_status",
		"date_of_birth", "ingested_at", "source_file", "row_seq",
	}
	cleanTradeColumns = []string{
		"trade_id", "user_id", "trade_timestamp", "trade_date", "trade_hour", "symbol",
		"base_currency", "quote_currency", "side", "quantity", "price", "notional_value",
		"status", "exchange", "order_type", "fees", "settlement_date", "is_completed",
		"ingested_at", "source_file",
	}
	dailyMetricColumns = []string{
		"trade_date", "symbol", "base_currency", "quote_currency", "exchange",
		"total_trades", "buy_trades", "sell_trades", "completed_trades", "total_volume",
		"total_notional", "avg_price", "min_price", "max_price", "total_fees",
		"unique_traders", "vwap",
	}
)

// DerivedRepository materializes derivation results. Each call replaces
// the whole table atomically, so readers never see a partial result.
type DerivedRepository interface {
	ReplaceProfiles(ctx context.Context, profiles []models.UserProfile) error
	ReplaceCleanTrades(ctx context.Context, trades []models.CleanTrade) error
	ReplaceDailyMetrics(ctx context.Context, metrics []models.DailyMetric) error
}

// NewDerivedRepository returns a DerivedRepository over db speaking dialect d.
func NewDerivedRepository(db *sql.DB, d warehouse.Dialect) DerivedRepository {
	return &warehouseRepository{db: db, dialect: d}
}

func (r *warehouseRepository) ReplaceProfiles(ctx context.Context, profiles []models.UserProfile) error {
	rows := make([][]any, len(profiles))
	for i, p := range profiles {
		rows[i] = []any{
			p.UserID, nullString(p.Email), nullString(p.FirstName), nullString(p.LastName),
			nullString(p.Country), nullString(p.Tier), nullString(p.KYCStatus),
			nullDate(p.DateOfBirth), p.IngestedAt.UTC(), nullString(p.SourceFile), p.RowSeq,
		}
	}
	return r.replace(ctx, warehouse.SchemaStaging, TableLatestProfiles, profileColumns, rows)
}

func (r *warehouseRepository) ReplaceCleanTrades(ctx context.Context, trades []models.CleanTrade) error {
	rows := make([][]any, len(trades))
	for i, t := range trades {
		rows[i] = []any{
			nullString(t.TradeID), nullString(t.UserID), nullTime(t.TradeTimestamp), nullDate(t.TradeDate),
			nullInt(t.TradeHour), nullString(t.Symbol), nullString(t.BaseCurrency), nullString(t.QuoteCurrency),
			nullString(t.Side), nullDecimal(t.Quantity), nullDecimal(t.Price), nullDecimal(t.NotionalValue),
			nullString(t.Status), nullString(t.Exchange), nullString(t.OrderType), nullDecimal(t.Fees),
			nullDate(t.SettlementDate), t.IsCompleted, t.IngestedAt.UTC(), nullString(t.SourceFile),
		}
	}
	return r.replace(ctx, warehouse.SchemaStaging, TableCleanedTrades, cleanTradeColumns, rows)
}

func (r *warehouseRepository) ReplaceDailyMetrics(ctx context.Context, metrics []models.DailyMetric) error {
	rows := make([][]any, len(metrics))
	for i, m := range metrics {
		day := m.TradeDate
		rows[i] = []any{
			nullDate(&day), nullString(m.Symbol), nullString(m.BaseCurrency), nullString(m.QuoteCurrency),
			nullString(m.Exchange), m.TotalTrades, m.BuyTrades, m.SellTrades, m.CompletedTrades,
			m.TotalVolume.String(), m.TotalNotional.String(), nullDecimal(m.AvgPrice),
			nullDecimal(m.MinPrice), nullDecimal(m.MaxPrice), m.TotalFees.String(),
			m.UniqueTraders, nullDecimal(m.VWAP),
		}
	}
	return r.replace(ctx, warehouse.SchemaAnalytics, TableDailyMetrics, dailyMetricColumns, rows)
}

func (r *warehouseRepository) replace(ctx context.Context, schemaName, table string, cols []string, rows [][]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+r.dialect.Table(schemaName, table)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear %s.%s: %w", schemaName, table, err)
	}
	if len(rows) > 0 {
		if err := r.dialect.BulkInsert(ctx, tx, schemaName, table, cols, rows); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("materialize %s.%s: %w", schemaName, table, err)
		}
	}
	return tx.Commit()
}
