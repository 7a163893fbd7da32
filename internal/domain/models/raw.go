package models

import "time"

// RawTable names one of the append-only landing tables in the raw schema.
type RawTable string

const (
	TableUserProfiles RawTable = "user_profiles"
	TableOrderBook    RawTable = "order_book"
	TableUserTrades   RawTable = "user_trades"
)

// Metadata columns every raw table carries in addition to its domain columns.
const (
	ColRowSeq     = "row_seq"
	ColIngestedAt = "ingested_at"
	ColSourceFile = "source_file"
)

// RawTables lists the raw tables in bootstrap order.
func RawTables() []RawTable {
	return []RawTable{TableUserProfiles, TableOrderBook, TableUserTrades}
}

// BaseColumns returns the domain columns a raw table is created with.
func (t RawTable) BaseColumns() []string {
	switch t {
	case TableUserProfiles:
		return []string{"user_id", "email", "first_name", "last_name", "country", "tier", "kyc_status", "date_of_birth"}
	case TableOrderBook:
		return []string{"timestamp", "symbol", "side", "level", "price", "quantity", "exchange"}
	case TableUserTrades:
		return []string{"trade_id", "user_id", "timestamp", "symbol", "side", "quantity", "price", "status", "exchange", "order_type", "fees", "settlement_date"}
	default:
		return nil
	}
}

// Valid reports whether t is one of the known raw tables.
func (t RawTable) Valid() bool {
	return len(t.BaseColumns()) > 0
}

// RawRow is one row of a raw table as stored: every domain value is text
// exactly as it appeared in the file. A column absent from Values is NULL.
type RawRow struct {
	Seq        int64
	IngestedAt time.Time
	SourceFile string
	Values     map[string]string
}

// Get returns the value of col and whether it is non-NULL.
func (r RawRow) Get(col string) (string, bool) {
	v, ok := r.Values[col]
	return v, ok
}

// Watermark summarizes the contents of a raw table for change detection.
type Watermark struct {
	Table  RawTable `json:"table"`
	MaxSeq int64    `json:"max_seq"`
	Rows   int64    `json:"rows"`
}
