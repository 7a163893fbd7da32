package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/logger"
	"github.com/guttosm/cryptopulse/internal/schema"
	"github.com/guttosm/cryptopulse/internal/warehouse"
)

const (
	schemaVersionsTable = "schema_versions"
	loadLogTable        = "load_log"
)

// AppendBatch is a set of rows from one source file destined for one raw table.
type AppendBatch struct {
	Table      models.RawTable
	Columns    []string // normalized domain columns, aligned with each row
	Rows       [][]any  // nil cells are NULL
	IngestedAt time.Time
	SourceFile string
	ChunkSize  int // rows per bulk-insert call; <= 0 inserts everything at once
}

// RawRepository defines the contract for the raw layer: append-only
// writes, snapshots, and the schema registry and load audit tables.
type RawRepository interface {
	Ping(ctx context.Context) error
	IsConnectivityError(err error) bool
	LoadRegistry(ctx context.Context) (*schema.Registry, error)
	EvolveSchema(ctx context.Context, ch schema.Change, sourceFile string) error
	AppendRows(ctx context.Context, b AppendBatch) (int, error)
	RecordLoad(ctx context.Context, loadID, batch string, f models.FileResult) error
	Watermark(ctx context.Context, table models.RawTable) (models.Watermark, error)
	Snapshot(ctx context.Context, table models.RawTable) ([]models.RawRow, error)
}

type warehouseRepository struct {
	db      *sql.DB
	dialect warehouse.Dialect
}

// NewRawRepository returns a RawRepository over db speaking dialect d.
func NewRawRepository(db *sql.DB, d warehouse.Dialect) RawRepository {
	return &warehouseRepository{db: db, dialect: d}
}

func (r *warehouseRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *warehouseRepository) IsConnectivityError(err error) bool {
	return r.dialect.IsConnectivityError(err)
}

// LoadRegistry rebuilds the schema registry from raw.schema_versions.
func (r *warehouseRepository) LoadRegistry(ctx context.Context) (*schema.Registry, error) {
	query := fmt.Sprintf(
		`SELECT table_name, version, column_name FROM %s ORDER BY table_name, version, column_name`,
		r.dialect.Table(warehouse.SchemaRaw, schemaVersionsTable),
	)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()

	var changes []schema.Change
	for rows.Next() {
		var (
			table   string
			version int
			column  string
		)
		if err := rows.Scan(&table, &version, &column); err != nil {
			return nil, fmt.Errorf("scan schema version: %w", err)
		}
		n := len(changes)
		if n > 0 && changes[n-1].Table == models.RawTable(table) && changes[n-1].Version == version {
			changes[n-1].Columns = append(changes[n-1].Columns, column)
			continue
		}
		changes = append(changes, schema.Change{Table: models.RawTable(table), Version: version, Columns: []string{column}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reg := schema.NewRegistry()
	reg.Apply(changes)
	return reg, nil
}

// EvolveSchema adds the change's columns to the raw table and records the
// new version. Columns already present, or already recorded by a
// concurrent loader, are left as they are.
func (r *warehouseRepository) EvolveSchema(ctx context.Context, ch schema.Change, sourceFile string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	versions := r.dialect.Table(warehouse.SchemaRaw, schemaVersionsTable)
	insert := fmt.Sprintf(
		`INSERT INTO %s (table_name, version, column_name, source_file) SELECT %s WHERE NOT EXISTS (SELECT 1 FROM %s WHERE table_name = %s AND column_name = %s)`,
		versions, warehouse.Placeholders(r.dialect, 1, 4), versions, r.dialect.Placeholder(5), r.dialect.Placeholder(6),
	)

	for _, col := range ch.Columns {
		if _, err := tx.ExecContext(ctx, r.dialect.AddColumnSQL(warehouse.SchemaRaw, string(ch.Table), col)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("add column %s.%s: %w", ch.Table, col, err)
		}
		if _, err := tx.ExecContext(ctx, insert, string(ch.Table), ch.Version, col, sourceFile, string(ch.Table), col); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return tx.Commit()
}

// AppendRows inserts the batch into its raw table in a single transaction,
// stamping every row with the batch's ingestion time and source file.
// It returns the number of rows appended.
func (r *warehouseRepository) AppendRows(ctx context.Context, b AppendBatch) (int, error) {
	if len(b.Rows) == 0 {
		return 0, nil
	}

	cols := make([]string, 0, len(b.Columns)+2)
	cols = append(cols, b.Columns...)
	cols = append(cols, models.ColIngestedAt, models.ColSourceFile)

	stamped := make([][]any, len(b.Rows))
	for i, row := range b.Rows {
		full := make([]any, 0, len(cols))
		full = append(full, row...)
		for len(full) < len(b.Columns) {
			full = append(full, nil)
		}
		stamped[i] = append(full[:len(b.Columns)], b.IngestedAt, b.SourceFile)
	}

	chunk := b.ChunkSize
	if chunk <= 0 {
		chunk = len(stamped)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	for start := 0; start < len(stamped); start += chunk {
		end := min(start+chunk, len(stamped))
		if err := r.dialect.BulkInsert(ctx, tx, warehouse.SchemaRaw, string(b.Table), cols, stamped[start:end]); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		logger.L().Debug().
			Str("table", string(b.Table)).
			Str("file", b.SourceFile).
			Int("rows", end-start).
			Msg("chunk appended")
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stamped), nil
}

// RecordLoad writes one raw.load_log row for a processed file.
func (r *warehouseRepository) RecordLoad(ctx context.Context, loadID, batch string, f models.FileResult) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (load_id, batch_label, table_name, file_name, row_count, status, error, started_at, finished_at) VALUES (%s)`,
		r.dialect.Table(warehouse.SchemaRaw, loadLogTable), warehouse.Placeholders(r.dialect, 1, 9),
	)
	_, err := r.db.ExecContext(ctx, query,
		loadID, batch, nullString(string(f.Table)), f.File, f.Rows, string(f.Status), nullString(f.Error), f.StartedAt, f.FinishedAt,
	)
	return err
}

// Watermark returns the highest row sequence and the row count of a raw table.
func (r *warehouseRepository) Watermark(ctx context.Context, table models.RawTable) (models.Watermark, error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(MAX(%s), 0), COUNT(*) FROM %s`,
		r.dialect.QuoteIdent(models.ColRowSeq), r.dialect.Table(warehouse.SchemaRaw, string(table)),
	)
	wm := models.Watermark{Table: table}
	if err := r.db.QueryRowContext(ctx, query).Scan(&wm.MaxSeq, &wm.Rows); err != nil {
		return models.Watermark{}, fmt.Errorf("watermark %s: %w", table, err)
	}
	return wm, nil
}

// Snapshot reads every row of a raw table in insertion order. Columns are
// discovered from the result set, so columns added by schema evolution are
// included and read as NULL for older rows.
func (r *warehouseRepository) Snapshot(ctx context.Context, table models.RawTable) ([]models.RawRow, error) {
	query := fmt.Sprintf(
		`SELECT * FROM %s ORDER BY %s`,
		r.dialect.Table(warehouse.SchemaRaw, string(table)), r.dialect.QuoteIdent(models.ColRowSeq),
	)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	for i := range names {
		names[i] = strings.ToLower(names[i])
	}

	var out []models.RawRow
	for rows.Next() {
		cells := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}

		row := models.RawRow{Values: make(map[string]string, len(names))}
		for i, name := range names {
			switch name {
			case models.ColRowSeq:
				row.Seq = asInt64(cells[i])
			case models.ColIngestedAt:
				row.IngestedAt = asTime(cells[i])
			case models.ColSourceFile:
				row.SourceFile, _ = asText(cells[i])
			default:
				if v, ok := asText(cells[i]); ok {
					row.Values[name] = v
				}
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
