package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/cryptopulse/internal/changefeed"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/logger"
	"github.com/guttosm/cryptopulse/internal/schema"
	"github.com/guttosm/cryptopulse/internal/storage"
	"github.com/guttosm/cryptopulse/internal/warehouse"
)

const defaultBatchSize = 5000

// repoCtor is an indirection for creating the repository; tests can override this.
var repoCtor = func(w *warehouse.Warehouse) storage.RawRepository {
	return storage.NewRawRepository(w.DB, w.Dialect)
}

// now is the load wall clock; tests can override this.
var now = func() time.Time { return time.Now().UTC() }

// Options tunes a batch load.
type Options struct {
	BatchSize int                  // rows per insert chunk; defaults to 5000
	Publisher changefeed.Publisher // optional; notified once per loaded table
}

// ProcessBatch loads every CSV file of <dataDir>/<batch> into the raw tables.
//
// Behavior:
//   - Files are processed one at a time in name order.
//   - Each file is parsed fully, routed to a raw table, reconciled against
//     the table's schema (adding novel columns) and appended atomically.
//   - A failing file is recorded and skipped; the batch continues.
//   - A storage connectivity or authentication failure aborts the batch.
//   - Every file gets one raw.load_log row.
//
// Returns:
//   - the batch report (also on abort, covering the files seen so far).
//   - error: ErrNoInputFiles, or the fatal storage error that aborted the batch.
func ProcessBatch(ctx context.Context, dataDir, batch string, w *warehouse.Warehouse, opts Options) (*models.BatchReport, error) {
	dir := filepath.Join(dataDir, batch)
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	// use indirection to allow tests to swap repository constructor
	repo := repoCtor(w)

	reg, err := repo.LoadRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema registry: %w", err)
	}

	report := &models.BatchReport{
		LoadID:    uuid.NewString(),
		Batch:     batch,
		Dir:       dir,
		StartedAt: now(),
	}
	logger.L().Info().Str("load_id", report.LoadID).Str("dir", dir).Int("files", len(files)).Msg("load start")

	for i, path := range files {
		res, fatal := loadFile(ctx, repo, reg, path, opts.BatchSize)
		report.Files = append(report.Files, res)

		if fatal == nil {
			fatal = recordLoad(ctx, repo, report, res)
		}
		if fatal != nil {
			report.Finalize(now())
			logger.L().Error().Str("load_id", report.LoadID).Str("file", res.File).Err(fatal).Msg("load aborted: storage unreachable")
			return report, fmt.Errorf("storage unreachable while loading %s: %w", res.File, fatal)
		}

		ev := logger.L().Info()
		if res.Status != models.FileLoaded {
			ev = logger.L().Warn().Str("error", res.Error)
		}
		ev.Int("idx", i+1).
			Int("total", len(files)).
			Str("file", res.File).
			Str("table", string(res.Table)).
			Int("rows", res.Rows).
			Str("status", string(res.Status)).
			Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
			Msg("file done")
	}

	report.Finalize(now())
	publish(ctx, opts.Publisher, report)

	logger.L().Info().
		Str("load_id", report.LoadID).
		Str("status", string(report.Status)).
		Int("rows", report.TotalRows).
		Int("failed", report.Failed()).
		Msg("load finished")
	return report, nil
}

// loadFile processes a single file. The second return value is non-nil only
// for connectivity failures, which must abort the batch; every other
// problem is captured in the result.
func loadFile(ctx context.Context, repo storage.RawRepository, reg *schema.Registry, path string, batchSize int) (models.FileResult, error) {
	res := models.FileResult{File: filepath.Base(path), StartedAt: now()}
	fail := func(status models.FileStatus, err error) (models.FileResult, error) {
		res.Status = status
		res.Error = err.Error()
		res.Rows = 0
		res.FinishedAt = now()
		if repo.IsConnectivityError(err) {
			return res, err
		}
		return res, nil
	}

	parsed, err := parseFile(ctx, path)
	if err != nil {
		return fail(models.FileFailed, err)
	}

	table, err := Route(res.File, parsed.Header)
	if err != nil {
		return fail(models.FileSkipped, err)
	}
	res.Table = table

	ch, err := reg.Reconcile(table, parsed.Header)
	if err != nil {
		return fail(models.FileFailed, fmt.Errorf("%w: %v", ErrSchemaIncompatible, err))
	}
	if ch != nil {
		if err := repo.EvolveSchema(ctx, *ch, res.File); err != nil {
			return fail(models.FileFailed, fmt.Errorf("evolve %s: %w", table, err))
		}
		reg.Commit(*ch)
		res.AddedColumns = ch.Columns
		logger.L().Info().
			Str("file", res.File).
			Str("table", string(table)).
			Int("version", ch.Version).
			Strs("columns", ch.Columns).
			Msg("schema evolved")
	}

	n, err := repo.AppendRows(ctx, storage.AppendBatch{
		Table:      table,
		Columns:    parsed.Header,
		Rows:       parsed.Rows,
		IngestedAt: res.StartedAt,
		SourceFile: res.File,
		ChunkSize:  batchSize,
	})
	if err != nil {
		return fail(models.FileFailed, fmt.Errorf("append %s: %w", table, err))
	}

	res.Rows = n
	res.Status = models.FileLoaded
	res.FinishedAt = now()
	return res, nil
}

func recordLoad(ctx context.Context, repo storage.RawRepository, report *models.BatchReport, res models.FileResult) error {
	err := repo.RecordLoad(ctx, report.LoadID, report.Batch, res)
	if err == nil {
		return nil
	}
	if repo.IsConnectivityError(err) {
		return err
	}
	logger.L().Warn().Str("file", res.File).Err(err).Msg("record load log failed")
	return nil
}

// publish notifies the change feed once per table that received rows.
// Notification failures are logged; the timer still picks the load up.
func publish(ctx context.Context, p changefeed.Publisher, report *models.BatchReport) {
	if p == nil {
		return
	}
	for _, t := range models.RawTables() {
		rows := report.RowsByTable[t]
		if rows == 0 {
			continue
		}
		c := changefeed.Change{Table: t, LoadID: report.LoadID, Rows: rows, At: report.FinishedAt}
		if err := p.Publish(ctx, c); err != nil {
			logger.L().Warn().Str("table", string(t)).Err(err).Msg("change notification failed")
		}
	}
}
