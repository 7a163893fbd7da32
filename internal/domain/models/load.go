package models

import "time"

// FileStatus is the outcome of loading a single file.
type FileStatus string

const (
	FileLoaded  FileStatus = "LOADED"
	FileFailed  FileStatus = "FAILED"
	FileSkipped FileStatus = "SKIPPED"
)

// BatchStatus is the overall outcome of a load invocation.
type BatchStatus string

const (
	BatchSuccess BatchStatus = "SUCCESS"
	BatchPartial BatchStatus = "PARTIAL"
	BatchFailed  BatchStatus = "FAILED"
)

// FileResult records what happened to one CSV file of a batch.
type FileResult struct {
	File         string
	Table        RawTable
	Rows         int
	AddedColumns []string
	Status       FileStatus
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// BatchReport aggregates the per-file results of one load invocation.
type BatchReport struct {
	LoadID      string
	Batch       string
	Dir         string
	StartedAt   time.Time
	FinishedAt  time.Time
	Files       []FileResult
	RowsByTable map[RawTable]int
	TotalRows   int
	Status      BatchStatus
}

// Finalize computes totals and the overall status from Files.
//
// Status is SUCCESS when no file failed, FAILED when every file failed and
// PARTIAL otherwise. A batch whose files all loaded zero rows is a SUCCESS.
func (r *BatchReport) Finalize(now time.Time) {
	r.FinishedAt = now
	r.RowsByTable = make(map[RawTable]int)
	r.TotalRows = 0

	failed := 0
	for _, f := range r.Files {
		if f.Status != FileLoaded {
			failed++
			continue
		}
		r.RowsByTable[f.Table] += f.Rows
		r.TotalRows += f.Rows
	}

	switch {
	case failed == 0:
		r.Status = BatchSuccess
	case failed == len(r.Files):
		r.Status = BatchFailed
	default:
		r.Status = BatchPartial
	}
}

// Failed returns the number of files that did not load.
func (r *BatchReport) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Status != FileLoaded {
			n++
		}
	}
	return n
}
