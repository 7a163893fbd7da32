package ingestion

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/guttosm/cryptopulse/internal/domain/models"
)

// RenderReport writes the per-file table and the final status line.
func RenderReport(w io.Writer, r *models.BatchReport, useColor bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "File", "Table", "Rows", "Status", "Details"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for i, f := range r.Files {
		details := f.Error
		if details == "" && len(f.AddedColumns) > 0 {
			details = "added columns: " + strings.Join(f.AddedColumns, ", ")
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			f.File,
			string(f.Table),
			fmt.Sprintf("%d", f.Rows),
			paintFile(f.Status, useColor),
			details,
		})
	}
	table.Render()

	fmt.Fprintf(w, "\n%s  batch=%s load_id=%s files=%d failed=%d rows=%d",
		paintBatch(r.Status, useColor), r.Batch, r.LoadID, len(r.Files), r.Failed(), r.TotalRows)
	for _, t := range models.RawTables() {
		if n, ok := r.RowsByTable[t]; ok {
			fmt.Fprintf(w, " %s=%d", t, n)
		}
	}
	fmt.Fprintln(w)
}

// ExitCode maps the outcome of ProcessBatch to a process exit status:
// 0 for SUCCESS and PARTIAL, 1 when every file failed, when no input was
// found or when storage was unreachable.
func ExitCode(r *models.BatchReport, err error) int {
	switch {
	case err != nil:
		return 1
	case r == nil || r.Status == models.BatchFailed:
		return 1
	default:
		return 0
	}
}

func paintFile(s models.FileStatus, useColor bool) string {
	if !useColor {
		return string(s)
	}
	switch s {
	case models.FileLoaded:
		return color.GreenString(string(s))
	case models.FileSkipped:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}

func paintBatch(s models.BatchStatus, useColor bool) string {
	if !useColor {
		return string(s)
	}
	switch s {
	case models.BatchSuccess:
		return color.New(color.FgGreen, color.Bold).Sprint(s)
	case models.BatchPartial:
		return color.New(color.FgYellow, color.Bold).Sprint(s)
	default:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	}
}
