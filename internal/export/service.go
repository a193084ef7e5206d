// Package export produces XLSX hand-off sheets from the current inbox
// snapshot. Session-scoped: it reads live state on demand and persists nothing.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/relaydesk/inbox-pilot/internal/inbox"
	"github.com/relaydesk/inbox-pilot/internal/orchestrator"
)

// SnapshotFunc supplies the current per-item processing state.
type SnapshotFunc func(ctx context.Context) map[string]orchestrator.ItemState

// Service is a tiny façade over the catalog and the orchestrator snapshot that
// produces XLSX bytes for exports.
type Service struct {
	catalog  *inbox.Catalog
	snapshot SnapshotFunc
	logger   *slog.Logger
}

func NewService(catalog *inbox.Catalog, snapshot SnapshotFunc, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalog, snapshot: snapshot, logger: logger}
}

// ExportSnapshotXLSX returns an XLSX workbook (as bytes) listing every known
// inbox item with its metadata and processing state, in arrival order.
func (s *Service) ExportSnapshotXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	infos, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	states := s.snapshot(ctx)

	f := excelize.NewFile()
	const sheet = "Inbox"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"File",
		"Title",
		"Size (bytes)",
		"Modified",
		"Status",
		"Last Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, fi := range infos {
		st := states[fi.File] // zero value reads as empty status below

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, fi.File)
		write(2, inbox.HumanizeFilename(fi.File))
		write(3, fi.Size)
		if !fi.ModifiedAt.IsZero() {
			write(4, fi.ModifiedAt.Format("2006-01-02 15:04"))
		} else {
			write(4, "")
		}
		status := string(st.Status)
		if status == "" {
			status = "NEW"
		}
		write(5, status)
		write(6, truncate(st.LastError, 140))

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 32) // file
	_ = f.SetColWidth(sheet, "B", "B", 32) // title
	_ = f.SetColWidth(sheet, "C", "D", 16) // size, modified
	_ = f.SetColWidth(sheet, "E", "E", 14) // status
	_ = f.SetColWidth(sheet, "F", "F", 48) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(infos),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
