package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"facility-inspect/internal/logger"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Inspections"

// WriteCSV writes one row per stored record and returns the row count.
func (s *FileStore) WriteCSV(w io.Writer) (int, error) {
	rows, err := s.ExportRows()
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := make([]string, 0, len(exportHeader))
		for _, v := range r.values() {
			rec = append(rec, fmt.Sprint(v))
		}
		if err := cw.Write(rec); err != nil {
			return 0, fmt.Errorf("write row %s: %w", r.Filename, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(rows), nil
}

// ExportCSV writes the CSV export to path.
func (s *FileStore) ExportCSV(path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, &StorageError{Op: "create export", Err: err}
	}
	n, err := s.WriteCSV(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	logger.Info("filestore.export_csv", "path", path, "rows", n)
	return n, nil
}

// WriteXLSX writes the same rows as WriteCSV into a workbook.
func (s *FileStore) WriteXLSX(w io.Writer) (int, error) {
	rows, err := s.ExportRows()
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		vals := r.values()
		if err := f.SetSheetRow(exportSheet, cell, &vals); err != nil {
			return 0, fmt.Errorf("write row %s: %w", r.Filename, err)
		}
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return 0, fmt.Errorf("freeze header: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("write xlsx: %w", err)
	}
	return len(rows), nil
}

func (s *FileStore) ExportXLSX(path string) (int, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, &StorageError{Op: "create export", Err: err}
	}
	n, err := s.WriteXLSX(out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	logger.Info("filestore.export_xlsx", "path", path, "rows", n)
	return n, nil
}
