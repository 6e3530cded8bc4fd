// Package export writes ranked leads as spreadsheet-friendly tables.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/maplanning/lead-scout/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", eris.Errorf("export: unsupported format %q (want csv or xlsx)", s)
}

// FormatFor picks the format from a file extension, defaulting to CSV.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Header is the column order of every export.
var Header = []string{
	"Priority", "Score", "Source", "Reference", "Address", "Applicant",
	"Description", "Status", "Date", "Reasons", "Synthetic",
}

// sheetName is the XLSX worksheet title.
const sheetName = "Planning Leads"

// FileName returns the default export name for a run at now,
// e.g. planning_leads_20261014.csv.
func FileName(now time.Time, f Format) string {
	return "planning_leads_" + now.Format("20060102") + "." + string(f)
}

// Row renders one lead in Header order.
func Row(l model.ScoredLead) []string {
	synthetic := ""
	if l.IsSynthetic {
		synthetic = "yes"
	}
	return []string{
		l.Priority.Label(),
		strconv.Itoa(l.Score),
		l.SourceID,
		l.Reference,
		l.Address,
		l.Applicant,
		l.Description,
		l.Status,
		l.DateReceived,
		l.ReasonText(),
		synthetic,
	}
}

// Write renders leads to w in format f.
func Write(w io.Writer, f Format, leads []model.ScoredLead) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, leads)
	case FormatXLSX:
		return WriteXLSX(w, leads)
	}
	return eris.Errorf("export: unsupported format %q", f)
}

// WriteFile creates path and writes leads in the format its extension names.
func WriteFile(path string, leads []model.ScoredLead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(f, FormatFor(path), leads); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// WriteCSV writes a header row and one row per lead.
func WriteCSV(w io.Writer, leads []model.ScoredLead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}
	for _, l := range leads {
		if err := cw.Write(Row(l)); err != nil {
			return eris.Wrapf(err, "export: write CSV row %s", l.Reference)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush CSV")
}

// WriteXLSX writes a single-sheet workbook. Score is stored as a number so
// the sheet sorts and filters numerically.
func WriteXLSX(w io.Writer, leads []model.ScoredLead) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		for i, v := range Row(l) {
			cell := row.AddCell()
			if i == 1 {
				cell.SetInt(l.Score)
				continue
			}
			cell.SetString(v)
		}
	}

	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}
