// Package spreadsheet reads imports from and writes exports to .xlsx workbooks.
package spreadsheet

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/campus/core"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout  = "2006-01-02"
)

var ErrEmptyWorkbook = core.NewFieldError("file", "the workbook has no sheet")

// Filename builds an export file name like `students_20240131_154500.xlsx`.
func Filename(prefix string, now time.Time, parts ...string) string {
	name := prefix
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			name += "_" + strings.ReplaceAll(p, " ", "_")
		}
	}
	return name + "_" + now.Format("20060102_150405") + ".xlsx"
}

// sheet writes rows one after the other, below a bold header.
type sheet struct {
	f    *excelize.File
	name string
	row  int
}

func newSheet(name string, header []interface{}, widths ...float64) (*sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetList()[0], name); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	sh := &sheet{f: f, name: name}
	if err := sh.append(header); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}
	if err = f.SetRowStyle(name, 1, 1, bold); err != nil {
		return nil, errors.Wrap(err, "styling header")
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err = f.SetColWidth(name, col, col, w); err != nil {
			return nil, errors.Wrap(err, "sizing columns")
		}
	}
	return sh, nil
}

func (sh *sheet) append(values []interface{}) error {
	sh.row++
	cell, err := excelize.CoordinatesToCellName(1, sh.row)
	if err != nil {
		return err
	}
	return errors.Wrap(sh.f.SetSheetRow(sh.name, cell, &values), "writing row")
}

func (sh *sheet) writeTo(w io.Writer) error {
	defer sh.f.Close()
	return errors.Wrap(sh.f.Write(w), "writing workbook")
}

// readRows returns the data rows of the first sheet, header excluded.
// Each row is paired with its 1-based spreadsheet row number.
func readRows(r io.Reader) ([]numberedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewFieldError("file", "not a valid .xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}

	var out []numberedRow
	for i, cells := range rows {
		if i == 0 || isBlank(cells) {
			continue
		}
		out = append(out, numberedRow{num: i + 1, cells: cells})
	}
	return out, nil
}

type numberedRow struct {
	num   int
	cells []string
}

func (r numberedRow) str(col int) string {
	if col < len(r.cells) {
		return strings.TrimSpace(r.cells[col])
	}
	return ""
}

// amount parses a money cell: "1 500 000", "1,500,000" and "1500000.00" are all accepted.
func (r numberedRow) amount(col int) (int64, error) {
	s := strings.NewReplacer(" ", "", ",", "", "\u00a0", "").Replace(r.str(col))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, errors.Errorf("invalid amount %q", r.str(col))
	}
	return int64(math.Round(f)), nil
}

func (r numberedRow) integer(col int) (int, error) {
	s := r.str(col)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid number %q", s)
	}
	return int(f), nil
}

// date reads a date cell as YYYY-MM-DD. Raw serial numbers, ISO and dotted dates are understood.
func (r numberedRow) date(col int) (string, error) {
	s := r.str(col)
	if s == "" {
		return "", nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", errors.Errorf("invalid date %q", s)
		}
		return t.Format(dateLayout), nil
	}
	for _, layout := range []string{dateLayout, "02.01.2006", "2006/01/02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	return "", errors.Errorf("invalid date %q", s)
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
