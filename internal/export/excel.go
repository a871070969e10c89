package export

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 8
	maxColWidth = 255
)

// Excel is a Workbook backed by an xlsx document.
type Excel struct {
	file   *excelize.File
	sheets int
	styles map[int]int
}

// NewExcel returns an empty xlsx workbook.
func NewExcel() Workbook {
	return &Excel{file: excelize.NewFile(), styles: make(map[int]int)}
}

func (x *Excel) AddSheet(name string) (Sheet, error) {
	if x.sheets == 0 {
		first := x.file.GetSheetName(0)
		if first != name {
			if err := x.file.SetSheetName(first, name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", first, err)
			}
		}
	} else if _, err := x.file.NewSheet(name); err != nil {
		return nil, fmt.Errorf("add sheet %q: %w", name, err)
	}
	x.sheets++
	return &excelSheet{book: x, name: name, widths: make(map[int]int)}, nil
}

func (x *Excel) Bytes() ([]byte, error) {
	buf, err := x.file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (x *Excel) Close() error { return x.file.Close() }

// style returns the id of a style holding numFmt, creating it once.
func (x *Excel) style(numFmt int) (int, error) {
	if id, ok := x.styles[numFmt]; ok {
		return id, nil
	}
	id, err := x.file.NewStyle(&excelize.Style{NumFmt: numFmt})
	if err != nil {
		return 0, err
	}
	x.styles[numFmt] = id
	return id, nil
}

type excelSheet struct {
	book *Excel
	name string
	// widths holds the longest text written per column
	widths map[int]int
}

func (s *excelSheet) SetCell(row, col int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	value = cellValue(value)
	if err := s.book.file.SetCellValue(s.name, cell, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", s.name, cell, err)
	}
	if value != nil {
		if n := textWidth(value); n > s.widths[col] {
			s.widths[col] = n
		}
	}
	return nil
}

func (s *excelSheet) SetColumnFormat(col int, typeName string) error {
	numFmt, ok := NumFmt(typeName)
	if !ok {
		return nil
	}
	id, err := s.book.style(numFmt)
	if err != nil {
		return err
	}
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	return s.book.file.SetColStyle(s.name, name, id)
}

func (s *excelSheet) AutoFit(col int) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	width := s.widths[col] + 2
	if width < minColWidth {
		width = minColWidth
	}
	if width > maxColWidth {
		width = maxColWidth
	}
	return s.book.file.SetColWidth(s.name, name, name, float64(width))
}

// cellValue converts row values the spreadsheet cannot store natively.
func cellValue(x any) any {
	switch v := x.(type) {
	case decimal.Decimal:
		return v.InexactFloat64()
	case uuid.UUID:
		return v.String()
	case time.Time:
		return v.UTC()
	}
	return x
}

func textWidth(x any) int {
	if _, ok := x.(time.Time); ok {
		return len("01/02/06 15:04")
	}
	return utf8.RuneCountInString(fmt.Sprint(x))
}
