package export

import (
	"context"
	"fmt"

	"github.com/mcncl/dynval/internal/config"
	"github.com/mcncl/dynval/internal/data"
	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/errors"
	"github.com/mcncl/dynval/internal/logging"
	"github.com/mcncl/dynval/internal/models"
)

// Exporter runs queries and writes every result set to its own sheet.
type Exporter struct {
	proxy       *data.Proxy
	newWorkbook func() Workbook
	sheetPrefix string
	headerRow   int
	logger      *logging.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithWorkbook sets the workbook factory. The default builds xlsx files.
func WithWorkbook(fn func() Workbook) Option {
	return func(e *Exporter) { e.newWorkbook = fn }
}

// WithSheetPrefix names sheets <prefix>1, <prefix>2 and so on.
func WithSheetPrefix(prefix string) Option {
	return func(e *Exporter) { e.sheetPrefix = prefix }
}

// WithHeaderRow sets the row holding column names. Data starts on the row
// below it.
func WithHeaderRow(row int) Option {
	return func(e *Exporter) { e.headerRow = row }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// New creates an Exporter reading through proxy.
func New(proxy *data.Proxy, opts ...Option) *Exporter {
	e := &Exporter{
		proxy:       proxy,
		newWorkbook: NewExcel,
		sheetPrefix: "Sheet",
		headerRow:   1,
		logger:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig creates an Exporter using the export section of cfg.
func FromConfig(proxy *data.Proxy, cfg *config.Config, opts ...Option) *Exporter {
	opts = append([]Option{
		WithSheetPrefix(cfg.Export.SheetPrefix),
		WithHeaderRow(cfg.Export.HeaderRow),
	}, opts...)
	return New(proxy, opts...)
}

// Export runs sql and returns {Code: 0, Data: <workbook bytes>}. A failure
// while writing the workbook gives {Code: 1, Data: null}; a failing
// statement gives the proxy's error value.
func (e *Exporter) Export(ctx context.Context, sql string, params ...dynamic.Param) *dynamic.Value {
	return e.proxy.Read(ctx, &sheets{exporter: e, ctx: ctx}, data.Statement{SQL: sql, Params: params})
}

// sheets is the processor behind Export.
type sheets struct {
	exporter *Exporter
	ctx      context.Context
}

func (s *sheets) ReadsParameters() bool { return false }

func (s *sheets) Process(c *data.Cursor) (*dynamic.Value, error) {
	result := dynamic.New(nil).
		Set(models.KeyCode, models.CodeOK).
		Set(models.KeyData, nil)

	b, count, err := s.write(c)
	s.exporter.logger.LogExport(s.ctx, count, len(b), err)
	if err != nil {
		return result.Set(models.KeyCode, models.CodeError), nil
	}
	return result.Set(models.KeyData, b), nil
}

func (s *sheets) write(c *data.Cursor) (b []byte, count int, err error) {
	e := s.exporter
	book := e.newWorkbook()
	defer func() {
		if closeErr := book.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for {
		count++
		sheet, err := book.AddSheet(fmt.Sprintf("%s%d", e.sheetPrefix, count))
		if err != nil {
			return nil, count, errors.NewExportError("failed to add sheet", err)
		}

		row := e.headerRow + 1
		for c.Next() {
			for i := 0; i < c.FieldCount(); i++ {
				if err := sheet.SetCell(row, i+1, c.FieldValue(i)); err != nil {
					return nil, count, errors.NewExportError("failed to write cell", err)
				}
			}
			row++
		}
		if err := c.Err(); err != nil {
			return nil, count, err
		}

		for i := 0; i < c.FieldCount(); i++ {
			col := i + 1
			if err := sheet.SetCell(e.headerRow, col, c.FieldName(i)); err != nil {
				return nil, count, errors.NewExportError("failed to write header", err)
			}
			if err := sheet.SetColumnFormat(col, c.FieldType(i)); err != nil {
				return nil, count, errors.NewExportError("failed to format column", err)
			}
			if err := sheet.AutoFit(col); err != nil {
				return nil, count, errors.NewExportError("failed to size column", err)
			}
		}

		if !c.NextResult() {
			break
		}
	}
	if err := c.Err(); err != nil {
		return nil, count, err
	}

	b, err = book.Bytes()
	if err != nil {
		return nil, count, errors.NewExportError("failed to encode workbook", err)
	}
	return b, count, nil
}
