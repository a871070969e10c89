package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mcncl/dynval/internal/config"
	"github.com/mcncl/dynval/internal/data"
	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(...any) error                            { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

type fakeResults struct {
	rows []*fakeRows
	err  error
}

func (b *fakeResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, nil }
func (b *fakeResults) QueryRow() pgx.Row                { return nil }
func (b *fakeResults) Close() error                     { return nil }

func (b *fakeResults) Query() (pgx.Rows, error) {
	if b.err != nil {
		return nil, b.err
	}
	r := b.rows[0]
	b.rows = b.rows[1:]
	return r, nil
}

type fakeQuerier struct {
	results *fakeResults
}

func (q *fakeQuerier) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	return q.results
}

func proxy(rows ...*fakeRows) *data.Proxy {
	return data.NewProxy(&fakeQuerier{results: &fakeResults{rows: rows}})
}

func items() *fakeRows {
	return &fakeRows{
		fields: []pgconn.FieldDescription{
			{Name: "id", DataTypeOID: pgtype.Int4OID},
			{Name: "name", DataTypeOID: pgtype.TextOID},
			{Name: "price", DataTypeOID: pgtype.NumericOID},
		},
		data: [][]any{
			{int32(1), "widget", pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true}},
			{int32(2), "a much longer product name", nil},
		},
	}
}

type cell struct{ row, col int }

type fakeSheet struct {
	name    string
	cells   map[cell]any
	formats map[int]string
	fitted  []int
	failOn  int
}

func (s *fakeSheet) SetCell(row, col int, value any) error {
	if s.failOn != 0 && row == s.failOn {
		return stderrors.New("disk full")
	}
	s.cells[cell{row, col}] = value
	return nil
}

func (s *fakeSheet) SetColumnFormat(col int, typeName string) error {
	s.formats[col] = typeName
	return nil
}

func (s *fakeSheet) AutoFit(col int) error {
	s.fitted = append(s.fitted, col)
	return nil
}

type fakeWorkbook struct {
	sheets []*fakeSheet
	failOn int
	closed bool
}

func (w *fakeWorkbook) AddSheet(name string) (Sheet, error) {
	s := &fakeSheet{name: name, cells: map[cell]any{}, formats: map[int]string{}, failOn: w.failOn}
	w.sheets = append(w.sheets, s)
	return s, nil
}

func (w *fakeWorkbook) Bytes() ([]byte, error) { return []byte("book"), nil }

func (w *fakeWorkbook) Close() error {
	w.closed = true
	return nil
}

func TestExport_Layout(t *testing.T) {
	book := &fakeWorkbook{}
	second := &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "total", DataTypeOID: pgtype.Int8OID}},
		data:   [][]any{{int64(3)}},
	}

	var logs bytes.Buffer
	e := New(proxy(items(), second),
		WithWorkbook(func() Workbook { return book }),
		WithSheetPrefix("Page"),
		WithLogger(logging.New(&logs, logging.ParseLevel("info"), "text")))

	// a single statement reads only the first result set
	got := e.Export(context.Background(), "select * from items")

	assert.Equal(t, 0, got.Get("Code").AsInt())
	assert.Equal(t, []byte("book"), got.Get("Data").AsBytes())
	assert.True(t, book.closed)
	require.Len(t, book.sheets, 1)

	s := book.sheets[0]
	assert.Equal(t, "Page1", s.name)
	assert.Equal(t, "id", s.cells[cell{1, 1}])
	assert.Equal(t, "price", s.cells[cell{1, 3}])
	assert.Equal(t, int32(1), s.cells[cell{2, 1}])
	assert.Equal(t, "a much longer product name", s.cells[cell{3, 2}])
	assert.Nil(t, s.cells[cell{3, 3}])
	assert.Equal(t, map[int]string{1: "int4", 2: "text", 3: "numeric"}, s.formats)
	assert.Equal(t, []int{1, 2, 3}, s.fitted)

	assert.Contains(t, logs.String(), "export completed")
}

func TestExport_HeaderRow(t *testing.T) {
	book := &fakeWorkbook{}
	cfg := config.NewConfig()
	cfg.Export.HeaderRow = 3

	got := FromConfig(proxy(items()), cfg, WithWorkbook(func() Workbook { return book })).
		Export(context.Background(), "select * from items")

	assert.Equal(t, 0, got.Get("Code").AsInt())
	s := book.sheets[0]
	assert.Equal(t, "Sheet1", s.name)
	assert.Equal(t, "id", s.cells[cell{3, 1}])
	assert.Equal(t, int32(1), s.cells[cell{4, 1}])
	assert.Equal(t, int32(2), s.cells[cell{5, 1}])
}

func TestExport_WriteFailure(t *testing.T) {
	book := &fakeWorkbook{failOn: 2}

	got := New(proxy(items()), WithWorkbook(func() Workbook { return book })).
		Export(context.Background(), "select * from items")

	assert.Equal(t, 1, got.Get("Code").AsInt())
	assert.True(t, got.ContainsKey("Data"))
	assert.True(t, got.Get("Data").IsNull())
	assert.True(t, book.closed)
}

func TestExport_QueryFailure(t *testing.T) {
	q := &fakeQuerier{results: &fakeResults{err: stderrors.New("permission denied")}}

	got := New(data.NewProxy(q)).Export(context.Background(), "select * from secrets", dynamic.In("id", 1))

	assert.Equal(t, 1, got.Get("Code").AsInt())
	assert.Equal(t, "permission denied", got.Get("Message").AsString())
	assert.Contains(t, got.Get("Sql").AsString(), "select * from secrets")
}

func TestExport_Excel(t *testing.T) {
	at := time.Date(2024, 3, 4, 5, 6, 0, 0, time.UTC)
	rows := items()
	rows.fields = append(rows.fields, pgconn.FieldDescription{Name: "created", DataTypeOID: pgtype.TimestamptzOID})
	rows.data[0] = append(rows.data[0], at)
	rows.data[1] = append(rows.data[1], at)

	got := New(proxy(rows)).Export(context.Background(), "select * from items")
	require.Equal(t, 0, got.Get("Code").AsInt())

	f, err := excelize.OpenReader(bytes.NewReader(got.Get("Data").AsBytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Sheet1"}, f.GetSheetList())

	header, err := f.GetCellValue("Sheet1", "B1")
	require.NoError(t, err)
	assert.Equal(t, "name", header)

	name, err := f.GetCellValue("Sheet1", "B3")
	require.NoError(t, err)
	assert.Equal(t, "a much longer product name", name)

	id, err := f.GetCellValue("Sheet1", "A2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	price, err := f.GetCellValue("Sheet1", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "12.5", price)

	width, err := f.GetColWidth("Sheet1", "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("a much longer product name")+2), width)

	width, err = f.GetColWidth("Sheet1", "A")
	require.NoError(t, err)
	assert.Equal(t, float64(minColWidth), width)
}

func TestExcel_Sheets(t *testing.T) {
	book := NewExcel()
	defer book.Close()

	_, err := book.AddSheet("First")
	require.NoError(t, err)
	s, err := book.AddSheet("Second")
	require.NoError(t, err)
	require.NoError(t, s.SetCell(1, 1, "x"))
	require.NoError(t, s.SetColumnFormat(1, "date"))
	require.NoError(t, s.SetColumnFormat(2, "unknown"))

	b, err := book.Bytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"First", "Second"}, f.GetSheetList())

	value, err := f.GetCellValue("Second", "A1")
	require.NoError(t, err)
	assert.Equal(t, "x", value)
}

func TestNumFmt(t *testing.T) {
	tests := []struct {
		typeName string
		want     int
		ok       bool
	}{
		{"int8", 1, true},
		{"numeric", 4, true},
		{"date", 14, true},
		{"timestamptz", 22, true},
		{"varchar", 49, true},
		{"jsonb", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			got, ok := NumFmt(tt.typeName)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
