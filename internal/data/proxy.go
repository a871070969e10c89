// Package data runs SQL through pgx and materialises the results as dynamic
// values.
//
// A proxy never returns a Go error. Failures are reported in the returned
// value as {Code: 1, Message, Exception, Sql}.
package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcncl/dynval/internal/config"
	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/errors"
	"github.com/mcncl/dynval/internal/logging"
	"github.com/mcncl/dynval/internal/models"
	"github.com/mcncl/dynval/internal/serializer"
)

// Querier sends batches of statements. *pgxpool.Pool, *pgx.Conn and pgx.Tx
// all satisfy it, so a proxy built on a transaction runs inside it.
type Querier interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Statement is one SQL text with its parameters.
type Statement struct {
	SQL    string
	Params []dynamic.Param
}

// Proxy runs statements and returns their results as values.
type Proxy struct {
	db        Querier
	processor Processor
	fieldName func(string) string
	logger    *logging.Logger
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithProcessor replaces the default TablesProcessor.
func WithProcessor(p Processor) Option {
	return func(px *Proxy) { px.processor = p }
}

// WithFieldName converts column and output parameter names.
func WithFieldName(fn func(string) string) Option {
	return func(px *Proxy) { px.fieldName = fn }
}

// WithLogger sets the logger used for statement diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(px *Proxy) { px.logger = l }
}

// NewProxy creates a Proxy over db.
func NewProxy(db Querier, opts ...Option) *Proxy {
	px := &Proxy{
		db:        db,
		processor: TablesProcessor{},
		fieldName: func(name string) string { return name },
		logger:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(px)
	}
	return px
}

// Open connects a pool using the database section of cfg. The returned
// function closes the pool.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Proxy, func(), error) {
	if cfg.Database.DSN == "" {
		return nil, nil, errors.NewDatabaseError("cannot open database", errors.ErrNoDSN)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return nil, nil, errors.NewDatabaseError("invalid connection string", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, errors.NewDatabaseError("failed to create connection pool", err)
	}

	opts = append([]Option{WithFieldName(cfg.FieldName)}, opts...)
	return NewProxy(pool, opts...), pool.Close, nil
}

// Run executes sql with params through the proxy's processor.
func (px *Proxy) Run(ctx context.Context, sql string, params ...dynamic.Param) *dynamic.Value {
	return px.Read(ctx, px.processor, Statement{SQL: sql, Params: params})
}

// RunBatch executes statements in one round trip. Each statement yields one
// result set.
func (px *Proxy) RunBatch(ctx context.Context, statements ...Statement) *dynamic.Value {
	return px.Read(ctx, px.processor, statements...)
}

// Read executes statements and hands the results to proc.
func (px *Proxy) Read(ctx context.Context, proc Processor, statements ...Statement) *dynamic.Value {
	text := batchText(statements)
	logger := px.logger.WithSQL(text)
	start := time.Now()

	data, c, err := px.read(ctx, proc, statements)
	if err != nil {
		logger.LogQuery(ctx, 0, 0, time.Since(start), err)
		return failure(err, statements)
	}
	logger.LogQuery(ctx, c.tables, c.rowCount, time.Since(start), nil)

	if proc.ReadsParameters() {
		px.readParameters(data, c, statements)
	}
	return data
}

func (px *Proxy) read(ctx context.Context, proc Processor, statements []Statement) (data *dynamic.Value, c *Cursor, err error) {
	if len(statements) == 0 {
		return nil, nil, fmt.Errorf("no statement to execute")
	}

	batch := &pgx.Batch{}
	for _, st := range statements {
		batch.Queue(st.SQL, arguments(st.Params)...)
	}

	c = newCursor(px.db.SendBatch(ctx, batch), len(statements), px.fieldName)
	defer func() {
		if closeErr := c.close(); closeErr != nil && err == nil {
			data, err = nil, closeErr
		}
	}()

	if !c.open() {
		return nil, c, c.Err()
	}
	data, err = proc.Process(c)
	if err != nil {
		return nil, c, err
	}
	return data, c, nil
}

// readParameters copies output parameters from the final row read. Output
// and InputOutput parameters take the column of the same name; a
// ReturnValue parameter takes the first column.
func (px *Proxy) readParameters(data *dynamic.Value, c *Cursor, statements []Statement) {
	for _, st := range statements {
		for _, p := range st.Params {
			switch p.Direction {
			case dynamic.Output, dynamic.InputOutput:
				value, ok := c.lastColumn(p.Name)
				if !ok && p.Direction == dynamic.InputOutput {
					value = p.Value
				}
				data.Get(models.KeyOutput).Set(px.fieldName(p.Name), value)
			case dynamic.ReturnValue:
				value, _ := c.firstLastColumn()
				data.Set(models.KeyReturnValue, value)
			}
		}
	}
}

// arguments builds the query arguments. Output-only parameters are not
// sent. Named parameters are sent as pgx.NamedArgs, others positionally.
func arguments(params []dynamic.Param) []any {
	var named pgx.NamedArgs
	var positional []any
	for _, p := range params {
		if p.Direction == dynamic.Output || p.Direction == dynamic.ReturnValue {
			continue
		}
		if p.Name == "" {
			positional = append(positional, argValue(p.Value))
			continue
		}
		if named == nil {
			named = pgx.NamedArgs{}
		}
		named[strings.TrimPrefix(p.Name, "@")] = argValue(p.Value)
	}
	if named != nil {
		return append([]any{named}, positional...)
	}
	return positional
}

// argValue unwraps values and secrets into driver arguments. Containers are
// sent as JSON text.
func argValue(x any) any {
	switch v := x.(type) {
	case *dynamic.Value:
		switch {
		case v == nil, v.IsNull():
			return nil
		case v.IsByteArray():
			return v.AsBytes()
		case v.Payload() != nil:
			return argValue(v.Payload())
		}
		return serializer.Serialize(v)
	case dynamic.SecureString:
		return v.Reveal()
	}
	return x
}

// failure builds the error value of a failed run.
func failure(err error, statements []Statement) *dynamic.Value {
	return dynamic.New(nil).
		Set(models.KeyCode, models.CodeError).
		Set(models.KeyMessage, err.Error()).
		Set(models.KeyException, err).
		Set(models.KeySQL, FormatMessage(statements))
}

// FormatMessage renders statements and their parameters for diagnostics.
// Secure strings are masked.
func FormatMessage(statements []Statement) string {
	var sb strings.Builder
	for _, st := range statements {
		sb.WriteString(st.SQL)
		sb.WriteString("\n")
		if len(st.Params) == 0 {
			continue
		}

		sb.WriteString("Parameter")
		if len(st.Params) > 1 {
			sb.WriteString("s")
		}
		sb.WriteString("\n")
		for _, p := range st.Params {
			fmt.Fprintf(&sb, "ParameterName: %s, Type: %T, Direction: %s, Value: %v\n",
				p.Name, p.Value, p.Direction, p.Value)
		}
	}
	return sb.String()
}

func batchText(statements []Statement) string {
	texts := make([]string, len(statements))
	for i, st := range statements {
		texts[i] = st.SQL
	}
	return strings.Join(texts, "; ")
}
