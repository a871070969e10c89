package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mcncl/dynval/internal/analyzer"
	"github.com/mcncl/dynval/internal/codec"
	"github.com/mcncl/dynval/internal/config"
	"github.com/mcncl/dynval/internal/data"
	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/errors"
	"github.com/mcncl/dynval/internal/export"
	"github.com/mcncl/dynval/internal/formatter"
	"github.com/mcncl/dynval/internal/logging"
	"github.com/mcncl/dynval/internal/models"
	"github.com/mcncl/dynval/internal/parser"
)

// CLI defines the command-line interface
var CLI struct {
	Config  string           `help:"Path to config file. Defaults to .dynval.yml in the current or a parent directory." short:"c" type:"path"`
	Format  string           `help:"Output encoding: json or msgpack." short:"f"`
	Indent  string           `help:"Indent JSON output with this string."`
	DSN     string           `help:"PostgreSQL connection string." env:"DYNVAL_DSN"`
	Debug   bool             `help:"Enable debug logging." short:"d"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`

	Parse   ParseCmd   `cmd:"" help:"Parse JSON or MessagePack and write it back out."`
	Inspect InspectCmd `cmd:"" help:"Summarise the paths, kinds and shapes found in a document."`
	Query   QueryCmd   `cmd:"" help:"Run SQL and write the result envelope."`
	Export  ExportCmd  `cmd:"" help:"Run SQL and write the results to an xlsx workbook."`
}

// Context holds the runtime context shared by all commands
type Context struct {
	Ctx    context.Context
	Config *config.Config
	Logger *logging.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

// Version information
const (
	Version = "0.1.0"
)

// IOFlags are the input and output flags of the document commands
type IOFlags struct {
	Input  string `help:"Path to input file. If not specified, reads from stdin." short:"i" type:"path"`
	Output string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	From   string `help:"Input encoding: json or msgpack." default:"json" enum:"json,msgpack"`
}

// ParseCmd re-encodes a document
type ParseCmd struct {
	IOFlags `embed:""`
	NoDates bool `help:"Keep ISO 8601 strings as strings."`
}

func (c *ParseCmd) Run(ctx *Context) error {
	v, err := readDocument(ctx, c.IOFlags, !c.NoDates)
	if err != nil {
		return err
	}
	b, err := encode(ctx.Config, v)
	if err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, b)
}

// InspectCmd reports the analyzer summary of a document
type InspectCmd struct {
	IOFlags  `embed:""`
	RootName string `help:"Name for the root of the summary." short:"r"`
}

func (c *InspectCmd) Run(ctx *Context) error {
	v, err := readDocument(ctx, c.IOFlags, true)
	if err != nil {
		return err
	}

	result, err := analyzer.NewAnalyzerWithConfig(ctx.Config).Analyze(v, ctx.Config.Analyze.RootName)
	if err != nil {
		return errors.NewParsingError("failed to analyze document", err)
	}
	ctx.Logger.Debug("analysis complete", "paths", len(result.Paths), "max_depth", result.MaxDepth)

	b, err := encode(ctx.Config, summary(result))
	if err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, b)
}

// summary renders an analysis result as a value tree
func summary(result models.AnalysisResult) *dynamic.Value {
	paths := dynamic.New(nil)
	for _, p := range result.Paths {
		entry := dynamic.New(nil).
			Set("Path", p.Path).
			Set("Field", p.Field).
			Set("Kinds", p.Kinds).
			Set("Count", p.Count).
			Set("Nullable", p.Nullable)
		if p.Hint != "" {
			entry.Set("Hint", p.Hint)
		}
		paths.Add(entry)
	}
	return dynamic.New(nil).
		Set("Root", result.Root).
		Set("MaxDepth", result.MaxDepth).
		Set("Paths", paths)
}

// QueryCmd runs one statement through the data proxy
type QueryCmd struct {
	SQL    string   `arg:"" help:"SQL statement to run."`
	Param  []string `help:"Input parameter as name=value, or a bare value for a positional parameter." short:"p" sep:"none"`
	Out    []string `help:"Name of an output parameter filled from the final row." sep:"none"`
	Output string   `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
}

func (c *QueryCmd) Run(ctx *Context) error {
	proxy, closeDB, err := data.Open(ctx.Ctx, ctx.Config, data.WithLogger(ctx.Logger))
	if err != nil {
		return err
	}
	defer closeDB()

	result := proxy.Run(ctx.Ctx, c.SQL, parseParams(c.Param, c.Out)...)
	b, err := encode(ctx.Config, result)
	if err != nil {
		return err
	}
	if err := writeOutput(ctx, c.Output, b); err != nil {
		return err
	}

	if result.Get(models.KeyCode).AsInt() != models.CodeOK {
		return errors.NewDatabaseError(result.Get(models.KeyMessage).AsString(), nil)
	}
	return nil
}

// ExportCmd writes query results to a workbook
type ExportCmd struct {
	SQL    string   `arg:"" help:"SQL statement to run."`
	Param  []string `help:"Input parameter as name=value, or a bare value for a positional parameter." short:"p" sep:"none"`
	Output string   `help:"Path to the xlsx file to write." short:"o" type:"path" required:""`
}

func (c *ExportCmd) Run(ctx *Context) error {
	proxy, closeDB, err := data.Open(ctx.Ctx, ctx.Config, data.WithLogger(ctx.Logger))
	if err != nil {
		return err
	}
	defer closeDB()

	exporter := export.FromConfig(proxy, ctx.Config, export.WithLogger(ctx.Logger))
	result := exporter.Export(ctx.Ctx, c.SQL, parseParams(c.Param, nil)...)

	if result.Get(models.KeyCode).AsInt() != models.CodeOK {
		message := "failed to write workbook"
		if result.ContainsKey(models.KeyMessage) {
			message = result.Get(models.KeyMessage).AsString()
		}
		return errors.NewExportError(message, nil)
	}

	if err := os.WriteFile(c.Output, result.Get(models.KeyData).AsBytes(), 0644); err != nil {
		return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", c.Output), err)
	}
	fmt.Fprintf(os.Stderr, "Workbook written to %s\n", c.Output)
	return nil
}

func main() {
	// Parse CLI arguments with Kong
	parser := kong.Must(&CLI,
		kong.Name("dynval"),
		kong.Description("Parse, inspect and query dynamic JSON values"),
		kong.UsageOnError(),
		kong.Vars{"version": "dynval version " + Version},
	)

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		// If there's an error parsing arguments, the usage will already be shown by kong.UsageOnError()
		parser.FatalIfErrorf(err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	appCtx, err := newContext(sigCtx)
	if err == nil {
		err = kctx.Run(appCtx)
	}
	if err != nil {
		// Use our custom error handling to provide user-friendly error messages
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: dynval --help\n")
		stop()
		os.Exit(1)
	}
}

// newContext loads the configuration, applying flags over the config file
func newContext(ctx context.Context) (*Context, error) {
	configPath := CLI.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfigWithCLI(configPath, config.CLIOverrides{
		Format:   CLI.Format,
		Indent:   CLI.Indent,
		DSN:      CLI.DSN,
		RootName: CLI.Inspect.RootName,
		Debug:    CLI.Debug,
	})
	if err != nil {
		return nil, err
	}

	return &Context{
		Ctx:    ctx,
		Config: cfg,
		Logger: logging.New(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.Format),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}, nil
}

// readDocument reads and decodes the input document
func readDocument(ctx *Context, flags IOFlags, promoteDates bool) (*dynamic.Value, error) {
	raw, err := readInput(ctx, flags.Input)
	if err != nil {
		return nil, err
	}

	var c codec.Codec = codec.JSON{Options: []parser.Option{
		parser.WithDatePromotion(promoteDates && ctx.Config.Parse.PromoteDates),
	}}
	if flags.From != "" && flags.From != c.Name() {
		if c, err = codec.ByName(flags.From); err != nil {
			return nil, err
		}
	}

	v, err := c.Unmarshal(raw)
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to decode %s input", c.Name()), err)
	}
	return v, nil
}

// readInput reads the input file, or stdin when no file is given
func readInput(ctx *Context, path string) ([]byte, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewInputError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
			}
			return nil, errors.NewInputError(fmt.Sprintf("failed to read file '%s'", path), err)
		}
		if len(raw) == 0 {
			return nil, errors.NewInputError(fmt.Sprintf("input file '%s' is empty", path), errors.ErrFileEmpty)
		}
		return raw, nil
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.NewInputError("failed to access stdin", err)
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
	}

	raw, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}
	return raw, nil
}

// encode serializes v with the configured codec. JSON output is indented
// when an indent is configured.
func encode(cfg *config.Config, v *dynamic.Value) ([]byte, error) {
	c, err := codec.ByName(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	if c.Name() != config.FormatJSON {
		return b, nil
	}

	if cfg.Output.Indent == "" {
		return append(b, '\n'), nil
	}
	text, err := formatter.NewFormatter(cfg.Output.Indent).Format(string(b))
	if err != nil {
		return nil, errors.NewEncodingError("failed to indent output", err)
	}
	return []byte(text), nil
}

// writeOutput writes b to the output file or stdout
func writeOutput(ctx *Context, path string, b []byte) error {
	if path != "" {
		if err := os.WriteFile(path, b, 0644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		fmt.Fprintf(os.Stderr, "Output written to %s\n", path)
		return nil
	}

	if _, err := ctx.Stdout.Write(b); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// parseParams turns name=value flags into input parameters and names into
// output parameters. Values that parse as JSON keep their type.
func parseParams(values, outs []string) []dynamic.Param {
	var params []dynamic.Param
	for _, p := range values {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			params = append(params, dynamic.Param{Value: paramValue(p)})
			continue
		}
		params = append(params, dynamic.In(name, paramValue(raw)))
	}
	for _, name := range outs {
		params = append(params, dynamic.Out(name))
	}
	return params
}

func paramValue(raw string) any {
	v, err := parser.Parse(raw)
	if err != nil {
		return raw
	}
	return v
}
