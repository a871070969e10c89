// Package parser reads JSON text into dynamic values.
//
// The accepted grammar is a superset of JSON: the literal undefined parses
// to null, any character up to U+0020 counts as whitespace, and strings shaped
// like ISO-8601 timestamps are promoted to date/time scalars.
package parser

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	stderrors "errors" // Standard errors package

	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/errors" // Custom errors package
)

// Reviver transforms each object member before it is stored. It also runs
// once on the root value with an empty key. Returning nil drops the member.
type Reviver func(key string, value *dynamic.Value) *dynamic.Value

// Option configures a single parse call.
type Option func(*state)

// WithReviver installs r for the parse call.
func WithReviver(r Reviver) Option {
	return func(s *state) { s.reviver = r }
}

// WithDatePromotion toggles promotion of timestamp-shaped strings. It is on
// by default.
func WithDatePromotion(enabled bool) Option {
	return func(s *state) { s.promoteDates = enabled }
}

// Parse converts text into a Value tree. Malformed input yields a
// *errors.SyntaxError; no partial result is returned.
func Parse(text string, opts ...Option) (*dynamic.Value, error) {
	s := &state{text: text, promoteDates: true}
	for _, opt := range opts {
		opt(s)
	}

	s.next()
	v, err := s.value()
	if err != nil {
		return nil, err
	}
	s.white()
	if !s.eof {
		return nil, s.fail("Syntax error")
	}

	if s.reviver != nil {
		v = s.reviver("", v)
		if v == nil {
			v = dynamic.New(nil)
		}
	}
	return v, nil
}

// ParseString parses JSON from a string, rejecting blank input.
func ParseString(jsonString string, opts ...Option) (*dynamic.Value, error) {
	if strings.TrimSpace(jsonString) == "" {
		return nil, errors.NewInputError("input string is empty or consists only of whitespace", errors.ErrEmptyInput)
	}
	return parseInput(jsonString, opts)
}

// ParseReader parses JSON read from reader.
func ParseReader(reader io.Reader, opts ...Option) (*dynamic.Value, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewInputError("failed to read input", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}
	return parseInput(string(data), opts)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string, opts ...Option) (*dynamic.Value, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return nil, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return nil, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return ParseReader(file, opts...)
}

func parseInput(text string, opts []Option) (*dynamic.Value, error) {
	v, err := Parse(text, opts...)
	if err != nil {
		var syntaxErr *errors.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			return nil, errors.NewParsingError(
				fmt.Sprintf("JSON syntax error at offset %d", syntaxErr.At),
				err,
			)
		}
		return nil, errors.NewParsingError("failed to parse JSON", err)
	}
	return v, nil
}

// state is the cursor of one parse call. ch is the current character and at
// the byte offset just past it.
type state struct {
	text string
	at   int
	ch   rune
	eof  bool

	reviver      Reviver
	promoteDates bool
}

func (s *state) fail(message string) error {
	return &errors.SyntaxError{Message: message, At: s.at, Text: s.text}
}

// next advances to the following character and reports whether one exists.
func (s *state) next() bool {
	if s.at >= len(s.text) {
		s.ch = 0
		s.eof = true
		return false
	}
	r, size := utf8.DecodeRuneInString(s.text[s.at:])
	s.ch = r
	s.at += size
	return true
}

// is reports whether the current character is c.
func (s *state) is(c rune) bool {
	return !s.eof && s.ch == c
}

func (s *state) isDigit() bool {
	return !s.eof && s.ch >= '0' && s.ch <= '9'
}

// expect consumes c or fails.
func (s *state) expect(c rune) error {
	if !s.is(c) {
		return s.fail(fmt.Sprintf("Expected '%c' instead of %s", c, s.current()))
	}
	s.next()
	return nil
}

func (s *state) current() string {
	if s.eof {
		return "end of input"
	}
	return fmt.Sprintf("'%c'", s.ch)
}

func (s *state) white() {
	for !s.eof && s.ch <= ' ' {
		s.next()
	}
}

func (s *state) value() (*dynamic.Value, error) {
	s.white()
	if s.eof {
		return nil, s.fail("Unexpected end of input")
	}

	switch {
	case s.ch == '{':
		return s.object()
	case s.ch == '[':
		return s.array()
	case s.ch == '"':
		str, err := s.str()
		if err != nil {
			return nil, err
		}
		if s.promoteDates {
			if t, ok := parseDate(str); ok {
				return dynamic.New(t), nil
			}
		}
		return dynamic.New(str), nil
	case s.ch == '-' || s.isDigit():
		return s.number()
	}
	return s.word()
}

func (s *state) object() (*dynamic.Value, error) {
	obj := dynamic.New(nil)

	s.next()
	s.white()
	if s.is('}') {
		s.next()
		return obj, nil
	}

	// keys dropped by the reviver still count as seen
	seen := make(map[string]bool)
	for {
		key, err := s.str()
		if err != nil {
			return nil, err
		}
		folded := dynamic.FoldKey(key)
		if seen[folded] {
			return nil, s.fail(fmt.Sprintf("Duplicate key '%s'", key))
		}
		seen[folded] = true

		s.white()
		if err := s.expect(':'); err != nil {
			return nil, err
		}
		val, err := s.value()
		if err != nil {
			return nil, err
		}
		if s.reviver != nil {
			val = s.reviver(key, val)
		}
		if val != nil {
			obj.Set(key, val)
		}

		s.white()
		if s.is('}') {
			s.next()
			return obj, nil
		}
		if err := s.expect(','); err != nil {
			return nil, err
		}
		s.white()
	}
}

func (s *state) array() (*dynamic.Value, error) {
	arr := dynamic.New(nil)

	s.next()
	s.white()
	if s.is(']') {
		s.next()
		return arr, nil
	}

	for {
		val, err := s.value()
		if err != nil {
			return nil, err
		}
		arr.Add(val)

		s.white()
		if s.is(']') {
			s.next()
			return arr, nil
		}
		if err := s.expect(','); err != nil {
			return nil, err
		}
		s.white()
	}
}
