package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/mcncl/dynval/internal/dynamic"
)

var escapes = map[rune]rune{
	'"':  '"',
	'\\': '\\',
	'/':  '/',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
}

var datePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(?:\.(\d*))?(Z|[+-]\d{1,2}:\d{1,2})?$`)

// maxOffsetHours bounds the zone offsets accepted in promoted timestamps.
const maxOffsetHours = 14

func (s *state) str() (string, error) {
	if !s.is('"') {
		return "", s.fail("Bad string")
	}

	var sb strings.Builder
	s.next()
	for !s.eof {
		switch s.ch {
		case '"':
			s.next()
			return sb.String(), nil
		case '\\':
			if !s.next() {
				return "", s.fail("Bad string")
			}
			if s.ch == 'u' {
				s.next()
				sb.WriteRune(s.unicodeEscape())
				continue
			}
			e, ok := escapes[s.ch]
			if !ok {
				return "", s.fail("Bad string")
			}
			sb.WriteRune(e)
			s.next()
		default:
			sb.WriteRune(s.ch)
			s.next()
		}
	}
	return "", s.fail("Bad string")
}

// unicodeEscape decodes the hex digits of a \u escape, combining a UTF-16
// surrogate pair when a second escape follows. Reading stops at the first
// character that is not a hex digit, which is left in place.
func (s *state) unicodeEscape() rune {
	r := s.hex4()
	if !utf16.IsSurrogate(r) || !s.is('\\') || !strings.HasPrefix(s.text[s.at:], "u") {
		return r
	}

	mark, ch := s.at, s.ch
	s.next()
	s.next()
	if c := utf16.DecodeRune(r, s.hex4()); c != unicode.ReplacementChar {
		return c
	}
	s.at, s.ch, s.eof = mark, ch, false
	return r
}

func (s *state) hex4() rune {
	var r rune
	for i := 0; i < 4 && !s.eof; i++ {
		h, ok := hexDigit(s.ch)
		if !ok {
			break
		}
		r = r*16 + h
		s.next()
	}
	return r
}

func hexDigit(c rune) (rune, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (s *state) number() (*dynamic.Value, error) {
	var sb strings.Builder

	if s.is('-') {
		sb.WriteRune('-')
		s.next()
	}
	for s.isDigit() {
		sb.WriteRune(s.ch)
		s.next()
	}
	if s.is('.') {
		sb.WriteRune('.')
		s.next()
		for s.isDigit() {
			sb.WriteRune(s.ch)
			s.next()
		}
	}
	if s.is('e') || s.is('E') {
		sb.WriteRune(s.ch)
		s.next()
		if s.is('-') || s.is('+') {
			sb.WriteRune(s.ch)
			s.next()
		}
		for s.isDigit() {
			sb.WriteRune(s.ch)
			s.next()
		}
	}

	f, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		return nil, s.fail("Bad number")
	}
	return dynamic.New(f), nil
}

type literal struct {
	text  string
	value any
}

var literals = []literal{
	{text: "true", value: true},
	{text: "false", value: false},
	{text: "null"},
	{text: "undefined"},
}

func (s *state) word() (*dynamic.Value, error) {
	for _, lit := range literals {
		if rune(lit.text[0]) != s.ch {
			continue
		}
		for _, c := range lit.text {
			if err := s.expect(c); err != nil {
				return nil, err
			}
		}
		return dynamic.New(lit.value), nil
	}
	return nil, s.fail(fmt.Sprintf("Unexpected %s", s.current()))
}

// parseDate promotes timestamp-shaped text. Text without a zone is read as
// UTC. Text that matches the shape but names an impossible instant stays a
// string.
func parseDate(str string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(str)
	if m == nil {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])
	nsec := fraction(m[7])

	loc := time.UTC
	if zone := m[8]; zone != "" && zone != "Z" {
		h, mm, _ := strings.Cut(zone[1:], ":")
		oh, _ := strconv.Atoi(h)
		om, _ := strconv.Atoi(mm)
		if oh > maxOffsetHours || om > 59 {
			return time.Time{}, false
		}
		offset := oh*3600 + om*60
		if zone[0] == '-' {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, false
	}
	return t, true
}

// fraction converts the digits after the decimal point of a seconds field to
// nanoseconds. Digits beyond nanosecond precision are dropped.
func fraction(digits string) int {
	if len(digits) > 9 {
		digits = digits[:9]
	}
	if digits == "" {
		return 0
	}
	n, _ := strconv.Atoi(digits + strings.Repeat("0", 9-len(digits)))
	return n
}
