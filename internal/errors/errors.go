package errors

import (
	"errors"
	"fmt"
)

// Standard application errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrNoInput         = errors.New("no input provided: please specify a file with -i or pipe JSON data to stdin")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrUnknownFormat   = errors.New("unknown output format")
	ErrNoDSN           = errors.New("no database connection string configured")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput    ErrorType = "input"
	ErrorTypeParsing  ErrorType = "parsing"
	ErrorTypeEncoding ErrorType = "encoding"
	ErrorTypeDatabase ErrorType = "database"
	ErrorTypeExport   ErrorType = "export"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeOutput   ErrorType = "output"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return newError(ErrorTypeInput, message, err)
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return newError(ErrorTypeParsing, message, err)
}

// NewEncodingError creates a new error related to encoding a value tree
func NewEncodingError(message string, err error) *AppError {
	return newError(ErrorTypeEncoding, message, err)
}

// NewDatabaseError creates a new error related to database access
func NewDatabaseError(message string, err error) *AppError {
	return newError(ErrorTypeDatabase, message, err)
}

// NewExportError creates a new error related to spreadsheet export
func NewExportError(message string, err error) *AppError {
	return newError(ErrorTypeExport, message, err)
}

// NewConfigError creates a new error related to configuration
func NewConfigError(message string, err error) *AppError {
	return newError(ErrorTypeConfig, message, err)
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return newError(ErrorTypeOutput, message, err)
}

// snippetRadius is how many characters of source are shown on each side of
// a syntax error position.
const snippetRadius = 20

// SyntaxError reports malformed JSON text. At is the byte offset just past
// the character that failed, and Text the complete input.
type SyntaxError struct {
	Message string
	At      int
	Text    string
}

// Name returns the error kind.
func (e *SyntaxError) Name() string { return "SyntaxError" }

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d near %q", e.Message, e.At, e.Snippet())
}

// Snippet returns the source text surrounding the error position.
func (e *SyntaxError) Snippet() string {
	runes := []rune(e.Text)
	// convert the byte offset into a rune offset for slicing
	at := len([]rune(e.Text[:clamp(e.At, 0, len(e.Text))]))
	start := clamp(at-snippetRadius, 0, len(runes))
	end := clamp(at+snippetRadius, 0, len(runes))
	return string(runes[start:end])
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("JSON syntax error: %s at position %d near %q", syntaxErr.Message, syntaxErr.At, syntaxErr.Snippet())
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", appErr.Message)
		case ErrorTypeEncoding:
			return fmt.Sprintf("Encoding error: %s", appErr.Message)
		case ErrorTypeDatabase:
			return fmt.Sprintf("Database error: %s", appErr.Message)
		case ErrorTypeExport:
			return fmt.Sprintf("Export error: %s", appErr.Message)
		case ErrorTypeConfig:
			return fmt.Sprintf("Configuration error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	// Handle standard errors
	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty. Please provide a file with valid JSON content."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file with -i or pipe JSON data to stdin."
	}
	if errors.Is(err, ErrInvalidFilePath) {
		return "Error: Invalid file path. Please provide a valid file path."
	}
	if errors.Is(err, ErrUnknownFormat) {
		return "Error: Unknown output format. Use json or msgpack."
	}
	if errors.Is(err, ErrNoDSN) {
		return "Error: No database connection string. Pass --dsn or set database.dsn in the config file."
	}

	// Generic error message for unknown errors
	return fmt.Sprintf("Error: %v", err)
}
