// Package output renders command results, errors and random payloads for the
// entropool CLI and HTTP server.
package output

import (
	"encoding/json"
	"io"
	"strings"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter handles output formatting.
type Formatter struct {
	format Format
	writer io.Writer
}

// NewFormatter creates a new formatter with the specified format.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: w,
	}
}

// Format returns the current output format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the output writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// IsJSON returns true if the formatter outputs JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// JSON writes v as indented JSON regardless of the format.
func (f *Formatter) JSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Render writes v as JSON, or fields as aligned text lines.
func (f *Formatter) Render(v any, fields []Field) error {
	if f.format == FormatJSON {
		return f.JSON(v)
	}
	return RenderFields(f.writer, fields)
}

// Success reports a completed action.
func (f *Formatter) Success(message string) error {
	return FormatSuccess(f.writer, message, f.format)
}

// Error reports err in the formatter's format.
func (f *Formatter) Error(err error) error {
	return FormatError(f.writer, err, f.format)
}

// DetectFormat determines the appropriate format based on context.
// Returns JSON for non-TTY output, text for TTY, unless explicitly overridden.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}

	if IsTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatAuto
	}
}
