package output

import (
	"fmt"
	"io"
)

// Info writes an informational line to w.
func Info(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, "info: "+msg)
}

// Infof writes a formatted informational line to w.
func Infof(w io.Writer, format string, args ...any) {
	Info(w, fmt.Sprintf(format, args...))
}

// Warn writes a warning line to w.
func Warn(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, "warning: "+msg)
}

// Warnf writes a formatted warning line to w.
func Warnf(w io.Writer, format string, args ...any) {
	Warn(w, fmt.Sprintf(format, args...))
}
