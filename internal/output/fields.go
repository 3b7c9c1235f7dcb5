package output

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// Field is one labelled value in a text report.
type Field struct {
	Label string
	Value string
}

// RenderFields writes fields as aligned "label: value" lines.
func RenderFields(w io.Writer, fields []Field) error {
	width := 0
	for _, f := range fields {
		if n := utf8.RuneCountInString(f.Label); n > width {
			width = n
		}
	}
	for _, f := range fields {
		pad := width - utf8.RuneCountInString(f.Label)
		if _, err := fmt.Fprintf(w, "%s:%*s %s\n", f.Label, pad, "", f.Value); err != nil {
			return err
		}
	}
	return nil
}
