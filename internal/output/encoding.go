package output

import (
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/entropool/internal/suggest"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// Encoding selects how random payloads are written.
type Encoding string

// Payload encodings.
const (
	EncodingRaw    Encoding = "raw"
	EncodingHex    Encoding = "hex"
	EncodingBase64 Encoding = "base64"
)

// Encodings lists every accepted encoding name.
func Encodings() []string {
	return []string{string(EncodingRaw), string(EncodingHex), string(EncodingBase64)}
}

// ParseEncoding parses an encoding name. The empty string selects raw.
func ParseEncoding(s string) (Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch Encoding(name) {
	case "", EncodingRaw:
		return EncodingRaw, nil
	case EncodingHex:
		return EncodingHex, nil
	case EncodingBase64:
		return EncodingBase64, nil
	}

	err := poolerr.WithDetails(poolerr.ErrInvalidFormat, map[string]string{
		"encoding": s,
		"valid":    strings.Join(Encodings(), ", "),
	})
	if match := suggest.Closest(name, Encodings()); match != "" {
		err = poolerr.WithSuggestion(err, "did you mean '"+match+"'?")
	}
	return "", err
}

// ContentType returns the HTTP media type for payloads in this encoding.
func (e Encoding) ContentType() string {
	if e == EncodingRaw {
		return "application/octet-stream"
	}
	return "text/plain; charset=utf-8"
}

// Text reports whether the encoding produces printable output.
func (e Encoding) Text() bool {
	return e == EncodingHex || e == EncodingBase64
}

// Encode returns p in the given encoding. Text encodings end in a newline.
func Encode(p []byte, enc Encoding) []byte {
	switch enc {
	case EncodingHex:
		out := make([]byte, hex.EncodedLen(len(p))+1)
		hex.Encode(out, p)
		out[len(out)-1] = '\n'
		return out
	case EncodingBase64:
		out := make([]byte, base64.StdEncoding.EncodedLen(len(p))+1)
		base64.StdEncoding.Encode(out, p)
		out[len(out)-1] = '\n'
		return out
	default:
		return p
	}
}

// WritePayload writes p to w in the given encoding.
func WritePayload(w io.Writer, p []byte, enc Encoding) error {
	_, err := w.Write(Encode(p, enc))
	return err
}

// CopyPayload streams n bytes from r to w in the given encoding. Text
// encodings end in a newline.
func CopyPayload(w io.Writer, r io.Reader, n int64, enc Encoding) error {
	var (
		dst    io.Writer = w
		closer io.Closer
	)
	switch enc {
	case EncodingHex:
		dst = hex.NewEncoder(w)
	case EncodingBase64:
		bw := base64.NewEncoder(base64.StdEncoding, w)
		dst, closer = bw, bw
	}

	if _, err := io.CopyN(dst, r, n); err != nil {
		return err
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	if enc.Text() {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}
