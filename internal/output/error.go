package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// NewErrorOutput converts err into its structured form. Errors that are not
// pool errors are reported as GENERAL_ERROR.
func NewErrorOutput(err error) ErrorOutput {
	var pe *poolerr.PoolError
	if errors.As(err, &pe) {
		return ErrorOutput{Error: ErrorDetail{
			Code:       pe.Code,
			Message:    pe.Message,
			Details:    pe.Details,
			Suggestion: pe.Suggestion,
			ExitCode:   pe.ExitCode,
		}}
	}
	return ErrorOutput{Error: ErrorDetail{
		Code:     poolerr.ErrGeneral.Code,
		Message:  err.Error(),
		ExitCode: poolerr.ExitGeneral,
	}}
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	if format == FormatJSON {
		return formatErrorJSON(w, err)
	}
	return formatErrorText(w, err)
}

func formatErrorJSON(w io.Writer, err error) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewErrorOutput(err))
}

func formatErrorText(w io.Writer, err error) error {
	var sb strings.Builder

	out := NewErrorOutput(err).Error
	sb.WriteString(fmt.Sprintf("Error: %s\n", out.Message))

	if len(out.Details) > 0 {
		keys := make([]string, 0, len(out.Details))
		for k := range out.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, out.Details[k]))
		}
	}

	if out.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", out.Suggestion))
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		out := map[string]string{"status": "success", "message": message}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
