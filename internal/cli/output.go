package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/worktoolai/taskai/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess     = 0 // successful execution
	ExitValidation  = 1 // validation or lookup error (caller-fixable)
	ExitEnvironment = 2 // environment error (store location, schema, lock, I/O)
)

// GetExitCode maps an error to its exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if model.IsEnvironment(err) {
		return ExitEnvironment
	}
	return ExitValidation
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError carries the structured error in JSON output.
type ResponseError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	EntityID string `json:"entity_id,omitempty"`
}

// printJSON writes a success envelope.
func printJSON(w io.Writer, data any) error {
	return encodeJSON(w, Response{Status: "ok", Data: data})
}

// printJSONError writes an error envelope.
func printJSONError(w io.Writer, err error) error {
	re := &ResponseError{
		Code:    string(model.CodeOf(err)),
		Message: err.Error(),
	}
	var me *model.Error
	if errors.As(err, &me) {
		re.Message = me.Message
		re.EntityID = me.EntityID
	}
	return encodeJSON(w, Response{Status: "error", Error: re})
}

// verboseLog writes a diagnostic line to stderr when --verbose is set.
// Diagnostics never go to stdout, so JSON output stays parseable.
func verboseLog(w io.Writer, opts *RootOptions, format string, args ...any) {
	if !opts.Verbose {
		return
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
