package output

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
)

// JSON writes data as indented JSON to the given writer.
func JSON(w io.Writer, data any) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ErrorResponse is the JSON envelope for structured error output. It has the
// same shape as the server's error body.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// JSONError writes a structured error to the given writer as JSON.
func JSONError(w io.Writer, code, msg string, details map[string]any) {
	_ = JSON(w, ErrorResponse{Error: msg, Code: code, Details: details}) // best-effort
}

// BatchResult represents the outcome of a single operation within a batch.
type BatchResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// WarningOf converts an advisory error into the error envelope, or nil.
func WarningOf(e *clierr.Error) *ErrorResponse {
	if e == nil {
		return nil
	}
	return &ErrorResponse{Error: e.Message, Code: e.Code, Details: e.Details}
}
