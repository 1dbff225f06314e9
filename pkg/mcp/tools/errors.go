package tools

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a successful tool result keeps the details visible to the
// calling model instead of being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on (bad directory, empty
// expression, missing schema). System failures stay Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// sqlStateRegex matches PostgreSQL SQLSTATE codes in error messages like "(SQLSTATE 42P01)"
var sqlStateRegex = regexp.MustCompile(`\(SQLSTATE ([0-9A-Z]{5})\)`)

// sqlState returns the SQLSTATE carried by err, if any.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	if matches := sqlStateRegex.FindStringSubmatch(err.Error()); len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

// IsSQLUserError reports whether err is a database error caused by the
// request (unknown schema or table, missing privilege) rather than a
// server failure.
//
// PostgreSQL SQLSTATE classes treated as user errors:
//   - 3Fxxx: Invalid Schema Name
//   - 42xxx: Syntax Error or Access Rule Violation
func IsSQLUserError(err error) bool {
	if err == nil {
		return false
	}
	state := sqlState(err)
	if len(state) < 2 {
		return false
	}
	switch state[:2] {
	case "3F", "42":
		return true
	}
	return false
}

// SQLUserErrorCode maps a SQL user error to a tool error code.
func SQLUserErrorCode(err error) string {
	if err == nil {
		return ""
	}
	switch sqlState(err) {
	case "":
		return ""
	case "3F000":
		return "undefined_schema"
	case "42P01":
		return "undefined_table"
	case "42501":
		return "insufficient_privilege"
	}
	return "sql_error"
}

// ExtractSQLErrorMessage returns the server message of a SQL error without
// the SQLSTATE suffix.
func ExtractSQLErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	msg := err.Error()
	if idx := strings.Index(msg, " (SQLSTATE"); idx != -1 {
		msg = msg[:idx]
	}
	return strings.TrimPrefix(msg, "ERROR: ")
}

// ToolErrorResult converts a service error into a tool result when the
// caller can act on it. It returns nil for failures that should surface as
// protocol errors.
func ToolErrorResult(err error) *mcp.CallToolResult {
	if err == nil {
		return nil
	}
	if IsSQLUserError(err) {
		return NewErrorResult(SQLUserErrorCode(err), ExtractSQLErrorMessage(err))
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindInput:
		return NewErrorResultWithDetails("invalid_input", logging.SanitizeError(err),
			map[string]any{"stage": apperrors.StageOf(err)})
	case apperrors.KindRender:
		return NewErrorResult("render_failed", logging.SanitizeError(err))
	case apperrors.KindGeneration:
		return NewErrorResult("generation_failed", logging.SanitizeError(err))
	}
	return nil
}
