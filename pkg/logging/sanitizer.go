package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter). Covers libpq
	// key-value DSNs and the ODBC style used by SQL Server.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer tokens sent to LLM endpoints
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_.]+`)

	// api_key=xxx style query parameters
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Provider secret keys that show up verbatim in SDK errors (sk-..., sk-ant-...)
	secretKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9\-_]{16,}`)

	// user:pass@host in URL DSNs (postgres://, sqlserver://)
	urlCredentialsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s?]+`)

	// user:pass@tcp(host) and user:pass@unix(path) in go-sql-driver/mysql DSNs
	mysqlCredentialsPattern = regexp.MustCompile(`[^:@/\s()]+:[^@\s]+@(tcp|unix)\(`)
)

// SanitizeConnectionString removes credentials from a table source DSN.
// Use this before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return redactDSN(connStr)
}

func redactDSN(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = urlCredentialsPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	s = mysqlCredentialsPattern.ReplaceAllString(s, RedactedText+"@${1}(")
	return s
}

// SanitizeError returns the error text with DSN credentials and API keys removed.
// Use this before logging errors from table sources or LLM clients.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := redactDSN(err.Error())
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = secretKeyPattern.ReplaceAllString(sanitized, RedactedText)
	return sanitized
}

// SanitizeQuery truncates a sampling query for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := TruncateString(query, MaxQueryLogLength)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
