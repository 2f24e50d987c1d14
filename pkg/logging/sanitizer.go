package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Pattern to match API keys passed as query parameters or headers
	// (TMDB api_key=..., trakt-api-key: ...).
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey)[=:]\s?[A-Za-z0-9-_]{8,}`)

	// Pattern to match webhook tokens in receiver paths.
	webhookTokenPattern = regexp.MustCompile(`/webhook/plex/[A-Za-z0-9-_]+`)

	// Pattern to match potential passwords in connection strings.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match connection string credentials (user:pass@host format).
	connStringPattern = regexp.MustCompile(`://[^:/?#]+:[^@]+@[^/\s]+`)
)

// SanitizeURL removes credentials from a request URL before logging.
// External source calls carry the per-user API key in the query string.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	sanitized := apiKeyPattern.ReplaceAllString(rawURL, "${1}="+RedactedText)
	sanitized = webhookTokenPattern.ReplaceAllString(sanitized, "/webhook/plex/"+RedactedText)
	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this when logging errors from external source clients. Error text
// stored on a failed import job is kept verbatim for operator diagnosis.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := apiKeyPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = webhookTokenPattern.ReplaceAllString(sanitized, "/webhook/plex/"+RedactedText)
	return sanitized
}

// MaskCredential shortens a credential to its first and last four characters.
// Used when logging which Trakt client ID a job runs under.
func MaskCredential(cred string) string {
	if len(cred) <= 8 {
		return RedactedText
	}
	return cred[:4] + "..." + cred[len(cred)-4:]
}
