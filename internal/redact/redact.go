// Package redact strips sensitive material from strings before they are
// logged. Errors bubbling up from LLM backends can embed API keys, bearer
// tokens, and full endpoint URLs; this package keeps those out of the log
// stream.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactedKeyPlaceholder  = "[REDACTED_KEY]"
	RedactedHostPlaceholder = "[REDACTED_HOST]"
)

var (
	// API keys and tokens in key=value or header-ish form.
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// Bearer credentials from Authorization headers echoed into errors.
	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/]{8,}`)

	// Vendor key shapes that appear bare, without a key= prefix.
	vendorKeyRegex = regexp.MustCompile(`\b(sk-|AIza)[A-Za-z0-9_\-]{10,}`)

	// Backend endpoints, with optional port, as leaked by transport errors.
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	patternPlaceholders = []struct {
		pattern     *regexp.Regexp
		placeholder string
	}{
		{apiKeyRegex, RedactedKeyPlaceholder},
		{bearerRegex, RedactedKeyPlaceholder},
		{vendorKeyRegex, RedactedKeyPlaceholder},
		{hostPortRegex, RedactedHostPlaceholder},
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pp := range patternPlaceholders {
		result = pp.pattern.ReplaceAllString(result, pp.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
