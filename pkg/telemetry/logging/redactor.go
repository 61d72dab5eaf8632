package logging

import (
	"regexp"
	"strings"
)

// secretPatterns match credential material that must never appear in logs:
// bearer tokens, API keys in common query parameter names, and anything that
// looks like a long opaque secret assigned to a key/token field.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)[a-z0-9._\-]+`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|appid|access[_-]?token|client[_-]?secret|token)=)[^&\s"]+`),
	regexp.MustCompile(`(?i)("(?:api[_-]?key|token|secret|client_secret|password)"\s*:\s*")[^"]+`),
}

// Redact masks credential material in a string. Values are replaced rather
// than removed so log lines keep their shape.
func Redact(s string) string {
	for _, re := range secretPatterns {
		s = re.ReplaceAllString(s, "${1}[REDACTED]")
	}
	return s
}

// RedactValue masks a standalone secret, keeping a short prefix so distinct
// keys remain distinguishable in logs.
func RedactValue(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + "..." + "[REDACTED]"
}
