package policy

import (
	"net/url"
	"strings"
)

// NormalizePath canonicalizes a request path before allow-list matching:
// percent-encoding is decoded, repeated slashes collapse to one, and a
// trailing slash is stripped. The result always starts with "/".
//
// Normalization must happen before matching; matching the raw path would
// let "%77eather" or "//weather" slip past patterns written for "/weather".
func NormalizePath(path string) string {
	decoded, err := url.PathUnescape(path)
	if err != nil {
		// Undecodable escapes stay literal and will simply fail to match.
		decoded = path
	}

	for strings.Contains(decoded, "//") {
		decoded = strings.ReplaceAll(decoded, "//", "/")
	}

	if len(decoded) > 1 {
		decoded = strings.TrimRight(decoded, "/")
	}

	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}

	return decoded
}

// PathAllowed reports whether a request path passes this connector's
// allow-list. The path is normalized first, rejected if any ".." segment
// survives normalization, and then must fully match at least one pattern.
func (c *Connector) PathAllowed(path string) bool {
	normalized := NormalizePath(path)

	if strings.Contains(normalized, "..") {
		return false
	}

	for _, re := range c.allowPaths {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}
