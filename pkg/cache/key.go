package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key builds the canonical cache key for a proxied request.
//
// The key is connector-scoped and independent of which provider serves the
// request, so a response cached from one provider satisfies later requests
// that fail over to another. Query parameters are sorted so equivalent
// requests with reordered parameters share an entry.
func Key(connector, method, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(connector)
	b.WriteByte('|')
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('|')
	b.WriteString(path)
	b.WriteByte('|')
	b.WriteString(canonicalQuery(query))
	return b.String()
}

// canonicalQuery renders query values deterministically: keys sorted, values
// within a key kept in arrival order.
func canonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		for j, v := range query[k] {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
