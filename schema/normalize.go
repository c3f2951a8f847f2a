package schema

import (
	"strings"
)

// JoinURL joins URL parts with exactly one slash between them. Leading
// slashes on the first part and trailing slashes on the last part are kept.
func JoinURL(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(part)
			continue
		}
		cur := b.String()
		switch {
		case strings.HasSuffix(cur, "/") && strings.HasPrefix(part, "/"):
			b.WriteString(strings.TrimLeft(part, "/"))
		case strings.HasSuffix(cur, "/") || strings.HasPrefix(part, "/"):
			b.WriteString(part)
		default:
			b.WriteByte('/')
			b.WriteString(part)
		}
	}
	return b.String()
}

// NormalizeRoutePrefix trims whitespace and surrounding slashes.
func NormalizeRoutePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// URLFor builds the request URL for an endpoint.
func (c EndpointConfig) URLFor(endpoint EndpointName) string {
	return JoinURL(strings.TrimSpace(c.BaseURL), NormalizeRoutePrefix(c.RoutePrefix), string(endpoint))
}
