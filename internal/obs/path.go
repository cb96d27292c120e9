package obs

import "strings"

// CanonicalPath collapses complaint identifiers in request paths so metric
// label cardinality stays bounded.
func CanonicalPath(raw string) string {
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	const prefix = "/v1/complaints/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return path
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return prefix + ":id"
	case 2:
		switch parts[1] {
		case "transition", "chat", "actions", "assist":
			return prefix + ":id/" + parts[1]
		}
	}
	return path
}
