package rpq

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Accessor extracts one value from an Event. ok is false when the value is absent or the path does not resolve.
type Accessor func(ev Event) (any, bool)

// Path walks the event tree (method, headers, params, query, body). Map keys and array indexes are both given
// as strings. A string met before the last segment is decoded as JSON and the walk continues inside it, so
// Path("body", "address", "city") reaches into a JSON request body.
func Path(segments ...string) Accessor {
	return func(ev Event) (any, bool) {
		var cur any = ev.tree()
		for _, seg := range segments {
			next, ok := descend(cur, seg)
			if !ok {
				return nil, false
			}
			cur = next
		}
		if cur == nil {
			return nil, false
		}
		return cur, true
	}
}

func descend(cur any, seg string) (any, bool) {
	switch v := cur.(type) {
	case map[string]any:
		next, ok := v[seg]
		return next, ok
	case map[string]string:
		next, ok := v[seg]
		return next, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	case string:
		var decoded any
		if err := json.UnmarshalFromString(v, &decoded); err != nil {
			return nil, false
		}
		return descend(decoded, seg)
	}
	return nil, false
}

// MustPath parses a path expression such as "$['params']['id']", "$.body.items[0]" or "params.id" into a
// Path accessor. It panics on a malformed expression, so it belongs in route declarations.
func MustPath(expr string) Accessor {
	segments, err := parsePath(expr)
	if err != nil {
		panic(err)
	}
	return Path(segments...)
}

func parsePath(expr string) ([]string, error) {
	s := strings.TrimPrefix(strings.TrimSpace(expr), "$")
	var segments []string

	for len(s) > 0 {
		switch {
		case strings.HasPrefix(s, "['"):
			end := strings.Index(s, "']")
			if end < 0 {
				return nil, fmt.Errorf("rpq: unterminated bracket in path %q", expr)
			}
			segments = append(segments, s[2:end])
			s = s[end+2:]
		case s[0] == '[':
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return nil, fmt.Errorf("rpq: unterminated index in path %q", expr)
			}
			if _, err := strconv.Atoi(s[1:end]); err != nil {
				return nil, fmt.Errorf("rpq: invalid index %q in path %q", s[1:end], expr)
			}
			segments = append(segments, s[1:end])
			s = s[end+1:]
		case s[0] == '.':
			s = s[1:]
		default:
			end := strings.IndexAny(s, ".[")
			if end < 0 {
				end = len(s)
			}
			segments = append(segments, s[:end])
			s = s[end:]
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("rpq: empty path %q", expr)
	}
	return segments, nil
}

// Func wraps an inline extractor. Its return value is taken verbatim.
func Func(f func(ev Event) any) Accessor {
	return func(ev Event) (any, bool) {
		return f(ev), true
	}
}

// Default falls back to def when acc finds nothing.
func Default(acc Accessor, def any) Accessor {
	return func(ev Event) (any, bool) {
		if v, ok := acc(ev); ok {
			return v, true
		}
		return def, true
	}
}

func URLParam(key string) Accessor {
	return Path("params", key)
}

func QueryParam(key string) Accessor {
	return Path("query", key)
}

func Header(key string) Accessor {
	return Path("headers", strings.ToLower(key))
}

func Body() Accessor {
	return func(ev Event) (any, bool) {
		if ev.Body == "" {
			return nil, false
		}
		return ev.Body, true
	}
}

// ParseJSONParam decodes a JSON-encoded query-string value. A value that is not valid JSON is URL-decoded and
// tried again. Empty or unparseable input returns def.
func ParseJSONParam[T any](param string, def T) T {
	if param == "" {
		return def
	}

	var v T
	if err := json.UnmarshalFromString(param, &v); err == nil {
		return v
	}

	if unescaped, err := url.QueryUnescape(param); err == nil {
		var v T
		if err := json.UnmarshalFromString(unescaped, &v); err == nil {
			return v
		}
	}
	return def
}

// JSONQueryParam is an Accessor over ParseJSONParam. It never reports a missing value.
func JSONQueryParam[T any](key string, def T) Accessor {
	return Func(func(ev Event) any {
		return ParseJSONParam(ev.Query[key], def)
	})
}

// FilterQueryParams reads a FilterQuery from two JSON query parameters, e.g.
// ?filters=[{"field":"name","operator":"=","value":"Jo"}]&pagination={"page":2,"limit":5}.
func FilterQueryParams(filtersKey, paginationKey string) Accessor {
	return Func(func(ev Event) any {
		def := DefaultFilterQuery()
		return FilterQuery{
			Filters:    ParseJSONParam(ev.Query[filtersKey], def.Filters),
			Pagination: ParseJSONParam(ev.Query[paginationKey], def.Pagination).Normalize(),
		}
	})
}
