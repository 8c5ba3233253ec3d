package rpq

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is the transport-agnostic view of a request.
type Event struct {
	Method  string
	Headers map[string]string
	Params  map[string]string
	Query   map[string]string
	Body    string
}

// tree exposes the event as nested maps for Path accessors.
func (ev Event) tree() map[string]any {
	return map[string]any{
		"method":  ev.Method,
		"headers": stringMap(ev.Headers),
		"params":  stringMap(ev.Params),
		"query":   stringMap(ev.Query),
		"body":    ev.Body,
	}
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EventFromGin reads the request behind c into an Event. Header names are lower-cased and only the first
// value of repeated headers and query parameters is kept.
func EventFromGin(c *gin.Context) (Event, error) {
	ev := Event{
		Method:  c.Request.Method,
		Headers: make(map[string]string, len(c.Request.Header)),
		Params:  make(map[string]string, len(c.Params)),
		Query:   map[string]string{},
	}

	for k, vs := range c.Request.Header {
		if len(vs) > 0 {
			ev.Headers[strings.ToLower(k)] = vs[0]
		}
	}
	for _, p := range c.Params {
		ev.Params[p.Key] = p.Value
	}
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			ev.Query[k] = vs[0]
		}
	}

	if c.Request.Body != nil {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return ev, err
		}
		ev.Body = string(b)
	}
	return ev, nil
}
