package rpq

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	status  int
	headers map[string]string
	body    []byte
}

func (r *recorder) Header(key, value string) {
	if r.headers == nil {
		r.headers = map[string]string{}
	}
	r.headers[key] = value
}

func (r *recorder) Write(status int, body []byte) error {
	r.status = status
	r.body = body
	return nil
}

func (r *recorder) decode(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.body, &m))
	return m
}

const accountSchema = `{
  "type": "object",
  "properties": {
    "email": {"type": "string", "format": "email", "errorMessage": {"format": "Invalid email address"}},
    "name": {"type": "string", "minLength": 2}
  },
  "required": ["email"],
  "additionalProperties": false
}`

type account struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func echoPipeline(counter *int) Pipeline[account] {
	return Pipeline[account]{
		Reflector: Reflector{Data: Body()},
		Chain: First(S("echo", func(_ context.Context, q Query[account], _ any) (any, error) {
			*counter++
			return q.Data, nil
		})),
		BodySchema:    MustSchema(accountSchema),
		SuccessStatus: http.StatusCreated,
	}
}

func Test_Build_Success(t *testing.T) {
	calls := 0
	h := Build(echoPipeline(&calls), Constraints{})
	w := &recorder{}

	err := h(context.Background(), Event{Method: "POST", Body: `{"email":"a@b.com","name":"Al"}`}, w)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.status)
	assert.Equal(t, "application/json; charset=utf-8", w.headers["Content-Type"])
	assert.JSONEq(t, `{"email":"a@b.com","name":"Al"}`, string(w.body))
	assert.Equal(t, 1, calls)
}

func Test_Build_MethodNotAllowed(t *testing.T) {
	calls := 0
	h := Build(echoPipeline(&calls), Constraints{AllowedMethods: []string{"post", "PUT"}})
	w := &recorder{}

	require.NoError(t, h(context.Background(), Event{Method: "DELETE"}, w))

	assert.Equal(t, http.StatusMethodNotAllowed, w.status)
	assert.Equal(t, "POST, PUT", w.headers["Allow"])
	assert.Equal(t, "transport", w.decode(t)["kind"])
	assert.Equal(t, 0, calls)
}

func Test_Build_SchemaViolationsAnswer400WithoutRunningChain(t *testing.T) {
	calls := 0
	h := Build(echoPipeline(&calls), Constraints{})
	w := &recorder{}

	require.NoError(t, h(context.Background(), Event{Method: "POST", Body: `{"email":"nope","name":"A","extra":1}`}, w))

	assert.Equal(t, http.StatusBadRequest, w.status)
	assert.Equal(t, 0, calls)

	body := w.decode(t)
	assert.Equal(t, "validation", body["kind"])

	violations, ok := body["violations"].([]any)
	require.True(t, ok)
	assert.Len(t, violations, 3)

	fields := map[string]string{}
	for _, v := range violations {
		m := v.(map[string]any)
		fields[m["field"].(string)] = m["message"].(string)
	}
	assert.Equal(t, "Invalid email address", fields["email"])
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "extra")
}

func Test_Build_MalformedBody(t *testing.T) {
	calls := 0
	h := Build(echoPipeline(&calls), Constraints{})
	w := &recorder{}

	require.NoError(t, h(context.Background(), Event{Method: "POST", Body: `{"email":`}, w))

	assert.Equal(t, http.StatusBadRequest, w.status)
	assert.Equal(t, 0, calls)
}

func Test_Build_MapsChainFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not_found", err: NotFound("user not found"), want: http.StatusNotFound},
		{name: "conflict", err: Conflict("email taken"), want: http.StatusConflict},
		{name: "unmapped", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := Build(Pipeline[struct{}]{
				Chain: First(S("fail", func(context.Context, Query[struct{}], any) (any, error) {
					return nil, tc.err
				})),
				ErrorMapping: ErrorMapping{
					http.StatusNotFound: {KindNotFound},
					http.StatusConflict: {KindConflict},
				},
			}, Constraints{})
			w := &recorder{}

			require.NoError(t, h(context.Background(), Event{Method: "GET"}, w))

			assert.Equal(t, tc.want, w.status)
			assert.Equal(t, tc.err.Error(), w.decode(t)["error"])
		})
	}
}

func Test_Build_ResponseTooLarge(t *testing.T) {
	h := Build(Pipeline[struct{}]{
		Chain: First(S("big", func(context.Context, Query[struct{}], any) (any, error) {
			return strings.Repeat("x", 100), nil
		})),
	}, Constraints{MaxResponseSize: 50})
	w := &recorder{}

	require.NoError(t, h(context.Background(), Event{Method: "GET"}, w))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.status)
}

func Test_Build_PanicsWithoutChain(t *testing.T) {
	assert.Panics(t, func() { Build(Pipeline[struct{}]{}, Constraints{}) })
}

func Test_AddRoute_ServesThroughGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	AddRoute(engine, &Route{
		HttpMethod:   http.MethodGet,
		RelativePath: "/things/:id",
		Pipe: Build(Pipeline[struct{}]{
			Reflector: Reflector{EntityID: MustPath("$['params']['id']")},
			Chain: First(S("echo", func(_ context.Context, q Query[struct{}], _ any) (any, error) {
				return H{"id": q.EntityID}, nil
			})),
		}, Constraints{}),
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}
