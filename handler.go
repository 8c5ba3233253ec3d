package rpq

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
)

// ResponseSink receives the response produced by a HandlerFunc.
type ResponseSink interface {
	Header(key, value string)
	Write(status int, body []byte) error
}

// HandlerFunc serves one Event. Every outcome, including failures, is written to the sink; the returned
// error only reports a failure to write the response.
type HandlerFunc func(ctx context.Context, ev Event, w ResponseSink) error

// Pipeline declares a request pipeline: how the Query is read from the event, how its body is validated,
// which stages run, and how their failures map to status codes.
type Pipeline[D any] struct {
	Reflector     Reflector
	Chain         *Chain[D]
	BodySchema    *Schema
	ErrorMapping  ErrorMapping
	SuccessStatus int // defaults to 200
	Logger        Logger
}

// Constraints are transport limits enforced around a pipeline. Zero values disable a check.
type Constraints struct {
	MaxResponseSize int      // bytes of serialized output
	AllowedMethods  []string // HTTP verbs
}

// Build composes p into a HandlerFunc. At request time it
//   - rejects methods outside c.AllowedMethods with 405,
//   - builds the Query, answering 400 for a malformed body,
//   - validates the body against p.BodySchema, answering 400 with every violation,
//   - executes p.Chain and resolves any failure through p.ErrorMapping,
//   - serializes the output, answering 413 when it exceeds c.MaxResponseSize.
func Build[D any](p Pipeline[D], c Constraints) HandlerFunc {
	if p.Chain == nil || p.Chain.First == nil {
		panic("rpq: pipeline has no stages")
	}

	status := p.SuccessStatus
	if status == 0 {
		status = http.StatusOK
	}

	allowed := make([]string, 0, len(c.AllowedMethods))
	for _, m := range c.AllowedMethods {
		allowed = append(allowed, strings.ToUpper(m))
	}

	return func(ctx context.Context, ev Event, w ResponseSink) error {

		if len(allowed) > 0 && !slices.Contains(allowed, strings.ToUpper(ev.Method)) {
			w.Header("Allow", strings.Join(allowed, ", "))
			return writeError(w, http.StatusMethodNotAllowed, MethodNotAllowed(ev.Method))
		}

		q, err := reflectEvent[D](p.Reflector, ev)
		if err != nil {
			return writeError(w, http.StatusBadRequest, err)
		}

		if p.BodySchema != nil {
			if violations := p.BodySchema.Validate(q.body); len(violations) > 0 {
				return writeError(w, http.StatusBadRequest, Validation("request body failed validation", violations...))
			}
		}

		if err := bindData(&q); err != nil {
			return writeError(w, http.StatusBadRequest, err)
		}

		out, err := Execute(ctx, p.Chain, q, p.Logger)
		if err != nil {
			return writeError(w, p.ErrorMapping.Resolve(err), err)
		}

		body, err := json.Marshal(out)
		if err != nil {
			return writeError(w, http.StatusInternalServerError, err)
		}
		if c.MaxResponseSize > 0 && len(body) > c.MaxResponseSize {
			return writeError(w, http.StatusRequestEntityTooLarge, PayloadTooLarge(len(body), c.MaxResponseSize))
		}

		w.Header("Content-Type", "application/json; charset=utf-8")
		return w.Write(status, body)
	}
}

// ErrorBody is the JSON payload written for a failure.
func ErrorBody(err error) H {
	var e *Error
	if !errors.As(err, &e) {
		return H{"error": err.Error(), "kind": KindOf(err).String()}
	}

	h := H{"error": e.Message, "kind": e.Kind.String()}
	if len(e.Violations) > 0 {
		h["violations"] = e.Violations
	}
	return h
}

func writeError(w ResponseSink, status int, err error) error {
	body, mErr := json.Marshal(ErrorBody(err))
	if mErr != nil {
		return mErr
	}
	w.Header("Content-Type", "application/json; charset=utf-8")
	return w.Write(status, body)
}
