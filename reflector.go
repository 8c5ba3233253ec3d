package rpq

import "errors"

// Reflector declares how each Query field is read from an Event. Nil accessors leave the field unset.
//
//	Reflector{
//	    EntityID: MustPath("$['params']['id']"),
//	    Data:     Body(),
//	}
type Reflector struct {
	EntityID    Accessor
	Data        Accessor
	FilterQuery Accessor
}

// BuildQuery evaluates r against ev. Missing or unparseable EntityID and FilterQuery values are left at their
// zero value. A Data value that is not valid JSON, or does not fit D, is a validation error.
func BuildQuery[D any](r Reflector, ev Event) (Query[D], error) {
	q, err := reflectEvent[D](r, ev)
	if err != nil {
		return q, err
	}
	if err := bindData(&q); err != nil {
		return q, err
	}
	return q, nil
}

// reflectEvent builds the query without converting the body into D, so a schema can be checked against the
// raw body first.
func reflectEvent[D any](r Reflector, ev Event) (Query[D], error) {
	var q Query[D]

	if r.EntityID != nil {
		if v, ok := r.EntityID(ev); ok {
			if s, ok := toString(v); ok {
				q.EntityID = s
			}
		}
	}

	if r.Data != nil {
		if v, ok := r.Data(ev); ok {
			body, err := decodeBody(v)
			if err != nil {
				return q, Validation("malformed JSON body", Violation{Field: "body", Message: err.Error()})
			}
			q.body = body
			q.HasData = true
		}
	}

	if r.FilterQuery != nil {
		if v, ok := r.FilterQuery(ev); ok {
			if fq, err := toFilterQuery(v); err == nil {
				q.FilterQuery = &fq
			}
		}
	}

	return q, nil
}

func bindData[D any](q *Query[D]) error {
	if !q.HasData {
		return nil
	}
	data, err := Decode[D](q.body)
	if err != nil {
		return Validation("request body has an unexpected shape", Violation{Field: "body", Message: err.Error()})
	}
	q.Data = data
	return nil
}

func decodeBody(v any) (any, error) {
	var raw []byte
	switch b := v.(type) {
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		return v, nil
	}
	if len(raw) == 0 {
		return nil, errors.New("empty body")
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func toFilterQuery(v any) (FilterQuery, error) {
	switch fq := v.(type) {
	case FilterQuery:
		return fq, nil
	case *FilterQuery:
		if fq == nil {
			return FilterQuery{}, errors.New("nil filter query")
		}
		return *fq, nil
	case string:
		var out FilterQuery
		err := json.UnmarshalFromString(fq, &out)
		return out, err
	}
	return Decode[FilterQuery](v)
}
