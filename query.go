package rpq

import "math"

// Operator is the comparison applied by a Filter.
type Operator string

const (
	OpEq       Operator = "="
	OpNe       Operator = "!="
	OpGt       Operator = ">"
	OpLt       Operator = "<"
	OpGte      Operator = ">="
	OpLte      Operator = "<="
	OpIn       Operator = "in"
	OpNotIn    Operator = "not in"
	OpContains Operator = "contains" // case-insensitive substring
	OpLike     Operator = "like"     // SQL-style pattern, % and _ wildcards
)

// Valid reports whether op is one of the known operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGte, OpLte, OpIn, OpNotIn, OpContains, OpLike:
		return true
	}
	return false
}

// Filter is a single predicate. Filters in a FilterQuery are AND-combined in insertion order.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 1000
)

// Pagination is a 1-indexed page window.
type Pagination struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Normalize fills in defaults for missing or out-of-range values. Limits above MaxLimit are capped.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Overflows reports whether the page starts beyond the largest representable offset.
func (p Pagination) Overflows() bool {
	p = p.Normalize()
	return int64(p.Page-1) > math.MaxInt64/int64(p.Limit)
}

// Offset is the number of records skipped before the page starts. It is only meaningful when Overflows is
// false.
func (p Pagination) Offset() int64 {
	p = p.Normalize()
	return int64(p.Page-1) * int64(p.Limit)
}

type FilterQuery struct {
	Filters    []Filter   `json:"filters"`
	Pagination Pagination `json:"pagination"`
}

// DefaultFilterQuery matches everything and returns the first page.
func DefaultFilterQuery() FilterQuery {
	return FilterQuery{
		Filters:    []Filter{},
		Pagination: Pagination{Page: DefaultPage, Limit: DefaultLimit},
	}
}

// PaginatedResult is the normalized shape of a list response. Total counts the whole matching set,
// independent of the page window.
type PaginatedResult[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Query is what a use case operates on. It is built once per request by BuildQuery and passed by value.
// Point operations use EntityID and/or Data, list operations use FilterQuery.
type Query[D any] struct {
	EntityID    string
	Data        D
	HasData     bool
	FilterQuery *FilterQuery

	body any // decoded request body, kept for schema validation
}

// Body returns the request body as decoded JSON (maps, slices, and scalars), or nil.
func (q Query[D]) Body() any {
	return q.body
}

// FilterQueryOrDefault returns the query's FilterQuery, or DefaultFilterQuery when absent.
// Missing pagination fields are defaulted as well.
func (q Query[D]) FilterQueryOrDefault() FilterQuery {
	if q.FilterQuery == nil {
		return DefaultFilterQuery()
	}
	fq := *q.FilterQuery
	if fq.Filters == nil {
		fq.Filters = []Filter{}
	}
	fq.Pagination = fq.Pagination.Normalize()
	return fq
}
