package rpq

import (
	"context"
	"fmt"
)

// Document is a record as a store returns it, keyed by the store's native field names.
type Document = map[string]any

// Finder is the filtered, paginated query primitive of a store. Both methods AND-combine filters.
// Find returns matches in a stable identity order, skipping skip and returning at most limit documents.
type Finder interface {
	Find(ctx context.Context, collection string, filters []Filter, skip, limit int64) ([]Document, error)
	Count(ctx context.Context, collection string, filters []Filter) (int64, error)
}

// Store is the persistence capability consumed by use cases. Point operations are keyed by the store's
// native identifier, as returned by ParseID. Lookups that match nothing return ErrNoDocument.
type Store interface {
	Finder

	// IDField is the native identity field name, e.g. "_id".
	IDField() string
	// ParseID converts a logical string id into the native identifier.
	ParseID(id string) (any, error)

	FindOne(ctx context.Context, collection string, id any) (Document, error)
	InsertOne(ctx context.Context, collection string, doc Document) (any, error)
	FindOneAndUpdate(ctx context.Context, collection string, id any, set Document) (Document, error)
	DeleteOne(ctx context.Context, collection string, id any) (bool, error)
}

// Fetch runs fq against collection and returns one page of results decoded into T, plus the size of the
// whole matching set. idField names the store's identity field, "id" when empty; it is exposed as "id" on
// every returned item, and filters on "id" are applied to it.
//
// Store failures are returned unchanged.
func Fetch[T any](ctx context.Context, collection string, fq FilterQuery, f Finder, idField string) (PaginatedResult[T], error) {
	if idField == "" {
		idField = "id"
	}

	p := fq.Pagination.Normalize()
	if p.Overflows() {
		return PaginatedResult[T]{}, Validation("page out of range",
			Violation{Field: "pagination.page", Message: fmt.Sprintf("page %d is too large for limit %d", p.Page, p.Limit)})
	}

	filters := make([]Filter, 0, len(fq.Filters))
	for _, flt := range fq.Filters {
		if !flt.Operator.Valid() {
			return PaginatedResult[T]{}, Validation("unsupported filter operator",
				Violation{Field: flt.Field, Message: fmt.Sprintf("operator %q is not supported", flt.Operator)})
		}
		if flt.Field == "id" {
			flt.Field = idField
		}
		filters = append(filters, flt)
	}

	docs, err := f.Find(ctx, collection, filters, p.Offset(), int64(p.Limit))
	if err != nil {
		return PaginatedResult[T]{}, err
	}

	total, err := f.Count(ctx, collection, filters)
	if err != nil {
		return PaginatedResult[T]{}, err
	}

	data := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := Decode[T](NormalizeID(doc, idField))
		if err != nil {
			return PaginatedResult[T]{}, fmt.Errorf("rpq: decode %s document: %w", collection, err)
		}
		data = append(data, item)
	}

	return PaginatedResult[T]{
		Data:  data,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}

// NormalizeID returns a copy of doc with the identity field idField renamed to "id" and rendered as a string.
func NormalizeID(doc Document, idField string) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if k != idField {
			out[k] = v
		}
	}
	if v, ok := doc[idField]; ok {
		out["id"] = FormatID(v)
	}
	return out
}
