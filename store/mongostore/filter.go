package mongostore

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/jeremywhuff/rpq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Translate converts filters into a MongoDB query document. Several filters are combined with $and;
// no filters match every document.
func Translate(filters []rpq.Filter) (bson.M, error) {
	if len(filters) == 0 {
		return bson.M{}, nil
	}

	clauses := make([]bson.M, 0, len(filters))
	for _, f := range filters {
		clause, err := translate(f)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return bson.M{"$and": clauses}, nil
}

// Dotted paths into the document. Operators such as $where or $or are never accepted as field names.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func translate(f rpq.Filter) (bson.M, error) {
	if !fieldPattern.MatchString(f.Field) {
		return nil, rpq.Validation("invalid filter field",
			rpq.Violation{Field: f.Field, Message: "field must be a dotted path of identifiers"})
	}
	if err := checkValue(f); err != nil {
		return nil, err
	}

	value := f.Value
	if f.Field == IDField {
		value = objectIDs(value)
	}

	switch f.Operator {
	case rpq.OpEq:
		return bson.M{f.Field: bson.M{"$eq": value}}, nil
	case rpq.OpNe:
		return bson.M{f.Field: bson.M{"$ne": value}}, nil
	case rpq.OpGt:
		return bson.M{f.Field: bson.M{"$gt": value}}, nil
	case rpq.OpGte:
		return bson.M{f.Field: bson.M{"$gte": value}}, nil
	case rpq.OpLt:
		return bson.M{f.Field: bson.M{"$lt": value}}, nil
	case rpq.OpLte:
		return bson.M{f.Field: bson.M{"$lte": value}}, nil
	case rpq.OpIn:
		return bson.M{f.Field: bson.M{"$in": toArray(value)}}, nil
	case rpq.OpNotIn:
		return bson.M{f.Field: bson.M{"$nin": toArray(value)}}, nil
	case rpq.OpContains:
		pattern := regexp.QuoteMeta(fmt.Sprintf("%v", value))
		return bson.M{f.Field: primitive.Regex{Pattern: pattern, Options: "i"}}, nil
	case rpq.OpLike:
		pattern := "^" + toMongoLikePattern(fmt.Sprintf("%v", value)) + "$"
		return bson.M{f.Field: primitive.Regex{Pattern: pattern, Options: "i"}}, nil
	}

	return nil, rpq.Validation("unsupported filter operator",
		rpq.Violation{Field: f.Field, Message: fmt.Sprintf("operator %q is not supported", f.Operator)})
}

// checkValue rejects documents as filter values, alone or inside a list. A document would be read by the
// server as a set of query operators rather than compared as a value.
func checkValue(f rpq.Filter) error {
	values := []any{f.Value}
	if f.Operator == rpq.OpIn || f.Operator == rpq.OpNotIn {
		values = toArray(f.Value)
	}
	for _, v := range values {
		if isDocument(v) {
			return rpq.Validation("invalid filter value",
				rpq.Violation{Field: f.Field, Message: "value must be a scalar or a list of scalars"})
		}
	}
	return nil
}

func isDocument(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case bson.D, bson.E, bson.Raw:
		return true
	}
	return reflect.TypeOf(v).Kind() == reflect.Map
}

func toArray(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return []any{value}
}

// objectIDs converts hex strings, alone or in a list, into ObjectIDs. Other values are left as they are.
func objectIDs(value any) any {
	switch v := value.(type) {
	case string:
		if oid, err := primitive.ObjectIDFromHex(v); err == nil {
			return oid
		}
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = objectIDs(item)
		}
		return out
	}
	return value
}

// toMongoLikePattern converts a SQL-like pattern into a MongoDB regex pattern.
// % matches any run of characters and _ matches a single character.
func toMongoLikePattern(input string) string {
	var b strings.Builder
	for _, r := range input {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
