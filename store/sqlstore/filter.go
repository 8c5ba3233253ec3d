package sqlstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/jeremywhuff/rpq"
)

// Dotted paths into the JSON document. Field names are rendered into SQL literally, so nothing else is allowed.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// likeEscaper makes LIKE wildcards in a value match literally, with \ as the escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type operand interface {
	exp.Comparable
	exp.Inable
	exp.Likeable
}

// Translate converts filters into a WHERE expression for dialect ("sqlite3" or "postgres").
// Filters are AND-combined; the "id" field addresses the id column, any other field a path in the document.
func Translate(dialect string, filters []rpq.Filter) (exp.ExpressionList, error) {
	exprs := make([]exp.Expression, 0, len(filters))
	for _, f := range filters {
		e, err := translate(dialect, f)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return goqu.And(exprs...), nil
}

func translate(dialect string, f rpq.Filter) (exp.Expression, error) {
	if !fieldPattern.MatchString(f.Field) {
		return nil, rpq.Validation("invalid filter field",
			rpq.Violation{Field: f.Field, Message: "field must be a dotted path of identifiers"})
	}

	col := fieldExpr(dialect, f)

	switch f.Operator {
	case rpq.OpEq:
		return col.Eq(sqlValue(dialect, f.Value)), nil
	case rpq.OpNe:
		return col.Neq(sqlValue(dialect, f.Value)), nil
	case rpq.OpGt:
		return col.Gt(sqlValue(dialect, f.Value)), nil
	case rpq.OpGte:
		return col.Gte(sqlValue(dialect, f.Value)), nil
	case rpq.OpLt:
		return col.Lt(sqlValue(dialect, f.Value)), nil
	case rpq.OpLte:
		return col.Lte(sqlValue(dialect, f.Value)), nil
	case rpq.OpIn, rpq.OpNotIn:
		values := toList(f.Value)
		if len(values) == 0 {
			if f.Operator == rpq.OpIn {
				return goqu.L("1 = 0"), nil
			}
			return goqu.L("1 = 1"), nil
		}
		for i, v := range values {
			values[i] = sqlValue(dialect, v)
		}
		if f.Operator == rpq.OpIn {
			return col.In(values...), nil
		}
		return col.NotIn(values...), nil
	case rpq.OpContains:
		op := "ILIKE"
		if dialect == dialectSQLite {
			op = "LIKE" // case-insensitive for ASCII
		}
		pattern := "%" + likeEscaper.Replace(fmt.Sprintf("%v", f.Value)) + "%"
		return goqu.L("? "+op+" ? ESCAPE '\\'", col, pattern), nil
	case rpq.OpLike:
		return col.ILike(fmt.Sprintf("%v", f.Value)), nil
	}

	return nil, rpq.Validation("unsupported filter operator",
		rpq.Violation{Field: f.Field, Message: fmt.Sprintf("operator %q is not supported", f.Operator)})
}

func fieldExpr(dialect string, f rpq.Filter) operand {
	if f.Field == colID {
		return goqu.C(colID)
	}

	if dialect == dialectPostgres {
		path := "doc #>> '{" + strings.ReplaceAll(f.Field, ".", ",") + "}'"
		if f.Operator == rpq.OpContains || f.Operator == rpq.OpLike {
			return goqu.L(path)
		}
		// #>> yields text; cast so comparisons follow the type of the filter value.
		switch sample(f.Value).(type) {
		case float64, float32, int, int32, int64:
			return goqu.L("(" + path + ")::numeric")
		case bool:
			return goqu.L("(" + path + ")::boolean")
		}
		return goqu.L(path)
	}

	return goqu.L("json_extract(doc, '$." + f.Field + "')")
}

// sample returns the value itself, or the first element of a list.
func sample(v any) any {
	if list := toList(v); len(list) > 0 {
		return list[0]
	}
	return nil
}

// sqlValue adapts a filter value to the dialect. json_extract reports booleans as 1 and 0 in SQLite.
func sqlValue(dialect string, v any) any {
	if b, ok := v.(bool); ok && dialect == dialectSQLite {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func toList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		copy(out, v)
		return out
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return []any{value}
}
