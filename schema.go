package rpq

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema validates decoded request bodies against a JSON schema.
//
// Properties may carry an "errorMessage" member, either a string or a map from keyword (type, minLength,
// pattern, format, ...) to message, which replaces the validator's default wording for that property.
type Schema struct {
	schema   *gojsonschema.Schema
	messages map[string]map[string]string // field path -> keyword -> message
}

func NewSchema(src string) (*Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}

	var raw map[string]any
	if err := json.UnmarshalFromString(src, &raw); err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}

	s := &Schema{schema: schema, messages: map[string]map[string]string{}}
	s.collectMessages("", raw)
	return s, nil
}

func MustSchema(src string) *Schema {
	s, err := NewSchema(src)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) collectMessages(prefix string, node map[string]any) {
	props, _ := node["properties"].(map[string]any)
	for name, p := range props {
		prop, ok := p.(map[string]any)
		if !ok {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		switch m := prop["errorMessage"].(type) {
		case string:
			s.messages[path] = map[string]string{"*": m}
		case map[string]any:
			msgs := make(map[string]string, len(m))
			for keyword, msg := range m {
				if str, ok := msg.(string); ok {
					msgs[keyword] = str
				}
			}
			s.messages[path] = msgs
		}

		s.collectMessages(path, prop)
	}
}

// Validate returns every violation of doc, or nil when doc is valid.
func (s *Schema) Validate(doc any) []Violation {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []Violation{{Field: "body", Message: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := violationField(re)
		violations = append(violations, Violation{
			Field:   field,
			Message: s.message(field, re),
		})
	}
	return violations
}

func violationField(re gojsonschema.ResultError) string {
	field := re.Field()
	if field == "(root)" {
		field = ""
	}
	if p, ok := re.Details()["property"].(string); ok && p != "" && !strings.HasSuffix(field, p) {
		if field == "" {
			field = p
		} else {
			field = field + "." + p
		}
	}
	if field == "" {
		return "body"
	}
	return field
}

var keywords = map[string]string{
	"invalid_type":                    "type",
	"string_gte":                      "minLength",
	"string_lte":                      "maxLength",
	"does_not_match_pattern":          "pattern",
	"format":                          "format",
	"required":                        "required",
	"additional_property_not_allowed": "additionalProperties",
	"number_gte":                      "minimum",
	"number_lte":                      "maximum",
	"enum":                            "enum",
}

func (s *Schema) message(field string, re gojsonschema.ResultError) string {
	msgs, ok := s.messages[field]
	if !ok {
		return re.Description()
	}
	keyword, ok := keywords[re.Type()]
	if !ok {
		keyword = re.Type()
	}
	if msg, ok := msgs[keyword]; ok {
		return msg
	}
	if msg, ok := msgs["*"]; ok {
		return msg
	}
	return re.Description()
}
