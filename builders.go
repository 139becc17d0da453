package schemaengine

import "fmt"

// Default property-schema builders (C1), grounded on
// schema_converter_engine.py's `@_register_schema_field_builder(...)`
// functions. The converter invokes every builder with nullable=true; every
// builder below emits a nullable union except object_array and
// instructions, which ignore the flag and are non-nullable by definition
// (spec §4.3, testable property 2).
func init() {
	RegisterDefaultBuilder(TypeString, buildNullableType("string"))
	RegisterDefaultBuilder(TypeInteger, buildNullableType("integer"))
	RegisterDefaultBuilder(TypeNumber, buildNullableType("number"))
	RegisterDefaultBuilder(TypeBoolean, buildNullableType("boolean"))
	RegisterDefaultBuilder(TypePositiveInteger, buildNullableMinimum("integer", 0))
	RegisterDefaultBuilder(TypePositiveNumber, buildNullableMinimum("number", 0))
	RegisterDefaultBuilder(TypePercent, buildPercent)
	RegisterDefaultBuilder(TypeCurrency, buildCurrency)
	RegisterDefaultBuilder(TypeDate, buildDate)
	RegisterDefaultBuilder(TypeDateTime, buildDateTime)
	RegisterDefaultBuilder(TypeSingleSelect, buildSingleSelect)
	RegisterDefaultBuilder(TypeMultipleSelect, buildMultipleSelect)
	RegisterDefaultBuilder(TypeArray, buildNullableType("array"))
	RegisterDefaultBuilder(TypeObject, buildNullableType("object"))
	RegisterDefaultBuilder(TypeObjectArray, buildObjectArray)
	RegisterDefaultBuilder(TypeInstructions, buildInstructions)
	RegisterDefaultBuilder(TypeSkip, buildSkip)
}

func buildNullableType(jsonType string) BuilderFunc {
	return func(_ *Engine, _ TargetType, _ []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
		return BuilderResult{Schema: map[string]any{"type": []any{jsonType, "null"}}}
	}
}

func buildNullableMinimum(jsonType string, minimum float64) BuilderFunc {
	return func(_ *Engine, _ TargetType, _ []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
		return BuilderResult{Schema: map[string]any{
			"type":    []any{jsonType, "null"},
			"minimum": minimum,
		}}
	}
}

func buildPercent(_ *Engine, _ TargetType, _ []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
	return BuilderResult{Schema: map[string]any{
		"type":    []any{"number", "null"},
		"minimum": 0,
		"maximum": 100,
	}}
}

func buildCurrency(_ *Engine, _ TargetType, _ []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
	return BuilderResult{Schema: map[string]any{
		"type":        []any{"number", "null"},
		"description": "currency amount, up to 2 decimal places of precision",
	}}
}

func buildDate(_ *Engine, _ TargetType, _ []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
	return BuilderResult{Schema: map[string]any{
		"type":   []any{"string", "null"},
		"format": "date",
	}}
}

func buildDateTime(_ *Engine, _ TargetType, _ []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
	return BuilderResult{Schema: map[string]any{
		"type":   []any{"string", "null"},
		"format": "date-time",
	}}
}

const uncertainEnumHint = "Select one of the valid enum options if and only if you are absolutely sure of the answer. If you are not sure, select null."

func buildSingleSelect(_ *Engine, _ TargetType, enumValues []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
	schema := map[string]any{
		"type":        []any{"string", "null"},
		"description": uncertainEnumHint,
	}
	if enumValues != nil {
		schema["enum"] = enumWithNull(enumValues)
	}
	return BuilderResult{Schema: schema}
}

func buildMultipleSelect(_ *Engine, _ TargetType, enumValues []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
	items := map[string]any{"type": []any{"string", "null"}}
	if enumValues != nil {
		items["enum"] = enumWithNull(enumValues)
	}
	return BuilderResult{Schema: map[string]any{
		"type":        []any{"array", "null"},
		"items":       items,
		"description": uncertainEnumHint,
	}}
}

func enumWithNull(values []string) []any {
	out := make([]any, 0, len(values)+1)
	for _, v := range sanitizeAll(values) {
		out = append(out, v)
	}
	out = append(out, nil)
	return out
}

const defaultObjectArrayMaxItems = 20

func buildObjectArray(_ *Engine, _ TargetType, enumValues []string, _ bool, _ MetaProperty, fieldSchema map[string]any) BuilderResult {
	maxItems := defaultObjectArrayMaxItems
	if length, ok := fieldSchema["length"]; ok {
		if n, ok := toInt(length); ok && n > 0 {
			maxItems = n
		}
	}

	entrySchema := map[string]any{"type": "string"}
	if enumValues != nil {
		entryEnum := make([]any, 0, len(enumValues))
		for _, v := range sanitizeAll(enumValues) {
			entryEnum = append(entryEnum, v)
		}
		entrySchema["enum"] = entryEnum
	}

	itemSchema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"entry":       entrySchema,
			"description": map[string]any{"type": "string"},
		},
		"required": []any{"entry", "description"},
	}

	return BuilderResult{Schema: map[string]any{
		"type":     "array",
		"items":    itemSchema,
		"maxItems": maxItems,
	}}
}

func buildInstructions(_ *Engine, _ TargetType, _ []string, _ bool, propertyDef MetaProperty, fieldSchema map[string]any) BuilderResult {
	idValue, _ := stringField(fieldSchema, propertyDef.ID)
	titleValue, _ := stringField(fieldSchema, propertyDef.Title)
	nameValue, _ := stringField(fieldSchema, propertyDef.Name)

	propertyKey := "Instructions"
	if idValue != "" {
		propertyKey = fmt.Sprintf("%s.Instructions", idValue)
	}

	var constValue string
	switch {
	case titleValue != "" && nameValue != "":
		constValue = fmt.Sprintf("%s.%s", titleValue, nameValue)
	case titleValue != "":
		constValue = titleValue
	default:
		constValue = nameValue
	}

	return BuilderResult{
		PropertyKey: propertyKey,
		Schema: map[string]any{
			"type":        "string",
			"const":       constValue,
			"description": "These are instructions that should be used as context for other properties of the same schema object and adjacent schema objects.",
		},
	}
}

func buildSkip(_ *Engine, _ TargetType, _ []string, _ bool, _ MetaProperty, _ map[string]any) BuilderResult {
	return BuilderResult{Skip: true}
}

func stringField(m map[string]any, field string) (string, bool) {
	if field == "" {
		return "", false
	}
	v, ok := m[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
