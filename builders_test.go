package schemaengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuilders_NullabilityDiscipline follows spec.md §8 testable
// property 2: every default builder except object_array/instructions
// emits a ["type", "null"] union.
func TestBuilders_NullabilityDiscipline(t *testing.T) {
	nullableBuilders := map[TargetType]BuilderFunc{
		TypeString:          buildNullableType("string"),
		TypeInteger:         buildNullableType("integer"),
		TypeNumber:          buildNullableType("number"),
		TypeBoolean:         buildNullableType("boolean"),
		TypePositiveInteger: buildNullableMinimum("integer", 0),
		TypePositiveNumber:  buildNullableMinimum("number", 0),
		TypePercent:         buildPercent,
		TypeCurrency:        buildCurrency,
		TypeDate:            buildDate,
		TypeDateTime:        buildDateTime,
		TypeSingleSelect:    buildSingleSelect,
		TypeMultipleSelect:  buildMultipleSelect,
		TypeArray:           buildNullableType("array"),
		TypeObject:          buildNullableType("object"),
	}

	for targetType, builder := range nullableBuilders {
		result := builder(nil, targetType, nil, true, MetaProperty{}, nil)
		require.NotNil(t, result.Schema, "target type %v", targetType)
		switch targetType {
		case TypeMultipleSelect:
			items := result.Schema["items"].(map[string]any)
			assert.Equal(t, []any{"string", "null"}, items["type"], "target type %v", targetType)
			assert.Equal(t, []any{"array", "null"}, result.Schema["type"], "target type %v", targetType)
		default:
			typ, ok := result.Schema["type"].([]any)
			require.True(t, ok, "target type %v has non-union type %v", targetType, result.Schema["type"])
			require.Len(t, typ, 2)
			assert.Equal(t, "null", typ[1])
		}
	}
}

// TestBuilders_ObjectArrayAndInstructionsAreNonNullable follows the
// other half of property 2: these two builders are exempt.
func TestBuilders_ObjectArrayAndInstructionsAreNonNullable(t *testing.T) {
	oaResult := buildObjectArray(nil, TypeObjectArray, nil, true, MetaProperty{}, nil)
	assert.Equal(t, "array", oaResult.Schema["type"])

	instResult := buildInstructions(nil, TypeInstructions, nil, true, MetaProperty{Name: "name"}, map[string]any{"name": "Read this"})
	assert.Equal(t, "string", instResult.Schema["type"])
}

// TestBuilders_EnumClosure follows spec.md §8 testable property 3:
// single/multiple_select enums are exactly the sanitized option values
// plus null, no more and no less.
func TestBuilders_EnumClosure(t *testing.T) {
	values := []string{"Yes", "No <raw>"}

	single := buildSingleSelect(nil, TypeSingleSelect, values, true, MetaProperty{}, nil)
	assert.Equal(t, []any{"Yes", "No raw", nil}, single.Schema["enum"])

	multi := buildMultipleSelect(nil, TypeMultipleSelect, values, true, MetaProperty{}, nil)
	items := multi.Schema["items"].(map[string]any)
	assert.Equal(t, []any{"Yes", "No raw", nil}, items["enum"])
}

func TestBuilders_EnumAbsentWhenNoOptions(t *testing.T) {
	single := buildSingleSelect(nil, TypeSingleSelect, nil, true, MetaProperty{}, nil)
	assert.NotContains(t, single.Schema, "enum")
}

// TestBuilders_SkipSentinel follows spec.md §8 testable property 4.
func TestBuilders_SkipSentinel(t *testing.T) {
	result := buildSkip(nil, TypeSkip, nil, true, MetaProperty{}, nil)
	assert.True(t, result.Skip)
	assert.Nil(t, result.Schema)
}

func TestBuildObjectArray_DefaultMaxItems(t *testing.T) {
	result := buildObjectArray(nil, TypeObjectArray, nil, true, MetaProperty{}, nil)
	assert.Equal(t, defaultObjectArrayMaxItems, result.Schema["maxItems"])
}

func TestBuildObjectArray_ConfiguredLength(t *testing.T) {
	result := buildObjectArray(nil, TypeObjectArray, nil, true, MetaProperty{}, map[string]any{"length": 5})
	assert.Equal(t, 5, result.Schema["maxItems"])
}

func TestBuildObjectArray_NonPositiveLengthFallsBackToDefault(t *testing.T) {
	result := buildObjectArray(nil, TypeObjectArray, nil, true, MetaProperty{}, map[string]any{"length": 0})
	assert.Equal(t, defaultObjectArrayMaxItems, result.Schema["maxItems"])
}

func TestBuildObjectArray_EntryEnumSanitized(t *testing.T) {
	result := buildObjectArray(nil, TypeObjectArray, []string{"A <b>"}, true, MetaProperty{}, nil)
	itemSchema := result.Schema["items"].(map[string]any)
	entrySchema := itemSchema["properties"].(map[string]any)["entry"].(map[string]any)
	assert.Equal(t, []any{"A b"}, entrySchema["enum"])
}

// TestBuildInstructions_PropertyKeyAndConst follows spec.md §8 scenario
// S3's builder-level behavior directly.
func TestBuildInstructions_PropertyKeyAndConst(t *testing.T) {
	propertyDef := MetaProperty{ID: "id", Title: "title", Name: "name"}
	fieldSchema := map[string]any{
		"id": "1", "title": "Section A Instructions", "name": "Please read carefully",
	}

	result := buildInstructions(nil, TypeInstructions, nil, true, propertyDef, fieldSchema)
	assert.Equal(t, "1.Instructions", result.PropertyKey)
	assert.Equal(t, "Section A Instructions.Please read carefully", result.Schema["const"])
}

func TestBuildInstructions_NoIDFallsBackToBarePropertyKey(t *testing.T) {
	propertyDef := MetaProperty{Name: "name"}
	fieldSchema := map[string]any{"name": "Please read carefully"}

	result := buildInstructions(nil, TypeInstructions, nil, true, propertyDef, fieldSchema)
	assert.Equal(t, "Instructions", result.PropertyKey)
	assert.Equal(t, "Please read carefully", result.Schema["const"])
}

func TestBuildInstructions_TitleOnlyOmitsSeparator(t *testing.T) {
	propertyDef := MetaProperty{Title: "title"}
	fieldSchema := map[string]any{"title": "Just a title"}

	result := buildInstructions(nil, TypeInstructions, nil, true, propertyDef, fieldSchema)
	assert.Equal(t, "Just a title", result.Schema["const"])
}
