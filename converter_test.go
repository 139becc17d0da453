package schemaengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatRadioMetaSchema mirrors S1: a flat meta-schema with a single
// single-select property keyed by radio options.
func flatRadioMetaSchema() MetaSchema {
	return MetaSchema{
		SchemaName: "schema_name",
		Properties: &MetaProperties{
			PropertiesName: "fields",
			Property: MetaProperty{
				Key:     "key",
				ID:      "id",
				Name:    "name",
				Type:    "type",
				Options: "options",
				Validation: &MetaValidation{
					AllowedTypes: []string{"txt", "rad", "skip_me"},
					TypeConstraints: map[string]MetaTypeConstraint{
						"txt":     {TargetType: TypeString},
						"rad":     {TargetType: TypeSingleSelect, RequiresOptions: true, OptionsField: "options"},
						"skip_me": {TargetType: TypeSkip},
					},
				},
			},
		},
	}
}

// TestS1_FlatSingleSelect follows spec.md §8 scenario S1.
func TestS1_FlatSingleSelect(t *testing.T) {
	meta := flatRadioMetaSchema()
	eng, err := NewEngine(meta)
	require.NoError(t, err)

	external := map[string]any{
		"schema_name": "X",
		"fields": []any{
			map[string]any{
				"key": "priority", "id": "1", "name": "Priority Level", "type": "rad",
				"options": []any{"High", "Medium", "Low"},
			},
		},
	}

	id, err := eng.Register(external)
	require.NoError(t, err)

	schema, err := eng.GetJSONSchema(id)
	require.NoError(t, err)

	fieldsNode := schema["properties"].(map[string]any)["fields"].(map[string]any)
	props := fieldsNode["properties"].(map[string]any)
	prop, ok := props["1.Priority Level"]
	require.True(t, ok, "expected property key '1.Priority Level' in %v", props)
	propSchema := prop.(map[string]any)
	assert.Equal(t, []any{"High", "Medium", "Low", nil}, propSchema["enum"])

	required := fieldsNode["required"].([]string)
	assert.Contains(t, required, "1.Priority Level")

	index, err := eng.GetFieldMetadata(id)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, TypeSingleSelect, index[0].TargetType)
	assert.Equal(t, []string{"fields"}, index[0].LevelKeys)
}

// TestS4_SkipTypeOmitted follows spec.md §8 scenario S4: of four
// properties, the 1st and 3rd are skip-target-typed and must vanish from
// both the schema and the field index.
func TestS4_SkipTypeOmitted(t *testing.T) {
	meta := flatRadioMetaSchema()
	eng, err := NewEngine(meta)
	require.NoError(t, err)

	external := map[string]any{
		"schema_name": "X",
		"fields": []any{
			map[string]any{"key": "a", "name": "Alpha", "type": "skip_me"},
			map[string]any{"key": "b", "name": "Bravo", "type": "txt"},
			map[string]any{"key": "c", "name": "Charlie", "type": "skip_me"},
			map[string]any{"key": "d", "name": "Delta", "type": "txt"},
		},
	}

	id, err := eng.Register(external)
	require.NoError(t, err)

	schema, err := eng.GetJSONSchema(id)
	require.NoError(t, err)
	fieldsNode := schema["properties"].(map[string]any)["fields"].(map[string]any)
	props := fieldsNode["properties"].(map[string]any)

	assert.Len(t, props, 2)
	assert.Contains(t, props, "Bravo")
	assert.Contains(t, props, "Delta")
	assert.NotContains(t, props, "Alpha")
	assert.NotContains(t, props, "Charlie")

	required := fieldsNode["required"].([]string)
	assert.ElementsMatch(t, []string{"Bravo", "Delta"}, required)

	index, err := eng.GetFieldMetadata(id)
	require.NoError(t, err)
	assert.Len(t, index, 2)
}

// TestS2_NestedThreeLevels follows spec.md §8 scenario S2.
func TestS2_NestedThreeLevels(t *testing.T) {
	meta := nestedMetaSchema()
	eng, err := NewEngine(meta)
	require.NoError(t, err)

	external := map[string]any{
		"schema_name": "MDS",
		"sections": []any{
			map[string]any{
				"key": "AA", "name": "Identification",
				"groups": []any{
					map[string]any{
						"key": "1", "name": "RESIDENT NAME",
						"fields": []any{
							map[string]any{"key": "AA1a", "name": "First", "type": "text"},
							map[string]any{"key": "AA1b", "name": "Middle initial", "type": "text"},
							map[string]any{"key": "AA1c", "name": "Last", "type": "text"},
						},
					},
				},
			},
		},
	}

	id, err := eng.Register(external)
	require.NoError(t, err)

	schema, err := eng.GetJSONSchema(id)
	require.NoError(t, err)

	sections := schema["properties"].(map[string]any)["sections"].(map[string]any)
	sectionsProps := sections["properties"].(map[string]any)
	identification, ok := sectionsProps["AA.Identification"].(map[string]any)
	require.True(t, ok, "expected 'AA.Identification' in %v", sectionsProps)

	groups := identification["properties"].(map[string]any)["groups"].(map[string]any)
	groupsProps := groups["properties"].(map[string]any)
	group, ok := groupsProps["1.RESIDENT NAME"].(map[string]any)
	require.True(t, ok, "expected '1.RESIDENT NAME' in %v", groupsProps)

	questions := group["properties"].(map[string]any)["fields"].(map[string]any)
	questionProps := questions["properties"].(map[string]any)
	for _, name := range []string{"First", "Middle initial", "Last"} {
		prop, ok := questionProps[name].(map[string]any)
		require.True(t, ok, "expected %q under questions", name)
		assert.Equal(t, []any{"string", "null"}, prop["type"])
		assert.Contains(t, questions["required"].([]string), name)
	}

	index, err := eng.GetFieldMetadata(id)
	require.NoError(t, err)
	require.Len(t, index, 3)
	wantLevelKeys := []string{"sections", "AA.Identification", "groups", "1.RESIDENT NAME", "fields"}
	assert.Equal(t, wantLevelKeys, append([]string(nil), index[0].LevelKeys...))

	// Level-key path correctness (spec §8 testable property 5): walking a
	// filled response with LevelKeys + PropertyKey must reach the same
	// value the reverse mapper would consume.
	response := map[string]any{
		"sections": map[string]any{
			"AA.Identification": map[string]any{
				"groups": map[string]any{
					"1.RESIDENT NAME": map[string]any{
						"fields": map[string]any{
							"First": "Jane",
						},
					},
				},
			},
		},
	}
	firstField := index[0]
	require.Equal(t, "First", firstField.PropertyKey)
	value, ok := getNestedValue(response, firstField.ValuePath())
	require.True(t, ok)
	assert.Equal(t, "Jane", value)

	count, ok, err := eng.GetContainerCount(id, "sections")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, count)

	count, ok, err = eng.GetContainerCount(id, "groups")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, count)
}

// TestS3_InstructionsOverride follows spec.md §8 scenario S3.
func TestS3_InstructionsOverride(t *testing.T) {
	meta := flatRadioMetaSchema()
	meta.Properties.Property.Validation.AllowedTypes = append(meta.Properties.Property.Validation.AllowedTypes, "inst")
	meta.Properties.Property.Validation.TypeConstraints["inst"] = MetaTypeConstraint{TargetType: TypeInstructions}
	meta.Properties.Property.Title = "title"

	eng, err := NewEngine(meta)
	require.NoError(t, err)

	external := map[string]any{
		"schema_name": "X",
		"fields": []any{
			map[string]any{"key": "s1", "id": "1", "title": "Section A Instructions", "name": "Please read carefully", "type": "inst"},
		},
	}

	id, err := eng.Register(external)
	require.NoError(t, err)

	schema, err := eng.GetJSONSchema(id)
	require.NoError(t, err)
	fieldsNode := schema["properties"].(map[string]any)["fields"].(map[string]any)
	props := fieldsNode["properties"].(map[string]any)

	prop, ok := props["1.Instructions"].(map[string]any)
	require.True(t, ok, "expected '1.Instructions' in %v", props)
	assert.Equal(t, "string", prop["type"])
	assert.Equal(t, "Section A Instructions.Please read carefully", prop["const"])
	assert.Contains(t, prop["description"], "context for other properties")

	index, err := eng.GetFieldMetadata(id)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, "1.Instructions", index[0].PropertyKey)
}

func TestObjectNode_StructuralSoundness(t *testing.T) {
	node := objectNode(map[string]any{"a": map[string]any{"type": "string"}}, []string{"a"})
	assert.Equal(t, false, node["additionalProperties"])
	assert.Equal(t, []string{"a"}, node["required"])
}
