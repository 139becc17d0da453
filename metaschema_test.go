package schemaengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatMetaSchema() MetaSchema {
	return MetaSchema{
		SchemaName: "schema_name",
		SchemaID:   "schema_id",
		Properties: &MetaProperties{
			PropertiesName: "fields",
			Property: MetaProperty{
				Key:  "key",
				ID:   "id",
				Name: "name",
				Type: "type",
				Validation: &MetaValidation{
					AllowedTypes: []string{"text", "radio"},
					TypeConstraints: map[string]MetaTypeConstraint{
						"text":  {TargetType: TypeString},
						"radio": {TargetType: TypeSingleSelect, RequiresOptions: true, OptionsField: "options"},
					},
				},
			},
		},
	}
}

func TestValidateMetaSchema_FlatOK(t *testing.T) {
	meta := flatMetaSchema()
	require.NoError(t, validateMetaSchema(&meta))
}

func TestValidateMetaSchema_RejectsNeitherPropertiesNorContainer(t *testing.T) {
	meta := MetaSchema{SchemaName: "x"}
	err := validateMetaSchema(&meta)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMetaSchemaShape)
}

func TestValidateMetaSchema_RejectsBothPropertiesAndContainer(t *testing.T) {
	meta := flatMetaSchema()
	meta.Container = &MetaContainer{ContainerName: "sections", Object: MetaObject{Key: "key", Properties: meta.Properties}}
	err := validateMetaSchema(&meta)
	require.Error(t, err)
	var shapeErr *MetaSchemaShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestValidateMetaSchema_RejectsMissingSchemaName(t *testing.T) {
	meta := flatMetaSchema()
	meta.SchemaName = ""
	err := validateMetaSchema(&meta)
	require.Error(t, err)
	var shapeErr *MetaSchemaShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "schema_name", shapeErr.Path)
}

func TestValidateMetaSchema_RejectsIgnoredTypesOverlappingAllowed(t *testing.T) {
	meta := flatMetaSchema()
	meta.Properties.Property.Validation.IgnoredTypes = []string{"text"}
	err := validateMetaSchema(&meta)
	require.Error(t, err)
}

func TestValidateMetaSchema_RejectsMissingTypeConstraintEntry(t *testing.T) {
	meta := flatMetaSchema()
	meta.Properties.Property.Validation.AllowedTypes = append(meta.Properties.Property.Validation.AllowedTypes, "checkbox")
	err := validateMetaSchema(&meta)
	require.Error(t, err)
}

func nestedMetaSchema() MetaSchema {
	return MetaSchema{
		SchemaName: "schema_name",
		Container: &MetaContainer{
			ContainerName: "sections",
			Object: MetaObject{
				Key:  "key",
				Name: "name",
				Container: &MetaContainer{
					ContainerName: "groups",
					Object: MetaObject{
						Key:  "key",
						Name: "name",
						Properties: &MetaProperties{
							PropertiesName: "fields",
							Property: MetaProperty{
								Key:  "key",
								ID:   "id",
								Name: "name",
								Type: "type",
								Validation: &MetaValidation{
									AllowedTypes: []string{"text"},
									TypeConstraints: map[string]MetaTypeConstraint{
										"text": {TargetType: TypeString},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestValidateMetaSchema_NestedOK(t *testing.T) {
	meta := nestedMetaSchema()
	require.NoError(t, validateMetaSchema(&meta))
}

func TestValidateMetaSchema_RejectsContainerObjectMissingKey(t *testing.T) {
	meta := nestedMetaSchema()
	meta.Container.Object.Key = ""
	err := validateMetaSchema(&meta)
	require.Error(t, err)
}
