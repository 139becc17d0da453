package schemaengine

// validateMetaSchema structurally validates a meta-schema definition at
// engine construction time (C5, spec §4.1). Failure names the offending
// path; there is no partial construction.
func validateMetaSchema(m *MetaSchema) error {
	if m == nil {
		return &MetaSchemaShapeError{Path: "$", Msg: "meta-schema must not be nil"}
	}
	if m.SchemaName == "" {
		return &MetaSchemaShapeError{Path: "schema_name", Msg: "schema_name is required"}
	}

	hasProperties := m.Properties != nil
	hasContainer := m.Container != nil

	if !hasProperties && !hasContainer {
		return &MetaSchemaShapeError{Path: "$", Msg: "exactly one of 'properties' or 'container' is required"}
	}
	if hasProperties && hasContainer {
		return &MetaSchemaShapeError{Path: "$", Msg: "'properties' and 'container' are mutually exclusive"}
	}

	if hasProperties {
		return validatePropertiesShape("properties", m.Properties)
	}
	return validateContainerShape("container", m.Container)
}

func validateContainerShape(path string, c *MetaContainer) error {
	if c.ContainerName == "" {
		return &MetaSchemaShapeError{Path: path + ".container_name", Msg: "container_name is required"}
	}
	return validateObjectShape(path+".object", &c.Object)
}

func validateObjectShape(path string, o *MetaObject) error {
	if o.Key == "" {
		return &MetaSchemaShapeError{Path: path + ".key", Msg: "key is required"}
	}

	hasContainer := o.Container != nil
	hasProperties := o.Properties != nil

	if !hasContainer && !hasProperties {
		return &MetaSchemaShapeError{Path: path, Msg: "exactly one of 'container' or 'properties' is required"}
	}
	if hasContainer && hasProperties {
		return &MetaSchemaShapeError{Path: path, Msg: "'container' and 'properties' are mutually exclusive"}
	}

	if hasContainer {
		return validateContainerShape(path+".container", o.Container)
	}
	return validatePropertiesShape(path+".properties", o.Properties)
}

func validatePropertiesShape(path string, p *MetaProperties) error {
	if p.PropertiesName == "" {
		return &MetaSchemaShapeError{Path: path + ".properties_name", Msg: "properties_name is required"}
	}
	return validatePropertyDefShape(path+".property", &p.Property)
}

func validatePropertyDefShape(path string, prop *MetaProperty) error {
	if prop.Key == "" {
		return &MetaSchemaShapeError{Path: path + ".key", Msg: "key is required"}
	}
	if prop.Name == "" {
		return &MetaSchemaShapeError{Path: path + ".name", Msg: "name is required"}
	}
	if prop.Type == "" {
		return &MetaSchemaShapeError{Path: path + ".type", Msg: "type is required"}
	}

	if prop.Validation == nil {
		return nil
	}
	return validateValidationShape(path+".validation", prop.Validation)
}

func validateValidationShape(path string, v *MetaValidation) error {
	if len(v.AllowedTypes) == 0 {
		return &MetaSchemaShapeError{Path: path + ".allowed_types", Msg: "allowed_types must be a non-empty set"}
	}

	allowed := make(map[string]struct{}, len(v.AllowedTypes))
	for _, t := range v.AllowedTypes {
		allowed[t] = struct{}{}
	}

	for _, t := range v.IgnoredTypes {
		if _, ok := allowed[t]; ok {
			return &MetaSchemaShapeError{
				Path: path + ".ignored_types",
				Msg:  "ignored_types must be disjoint from allowed_types, found " + t,
			}
		}
	}

	for _, t := range v.AllowedTypes {
		constraint, ok := v.TypeConstraints[t]
		if !ok {
			return &MetaSchemaShapeError{
				Path: path + ".type_constraints",
				Msg:  "missing type_constraints entry for allowed type " + t,
			}
		}
		if constraint.TargetType == "" {
			return &MetaSchemaShapeError{
				Path: path + ".type_constraints." + t + ".target_type",
				Msg:  "target_type is required",
			}
		}
	}

	return nil
}
