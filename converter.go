package schemaengine

import "fmt"

// buildTableSchema walks an external schema document using the engine's
// meta-schema and emits (a) the root JSON Schema, (b) the ordered field
// index, and (c) per-container item counts (C6, spec §4.2-§4.3).
func buildTableSchema(eng *Engine, meta *MetaSchema, external map[string]any) (map[string]any, []FieldMetadata, map[string]int, error) {
	tableName, _ := stringField(external, meta.SchemaName)
	if tableName == "" {
		tableName = "Unknown Table"
	}

	containerCounts := map[string]int{}
	var innerProps map[string]any
	var innerRequired []string
	var fieldIndex []FieldMetadata

	switch {
	case meta.Properties != nil:
		propsName := meta.Properties.PropertiesName
		arr, _ := external[propsName].([]any)
		props, req, idx, err := processProperties(eng, meta.Properties.Property, arr, []string{propsName})
		if err != nil {
			return nil, nil, nil, err
		}
		innerProps = map[string]any{propsName: objectNode(props, req)}
		innerRequired = []string{propsName}
		fieldIndex = idx

	case meta.Container != nil:
		containerName := meta.Container.ContainerName
		arr, _ := external[containerName].([]any)
		containerSchema, idx, err := buildContainerObject(eng, containerName, meta.Container.Object, arr, []string{containerName}, containerCounts)
		if err != nil {
			return nil, nil, nil, err
		}
		innerProps = map[string]any{containerName: containerSchema}
		innerRequired = []string{containerName}
		fieldIndex = idx

	default:
		return nil, nil, nil, &MetaSchemaShapeError{Path: "$", Msg: "meta-schema must contain either 'properties' or 'container'"}
	}

	rootProperties := map[string]any{
		"table_name": map[string]any{
			"type":        "string",
			"const":       tableName,
			"description": "the name of the registered table, used to anchor downstream routing",
		},
	}
	for k, v := range innerProps {
		rootProperties[k] = v
	}

	root := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"title":                tableName,
		"properties":           rootProperties,
		"required":             append([]string{"table_name"}, innerRequired...),
	}

	return root, fieldIndex, containerCounts, nil
}

// objectNode builds a JSON Schema object node that satisfies the
// structural-soundness invariant: additionalProperties is always false
// and required always lists every property (spec §3 invariants, testable
// property 1).
func objectNode(properties map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
		"required":             required,
	}
}

// processProperties walks one properties array (either the flat root, or
// the terminal block of a container item) and builds the kept fields'
// JSON-Schema properties, their required list, and field-index entries.
func processProperties(eng *Engine, propDef MetaProperty, items []any, levelKeys []string) (map[string]any, []string, []FieldMetadata, error) {
	properties := map[string]any{}
	required := make([]string, 0, len(items))
	fieldIndex := make([]FieldMetadata, 0, len(items))

	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		fieldKey, ok := stringField(item, propDef.Key)
		if !ok || fieldKey == "" {
			return nil, nil, nil, fmt.Errorf("%w: property missing required key %q at %s",
				ErrFieldType, propDef.Key, dottedPath(levelKeys))
		}

		fieldName, ok := stringField(item, propDef.Name)
		if !ok || fieldName == "" {
			fieldName = fieldKey
		}

		override, schema, targetType, originalType, optionsField, skip, err := buildPropertySchema(eng, item, propDef, levelKeys)
		if err != nil {
			return nil, nil, nil, err
		}
		if skip {
			continue
		}

		propertyKey := override
		if propertyKey == "" {
			propertyKey = bottomPropertyKey(item, propDef, fieldName)
		}

		properties[propertyKey] = schema
		required = append(required, propertyKey)

		idValue, _ := stringField(item, propDef.ID)
		titleValue, _ := stringField(item, propDef.Title)

		fieldIndex = append(fieldIndex, FieldMetadata{
			Key:                fieldKey,
			ID:                 idValue,
			Name:               fieldName,
			Title:              titleValue,
			LevelKeys:          append([]string(nil), levelKeys...),
			TargetType:         targetType,
			OriginalSchemaType: originalType,
			FieldSchema:        item,
			PropertyKey:        propertyKey,
			OptionsField:       optionsField,
		})
	}

	return properties, required, fieldIndex, nil
}

// bottomPropertyKey applies the "{id}.{sanitized name}" suffixing
// invariant (spec §3): when the meta-schema declares an id field for
// properties and this item carries a non-empty id, the JSON-Schema
// property key is the id, a dot, then the sanitized name; otherwise the
// sanitized name alone.
func bottomPropertyKey(item map[string]any, propDef MetaProperty, fieldName string) string {
	sanitizedName := sanitizeForJSON(fieldName)
	if propDef.ID == "" {
		return sanitizedName
	}
	idValue, ok := stringField(item, propDef.ID)
	if !ok || idValue == "" {
		return sanitizedName
	}
	return fmt.Sprintf("%s.%s", idValue, sanitizedName)
}

// buildPropertySchema resolves one external property's target type,
// gathers its enum options if required, and invokes the registered
// builder (C1, spec §4.3).
func buildPropertySchema(eng *Engine, item map[string]any, propDef MetaProperty, levelKeys []string) (
	propertyKeyOverride string, schema map[string]any, targetType TargetType, originalType string, optionsField string, skip bool, err error,
) {
	originalType, ok := stringField(item, propDef.Type)
	if !ok || originalType == "" {
		err = fmt.Errorf("%w: property missing required type field %q at %s", ErrFieldType, propDef.Type, dottedPath(levelKeys))
		return
	}

	var constraint MetaTypeConstraint
	if propDef.Validation != nil {
		v := propDef.Validation
		for _, ignored := range v.IgnoredTypes {
			if ignored == originalType {
				skip = true
				return
			}
		}
		if len(v.AllowedTypes) > 0 && !contains(v.AllowedTypes, originalType) {
			err = &FieldTypeError{Path: dottedPath(levelKeys), FieldType: originalType}
			return
		}
		c, ok := v.TypeConstraints[originalType]
		if !ok {
			err = &FieldTypeError{Path: dottedPath(levelKeys), FieldType: originalType}
			return
		}
		constraint = c
	} else {
		// No validation block declared: fall back to treating the
		// external type string itself as the target type.
		constraint = MetaTypeConstraint{TargetType: TargetType(originalType)}
	}

	targetType = constraint.TargetType
	if targetType == TypeSkip {
		skip = true
		return
	}

	var enumValues []string
	if constraint.RequiresOptions {
		optionsField = constraint.OptionsField
		if optionsField == "" {
			optionsField = propDef.Options
		}
		enumValues, err = resolveOptionValues(eng, item, propDef, constraint, levelKeys)
		if err != nil {
			return
		}
	}

	builder, ok := eng.resolveBuilder(targetType)
	if !ok {
		err = &BuilderError{Path: dottedPath(levelKeys), Err: fmt.Errorf("no builder registered for target type %q", targetType)}
		return
	}

	result, callErr := invokeBuilder(builder, eng, targetType, enumValues, true, propDef, item)
	if callErr != nil {
		err = &BuilderError{Path: dottedPath(levelKeys), Err: callErr}
		return
	}
	if result.Skip {
		skip = true
		return
	}

	propertyKeyOverride = result.PropertyKey
	schema = result.Schema
	return
}

func resolveOptionValues(eng *Engine, item map[string]any, propDef MetaProperty, constraint MetaTypeConstraint, levelKeys []string) ([]string, error) {
	optionsField := constraint.OptionsField
	if optionsField == "" {
		optionsField = propDef.Options
	}
	if optionsField == "" {
		return nil, &OptionsExtractionError{Path: dottedPath(levelKeys), Msg: "type requires options but no options field is configured"}
	}

	raw, ok := item[optionsField]
	if !ok || raw == nil {
		return nil, &OptionsExtractionError{Path: dottedPath(levelKeys), Msg: "required options field missing: " + optionsField}
	}

	if list, ok := raw.([]any); ok {
		if strs, ok := allStrings(list); ok {
			return strs, nil
		}
	}

	if constraint.OptionsExtractor == "" {
		return nil, &OptionsExtractionError{Path: dottedPath(levelKeys), Msg: "options blob is not a list of strings and no extractor is configured"}
	}

	extractor, ok := eng.resolveOptionsExtractor(constraint.OptionsExtractor)
	if !ok {
		return nil, &OptionsExtractionError{Path: dottedPath(levelKeys), Extractor: constraint.OptionsExtractor, Msg: "extractor not registered"}
	}

	values, err := invokeExtractor(extractor, raw)
	if err != nil {
		return nil, &OptionsExtractionError{Path: dottedPath(levelKeys), Extractor: constraint.OptionsExtractor, Msg: err.Error()}
	}
	return values, nil
}

// buildContainerObject builds one level of the nested walk as a JSON
// Schema object keyed by each item's display key (spec §4.2 "Nested
// walk"), recursing into child containers or bottoming out into a
// terminal properties block. containerCounts accumulates the number of
// non-dropped items seen under containerName across the whole walk.
func buildContainerObject(eng *Engine, containerName string, obj MetaObject, items []any, levelKeys []string, containerCounts map[string]int) (map[string]any, []FieldMetadata, error) {
	properties := map[string]any{}
	required := make([]string, 0, len(items))
	var fieldIndex []FieldMetadata
	kept := 0

	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		key, _ := stringField(item, obj.Key)
		if key == "" {
			continue
		}
		name, _ := stringField(item, obj.Name)

		propertyName := key
		if name != "" {
			propertyName = fmt.Sprintf("%s.%s", key, sanitizeForJSON(name))
		}

		switch {
		case obj.Properties != nil:
			propsName := obj.Properties.PropertiesName
			propsArray, ok := item[propsName].([]any)
			if !ok {
				continue
			}
			updated := append(append([]string(nil), levelKeys...), propertyName, propsName)

			innerProps, innerRequired, idx, err := processProperties(eng, obj.Properties.Property, propsArray, updated)
			if err != nil {
				return nil, nil, err
			}

			properties[propertyName] = objectNode(
				map[string]any{propsName: objectNode(innerProps, innerRequired)},
				[]string{propsName},
			)
			required = append(required, propertyName)
			fieldIndex = append(fieldIndex, idx...)
			kept++

		case obj.Container != nil:
			nestedContainerName := obj.Container.ContainerName
			nestedArray, ok := item[nestedContainerName].([]any)
			if !ok {
				continue
			}
			updated := append(append([]string(nil), levelKeys...), propertyName, nestedContainerName)

			nestedSchema, idx, err := buildContainerObject(eng, nestedContainerName, obj.Container.Object, nestedArray, updated, containerCounts)
			if err != nil {
				return nil, nil, err
			}

			properties[propertyName] = objectNode(
				map[string]any{nestedContainerName: nestedSchema},
				[]string{nestedContainerName},
			)
			required = append(required, propertyName)
			fieldIndex = append(fieldIndex, idx...)
			kept++

		default:
			return nil, nil, &MetaSchemaShapeError{Path: dottedPath(levelKeys), Msg: "container object has neither 'container' nor 'properties'"}
		}
	}

	containerCounts[containerName] += kept

	return objectNode(properties, required), fieldIndex, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func allStrings(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// invokeBuilder and invokeExtractor guard against a panicking
// builder/extractor (spec §5 "Exception safety"): any panic is recovered
// and turned into an error tied to the call site, never propagated past
// conversion.
func invokeBuilder(fn BuilderFunc, eng *Engine, targetType TargetType, enumValues []string, nullable bool, propertyDef MetaProperty, fieldSchema map[string]any) (result BuilderResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("builder panicked: %v", r)
		}
	}()
	result = fn(eng, targetType, enumValues, nullable, propertyDef, fieldSchema)
	return
}

func invokeExtractor(fn OptionsExtractorFunc, raw any) (values []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("options extractor panicked: %v", r)
		}
	}()
	return fn(raw)
}
