package schemaengine

import "fmt"

// ReverseMap walks a filled response document (one that has already
// passed Validate) against the table's field index in registration
// order, formats each present value back into one or more external field
// descriptors via the requested formatter set, and packs the result into
// the shape opts describes (C9, spec §4.5 "reverse mapper").
//
// A formatter that is missing for a field's original external type falls
// back to that formatter set's own "default" entry; when that is missing
// too, the field is skipped and the call does not fail.
func (e *Engine) ReverseMap(identifier any, response map[string]any, opts ReverseMapOptions) (map[string]any, error) {
	opts = opts.withDefaults()

	e.mu.RLock()
	rec, err := e.resolveLocked(identifier)
	if err != nil {
		e.mu.RUnlock()
		return nil, err
	}
	fieldIndex := rec.FieldIndex
	tableName := rec.TableName
	externalSchema := rec.ExternalSchema
	schemaIDField := e.meta.SchemaID
	e.mu.RUnlock()

	groups := map[string][]FieldDescriptor{}
	var groupOrder []string

	for _, meta := range fieldIndex {
		value, ok := getNestedValue(response, meta.ValuePath())
		if !ok {
			continue
		}

		// Spec §4.5 step 3: missing formatter falls back to the
		// formatter-set's own "default" entry, else the field is
		// skipped (not an error) — reverse mapping never aborts for
		// one unmapped field.
		formatter, ok := lookupFormatter(opts.FormatterSet, meta.OriginalSchemaType)
		if !ok {
			formatter, ok = lookupFormatter(opts.FormatterSet, "default")
		}
		if !ok {
			continue
		}

		// Spec §7: a formatter that throws during reverse mapping is
		// logged and the field is omitted; reverse mapping continues
		// rather than aborting the whole call.
		descriptors, callErr := invokeFormatter(formatter, e, meta, value, tableName)
		if callErr != nil {
			e.logFormatterFailure(&FormatterError{Path: dottedPath(meta.ValuePath()), Err: callErr})
			continue
		}
		if len(descriptors) == 0 {
			continue
		}

		groupKey := ""
		if opts.GroupByContainerLevel < len(meta.LevelKeys) {
			groupKey = meta.LevelKeys[opts.GroupByContainerLevel]
		}
		if _, seen := groups[groupKey]; !seen {
			groupOrder = append(groupOrder, groupKey)
		}
		groups[groupKey] = append(groups[groupKey], descriptors...)
	}

	result := map[string]any{}
	result[opts.MetadataSchemaNameField] = tableName
	if schemaIDField != "" {
		if idValue, ok := stringField(externalSchema, schemaIDField); ok && idValue != "" {
			result[opts.MetadataSchemaIDField] = idValue
		}
	}
	if opts.MetadataSchemaTypeField != "" {
		result[opts.MetadataSchemaTypeField] = opts.MetadataSchemaTypeValue
	}

	if len(groupOrder) == 1 && groupOrder[0] == "" {
		// No container grouping is in play here, so step 7's "state"
		// default never applies — there is no section to stamp it on.
		section := packGroup(groups[""], opts, false)
		for k, v := range section {
			result[k] = v
		}
		return result, nil
	}

	if opts.PackContainersAsArray {
		sections := make([]any, 0, len(groupOrder))
		for _, key := range groupOrder {
			section := packGroup(groups[key], opts, true)
			section["key"] = key
			sections = append(sections, section)
		}
		result["sections"] = sections
	} else {
		sections := map[string]any{}
		for _, key := range groupOrder {
			sections[key] = packGroup(groups[key], opts, true)
		}
		result["sections"] = sections
	}

	return result, nil
}

// packGroup packs one container-level group's descriptors into the
// caller's requested shape (array or object) under opts.PropertiesKey.
// sectioned marks that this group is one of several under a "sections"
// wrapper (the caller requested container grouping); only then does step
// 7's "draft" default apply, and only when opts.SectionStateDefault is
// empty. Formatters cannot set a section's "state": their descriptors are
// packed only under opts.PropertiesKey.
func packGroup(descriptors []FieldDescriptor, opts ReverseMapOptions, sectioned bool) map[string]any {
	section := map[string]any{}

	if opts.PackPropertiesAsObject {
		obj := map[string]any{}
		for _, d := range descriptors {
			key := d.StorageKey
			if key == "" {
				key = d.Key
			}
			obj[key] = descriptorToMap(d)
		}
		section[opts.PropertiesKey] = obj
	} else {
		arr := make([]any, 0, len(descriptors))
		for _, d := range descriptors {
			arr = append(arr, descriptorToMap(d))
		}
		section[opts.PropertiesKey] = arr
	}

	if _, ok := section["state"]; !ok {
		state := opts.SectionStateDefault
		if state == "" && sectioned {
			state = "draft"
		}
		if state != "" {
			section["state"] = state
		}
	}

	return section
}

func descriptorToMap(d FieldDescriptor) map[string]any {
	m := map[string]any{
		"key":   d.Key,
		"type":  d.Type,
		"value": d.Value,
	}
	if d.HTMLType != "" {
		m["html_type"] = d.HTMLType
	}
	if d.StorageKey != "" {
		m["storage_key"] = d.StorageKey
	}
	if d.DisplayKey != "" {
		m["display_key"] = d.DisplayKey
	}
	for k, v := range d.Extra {
		m[k] = v
	}
	return m
}

func invokeFormatter(fn FormatterFunc, eng *Engine, meta FieldMetadata, value any, tableName string) (descriptors []FieldDescriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatter panicked: %v", r)
		}
	}()
	return fn(eng, meta, value, tableName)
}
