package schemaengine

// getNestedValue walks a filled response document along path (level keys
// followed by the JSON-Schema property key, per FieldMetadata.ValuePath)
// and returns the value found there. Any missing or non-object
// intermediate segment reports ok=false rather than erroring. Validate
// treats "field absent" the same as "field null" (spec §4.4); ReverseMap
// skips an absent field but still formats a null one.
func getNestedValue(data map[string]any, path []string) (any, bool) {
	var cur any = data
	for _, segment := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[segment]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
