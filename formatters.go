package schemaengine

import "fmt"

// Default reverse-formatter sets (C3), grounded field-for-field on
// pcc_assessment_schema.py's two formatter registrations: the PCC
// wire-format functions registered under formatter-set "default"
// (pcc_chk_reverse_formatter, pcc_radio_formatter, pcc_multi_select_
// formatter, pcc_object_array_reverse_formatter, ...) and the PCC UI
// functions registered under "pcc-ui" (pcc_ui_checkbox_formatter,
// pcc_ui_single_select_formatter, get_html_type, ...). The original
// system only wires these at the PCC wrapper layer; this engine
// promotes both into the core as two named, independently selectable
// formatter sets (spec §4.5, §6).
func init() {
	registerDefaultFormatterSet()
	registerPCCUIFormatterSet()
}

var responseValueFieldCandidates = []string{"responseValue", "value", "val"}

// fieldOptions returns a field's raw options blob as a list of maps, or
// nil if the field has none or it is shaped unexpectedly.
func fieldOptions(meta FieldMetadata) []any {
	if meta.OptionsField == "" {
		return nil
	}
	raw, _ := meta.FieldSchema[meta.OptionsField].([]any)
	return raw
}

// resolveOriginalValue looks a model-selected (already-sanitized) option
// text up against a field's original options blob and returns the
// matching original value (e.g. PCC's responseValue), comparing the
// blob's own text field through the same sanitizer the schema-generation
// pass already applied to the enum (spec §4.5 "value sanitization").
// Reports found=false when nothing matches.
func resolveOriginalValue(meta FieldMetadata, selectedText string) (value any, found bool) {
	for _, raw := range fieldOptions(meta) {
		opt, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		text, ok := firstStringField(opt, responseTextFieldCandidates)
		if !ok || sanitizeForJSON(text) != selectedText {
			continue
		}
		for _, candidate := range responseValueFieldCandidates {
			if v, ok := opt[candidate]; ok {
				return v, true
			}
		}
		return nil, false
	}
	return nil, false
}

func registerDefaultFormatterSet() {
	const set = "default"
	RegisterDefaultFormatter(set, "default", formatGenericPassthrough)

	RegisterDefaultFormatter(set, "chk", formatWireCheckbox)

	for _, code := range []string{"rad", "radh", "cmb", "hck"} {
		RegisterDefaultFormatter(set, code, formatWireSingleSelect)
	}
	for _, code := range []string{"mcs", "mcsh"} {
		RegisterDefaultFormatter(set, code, formatWireMultiSelect)
	}
	RegisterDefaultFormatter(set, "gbdy", formatWireObjectArray)
	RegisterDefaultFormatter(set, "inst", formatWireOmit)

	RegisterDefaultFormatter(set, "txt", formatWireScalar("text"))
	RegisterDefaultFormatter(set, "dte", formatWireScalar("date"))
	RegisterDefaultFormatter(set, "dttm", formatWireScalar("datetime"))
	RegisterDefaultFormatter(set, "num", formatWireScalar("number"))
	RegisterDefaultFormatter(set, "numde", formatWireScalar("number"))
	RegisterDefaultFormatter(set, "diag", formatWireScalar("text"))
}

func formatGenericPassthrough(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	return []FieldDescriptor{{
		Key:   meta.Key,
		Type:  meta.OriginalSchemaType,
		Value: value,
	}}, nil
}

// formatWireCheckbox mirrors pcc_chk_reverse_formatter: a true model
// value becomes PCC's "1"; false, null and any other value become "null".
func formatWireCheckbox(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	out := "null"
	if b, ok := value.(bool); ok && b {
		out = "1"
	}
	return []FieldDescriptor{{Key: meta.Key, Type: "checkbox", Value: out}}, nil
}

// formatWireSingleSelect mirrors pcc_radio_formatter/pcc_combo_formatter/
// pcc_hck_formatter: resolve the model's selected option text back to
// its original external value; fall back to the raw model value when no
// option matches (including when the model returned null).
func formatWireSingleSelect(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	out := value
	if text, ok := value.(string); ok {
		if resolved, found := resolveOriginalValue(meta, text); found {
			out = resolved
		}
	}
	return []FieldDescriptor{{Key: meta.Key, Type: meta.OriginalSchemaType, Value: out}}, nil
}

// formatWireMultiSelect mirrors pcc_multi_select_formatter: returns the
// list of resolved original values for every selected option text that
// has a match; unmatched selections are silently dropped (this is the
// original's own asymmetry relative to single-select's raw-value
// fallback). A nil or non-list value yields a nil result list.
func formatWireMultiSelect(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	values, ok := value.([]any)
	if !ok {
		return []FieldDescriptor{{Key: meta.Key, Type: meta.OriginalSchemaType, Value: nil}}, nil
	}

	var results []any
	for _, raw := range values {
		text, ok := raw.(string)
		if !ok {
			continue
		}
		if resolved, found := resolveOriginalValue(meta, text); found {
			results = append(results, resolved)
		}
	}
	return []FieldDescriptor{{Key: meta.Key, Type: meta.OriginalSchemaType, Value: results}}, nil
}

// formatWireObjectArray mirrors pcc_object_array_reverse_formatter: the
// whole field stays one descriptor whose value is a list of aN_/bN_ row
// maps (contrast with pcc-ui's unpacking into parallel top-level
// descriptors).
func formatWireObjectArray(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, nil
	}

	rows := make([]any, 0, len(items))
	for i, raw := range items {
		entryMap, ok := raw.(map[string]any)
		if !ok {
			return nil, &FormatterError{Path: meta.Key, Err: fmt.Errorf("object-array formatter: item %d is not an object", i)}
		}
		entryText, _ := entryMap["entry"].(string)
		description, _ := entryMap["description"].(string)
		entryValue, _ := resolveOriginalValue(meta, entryText)

		rows = append(rows, map[string]any{
			fmt.Sprintf("a%d_%s", i, meta.Key): entryValue,
			fmt.Sprintf("b%d_%s", i, meta.Key): description,
		})
	}

	return []FieldDescriptor{{Key: meta.Key, Type: "table", Value: rows}}, nil
}

// formatWireOmit backs the "inst" wire formatter: instruction fields are
// fixed model context, not something the external system re-displays.
func formatWireOmit(_ *Engine, _ FieldMetadata, _ any, _ string) ([]FieldDescriptor, error) {
	return nil, nil
}

func formatWireScalar(wireType string) FormatterFunc {
	return func(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
		return []FieldDescriptor{{Key: meta.Key, Type: wireType, Value: value}}, nil
	}
}

// getHTMLType mirrors get_html_type's code-to-widget switch: each PCC
// field-type code renders as one of the fixed closed set of HTML
// controls named in spec §6.
func getHTMLType(originalType string, fieldSchema map[string]any) string {
	switch originalType {
	case "rad", "radh", "hck":
		return "radio_buttons"
	case "cmb":
		return "combobox"
	case "chk":
		return "checkbox_single"
	case "mcs", "mcsh":
		return "checkbox_multi"
	case "txt", "diag":
		length := 0
		if fieldSchema != nil {
			if n, ok := toInt(fieldSchema["length"]); ok {
				length = n
			}
		}
		if length <= 50 {
			return "textarea_singleline"
		}
		return "textarea_multiline"
	case "dte", "dttm":
		return "text"
	case "num", "numde":
		return "textarea_singleline"
	case "gbdy_entry":
		return "combobox"
	case "gbdy_description":
		return "textarea_singleline"
	default:
		return "text"
	}
}

func registerPCCUIFormatterSet() {
	const set = "pcc-ui"
	RegisterDefaultFormatter(set, "default", formatPCCUIBasic)

	for _, code := range []string{"txt", "dte", "dttm", "diag", "hck"} {
		RegisterDefaultFormatter(set, code, formatPCCUIBasic)
	}
	for _, code := range []string{"num", "numde"} {
		RegisterDefaultFormatter(set, code, formatPCCUINumber)
	}
	RegisterDefaultFormatter(set, "chk", formatPCCUICheckbox)

	for _, code := range []string{"rad", "radh", "cmb"} {
		RegisterDefaultFormatter(set, code, formatPCCUISingleSelect)
	}
	for _, code := range []string{"mcs", "mcsh"} {
		RegisterDefaultFormatter(set, code, formatPCCUIMultiSelect)
	}
	RegisterDefaultFormatter(set, "gbdy", formatPCCUIObjectArray)
	RegisterDefaultFormatter(set, "inst", formatWireOmit)
}

// formatPCCUIBasic mirrors pcc_ui_basic_formatter: passes the model
// value through unchanged, annotated with the field's html_type.
func formatPCCUIBasic(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	return []FieldDescriptor{{
		Key:      meta.Key,
		Type:     meta.OriginalSchemaType,
		HTMLType: getHTMLType(meta.OriginalSchemaType, meta.FieldSchema),
		Value:    value,
	}}, nil
}

// formatPCCUINumber mirrors pcc_ui_number_formatter: numeric values are
// stringified for the UI layer, which renders number fields as single-line
// text inputs.
func formatPCCUINumber(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	out := value
	if value != nil {
		out = fmt.Sprintf("%v", value)
	}
	return []FieldDescriptor{{
		Key:      meta.Key,
		Type:     meta.OriginalSchemaType,
		HTMLType: getHTMLType(meta.OriginalSchemaType, meta.FieldSchema),
		Value:    out,
	}}, nil
}

// formatPCCUICheckbox mirrors pcc_ui_checkbox_formatter.
func formatPCCUICheckbox(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	out := value
	if b, ok := value.(bool); ok {
		if b {
			out = "1"
		} else {
			out = "null"
		}
	}
	return []FieldDescriptor{{
		Key:      meta.Key,
		Type:     meta.OriginalSchemaType,
		HTMLType: getHTMLType(meta.OriginalSchemaType, meta.FieldSchema),
		Value:    out,
	}}, nil
}

// formatPCCUISingleSelect mirrors pcc_ui_single_select_formatter.
func formatPCCUISingleSelect(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	out := value
	if text, ok := value.(string); ok {
		if resolved, found := resolveOriginalValue(meta, text); found {
			out = resolved
		}
	}
	return []FieldDescriptor{{
		Key:      meta.Key,
		Type:     meta.OriginalSchemaType,
		HTMLType: getHTMLType(meta.OriginalSchemaType, meta.FieldSchema),
		Value:    out,
	}}, nil
}

// formatPCCUIMultiSelect mirrors pcc_ui_multi_select_formatter: unpacks
// into one descriptor per selected option, disambiguated with a
// "{key}__{i}" storage key (spec S5).
func formatPCCUIMultiSelect(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	htmlType := getHTMLType(meta.OriginalSchemaType, meta.FieldSchema)

	values, ok := value.([]any)
	if !ok {
		return []FieldDescriptor{{
			Key: meta.Key, Type: meta.OriginalSchemaType, HTMLType: htmlType, Value: nil,
		}}, nil
	}

	out := make([]FieldDescriptor, 0, len(values))
	for i, raw := range values {
		text, _ := raw.(string)
		resolved, found := resolveOriginalValue(meta, text)
		if !found {
			resolved = text
		}
		out = append(out, FieldDescriptor{
			Key:        meta.Key,
			Type:       meta.OriginalSchemaType,
			HTMLType:   htmlType,
			Value:      resolved,
			StorageKey: fmt.Sprintf("%s__%d", meta.Key, i),
		})
	}
	return out, nil
}

// formatPCCUIObjectArray mirrors pcc_ui_object_array_formatter: unpacks
// into parallel aN_/bN_ descriptors (contrast with the wire formatter's
// single nested-rows descriptor).
func formatPCCUIObjectArray(_ *Engine, meta FieldMetadata, value any, _ string) ([]FieldDescriptor, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, nil
	}

	entryHTMLType := getHTMLType(meta.OriginalSchemaType+"_entry", meta.FieldSchema)
	descriptionHTMLType := getHTMLType(meta.OriginalSchemaType+"_description", meta.FieldSchema)

	out := make([]FieldDescriptor, 0, len(items)*2)
	for i, raw := range items {
		entryMap, ok := raw.(map[string]any)
		if !ok {
			return nil, &FormatterError{Path: meta.Key, Err: fmt.Errorf("object-array formatter: item %d is not an object", i)}
		}
		entryText, _ := entryMap["entry"].(string)
		description, _ := entryMap["description"].(string)
		entryValue, _ := resolveOriginalValue(meta, entryText)

		aKey := fmt.Sprintf("a%d_%s", i, meta.Key)
		bKey := fmt.Sprintf("b%d_%s", i, meta.Key)
		out = append(out,
			FieldDescriptor{
				Key: meta.Key, Type: meta.OriginalSchemaType, HTMLType: entryHTMLType,
				Value: entryValue, StorageKey: aKey, DisplayKey: aKey,
			},
			FieldDescriptor{
				Key: meta.Key, Type: meta.OriginalSchemaType, HTMLType: descriptionHTMLType,
				Value: description, StorageKey: bKey, DisplayKey: bKey,
			},
		)
	}
	return out, nil
}
