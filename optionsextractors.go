package schemaengine

import "fmt"

// Default options extractors (C4). Grounded on the PCC meta-schema
// example in the original source material, which references
// "extract_response_options" / "extract_response_options_horizontal" by
// name from type_constraints.options_extractor. Both expect the raw
// options blob to be a list of maps carrying a display-text field
// (PCC: "responseText") under one of a small set of conventional keys.
func init() {
	RegisterDefaultOptionsExtractor("extract_response_options", extractResponseOptions)
	RegisterDefaultOptionsExtractor("extract_response_options_horizontal", extractResponseOptions)
}

var responseTextFieldCandidates = []string{"responseText", "text", "label", "name"}

func extractResponseOptions(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("extract_response_options: expected a list, got %T", raw)
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("extract_response_options: item %d is not an object", i)
		}
		text, ok := firstStringField(entry, responseTextFieldCandidates)
		if !ok {
			return nil, fmt.Errorf("extract_response_options: item %d has no recognizable text field", i)
		}
		out = append(out, text)
	}
	return out, nil
}

func firstStringField(m map[string]any, candidates []string) (string, bool) {
	for _, c := range candidates {
		if v, ok := m[c]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}
