package schemaengine

import (
	"fmt"
	"strings"
	"time"
)

// Default semantic validators (C2), grounded on
// schema_converter_engine.py's `@_register_validator(...)` functions.
// Structural validation (enum membership, type) is already enforced by
// the generated JSON Schema; these run only after that pass succeeds,
// over non-null values (spec §4.4).
func init() {
	RegisterDefaultValidator(TypeDate, validateISODate)
	RegisterDefaultValidator(TypeDateTime, validateISODateTime)
	RegisterDefaultValidator(TypeSingleSelect, validateNoop)
	RegisterDefaultValidator(TypeMultipleSelect, validateNoop)
}

func validateISODate(_ *Engine, value any, _ FieldMetadata) (bool, string) {
	s, ok := value.(string)
	if !ok {
		return false, fmt.Sprintf("date must be a string, got %T", value)
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return false, fmt.Sprintf("invalid ISO date format: %s", s)
	}
	return true, ""
}

func validateISODateTime(_ *Engine, value any, _ FieldMetadata) (bool, string) {
	s, ok := value.(string)
	if !ok {
		return false, fmt.Sprintf("datetime must be a string, got %T", value)
	}
	normalized := s
	if strings.HasSuffix(normalized, "Z") {
		normalized = strings.TrimSuffix(normalized, "Z") + "+00:00"
	}
	if _, err := time.Parse("2006-01-02T15:04:05Z07:00", normalized); err != nil {
		return false, fmt.Sprintf("invalid ISO datetime format: %s", s)
	}
	return true, ""
}

// validateNoop backs single_select/multiple_select: JSON Schema already
// enforces enum membership structurally, so there is nothing left to
// check semantically (spec §4.4 defaults).
func validateNoop(_ *Engine, _ any, _ FieldMetadata) (bool, string) {
	return true, ""
}
