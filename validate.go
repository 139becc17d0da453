package schemaengine

import "fmt"

// FieldError is one validation failure, carrying the dotted path used
// throughout the engine for locating the offending value.
type FieldError struct {
	Path    string
	Message string
}

// ValidationReport is the result of one Validate call (spec §4.4
// "two-pass validation"). When Valid is false, Errors always carries at
// least one entry; semantic validators never run unless the structural
// pass already succeeded.
type ValidationReport struct {
	Valid  bool
	Errors []FieldError
}

// Validate runs the structural pass (full JSON-Schema validation against
// the table's compiled schema) and, only if that succeeds, the semantic
// pass (per-target-type validators walking the field index). Errors from
// both passes are never mixed: a structural failure is reported alone
// (spec §4.4, testable property 9).
func (e *Engine) Validate(identifier any, response map[string]any) (*ValidationReport, error) {
	e.mu.RLock()
	rec, err := e.resolveLocked(identifier)
	if err != nil {
		e.mu.RUnlock()
		return nil, err
	}
	compiled, ok := e.compiledSchemas[rec.TableID]
	fieldIndex := rec.FieldIndex
	e.mu.RUnlock()
	if !ok {
		return nil, &UnknownTableError{Identifier: fmt.Sprintf("%d", rec.TableID)}
	}

	result := compiled.Validate(response)
	if !result.IsValid() {
		detailed := result.GetDetailedErrors()
		errs := make([]FieldError, 0, len(detailed))
		for path, msg := range detailed {
			errs = append(errs, FieldError{Path: path, Message: msg})
		}
		return &ValidationReport{Valid: false, Errors: errs}, nil
	}

	var errs []FieldError
	for _, meta := range fieldIndex {
		value, ok := getNestedValue(response, meta.ValuePath())
		if !ok || value == nil {
			continue
		}

		validator, ok := e.resolveValidator(meta.TargetType)
		if !ok {
			continue
		}

		valid, msg, callErr := invokeValidator(validator, e, value, meta)
		if callErr != nil {
			// Spec §7: a validator that throws is itself an error tied
			// to the field's dotted path, accumulated like any other
			// semantic failure — never fatal to the whole Validate call.
			errs = append(errs, FieldError{
				Path:    dottedPath(meta.ValuePath()),
				Message: (&ValidatorError{Path: dottedPath(meta.ValuePath()), Err: callErr}).Error(),
			})
			continue
		}
		if !valid {
			errs = append(errs, FieldError{Path: dottedPath(meta.ValuePath()), Message: msg})
		}
	}

	if len(errs) > 0 {
		return &ValidationReport{Valid: false, Errors: errs}, nil
	}
	return &ValidationReport{Valid: true}, nil
}

func invokeValidator(fn ValidatorFunc, eng *Engine, value any, meta FieldMetadata) (ok bool, msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panicked: %v", r)
		}
	}()
	ok, msg = fn(eng, value, meta)
	return
}
