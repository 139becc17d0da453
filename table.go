package schemaengine

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/kaptinlin/jsonschema"
)

// Register converts an external schema document into a JSON Schema and
// field index, compiles the JSON Schema, and stores the result under a
// freshly allocated table id (C7, spec §4.6 "table registry"). It is
// equivalent to RegisterWithID(nil, external) — the "register(id_or_nil,
// ...)" form of spec.md §4.6 with id omitted.
func (e *Engine) Register(external map[string]any) (int, error) {
	return e.RegisterWithID(nil, external)
}

// RegisterWithID converts an external schema document into a JSON Schema
// and field index, compiles the JSON Schema, and stores the result under
// the given table id (C7, spec §4.6 "register(id_or_nil, external_schema)
// -> (id, name)"). When id is nil, the engine allocates the smallest id
// strictly greater than its high-water mark (spec §3 invariants, testable
// property 7). When id names a table id already in use — whether
// auto-allocated earlier or assigned manually — that entry is replaced in
// full: conversion is re-run, the old name->id mapping is dropped, and the
// new record installed (testable property 6). A name collision against a
// *different* id is resolved the same way: the prior holder of that name
// is retired so names stay unique per spec §3. Re-registering an id that
// is already occupied never counts against the 1000-table cap; only a
// genuinely new slot does (testable property 8).
func (e *Engine) RegisterWithID(id *int, external map[string]any) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tableName, _ := stringField(external, e.meta.SchemaName)
	if tableName == "" {
		tableName = "Unknown Table"
	}

	jsonSchema, fieldIndex, containerCounts, err := buildTableSchema(e, e.meta, external)
	if err != nil {
		return 0, err
	}

	schemaBytes, err := json.Marshal(jsonSchema)
	if err != nil {
		return 0, &RegistrationError{Msg: fmt.Sprintf("marshal generated schema: %s", err)}
	}
	compiled, err := e.compiler.Compile(schemaBytes)
	if err != nil {
		return 0, &RegistrationError{Msg: fmt.Sprintf("compile generated schema: %s", err)}
	}

	var targetID int
	if id != nil {
		if *id <= 0 {
			return 0, &RegistrationError{Msg: "table id must be a positive integer"}
		}
		targetID = *id
	} else {
		targetID = e.lastAllocatedID + 1
	}

	_, isNewSlot := e.tables[targetID]
	isNewSlot = !isNewSlot

	if oldID, ok := e.tableNames[tableName]; ok && oldID != targetID {
		logReregistration(oldID, targetID, tableName)
		delete(e.tables, oldID)
		delete(e.compiledSchemas, oldID)
		delete(e.tableNames, tableName)
	}

	if old, ok := e.tables[targetID]; ok {
		if old.TableName != tableName {
			delete(e.tableNames, old.TableName)
		} else {
			logReregistration(targetID, targetID, tableName)
		}
	}

	if isNewSlot && len(e.tables) >= MaxTablesPerEngine {
		return 0, &RegistrationError{Msg: fmt.Sprintf("engine already holds the maximum of %d tables", MaxTablesPerEngine)}
	}

	if targetID > e.lastAllocatedID {
		e.lastAllocatedID = targetID
	}

	e.tables[targetID] = &TableRecord{
		TableID:             targetID,
		TableName:           tableName,
		ExternalSchema:      external,
		JSONSchema:          jsonSchema,
		FieldIndex:          fieldIndex,
		ContainerItemCounts: containerCounts,
	}
	e.tableNames[tableName] = targetID
	e.compiledSchemas[targetID] = compiled

	return targetID, nil
}

// resolveLocked looks up a table by either its int id or its string name.
// Callers must hold e.mu.
func (e *Engine) resolveLocked(identifier any) (*TableRecord, error) {
	switch v := identifier.(type) {
	case int:
		rec, ok := e.tables[v]
		if !ok {
			return nil, &UnknownTableError{Identifier: fmt.Sprintf("%d", v)}
		}
		return rec, nil
	case string:
		id, ok := e.tableNames[v]
		if !ok {
			return nil, &UnknownTableError{Identifier: v}
		}
		return e.tables[id], nil
	default:
		return nil, &UnknownTableError{Identifier: fmt.Sprintf("%v", identifier)}
	}
}

// Resolve returns a copy of the registered table record for identifier (an
// int table id or a string table name).
func (e *Engine) Resolve(identifier any) (TableRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.resolveLocked(identifier)
	if err != nil {
		return TableRecord{}, err
	}
	return *rec, nil
}

// Unregister removes a table from the store. Automatic allocation never
// hands its id out again; RegisterWithID may reuse it explicitly.
func (e *Engine) Unregister(identifier any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.resolveLocked(identifier)
	if err != nil {
		return err
	}
	delete(e.tables, rec.TableID)
	delete(e.compiledSchemas, rec.TableID)
	delete(e.tableNames, rec.TableName)
	return nil
}

// ListIDs returns every currently-registered table id, unordered.
func (e *Engine) ListIDs() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]int, 0, len(e.tables))
	for id := range e.tables {
		ids = append(ids, id)
	}
	return ids
}

// ListInfo returns a copy of every currently-registered table record.
func (e *Engine) ListInfo() []TableRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]TableRecord, 0, len(e.tables))
	for _, rec := range e.tables {
		out = append(out, *rec)
	}
	return out
}

// GetJSONSchema returns the generated JSON Schema for a registered table.
func (e *Engine) GetJSONSchema(identifier any) (map[string]any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.resolveLocked(identifier)
	if err != nil {
		return nil, err
	}
	return rec.JSONSchema, nil
}

// GetFieldMetadata returns the ordered field index for a registered table.
func (e *Engine) GetFieldMetadata(identifier any) ([]FieldMetadata, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.resolveLocked(identifier)
	if err != nil {
		return nil, err
	}
	return rec.FieldIndex, nil
}

// GetContainerCount returns the recorded non-dropped item count for a
// container name inside a registered table.
func (e *Engine) GetContainerCount(identifier any, containerName string) (int, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.resolveLocked(identifier)
	if err != nil {
		return 0, false, err
	}
	n, ok := rec.ContainerItemCounts[containerName]
	return n, ok, nil
}

// Clear removes every registered table. Id allocation remains monotonic:
// the next Register call still allocates beyond the highest id ever used.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables = make(map[int]*TableRecord)
	e.tableNames = make(map[string]int)
	e.compiledSchemas = make(map[int]*jsonschema.Schema)
}

// EnrichSchema overlays pre-resolved descriptive text onto a registered
// table's generated JSON Schema, keyed by field metadata key (spec §4.6
// "EnrichSchema"). Lookup tries the exact field key first and, should
// that miss and keyPrefix be non-empty, retries with keyPrefix applied
// ("{keyPrefix}_{key}") — the Go-engine-side equivalent of the Python
// enrich_assessment_from_csv's key_prefix convention (default "Cust"),
// which prefixes CSV-sourced enrichment keys before handing them to the
// engine. Returns every enrichments key that matched no field in this
// table, so callers can report unused CSV rows (spec §4.6 "Unknown keys
// are returned as a list").
func (e *Engine) EnrichSchema(identifier any, enrichments map[string]string, keyPrefix string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.resolveLocked(identifier)
	if err != nil {
		return nil, err
	}

	consumed := make(map[string]bool, len(enrichments))

	for _, meta := range rec.FieldIndex {
		text, matchedKey, ok := lookupEnrichmentWithPrefix(enrichments, meta.Key, keyPrefix)
		if !ok {
			continue
		}
		node, ok := schemaNodeAt(rec.JSONSchema, meta)
		if !ok {
			continue
		}
		node["description"] = text
		consumed[matchedKey] = true
	}

	unknown := make([]string, 0, len(enrichments)-len(consumed))
	for k := range enrichments {
		if !consumed[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// lookupEnrichmentWithPrefix tries key as given, then — when keyPrefix
// is non-empty and key does not already carry it — "{keyPrefix}_{key}".
// Returns the enrichments key that actually matched, so the caller can
// mark it consumed.
func lookupEnrichmentWithPrefix(enrichments map[string]string, key, keyPrefix string) (text string, matchedKey string, ok bool) {
	if v, found := enrichments[key]; found {
		return v, key, true
	}
	if keyPrefix == "" {
		return "", "", false
	}
	prefixed := key
	if !strings.HasPrefix(key, keyPrefix+"_") {
		prefixed = keyPrefix + "_" + key
	}
	if v, found := enrichments[prefixed]; found {
		return v, prefixed, true
	}
	return "", "", false
}

// schemaNodeAt walks a table's JSON Schema down meta's value path and
// returns the terminal schema node map, so callers can annotate it.
func schemaNodeAt(schema map[string]any, meta FieldMetadata) (map[string]any, bool) {
	cur := schema
	for _, segment := range meta.ValuePath() {
		props, ok := cur["properties"].(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := props[segment].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
