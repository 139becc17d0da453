package schemaengine

import (
	"log"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// MaxTablesPerEngine is the hard cap on simultaneously-registered tables
// per engine instance (spec §3 invariants, §6.6).
const MaxTablesPerEngine = 1000

// overlay is the default+instance lookup pattern used by the builder,
// validator and options-extractor registries (spec §9 "Registries as
// global+instance overlay"): an instance-local map is consulted first,
// falling back to a process-wide default map. The formatter registry is a
// plain map of formatter sets instead.
type overlay[V any] struct {
	mu       sync.RWMutex
	defaults map[string]V
	instance map[string]V
}

func newOverlay[V any]() *overlay[V] {
	return &overlay[V]{defaults: make(map[string]V), instance: make(map[string]V)}
}

func (o *overlay[V]) setDefault(key string, v V) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.defaults[key] = v
}

func (o *overlay[V]) setInstance(key string, v V) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.instance[key] = v
}

// get returns the instance override if present, else the default, else
// the zero value and false.
func (o *overlay[V]) get(key string) (V, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.instance[key]; ok {
		return v, true
	}
	v, ok := o.defaults[key]
	return v, ok
}

// isInstanceOverride reports whether key resolves via the instance map
// specifically. Instance and default builders/validators share one
// calling convention, so nothing in the engine currently calls it.
func (o *overlay[V]) isInstanceOverride(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.instance[key]
	return ok
}

// Process-wide default registries (C1-C4), populated at init() time by
// builders.go, validators.go, formatters.go, optionsextractors.go, and
// extendable by callers via RegisterDefaultBuilder et al.
var (
	defaultBuilders   = newOverlay[BuilderFunc]()
	defaultValidators = newOverlay[ValidatorFunc]()
	defaultExtractors = newOverlay[OptionsExtractorFunc]()
	// formatterSets maps formatter-set name -> original external type
	// -> FormatterFunc, as plain process-wide maps rather than an
	// overlay. Formatter sets have no per-engine override the way
	// builders/validators do, since a formatter set is itself the unit
	// of customization (callers register a whole new set name).
	formatterSetsMu sync.RWMutex
	formatterSets   = map[string]map[string]FormatterFunc{}
)

// RegisterDefaultBuilder adds (or replaces) a process-wide default
// property-schema builder for a target type. Intended for use by
// integrations that want to extend the engine's target-type vocabulary
// globally, as opposed to Engine.RegisterSchemaFieldBuilder which is
// scoped to one engine instance.
func RegisterDefaultBuilder(targetType TargetType, fn BuilderFunc) {
	defaultBuilders.setDefault(string(targetType), fn)
}

// RegisterDefaultValidator adds (or replaces) a process-wide default
// semantic validator for a target type.
func RegisterDefaultValidator(targetType TargetType, fn ValidatorFunc) {
	defaultValidators.setDefault(string(targetType), fn)
}

// RegisterDefaultOptionsExtractor adds (or replaces) a process-wide
// default options extractor under a name referenced from meta-schema
// type_constraints.
func RegisterDefaultOptionsExtractor(name string, fn OptionsExtractorFunc) {
	defaultExtractors.setDefault(name, fn)
}

// RegisterDefaultFormatter adds (or replaces) the reverse formatter for
// (formatterSet, originalExternalType) in the process-wide formatter
// library.
func RegisterDefaultFormatter(formatterSet, originalType string, fn FormatterFunc) {
	formatterSetsMu.Lock()
	defer formatterSetsMu.Unlock()
	set, ok := formatterSets[formatterSet]
	if !ok {
		set = map[string]FormatterFunc{}
		formatterSets[formatterSet] = set
	}
	set[originalType] = fn
}

func lookupFormatter(formatterSet, originalType string) (FormatterFunc, bool) {
	formatterSetsMu.RLock()
	defer formatterSetsMu.RUnlock()
	set, ok := formatterSets[formatterSet]
	if !ok {
		return nil, false
	}
	fn, ok := set[originalType]
	return fn, ok
}

// Engine is one schema-conversion engine instance for a single external
// meta-language. It owns four overlay registries (C1-C4), a bounded
// table store (C7), and nothing else: it performs no I/O and owns no
// background tasks (spec §5).
type Engine struct {
	mu sync.RWMutex

	meta *MetaSchema

	instanceBuilders   *overlay[BuilderFunc]
	instanceValidators *overlay[ValidatorFunc]
	optionsExtractors  *overlay[OptionsExtractorFunc]

	tables          map[int]*TableRecord
	tableNames      map[string]int
	lastAllocatedID int

	compiler        *jsonschema.Compiler
	compiledSchemas map[int]*jsonschema.Schema
}

// NewEngine constructs a schema-conversion engine for one external
// meta-language. The meta-schema is structurally validated immediately;
// construction fails atomically (spec §4.1 — "there is no partial
// construction").
func NewEngine(meta MetaSchema) (*Engine, error) {
	if err := validateMetaSchema(&meta); err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	return &Engine{
		meta:               &meta,
		instanceBuilders:   newOverlay[BuilderFunc](),
		instanceValidators: newOverlay[ValidatorFunc](),
		optionsExtractors:  newOverlay[OptionsExtractorFunc](),
		tables:             make(map[int]*TableRecord),
		tableNames:         make(map[string]int),
		compiler:           compiler,
		compiledSchemas:    make(map[int]*jsonschema.Schema),
	}, nil
}

// RegisterSchemaFieldBuilder registers an instance-local property-schema
// builder for a target type, overriding the process-wide default for
// this engine instance only.
func (e *Engine) RegisterSchemaFieldBuilder(targetType TargetType, fn BuilderFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instanceBuilders.setInstance(string(targetType), fn)
}

// RegisterValidator registers an instance-local semantic validator for a
// target type, overriding the process-wide default for this engine
// instance only.
func (e *Engine) RegisterValidator(targetType TargetType, fn ValidatorFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instanceValidators.setInstance(string(targetType), fn)
}

// RegisterOptionsExtractor registers an instance-local options extractor
// under a name referenced from this engine's meta-schema
// type_constraints.
func (e *Engine) RegisterOptionsExtractor(name string, fn OptionsExtractorFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.optionsExtractors.setInstance(name, fn)
}

func (e *Engine) resolveBuilder(targetType TargetType) (BuilderFunc, bool) {
	if fn, ok := e.instanceBuilders.get(string(targetType)); ok {
		return fn, true
	}
	return defaultBuilders.get(string(targetType))
}

func (e *Engine) resolveValidator(targetType TargetType) (ValidatorFunc, bool) {
	if fn, ok := e.instanceValidators.get(string(targetType)); ok {
		return fn, true
	}
	return defaultValidators.get(string(targetType))
}

func (e *Engine) resolveOptionsExtractor(name string) (OptionsExtractorFunc, bool) {
	if fn, ok := e.optionsExtractors.get(name); ok {
		return fn, true
	}
	return defaultExtractors.get(name)
}

// logFormatterFailure reports a reverse-mapping formatter failure that
// the caller is not going to see returned as an error (spec §7: "logged
// and the offending field is omitted; reverse mapping continues").
func (e *Engine) logFormatterFailure(err error) {
	log.Printf("formschemagen: %v", err)
}

// logReregistration reports a table re-registration at the info level
// (spec §4.6 "re-registration is permitted, logs an info message").
func logReregistration(oldID, newID int, tableName string) {
	log.Printf("formschemagen: re-registering table %q: id %d replaced by %d", tableName, oldID, newID)
}
