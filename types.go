package schemaengine

// TargetType is the engine's normalized name for a class of field
// semantics. It controls which builder (C1) and validator (C2) apply.
type TargetType string

// Closed set of target types recognized by the default builder library.
const (
	TypeString         TargetType = "string"
	TypeInteger        TargetType = "integer"
	TypeNumber         TargetType = "number"
	TypeBoolean        TargetType = "boolean"
	TypePositiveInteger TargetType = "positive_integer"
	TypePositiveNumber  TargetType = "positive_number"
	TypePercent        TargetType = "percent"
	TypeCurrency       TargetType = "currency"
	TypeDate           TargetType = "date"
	TypeDateTime       TargetType = "datetime"
	TypeSingleSelect   TargetType = "single_select"
	TypeMultipleSelect TargetType = "multiple_select"
	TypeArray          TargetType = "array"
	TypeObject         TargetType = "object"
	TypeObjectArray    TargetType = "object_array"
	TypeInstructions   TargetType = "instructions"
	TypeSkip           TargetType = "skip"
)

// JSONSchemaDefaultFormatterSet is the name of the reverse formatter set
// used when a caller does not request one explicitly.
const JSONSchemaDefaultFormatterSet = "pcc-ui"

// MetaTypeConstraint describes how one external field type maps to a
// target type, and where to find its options if it needs any.
type MetaTypeConstraint struct {
	TargetType       TargetType `json:"target_type"`
	RequiresOptions  bool       `json:"requires_options"`
	OptionsField     string     `json:"options_field,omitempty"`
	OptionsExtractor string     `json:"options_extractor,omitempty"`
}

// MetaValidation enumerates which external field types are recognized at
// a properties level, and how each maps to a target type.
type MetaValidation struct {
	AllowedTypes    []string                      `json:"allowed_types"`
	IgnoredTypes    []string                      `json:"ignored_types,omitempty"`
	TypeConstraints map[string]MetaTypeConstraint `json:"type_constraints"`
}

// MetaProperty describes how to read one terminal property descriptor out
// of an external schema document.
type MetaProperty struct {
	Key        string          `json:"key"`
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name"`
	Title      string          `json:"title,omitempty"`
	Type       string          `json:"type"`
	Options    string          `json:"options,omitempty"`
	Validation *MetaValidation `json:"validation,omitempty"`
}

// MetaProperties describes a terminal properties block: the name of the
// array field holding properties, and how to read each one.
type MetaProperties struct {
	PropertiesName string       `json:"properties_name"`
	Property       MetaProperty `json:"property"`
}

// MetaObject describes one item of a container array: the fields that
// name and key it, and what comes next (another container, or terminal
// properties).
type MetaObject struct {
	Name       string          `json:"name,omitempty"`
	Key        string          `json:"key"`
	Title      string          `json:"title,omitempty"`
	Container  *MetaContainer  `json:"container,omitempty"`
	Properties *MetaProperties `json:"properties,omitempty"`
}

// MetaContainer describes one nesting level of an external document tree:
// an array field, and the shape of each of its items.
type MetaContainer struct {
	ContainerName string     `json:"container_name"`
	ContainerType string     `json:"container_type,omitempty"`
	Object        MetaObject `json:"object"`
}

// MetaSchema is a description of how to read an external schema document.
// Exactly one of Properties (flat documents) or Container (nested
// documents) must be set.
type MetaSchema struct {
	SchemaName    string          `json:"schema_name"`
	SchemaID      string          `json:"schema_id,omitempty"`
	SchemaVersion string          `json:"schema_version,omitempty"`
	Properties    *MetaProperties `json:"properties,omitempty"`
	Container     *MetaContainer  `json:"container,omitempty"`
}

// FieldMetadata is one per-field record derived from an external schema,
// the canonical basis for validation and reverse mapping.
type FieldMetadata struct {
	Key                string
	ID                 string
	Name               string
	Title              string
	LevelKeys          []string
	TargetType         TargetType
	OriginalSchemaType string
	FieldSchema        map[string]any
	PropertyKey        string
	// OptionsField names the key inside FieldSchema holding the raw
	// options blob, when this field's type constraint required options
	// (empty otherwise). Reverse formatters that must resolve a model's
	// selected option text back to its original external value (e.g.
	// PCC's responseValue) read FieldSchema[OptionsField].
	OptionsField string
}

// ValuePath returns the path used to locate this field's value inside a
// filled response document: level keys, then the JSON-Schema property key.
func (f FieldMetadata) ValuePath() []string {
	path := make([]string, 0, len(f.LevelKeys)+1)
	path = append(path, f.LevelKeys...)
	path = append(path, f.PropertyKey)
	return path
}

// TableRecord is the bounded store's per-table entry: the external schema
// as registered, the generated JSON Schema, the ordered field index, and
// per-container item counts.
type TableRecord struct {
	TableID             int
	TableName           string
	ExternalSchema      map[string]any
	JSONSchema          map[string]any
	FieldIndex          []FieldMetadata
	ContainerItemCounts map[string]int
}

// FieldDescriptor is one reverse-mapped output unit: a rewritten external
// field plus enough bookkeeping to pack it into the caller's chosen shape.
type FieldDescriptor struct {
	Key        string
	Type       string
	HTMLType   string
	Value      any
	StorageKey string
	DisplayKey string
	Extra      map[string]any
}

// BuilderResult is what a property-schema builder (C1) returns.
type BuilderResult struct {
	// Skip signals the field should vanish from both the generated JSON
	// Schema and the field index (Go's explicit analogue of a builder
	// returning an empty mapping).
	Skip bool
	// PropertyKey overrides the JSON-Schema property name for this
	// field without changing its external key (used by "instructions").
	PropertyKey string
	Schema      map[string]any
}

// BuilderFunc produces one JSON Schema node for a target type.
type BuilderFunc func(eng *Engine, targetType TargetType, enumValues []string, nullable bool,
	propertyDef MetaProperty, fieldSchema map[string]any) BuilderResult

// ValidatorFunc is a semantic validator invoked after structural
// validation succeeds for one non-null field value.
type ValidatorFunc func(eng *Engine, value any, meta FieldMetadata) (ok bool, errMsg string)

// FormatterFunc rewrites one model-produced field value into zero or more
// external-field descriptors.
type FormatterFunc func(eng *Engine, meta FieldMetadata, value any, tableName string) ([]FieldDescriptor, error)

// OptionsExtractorFunc converts a raw external "options" blob into an
// ordered list of enum strings.
type OptionsExtractorFunc func(raw any) ([]string, error)

// ReverseMapOptions configures one ReverseMap call.
type ReverseMapOptions struct {
	// FormatterSet names the registered reverse-formatter set to use.
	// Defaults to JSONSchemaDefaultFormatterSet.
	FormatterSet string
	// GroupByContainerLevel selects which level-key segment (0-indexed)
	// groups descriptors into containers. Defaults to 0 (outermost).
	GroupByContainerLevel int
	// PropertiesKey names the innermost properties container in the
	// output. Defaults to "fields".
	PropertiesKey string
	// PackPropertiesAsObject packs each group's descriptors into a
	// keyed object instead of an ordered array.
	PackPropertiesAsObject bool
	// PackContainersAsArray packs containers into an ordered array
	// instead of an object keyed by container display key.
	PackContainersAsArray bool
	// MetadataSchemaNameField overrides the header key carrying the
	// table's external name. Defaults to "schema_name".
	MetadataSchemaNameField string
	// MetadataSchemaIDField overrides the header key carrying the
	// table's external id. Defaults to "schema_id".
	MetadataSchemaIDField string
	// MetadataSchemaTypeField/-Value annotate the header with a fixed
	// schema-type marker, e.g. {"doc_type", "pcc_assessment"}.
	MetadataSchemaTypeField string
	MetadataSchemaTypeValue string
	// SectionStateDefault overrides the per-section "state" value. When
	// left empty and the output is grouped into sections (container
	// grouping produced more than the single flattened group), each
	// section defaults to "state": "draft" (spec §4.5 step 7, PCC
	// convention). Formatters have no way to supply a section's state.
	SectionStateDefault string
}

func (o ReverseMapOptions) withDefaults() ReverseMapOptions {
	if o.FormatterSet == "" {
		o.FormatterSet = JSONSchemaDefaultFormatterSet
	}
	if o.PropertiesKey == "" {
		o.PropertiesKey = "fields"
	}
	if o.MetadataSchemaNameField == "" {
		o.MetadataSchemaNameField = "schema_name"
	}
	if o.MetadataSchemaIDField == "" {
		o.MetadataSchemaIDField = "schema_id"
	}
	return o
}
