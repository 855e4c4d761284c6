// Package execctx defines the Execution Context: the fully resolved,
// scanner-ready output document of the core pipeline. The document is a tree
// of ordered structs and slices (not Go maps) so that encoding the same
// compilation twice yields byte-identical output.
package execctx

// FormatVersion identifies the document schema.
const FormatVersion = "1"

// ExecutionContext is the root document handed to the scanner runtime.
type ExecutionContext struct {
	FormatVersion string              `json:"format_version" yaml:"format_version"`
	DocumentID    string              `json:"document_id" yaml:"document_id"`
	Meta          []MetaField         `json:"meta,omitempty" yaml:"meta,omitempty"`
	Variables     []VariableEntry     `json:"resolved_variables" yaml:"resolved_variables"`
	Objects       []ObjectEntry       `json:"resolved_global_objects" yaml:"resolved_global_objects"`
	States        []StateEntry        `json:"resolved_global_states" yaml:"resolved_global_states"`
	Sets          []SetEntry          `json:"resolved_sets,omitempty" yaml:"resolved_sets,omitempty"`
	Deferred      []DeferredOperation `json:"deferred_operations,omitempty" yaml:"deferred_operations,omitempty"`
	Criteria      []*CriteriaNode     `json:"criteria" yaml:"criteria"`
	Stats         ProcessingStats     `json:"processing_stats" yaml:"processing_stats"`
}

// MetaField is one metadata key-value pair in declaration order.
type MetaField struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Value is a fully resolved value: a type name plus the concrete value. No
// variable-reference placeholders survive into the document; deferred RUN
// results are explicit sentinels, never implicit.
type Value struct {
	Type     string `json:"type" yaml:"type"`
	Value    any    `json:"value" yaml:"value"`
	Deferred bool   `json:"deferred,omitempty" yaml:"deferred,omitempty"`
}

// VariableEntry pairs a variable name with its resolved value, in source
// declaration order.
type VariableEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value Value  `json:"value" yaml:"value"`
}

// StateEntry pairs a state id with its resolved state.
type StateEntry struct {
	ID    string         `json:"id" yaml:"id"`
	State *ResolvedState `json:"state" yaml:"state"`
}

// ObjectEntry pairs an object id with its resolved object.
type ObjectEntry struct {
	ID     string          `json:"id" yaml:"id"`
	Object *ResolvedObject `json:"object" yaml:"object"`
}

// SetEntry records a resolved set operation for audit and debugging; the
// criteria tree itself no longer references sets after expansion.
type SetEntry struct {
	ID        string   `json:"id" yaml:"id"`
	Operation string   `json:"operation" yaml:"operation"`
	Members   []string `json:"members" yaml:"members"`
	Filter    *Filter  `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// ResolvedState is a state with every value substituted.
type ResolvedState struct {
	Fields       []ResolvedStateField  `json:"fields" yaml:"fields"`
	RecordChecks []ResolvedRecordCheck `json:"record_checks,omitempty" yaml:"record_checks,omitempty"`
}

// ResolvedStateField is one fully typed assertion.
type ResolvedStateField struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Op          string `json:"op" yaml:"op"`
	Value       Value  `json:"value" yaml:"value"`
	EntityCheck string `json:"entity_check,omitempty" yaml:"entity_check,omitempty"`
}

// ResolvedRecordCheck mirrors the record check structure with substituted
// values.
type ResolvedRecordCheck struct {
	Type   string                `json:"type,omitempty" yaml:"type,omitempty"`
	Op     string                `json:"op,omitempty" yaml:"op,omitempty"`
	Value  *Value                `json:"value,omitempty" yaml:"value,omitempty"`
	Fields []ResolvedRecordField `json:"fields,omitempty" yaml:"fields,omitempty"`
	Nested []ResolvedRecordCheck `json:"nested,omitempty" yaml:"nested,omitempty"`
}

// ResolvedRecordField is one record field assertion with substituted value.
type ResolvedRecordField struct {
	Path        string `json:"path" yaml:"path"`
	Type        string `json:"type" yaml:"type"`
	Op          string `json:"op" yaml:"op"`
	Value       Value  `json:"value" yaml:"value"`
	EntityCheck string `json:"entity_check,omitempty" yaml:"entity_check,omitempty"`
}

// ResolvedObject is an object with every value substituted. Behavior flags
// pass through as opaque names; module bindings and parameter/select groups
// keep their structure for the scanner's CTN contract.
type ResolvedObject struct {
	Fields     []ResolvedObjectField `json:"fields,omitempty" yaml:"fields,omitempty"`
	Module     []ModuleBinding       `json:"module,omitempty" yaml:"module,omitempty"`
	Parameters []ResolvedObjectField `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Select     []ResolvedObjectField `json:"select,omitempty" yaml:"select,omitempty"`
	Behaviors  []string              `json:"behaviors,omitempty" yaml:"behaviors,omitempty"`
	Filters    []Filter              `json:"filters,omitempty" yaml:"filters,omitempty"`
	SetRefs    []string              `json:"set_refs,omitempty" yaml:"set_refs,omitempty"`
	Records    []ResolvedRecordCheck `json:"record_checks,omitempty" yaml:"record_checks,omitempty"`
}

// ResolvedObjectField is one object field with its substituted value.
type ResolvedObjectField struct {
	Name  string `json:"name" yaml:"name"`
	Value Value  `json:"value" yaml:"value"`
}

// ModuleBinding is one module_* line of an object.
type ModuleBinding struct {
	Field string `json:"field" yaml:"field"`
	Value string `json:"value" yaml:"value"`
}

// Filter is a resolved filter annotation: the action verbatim (include or
// exclude; the compiler does not interpret the verb) plus the gating states.
type Filter struct {
	Action string   `json:"action" yaml:"action"`
	States []string `json:"states" yaml:"states"`
}

// CriteriaNode is one node of the criteria forest: either a logical block or
// a leaf criterion.
type CriteriaNode struct {
	Kind      string          `json:"kind" yaml:"kind"` // "criteria" or "criterion"
	LogicalOp string          `json:"logical_op,omitempty" yaml:"logical_op,omitempty"`
	Negate    bool            `json:"negate,omitempty" yaml:"negate,omitempty"`
	Children  []*CriteriaNode `json:"children,omitempty" yaml:"children,omitempty"`
	Criterion *Criterion      `json:"criterion,omitempty" yaml:"criterion,omitempty"`
}

// Criterion is an executable CTN: set references are expanded away and every
// object reference is a concrete object identifier.
type Criterion struct {
	CtnType     string            `json:"ctn_type" yaml:"ctn_type"`
	Test        TestSpecification `json:"test_specification" yaml:"test_specification"`
	StateRefs   []string          `json:"resolved_global_states" yaml:"resolved_global_states"`
	ObjectRefs  []ObjectReference `json:"resolved_global_objects" yaml:"resolved_global_objects"`
	LocalStates []*ResolvedState  `json:"local_states,omitempty" yaml:"local_states,omitempty"`
	LocalObject *ResolvedObject   `json:"local_object,omitempty" yaml:"local_object,omitempty"`
}

// TestSpecification is the resolved quantifier triple. StateOp defaults to
// AND when the source omits it.
type TestSpecification struct {
	Existence string `json:"existence" yaml:"existence"`
	Item      string `json:"item" yaml:"item"`
	StateOp   string `json:"state_op" yaml:"state_op"`
}

// ObjectReference is one concrete, deduplicated object reference with any
// filter annotations attached by set expansion.
type ObjectReference struct {
	ObjectID string   `json:"object_id" yaml:"object_id"`
	Filters  []Filter `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// DeferredOperation is a RUN that needs collected data. The scanner runtime
// evaluates it post-collection and fills the target variable in.
type DeferredOperation struct {
	Target    string          `json:"target" yaml:"target"`
	Operation string          `json:"operation" yaml:"operation"`
	Params    []DeferredParam `json:"params" yaml:"params"`
}

// DeferredParam is one serialized RUN parameter.
type DeferredParam struct {
	Kind     string `json:"kind" yaml:"kind"`
	Value    *Value `json:"value,omitempty" yaml:"value,omitempty"`
	Variable string `json:"variable,omitempty" yaml:"variable,omitempty"`
	ObjectID string `json:"object_id,omitempty" yaml:"object_id,omitempty"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
	Number   *int64 `json:"number,omitempty" yaml:"number,omitempty"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
}

// ProcessingStats summarizes the compilation.
type ProcessingStats struct {
	TokenCount  int   `json:"token_count" yaml:"token_count"`
	SymbolCount int   `json:"symbol_count" yaml:"symbol_count"`
	DurationMS  int64 `json:"duration_ms" yaml:"duration_ms"`
	FileSize    int64 `json:"file_size" yaml:"file_size"`
}
