package ast

// DataType is the closed set of ESP data types.
type DataType int

const (
	TypeString DataType = iota
	TypeInt
	TypeFloat
	TypeBoolean
	TypeBinary
	TypeVersion
	TypeEvrString
	TypeRecord
)

// ParseDataType parses a data type name (exact match, case-sensitive).
// The historical spelling "record_data" is accepted and normalized to record.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "string":
		return TypeString, true
	case "int":
		return TypeInt, true
	case "float":
		return TypeFloat, true
	case "boolean":
		return TypeBoolean, true
	case "binary":
		return TypeBinary, true
	case "version":
		return TypeVersion, true
	case "evr_string":
		return TypeEvrString, true
	case "record", "record_data":
		return TypeRecord, true
	}
	return TypeString, false
}

// String returns the type name as it appears in ESP source.
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeBinary:
		return "binary"
	case TypeVersion:
		return "version"
	case TypeEvrString:
		return "evr_string"
	case TypeRecord:
		return "record"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the type is int or float.
func (t DataType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// IsOrdered reports whether ordering comparisons are type-legal.
func (t DataType) IsOrdered() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeVersion, TypeEvrString:
		return true
	}
	return false
}

// Operation is the closed set of field operations.
type Operation int

const (
	// Comparison
	OpEquals Operation = iota
	OpNotEqual
	OpGreaterThan
	OpLessThan
	OpGreaterEqual
	OpLessEqual
	// String
	OpCaseInsensitiveEquals
	OpCaseInsensitiveNotEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpNotStartsWith
	OpEndsWith
	OpNotEndsWith
	// Pattern
	OpPatternMatch
	OpMatches
	// Collection
	OpSubsetOf
	OpSupersetOf
)

// ParseOperation parses an operation from its source form.
func ParseOperation(s string) (Operation, bool) {
	switch s {
	case "=":
		return OpEquals, true
	case "!=":
		return OpNotEqual, true
	case ">":
		return OpGreaterThan, true
	case "<":
		return OpLessThan, true
	case ">=":
		return OpGreaterEqual, true
	case "<=":
		return OpLessEqual, true
	case "ieq":
		return OpCaseInsensitiveEquals, true
	case "ine":
		return OpCaseInsensitiveNotEqual, true
	case "contains":
		return OpContains, true
	case "not_contains":
		return OpNotContains, true
	case "starts":
		return OpStartsWith, true
	case "not_starts":
		return OpNotStartsWith, true
	case "ends":
		return OpEndsWith, true
	case "not_ends":
		return OpNotEndsWith, true
	case "pattern_match":
		return OpPatternMatch, true
	case "matches":
		return OpMatches, true
	case "subset_of":
		return OpSubsetOf, true
	case "superset_of":
		return OpSupersetOf, true
	}
	return OpEquals, false
}

// String returns the operation as it appears in ESP source.
func (o Operation) String() string {
	switch o {
	case OpEquals:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpLessThan:
		return "<"
	case OpGreaterEqual:
		return ">="
	case OpLessEqual:
		return "<="
	case OpCaseInsensitiveEquals:
		return "ieq"
	case OpCaseInsensitiveNotEqual:
		return "ine"
	case OpContains:
		return "contains"
	case OpNotContains:
		return "not_contains"
	case OpStartsWith:
		return "starts"
	case OpNotStartsWith:
		return "not_starts"
	case OpEndsWith:
		return "ends"
	case OpNotEndsWith:
		return "not_ends"
	case OpPatternMatch:
		return "pattern_match"
	case OpMatches:
		return "matches"
	case OpSubsetOf:
		return "subset_of"
	case OpSupersetOf:
		return "superset_of"
	default:
		return "unknown"
	}
}

// IsCollection reports whether the operation requires a collection-valued
// right-hand side.
func (o Operation) IsCollection() bool {
	return o == OpSubsetOf || o == OpSupersetOf
}

// LogicalOp combines criteria blocks.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// ParseLogicalOp parses AND/OR (case-sensitive, uppercase).
func ParseLogicalOp(s string) (LogicalOp, bool) {
	switch s {
	case "AND":
		return LogicalAnd, true
	case "OR":
		return LogicalOr, true
	}
	return LogicalAnd, false
}

func (o LogicalOp) String() string {
	if o == LogicalOr {
		return "OR"
	}
	return "AND"
}

// StateJoinOp combines multiple state references inside one TEST.
type StateJoinOp int

const (
	StateJoinAnd StateJoinOp = iota
	StateJoinOr
	StateJoinOne
)

// ParseStateJoinOp parses AND/OR/ONE.
func ParseStateJoinOp(s string) (StateJoinOp, bool) {
	switch s {
	case "AND":
		return StateJoinAnd, true
	case "OR":
		return StateJoinOr, true
	case "ONE":
		return StateJoinOne, true
	}
	return StateJoinAnd, false
}

func (o StateJoinOp) String() string {
	switch o {
	case StateJoinOr:
		return "OR"
	case StateJoinOne:
		return "ONE"
	default:
		return "AND"
	}
}

// ExistenceCheck is the first component of a TEST specification.
type ExistenceCheck int

const (
	ExistAny ExistenceCheck = iota
	ExistAll
	ExistNone
	ExistAtLeastOne
	ExistOnlyOne
)

// ParseExistenceCheck parses an existence check word.
func ParseExistenceCheck(s string) (ExistenceCheck, bool) {
	switch s {
	case "any":
		return ExistAny, true
	case "all":
		return ExistAll, true
	case "none":
		return ExistNone, true
	case "at_least_one":
		return ExistAtLeastOne, true
	case "only_one":
		return ExistOnlyOne, true
	}
	return ExistAny, false
}

func (e ExistenceCheck) String() string {
	switch e {
	case ExistAny:
		return "any"
	case ExistAll:
		return "all"
	case ExistNone:
		return "none"
	case ExistAtLeastOne:
		return "at_least_one"
	case ExistOnlyOne:
		return "only_one"
	default:
		return "any"
	}
}

// ItemCheck is the second component of a TEST specification.
type ItemCheck int

const (
	ItemAll ItemCheck = iota
	ItemAtLeastOne
	ItemOnlyOne
	ItemNoneSatisfy
)

// ParseItemCheck parses an item check word.
func ParseItemCheck(s string) (ItemCheck, bool) {
	switch s {
	case "all":
		return ItemAll, true
	case "at_least_one":
		return ItemAtLeastOne, true
	case "only_one":
		return ItemOnlyOne, true
	case "none_satisfy":
		return ItemNoneSatisfy, true
	}
	return ItemAll, false
}

func (i ItemCheck) String() string {
	switch i {
	case ItemAtLeastOne:
		return "at_least_one"
	case ItemOnlyOne:
		return "only_one"
	case ItemNoneSatisfy:
		return "none_satisfy"
	default:
		return "all"
	}
}

// EntityCheck is the optional trailing quantifier on state fields.
type EntityCheck int

const (
	EntityAll EntityCheck = iota
	EntityAtLeastOne
	EntityNone
	EntityOnlyOne
)

// ParseEntityCheck parses an entity check word.
func ParseEntityCheck(s string) (EntityCheck, bool) {
	switch s {
	case "all":
		return EntityAll, true
	case "at_least_one":
		return EntityAtLeastOne, true
	case "none":
		return EntityNone, true
	case "only_one":
		return EntityOnlyOne, true
	}
	return EntityAll, false
}

func (e EntityCheck) String() string {
	switch e {
	case EntityAtLeastOne:
		return "at_least_one"
	case EntityNone:
		return "none"
	case EntityOnlyOne:
		return "only_one"
	default:
		return "all"
	}
}

// FilterAction is the include/exclude verb of a filter.
type FilterAction int

const (
	FilterInclude FilterAction = iota
	FilterExclude
)

// ParseFilterAction parses include/exclude.
func ParseFilterAction(s string) (FilterAction, bool) {
	switch s {
	case "include":
		return FilterInclude, true
	case "exclude":
		return FilterExclude, true
	}
	return FilterInclude, false
}

func (a FilterAction) String() string {
	if a == FilterExclude {
		return "exclude"
	}
	return "include"
}

// SetOpType is the set-algebra operation of a SET block.
type SetOpType int

const (
	SetUnion SetOpType = iota
	SetIntersection
	SetComplement
)

// ParseSetOpType parses union/intersection/complement.
func ParseSetOpType(s string) (SetOpType, bool) {
	switch s {
	case "union":
		return SetUnion, true
	case "intersection":
		return SetIntersection, true
	case "complement":
		return SetComplement, true
	}
	return SetUnion, false
}

func (t SetOpType) String() string {
	switch t {
	case SetIntersection:
		return "intersection"
	case SetComplement:
		return "complement"
	default:
		return "union"
	}
}

// ValidateOperandCount checks the arity rule for the operation:
// union >= 1, intersection >= 2, complement == 2.
func (t SetOpType) ValidateOperandCount(count int) bool {
	switch t {
	case SetUnion:
		return count >= 1
	case SetIntersection:
		return count >= 2
	case SetComplement:
		return count == 2
	}
	return false
}

// RunOpType is the operation of a RUN block.
type RunOpType int

const (
	RunConcat RunOpType = iota
	RunSplit
	RunSubstring
	RunRegexCapture
	RunArithmetic
	RunCount
	RunUnique
	RunMerge
	RunExtract
	RunEnd
)

// ParseRunOpType parses a runtime operation name (uppercase).
func ParseRunOpType(s string) (RunOpType, bool) {
	switch s {
	case "CONCAT":
		return RunConcat, true
	case "SPLIT":
		return RunSplit, true
	case "SUBSTRING":
		return RunSubstring, true
	case "REGEX_CAPTURE":
		return RunRegexCapture, true
	case "ARITHMETIC":
		return RunArithmetic, true
	case "COUNT":
		return RunCount, true
	case "UNIQUE":
		return RunUnique, true
	case "MERGE":
		return RunMerge, true
	case "EXTRACT":
		return RunExtract, true
	case "END":
		return RunEnd, true
	}
	return RunConcat, false
}

func (t RunOpType) String() string {
	switch t {
	case RunConcat:
		return "CONCAT"
	case RunSplit:
		return "SPLIT"
	case RunSubstring:
		return "SUBSTRING"
	case RunRegexCapture:
		return "REGEX_CAPTURE"
	case RunArithmetic:
		return "ARITHMETIC"
	case RunCount:
		return "COUNT"
	case RunUnique:
		return "UNIQUE"
	case RunMerge:
		return "MERGE"
	case RunExtract:
		return "EXTRACT"
	case RunEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// ArithmeticOp is one operator of an ARITHMETIC chain.
type ArithmeticOp int

const (
	ArithAdd ArithmeticOp = iota
	ArithSubtract
	ArithMultiply
	ArithDivide
	ArithModulo
)

// ParseArithmeticOp parses +, -, *, /, %.
func ParseArithmeticOp(s string) (ArithmeticOp, bool) {
	switch s {
	case "+":
		return ArithAdd, true
	case "-":
		return ArithSubtract, true
	case "*":
		return ArithMultiply, true
	case "/":
		return ArithDivide, true
	case "%":
		return ArithModulo, true
	}
	return ArithAdd, false
}

func (o ArithmeticOp) String() string {
	switch o {
	case ArithSubtract:
		return "-"
	case ArithMultiply:
		return "*"
	case ArithDivide:
		return "/"
	case ArithModulo:
		return "%"
	default:
		return "+"
	}
}
