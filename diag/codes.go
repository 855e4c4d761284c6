package diag

// Code is a stable diagnostic code: a category prefix letter followed by a
// numeric identifier. Error categories occupy fixed numeric ranges so a code
// alone identifies the pipeline stage that produced it.
type Code string

// System errors (E001-E004)
const (
	InternalError  Code = "E001"
	Timeout        Code = "E002"
	MemoryExceeded Code = "E003"
)

// File processing errors (E005-E019)
const (
	FileNotFound     Code = "E005"
	InvalidExtension Code = "E006"
	FileTooLarge     Code = "E007"
	EmptyFile        Code = "E008"
	PermissionDenied Code = "E009"
	InvalidEncoding  Code = "E010"
	IOError          Code = "E011"
	InvalidPath      Code = "E012"
)

// Lexical errors (E020-E039)
const (
	InvalidCharacter   Code = "E020"
	UnterminatedString Code = "E021"
	InvalidNumber      Code = "E022"
	IdentifierTooLong  Code = "E023"
	StringTooLong      Code = "E024"
	ReservedKeyword    Code = "E025"
	CommentTooLong     Code = "E026"
	TokenLimitExceeded Code = "E027"
)

// Syntax errors (E040-E059)
const (
	UnexpectedToken         Code = "E040"
	EmptyTokenStream        Code = "E041"
	UnmatchedBlockDelimiter Code = "E042"
	GrammarViolation        Code = "E043"
	InvalidLiteral          Code = "E044"
	MaxParseDepthExceeded   Code = "E045"
	InvalidOperandCount     Code = "E046"
	TooManySyntaxErrors     Code = "E047"
)

// Symbol errors (E060-E079)
const (
	DuplicateSymbol           Code = "E060"
	MultipleLocalObjects      Code = "E061"
	ReservedKeywordIdentifier Code = "E062"
)

// Reference errors (E080-E099)
const (
	UndefinedReference    Code = "E080"
	ReferenceKindMismatch Code = "E081"
	CircularDependency    Code = "E082"
	InvalidReferenceScope Code = "E083"
	FilterStateNotGlobal  Code = "E084"
)

// Semantic errors (E100-E119)
const (
	TypeIncompatibility    Code = "E100"
	RuntimeOperationError  Code = "E101"
	SetConstraintViolation Code = "E102"
	FilterValidationError  Code = "E103"
)

// Structural errors (E120-E139)
const (
	InvalidBlockOrdering        Code = "E120"
	IncompleteDefinition        Code = "E121"
	EmptyCriteriaBlock          Code = "E122"
	ImplementationLimitExceeded Code = "E123"
)

// Resolution errors share the semantic range: they are late re-checks of the
// same properties (type soundness after substitution, set shape during
// expansion) and keep the codes a consumer already handles.
const (
	ResolutionError     Code = "E110"
	SetExpansionError   Code = "E111"
	DivisionByZero      Code = "E112"
	UnresolvedReference Code = "E113"
)

// Warnings (W...)
const (
	AmbiguousLiteralType Code = "W102"
	DeprecatedConstruct  Code = "W110"
)

// Success / informational (I...)
const (
	CompileSuccess Code = "I001"
	ResolveSuccess Code = "I002"
)

// categories maps each numeric range to its pipeline category.
var categories = []struct {
	from, to int
	name     string
}{
	{1, 4, "system"},
	{5, 19, "file"},
	{20, 39, "lexical"},
	{40, 59, "syntax"},
	{60, 79, "symbols"},
	{80, 99, "references"},
	{100, 119, "semantic"},
	{120, 139, "structural"},
}

// Category returns the pipeline category a code belongs to, or "unknown".
func (c Code) Category() string {
	if len(c) < 2 || c[0] != 'E' {
		switch {
		case len(c) > 0 && c[0] == 'W':
			return "warning"
		case len(c) > 0 && c[0] == 'I':
			return "info"
		}
		return "unknown"
	}
	n := 0
	for _, ch := range c[1:] {
		if ch < '0' || ch > '9' {
			return "unknown"
		}
		n = n*10 + int(ch-'0')
	}
	for _, cat := range categories {
		if n >= cat.from && n <= cat.to {
			return cat.name
		}
	}
	return "unknown"
}
