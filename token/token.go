package token

// TokenType represents the type of a token
type TokenType int

const (
	// Basic tokens
	EOF TokenType = iota
	NEWLINE
	IDENT   // identifiers
	KEYWORD // reserved keywords (DEF, STATE, CTN, ...)
	INT     // integer literals
	FLOAT   // float literals
	BOOLEAN // true, false
	STRING  // backtick string literals
	TRIPLE_STRING

	// Operator symbols
	EQUAL         // =
	NOT_EQUAL     // !=
	LESS_THAN     // <
	GREATER_THAN  // >
	LESS_EQUAL    // <=
	GREATER_EQUAL // >=
	PLUS          // +
	MINUS         // -
	MULTIPLY      // *
	DIVIDE        // /
	MODULO        // %

	// Punctuation
	DOT // . (field paths)

	// Others
	COMMENT // # line comment
)

// String returns the string representation of TokenType
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case NEWLINE:
		return "NEWLINE"
	case IDENT:
		return "IDENT"
	case KEYWORD:
		return "KEYWORD"
	case INT:
		return "INT"
	case FLOAT:
		return "FLOAT"
	case BOOLEAN:
		return "BOOLEAN"
	case STRING:
		return "STRING"
	case TRIPLE_STRING:
		return "TRIPLE_STRING"
	case EQUAL:
		return "EQUAL"
	case NOT_EQUAL:
		return "NOT_EQUAL"
	case LESS_THAN:
		return "LESS_THAN"
	case GREATER_THAN:
		return "GREATER_THAN"
	case LESS_EQUAL:
		return "LESS_EQUAL"
	case GREATER_EQUAL:
		return "GREATER_EQUAL"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case MULTIPLY:
		return "MULTIPLY"
	case DIVIDE:
		return "DIVIDE"
	case MODULO:
		return "MODULO"
	case DOT:
		return "DOT"
	case COMMENT:
		return "COMMENT"
	default:
		return "UNKNOWN"
	}
}

// IsOperator reports whether the token type is one of the operator symbols.
func (t TokenType) IsOperator() bool {
	switch t {
	case EQUAL, NOT_EQUAL, LESS_THAN, GREATER_THAN, LESS_EQUAL, GREATER_EQUAL,
		PLUS, MINUS, MULTIPLY, DIVIDE, MODULO:
		return true
	}
	return false
}

// Position represents a position in the source code.
// Line and Column are 1-based; Offset is a byte offset into the buffer.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Span is a half-open [Start, End) range of positions.
type Span struct {
	Start Position
	End   Position
}

// Token represents a single lexical token with its source span.
type Token struct {
	Type  TokenType
	Value string
	Span  Span

	// Raw marks r-prefixed string literals. Content rules are identical to the
	// unprefixed forms; the flag is kept for exact source reproduction.
	Raw bool
}

// String returns the string representation of Token
func (t Token) String() string {
	return t.Type.String() + ": " + t.Value
}

// IsKeyword reports whether the token is the given reserved keyword.
func (t Token) IsKeyword(kw string) bool {
	return t.Type == KEYWORD && t.Value == kw
}

// IsString reports whether the token is a string literal of either form.
func (t Token) IsString() bool {
	return t.Type == STRING || t.Type == TRIPLE_STRING
}
