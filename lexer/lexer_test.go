package lexer

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

func lexAll(t *testing.T, input string) ([]token.Token, *diag.Collector) {
	t.Helper()
	sink := diag.NewCollector(0)
	tokens := New(input, DefaultLimits()).Run(sink)
	return tokens, sink
}

func types(tokens []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestBasicTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []token.TokenType
	}{
		{
			name:     "keywords and identifiers",
			input:    "DEF myname DEF_END",
			expected: []token.TokenType{token.KEYWORD, token.IDENT, token.KEYWORD, token.EOF},
		},
		{
			name:     "operators",
			input:    "= != > < >= <= + - * / %",
			expected: []token.TokenType{token.EQUAL, token.NOT_EQUAL, token.GREATER_THAN, token.LESS_THAN, token.GREATER_EQUAL, token.LESS_EQUAL, token.PLUS, token.MINUS, token.MULTIPLY, token.DIVIDE, token.MODULO, token.EOF},
		},
		{
			name:     "numbers",
			input:    "42 -7 3.25",
			expected: []token.TokenType{token.INT, token.INT, token.FLOAT, token.EOF},
		},
		{
			name:     "booleans",
			input:    "true false",
			expected: []token.TokenType{token.BOOLEAN, token.BOOLEAN, token.EOF},
		},
		{
			name:     "newline terminator",
			input:    "VAR a\nVAR b",
			expected: []token.TokenType{token.KEYWORD, token.IDENT, token.NEWLINE, token.KEYWORD, token.IDENT, token.EOF},
		},
		{
			name:     "comment",
			input:    "VAR # trailing note",
			expected: []token.TokenType{token.KEYWORD, token.COMMENT, token.EOF},
		},
		{
			name:     "field path dot",
			input:    "a.b.0.*",
			expected: []token.TokenType{token.IDENT, token.DOT, token.IDENT, token.DOT, token.INT, token.DOT, token.MULTIPLY, token.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, sink := lexAll(t, tt.input)
			assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
			assert.Equal(t, tt.expected, types(tokens))
		})
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		tokType  token.TokenType
	}{
		{name: "simple", input: "`/etc/hosts`", expected: "/etc/hosts", tokType: token.STRING},
		{name: "empty", input: "``", expected: "", tokType: token.STRING},
		{name: "escaped backtick", input: "`a``b`", expected: "a`b", tokType: token.STRING},
		{name: "raw", input: "r`C:\\path`", expected: "C:\\path", tokType: token.STRING},
		{name: "triple multiline", input: "```line1\nline2```", expected: "line1\nline2", tokType: token.TRIPLE_STRING},
		{name: "raw triple", input: "r```a\nb```", expected: "a\nb", tokType: token.TRIPLE_STRING},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, sink := lexAll(t, tt.input)
			assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
			assert.Equal(t, 2, len(tokens)) // literal + EOF
			assert.Equal(t, tt.tokType, tokens[0].Type)
			assert.Equal(t, tt.expected, tokens[0].Value)
		})
	}
}

func TestLexicalErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  diag.Code
	}{
		{name: "invalid character", input: "VAR @ thing", code: diag.InvalidCharacter},
		{name: "unterminated string", input: "`never closed", code: diag.UnterminatedString},
		{name: "unterminated string at newline", input: "`broken\nVAR x", code: diag.UnterminatedString},
		{name: "unterminated triple", input: "```still open", code: diag.UnterminatedString},
		{name: "int overflow", input: "99999999999999999999", code: diag.InvalidNumber},
		{name: "negative overflow", input: "-99999999999999999999", code: diag.InvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, sink := lexAll(t, tt.input)
			assert.True(t, sink.HasErrors())
			assert.Equal(t, tt.code, sink.Errors()[0].Code)
		})
	}
}

func TestIdentifierTooLong(t *testing.T) {
	long := strings.Repeat("a", 300)
	_, sink := lexAll(t, long)
	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.IdentifierTooLong, sink.Errors()[0].Code)
}

func TestTokenCountLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxTokenCount = 10
	sink := diag.NewCollector(0)
	tokens := New(strings.Repeat("a ", 50), limits).Run(sink)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.TokenLimitExceeded, sink.Errors()[0].Code)
	// The stream is still EOF-terminated after the abort.
	assert.Equal(t, token.EOF, tokens[len(tokens)-1].Type)
}

func TestSpans(t *testing.T) {
	tokens, sink := lexAll(t, "VAR name\nSTATE")
	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())

	assert.Equal(t, 1, tokens[0].Span.Start.Line)
	assert.Equal(t, 1, tokens[0].Span.Start.Column)
	assert.Equal(t, 1, tokens[1].Span.Start.Line)
	assert.Equal(t, 5, tokens[1].Span.Start.Column)
	// Token after the newline starts on line 2.
	last := tokens[len(tokens)-2]
	assert.Equal(t, "STATE", last.Value)
	assert.Equal(t, 2, last.Span.Start.Line)
	assert.Equal(t, 1, last.Span.Start.Column)
}

func TestCRLFNewlines(t *testing.T) {
	tokens, sink := lexAll(t, "VAR\r\nSTATE")
	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
	assert.Equal(t,
		[]token.TokenType{token.KEYWORD, token.NEWLINE, token.KEYWORD, token.EOF},
		types(tokens))
	assert.Equal(t, 2, tokens[2].Span.Start.Line)
}

func TestReservedWordsAreKeywords(t *testing.T) {
	for _, word := range []string{"DEF", "STATE_REF", "union", "contains", "literal", "none_satisfy"} {
		tokens, sink := lexAll(t, word)
		assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
		assert.Equal(t, token.KEYWORD, tokens[0].Type, "%q should lex as a keyword", word)
	}
	// Data types are plain identifiers classified by the parser.
	for _, word := range []string{"string", "int", "boolean", "version", "evr_string"} {
		tokens, sink := lexAll(t, word)
		assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
		assert.Equal(t, token.IDENT, tokens[0].Type, "%q should lex as an identifier", word)
	}
}
