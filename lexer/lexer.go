// Package lexer turns an ESP source buffer into a token stream. The scanner
// is a hand-written single-pass loop; every token carries an exact byte span
// into the raw buffer.
package lexer

import (
	"errors"
	"strconv"
	"strings"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrUnexpectedCharacter = errors.New("unexpected character")
	ErrUnterminatedString  = errors.New("unterminated string literal")
	ErrTokenLimitExceeded  = errors.New("token limit exceeded")
)

// Limits are the compile-time bounds enforced while scanning.
type Limits struct {
	MaxStringLength     int
	MaxIdentifierLength int
	MaxTokenCount       int
	MaxCommentLength    int
}

// DefaultLimits returns the production scanning limits.
func DefaultLimits() Limits {
	return Limits{
		MaxStringLength:     1 << 20, // 1 MB
		MaxIdentifierLength: 255,
		MaxTokenCount:       1_000_000,
		MaxCommentLength:    10_000,
	}
}

// Lexer scans one source buffer.
type Lexer struct {
	input  string
	limits Limits

	pos    int // byte offset of current
	line   int
	column int
}

// New creates a Lexer over input with the given limits.
func New(input string, limits Limits) *Lexer {
	return &Lexer{input: input, limits: limits, line: 1, column: 1}
}

// Run scans the whole buffer, reporting lexical diagnostics into sink. The
// returned slice always ends with an EOF token, even after errors; callers
// must check sink.HasErrors() before trusting the stream. Scanning aborts
// early only when the token count limit is crossed.
func (l *Lexer) Run(sink *diag.Collector) []token.Token {
	tokens := make([]token.Token, 0, 256)

	for {
		if l.limits.MaxTokenCount > 0 && len(tokens) >= l.limits.MaxTokenCount {
			span := l.spanFrom(l.mark())
			sink.Add(diag.Errorf(diag.TokenLimitExceeded, &span,
				"token count exceeds the configured limit of %d", l.limits.MaxTokenCount).
				WithHint("split the policy into smaller files"))
			break
		}

		tok, d := l.next()
		if d != nil {
			sink.Add(d)
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}

	// Token-limit abort: cap the stream with EOF at the current position.
	pos := l.here()
	tokens = append(tokens, token.Token{Type: token.EOF, Span: token.Span{Start: pos, End: pos}})
	return tokens
}

// next scans one token. Exactly one of the results is meaningful.
func (l *Lexer) next() (token.Token, *diag.Diagnostic) {
	l.skipBlanks()

	start := l.mark()
	c, ok := l.current()
	if !ok {
		pos := l.here()
		return token.Token{Type: token.EOF, Span: token.Span{Start: pos, End: pos}}, nil
	}

	switch {
	case c == '\n':
		l.advance()
		return l.emit(token.NEWLINE, "\n", start), nil
	case c == '\r':
		l.advance()
		if c2, ok := l.current(); ok && c2 == '\n' {
			l.advance()
		}
		return l.emit(token.NEWLINE, "\n", start), nil
	case c == '#':
		return l.scanComment(start)
	case c == '`':
		return l.scanString(start, false)
	case c == 'r' && l.peekIs('`'):
		l.advance() // consume the prefix
		return l.scanString(start, true)
	case isIdentStart(c):
		return l.scanWord(start)
	case c >= '0' && c <= '9':
		return l.scanNumber(start, false)
	case c == '-' && l.peekIsDigit():
		l.advance()
		return l.scanNumber(start, true)
	default:
		return l.scanOperator(start)
	}
}

func (l *Lexer) scanOperator(start scanMark) (token.Token, *diag.Diagnostic) {
	c, _ := l.current()
	l.advance()

	switch c {
	case '=':
		return l.emit(token.EQUAL, "=", start), nil
	case '!':
		if c2, ok := l.current(); ok && c2 == '=' {
			l.advance()
			return l.emit(token.NOT_EQUAL, "!=", start), nil
		}
	case '>':
		if c2, ok := l.current(); ok && c2 == '=' {
			l.advance()
			return l.emit(token.GREATER_EQUAL, ">=", start), nil
		}
		return l.emit(token.GREATER_THAN, ">", start), nil
	case '<':
		if c2, ok := l.current(); ok && c2 == '=' {
			l.advance()
			return l.emit(token.LESS_EQUAL, "<=", start), nil
		}
		return l.emit(token.LESS_THAN, "<", start), nil
	case '+':
		return l.emit(token.PLUS, "+", start), nil
	case '-':
		return l.emit(token.MINUS, "-", start), nil
	case '*':
		return l.emit(token.MULTIPLY, "*", start), nil
	case '/':
		return l.emit(token.DIVIDE, "/", start), nil
	case '%':
		return l.emit(token.MODULO, "%", start), nil
	case '.':
		return l.emit(token.DOT, ".", start), nil
	}

	span := l.spanFrom(start)
	return token.Token{}, diag.Errorf(diag.InvalidCharacter, &span,
		"unexpected character %q", string(c))
}

func (l *Lexer) scanWord(start scanMark) (token.Token, *diag.Diagnostic) {
	for {
		c, ok := l.current()
		if !ok || !isIdentPart(c) {
			break
		}
		l.advance()
	}
	word := l.input[start.pos:l.pos]

	if l.limits.MaxIdentifierLength > 0 && len(word) > l.limits.MaxIdentifierLength {
		span := l.spanFrom(start)
		return token.Token{}, diag.Errorf(diag.IdentifierTooLong, &span,
			"identifier exceeds %d characters", l.limits.MaxIdentifierLength)
	}

	switch {
	case word == "true" || word == "false":
		return l.emit(token.BOOLEAN, word, start), nil
	case token.IsReservedKeyword(word):
		return l.emit(token.KEYWORD, word, start), nil
	default:
		return l.emit(token.IDENT, word, start), nil
	}
}

func (l *Lexer) scanNumber(start scanMark, negative bool) (token.Token, *diag.Diagnostic) {
	for {
		c, ok := l.current()
		if !ok || c < '0' || c > '9' {
			break
		}
		l.advance()
	}

	isFloat := false
	if c, ok := l.current(); ok && c == '.' && l.peekIsDigit() {
		isFloat = true
		l.advance()
		for {
			c, ok := l.current()
			if !ok || c < '0' || c > '9' {
				break
			}
			l.advance()
		}
	}

	text := l.input[start.pos:l.pos]
	span := l.spanFrom(start)

	if isFloat {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return token.Token{}, diag.Errorf(diag.InvalidNumber, &span,
				"invalid float literal %q", text)
		}
		return l.emit(token.FLOAT, text, start), nil
	}
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		return token.Token{}, diag.Errorf(diag.InvalidNumber, &span,
			"integer literal %q overflows 64-bit signed range", text)
	}
	return l.emit(token.INT, text, start), nil
}

func (l *Lexer) scanComment(start scanMark) (token.Token, *diag.Diagnostic) {
	for {
		c, ok := l.current()
		if !ok || c == '\n' {
			break
		}
		l.advance()
	}
	text := l.input[start.pos:l.pos]
	if l.limits.MaxCommentLength > 0 && len(text) > l.limits.MaxCommentLength {
		span := l.spanFrom(start)
		return token.Token{}, diag.Errorf(diag.CommentTooLong, &span,
			"comment exceeds %d characters", l.limits.MaxCommentLength)
	}
	return l.emit(token.COMMENT, text, start), nil
}

// scanString handles all backtick literal forms. The cursor sits on the first
// backtick. Two backticks with no further backtick form the empty string;
// three open a multiline literal; one opens a normal literal in which a
// doubled backtick escapes a single literal backtick.
func (l *Lexer) scanString(start scanMark, raw bool) (token.Token, *diag.Diagnostic) {
	run := l.backtickRun()
	switch {
	case run >= 3:
		return l.scanTripleString(start, raw)
	case run == 2:
		l.advance()
		l.advance()
		tok := l.emit(token.STRING, "", start)
		tok.Raw = raw
		return tok, nil
	}

	l.advance() // opening backtick
	var b strings.Builder
	for {
		c, ok := l.current()
		if !ok || c == '\n' {
			span := l.spanFrom(start)
			return token.Token{}, diag.Errorf(diag.UnterminatedString, &span,
				"unterminated string literal").
				WithHint("close the literal with ` or use ``` for multiline strings")
		}
		l.advance()
		if c != '`' {
			b.WriteByte(c)
			continue
		}
		if c2, ok := l.current(); ok && c2 == '`' {
			// doubled backtick escapes one literal backtick
			l.advance()
			b.WriteByte('`')
			continue
		}
		break // closing backtick
	}

	if d := l.checkStringLength(b.Len(), start); d != nil {
		return token.Token{}, d
	}
	tok := l.emit(token.STRING, b.String(), start)
	tok.Raw = raw
	return tok, nil
}

func (l *Lexer) scanTripleString(start scanMark, raw bool) (token.Token, *diag.Diagnostic) {
	l.advance()
	l.advance()
	l.advance()

	contentStart := l.pos
	for {
		if _, ok := l.current(); !ok {
			span := l.spanFrom(start)
			return token.Token{}, diag.Errorf(diag.UnterminatedString, &span,
				"unterminated multiline string literal")
		}
		if l.backtickRun() >= 3 {
			break
		}
		l.advance()
	}
	content := l.input[contentStart:l.pos]
	l.advance()
	l.advance()
	l.advance()

	if d := l.checkStringLength(len(content), start); d != nil {
		return token.Token{}, d
	}
	tok := l.emit(token.TRIPLE_STRING, content, start)
	tok.Raw = raw
	return tok, nil
}

func (l *Lexer) checkStringLength(n int, start scanMark) *diag.Diagnostic {
	if l.limits.MaxStringLength > 0 && n > l.limits.MaxStringLength {
		span := l.spanFrom(start)
		return diag.Errorf(diag.StringTooLong, &span,
			"string literal exceeds %d bytes", l.limits.MaxStringLength)
	}
	return nil
}

// backtickRun counts consecutive backticks at the cursor without advancing.
func (l *Lexer) backtickRun() int {
	n := 0
	for i := l.pos; i < len(l.input) && l.input[i] == '`'; i++ {
		n++
	}
	return n
}

// scanMark remembers a scan start position.
type scanMark struct {
	pos    int
	line   int
	column int
}

func (l *Lexer) mark() scanMark {
	return scanMark{pos: l.pos, line: l.line, column: l.column}
}

func (l *Lexer) here() token.Position {
	return token.Position{Offset: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) spanFrom(start scanMark) token.Span {
	return token.Span{
		Start: token.Position{Offset: start.pos, Line: start.line, Column: start.column},
		End:   l.here(),
	}
}

func (l *Lexer) emit(tt token.TokenType, value string, start scanMark) token.Token {
	return token.Token{Type: tt, Value: value, Span: l.spanFrom(start)}
}

func (l *Lexer) current() (byte, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos], true
}

func (l *Lexer) peekIs(c byte) bool {
	return l.pos+1 < len(l.input) && l.input[l.pos+1] == c
}

func (l *Lexer) peekIsDigit() bool {
	return l.pos+1 < len(l.input) && l.input[l.pos+1] >= '0' && l.input[l.pos+1] <= '9'
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) skipBlanks() {
	for {
		c, ok := l.current()
		if !ok || (c != ' ' && c != '\t') {
			return
		}
		l.advance()
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
