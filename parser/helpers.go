package parser

import (
	"strconv"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

func (p *parser) current() token.Token {
	return p.stream.Current()
}

func (p *parser) peek(n int) token.Token {
	return p.stream.Peek(n)
}

func (p *parser) advance() token.Token {
	return p.stream.Advance()
}

func (p *parser) spanHere() *token.Span {
	span := p.current().Span
	return &span
}

func spanOf(tok token.Token) *token.Span {
	span := tok.Span
	return &span
}

func extendSpan(span *token.Span, tok token.Token) {
	if span != nil {
		span.End = tok.Span.End
	}
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of file"
	case token.NEWLINE:
		return "end of line"
	case token.KEYWORD:
		return "keyword " + strconv.Quote(tok.Value)
	case token.IDENT:
		return "identifier " + strconv.Quote(tok.Value)
	case token.STRING, token.TRIPLE_STRING:
		return "string literal"
	case token.INT, token.FLOAT:
		return "number " + tok.Value
	case token.BOOLEAN:
		return tok.Value
	default:
		return strconv.Quote(tok.Value)
	}
}

// enterDepth tracks recursion depth across all recursive productions and
// fails at the configured ceiling.
func (p *parser) enterDepth() {
	p.depth++
	if p.opts.MaxParseDepth > 0 && p.depth > p.opts.MaxParseDepth {
		p.fail(diag.Errorf(diag.MaxParseDepthExceeded, p.spanHere(),
			"nesting exceeds the maximum parse depth of %d", p.opts.MaxParseDepth))
	}
}

func (p *parser) leaveDepth() {
	p.depth--
}

// expectIdentifier consumes and returns an identifier, failing otherwise.
// Reserved keywords in identifier position produce a dedicated diagnostic.
func (p *parser) expectIdentifier(what string) string {
	tok := p.current()
	switch tok.Type {
	case token.IDENT:
		p.advance()
		return tok.Value
	case token.KEYWORD:
		p.fail(diag.Errorf(diag.ReservedKeyword, p.spanHere(),
			"reserved keyword %q cannot be used as %s", tok.Value, what))
	default:
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected %s, found %s", what, describe(tok)))
	}
	return ""
}

// expectKeyword consumes the named keyword, failing otherwise.
func (p *parser) expectKeyword(kw string) token.Token {
	tok := p.current()
	if !tok.IsKeyword(kw) {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected %s, found %s", kw, describe(tok)))
	}
	return p.advance()
}

// expectDataType consumes a data type name.
func (p *parser) expectDataType() ast.DataType {
	tok := p.current()
	if tok.Type == token.IDENT {
		if dt, ok := ast.ParseDataType(tok.Value); ok {
			p.advance()
			return dt
		}
	}
	p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
		"expected a data type (string, int, float, boolean, binary, version, evr_string, record), found %s",
		describe(tok)))
	return ast.TypeString
}

// expectOperation consumes a comparison/string/pattern/collection operation.
// Symbol forms arrive as operator tokens; word forms arrive as keywords.
func (p *parser) expectOperation() ast.Operation {
	tok := p.current()
	if tok.Type.IsOperator() || tok.Type == token.KEYWORD {
		if op, ok := ast.ParseOperation(tok.Value); ok {
			p.advance()
			return op
		}
	}
	p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
		"expected an operation, found %s", describe(tok)))
	return ast.OpEquals
}

// startsValue reports whether the current token can begin a value.
func (p *parser) startsValue() bool {
	tok := p.current()
	switch tok.Type {
	case token.STRING, token.TRIPLE_STRING, token.INT, token.FLOAT, token.BOOLEAN:
		return true
	case token.KEYWORD:
		return tok.Value == "VAR"
	}
	return false
}

// parseValue consumes a literal or VAR reference.
func (p *parser) parseValue() ast.Value {
	tok := p.current()
	switch tok.Type {
	case token.STRING, token.TRIPLE_STRING:
		p.advance()
		return ast.StringValue(tok.Value)
	case token.INT:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.fail(diag.Errorf(diag.InvalidLiteral, spanOf(tok),
				"integer literal %q overflows 64-bit signed range", tok.Value))
		}
		return ast.IntValue(n)
	case token.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.fail(diag.Errorf(diag.InvalidLiteral, spanOf(tok),
				"invalid float literal %q", tok.Value))
		}
		return ast.FloatValue(f)
	case token.BOOLEAN:
		p.advance()
		return ast.BoolValue(tok.Value == "true")
	case token.KEYWORD:
		if tok.Value == "VAR" {
			p.advance()
			name := p.expectIdentifier("variable name")
			return ast.VarRef(name)
		}
	}
	p.fail(diag.Errorf(diag.InvalidLiteral, p.spanHere(),
		"expected a value, found %s", describe(tok)))
	return ast.Value{}
}

// parseScalarValue consumes a literal (no VAR references); used by META.
func (p *parser) parseScalarValue() (ast.Value, bool) {
	tok := p.current()
	switch tok.Type {
	case token.STRING, token.TRIPLE_STRING, token.INT, token.FLOAT, token.BOOLEAN:
		return p.parseValue(), true
	}
	return ast.Value{}, false
}

// parseStringLiteral consumes a backtick string of either form.
func (p *parser) parseStringLiteral(what string) string {
	tok := p.current()
	if !tok.IsString() {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected %s string literal, found %s", what, describe(tok)))
	}
	p.advance()
	return tok.Value
}

// parseInteger consumes an integer literal.
func (p *parser) parseInteger(what string) int64 {
	tok := p.current()
	if tok.Type != token.INT {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected %s, found %s", what, describe(tok)))
	}
	p.advance()
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		p.fail(diag.Errorf(diag.InvalidLiteral, spanOf(tok),
			"integer literal %q overflows 64-bit signed range", tok.Value))
	}
	return n
}
