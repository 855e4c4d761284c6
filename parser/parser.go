// Package parser builds the ESP AST from a token stream by recursive descent.
// Parse errors are recorded with spans; recovery skips to the end of the
// offending statement (or block boundary for structural errors) so one pass
// can surface many diagnostics.
package parser

import (
	"errors"
	"strings"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrParseFailed = errors.New("parse failed")

	// errSync unwinds a failed production back to the nearest recovery loop.
	errSync = errors.New("parser resync")
)

// Options configure the parser.
type Options struct {
	MaxParseDepth int
	MaxErrors     int
}

// DefaultOptions returns the production parser options.
func DefaultOptions() Options {
	return Options{MaxParseDepth: 100, MaxErrors: 50}
}

// Parse builds an EspFile from tokens, reporting syntax diagnostics into
// sink. The result is nil when nothing usable was recognized; when any error
// diagnostic was recorded the AST must not be shipped downstream.
func Parse(tokens []token.Token, opts Options, sink *diag.Collector) *ast.EspFile {
	p := &parser{
		stream: token.NewStream(tokens),
		opts:   opts,
		sink:   sink,
	}
	var file *ast.EspFile
	p.guard(p.resyncBlock, func() {
		file = p.parseFile()
	})
	return file
}

type parser struct {
	stream  *token.Stream
	opts    Options
	sink    *diag.Collector
	depth   int
	errors  int
	aborted bool
}

// parseFile := [META] DEF EOF
func (p *parser) parseFile() *ast.EspFile {
	file := &ast.EspFile{}
	p.stream.SkipNewlines()

	if p.stream.AtEOF() {
		p.report(diag.Errorf(diag.EmptyTokenStream, p.spanHere(), "source contains no tokens"))
		return nil
	}

	if p.current().IsKeyword("META") {
		file.Meta = p.parseMeta()
		p.stream.SkipNewlines()
	}

	if !p.current().IsKeyword("DEF") {
		p.report(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected DEF block, found %s", describe(p.current())))
		p.syncToKeyword("DEF")
		if !p.current().IsKeyword("DEF") {
			return nil
		}
	}
	file.Def = p.parseDef()

	p.stream.SkipNewlines()
	if !p.stream.AtEOF() && !p.aborted {
		p.report(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"unexpected content after DEF_END"))
	}
	if file.Def == nil {
		return nil
	}
	return file
}

// parseMeta := META { field scalar } META_END
func (p *parser) parseMeta() *ast.MetaBlock {
	start := p.advance() // META
	meta := &ast.MetaBlock{}
	meta.Span = spanOf(start)

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("META_END"):
			end := p.advance()
			extendSpan(meta.Span, end)
			return meta
		case tok.Type == token.EOF, tok.IsKeyword("DEF"):
			p.report(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"META block is never closed").WithHint("add META_END"))
			return meta
		case tok.Type == token.IDENT:
			p.guard(p.skipToLineEnd, func() {
				name := p.advance()
				value, ok := p.parseScalarValue()
				if !ok {
					p.fail(diag.Errorf(diag.InvalidLiteral, p.spanHere(),
						"metadata field %q requires a scalar literal value", name.Value))
				}
				span := name.Span
				meta.Fields = append(meta.Fields, ast.MetaField{Name: name.Value, Value: value, Span: &span})
			})
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected metadata field or META_END, found %s", describe(tok)))
		}
	}
	return meta
}

// parseDef := DEF { def_element } DEF_END
func (p *parser) parseDef() *ast.Definition {
	start := p.advance() // DEF
	def := &ast.Definition{}
	def.Span = spanOf(start)

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("DEF_END"):
			end := p.advance()
			extendSpan(def.Span, end)
			return def
		case tok.Type == token.EOF:
			p.report(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"DEF block is never closed").WithHint("add DEF_END"))
			return def
		case tok.IsKeyword("VAR"):
			p.guard(p.skipToLineEnd, func() {
				if v := p.parseVarDecl(); v != nil {
					def.Variables = append(def.Variables, v)
				}
			})
		case tok.IsKeyword("STATE"):
			p.guard(p.resyncBlock, func() {
				if s := p.parseStateBlock(true); s != nil {
					def.States = append(def.States, s)
				}
			})
		case tok.IsKeyword("OBJECT"):
			p.guard(p.resyncBlock, func() {
				if o := p.parseObjectBlock(true); o != nil {
					def.Objects = append(def.Objects, o)
				}
			})
		case tok.IsKeyword("RUN"):
			p.guard(p.resyncBlock, func() {
				if r := p.parseRunBlock(); r != nil {
					def.Runs = append(def.Runs, r)
				}
			})
		case tok.IsKeyword("SET"):
			p.guard(p.resyncBlock, func() {
				if s := p.parseSetBlock(); s != nil {
					def.Sets = append(def.Sets, s)
				}
			})
		case tok.IsKeyword("CRI"):
			p.guard(p.resyncBlock, func() {
				if c := p.parseCriteria(); c != nil {
					def.Criteria = append(def.Criteria, c)
				}
			})
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected a DEF element (VAR, STATE, OBJECT, RUN, SET, CRI), found %s",
				describe(tok)))
		}
	}
	return def
}

// parseVarDecl := VAR name type [value]
func (p *parser) parseVarDecl() *ast.VariableDecl {
	start := p.advance() // VAR
	decl := &ast.VariableDecl{}
	decl.Span = spanOf(start)

	decl.Name = p.expectIdentifier("variable name")
	decl.Type = p.expectDataType()

	// The initializer is optional: a RUN block may assign the value instead.
	if p.startsValue() {
		v := p.parseValue()
		decl.Initial = &v
	}
	return decl
}

// guard runs production, invoking recovery when it unwinds with the parser's
// sync panic. Foreign panics propagate.
func (p *parser) guard(recovery func(), production func()) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && errors.Is(err, errSync) {
				if !p.aborted {
					recovery()
				}
				return
			}
			panic(r)
		}
	}()
	production()
}

// fail reports the diagnostic and unwinds to the nearest recovery loop.
func (p *parser) fail(d *diag.Diagnostic) {
	p.report(d)
	panic(errSync)
}

func (p *parser) report(d *diag.Diagnostic) {
	p.errors++
	p.sink.Add(d)
	if p.opts.MaxErrors > 0 && p.errors >= p.opts.MaxErrors && !p.aborted {
		p.aborted = true
		p.sink.Add(diag.Errorf(diag.TooManySyntaxErrors, p.spanHere(),
			"aborting after %d syntax errors", p.errors))
	}
}

func (p *parser) reportAndSkipLine(d *diag.Diagnostic) {
	p.report(d)
	p.skipToLineEnd()
}

// skipToLineEnd advances past the remainder of the current statement. Block
// terminator keywords stop the skip so enclosing loops can close cleanly.
func (p *parser) skipToLineEnd() {
	for !p.stream.AtEOF() {
		tok := p.current()
		if tok.Type == token.NEWLINE {
			p.advance()
			return
		}
		if tok.Type == token.KEYWORD && strings.HasSuffix(tok.Value, "_END") {
			return
		}
		p.advance()
	}
}

// blockBoundaries are the keywords block-level recovery scans for.
var blockBoundaries = map[string]struct{}{
	"DEF": {}, "META": {},
	"META_END": {}, "DEF_END": {},
	"STATE_END": {}, "OBJECT_END": {}, "CTN_END": {}, "CRI_END": {},
	"SET_END": {}, "RUN_END": {}, "FILTER_END": {},
	"VAR": {}, "STATE": {}, "OBJECT": {}, "RUN": {}, "SET": {}, "CRI": {}, "CTN": {},
}

// resyncBlock scans forward to the next block boundary keyword. Terminator
// keywords are consumed so the enclosing loop does not trip over them.
func (p *parser) resyncBlock() {
	for !p.stream.AtEOF() {
		tok := p.current()
		if tok.Type == token.KEYWORD {
			if _, ok := blockBoundaries[tok.Value]; ok {
				if strings.HasSuffix(tok.Value, "_END") {
					p.advance()
				}
				return
			}
		}
		p.advance()
	}
}

// syncToKeyword scans forward until the named keyword is current.
func (p *parser) syncToKeyword(kw string) {
	for !p.stream.AtEOF() && !p.current().IsKeyword(kw) {
		p.advance()
	}
}
