package parser

import (
	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

// parseStateBlock := STATE id { state_field | record_check } STATE_END
func (p *parser) parseStateBlock(isGlobal bool) *ast.StateDecl {
	start := p.advance() // STATE
	decl := &ast.StateDecl{IsGlobal: isGlobal}
	decl.Span = spanOf(start)
	decl.ID = p.expectIdentifier("state identifier")

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("STATE_END"):
			end := p.advance()
			extendSpan(decl.Span, end)
			return decl
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"STATE %q is never closed", decl.ID).WithHint("add STATE_END"))
		case tok.IsKeyword("record"):
			p.guard(p.skipToLineEnd, func() {
				if rc := p.parseRecordCheck(); rc != nil {
					decl.RecordChecks = append(decl.RecordChecks, rc)
				}
			})
		case tok.Type == token.IDENT:
			p.guard(p.skipToLineEnd, func() {
				if f := p.parseStateField(); f != nil {
					decl.Fields = append(decl.Fields, f)
				}
			})
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected state field, record check, or STATE_END, found %s", describe(tok)))
		}
	}
	return decl
}

// parseStateField := name type op value [entity_check]
func (p *parser) parseStateField() *ast.StateField {
	nameTok := p.current()
	field := &ast.StateField{}
	field.Span = spanOf(nameTok)

	field.Name = p.expectIdentifier("state field name")
	field.Type = p.expectDataType()
	field.Op = p.expectOperation()
	field.Value = p.parseValue()

	if ec, ok := p.tryEntityCheck(); ok {
		field.EntityCheck = &ec
	}
	return field
}

// tryEntityCheck consumes a trailing entity check word when present.
func (p *parser) tryEntityCheck() (ast.EntityCheck, bool) {
	tok := p.current()
	if tok.Type != token.KEYWORD {
		return 0, false
	}
	switch tok.Value {
	case "all", "at_least_one", "none", "only_one":
		ec, _ := ast.ParseEntityCheck(tok.Value)
		p.advance()
		return ec, true
	}
	return 0, false
}

// parseRecordCheck := record [type] ( op value | { field_line | record_check } ) record_end
func (p *parser) parseRecordCheck() *ast.RecordCheck {
	p.enterDepth()
	defer p.leaveDepth()

	start := p.advance() // record
	check := &ast.RecordCheck{}
	check.Span = spanOf(start)

	if tok := p.current(); tok.Type == token.IDENT {
		if dt, ok := ast.ParseDataType(tok.Value); ok {
			p.advance()
			check.Type = &dt
		}
	}

	// Direct form: the operation follows on the same line.
	if tok := p.current(); tok.Type.IsOperator() {
		op := p.expectOperation()
		value := p.parseValue()
		check.Direct = &ast.DirectCheck{Op: op, Value: value}
		p.stream.SkipNewlines()
		end := p.expectKeyword("record_end")
		extendSpan(check.Span, end)
		return check
	}

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("record_end"):
			end := p.advance()
			extendSpan(check.Span, end)
			return check
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"record check is never closed").WithHint("add record_end"))
		case tok.IsKeyword("record"):
			if nested := p.parseRecordCheck(); nested != nil {
				check.Nested = append(check.Nested, nested)
			}
		case tok.Type == token.IDENT || tok.Type == token.INT || tok.Type == token.MULTIPLY:
			p.guard(p.skipToLineEnd, func() {
				if f := p.parseRecordField(); f != nil {
					check.Fields = append(check.Fields, f)
				}
			})
		case tok.Type.IsOperator():
			// Direct operation on its own line.
			op := p.expectOperation()
			value := p.parseValue()
			check.Direct = &ast.DirectCheck{Op: op, Value: value}
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected record field, nested record, or record_end, found %s", describe(tok)))
		}
	}
	return check
}

// parseRecordField := field_path type op value [entity_check]
func (p *parser) parseRecordField() *ast.RecordField {
	startTok := p.current()
	field := &ast.RecordField{}
	field.Span = spanOf(startTok)

	field.Path = p.parseFieldPath()
	field.Type = p.expectDataType()
	field.Op = p.expectOperation()
	field.Value = p.parseValue()

	if ec, ok := p.tryEntityCheck(); ok {
		field.EntityCheck = &ec
	}
	return field
}

// parseFieldPath := component { "." component }
// where component := identifier | integer index | "*"
func (p *parser) parseFieldPath() ast.FieldPath {
	var path ast.FieldPath
	for {
		tok := p.current()
		switch tok.Type {
		case token.IDENT:
			p.advance()
			path.Components = append(path.Components, ast.PathComponent{Kind: ast.PathIdent, Name: tok.Value})
		case token.INT:
			idx := p.parseInteger("field path index")
			path.Components = append(path.Components, ast.PathComponent{Kind: ast.PathIndex, Index: idx})
		case token.MULTIPLY:
			p.advance()
			path.Components = append(path.Components, ast.PathComponent{Kind: ast.PathWildcard})
		default:
			p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected field path component, found %s", describe(tok)))
		}
		if p.current().Type != token.DOT {
			return path
		}
		p.advance() // consume the dot
	}
}

// parseObjectBlock := OBJECT id { object_element } OBJECT_END
func (p *parser) parseObjectBlock(isGlobal bool) *ast.ObjectDecl {
	start := p.advance() // OBJECT
	decl := &ast.ObjectDecl{IsGlobal: isGlobal}
	decl.Span = spanOf(start)
	decl.ID = p.expectIdentifier("object identifier")

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("OBJECT_END"):
			end := p.advance()
			extendSpan(decl.Span, end)
			return decl
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"OBJECT %q is never closed", decl.ID).WithHint("add OBJECT_END"))
		case tok.IsKeyword("module_name"), tok.IsKeyword("module_version"),
			tok.IsKeyword("module_command"), tok.IsKeyword("module_type"):
			p.guard(p.skipToLineEnd, func() {
				kw := p.advance()
				value := p.parseStringLiteral("module value")
				el := &ast.ModuleObjectElement{Field: kw.Value, Value: value}
				el.Span = spanOf(kw)
				decl.Elements = append(decl.Elements, el)
			})
		case tok.IsKeyword("parameters"):
			p.guard(p.resyncBlock, func() {
				decl.Elements = append(decl.Elements, p.parseParamsElement())
			})
		case tok.IsKeyword("select"):
			p.guard(p.resyncBlock, func() {
				decl.Elements = append(decl.Elements, p.parseSelectElement())
			})
		case tok.IsKeyword("behavior"):
			p.guard(p.skipToLineEnd, func() {
				decl.Elements = append(decl.Elements, p.parseBehaviorElement())
			})
		case tok.IsKeyword("FILTER"):
			p.guard(p.resyncBlock, func() {
				el := &ast.FilterObjectElement{Filter: p.parseFilterSpec()}
				el.Span = el.Filter.Span
				decl.Elements = append(decl.Elements, el)
			})
		case tok.IsKeyword("SET_REF"):
			p.guard(p.skipToLineEnd, func() {
				kw := p.advance()
				el := &ast.SetRefObjectElement{SetID: p.expectIdentifier("set identifier")}
				el.Span = spanOf(kw)
				decl.Elements = append(decl.Elements, el)
			})
		case tok.IsKeyword("record"):
			p.guard(p.resyncBlock, func() {
				if rc := p.parseRecordCheck(); rc != nil {
					el := &ast.RecordObjectElement{Check: rc}
					el.Span = rc.Span
					decl.Elements = append(decl.Elements, el)
				}
			})
		case tok.IsKeyword("SET"):
			p.guard(p.resyncBlock, func() {
				if s := p.parseSetBlock(); s != nil {
					el := &ast.InlineSetObjectElement{Set: s}
					el.Span = s.Span
					decl.Elements = append(decl.Elements, el)
				}
			})
		case tok.Type == token.IDENT:
			p.guard(p.skipToLineEnd, func() {
				nameTok := p.advance()
				el := &ast.FieldObjectElement{Name: nameTok.Value, Value: p.parseValue()}
				el.Span = spanOf(nameTok)
				decl.Elements = append(decl.Elements, el)
			})
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected object element or OBJECT_END, found %s", describe(tok)))
		}
	}
	return decl
}

// parseParamsElement := parameters [type] { field value } parameters_end
func (p *parser) parseParamsElement() *ast.ParamsObjectElement {
	start := p.advance() // parameters
	el := &ast.ParamsObjectElement{}
	el.Span = spanOf(start)
	el.Type, el.Fields = p.parseFieldGroup("parameters_end")
	return el
}

// parseSelectElement := select [type] { field value } select_end
func (p *parser) parseSelectElement() *ast.SelectObjectElement {
	start := p.advance() // select
	el := &ast.SelectObjectElement{}
	el.Span = spanOf(start)
	el.Type, el.Fields = p.parseFieldGroup("select_end")
	return el
}

func (p *parser) parseFieldGroup(terminator string) (*ast.DataType, []*ast.FieldObjectElement) {
	var groupType *ast.DataType
	if tok := p.current(); tok.Type == token.IDENT {
		if dt, ok := ast.ParseDataType(tok.Value); ok {
			p.advance()
			groupType = &dt
		}
	}

	var fields []*ast.FieldObjectElement
	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword(terminator):
			p.advance()
			return groupType, fields
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"field group is never closed").WithHint("add " + terminator))
		case tok.Type == token.IDENT:
			p.guard(p.skipToLineEnd, func() {
				nameTok := p.advance()
				f := &ast.FieldObjectElement{Name: nameTok.Value, Value: p.parseValue()}
				f.Span = spanOf(nameTok)
				fields = append(fields, f)
			})
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected field or %s, found %s", terminator, describe(tok)))
		}
	}
	return groupType, fields
}

// parseBehaviorElement := behavior { flag }
// Behavior flags are opaque names; validation belongs to the scanner's CTN
// contract, not the compiler.
func (p *parser) parseBehaviorElement() *ast.BehaviorObjectElement {
	start := p.advance() // behavior
	el := &ast.BehaviorObjectElement{}
	el.Span = spanOf(start)
	for {
		tok := p.current()
		if tok.Type != token.IDENT && tok.Type != token.KEYWORD {
			break
		}
		if tok.Type == token.KEYWORD && tok.Value != "true" && tok.Value != "false" {
			break
		}
		p.advance()
		el.Values = append(el.Values, tok.Value)
	}
	if len(el.Values) == 0 {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"behavior requires at least one flag"))
	}
	return el
}

// parseFilterSpec := FILTER [action] { STATE_REF id } FILTER_END
func (p *parser) parseFilterSpec() *ast.FilterSpec {
	start := p.advance() // FILTER
	spec := &ast.FilterSpec{Action: ast.FilterInclude}
	spec.Span = spanOf(start)

	if tok := p.current(); tok.IsKeyword("include") || tok.IsKeyword("exclude") {
		action, _ := ast.ParseFilterAction(tok.Value)
		spec.Action = action
		p.advance()
	}

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("FILTER_END"):
			end := p.advance()
			extendSpan(spec.Span, end)
			if len(spec.StateRefs) == 0 {
				p.fail(diag.Errorf(diag.GrammarViolation, spec.Span,
					"FILTER requires at least one STATE_REF"))
			}
			return spec
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"FILTER is never closed").WithHint("add FILTER_END"))
		case tok.IsKeyword("STATE_REF"):
			kw := p.advance()
			ref := ast.StateRef{StateID: p.expectIdentifier("state identifier"), Span: spanOf(kw)}
			spec.StateRefs = append(spec.StateRefs, ref)
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected STATE_REF or FILTER_END, found %s", describe(tok)))
		}
	}
	return spec
}

// parseRunBlock := RUN target op { run_parameter } RUN_END
func (p *parser) parseRunBlock() *ast.RunBlock {
	start := p.advance() // RUN
	block := &ast.RunBlock{}
	block.Span = spanOf(start)

	block.Target = p.expectIdentifier("target variable name")

	opTok := p.current()
	if opTok.Type == token.KEYWORD {
		if op, ok := ast.ParseRunOpType(opTok.Value); ok && op != ast.RunEnd {
			block.Op = op
			p.advance()
		} else {
			p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected a runtime operation (CONCAT, SPLIT, SUBSTRING, REGEX_CAPTURE, ARITHMETIC, COUNT, UNIQUE, MERGE, EXTRACT), found %s",
				describe(opTok)))
		}
	} else {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected a runtime operation, found %s", describe(opTok)))
	}

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("RUN_END"):
			end := p.advance()
			extendSpan(block.Span, end)
			return block
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"RUN %q is never closed", block.Target).WithHint("add RUN_END"))
		default:
			p.guard(p.skipToLineEnd, func() {
				if param, ok := p.parseRunParam(); ok {
					block.Params = append(block.Params, param)
				}
			})
		}
	}
	return block
}

// parseRunParam parses one RUN parameter line.
func (p *parser) parseRunParam() (ast.RunParam, bool) {
	tok := p.current()
	span := spanOf(tok)

	switch {
	case tok.IsKeyword("literal"):
		p.advance()
		return ast.RunParam{Kind: ast.LiteralParam, Value: p.parseValue(), Span: span}, true
	case tok.IsKeyword("VAR"):
		p.advance()
		return ast.RunParam{Kind: ast.VariableParam, Name: p.expectIdentifier("variable name"), Span: span}, true
	case tok.IsKeyword("OBJ"):
		p.advance()
		objectID := p.expectIdentifier("object identifier")
		field := p.expectIdentifier("object field name")
		return ast.RunParam{Kind: ast.ObjectExtractionParam, ObjectID: objectID, Field: field, Span: span}, true
	case tok.IsKeyword("pattern"):
		p.advance()
		return ast.RunParam{Kind: ast.PatternParam, Text: p.parseStringLiteral("pattern"), Span: span}, true
	case tok.IsKeyword("delimiter"):
		p.advance()
		return ast.RunParam{Kind: ast.DelimiterParam, Text: p.parseStringLiteral("delimiter"), Span: span}, true
	case tok.IsKeyword("character"):
		p.advance()
		return ast.RunParam{Kind: ast.CharacterParam, Text: p.parseStringLiteral("character"), Span: span}, true
	case tok.IsKeyword("start"):
		p.advance()
		return ast.RunParam{Kind: ast.StartParam, Number: p.parseInteger("start position"), Span: span}, true
	case tok.IsKeyword("length"):
		p.advance()
		return ast.RunParam{Kind: ast.LengthParam, Number: p.parseInteger("length"), Span: span}, true
	case tok.Type.IsOperator():
		if op, ok := ast.ParseArithmeticOp(tok.Value); ok {
			p.advance()
			return ast.RunParam{Kind: ast.ArithmeticParam, ArithOp: op, Value: p.parseValue(), Span: span}, true
		}
	}
	p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
		"expected a RUN parameter, found %s", describe(tok)))
	return ast.RunParam{}, false
}

// parseSetBlock := SET id set_op { operand } [filter] SET_END
func (p *parser) parseSetBlock() *ast.SetDecl {
	start := p.advance() // SET
	decl := &ast.SetDecl{}
	decl.Span = spanOf(start)

	decl.ID = p.expectIdentifier("set identifier")

	opTok := p.current()
	if op, ok := ast.ParseSetOpType(opTok.Value); ok && opTok.Type == token.KEYWORD {
		decl.Op = op
		p.advance()
	} else {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected union, intersection, or complement, found %s", describe(opTok)))
	}

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("SET_END"):
			end := p.advance()
			extendSpan(decl.Span, end)
			if !decl.Op.ValidateOperandCount(len(decl.Operands)) {
				p.fail(diag.Errorf(diag.InvalidOperandCount, decl.Span,
					"%s requires %s, got %d operands", decl.Op, arityText(decl.Op), len(decl.Operands)))
			}
			return decl
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"SET %q is never closed", decl.ID).WithHint("add SET_END"))
		case tok.IsKeyword("OBJECT_REF"):
			kw := p.advance()
			objectID := p.expectIdentifier("object identifier")
			operand := ast.SetOperand{Kind: ast.ObjectRefOperand, ObjectID: objectID, Span: spanOf(kw)}
			// A FILTER directly after an OBJECT_REF operand binds to it.
			p.stream.SkipNewlines()
			if p.current().IsKeyword("FILTER") && p.filterBindsToOperand() {
				operand.Kind = ast.FilteredOperand
				operand.Filter = p.parseFilterSpec()
			}
			decl.Operands = append(decl.Operands, operand)
		case tok.IsKeyword("SET_REF"):
			kw := p.advance()
			decl.Operands = append(decl.Operands, ast.SetOperand{
				Kind: ast.SetRefOperand, SetID: p.expectIdentifier("set identifier"), Span: spanOf(kw),
			})
		case tok.IsKeyword("OBJECT"):
			obj := p.parseObjectBlock(false)
			if obj != nil {
				decl.Operands = append(decl.Operands, ast.SetOperand{
					Kind: ast.InlineObjectOperand, Object: obj, Span: obj.Span,
				})
			}
		case tok.IsKeyword("FILTER"):
			// Trailing filter applies to the whole set result.
			decl.Filter = p.parseFilterSpec()
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected a set operand, FILTER, or SET_END, found %s", describe(tok)))
		}
	}
	return decl
}

// filterBindsToOperand distinguishes an operand-scoped filter from the set's
// trailing filter by scanning ahead to the matching FILTER_END: a filter
// followed by another operand or filter binds to the operand that precedes it.
func (p *parser) filterBindsToOperand() bool {
	cp := p.stream.Checkpoint()
	defer p.stream.Restore(cp)

	depth := 0
	for i := 0; ; i++ {
		tok := p.peek(i)
		switch {
		case tok.Type == token.EOF:
			return false
		case tok.IsKeyword("FILTER"):
			depth++
		case tok.IsKeyword("FILTER_END"):
			depth--
			if depth == 0 {
				// Scan what follows the filter block.
				for j := i + 1; ; j++ {
					next := p.peek(j)
					switch {
					case next.Type == token.NEWLINE:
						continue
					case next.IsKeyword("OBJECT_REF"), next.IsKeyword("SET_REF"), next.IsKeyword("OBJECT"), next.IsKeyword("FILTER"):
						return true
					default:
						return false
					}
				}
			}
		}
	}
}

func arityText(op ast.SetOpType) string {
	switch op {
	case ast.SetUnion:
		return "at least 1 operand"
	case ast.SetIntersection:
		return "at least 2 operands"
	case ast.SetComplement:
		return "exactly 2 operands"
	}
	return ""
}
