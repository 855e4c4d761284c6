package parser

import (
	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

// parseCriteria := CRI logical_op [NOT] { criteria | criterion } CRI_END
func (p *parser) parseCriteria() *ast.CriteriaNode {
	p.enterDepth()
	defer p.leaveDepth()

	start := p.advance() // CRI
	node := &ast.CriteriaNode{}
	node.Span = spanOf(start)

	opTok := p.current()
	if op, ok := ast.ParseLogicalOp(opTok.Value); ok && opTok.Type == token.KEYWORD {
		node.Op = op
		p.advance()
	} else {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected AND or OR after CRI, found %s", describe(opTok)))
	}

	if p.current().IsKeyword("NOT") {
		node.Negate = true
		p.advance()
	}

	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("CRI_END"):
			end := p.advance()
			extendSpan(node.Span, end)
			return node
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"CRI block is never closed").WithHint("add CRI_END"))
		case tok.IsKeyword("CRI"):
			p.guard(p.resyncBlock, func() {
				if child := p.parseCriteria(); child != nil {
					node.Children = append(node.Children, child)
				}
			})
		case tok.IsKeyword("CTN"):
			p.guard(p.resyncBlock, func() {
				if child := p.parseCriterion(); child != nil {
					node.Children = append(node.Children, child)
				}
			})
		default:
			p.reportAndSkipLine(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"expected CTN, nested CRI, or CRI_END, found %s", describe(tok)))
		}
	}
	return node
}

// ctnSection orders the CTN body: TEST, then STATE_REFs, then OBJECT_REFs,
// then local STATEs, then at most one local OBJECT.
type ctnSection int

const (
	sectionTest ctnSection = iota
	sectionStateRefs
	sectionObjectRefs
	sectionLocalStates
	sectionLocalObject
)

func (s ctnSection) String() string {
	switch s {
	case sectionTest:
		return "TEST"
	case sectionStateRefs:
		return "STATE_REF"
	case sectionObjectRefs:
		return "OBJECT_REF"
	case sectionLocalStates:
		return "local STATE"
	case sectionLocalObject:
		return "local OBJECT"
	default:
		return "unknown"
	}
}

// parseCriterion := CTN type TEST ... { STATE_REF } { OBJECT_REF } { STATE } [OBJECT] CTN_END
//
// The element order is part of the grammar: a violation is a fatal parse
// error, not a recoverable one.
func (p *parser) parseCriterion() *ast.CriterionNode {
	p.enterDepth()
	defer p.leaveDepth()

	start := p.advance() // CTN
	node := &ast.CriterionNode{}
	node.Span = spanOf(start)
	node.Type = p.expectIdentifier("criterion type")

	p.stream.SkipNewlines()
	if !p.current().IsKeyword("TEST") {
		p.fail(diag.Errorf(diag.InvalidBlockOrdering, p.spanHere(),
			"CTN body must begin with a TEST specification, found %s", describe(p.current())))
	}
	node.Test = p.parseTestSpec()

	section := sectionStateRefs
	for !p.aborted {
		p.stream.SkipNewlines()
		tok := p.current()
		switch {
		case tok.IsKeyword("CTN_END"):
			end := p.advance()
			extendSpan(node.Span, end)
			return node
		case tok.Type == token.EOF:
			p.fail(diag.Errorf(diag.UnmatchedBlockDelimiter, p.spanHere(),
				"CTN %q is never closed", node.Type).WithHint("add CTN_END"))
		case tok.IsKeyword("TEST"):
			p.fail(diag.Errorf(diag.InvalidBlockOrdering, p.spanHere(),
				"CTN allows exactly one TEST specification"))
		case tok.IsKeyword("STATE_REF"):
			if section > sectionStateRefs {
				p.orderingError(tok, sectionStateRefs, section)
			}
			kw := p.advance()
			node.StateRefs = append(node.StateRefs, ast.StateRef{
				StateID: p.expectIdentifier("state identifier"), Span: spanOf(kw),
			})
		case tok.IsKeyword("OBJECT_REF"):
			if section > sectionObjectRefs {
				p.orderingError(tok, sectionObjectRefs, section)
			}
			section = sectionObjectRefs
			kw := p.advance()
			node.ObjectRefs = append(node.ObjectRefs, ast.ObjectRef{
				ObjectID: p.expectIdentifier("object identifier"), Span: spanOf(kw),
			})
		case tok.IsKeyword("STATE"):
			if section > sectionLocalStates {
				p.orderingError(tok, sectionLocalStates, section)
			}
			section = sectionLocalStates
			if s := p.parseStateBlock(false); s != nil {
				node.LocalStates = append(node.LocalStates, s)
			}
		case tok.IsKeyword("OBJECT"):
			if node.LocalObject != nil {
				p.fail(diag.Errorf(diag.GrammarViolation, p.spanHere(),
					"CTN allows at most one local OBJECT"))
			}
			section = sectionLocalObject
			node.LocalObject = p.parseObjectBlock(false)
		default:
			p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
				"unexpected %s inside CTN", describe(tok)))
		}
	}
	return node
}

func (p *parser) orderingError(tok token.Token, want, have ctnSection) {
	p.fail(diag.Errorf(diag.InvalidBlockOrdering, spanOf(tok),
		"%s may not appear after %s: CTN elements are ordered TEST, STATE_REF, OBJECT_REF, local STATE, local OBJECT",
		want, have))
}

// parseTestSpec := TEST existence item [state_op] [entity_check]
func (p *parser) parseTestSpec() ast.TestSpec {
	start := p.advance() // TEST
	spec := ast.TestSpec{Span: spanOf(start)}

	existTok := p.current()
	if ec, ok := ast.ParseExistenceCheck(existTok.Value); ok && existTok.Type == token.KEYWORD {
		spec.Existence = ec
		p.advance()
	} else {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected an existence check (any, all, none, at_least_one, only_one), found %s",
			describe(existTok)))
	}

	itemTok := p.current()
	if ic, ok := ast.ParseItemCheck(itemTok.Value); ok && itemTok.Type == token.KEYWORD {
		spec.Item = ic
		p.advance()
	} else {
		p.fail(diag.Errorf(diag.UnexpectedToken, p.spanHere(),
			"expected an item check (all, at_least_one, only_one, none_satisfy), found %s",
			describe(itemTok)))
	}

	if tok := p.current(); tok.Type == token.KEYWORD {
		if so, ok := ast.ParseStateJoinOp(tok.Value); ok {
			spec.StateOp = &so
			p.advance()
		}
	}
	if ec, ok := p.tryEntityCheck(); ok {
		spec.EntityCheck = &ec
	}
	return spec
}
