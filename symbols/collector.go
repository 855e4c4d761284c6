package symbols

import (
	"fmt"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

// Tables is the output of symbol discovery: the global table, one local table
// per CTN (in forest order), and the reference graph.
type Tables struct {
	Global *GlobalTable
	Locals []*LocalTable
	Graph  *ReferenceGraph

	// localByNode maps each criterion node to its local table.
	localByNode map[*ast.CriterionNode]*LocalTable
}

// Local returns the local table of a criterion node.
func (t *Tables) Local(ctn *ast.CriterionNode) (*LocalTable, bool) {
	lt, ok := t.localByNode[ctn]
	return lt, ok
}

// Collect walks the AST, builds the symbol tables, and records symbol
// relationships. Duplicate and scope errors are reported into sink; the
// returned tables are usable for limit accounting even when errors occurred.
func Collect(file *ast.EspFile, sink *diag.Collector) *Tables {
	c := &collector{
		tables: &Tables{
			Global:      NewGlobalTable(),
			Graph:       NewReferenceGraph(),
			localByNode: map[*ast.CriterionNode]*LocalTable{},
		},
		sink: sink,
	}
	c.run(file)
	return c.tables
}

type collector struct {
	tables    *Tables
	sink      *diag.Collector
	order     int
	ctnSerial int
}

func (c *collector) nextOrder() int {
	c.order++
	return c.order
}

func (c *collector) run(file *ast.EspFile) {
	def := file.Def
	if def == nil {
		return
	}

	// Declarations first: forward references are legal, so every name must be
	// known before any reference is followed.
	for _, v := range def.Variables {
		c.declareGlobal(KindVariable, v.Name, v.Span, v)
	}
	for _, s := range def.States {
		c.declareGlobal(KindState, s.ID, s.Span, s)
	}
	for _, o := range def.Objects {
		c.declareGlobal(KindObject, o.ID, o.Span, o)
	}
	for _, s := range def.Sets {
		c.declareGlobal(KindSet, s.ID, s.Span, s)
	}
	for _, o := range def.Objects {
		c.collectInlineSets(o)
	}
	for _, s := range def.Sets {
		c.declareInlineOperands(s)
	}
	for _, r := range def.Runs {
		c.declareRunTarget(r)
	}

	// Relationship edges.
	for _, v := range def.Variables {
		if v.Initial != nil && v.Initial.IsVarRef() {
			c.edge(v.Name, KindVariable, v.Initial.Var, RefVariable, v)
		}
	}
	for _, s := range def.States {
		c.collectStateRefs(s.ID, KindState, s)
	}
	for _, o := range def.Objects {
		c.collectObjectRefs(o.ID, KindObject, o)
	}
	for _, r := range def.Runs {
		c.collectRunRefs(r)
	}
	for _, s := range def.Sets {
		c.collectSetRefs(s)
	}
	for _, cri := range def.Criteria {
		c.collectCriteria(cri)
	}
}

func (c *collector) declareGlobal(kind Kind, name string, span *token.Span, decl any) {
	if token.IsReservedKeyword(name) {
		// The lexer rejects this already; re-check in case a future surface
		// feeds the collector a hand-built AST.
		c.sink.Add(diag.Errorf(diag.ReservedKeywordIdentifier, span,
			"reserved keyword %q cannot be declared as a %s", name, kind))
		return
	}

	sym := &Symbol{Name: name, Kind: kind, Span: span, Decl: decl, SourceOrder: c.nextOrder()}
	var err error
	switch kind {
	case KindVariable:
		err = c.tables.Global.DeclareVariable(sym)
	case KindState:
		err = c.tables.Global.DeclareState(sym)
	case KindObject:
		err = c.tables.Global.DeclareObject(sym)
	case KindSet:
		err = c.tables.Global.DeclareSet(sym)
	}
	if err != nil {
		c.sink.Add(diag.Errorf(diag.DuplicateSymbol, span,
			"%s %q is declared more than once", kind, name).
			WithHint("rename one of the declarations"))
	}
}

// collectInlineSets promotes inline SET definitions inside object bodies to
// the global set namespace; they are referenceable like any other set.
func (c *collector) collectInlineSets(o *ast.ObjectDecl) {
	for _, el := range o.Elements {
		if inline, ok := el.(*ast.InlineSetObjectElement); ok {
			c.declareGlobal(KindSet, inline.Set.ID, inline.Set.Span, inline.Set)
		}
	}
}

// declareInlineOperands promotes objects defined inline as set operands to
// the global object namespace: set expansion replaces set references with
// concrete object identifiers, so every contributed object must be
// addressable.
func (c *collector) declareInlineOperands(s *ast.SetDecl) {
	for i := range s.Operands {
		if op := &s.Operands[i]; op.Kind == ast.InlineObjectOperand {
			c.declareGlobal(KindObject, op.Object.ID, op.Object.Span, op.Object)
			c.collectInlineSets(op.Object)
		}
	}
}

func (c *collector) declareRunTarget(r *ast.RunBlock) {
	sym := &Symbol{Name: r.Target, Kind: KindRunTarget, Span: r.Span, Decl: r, SourceOrder: c.nextOrder()}
	if err := c.tables.Global.DeclareRunTarget(sym); err != nil {
		c.sink.Add(diag.Errorf(diag.DuplicateSymbol, r.Span,
			"run target %q is assigned by more than one RUN block", r.Target))
	}
}

func (c *collector) edge(from string, fromKind Kind, to string, ref RefKind, site any) {
	c.tables.Graph.Add(Edge{From: from, FromKind: fromKind, To: to, Ref: ref, Site: site})
}

func (c *collector) collectStateRefs(owner string, ownerKind Kind, s *ast.StateDecl) {
	for _, f := range s.Fields {
		if f.Value.IsVarRef() {
			c.edge(owner, ownerKind, f.Value.Var, RefVariable, f)
		}
	}
	var walkRecord func(rc *ast.RecordCheck)
	walkRecord = func(rc *ast.RecordCheck) {
		if rc.Direct != nil && rc.Direct.Value.IsVarRef() {
			c.edge(owner, ownerKind, rc.Direct.Value.Var, RefVariable, rc)
		}
		for _, f := range rc.Fields {
			if f.Value.IsVarRef() {
				c.edge(owner, ownerKind, f.Value.Var, RefVariable, f)
			}
		}
		for _, nested := range rc.Nested {
			walkRecord(nested)
		}
	}
	for _, rc := range s.RecordChecks {
		walkRecord(rc)
	}
}

func (c *collector) collectObjectRefs(owner string, ownerKind Kind, o *ast.ObjectDecl) {
	for _, el := range o.Elements {
		switch e := el.(type) {
		case *ast.FieldObjectElement:
			if e.Value.IsVarRef() {
				c.edge(owner, ownerKind, e.Value.Var, RefVariable, e)
			}
		case *ast.ParamsObjectElement:
			for _, f := range e.Fields {
				if f.Value.IsVarRef() {
					c.edge(owner, ownerKind, f.Value.Var, RefVariable, f)
				}
			}
		case *ast.SelectObjectElement:
			for _, f := range e.Fields {
				if f.Value.IsVarRef() {
					c.edge(owner, ownerKind, f.Value.Var, RefVariable, f)
				}
			}
		case *ast.FilterObjectElement:
			for _, ref := range e.Filter.StateRefs {
				c.edge(owner, ownerKind, ref.StateID, RefState, e.Filter)
			}
		case *ast.SetRefObjectElement:
			c.edge(owner, ownerKind, e.SetID, RefSet, e)
		case *ast.RecordObjectElement:
			// record checks inside objects may also carry variable values
			c.collectStateRefs(owner, ownerKind, &ast.StateDecl{RecordChecks: []*ast.RecordCheck{e.Check}})
		case *ast.InlineSetObjectElement:
			c.collectSetRefs(e.Set)
		}
	}
}

func (c *collector) collectRunRefs(r *ast.RunBlock) {
	for i := range r.Params {
		p := &r.Params[i]
		switch p.Kind {
		case ast.VariableParam:
			c.edge(r.Target, KindRunTarget, p.Name, RefVariable, p)
		case ast.ObjectExtractionParam:
			c.edge(r.Target, KindRunTarget, p.ObjectID, RefObjectField, p)
		case ast.LiteralParam, ast.ArithmeticParam:
			if p.Value.IsVarRef() {
				c.edge(r.Target, KindRunTarget, p.Value.Var, RefVariable, p)
			}
		}
	}
}

func (c *collector) collectSetRefs(s *ast.SetDecl) {
	for i := range s.Operands {
		op := &s.Operands[i]
		switch op.Kind {
		case ast.ObjectRefOperand, ast.FilteredOperand:
			c.edge(s.ID, KindSet, op.ObjectID, RefObject, op)
			if op.Filter != nil {
				for _, ref := range op.Filter.StateRefs {
					c.edge(s.ID, KindSet, ref.StateID, RefState, op.Filter)
				}
			}
		case ast.SetRefOperand:
			c.edge(s.ID, KindSet, op.SetID, RefSet, op)
		case ast.InlineObjectOperand:
			c.collectObjectRefs(s.ID, KindSet, op.Object)
		}
	}
	if s.Filter != nil {
		for _, ref := range s.Filter.StateRefs {
			c.edge(s.ID, KindSet, ref.StateID, RefState, s.Filter)
		}
	}
}

func (c *collector) collectCriteria(node *ast.CriteriaNode) {
	for _, child := range node.Children {
		switch n := child.(type) {
		case *ast.CriteriaNode:
			c.collectCriteria(n)
		case *ast.CriterionNode:
			c.collectCriterion(n)
		}
	}
}

func (c *collector) collectCriterion(ctn *ast.CriterionNode) {
	c.ctnSerial++
	local := NewLocalTable(fmt.Sprintf("%s#%d", ctn.Type, c.ctnSerial))
	c.tables.Locals = append(c.tables.Locals, local)
	c.tables.localByNode[ctn] = local

	for _, ref := range ctn.StateRefs {
		c.edge("", KindState, ref.StateID, RefState, ctn)
	}
	for _, ref := range ctn.ObjectRefs {
		c.edge("", KindObject, ref.ObjectID, RefObject, ctn)
	}

	for _, s := range ctn.LocalStates {
		sym := &Symbol{Name: s.ID, Kind: KindLocalState, Span: s.Span, Decl: s, SourceOrder: c.nextOrder()}
		if err := local.DeclareState(sym); err != nil {
			c.sink.Add(diag.Errorf(diag.DuplicateSymbol, s.Span,
				"local state %q is declared more than once in CTN %q", s.ID, ctn.Type))
		}
		c.collectStateRefs("", KindLocalState, s)
	}
	if obj := ctn.LocalObject; obj != nil {
		sym := &Symbol{Name: obj.ID, Kind: KindLocalObject, Span: obj.Span, Decl: obj, SourceOrder: c.nextOrder()}
		if err := local.DeclareObject(sym); err != nil {
			c.sink.Add(diag.Errorf(diag.MultipleLocalObjects, obj.Span,
				"CTN %q declares more than one local object", ctn.Type))
		}
		c.collectObjectRefs("", KindLocalObject, obj)
	}
}
