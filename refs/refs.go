// Package refs validates every reference in the AST against the symbol
// tables and detects dependency cycles among variables and RUN targets.
package refs

import (
	"errors"
	"strings"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/symbols"
	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrUndefinedReference = errors.New("undefined reference")
	ErrCircularDependency = errors.New("circular dependency")
)

// Options configure reference validation.
type Options struct {
	MaxReportedCycles int
}

// DefaultOptions returns the production options.
func DefaultOptions() Options {
	return Options{MaxReportedCycles: 10}
}

// Validate checks every reference kind against the correct scope and runs
// cycle detection over the variable/RUN dependency graph. Diagnostics go to
// sink; the pass is pure with respect to the AST.
func Validate(file *ast.EspFile, tables *symbols.Tables, opts Options, sink *diag.Collector) {
	v := &validator{file: file, tables: tables, opts: opts, sink: sink}
	v.run()
}

type validator struct {
	file   *ast.EspFile
	tables *symbols.Tables
	opts   Options
	sink   *diag.Collector
}

func (v *validator) run() {
	def := v.file.Def
	if def == nil {
		return
	}

	for _, vd := range def.Variables {
		if vd.Initial != nil && vd.Initial.IsVarRef() {
			v.checkVarRef(vd.Initial.Var, vd.Span)
		}
	}
	for _, s := range def.States {
		v.checkStateValues(s)
	}
	for _, o := range def.Objects {
		v.checkObjectElements(o)
	}
	for _, r := range def.Runs {
		v.checkRunParams(r)
	}
	for _, s := range def.Sets {
		v.checkSetOperands(s)
	}
	for _, cri := range def.Criteria {
		v.checkCriteria(cri)
	}

	v.detectCycles()
}

func (v *validator) checkVarRef(name string, span *token.Span) {
	if _, ok := v.tables.Global.VariableOrTarget(name); !ok {
		v.sink.Add(diag.Errorf(diag.UndefinedReference, span,
			"VAR %q does not resolve to a declared variable or RUN target", name).
			With("reference", "VAR "+name))
	}
}

func (v *validator) checkStateRef(ref ast.StateRef) {
	if _, ok := v.tables.Global.State(ref.StateID); !ok {
		if kind, found := v.kindOf(ref.StateID); found {
			v.sink.Add(diag.Errorf(diag.ReferenceKindMismatch, ref.Span,
				"STATE_REF %q resolves to a %s, not a state", ref.StateID, kind).
				With("reference", "STATE_REF "+ref.StateID))
			return
		}
		v.sink.Add(diag.Errorf(diag.UndefinedReference, ref.Span,
			"STATE_REF %q does not resolve to a global state", ref.StateID).
			With("reference", "STATE_REF "+ref.StateID).
			WithHint("local states of a CTN are not addressable by STATE_REF"))
	}
}

func (v *validator) checkObjectRef(ref ast.ObjectRef) {
	if _, ok := v.tables.Global.Object(ref.ObjectID); !ok {
		if kind, found := v.kindOf(ref.ObjectID); found {
			v.sink.Add(diag.Errorf(diag.ReferenceKindMismatch, ref.Span,
				"OBJECT_REF %q resolves to a %s, not an object", ref.ObjectID, kind).
				With("reference", "OBJECT_REF "+ref.ObjectID))
			return
		}
		v.sink.Add(diag.Errorf(diag.UndefinedReference, ref.Span,
			"OBJECT_REF %q does not resolve to a global object", ref.ObjectID).
			With("reference", "OBJECT_REF "+ref.ObjectID))
	}
}

func (v *validator) checkSetRef(setID string, span *token.Span) {
	if _, ok := v.tables.Global.Set(setID); !ok {
		if kind, found := v.kindOf(setID); found {
			v.sink.Add(diag.Errorf(diag.ReferenceKindMismatch, span,
				"SET_REF %q resolves to a %s, not a set", setID, kind).
				With("reference", "SET_REF "+setID))
			return
		}
		v.sink.Add(diag.Errorf(diag.UndefinedReference, span,
			"SET_REF %q does not resolve to a declared set", setID).
			With("reference", "SET_REF "+setID))
	}
}

// kindOf finds what kind a name resolves to in any global namespace; used to
// tell a misdirected reference apart from an undefined one.
func (v *validator) kindOf(name string) (symbols.Kind, bool) {
	if sym, ok := v.tables.Global.Variable(name); ok {
		return sym.Kind, true
	}
	if sym, ok := v.tables.Global.State(name); ok {
		return sym.Kind, true
	}
	if sym, ok := v.tables.Global.Object(name); ok {
		return sym.Kind, true
	}
	if sym, ok := v.tables.Global.Set(name); ok {
		return sym.Kind, true
	}
	if sym, ok := v.tables.Global.RunTarget(name); ok {
		return sym.Kind, true
	}
	return 0, false
}

// checkFilter enforces that filters only gate on global states.
func (v *validator) checkFilter(f *ast.FilterSpec) {
	if f == nil {
		return
	}
	for _, ref := range f.StateRefs {
		if _, ok := v.tables.Global.State(ref.StateID); !ok {
			v.sink.Add(diag.Errorf(diag.FilterStateNotGlobal, ref.Span,
				"filter references %q, which is not a global state", ref.StateID).
				WithHint("filters may only reference states declared at DEF level"))
		}
	}
}

func (v *validator) checkStateValues(s *ast.StateDecl) {
	for _, f := range s.Fields {
		if f.Value.IsVarRef() {
			v.checkVarRef(f.Value.Var, f.Span)
		}
	}
	var walk func(rc *ast.RecordCheck)
	walk = func(rc *ast.RecordCheck) {
		if rc.Direct != nil && rc.Direct.Value.IsVarRef() {
			v.checkVarRef(rc.Direct.Value.Var, rc.Span)
		}
		for _, f := range rc.Fields {
			if f.Value.IsVarRef() {
				v.checkVarRef(f.Value.Var, f.Span)
			}
		}
		for _, nested := range rc.Nested {
			walk(nested)
		}
	}
	for _, rc := range s.RecordChecks {
		walk(rc)
	}
}

func (v *validator) checkObjectElements(o *ast.ObjectDecl) {
	for _, el := range o.Elements {
		switch e := el.(type) {
		case *ast.FieldObjectElement:
			if e.Value.IsVarRef() {
				v.checkVarRef(e.Value.Var, e.Span)
			}
		case *ast.ParamsObjectElement:
			for _, f := range e.Fields {
				if f.Value.IsVarRef() {
					v.checkVarRef(f.Value.Var, f.Span)
				}
			}
		case *ast.SelectObjectElement:
			for _, f := range e.Fields {
				if f.Value.IsVarRef() {
					v.checkVarRef(f.Value.Var, f.Span)
				}
			}
		case *ast.FilterObjectElement:
			v.checkFilter(e.Filter)
		case *ast.SetRefObjectElement:
			v.checkSetRef(e.SetID, e.Span)
		case *ast.InlineSetObjectElement:
			v.checkSetOperands(e.Set)
		}
	}
}

func (v *validator) checkRunParams(r *ast.RunBlock) {
	for i := range r.Params {
		p := &r.Params[i]
		switch p.Kind {
		case ast.VariableParam:
			v.checkVarRef(p.Name, p.Span)
		case ast.LiteralParam, ast.ArithmeticParam:
			if p.Value.IsVarRef() {
				v.checkVarRef(p.Value.Var, p.Span)
			}
		case ast.ObjectExtractionParam:
			// OBJ id field is only legal inside RUN and must name a global
			// object carrying the field.
			obj, ok := v.tables.Global.Object(p.ObjectID)
			if !ok {
				v.sink.Add(diag.Errorf(diag.UndefinedReference, p.Span,
					"OBJ %q does not resolve to a global object", p.ObjectID).
					With("reference", "OBJ "+p.ObjectID+" "+p.Field))
				continue
			}
			if decl, ok := obj.Decl.(*ast.ObjectDecl); ok && !objectHasField(decl, p.Field) {
				v.sink.Add(diag.Errorf(diag.UndefinedReference, p.Span,
					"object %q has no field %q", p.ObjectID, p.Field).
					With("reference", "OBJ "+p.ObjectID+" "+p.Field))
			}
		}
	}
}

func objectHasField(o *ast.ObjectDecl, field string) bool {
	for _, el := range o.Elements {
		switch e := el.(type) {
		case *ast.FieldObjectElement:
			if e.Name == field {
				return true
			}
		case *ast.ParamsObjectElement:
			for _, f := range e.Fields {
				if f.Name == field {
					return true
				}
			}
		case *ast.SelectObjectElement:
			for _, f := range e.Fields {
				if f.Name == field {
					return true
				}
			}
		}
	}
	return false
}

func (v *validator) checkSetOperands(s *ast.SetDecl) {
	for i := range s.Operands {
		op := &s.Operands[i]
		switch op.Kind {
		case ast.ObjectRefOperand, ast.FilteredOperand:
			v.checkObjectRef(ast.ObjectRef{ObjectID: op.ObjectID, Span: op.Span})
			v.checkFilter(op.Filter)
		case ast.SetRefOperand:
			v.checkSetRef(op.SetID, op.Span)
		case ast.InlineObjectOperand:
			v.checkObjectElements(op.Object)
		}
	}
	v.checkFilter(s.Filter)
}

func (v *validator) checkCriteria(node *ast.CriteriaNode) {
	for _, child := range node.Children {
		switch n := child.(type) {
		case *ast.CriteriaNode:
			v.checkCriteria(n)
		case *ast.CriterionNode:
			for _, ref := range n.StateRefs {
				v.checkStateRef(ref)
			}
			for _, ref := range n.ObjectRefs {
				v.checkObjectRef(ref)
			}
			for _, s := range n.LocalStates {
				v.checkStateValues(s)
			}
			if n.LocalObject != nil {
				v.checkObjectElements(n.LocalObject)
			}
		}
	}
}

// detectCycles enumerates cycles in the dependency graph over variable
// initializers and RUN parameters. Every distinct cycle up to the configured
// maximum is reported with its node path.
func (v *validator) detectCycles() {
	adj := map[string][]string{}
	var order []string
	seenNode := map[string]bool{}

	addNode := func(name string) {
		if !seenNode[name] {
			seenNode[name] = true
			order = append(order, name)
		}
	}

	for _, e := range v.tables.Graph.Edges() {
		if e.Ref != symbols.RefVariable {
			continue
		}
		if e.FromKind != symbols.KindVariable && e.FromKind != symbols.KindRunTarget {
			continue
		}
		if _, ok := v.tables.Global.VariableOrTarget(e.To); !ok {
			continue
		}
		addNode(e.From)
		addNode(e.To)
		adj[e.From] = append(adj[e.From], e.To)
	}

	reported := 0
	seenCycle := map[string]bool{}

	var path []string
	onPath := map[string]bool{}
	done := map[string]bool{}

	var dfs func(name string)
	dfs = func(name string) {
		if reported >= v.opts.MaxReportedCycles {
			return
		}
		path = append(path, name)
		onPath[name] = true
		for _, next := range adj[name] {
			if onPath[next] {
				cycle := extractCycle(path, next)
				key := cycleKey(cycle)
				if !seenCycle[key] && reported < v.opts.MaxReportedCycles {
					seenCycle[key] = true
					reported++
					v.reportCycle(cycle)
				}
				continue
			}
			if !done[next] {
				dfs(next)
			}
		}
		onPath[name] = false
		path = path[:len(path)-1]
		done[name] = true
	}

	for _, name := range order {
		if !done[name] {
			dfs(name)
		}
	}
}

// extractCycle slices the DFS path from the first occurrence of start and
// closes the loop, e.g. [a b a].
func extractCycle(path []string, start string) []string {
	for i, name := range path {
		if name == start {
			cycle := append([]string{}, path[i:]...)
			return append(cycle, start)
		}
	}
	return []string{start, start}
}

// cycleKey canonicalizes a cycle so rotations of the same loop dedupe.
func cycleKey(cycle []string) string {
	if len(cycle) < 2 {
		return strings.Join(cycle, ">")
	}
	nodes := cycle[:len(cycle)-1]
	min := 0
	for i := range nodes {
		if nodes[i] < nodes[min] {
			min = i
		}
	}
	rotated := make([]string, 0, len(nodes))
	rotated = append(rotated, nodes[min:]...)
	rotated = append(rotated, nodes[:min]...)
	return strings.Join(rotated, ">")
}

func (v *validator) reportCycle(cycle []string) {
	var span *token.Span
	if sym, ok := v.tables.Global.VariableOrTarget(cycle[0]); ok {
		span = sym.Span
	}
	v.sink.Add(diag.Errorf(diag.CircularDependency, span,
		"circular dependency between variables: %s", strings.Join(cycle, " -> ")).
		With("cycle", strings.Join(cycle, " -> ")).
		WithHint("break the loop by giving one variable a literal initializer"))
}
