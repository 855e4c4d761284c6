package resolver

import (
	"errors"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
	"github.com/esplang/espc/symbols"
	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrResolutionFailed = errors.New("resolution failed")
)

// Resolve takes the validated AST and produces the Execution Context.
// Diagnostics go to sink; the returned context is nil when resolution
// recorded any error.
func Resolve(file *ast.EspFile, tables *symbols.Tables, sink *diag.Collector) *execctx.ExecutionContext {
	e := &engine{
		file:        file,
		tables:      tables,
		sink:        sink,
		resolved:    map[string]value{},
		assigned:    map[string]bool{},
		runByTarget: map[string]*ast.RunBlock{},
		memoStates:  map[*ast.StateDecl]*execctx.ResolvedState{},
		memoObjects: map[*ast.ObjectDecl]*execctx.ResolvedObject{},
	}

	before := sink.ErrorCount()
	ctx := e.run()
	if sink.ErrorCount() > before {
		return nil
	}
	return ctx
}

type engine struct {
	file   *ast.EspFile
	tables *symbols.Tables
	sink   *diag.Collector

	resolved    map[string]value
	assigned    map[string]bool
	runByTarget map[string]*ast.RunBlock
	deferred    []execctx.DeferredOperation

	memoStates  map[*ast.StateDecl]*execctx.ResolvedState
	memoObjects map[*ast.ObjectDecl]*execctx.ResolvedObject
}

func (e *engine) errorAt(code diag.Code, span *token.Span, format string, args ...any) {
	e.sink.Add(diag.Errorf(code, span, format, args...))
}

func (e *engine) run() *execctx.ExecutionContext {
	def := e.file.Def
	if def == nil {
		return nil
	}

	for _, r := range def.Runs {
		e.runByTarget[r.Target] = r
	}

	order, ok := e.buildOrder()
	if !ok {
		return nil
	}
	e.resolveInOrder(order)

	ctx := &execctx.ExecutionContext{
		FormatVersion: execctx.FormatVersion,
	}

	// Metadata round-trips in declared order.
	if e.file.Meta != nil {
		for _, f := range e.file.Meta.Fields {
			ctx.Meta = append(ctx.Meta, execctx.MetaField{Name: f.Name, Value: metaValue(f.Value)})
		}
	}

	// Variables in source declaration order: explicit VARs first, then
	// implicit RUN targets not covered by a VAR.
	for _, sym := range e.tables.Global.Variables() {
		if v, ok := e.resolved[sym.Name]; ok && e.assigned[sym.Name] {
			ctx.Variables = append(ctx.Variables, execctx.VariableEntry{Name: sym.Name, Value: v.export()})
		}
	}
	for _, sym := range e.tables.Global.RunTargets() {
		if _, isVar := e.tables.Global.Variable(sym.Name); isVar {
			continue
		}
		if v, ok := e.resolved[sym.Name]; ok {
			ctx.Variables = append(ctx.Variables, execctx.VariableEntry{Name: sym.Name, Value: v.export()})
		}
	}

	// Global states and objects, substituted and memoized.
	for _, sym := range e.tables.Global.States() {
		decl, ok := sym.Decl.(*ast.StateDecl)
		if !ok {
			continue
		}
		ctx.States = append(ctx.States, execctx.StateEntry{ID: sym.Name, State: e.resolveState(decl)})
	}
	for _, sym := range e.tables.Global.Objects() {
		decl, ok := sym.Decl.(*ast.ObjectDecl)
		if !ok {
			continue
		}
		ctx.Objects = append(ctx.Objects, execctx.ObjectEntry{ID: sym.Name, Object: e.resolveObject(decl)})
	}

	// Set expansion: audit entries plus the criteria forest rewrite.
	ex := newExpander(e)
	ctx.Sets = ex.auditSets()
	for _, cri := range def.Criteria {
		if node := ex.criteriaNode(cri); node != nil {
			ctx.Criteria = append(ctx.Criteria, node)
		}
	}

	ctx.Deferred = e.deferred
	return ctx
}

// buildOrder constructs the dependency DAG and returns the deterministic
// topological order.
func (e *engine) buildOrder() ([]string, bool) {
	g := newDepGraph()
	for _, sym := range e.tables.Global.Variables() {
		g.addNode(sym.Name, nodeVariable, sym.SourceOrder)
	}
	for _, sym := range e.tables.Global.RunTargets() {
		g.addNode(sym.Name, nodeRunTarget, sym.SourceOrder)
	}
	for _, edge := range e.tables.Graph.Edges() {
		if edge.Ref != symbols.RefVariable || edge.From == "" {
			continue
		}
		if edge.FromKind != symbols.KindVariable && edge.FromKind != symbols.KindRunTarget {
			continue
		}
		g.addDep(edge.From, edge.To)
	}

	order, err := g.topoSort()
	if err != nil {
		// Cycles are caught by reference validation; reaching this means the
		// caller skipped that pass.
		e.errorAt(diag.CircularDependency, nil, "dependency graph is cyclic: %v", err)
		return nil, false
	}
	return order, true
}

// resolveInOrder walks the topological order and resolves each node.
func (e *engine) resolveInOrder(order []string) {
	for _, name := range order {
		if run, ok := e.runByTarget[name]; ok {
			e.resolved[name] = e.evalRun(run)
			e.assigned[name] = true
			continue
		}
		sym, ok := e.tables.Global.Variable(name)
		if !ok {
			continue
		}
		decl, ok := sym.Decl.(*ast.VariableDecl)
		if !ok {
			continue
		}
		e.resolveVariable(decl)
	}
}

func (e *engine) resolveVariable(decl *ast.VariableDecl) {
	if decl.Initial == nil {
		// Declared but never assigned. Only an error when something actually
		// reads the variable.
		if e.isReferenced(decl.Name) {
			e.errorAt(diag.UnresolvedReference, decl.Span,
				"variable %q is referenced but has no initializer and no RUN assignment", decl.Name)
		}
		return
	}

	var v value
	if decl.Initial.IsVarRef() {
		dep, ok := e.resolved[decl.Initial.Var]
		if !ok {
			e.errorAt(diag.UnresolvedReference, decl.Span,
				"variable %q copies VAR %q, which has no resolved value", decl.Name, decl.Initial.Var)
			return
		}
		v = dep
	} else {
		lit, err := fromLiteral(*decl.Initial)
		if err != nil {
			e.errorAt(diag.ResolutionError, decl.Span, "variable %q: %v", decl.Name, err)
			return
		}
		v = lit
	}

	converted, ok := v.convertTo(decl.Type)
	if !ok {
		e.errorAt(diag.ResolutionError, decl.Span,
			"variable %q is declared %s but resolves to %s", decl.Name, decl.Type, v.typeName())
		return
	}
	e.resolved[decl.Name] = converted
	e.assigned[decl.Name] = true
}

// isReferenced reports whether any reference edge targets the name.
func (e *engine) isReferenced(name string) bool {
	for _, edge := range e.tables.Graph.Edges() {
		if edge.Ref == symbols.RefVariable && edge.To == name {
			return true
		}
	}
	return false
}

// lookupValue fetches the resolved value of a variable reference during
// substitution.
func (e *engine) lookupValue(name string, span *token.Span) (value, bool) {
	v, ok := e.resolved[name]
	if !ok {
		e.errorAt(diag.UnresolvedReference, span,
			"VAR %q has no resolved value", name)
		return value{}, false
	}
	return v, true
}

func metaValue(v ast.Value) any {
	switch v.Kind {
	case ast.IntValueKind:
		return v.Int
	case ast.FloatValueKind:
		return v.Float
	case ast.BoolValueKind:
		return v.Bool
	default:
		return v.Str
	}
}
