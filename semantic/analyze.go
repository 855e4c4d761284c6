package semantic

import (
	"errors"
	"fmt"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/symbols"
	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrTypeIncompatibility = errors.New("type incompatibility")
	ErrAnalysisAborted     = errors.New("semantic analysis aborted at error cap")
)

// Options configure semantic analysis.
type Options struct {
	MaxErrors      int
	MaxSetOperands int
}

// DefaultOptions returns the production options.
func DefaultOptions() Options {
	return Options{MaxErrors: 1000, MaxSetOperands: 100}
}

// Analyze runs every semantic check over the validated AST. Errors accumulate
// into sink up to the configured cap.
func Analyze(file *ast.EspFile, tables *symbols.Tables, opts Options, sink *diag.Collector) {
	a := &analyzer{
		file:   file,
		tables: tables,
		opts:   opts,
		sink:   sink,
		types:  newTypeResolver(tables),
	}
	a.run()
}

type analyzer struct {
	file    *ast.EspFile
	tables  *symbols.Tables
	opts    Options
	sink    *diag.Collector
	types   *typeResolver
	errors  int
	stopped bool
}

func (a *analyzer) report(d *diag.Diagnostic) {
	if a.stopped {
		return
	}
	if d.Severity == diag.SeverityError {
		a.errors++
		if a.opts.MaxErrors > 0 && a.errors > a.opts.MaxErrors {
			a.stopped = true
			a.sink.Add(diag.Errorf(diag.InternalError, nil,
				"stopping semantic analysis after %d errors", a.opts.MaxErrors))
			return
		}
	}
	a.sink.Add(d)
}

func (a *analyzer) run() {
	def := a.file.Def
	if def == nil {
		return
	}

	for _, s := range def.States {
		a.checkState(s)
	}
	for _, o := range def.Objects {
		a.checkObject(o)
	}
	for _, r := range def.Runs {
		a.checkRun(r)
	}
	for _, s := range def.Sets {
		a.checkSet(s)
	}
	for _, cri := range def.Criteria {
		a.checkCriteria(cri)
	}
}

// checkState validates every field against the compatibility matrix and
// types the right-hand side.
func (a *analyzer) checkState(s *ast.StateDecl) {
	for _, f := range s.Fields {
		a.checkFieldOperation(f.Name, f.Type, f.Op, f.Value, f.Span)
	}
	var walk func(rc *ast.RecordCheck)
	walk = func(rc *ast.RecordCheck) {
		if rc.Direct != nil {
			t := ast.TypeRecord
			if rc.Type != nil {
				t = *rc.Type
			}
			a.checkFieldOperation("record", t, rc.Direct.Op, rc.Direct.Value, rc.Span)
		}
		for _, f := range rc.Fields {
			a.checkFieldOperation(f.Path.String(), f.Type, f.Op, f.Value, f.Span)
		}
		for _, nested := range rc.Nested {
			walk(nested)
		}
	}
	for _, rc := range s.RecordChecks {
		walk(rc)
	}
}

// checkFieldOperation enforces the matrix plus the value-side rules: the
// right-hand side must match the declared field type, and collection
// operations require a collection-valued reference.
func (a *analyzer) checkFieldOperation(fieldName string, t ast.DataType, op ast.Operation, value ast.Value, span *token.Span) {
	if !Compatible(t, op) {
		a.report(diag.Errorf(diag.TypeIncompatibility, span,
			"operation %q cannot be applied to field %q of type %s", op, fieldName, t).
			With("field", fieldName).
			With("type", t.String()).
			With("operation", op.String()).
			WithHint(fmt.Sprintf("supported operations for %s: %s", t, opsText(t))))
		return
	}

	if op.IsCollection() {
		// subset_of / superset_of need a collection on the right-hand side,
		// which only a variable reference can supply.
		if !value.IsVarRef() {
			a.report(diag.Errorf(diag.TypeIncompatibility, span,
				"%q requires a collection-valued variable reference on the right-hand side", op).
				With("field", fieldName))
			return
		}
		vt := a.types.variableType(value.Var)
		if !vt.Unknown && !vt.Collection {
			a.report(diag.Errorf(diag.TypeIncompatibility, span,
				"%q requires a collection, but VAR %q resolves to %s", op, value.Var, vt).
				With("field", fieldName))
		}
		return
	}

	vt := a.types.valueType(value)
	if vt.Unknown {
		return
	}
	if vt.Collection {
		a.report(diag.Errorf(diag.TypeIncompatibility, span,
			"field %q of type %s cannot be compared against collection value", fieldName, t).
			With("field", fieldName))
		return
	}
	if !typesAgree(t, vt.Base) {
		a.report(diag.Errorf(diag.TypeIncompatibility, span,
			"field %q is declared %s but its value is %s", fieldName, t, vt.Base).
			With("field", fieldName).
			With("declared", t.String()).
			With("actual", vt.Base.String()))
	}
}

// typesAgree checks declared-vs-value type agreement. The numeric pair is
// mutually convertible; version and evr_string values are written as string
// literals.
func typesAgree(declared, actual ast.DataType) bool {
	if declared == actual {
		return true
	}
	if declared.IsNumeric() && actual.IsNumeric() {
		return true
	}
	switch declared {
	case ast.TypeVersion, ast.TypeEvrString, ast.TypeBinary:
		return actual == ast.TypeString
	}
	return false
}

func opsText(t ast.DataType) string {
	ops := SupportedOperations(t)
	out := ""
	for i, op := range ops {
		if i > 0 {
			out += ", "
		}
		out += op.String()
	}
	return out
}

func (a *analyzer) checkObject(o *ast.ObjectDecl) {
	for _, el := range o.Elements {
		switch e := el.(type) {
		case *ast.RecordObjectElement:
			a.checkState(&ast.StateDecl{ID: o.ID, RecordChecks: []*ast.RecordCheck{e.Check}})
		case *ast.InlineSetObjectElement:
			a.checkSet(e.Set)
		case *ast.FilterObjectElement:
			a.checkFilterStates(e.Filter)
		}
	}
}

// checkFilterStates re-verifies that filter state references resolve to
// global states (reference validation reports the authoritative error; this
// keeps the semantic pass self-contained for direct callers).
func (a *analyzer) checkFilterStates(f *ast.FilterSpec) {
	if f == nil {
		return
	}
	for _, ref := range f.StateRefs {
		if _, ok := a.tables.Global.State(ref.StateID); !ok {
			a.report(diag.Errorf(diag.FilterValidationError, ref.Span,
				"filter state %q is not a global state", ref.StateID))
		}
	}
}

func (a *analyzer) checkCriteria(node *ast.CriteriaNode) {
	for _, child := range node.Children {
		switch n := child.(type) {
		case *ast.CriteriaNode:
			a.checkCriteria(n)
		case *ast.CriterionNode:
			for _, s := range n.LocalStates {
				a.checkState(s)
			}
			if n.LocalObject != nil {
				a.checkObject(n.LocalObject)
			}
		}
	}
}

// checkSet validates the operand limit, the operand count (re-checked after
// parse-time enforcement), and the filter states of operands and of the set.
// Operand element types are not compared.
func (a *analyzer) checkSet(s *ast.SetDecl) {
	if a.opts.MaxSetOperands > 0 && len(s.Operands) > a.opts.MaxSetOperands {
		a.report(diag.Errorf(diag.SetConstraintViolation, s.Span,
			"set %q has %d operands, exceeding the maximum of %d",
			s.ID, len(s.Operands), a.opts.MaxSetOperands))
	}
	if !s.Op.ValidateOperandCount(len(s.Operands)) {
		a.report(diag.Errorf(diag.SetConstraintViolation, s.Span,
			"set %q: %s requires %s", s.ID, s.Op, arityText(s.Op)))
	}

	// Every operand must denote a set of objects; kinds are closed at parse
	// time, so the semantic concern is filters on operands.
	for i := range s.Operands {
		op := &s.Operands[i]
		if op.Filter != nil {
			a.checkFilterStates(op.Filter)
		}
	}
	a.checkFilterStates(s.Filter)
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
