package resolver

import (
	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
	"github.com/esplang/espc/semantic"
	"github.com/esplang/espc/token"
)

// substValue replaces a possibly variable-referencing AST value with its
// resolved form, re-checking the declared type after substitution. A VAR
// whose resolved type does not match the declared type is rejected.
func (e *engine) substValue(v ast.Value, declared ast.DataType, where string, span *token.Span) (value, bool) {
	var out value
	if v.IsVarRef() {
		resolved, ok := e.lookupValue(v.Var, span)
		if !ok {
			return value{}, false
		}
		out = resolved
	} else {
		lit, err := fromLiteral(v)
		if err != nil {
			e.errorAt(diag.ResolutionError, span, "%s: %v", where, err)
			return value{}, false
		}
		out = lit
	}

	if out.deferred {
		return out, true
	}
	converted, ok := out.convertTo(declared)
	if !ok {
		e.errorAt(diag.ResolutionError, span,
			"%s is declared %s but its value resolves to %s", where, declared, out.typeName())
		return value{}, false
	}
	return converted, true
}

// resolveState substitutes every value of a state declaration. Identical
// declarations shared across criteria resolve to the same structure.
func (e *engine) resolveState(decl *ast.StateDecl) *execctx.ResolvedState {
	if memo, ok := e.memoStates[decl]; ok {
		return memo
	}

	state := &execctx.ResolvedState{}
	for _, f := range decl.Fields {
		v, ok := e.substValue(f.Value, f.Type, "state field "+f.Name, f.Span)
		if !ok {
			continue
		}
		// Re-verify the operation against the matrix after substitution.
		if !semantic.Compatible(f.Type, f.Op) {
			e.errorAt(diag.TypeIncompatibility, f.Span,
				"operation %q is not valid for field %q of type %s", f.Op, f.Name, f.Type)
			continue
		}
		field := execctx.ResolvedStateField{
			Name:  f.Name,
			Type:  f.Type.String(),
			Op:    f.Op.String(),
			Value: v.export(),
		}
		if f.EntityCheck != nil {
			field.EntityCheck = f.EntityCheck.String()
		}
		state.Fields = append(state.Fields, field)
	}
	for _, rc := range decl.RecordChecks {
		state.RecordChecks = append(state.RecordChecks, e.resolveRecordCheck(rc))
	}

	e.memoStates[decl] = state
	return state
}

func (e *engine) resolveRecordCheck(rc *ast.RecordCheck) execctx.ResolvedRecordCheck {
	out := execctx.ResolvedRecordCheck{}
	if rc.Type != nil {
		out.Type = rc.Type.String()
	}
	if rc.Direct != nil {
		declared := ast.TypeRecord
		if rc.Type != nil {
			declared = *rc.Type
		}
		if v, ok := e.substValue(rc.Direct.Value, declared, "record check", rc.Span); ok {
			out.Op = rc.Direct.Op.String()
			exported := v.export()
			out.Value = &exported
		}
	}
	for _, f := range rc.Fields {
		v, ok := e.substValue(f.Value, f.Type, "record field "+f.Path.String(), f.Span)
		if !ok {
			continue
		}
		field := execctx.ResolvedRecordField{
			Path:  f.Path.String(),
			Type:  f.Type.String(),
			Op:    f.Op.String(),
			Value: v.export(),
		}
		if f.EntityCheck != nil {
			field.EntityCheck = f.EntityCheck.String()
		}
		out.Fields = append(out.Fields, field)
	}
	for _, nested := range rc.Nested {
		out.Nested = append(out.Nested, e.resolveRecordCheck(nested))
	}
	return out
}

// resolveObject substitutes every element of an object declaration.
func (e *engine) resolveObject(decl *ast.ObjectDecl) *execctx.ResolvedObject {
	if memo, ok := e.memoObjects[decl]; ok {
		return memo
	}

	obj := &execctx.ResolvedObject{}
	for _, el := range decl.Elements {
		switch el := el.(type) {
		case *ast.FieldObjectElement:
			if f, ok := e.resolveObjectField(el); ok {
				obj.Fields = append(obj.Fields, f)
			}
		case *ast.ModuleObjectElement:
			obj.Module = append(obj.Module, execctx.ModuleBinding{Field: el.Field, Value: el.Value})
		case *ast.ParamsObjectElement:
			for _, f := range el.Fields {
				if rf, ok := e.resolveObjectField(f); ok {
					obj.Parameters = append(obj.Parameters, rf)
				}
			}
		case *ast.SelectObjectElement:
			for _, f := range el.Fields {
				if rf, ok := e.resolveObjectField(f); ok {
					obj.Select = append(obj.Select, rf)
				}
			}
		case *ast.BehaviorObjectElement:
			obj.Behaviors = append(obj.Behaviors, el.Values...)
		case *ast.FilterObjectElement:
			obj.Filters = append(obj.Filters, exportFilter(el.Filter))
		case *ast.SetRefObjectElement:
			obj.SetRefs = append(obj.SetRefs, el.SetID)
		case *ast.RecordObjectElement:
			obj.Records = append(obj.Records, e.resolveRecordCheck(el.Check))
		case *ast.InlineSetObjectElement:
			obj.SetRefs = append(obj.SetRefs, el.Set.ID)
		}
	}

	e.memoObjects[decl] = obj
	return obj
}

// resolveObjectField substitutes one object field. Object fields carry no
// declared type; the value's own resolved type stands.
func (e *engine) resolveObjectField(f *ast.FieldObjectElement) (execctx.ResolvedObjectField, bool) {
	var v value
	if f.Value.IsVarRef() {
		resolved, ok := e.lookupValue(f.Value.Var, f.Span)
		if !ok {
			return execctx.ResolvedObjectField{}, false
		}
		v = resolved
	} else {
		lit, err := fromLiteral(f.Value)
		if err != nil {
			e.errorAt(diag.ResolutionError, f.Span, "object field %q: %v", f.Name, err)
			return execctx.ResolvedObjectField{}, false
		}
		v = lit
	}
	return execctx.ResolvedObjectField{Name: f.Name, Value: v.export()}, true
}

func exportFilter(f *ast.FilterSpec) execctx.Filter {
	out := execctx.Filter{Action: f.Action.String()}
	for _, ref := range f.StateRefs {
		out.States = append(out.States, ref.StateID)
	}
	return out
}
