package resolver

import (
	"strings"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
	"github.com/esplang/espc/token"
)

// expander rewrites the criteria forest: every set reference is recursively
// expanded into a deduplicated ordered list of concrete object references
// with filter annotations attached.
type expander struct {
	engine *engine
	memo   map[string][]execctx.ObjectReference
	stack  []string // active expansion path, for cycle reporting
}

func newExpander(e *engine) *expander {
	return &expander{engine: e, memo: map[string][]execctx.ObjectReference{}}
}

func (x *expander) setDecl(id string) (*ast.SetDecl, bool) {
	sym, ok := x.engine.tables.Global.Set(id)
	if !ok {
		return nil, false
	}
	decl, ok := sym.Decl.(*ast.SetDecl)
	return decl, ok
}

// expandSet resolves a set id to its member object references. Visiting
// tracks the active expansion path; a set reaching itself is fatal.
func (x *expander) expandSet(id string, visiting map[string]bool, span *token.Span) ([]execctx.ObjectReference, bool) {
	if refs, ok := x.memo[id]; ok {
		return refs, true
	}
	if visiting[id] {
		x.engine.errorAt(diag.SetExpansionError, span,
			"set %q expands through itself (%s)", id, strings.Join(append(x.stack, id), " -> "))
		return nil, false
	}

	decl, ok := x.setDecl(id)
	if !ok {
		x.engine.errorAt(diag.SetExpansionError, span,
			"SET_REF %q does not resolve to a declared set", id)
		return nil, false
	}

	visiting[id] = true
	x.stack = append(x.stack, id)
	defer func() {
		delete(visiting, id)
		x.stack = x.stack[:len(x.stack)-1]
	}()

	operands := make([][]execctx.ObjectReference, 0, len(decl.Operands))
	for i := range decl.Operands {
		refs, ok := x.expandOperand(&decl.Operands[i], visiting)
		if !ok {
			return nil, false
		}
		operands = append(operands, refs)
	}

	var result []execctx.ObjectReference
	switch decl.Op {
	case ast.SetUnion:
		result = unionRefs(operands)
	case ast.SetIntersection:
		result = intersectRefs(operands)
	case ast.SetComplement:
		result = complementRefs(operands)
	}

	// A top-level filter on the set attaches to every produced reference.
	if decl.Filter != nil {
		f := exportFilter(decl.Filter)
		annotated := make([]execctx.ObjectReference, len(result))
		for i, ref := range result {
			ref.Filters = append(append([]execctx.Filter{}, ref.Filters...), f)
			annotated[i] = ref
		}
		result = annotated
	}

	x.memo[id] = result
	return result, true
}

func (x *expander) expandOperand(op *ast.SetOperand, visiting map[string]bool) ([]execctx.ObjectReference, bool) {
	switch op.Kind {
	case ast.ObjectRefOperand:
		return []execctx.ObjectReference{{ObjectID: op.ObjectID}}, true
	case ast.FilteredOperand:
		ref := execctx.ObjectReference{ObjectID: op.ObjectID}
		if op.Filter != nil {
			ref.Filters = []execctx.Filter{exportFilter(op.Filter)}
		}
		return []execctx.ObjectReference{ref}, true
	case ast.SetRefOperand:
		return x.expandSet(op.SetID, visiting, op.Span)
	case ast.InlineObjectOperand:
		// Inline objects contribute themselves.
		return []execctx.ObjectReference{{ObjectID: op.Object.ID}}, true
	}
	return nil, false
}

// unionRefs merges operand sets preserving first-seen order; duplicates keep
// their first occurrence.
func unionRefs(operands [][]execctx.ObjectReference) []execctx.ObjectReference {
	var out []execctx.ObjectReference
	seen := map[string]bool{}
	for _, refs := range operands {
		for _, ref := range refs {
			if seen[ref.ObjectID] {
				continue
			}
			seen[ref.ObjectID] = true
			out = append(out, ref)
		}
	}
	return out
}

// intersectRefs keeps members present in every operand; order is inherited
// from the first operand.
func intersectRefs(operands [][]execctx.ObjectReference) []execctx.ObjectReference {
	if len(operands) == 0 {
		return nil
	}
	var out []execctx.ObjectReference
	for _, ref := range operands[0] {
		inAll := true
		for _, other := range operands[1:] {
			if !containsRef(other, ref.ObjectID) {
				inAll = false
				break
			}
		}
		if inAll && !containsRef(out, ref.ObjectID) {
			out = append(out, ref)
		}
	}
	return out
}

// complementRefs keeps members of the first operand absent from the second.
func complementRefs(operands [][]execctx.ObjectReference) []execctx.ObjectReference {
	if len(operands) != 2 {
		return nil
	}
	var out []execctx.ObjectReference
	for _, ref := range operands[0] {
		if !containsRef(operands[1], ref.ObjectID) && !containsRef(out, ref.ObjectID) {
			out = append(out, ref)
		}
	}
	return out
}

func containsRef(refs []execctx.ObjectReference, id string) bool {
	for _, ref := range refs {
		if ref.ObjectID == id {
			return true
		}
	}
	return false
}

// auditSets records the resolved membership of every declared set for the
// audit section of the context.
func (x *expander) auditSets() []execctx.SetEntry {
	var out []execctx.SetEntry
	for _, sym := range x.engine.tables.Global.Sets() {
		decl, ok := sym.Decl.(*ast.SetDecl)
		if !ok {
			continue
		}
		refs, ok := x.expandSet(decl.ID, map[string]bool{}, decl.Span)
		if !ok {
			continue
		}
		entry := execctx.SetEntry{
			ID:        decl.ID,
			Operation: decl.Op.String(),
			Members:   make([]string, 0, len(refs)),
		}
		for _, ref := range refs {
			entry.Members = append(entry.Members, ref.ObjectID)
		}
		if decl.Filter != nil {
			f := exportFilter(decl.Filter)
			entry.Filter = &f
		}
		out = append(out, entry)
	}
	return out
}

// criteriaNode rewrites one criteria tree node for the context.
func (x *expander) criteriaNode(node *ast.CriteriaNode) *execctx.CriteriaNode {
	out := &execctx.CriteriaNode{
		Kind:      "criteria",
		LogicalOp: node.Op.String(),
		Negate:    node.Negate,
	}
	for _, child := range node.Children {
		switch n := child.(type) {
		case *ast.CriteriaNode:
			if c := x.criteriaNode(n); c != nil {
				out.Children = append(out.Children, c)
			}
		case *ast.CriterionNode:
			if c := x.criterion(n); c != nil {
				out.Children = append(out.Children, &execctx.CriteriaNode{
					Kind:      "criterion",
					Criterion: c,
				})
			}
		}
	}
	return out
}

// criterion resolves a CTN: references expand, local declarations resolve,
// and the final object list is deduplicated in first-seen order.
func (x *expander) criterion(ctn *ast.CriterionNode) *execctx.Criterion {
	out := &execctx.Criterion{
		CtnType: ctn.Type,
		Test:    exportTest(ctn.Test),
	}
	for _, ref := range ctn.StateRefs {
		out.StateRefs = append(out.StateRefs, ref.StateID)
	}

	var objectRefs []execctx.ObjectReference
	for _, ref := range ctn.ObjectRefs {
		objectRefs = append(objectRefs, x.expandObjectRef(ref)...)
	}

	// A local object whose single element is a SET_REF is a pure container:
	// it expands into object references and is cleared from the criterion.
	localObject := ctn.LocalObject
	if localObject != nil {
		if setRef := localObject.SetRefElement(); setRef != nil {
			refs, ok := x.expandSet(setRef.SetID, map[string]bool{}, setRef.Span)
			if ok {
				refs = x.attachContainerFilters(localObject, refs)
				objectRefs = append(objectRefs, refs...)
			}
			localObject = nil
		}
	}

	out.ObjectRefs = unionRefs([][]execctx.ObjectReference{objectRefs})

	for _, s := range ctn.LocalStates {
		out.LocalStates = append(out.LocalStates, x.engine.resolveState(s))
	}
	if localObject != nil {
		out.LocalObject = x.engine.resolveObject(localObject)
	}
	return out
}

// expandObjectRef resolves one OBJECT_REF. A reference to a global object
// that is itself a pure set container expands transitively.
func (x *expander) expandObjectRef(ref ast.ObjectRef) []execctx.ObjectReference {
	if sym, ok := x.engine.tables.Global.Object(ref.ObjectID); ok {
		if decl, ok := sym.Decl.(*ast.ObjectDecl); ok {
			if setRef := decl.SetRefElement(); setRef != nil {
				refs, ok := x.expandSet(setRef.SetID, map[string]bool{}, setRef.Span)
				if ok {
					return x.attachContainerFilters(decl, refs)
				}
				return nil
			}
		}
	}
	return []execctx.ObjectReference{{ObjectID: ref.ObjectID}}
}

// attachContainerFilters copies filter elements of a set-container object
// onto each expanded reference.
func (x *expander) attachContainerFilters(container *ast.ObjectDecl, refs []execctx.ObjectReference) []execctx.ObjectReference {
	var filters []execctx.Filter
	for _, el := range container.Elements {
		if f, ok := el.(*ast.FilterObjectElement); ok {
			filters = append(filters, exportFilter(f.Filter))
		}
	}
	if len(filters) == 0 {
		return refs
	}
	out := make([]execctx.ObjectReference, len(refs))
	for i, ref := range refs {
		ref.Filters = append(append([]execctx.Filter{}, ref.Filters...), filters...)
		out[i] = ref
	}
	return out
}

// exportTest renders the TEST triple; the state operator defaults to AND.
func exportTest(t ast.TestSpec) execctx.TestSpecification {
	out := execctx.TestSpecification{
		Existence: t.Existence.String(),
		Item:      t.Item.String(),
		StateOp:   ast.StateJoinAnd.String(),
	}
	if t.StateOp != nil {
		out.StateOp = t.StateOp.String()
	}
	return out
}

