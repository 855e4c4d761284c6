// Package symbols builds the global and per-CTN local symbol tables from the
// AST and records symbol relationships for the later reference and
// resolution passes.
package symbols

import (
	"errors"
	"fmt"

	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrDuplicateSymbol = errors.New("duplicate symbol in scope")
	ErrUnknownSymbol   = errors.New("unknown symbol")
)

// Kind classifies a symbol.
type Kind int

const (
	KindVariable Kind = iota
	KindState
	KindObject
	KindSet
	KindRunTarget
	KindLocalState
	KindLocalObject
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindState:
		return "state"
	case KindObject:
		return "object"
	case KindSet:
		return "set"
	case KindRunTarget:
		return "run target"
	case KindLocalState:
		return "local state"
	case KindLocalObject:
		return "local object"
	default:
		return "unknown"
	}
}

// Symbol is one declared identifier. Decl points back at the AST node that
// declared it; SourceOrder is the declaration index used for deterministic
// ordering downstream.
type Symbol struct {
	Name        string
	Kind        Kind
	Span        *token.Span
	Decl        any
	SourceOrder int
}

// namespace is one insertion-ordered name→symbol mapping.
type namespace struct {
	byName map[string]*Symbol
	order  []*Symbol
}

func newNamespace() *namespace {
	return &namespace{byName: map[string]*Symbol{}}
}

func (n *namespace) declare(sym *Symbol) error {
	if existing, ok := n.byName[sym.Name]; ok {
		return fmt.Errorf("%w: %s %q already declared at %s",
			ErrDuplicateSymbol, existing.Kind, sym.Name, spanText(existing.Span))
	}
	n.byName[sym.Name] = sym
	n.order = append(n.order, sym)
	return nil
}

func (n *namespace) lookup(name string) (*Symbol, bool) {
	sym, ok := n.byName[name]
	return sym, ok
}

func spanText(span *token.Span) string {
	if span == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", span.Start.Line, span.Start.Column)
}

// GlobalTable holds the DEF-scoped namespaces. Each namespace keeps keys
// unique and records insertion order.
type GlobalTable struct {
	variables  *namespace
	states     *namespace
	objects    *namespace
	sets       *namespace
	runTargets *namespace
}

// NewGlobalTable creates an empty global table.
func NewGlobalTable() *GlobalTable {
	return &GlobalTable{
		variables:  newNamespace(),
		states:     newNamespace(),
		objects:    newNamespace(),
		sets:       newNamespace(),
		runTargets: newNamespace(),
	}
}

// DeclareVariable records a VAR declaration.
func (t *GlobalTable) DeclareVariable(sym *Symbol) error { return t.variables.declare(sym) }

// DeclareState records a global STATE declaration.
func (t *GlobalTable) DeclareState(sym *Symbol) error { return t.states.declare(sym) }

// DeclareObject records a global OBJECT declaration.
func (t *GlobalTable) DeclareObject(sym *Symbol) error { return t.objects.declare(sym) }

// DeclareSet records a SET declaration.
func (t *GlobalTable) DeclareSet(sym *Symbol) error { return t.sets.declare(sym) }

// DeclareRunTarget records a RUN block's target variable. A run target may
// coexist with an explicit VAR of the same name (the VAR declares the type);
// two RUN blocks assigning the same target collide.
func (t *GlobalTable) DeclareRunTarget(sym *Symbol) error { return t.runTargets.declare(sym) }

// Variable looks up a declared variable.
func (t *GlobalTable) Variable(name string) (*Symbol, bool) { return t.variables.lookup(name) }

// State looks up a global state.
func (t *GlobalTable) State(name string) (*Symbol, bool) { return t.states.lookup(name) }

// Object looks up a global object.
func (t *GlobalTable) Object(name string) (*Symbol, bool) { return t.objects.lookup(name) }

// Set looks up a set.
func (t *GlobalTable) Set(name string) (*Symbol, bool) { return t.sets.lookup(name) }

// RunTarget looks up a run target.
func (t *GlobalTable) RunTarget(name string) (*Symbol, bool) { return t.runTargets.lookup(name) }

// VariableOrTarget looks up a name declared as a VAR or implicitly by RUN.
func (t *GlobalTable) VariableOrTarget(name string) (*Symbol, bool) {
	if sym, ok := t.variables.lookup(name); ok {
		return sym, true
	}
	return t.runTargets.lookup(name)
}

// Variables returns the declared variables in source order.
func (t *GlobalTable) Variables() []*Symbol { return t.variables.order }

// States returns the global states in source order.
func (t *GlobalTable) States() []*Symbol { return t.states.order }

// Objects returns the global objects in source order.
func (t *GlobalTable) Objects() []*Symbol { return t.objects.order }

// Sets returns the sets in source order.
func (t *GlobalTable) Sets() []*Symbol { return t.sets.order }

// RunTargets returns the run targets in source order.
func (t *GlobalTable) RunTargets() []*Symbol { return t.runTargets.order }

// Count returns the total number of global symbols.
func (t *GlobalTable) Count() int {
	return len(t.variables.order) + len(t.states.order) + len(t.objects.order) +
		len(t.sets.order) + len(t.runTargets.order)
}

// LocalTable holds one CTN's local scope: local states and at most one local
// object. Locals are not addressable by any _REF.
type LocalTable struct {
	CtnID  string
	states *namespace
	object *Symbol
}

// NewLocalTable creates an empty local table for the given CTN.
func NewLocalTable(ctnID string) *LocalTable {
	return &LocalTable{CtnID: ctnID, states: newNamespace()}
}

// DeclareState records a CTN-local STATE.
func (t *LocalTable) DeclareState(sym *Symbol) error { return t.states.declare(sym) }

// DeclareObject records the CTN-local OBJECT; a second one is an error.
func (t *LocalTable) DeclareObject(sym *Symbol) error {
	if t.object != nil {
		return fmt.Errorf("%w: local object %q already declared in %s",
			ErrDuplicateSymbol, t.object.Name, t.CtnID)
	}
	t.object = sym
	return nil
}

// States returns the local states in source order.
func (t *LocalTable) States() []*Symbol { return t.states.order }

// Object returns the local object, if any.
func (t *LocalTable) Object() *Symbol { return t.object }

// Count returns the number of local symbols.
func (t *LocalTable) Count() int {
	n := len(t.states.order)
	if t.object != nil {
		n++
	}
	return n
}
