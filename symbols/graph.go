package symbols

// RefKind classifies an edge in the reference graph.
type RefKind int

const (
	RefVariable RefKind = iota // VAR name inside a value position
	RefState                   // STATE_REF
	RefObject                  // OBJECT_REF
	RefSet                     // SET_REF
	RefObjectField             // OBJ id field inside RUN
)

func (k RefKind) String() string {
	switch k {
	case RefVariable:
		return "VAR"
	case RefState:
		return "STATE_REF"
	case RefObject:
		return "OBJECT_REF"
	case RefSet:
		return "SET_REF"
	case RefObjectField:
		return "OBJ"
	default:
		return "unknown"
	}
}

// Edge is one directed reference between symbols. From is empty for
// references made from anonymous positions (criteria and their local states
// and objects).
type Edge struct {
	From     string
	FromKind Kind
	To       string
	Ref      RefKind
	Site     any // the AST node holding the reference
}

// ReferenceGraph is a directed multigraph over symbol names keyed by
// reference kind. Edges keep insertion order so diagnostics come out in
// source order.
type ReferenceGraph struct {
	edges    []Edge
	outgoing map[string][]int
}

// NewReferenceGraph creates an empty graph.
func NewReferenceGraph() *ReferenceGraph {
	return &ReferenceGraph{outgoing: map[string][]int{}}
}

// Add records an edge.
func (g *ReferenceGraph) Add(e Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	if e.From != "" {
		g.outgoing[e.From] = append(g.outgoing[e.From], idx)
	}
}

// Edges returns every edge in insertion order.
func (g *ReferenceGraph) Edges() []Edge {
	return g.edges
}

// From returns the edges leaving the named symbol in insertion order.
func (g *ReferenceGraph) From(name string) []Edge {
	idxs := g.outgoing[name]
	out := make([]Edge, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.edges[i])
	}
	return out
}

// Count returns the number of recorded relationships.
func (g *ReferenceGraph) Count() int {
	return len(g.edges)
}
