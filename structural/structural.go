// Package structural runs the final cheap checks before resolution: minimum
// viability of the definition and the implementation limits. CTN element
// order is enforced by the parser and is not re-checked here.
package structural

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
	ErrLimitExceeded = errors.New("implementation limit exceeded")
)

// Limits are the configurable implementation bounds. A breach of any limit is
// fatal.
type Limits struct {
	MaxGlobalSymbols       int
	MaxLocalSymbolsPerCtn  int
	MaxSymbolRelationships int
	MaxReferenceDepth      int
	MaxReferencesPerSymbol int
	MaxDependencyNodes     int
	MaxSetOperands         int
	MaxNestingDepth        int
	MaxCriteriaBlocks      int
	MaxSymbolsPerDef       int
}

// DefaultLimits returns the production limits.
func DefaultLimits() Limits {
	return Limits{
		MaxGlobalSymbols:       50_000,
		MaxLocalSymbolsPerCtn:  1_000,
		MaxSymbolRelationships: 100_000,
		MaxReferenceDepth:      50,
		MaxReferencesPerSymbol: 10_000,
		MaxDependencyNodes:     100_000,
		MaxSetOperands:         100,
		MaxNestingDepth:        10,
		MaxCriteriaBlocks:      1_000,
		MaxSymbolsPerDef:       10_000,
	}
}

// Validate performs structural validation over the analyzed AST.
func Validate(file *ast.EspFile, tables *symbols.Tables, limits Limits, sink *diag.Collector) {
	v := &validator{file: file, tables: tables, limits: limits, sink: sink}
	v.run()
}

type validator struct {
	file   *ast.EspFile
	tables *symbols.Tables
	limits Limits
	sink   *diag.Collector

	criteriaBlocks int
}

func (v *validator) run() {
	def := v.file.Def
	if def == nil {
		return
	}

	// Minimum viability: at least one CRI per DEF, at least one child per CRI.
	if len(def.Criteria) == 0 {
		v.sink.Add(diag.Errorf(diag.IncompleteDefinition, def.Span,
			"DEF must contain at least one CRI block").
			WithHint("add a CRI block with at least one CTN"))
	}
	for _, cri := range def.Criteria {
		v.checkCriteria(cri, 1)
	}

	v.checkLimits(def)
}

func (v *validator) checkCriteria(node *ast.CriteriaNode, depth int) {
	v.criteriaBlocks++

	if v.limits.MaxNestingDepth > 0 && depth > v.limits.MaxNestingDepth {
		v.limitError(node.Span, "criteria nesting depth", depth, v.limits.MaxNestingDepth)
		return
	}
	if len(node.Children) == 0 {
		v.sink.Add(diag.Errorf(diag.EmptyCriteriaBlock, node.Span,
			"CRI block has no children; each CRI requires at least one CTN or nested CRI"))
	}
	for _, child := range node.Children {
		switch n := child.(type) {
		case *ast.CriteriaNode:
			v.checkCriteria(n, depth+1)
		case *ast.CriterionNode:
			v.checkCriterion(n)
		}
	}
}

// checkCriterion enforces the per-CTN local symbol limit. CTN element order
// is not re-checked on the finished AST; the parser enforces it while reading.
func (v *validator) checkCriterion(ctn *ast.CriterionNode) {
	if local, ok := v.tables.Local(ctn); ok {
		if v.limits.MaxLocalSymbolsPerCtn > 0 && local.Count() > v.limits.MaxLocalSymbolsPerCtn {
			v.limitError(ctn.Span, "local symbols per CTN", local.Count(), v.limits.MaxLocalSymbolsPerCtn)
		}
	}
}

func (v *validator) checkLimits(def *ast.Definition) {
	global := v.tables.Global.Count()
	if v.limits.MaxGlobalSymbols > 0 && global > v.limits.MaxGlobalSymbols {
		v.limitError(def.Span, "global symbols", global, v.limits.MaxGlobalSymbols)
	}
	if v.limits.MaxSymbolsPerDef > 0 {
		total := global
		for _, lt := range v.tables.Locals {
			total += lt.Count()
		}
		if total > v.limits.MaxSymbolsPerDef {
			v.limitError(def.Span, "symbols per definition", total, v.limits.MaxSymbolsPerDef)
		}
	}

	rels := v.tables.Graph.Count()
	if v.limits.MaxSymbolRelationships > 0 && rels > v.limits.MaxSymbolRelationships {
		v.limitError(def.Span, "symbol relationships", rels, v.limits.MaxSymbolRelationships)
	}

	if v.limits.MaxReferencesPerSymbol > 0 {
		perSymbol := map[string]int{}
		for _, e := range v.tables.Graph.Edges() {
			if e.From == "" {
				continue
			}
			perSymbol[e.From]++
		}
		for name, n := range perSymbol {
			if n > v.limits.MaxReferencesPerSymbol {
				v.limitError(nil, fmt.Sprintf("references from symbol %q", name), n, v.limits.MaxReferencesPerSymbol)
			}
		}
	}

	nodes := len(v.tables.Global.Variables()) + len(v.tables.Global.RunTargets())
	if v.limits.MaxDependencyNodes > 0 && nodes > v.limits.MaxDependencyNodes {
		v.limitError(def.Span, "dependency nodes", nodes, v.limits.MaxDependencyNodes)
	}

	if v.limits.MaxCriteriaBlocks > 0 && v.criteriaBlocks > v.limits.MaxCriteriaBlocks {
		v.limitError(def.Span, "criteria blocks", v.criteriaBlocks, v.limits.MaxCriteriaBlocks)
	}

	if v.limits.MaxSetOperands > 0 {
		for _, s := range def.Sets {
			if len(s.Operands) > v.limits.MaxSetOperands {
				v.limitError(s.Span, fmt.Sprintf("operands of set %q", s.ID), len(s.Operands), v.limits.MaxSetOperands)
			}
		}
	}

	if v.limits.MaxReferenceDepth > 0 {
		v.checkReferenceDepth(def)
	}
}

// checkReferenceDepth bounds the longest variable-to-variable reference
// chain. Cycles are already rejected, so a depth-first walk terminates.
func (v *validator) checkReferenceDepth(def *ast.Definition) {
	adj := map[string][]string{}
	for _, e := range v.tables.Graph.Edges() {
		if e.Ref != symbols.RefVariable || e.From == "" {
			continue
		}
		if e.FromKind != symbols.KindVariable && e.FromKind != symbols.KindRunTarget {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
	}

	depth := map[string]int{}
	visiting := map[string]bool{}
	var walk func(name string) int
	walk = func(name string) int {
		if d, ok := depth[name]; ok {
			return d
		}
		if visiting[name] {
			return 0 // cycle: reported by reference validation
		}
		visiting[name] = true
		defer delete(visiting, name)
		max := 0
		for _, next := range adj[name] {
			if d := walk(next) + 1; d > max {
				max = d
			}
		}
		depth[name] = max
		return max
	}

	for name := range adj {
		if d := walk(name); d > v.limits.MaxReferenceDepth {
			v.limitError(def.Span, fmt.Sprintf("reference depth from %q", name), d, v.limits.MaxReferenceDepth)
		}
	}
}

func (v *validator) limitError(span *token.Span, what string, got, limit int) {
	v.sink.Add(diag.Errorf(diag.ImplementationLimitExceeded, span,
		"%s (%d) exceeds the configured limit of %d", what, got, limit).
		With("limit", fmt.Sprintf("%d", limit)).
		With("measured", fmt.Sprintf("%d", got)))
}
