package symbols_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/lexer"
	"github.com/esplang/espc/parser"
	"github.com/esplang/espc/symbols"
)

func collect(t *testing.T, source string) (*symbols.Tables, *diag.Collector) {
	t.Helper()
	sink := diag.NewCollector(0)
	tokens := lexer.New(source, lexer.DefaultLimits()).Run(sink)
	file := parser.Parse(tokens, parser.DefaultOptions(), sink)
	assert.False(t, sink.HasErrors(), "front end diagnostics: %s", sink.Summary())
	tables := symbols.Collect(file, sink)
	return tables, sink
}

const wellFormed = `
DEF
  VAR prefix string ` + "`/etc`" + `
  STATE readable ok boolean = true STATE_END
  OBJECT o1 path VAR prefix OBJECT_END
  OBJECT o2 path ` + "`/var`" + ` OBJECT_END
  RUN joined CONCAT
    VAR prefix
    literal ` + "`/hosts`" + `
  RUN_END
  SET both union
    OBJECT_REF o1
    OBJECT_REF o2
  SET_END
  CRI AND
    CTN file_check
      TEST all all
      STATE_REF readable
      OBJECT_REF o1
      STATE local_ok
        present boolean = true
      STATE_END
      OBJECT local_obj
        path ` + "`/tmp`" + `
      OBJECT_END
    CTN_END
  CRI_END
DEF_END
`

func TestGlobalTablePopulation(t *testing.T) {
	tables, sink := collect(t, wellFormed)
	assert.False(t, sink.HasErrors(), "symbol diagnostics: %s", sink.Summary())

	global := tables.Global
	_, ok := global.Variable("prefix")
	assert.True(t, ok)
	_, ok = global.State("readable")
	assert.True(t, ok)
	_, ok = global.Object("o1")
	assert.True(t, ok)
	_, ok = global.Object("o2")
	assert.True(t, ok)
	_, ok = global.Set("both")
	assert.True(t, ok)
	_, ok = global.RunTarget("joined")
	assert.True(t, ok)
	// The RUN target is addressable as a variable-or-target.
	_, ok = global.VariableOrTarget("joined")
	assert.True(t, ok)

	assert.Equal(t, 6, global.Count())
}

func TestInsertionOrderPreserved(t *testing.T) {
	tables, _ := collect(t, wellFormed)

	objects := tables.Global.Objects()
	assert.Equal(t, 2, len(objects))
	assert.Equal(t, "o1", objects[0].Name)
	assert.Equal(t, "o2", objects[1].Name)
	assert.True(t, objects[0].SourceOrder < objects[1].SourceOrder)
}

func TestLocalTables(t *testing.T) {
	tables, sink := collect(t, wellFormed)
	assert.False(t, sink.HasErrors(), "symbol diagnostics: %s", sink.Summary())

	assert.Equal(t, 1, len(tables.Locals))
	local := tables.Locals[0]
	assert.Equal(t, 1, len(local.States()))
	assert.Equal(t, "local_ok", local.States()[0].Name)
	assert.NotZero(t, local.Object())
	assert.Equal(t, "local_obj", local.Object().Name)
	assert.Equal(t, 2, local.Count())
}

func TestReferenceGraphEdges(t *testing.T) {
	tables, _ := collect(t, wellFormed)

	// o1 depends on prefix; joined depends on prefix; both references o1, o2.
	var o1Var, joinedVar, setObjects int
	for _, e := range tables.Graph.Edges() {
		switch {
		case e.From == "o1" && e.To == "prefix" && e.Ref == symbols.RefVariable:
			o1Var++
		case e.From == "joined" && e.To == "prefix" && e.Ref == symbols.RefVariable:
			joinedVar++
		case e.From == "both" && e.Ref == symbols.RefObject:
			setObjects++
		}
	}
	assert.Equal(t, 1, o1Var)
	assert.Equal(t, 1, joinedVar)
	assert.Equal(t, 2, setObjects)
}

func TestDuplicateGlobalSymbol(t *testing.T) {
	_, sink := collect(t, `
DEF
  VAR x string `+"`a`"+`
  VAR x string `+"`b`"+`
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.DuplicateSymbol, sink.Errors()[0].Code)
}

func TestDuplicateStateAndObjectNamespacesAreSeparate(t *testing.T) {
	// The same identifier may name a state and an object; namespaces are
	// per-kind.
	_, sink := collect(t, `
DEF
  STATE thing ok boolean = true STATE_END
  OBJECT thing path `+"`/x`"+` OBJECT_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
}

func TestDuplicateRunTarget(t *testing.T) {
	_, sink := collect(t, `
DEF
  RUN x CONCAT
    literal `+"`a`"+`
    literal `+"`b`"+`
  RUN_END
  RUN x CONCAT
    literal `+"`c`"+`
    literal `+"`d`"+`
  RUN_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.DuplicateSymbol, sink.Errors()[0].Code)
}

func TestDuplicateLocalState(t *testing.T) {
	_, sink := collect(t, `
DEF
  CRI AND
    CTN c
      TEST any all
      STATE dup a boolean = true STATE_END
      STATE dup b boolean = true STATE_END
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.DuplicateSymbol, sink.Errors()[0].Code)
}

func TestInlineSetOperandObjectIsGlobal(t *testing.T) {
	tables, sink := collect(t, `
DEF
  OBJECT base path `+"`/x`"+` OBJECT_END
  SET s union
    OBJECT_REF base
    OBJECT extra
      path `+"`/y`"+`
    OBJECT_END
  SET_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
	_, ok := tables.Global.Object("extra")
	assert.True(t, ok)
}

func TestVariableShadowingRunTargetIsAllowed(t *testing.T) {
	// A VAR may declare the type of a RUN result; that is one symbol, not a
	// duplicate.
	tables, sink := collect(t, `
DEF
  VAR total int
  RUN total ARITHMETIC
    literal 1
    + 2
  RUN_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
	_, isVar := tables.Global.Variable("total")
	_, isTarget := tables.Global.RunTarget("total")
	assert.True(t, isVar)
	assert.True(t, isTarget)
}

func TestLocalLookupByNode(t *testing.T) {
	sink := diag.NewCollector(0)
	tokens := lexer.New(wellFormed, lexer.DefaultLimits()).Run(sink)
	file := parser.Parse(tokens, parser.DefaultOptions(), sink)
	tables := symbols.Collect(file, sink)

	ctn := file.Def.Criteria[0].Children[0].(*ast.CriterionNode)
	local, ok := tables.Local(ctn)
	assert.True(t, ok)
	assert.Equal(t, "local_ok", local.States()[0].Name)
}
