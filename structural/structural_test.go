package structural_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/lexer"
	"github.com/esplang/espc/parser"
	"github.com/esplang/espc/structural"
	"github.com/esplang/espc/symbols"
)

func validate(t *testing.T, source string, limits structural.Limits) *diag.Collector {
	t.Helper()
	sink := diag.NewCollector(0)
	tokens := lexer.New(source, lexer.DefaultLimits()).Run(sink)
	file := parser.Parse(tokens, parser.DefaultOptions(), sink)
	assert.False(t, sink.HasErrors(), "front end diagnostics: %s", sink.Summary())
	tables := symbols.Collect(file, sink)
	structural.Validate(file, tables, limits, sink)
	return sink
}

func TestViableDefinitionPasses(t *testing.T) {
	sink := validate(t, `
DEF
  STATE s ok boolean = true STATE_END
  OBJECT o path `+"`/x`"+` OBJECT_END
  CRI AND
    CTN c
      TEST all all
      STATE_REF s
      OBJECT_REF o
    CTN_END
    CRI OR
      CTN d
        TEST any all
      CTN_END
    CRI_END
  CRI_END
DEF_END
`, structural.DefaultLimits())

	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
}

func TestDefWithoutCriteria(t *testing.T) {
	sink := validate(t, `
DEF
  STATE s ok boolean = true STATE_END
DEF_END
`, structural.DefaultLimits())

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.IncompleteDefinition, sink.Errors()[0].Code)
}

func TestEmptyCriteriaBlock(t *testing.T) {
	sink := validate(t, `
DEF
  CRI AND
  CRI_END
DEF_END
`, structural.DefaultLimits())

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.EmptyCriteriaBlock, sink.Errors()[0].Code)
}

func TestNestingDepthLimit(t *testing.T) {
	source := "DEF\n"
	for range 12 {
		source += "CRI AND\n"
	}
	source += "CTN x\nTEST any all\nCTN_END\n"
	for range 12 {
		source += "CRI_END\n"
	}
	source += "DEF_END\n"

	sink := validate(t, source, structural.DefaultLimits())
	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.ImplementationLimitExceeded, sink.Errors()[0].Code)
}

func TestCriteriaBlockLimit(t *testing.T) {
	limits := structural.DefaultLimits()
	limits.MaxCriteriaBlocks = 2

	sink := validate(t, `
DEF
  CRI AND
    CTN a
      TEST any all
    CTN_END
  CRI_END
  CRI AND
    CTN b
      TEST any all
    CTN_END
  CRI_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`, limits)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.ImplementationLimitExceeded, sink.Errors()[0].Code)
}

func TestGlobalSymbolLimit(t *testing.T) {
	limits := structural.DefaultLimits()
	limits.MaxGlobalSymbols = 2

	sink := validate(t, `
DEF
  VAR a string `+"`1`"+`
  VAR b string `+"`2`"+`
  VAR c string `+"`3`"+`
  CRI AND
    CTN x
      TEST any all
    CTN_END
  CRI_END
DEF_END
`, limits)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.ImplementationLimitExceeded, sink.Errors()[0].Code)
}

func TestReferenceDepthLimit(t *testing.T) {
	limits := structural.DefaultLimits()
	limits.MaxReferenceDepth = 3

	source := "DEF\n  VAR v0 string `seed`\n"
	for i := 1; i <= 6; i++ {
		source += "  VAR v" + string(rune('0'+i)) + " string VAR v" + string(rune('0'+i-1)) + "\n"
	}
	source += "  CRI AND\n    CTN x\n      TEST any all\n    CTN_END\n  CRI_END\nDEF_END\n"

	sink := validate(t, source, limits)
	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.ImplementationLimitExceeded, sink.Errors()[0].Code)
}

func TestLocalSymbolLimit(t *testing.T) {
	limits := structural.DefaultLimits()
	limits.MaxLocalSymbolsPerCtn = 1

	sink := validate(t, `
DEF
  CRI AND
    CTN c
      TEST any all
      STATE one a boolean = true STATE_END
      STATE two b boolean = true STATE_END
    CTN_END
  CRI_END
DEF_END
`, limits)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.ImplementationLimitExceeded, sink.Errors()[0].Code)
}
