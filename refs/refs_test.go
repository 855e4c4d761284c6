package refs_test

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/lexer"
	"github.com/esplang/espc/parser"
	"github.com/esplang/espc/refs"
	"github.com/esplang/espc/symbols"
)

func validate(t *testing.T, source string) *diag.Collector {
	t.Helper()
	sink := diag.NewCollector(0)
	tokens := lexer.New(source, lexer.DefaultLimits()).Run(sink)
	file := parser.Parse(tokens, parser.DefaultOptions(), sink)
	assert.False(t, sink.HasErrors(), "front end diagnostics: %s", sink.Summary())
	tables := symbols.Collect(file, sink)
	refs.Validate(file, tables, refs.DefaultOptions(), sink)
	return sink
}

func codes(sink *diag.Collector) []diag.Code {
	var out []diag.Code
	for _, d := range sink.Errors() {
		out = append(out, d.Code)
	}
	return out
}

func TestValidReferences(t *testing.T) {
	sink := validate(t, `
DEF
  VAR p string `+"`/etc`"+`
  STATE s ok boolean = true STATE_END
  OBJECT o path VAR p OBJECT_END
  SET grp union
    OBJECT_REF o
  SET_END
  RUN combined CONCAT
    VAR p
    literal `+"`/hosts`"+`
  RUN_END
  CRI AND
    CTN check
      TEST all all
      STATE_REF s
      OBJECT_REF o
    CTN_END
  CRI_END
DEF_END
`)

	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
}

func TestForwardReferencesAreLegal(t *testing.T) {
	// The object references a variable declared after it in the source.
	sink := validate(t, `
DEF
  OBJECT o path VAR p OBJECT_END
  VAR p string `+"`/etc`"+`
  CRI AND
    CTN c
      TEST any all
      OBJECT_REF o
    CTN_END
  CRI_END
DEF_END
`)

	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
}

func TestUndefinedReferences(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name: "undefined state ref",
			source: `
DEF
  OBJECT o path ` + "`/x`" + ` OBJECT_END
  CRI AND
    CTN c
      TEST all all
      STATE_REF missing
      OBJECT_REF o
    CTN_END
  CRI_END
DEF_END
`,
		},
		{
			name: "undefined object ref",
			source: `
DEF
  CRI AND
    CTN c
      TEST all all
      OBJECT_REF missing
    CTN_END
  CRI_END
DEF_END
`,
		},
		{
			name: "undefined variable",
			source: `
DEF
  OBJECT o path VAR missing OBJECT_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`,
		},
		{
			name: "undefined set ref",
			source: `
DEF
  OBJECT c2
    SET_REF missing
  OBJECT_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`,
		},
		{
			name: "undefined object in OBJ extraction",
			source: `
DEF
  RUN v EXTRACT
    OBJ missing field_name
  RUN_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := validate(t, tt.source)
			assert.True(t, sink.HasErrors())
			assert.Equal(t, diag.UndefinedReference, codes(sink)[0])
		})
	}
}

func TestReferenceKindMismatch(t *testing.T) {
	// Referencing an object with STATE_REF is a kind mismatch, not an
	// undefined reference.
	sink := validate(t, `
DEF
  OBJECT o path `+"`/x`"+` OBJECT_END
  CRI AND
    CTN c
      TEST all all
      STATE_REF o
      OBJECT_REF o
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.ReferenceKindMismatch, codes(sink)[0])
}

func TestObjFieldMustExist(t *testing.T) {
	sink := validate(t, `
DEF
  OBJECT pkg
    name `+"`openssl`"+`
  OBJECT_END
  RUN v EXTRACT
    OBJ pkg version
  RUN_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.UndefinedReference, codes(sink)[0])
}

func TestLocalStateNotAddressable(t *testing.T) {
	// A CTN-local state is invisible to STATE_REF, even in the same CTN.
	sink := validate(t, `
DEF
  OBJECT o path `+"`/x`"+` OBJECT_END
  CRI AND
    CTN c
      TEST all all
      STATE_REF hidden
      OBJECT_REF o
      STATE hidden
        ok boolean = true
      STATE_END
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.UndefinedReference, codes(sink)[0])
}

func TestFilterMustReferenceGlobalState(t *testing.T) {
	sink := validate(t, `
DEF
  OBJECT o1 path `+"`/a`"+` OBJECT_END
  SET s union
    OBJECT_REF o1
    FILTER include
      STATE_REF not_global
    FILTER_END
  SET_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.FilterStateNotGlobal, codes(sink)[0])
}

func TestCircularDependency(t *testing.T) {
	sink := validate(t, `
DEF
  VAR a string VAR b
  VAR b string VAR a
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	errs := sink.Errors()
	assert.Equal(t, diag.CircularDependency, errs[0].Code)

	// The cycle path is reported as a -> b -> a (or its rotation).
	var cycle string
	for _, f := range errs[0].Context {
		if f.Key == "cycle" {
			cycle = f.Value
		}
	}
	assert.True(t, strings.Contains(cycle, "a"))
	assert.True(t, strings.Contains(cycle, "b"))
	assert.True(t, strings.Contains(cycle, "->"))
}

func TestSelfCycle(t *testing.T) {
	sink := validate(t, `
DEF
  VAR a string VAR a
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.CircularDependency, codes(sink)[0])
}

func TestRunCycleThroughVariables(t *testing.T) {
	sink := validate(t, `
DEF
  VAR seed string VAR derived
  RUN derived CONCAT
    VAR seed
    literal `+"`x`"+`
  RUN_END
  CRI AND
    CTN c
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	assert.True(t, sink.HasErrors())
	assert.Equal(t, diag.CircularDependency, codes(sink)[0])
}

func TestMultipleDistinctCyclesReported(t *testing.T) {
	sink := validate(t, `
DEF
  VAR a string VAR b
  VAR b string VAR a
  VAR c string VAR d
  VAR d string VAR c
  CRI AND
    CTN x
      TEST any all
    CTN_END
  CRI_END
DEF_END
`)

	count := 0
	for _, code := range codes(sink) {
		if code == diag.CircularDependency {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestCycleReportingCap(t *testing.T) {
	source := "DEF\n"
	for _, pair := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		source += "VAR " + pair + "1 string VAR " + pair + "2\n"
		source += "VAR " + pair + "2 string VAR " + pair + "1\n"
	}
	source += "CRI AND\nCTN x\nTEST any all\nCTN_END\nCRI_END\nDEF_END\n"

	sink := diag.NewCollector(0)
	tokens := lexer.New(source, lexer.DefaultLimits()).Run(sink)
	file := parser.Parse(tokens, parser.DefaultOptions(), sink)
	tables := symbols.Collect(file, sink)
	refs.Validate(file, tables, refs.Options{MaxReportedCycles: 10}, sink)

	count := 0
	for _, code := range codes(sink) {
		if code == diag.CircularDependency {
			count++
		}
	}
	assert.Equal(t, 10, count)
}
