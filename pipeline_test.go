package espc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"pgregory.net/rapid"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
)

const samplePolicy = `META
  title ` + "`ssh daemon hardening`" + `
  revision 4
META_END
DEF
  VAR conf_dir string ` + "`/etc/ssh`" + `
  RUN conf_file CONCAT
    VAR conf_dir
    literal ` + "`/sshd_config`" + `
  RUN_END
  STATE root_login_disabled
    permit_root_login string ieq ` + "`no`" + `
  STATE_END
  STATE readable ok boolean = true STATE_END
  OBJECT sshd_conf
    path VAR conf_file
  OBJECT_END
  OBJECT sshd_dir
    path VAR conf_dir
    behavior recursive_scan
  OBJECT_END
  SET targets union
    OBJECT_REF sshd_conf
    OBJECT_REF sshd_dir
  SET_END
  CRI AND
    CTN file_content
      TEST all all AND
      STATE_REF root_login_disabled
      OBJECT_REF sshd_conf
    CTN_END
    CRI OR
      CTN file_metadata
        TEST any all
        STATE_REF readable
        OBJECT c
          SET_REF targets
        OBJECT_END
      CTN_END
    CRI_END
  CRI_END
DEF_END
`

func TestCompileSourceEndToEnd(t *testing.T) {
	res := CompileSource(context.Background(), "sample.esp", []byte(samplePolicy), nil)
	assert.NoError(t, res.Err)
	assert.False(t, res.Sink.HasErrors(), "diagnostics: %s", res.Sink.Summary())
	assert.NotZero(t, res.Context)

	ctx := res.Context
	assert.Equal(t, 2, len(ctx.Meta))
	assert.Equal(t, 2, len(ctx.Variables)) // conf_dir + conf_file
	assert.Equal(t, 2, len(ctx.States))
	assert.Equal(t, 2, len(ctx.Objects))
	assert.Equal(t, 1, len(ctx.Sets))
	assert.Equal(t, []string{"sshd_conf", "sshd_dir"}, ctx.Sets[0].Members)

	// The nested criterion expanded its set container.
	inner := ctx.Criteria[0].Children[1]
	assert.Equal(t, "criteria", inner.Kind)
	assert.Equal(t, "OR", inner.LogicalOp)
	leaf := inner.Children[0].Criterion
	assert.Equal(t, 2, len(leaf.ObjectRefs))
	assert.Zero(t, leaf.LocalObject)

	assert.True(t, ctx.Stats.TokenCount > 0)
	assert.True(t, ctx.Stats.FileSize > 0)
}

func TestCompileFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.esp")
	assert.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o644))

	res := Compile(context.Background(), path, nil)
	assert.NoError(t, res.Err)
	assert.NotZero(t, res.Context)
}

// Compiling the same bytes twice yields byte-identical contexts (timing
// stats excluded; they are the one wall-clock-dependent field).
func TestDeterminism(t *testing.T) {
	compile := func() []byte {
		res := CompileSource(context.Background(), "same.esp", []byte(samplePolicy), nil)
		assert.NoError(t, res.Err)
		res.Context.Stats.DurationMS = 0
		data, err := execctx.EncodeYAML(res.Context)
		assert.NoError(t, err)
		return data
	}

	assert.Equal(t, string(compile()), string(compile()))
}

// Substitution is idempotent: a source with no variable references resolves
// to the same context whether or not the resolver has anything to replace.
func TestSubstitutionIdempotence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		path := rapid.StringMatching(`/[a-z]{1,8}/[a-z]{1,8}`).Draw(rt, "path")
		source := `DEF
  STATE s exists boolean = true STATE_END
  OBJECT o path ` + "`" + path + "`" + ` OBJECT_END
  CRI AND
    CTN x
      TEST all all
      STATE_REF s
      OBJECT_REF o
    CTN_END
  CRI_END
DEF_END
`
		first := CompileSource(context.Background(), "a.esp", []byte(source), nil)
		second := CompileSource(context.Background(), "a.esp", []byte(source), nil)
		if first.Err != nil || second.Err != nil {
			rt.Fatalf("compilation failed: %v / %v", first.Err, second.Err)
		}

		first.Context.Stats.DurationMS = 0
		second.Context.Stats.DurationMS = 0
		aData, _ := execctx.EncodeYAML(first.Context)
		bData, _ := execctx.EncodeYAML(second.Context)
		if string(aData) != string(bData) {
			rt.Fatalf("contexts differ for path %q", path)
		}
	})
}

func TestPipelineBlocksDownstreamOnError(t *testing.T) {
	// A lexical error must prevent every later stage from contributing
	// diagnostics: the only errors present are lexical ones.
	res := CompileSource(context.Background(), "bad.esp", []byte("DEF\n`unterminated\nDEF_END\n"), nil)
	assert.IsError(t, res.Err, ErrCompileFailed)
	assert.Zero(t, res.Context)

	for _, d := range res.Sink.Errors() {
		assert.Equal(t, "lexical", d.Code.Category())
	}
}

func TestCompileEmptySource(t *testing.T) {
	res := CompileSource(context.Background(), "empty.esp", nil, nil)
	assert.IsError(t, res.Err, ErrCompileFailed)
	assert.True(t, res.Sink.HasErrors())
	assert.Equal(t, diag.EmptyFile, res.Sink.Errors()[0].Code)
}

func TestCancelledContext(t *testing.T) {
	cctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := CompileSource(cctx, "sample.esp", []byte(samplePolicy), nil)
	assert.IsError(t, res.Err, ErrTimeout)
}

func TestValidateStopsBeforeResolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.esp")
	assert.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o644))

	res := Validate(context.Background(), path, nil)
	assert.NoError(t, res.Err)
	assert.False(t, res.Sink.HasErrors(), "diagnostics: %s", res.Sink.Summary())
	assert.Zero(t, res.Context)
}

func TestCompileBatch(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.esp", "b.esp", "c.esp"} {
		path := filepath.Join(dir, name)
		assert.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o644))
		paths = append(paths, path)
	}
	// One bad file in the batch fails alone.
	bad := filepath.Join(dir, "bad.esp")
	assert.NoError(t, os.WriteFile(bad, []byte("not esp at all\n"), 0o644))
	paths = append(paths, bad)

	results, err := CompileBatch(context.Background(), paths, nil, 2)
	assert.NoError(t, err)
	assert.Equal(t, 4, len(results))

	for i, res := range results[:3] {
		assert.NotZero(t, res.Context, "file %d should compile", i)
	}
	assert.Zero(t, results[3].Context)
	assert.True(t, results[3].Sink.HasErrors())
}

func TestCompileBatchRejectsEmpty(t *testing.T) {
	_, err := CompileBatch(context.Background(), nil, nil, 2)
	assert.IsError(t, err, ErrNoSource)
}
