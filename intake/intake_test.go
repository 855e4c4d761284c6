package intake

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/esplang/espc/diag"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestProcessFileAccepts(t *testing.T) {
	path := writeTemp(t, "policy.esp", []byte("DEF\nDEF_END\n"))
	sink := diag.NewCollector(0)

	src := ProcessFile(path, DefaultOptions(), sink)
	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
	assert.NotZero(t, src)
	assert.Equal(t, "DEF\nDEF_END\n", src.Text)
	assert.Equal(t, int64(12), src.Size)
	assert.Equal(t, 3, src.Map.LineCount())
}

func TestProcessFileFailures(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		opts Options
		code diag.Code
	}{
		{
			name: "not found",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.esp") },
			opts: DefaultOptions(),
			code: diag.FileNotFound,
		},
		{
			name: "wrong extension",
			path: func(t *testing.T) string { return writeTemp(t, "policy.txt", []byte("DEF\n")) },
			opts: DefaultOptions(),
			code: diag.InvalidExtension,
		},
		{
			name: "too large",
			path: func(t *testing.T) string { return writeTemp(t, "big.esp", make([]byte, 2048)) },
			opts: Options{MaxFileSize: 1024, RequireExtension: true, Extension: ".esp"},
			code: diag.FileTooLarge,
		},
		{
			name: "empty",
			path: func(t *testing.T) string { return writeTemp(t, "empty.esp", nil) },
			opts: DefaultOptions(),
			code: diag.EmptyFile,
		},
		{
			name: "bom",
			path: func(t *testing.T) string {
				return writeTemp(t, "bom.esp", append([]byte{0xEF, 0xBB, 0xBF}, []byte("DEF\n")...))
			},
			opts: DefaultOptions(),
			code: diag.InvalidEncoding,
		},
		{
			name: "invalid utf8",
			path: func(t *testing.T) string { return writeTemp(t, "bad.esp", []byte{'D', 0xFF, 0xFE, '\n'}) },
			opts: DefaultOptions(),
			code: diag.InvalidEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := diag.NewCollector(0)
			src := ProcessFile(tt.path(t), tt.opts, sink)
			assert.Zero(t, src)
			assert.True(t, sink.HasErrors())
			assert.Equal(t, tt.code, sink.Errors()[0].Code)
		})
	}
}

func TestExtensionNotRequired(t *testing.T) {
	path := writeTemp(t, "policy.txt", []byte("DEF\nDEF_END\n"))
	sink := diag.NewCollector(0)
	opts := Options{MaxFileSize: 1024, RequireExtension: false}

	src := ProcessFile(path, opts, sink)
	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
	assert.NotZero(t, src)
}

func TestProcessSource(t *testing.T) {
	sink := diag.NewCollector(0)
	src := ProcessSource("inline.esp", []byte("DEF\nDEF_END\n"), sink)
	assert.False(t, sink.HasErrors(), "unexpected diagnostics: %s", sink.Summary())
	assert.Equal(t, "inline.esp", src.Path)
}
