// Package intake performs file validation and source indexing: existence,
// size and extension checks, UTF-8 validation, and the line-start index used
// for all positional bookkeeping.
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrFileTooLarge    = errors.New("file exceeds the configured size limit")
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// Options configure file intake.
type Options struct {
	MaxFileSize      int64
	RequireExtension bool
	Extension        string
}

// DefaultOptions returns the production intake options: a 10 MB cap and a
// required .esp extension. The absolute hard cap is 50 MB regardless of
// configuration.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:      10 << 20,
		RequireExtension: true,
		Extension:        ".esp",
	}
}

// HardSizeCap is the absolute file size ceiling; configuration cannot raise
// it.
const HardSizeCap = 50 << 20

// Source is the validated input handed to the lexer. Text preserves the raw
// bytes exactly; line ending normalization happens only in positional
// bookkeeping.
type Source struct {
	Path string
	Text string
	Size int64
	Map  *token.SourceMap
}

// ProcessFile validates and reads the file at path. Failures are reported
// into sink and return nil; every intake failure is fatal for the pipeline.
func ProcessFile(path string, opts Options, sink *diag.Collector) *Source {
	if path == "" {
		sink.Add(diag.Errorf(diag.InvalidPath, nil, "empty source path"))
		return nil
	}

	if opts.RequireExtension {
		ext := opts.Extension
		if ext == "" {
			ext = ".esp"
		}
		if filepath.Ext(path) != ext {
			sink.Add(diag.Errorf(diag.InvalidExtension, nil,
				"%s: expected a %q file", path, ext).
				With("path", path))
			return nil
		}
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		sink.Add(diag.Errorf(diag.FileNotFound, nil, "%s: no such file", path).
			With("path", path))
		return nil
	case errors.Is(err, os.ErrPermission):
		sink.Add(diag.Errorf(diag.PermissionDenied, nil, "%s: permission denied", path).
			With("path", path))
		return nil
	case err != nil:
		sink.Add(diag.Errorf(diag.IOError, nil, "%s: %v", path, err).
			With("path", path))
		return nil
	}
	if info.IsDir() {
		sink.Add(diag.Errorf(diag.InvalidPath, nil, "%s: is a directory", path).
			With("path", path))
		return nil
	}

	sizeCap := opts.MaxFileSize
	if sizeCap <= 0 || sizeCap > HardSizeCap {
		sizeCap = HardSizeCap
	}
	if info.Size() > sizeCap {
		sink.Add(diag.Errorf(diag.FileTooLarge, nil,
			"%s: %d bytes exceeds the limit of %d", path, info.Size(), sizeCap).
			With("path", path).
			With("size", fmt.Sprintf("%d", info.Size())))
		return nil
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrPermission):
		sink.Add(diag.Errorf(diag.PermissionDenied, nil, "%s: permission denied", path).
			With("path", path))
		return nil
	case err != nil:
		sink.Add(diag.Errorf(diag.IOError, nil, "%s: %v", path, err).
			With("path", path))
		return nil
	}

	return process(path, data, sink)
}

// ProcessSource validates an in-memory buffer; used by tests and embedding
// callers that already hold the source text.
func ProcessSource(name string, data []byte, sink *diag.Collector) *Source {
	return process(name, data, sink)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func process(path string, data []byte, sink *diag.Collector) *Source {
	if len(data) == 0 {
		sink.Add(diag.Errorf(diag.EmptyFile, nil, "%s: file is empty", path).
			With("path", path))
		return nil
	}
	if bytes.HasPrefix(data, utf8BOM) {
		sink.Add(diag.Errorf(diag.InvalidEncoding, nil,
			"%s: UTF-8 byte order mark is not allowed", path).
			With("path", path).
			WithHint("save the file as UTF-8 without BOM"))
		return nil
	}
	if !utf8.Valid(data) {
		sink.Add(diag.Errorf(diag.InvalidEncoding, nil,
			"%s: file is not valid UTF-8", path).
			With("path", path))
		return nil
	}

	text := string(data)
	return &Source{
		Path: path,
		Text: text,
		Size: int64(len(data)),
		Map:  token.NewSourceMap(text),
	}
}
