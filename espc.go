package espc

import (
	"context"

	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
	"github.com/esplang/espc/intake"
)

// Version is the ESP core version.
const Version = "0.4.0"

// Result bundles one file's outcome: the execution context (nil on failure)
// and every diagnostic the pipeline recorded.
type Result struct {
	Path    string
	Context *execctx.ExecutionContext
	Sink    *diag.Collector
	Err     error
}

// Compile runs the full pipeline over the file at path and returns the
// execution context. The collector in the result always holds the
// diagnostics, including warnings on success.
func Compile(ctx context.Context, path string, cfg *Config) Result {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	pc := &PipelineContext{
		Config: cfg,
		Sink:   diag.NewCollector(cfg.Runtime.MaxDiagnostics),
		Path:   path,
	}
	err := NewPipeline().Execute(ctx, pc)
	return Result{Path: path, Context: pc.Result, Sink: pc.Sink, Err: err}
}

// CompileSource runs the full pipeline over an in-memory buffer. The name is
// used in diagnostics only.
func CompileSource(ctx context.Context, name string, source []byte, cfg *Config) Result {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	sink := diag.NewCollector(cfg.Runtime.MaxDiagnostics)
	pc := &PipelineContext{
		Config: cfg,
		Sink:   sink,
		Path:   name,
		Source: intake.ProcessSource(name, source, sink),
	}
	if pc.Source == nil {
		return Result{Path: name, Sink: sink, Err: ErrCompileFailed}
	}
	err := NewPipeline().Execute(ctx, pc)
	return Result{Path: name, Context: pc.Result, Sink: pc.Sink, Err: err}
}

// Validate runs the compiler stages only (1-7), without resolution. It
// reports whether the file is valid ESP.
func Validate(ctx context.Context, path string, cfg *Config) Result {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	pc := &PipelineContext{
		Config: cfg,
		Sink:   diag.NewCollector(cfg.Runtime.MaxDiagnostics),
		Path:   path,
	}
	p := NewPipeline()
	p.stages = p.stages[:7] // stop before resolution
	err := p.Execute(ctx, pc)
	return Result{Path: path, Sink: pc.Sink, Err: err}
}
