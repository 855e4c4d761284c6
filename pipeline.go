// Package espc is the ESP (Endpoint State Policy) core: a seven-pass
// compiler and a multi-phase resolver that turn an .esp source file into a
// validated, fully resolved Execution Context for a scanner runtime.
package espc

import (
	"context"
	"fmt"
	"time"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
	"github.com/esplang/espc/intake"
	"github.com/esplang/espc/lexer"
	"github.com/esplang/espc/parser"
	"github.com/esplang/espc/refs"
	"github.com/esplang/espc/resolver"
	"github.com/esplang/espc/semantic"
	"github.com/esplang/espc/structural"
	"github.com/esplang/espc/symbols"
	"github.com/esplang/espc/token"
)

// PipelineContext carries the state of one file's compilation through the
// nine stages. Each stage owns its output field; downstream stages read but
// do not mutate prior outputs (the resolver works on its own structures).
type PipelineContext struct {
	Config *Config
	Sink   *diag.Collector

	Path   string
	Source *intake.Source
	Tokens []token.Token
	File   *ast.EspFile
	Tables *symbols.Tables
	Result *execctx.ExecutionContext

	started time.Time
}

// Stage is one pipeline pass. A stage reports its diagnostics into the
// context's sink; any error diagnostic blocks all downstream stages.
type Stage interface {
	Name() string
	Run(pc *PipelineContext) error
}

// stageFunc adapts a function to the Stage interface.
type stageFunc struct {
	name string
	run  func(pc *PipelineContext) error
}

func (s stageFunc) Name() string                  { return s.name }
func (s stageFunc) Run(pc *PipelineContext) error { return s.run(pc) }

// Pipeline executes the compiler and resolver stages sequentially for one
// file. Pipelines are stateless and safe to reuse across files; all per-file
// state lives in the PipelineContext.
type Pipeline struct {
	stages []Stage
}

// NewPipeline builds the standard pipeline. The final stage covers both the
// resolution engine and set expansion, which share one working context.
func NewPipeline() *Pipeline {
	return &Pipeline{stages: []Stage{
		stageFunc{"file intake", runIntake},
		stageFunc{"lexical analysis", runLexer},
		stageFunc{"syntax analysis", runParser},
		stageFunc{"symbol discovery", runSymbols},
		stageFunc{"reference validation", runRefs},
		stageFunc{"semantic analysis", runSemantic},
		stageFunc{"structural validation", runStructural},
		stageFunc{"resolution", runResolution},
	}}
}

// Execute runs every stage in order. The first stage that leaves errors in
// the sink halts the pipeline; ctx cancellation and the configured wall-clock
// budget are checked between stages.
func (p *Pipeline) Execute(ctx context.Context, pc *PipelineContext) error {
	pc.started = time.Now()
	deadline := pc.started.Add(pc.Config.Timeout())

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			pc.Sink.Add(diag.Errorf(diag.Timeout, nil,
				"processing cancelled during %s", stage.Name()))
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if time.Now().After(deadline) {
			pc.Sink.Add(diag.Errorf(diag.Timeout, nil,
				"processing exceeded the %s budget before %s",
				pc.Config.Timeout(), stage.Name()))
			return ErrTimeout
		}

		before := pc.Sink.ErrorCount()
		if err := stage.Run(pc); err != nil {
			return err
		}
		if pc.Sink.ErrorCount() > before {
			wrap := ErrCompileFailed
			if stage.Name() == "resolution" {
				wrap = ErrResolveFailed
			}
			return fmt.Errorf("%w: %s reported %d error(s)",
				wrap, stage.Name(), pc.Sink.ErrorCount()-before)
		}
	}
	return nil
}

func runIntake(pc *PipelineContext) error {
	if pc.Source != nil {
		return nil // in-memory source already provided
	}
	pc.Source = intake.ProcessFile(pc.Path, pc.Config.intakeOptions(), pc.Sink)
	return nil
}

func runLexer(pc *PipelineContext) error {
	lx := lexer.New(pc.Source.Text, pc.Config.lexerLimits())
	pc.Tokens = lx.Run(pc.Sink)
	return nil
}

func runParser(pc *PipelineContext) error {
	pc.File = parser.Parse(pc.Tokens, pc.Config.parserOptions(), pc.Sink)
	return nil
}

func runSymbols(pc *PipelineContext) error {
	pc.Tables = symbols.Collect(pc.File, pc.Sink)
	return nil
}

func runRefs(pc *PipelineContext) error {
	refs.Validate(pc.File, pc.Tables, pc.Config.refsOptions(), pc.Sink)
	return nil
}

func runSemantic(pc *PipelineContext) error {
	semantic.Analyze(pc.File, pc.Tables, pc.Config.semanticOptions(), pc.Sink)
	return nil
}

func runStructural(pc *PipelineContext) error {
	structural.Validate(pc.File, pc.Tables, pc.Config.structuralLimits(), pc.Sink)
	if !pc.Sink.HasErrors() {
		pc.Sink.Add(diag.Infof(diag.CompileSuccess,
			"compiled %s: %d tokens, %d symbols in %s",
			pc.Path, len(pc.Tokens), pc.Tables.Global.Count(), time.Since(pc.started)))
	}
	return nil
}

// runResolution covers stages 8 and 9: the resolution engine and set
// expansion both live in the resolver package and emit one context.
func runResolution(pc *PipelineContext) error {
	result := resolver.Resolve(pc.File, pc.Tables, pc.Sink)
	if result == nil {
		return nil
	}

	result.DocumentID = execctx.DocumentIDFor([]byte(pc.Source.Text))
	result.Stats = execctx.ProcessingStats{
		TokenCount:  len(pc.Tokens),
		SymbolCount: pc.Tables.Global.Count(),
		DurationMS:  time.Since(pc.started).Milliseconds(),
		FileSize:    pc.Source.Size,
	}
	pc.Result = result

	pc.Sink.Add(diag.Infof(diag.ResolveSuccess,
		"resolved %d variables, %d objects, %d states",
		len(result.Variables), len(result.Objects), len(result.States)))
	return nil
}
