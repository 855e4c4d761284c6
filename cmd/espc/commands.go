package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/esplang/espc"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
)

// CompileCmd represents the compile command
type CompileCmd struct {
	Files    []string `arg:"" help:"ESP source files to compile" type:"existingfile"`
	Output   string   `help:"Output directory (defaults next to each source)" short:"o" type:"path"`
	Format   string   `help:"Output format" default:"yaml" enum:"yaml,json"`
	Parallel int      `help:"Number of parallel workers (0 = CPU count)" default:"0"`
}

// Run executes the compile command
func (cmd *CompileCmd) Run(ctx *Context) error {
	cfg, err := espc.LoadConfig(ctx.Config)
	if err != nil {
		color.Red("configuration error: %v", err)
		return err
	}

	results, err := espc.CompileBatch(context.Background(), cmd.Files, cfg, cmd.Parallel)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		printDiagnostics(ctx, res)
		if res.Context == nil {
			failed++
			continue
		}
		if err := cmd.write(res.Path, res.Context); err != nil {
			color.Red("%s: %v", res.Path, err)
			failed++
			continue
		}
		if !ctx.Quiet {
			color.Green("compiled %s", res.Path)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func (cmd *CompileCmd) write(sourcePath string, ec *execctx.ExecutionContext) error {
	var data []byte
	var err error
	ext := ".yaml"
	if cmd.Format == "json" {
		ext = ".json"
		data, err = execctx.EncodeJSON(ec)
	} else {
		data, err = execctx.EncodeYAML(ec)
	}
	if err != nil {
		return fmt.Errorf("failed to encode execution context: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	dir := filepath.Dir(sourcePath)
	if cmd.Output != "" {
		dir = cmd.Output
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return os.WriteFile(filepath.Join(dir, base+ext), data, 0o644)
}

// ValidateCmd represents the validate command
type ValidateCmd struct {
	Files []string `arg:"" help:"ESP source files to validate" type:"existingfile"`
}

// Run executes the validate command
func (cmd *ValidateCmd) Run(ctx *Context) error {
	cfg, err := espc.LoadConfig(ctx.Config)
	if err != nil {
		color.Red("configuration error: %v", err)
		return err
	}

	failed := 0
	for _, path := range cmd.Files {
		res := espc.Validate(context.Background(), path, cfg)
		printDiagnostics(ctx, res)
		if res.Sink.HasErrors() {
			failed++
			continue
		}
		if !ctx.Quiet {
			color.Green("%s is valid", path)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(cmd.Files))
	}
	return nil
}

// printDiagnostics renders every diagnostic of a result in the cargo style.
// Info and debug entries only show in verbose mode.
func printDiagnostics(ctx *Context, res espc.Result) {
	var src *diag.SourceContext
	// Source context renders the offending line with a caret underline.
	if data, err := os.ReadFile(res.Path); err == nil {
		src = diag.NewSourceContext(res.Path, string(data))
	}

	for _, d := range res.Sink.All() {
		switch d.Severity {
		case diag.SeverityError, diag.SeverityWarning:
			fmt.Fprint(os.Stderr, diag.Render(d, src))
		default:
			if ctx.Verbose {
				fmt.Fprint(os.Stderr, diag.Render(d, src))
			}
		}
	}
}
