package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/esplang/espc"
)

// Context represents the global context for commands
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool
}

// CLI defines the command structure
type CLI struct {
	Config  string `help:"Configuration file path" short:"c" type:"path"`
	Verbose bool   `help:"Enable verbose output" short:"v"`
	Quiet   bool   `help:"Suppress non-error output" short:"q"`

	Compile  CompileCmd  `cmd:"" help:"Compile .esp files into execution contexts"`
	Validate ValidateCmd `cmd:"" help:"Validate .esp files without producing output"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(ctx *Context) error {
	fmt.Printf("espc %s\n", espc.Version)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("espc"),
		kong.Description("ESP (Endpoint State Policy) compiler and resolver"),
		kong.UsageOnError(),
	)

	err := kctx.Run(&Context{
		Config:  cli.Config,
		Verbose: cli.Verbose,
		Quiet:   cli.Quiet,
	})
	if err != nil {
		os.Exit(1)
	}
}
