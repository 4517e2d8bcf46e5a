package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/cli"
	"github.com/toyz/docmeta/internal/diagnostics"
	"github.com/toyz/docmeta/pkg/vocab"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("docmeta", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		moduleFlag    = fs.String("module", "", "Module path to use instead of the one in go.mod")
		verboseFlag   = fs.Bool("verbose", false, "Enable verbose output and detailed error reporting")
		debugFlag     = fs.Bool("debug", false, "Enable debug output, including engine statistics")
		quietFlag     = fs.Bool("quiet", false, "Only show resolved annotations and errors")
		strictFlag    = fs.Bool("strict", false, "Fail on every resolution error, including generic fallbacks")
		noColorFlag   = fs.Bool("no-color", false, "Disable colored output")
		timesFlag     = fs.Bool("timestamps", false, "Prefix log messages with the time of day")
		typeAttrsFlag = fs.String("type-attrs", strings.Join(vocab.TypeNameAttributes, ","), "Comma-separated attributes whose values name types")
		helpFlag      = fs.Bool("help", false, "Show help information")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: docmeta [options] <directory-paths...>\n\n")
		fmt.Fprintf(stderr, "Docmeta Annotation Inspector\n")
		fmt.Fprintf(stderr, "Resolves the @annotations in the doc comments and meta struct tags of Go packages and prints them.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nArguments:\n")
		fmt.Fprintf(stderr, "  directory-paths    One or more package directories to inspect\n")
		fmt.Fprintf(stderr, "                     Supports Go-style patterns like './...' for recursive scanning\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  docmeta ./...                                   # Inspect everything recursively\n")
		fmt.Fprintf(stderr, "  docmeta ./internal/controllers                  # Inspect one package\n")
		fmt.Fprintf(stderr, "  docmeta --module github.com/myorg/myapp ./...   # Override the module path\n")
		fmt.Fprintf(stderr, "  docmeta --strict ./...                          # Fail on malformed annotations\n")
		fmt.Fprintf(stderr, "  docmeta --no-color ./... 2> inspect.log         # Plain output for log files\n")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if *helpFlag {
		fs.Usage()
		return 0
	}

	dirs := fs.Args()
	if len(dirs) == 0 {
		fmt.Fprintf(stderr, "Error: At least one directory path is required\n\n")
		fs.Usage()
		return 1
	}

	var d *diagnostics.System
	switch {
	case *quietFlag:
		d = diagnostics.NewQuiet()
	case *debugFlag:
		d = diagnostics.New(diagnostics.Debug)
	case *verboseFlag:
		d = diagnostics.NewVerbose()
	default:
		d = diagnostics.New(diagnostics.Info)
	}
	d.WithWriters(stderr, stderr).WithTimestamps(*timesFlag)
	if *noColorFlag {
		color.NoColor = true
		d.WithColors(false)
	}
	reporter := cli.NewDiagnosticReporter(*verboseFlag || *debugFlag, stderr)

	cfg := cli.Config{
		Directories:        dirs,
		ModuleName:         *moduleFlag,
		Verbose:            *verboseFlag || *debugFlag,
		Strict:             *strictFlag,
		TypeNameAttributes: splitList(*typeAttrsFlag),
	}
	if err := cfg.Validate(); err != nil {
		reporter.ReportError(err)
		return 2
	}

	d.Section("Docmeta Annotation Inspector")
	if cfg.Verbose {
		d.Subsection("Configuration")
		d.Indent()
		d.List("Target directories: %s", strings.Join(dirs, ", "))
		if cfg.ModuleName != "" {
			d.List("Custom module: %s", cfg.ModuleName)
		}
		d.List("Strict mode: %t", cfg.Strict)
		d.List("Type-name attributes: %s", strings.Join(cfg.TypeNameAttributes, ", "))
		d.Unindent()
	}

	reg := annotations.NewRegistry()
	if err := vocab.Register(reg, vocab.DefaultNamespace, vocab.DefaultSeparator); err != nil {
		reporter.ReportError(err)
		return 1
	}

	inspector := cli.NewInspector(reg, d, stdout)
	err := inspector.Run(cfg)

	summary := inspector.Summary()
	d.Summary("Inspection Complete", map[string]interface{}{
		"Packages processed":  summary.PackagesProcessed,
		"Types resolved":      summary.TypesResolved,
		"Annotated members":   summary.Declarations,
		"Typed annotations":   summary.TypedAnnotations,
		"Generic annotations": summary.GenericAnnotations,
		"Errors":              summary.Errors,
	})

	if summary.Fallbacks > 0 {
		reporter.ReportWarning(fmt.Sprintf("%d annotations fell back to generic values; run with --debug to see why", summary.Fallbacks))
	}

	if err != nil {
		reporter.ReportError(err)
		return 1
	}
	d.Success("Inspection finished without errors")
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
