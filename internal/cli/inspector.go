package cli

import (
	"io"
	"os"

	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/diagnostics"
	"github.com/toyz/docmeta/internal/engine"
	"github.com/toyz/docmeta/internal/errors"
	"github.com/toyz/docmeta/internal/host/gosrc"
)

// Summary counts what an inspection run resolved
type Summary struct {
	PackagesProcessed  int
	TypesResolved      int
	Declarations       int // declarations carrying at least one annotation
	TypedAnnotations   int
	GenericAnnotations int
	Fallbacks          int64
	Errors             int
}

// Inspector coordinates an inspection run: scan directories, load each Go
// package, resolve the annotations of every type and print them
type Inspector struct {
	scanner     *DirectoryScanner
	registry    annotations.Registry
	reader      *gosrc.FileReader
	diagnostics *diagnostics.System
	printer     *Printer
	summary     Summary
}

// NewInspector creates an inspector resolving against reg and printing to out
func NewInspector(reg annotations.Registry, d *diagnostics.System, out io.Writer) *Inspector {
	if d == nil {
		d = diagnostics.New(diagnostics.Info)
	}
	if out == nil {
		out = os.Stdout
	}
	return &Inspector{
		scanner:     NewDirectoryScanner(),
		registry:    reg,
		reader:      gosrc.NewFileReader(),
		diagnostics: d,
		printer:     NewPrinter(out),
	}
}

// Summary returns the counts of the last run
func (i *Inspector) Summary() Summary {
	return i.summary
}

// Run validates cfg and inspects every package directory it names. Packages
// that fail to load and types whose resolution surfaces an error are
// collected into the returned error; the run continues with the next one.
func (i *Inspector) Run(cfg Config) error {
	i.summary = Summary{}
	if err := cfg.Validate(); err != nil {
		return err
	}
	errs := &errors.MultipleErrors{}

	dirs, err := i.scanner.ScanDirectories(cfg.Directories)
	if err != nil {
		return err
	}
	i.diagnostics.Verbose("Found %d package directories", len(dirs))

	for _, dir := range dirs {
		i.inspectPackage(dir, cfg, errs)
	}

	i.summary.Errors = len(errs.Errors)
	return errs.ErrOrNil()
}

func (i *Inspector) inspectPackage(dir string, cfg Config, errs *errors.MultipleErrors) {
	opts := []gosrc.Option{gosrc.WithFileReader(i.reader)}
	if cfg.ModuleName != "" {
		opts = append(opts, gosrc.WithModulePath(cfg.ModuleName))
	}

	i.diagnostics.StartProgress("Loading " + dir)
	pkg, err := gosrc.Load(dir, opts...)
	if err != nil {
		i.diagnostics.EndProgress(false, "")
		errs.Add(err)
		return
	}
	i.diagnostics.EndProgress(true, pkg.ImportPath)
	i.summary.PackagesProcessed++

	eng := engine.New(pkg, i.registry, engine.Config{
		Silent:             !cfg.Strict,
		TypeNameAttributes: cfg.TypeNameAttributes,
		Logger:             i.diagnostics,
	})

	for _, typeName := range pkg.Types() {
		eng.ClearLastError()
		decls, err := eng.ResolveType(typeName)
		if err == nil && cfg.Strict {
			// Fallbacks are only recorded by the engine.
			err = eng.LastError()
		}
		if err != nil {
			errs.Add(err)
		}
		i.summary.TypesResolved++
		i.count(decls)
		i.printer.Type(typeName, decls)
	}

	stats := eng.Stats()
	i.summary.Fallbacks += stats.Fallbacks
	if i.diagnostics.Enabled(diagnostics.Debug) {
		astFiles, sources := i.reader.CacheStats()
		i.diagnostics.Indent()
		i.diagnostics.Debug("%d tokenizations, %d alias tables, %d hydrations, %d fallbacks",
			stats.Tokenizations, stats.AliasBuilds, stats.Hydrations, stats.Fallbacks)
		i.diagnostics.Debug("%d cached types, %d parsed files, %d cached sources",
			stats.CachedTypes, astFiles, sources)
		i.diagnostics.Unindent()
	}
	if msg := eng.LastErrorMessage(); msg != "" && eng.Silent() {
		i.diagnostics.Verbose("%s: last recorded error: %s", pkg.ImportPath, msg)
	}
}

func (i *Inspector) count(decls []engine.Declaration) {
	for _, decl := range decls {
		if decl.Annotations.Len() == 0 {
			continue
		}
		i.summary.Declarations++
		for _, result := range decl.Annotations.Results() {
			for _, occ := range result.Occurrences() {
				if occ.Typed {
					i.summary.TypedAnnotations++
				} else {
					i.summary.GenericAnnotations++
				}
			}
		}
	}
}
