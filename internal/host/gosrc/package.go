// Package gosrc exposes the declarations of a Go package directory to the
// resolution engine. Doc comments carry annotations, struct tags under the
// "meta" key carry native structured attributes, and each file's imports
// form its alias table. The package import path is the ambient namespace,
// with "." as separator, so a type Handler in example.com/app/api is
// addressed as "example.com/app/api.Handler".
package gosrc

import (
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/toyz/docmeta/internal/aliases"
	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/errors"
	"github.com/toyz/docmeta/internal/host"
)

// Separator joins an import path and a declared name
const Separator = "."

// Package is a host.Host over one parsed Go package
type Package struct {
	Name       string // package clause name
	ImportPath string // ambient namespace
	Dir        string

	reader *FileReader
	types  map[string]*typeDecl
	order  []string
	tables map[string]*aliases.Table // by file path
}

var (
	_ host.Host          = (*Package)(nil)
	_ host.AliasProvider = (*Package)(nil)
)

type typeDecl struct {
	file    string
	offset  int // byte offset of the declaration in file
	members []annotations.Key
	decls   map[annotations.Key]*declaration
}

type declaration struct {
	comment string
	attrs   []host.StructuredAttribute
}

// Option configures Load
type Option func(*loadConfig)

type loadConfig struct {
	importPath string
	modulePath string
	reader     *FileReader
}

// WithImportPath sets the package import path instead of deriving it from go.mod
func WithImportPath(path string) Option {
	return func(c *loadConfig) { c.importPath = path }
}

// WithModulePath replaces the module path declared by go.mod; the package
// keeps its position relative to the module root
func WithModulePath(path string) Option {
	return func(c *loadConfig) { c.modulePath = path }
}

// WithFileReader shares a FileReader, and its caches, across loads
func WithFileReader(reader *FileReader) Option {
	return func(c *loadConfig) { c.reader = reader }
}

// Load parses the non-test Go files of dir
func Load(dir string, opts ...Option) (*Package, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.reader == nil {
		cfg.reader = NewFileReader()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapFileSystemError("read directory", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return nil, errors.Newf(errors.PackageLoadErrorCode, "no Go files found in directory %s", dir).
			WithContext("path", dir).
			WithSuggestion("Point docmeta at a package directory, or append /... to scan the packages below it")
	}

	pkg := &Package{
		Dir:    dir,
		reader: cfg.reader,
		types:  make(map[string]*typeDecl),
		tables: make(map[string]*aliases.Table),
	}

	parsed := make(map[string]*ast.File, len(files))
	for _, path := range files {
		file, err := cfg.reader.ParseGoFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.PackageLoadErrorCode, "failed to load package", err).
				WithContext("path", path)
		}
		if pkg.Name == "" {
			pkg.Name = file.Name.Name
		} else if file.Name.Name != pkg.Name {
			return nil, errors.Newf(errors.PackageLoadErrorCode, "multiple packages found in directory %s: %s and %s", dir, pkg.Name, file.Name.Name).
				WithContext("path", dir).
				WithContext("file", filepath.Base(path)).
				WithSuggestion("Keep one package per directory; external test packages belong in _test.go files")
		}
		parsed[path] = file
	}

	pkg.ImportPath = cfg.importPath
	if pkg.ImportPath == "" {
		importPath, err := NewGoModParser(cfg.reader).ImportPathIn(dir, cfg.modulePath)
		if err != nil {
			importPath = pkg.Name
		}
		pkg.ImportPath = importPath
	}

	var methods []*ast.FuncDecl
	for _, path := range files {
		file := parsed[path]
		pkg.tables[path] = fileAliases(pkg.ImportPath, file)

		for _, d := range file.Decls {
			switch d := d.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				if err := pkg.addTypes(path, d); err != nil {
					return nil, err
				}
			case *ast.FuncDecl:
				if d.Recv != nil && len(d.Recv.List) > 0 {
					methods = append(methods, d)
				}
			}
		}
	}

	for _, fn := range methods {
		name := receiverName(fn.Recv.List[0].Type)
		t, exists := pkg.types[pkg.qualify(name)]
		if !exists {
			continue
		}
		t.add(annotations.MethodKey(pkg.qualify(name), fn.Name.Name), commentText(fn.Doc), nil)
	}

	return pkg, nil
}

func (p *Package) qualify(name string) string {
	return p.ImportPath + Separator + name
}

func (p *Package) addTypes(path string, gd *ast.GenDecl) error {
	for _, spec := range gd.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		doc := ts.Doc
		if doc == nil && len(gd.Specs) == 1 {
			doc = gd.Doc
		}

		typeName := p.qualify(ts.Name.Name)
		t := &typeDecl{
			file:   path,
			offset: p.reader.FileSet().Position(gd.Pos()).Offset,
			decls: map[annotations.Key]*declaration{
				annotations.TypeKey(typeName): {comment: commentText(doc)},
			},
		}

		switch st := ts.Type.(type) {
		case *ast.StructType:
			for _, field := range st.Fields.List {
				attrs, err := fieldAttributes(field)
				if err != nil {
					pos := p.reader.FileSet().Position(field.Pos())
					return errors.Wrap(errors.MalformedValueCode, "invalid meta tag", err).
						WithLocation(errors.SourceLocation{File: pos.Filename, Line: pos.Line, Column: pos.Column})
				}
				for _, name := range fieldNames(field) {
					t.add(annotations.PropertyKey(typeName, name), commentText(field.Doc), attrs)
				}
			}
		case *ast.InterfaceType:
			for _, method := range st.Methods.List {
				for _, name := range method.Names {
					t.add(annotations.MethodKey(typeName, name.Name), commentText(method.Doc), nil)
				}
			}
		}

		if _, exists := p.types[typeName]; !exists {
			p.order = append(p.order, typeName)
		}
		p.types[typeName] = t
	}
	return nil
}

func (t *typeDecl) add(key annotations.Key, comment string, attrs []host.StructuredAttribute) {
	if _, exists := t.decls[key]; !exists {
		t.members = append(t.members, key)
	}
	t.decls[key] = &declaration{comment: comment, attrs: attrs}
}

// Types returns the fully-qualified names of the package's types in source order
func (p *Package) Types() []string {
	return append([]string(nil), p.order...)
}

func (p *Package) lookup(decl annotations.Key) (*declaration, error) {
	t, exists := p.types[decl.Type]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(decl.Type, decl.Member)
	}
	d, exists := t.decls[decl]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(decl.Type, decl.Member)
	}
	return d, nil
}

// Comment implements host.Host
func (p *Package) Comment(decl annotations.Key) (string, error) {
	d, err := p.lookup(decl)
	if err != nil {
		return "", err
	}
	return d.comment, nil
}

// StructuredAttributes implements host.Host
func (p *Package) StructuredAttributes(decl annotations.Key) ([]host.StructuredAttribute, error) {
	d, err := p.lookup(decl)
	if err != nil {
		return nil, err
	}
	return append([]host.StructuredAttribute(nil), d.attrs...), nil
}

// Source implements host.Host. The text is the file up to the type declaration.
func (p *Package) Source(typeName string) (host.Source, error) {
	t, exists := p.types[typeName]
	if !exists {
		return host.Source{}, errors.NewHostDeclarationNotFoundError(typeName, "")
	}
	content, err := p.reader.ReadFile(t.file)
	if err != nil {
		return host.Source{}, errors.WrapFileSystemError("read source", t.file, err)
	}
	if t.offset <= len(content) {
		content = content[:t.offset]
	}
	return host.Source{Path: t.file, Text: content}, nil
}

// Members implements host.Host
func (p *Package) Members(typeName string) ([]annotations.Key, error) {
	t, exists := p.types[typeName]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(typeName, "")
	}
	return append([]annotations.Key(nil), t.members...), nil
}

// Aliases implements host.AliasProvider with the imports of the type's file
func (p *Package) Aliases(typeName string) (*aliases.Table, error) {
	t, exists := p.types[typeName]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(typeName, "")
	}
	return p.tables[t.file], nil
}

// fileAliases maps each import's package name, or its explicit alias, to
// the import path
func fileAliases(importPath string, file *ast.File) *aliases.Table {
	table := aliases.NewTable(importPath, Separator)
	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := packageName(path)
		if spec.Name != nil && spec.Name.Name != "_" && spec.Name.Name != "." {
			name = spec.Name.Name
		}
		table.Add(path, name)
	}
	return table
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// packageName guesses the package clause name of an import path
func packageName(path string) string {
	elems := strings.Split(path, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && majorVersion.MatchString(name) {
		name = elems[len(elems)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "")
}

func commentText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	lines := make([]string, 0, len(cg.List))
	for _, c := range cg.List {
		lines = append(lines, c.Text)
	}
	return strings.Join(lines, "\n")
}

func fieldNames(field *ast.Field) []string {
	if len(field.Names) > 0 {
		names := make([]string, 0, len(field.Names))
		for _, n := range field.Names {
			names = append(names, n.Name)
		}
		return names
	}
	if name := receiverName(field.Type); name != "" {
		return []string{name}
	}
	return nil
}

// receiverName returns the base type name of a receiver or embedded field
func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.ParenExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}
