// Package host defines what the resolution engine needs from the runtime
// that owns the declarations: comment text, native structured attributes,
// source text for alias resolution, and member enumeration.
package host

import (
	"github.com/toyz/docmeta/internal/aliases"
	"github.com/toyz/docmeta/internal/annotations"
)

// StructuredAttribute is one native attribute attached to a declaration,
// such as a Go struct tag entry
type StructuredAttribute struct {
	Name      string // annotation name as written
	Arguments string // raw value in the value language, usually parenthesized
}

// Source locates the text that precedes an enclosing type's declaration
type Source struct {
	Path string // file path, empty when the text does not come from a file
	Text string // source text; only the header before the declaration is scanned
}

// Host is the introspection facility the engine reads declarations from.
// Lookups of unknown declarations fail with *errors.HostDeclarationNotFoundError.
type Host interface {
	// Comment returns the raw comment block of a declaration, empty if none
	Comment(decl annotations.Key) (string, error)

	// StructuredAttributes returns native attributes in declaration order.
	// When the list is non-empty it is used instead of the comment block.
	StructuredAttributes(decl annotations.Key) ([]StructuredAttribute, error)

	// Source returns the text needed to build the alias table of a type
	Source(typeName string) (Source, error)

	// Members returns the keys of a type's properties and methods in declaration order
	Members(typeName string) ([]annotations.Key, error)
}

// AliasProvider is implemented by hosts that know their import tables
// without scanning source text. A nil table means the host has no table
// for that type and the engine scans Source instead.
type AliasProvider interface {
	Aliases(typeName string) (*aliases.Table, error)
}
