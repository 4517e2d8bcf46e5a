package host

import (
	"sync"

	"github.com/toyz/docmeta/internal/aliases"
	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/errors"
)

// Memory is a Host backed by declarations registered in code. It is safe
// for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	types map[string]*memoryType
	order []string
}

type memoryType struct {
	source  Source
	aliases *aliases.Table
	decls   map[annotations.Key]*memoryDecl
	members []annotations.Key
}

type memoryDecl struct {
	comment string
	attrs   []StructuredAttribute
}

// NewMemory creates an empty in-memory host
func NewMemory() *Memory {
	return &Memory{types: make(map[string]*memoryType)}
}

// TypeBuilder adds declarations to one type of a Memory host
type TypeBuilder struct {
	host *Memory
	name string
}

// Type returns a builder for typeName, declaring the type if needed
func (m *Memory) Type(typeName string) *TypeBuilder {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.types[typeName]; !exists {
		key := annotations.TypeKey(typeName)
		m.types[typeName] = &memoryType{
			decls: map[annotations.Key]*memoryDecl{key: {}},
		}
		m.order = append(m.order, typeName)
	}
	return &TypeBuilder{host: m, name: typeName}
}

// Types returns the declared type names in declaration order
func (m *Memory) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (b *TypeBuilder) update(fn func(t *memoryType)) *TypeBuilder {
	b.host.mu.Lock()
	defer b.host.mu.Unlock()
	fn(b.host.types[b.name])
	return b
}

// Source sets the file path and header text of the type
func (b *TypeBuilder) Source(path, text string) *TypeBuilder {
	return b.update(func(t *memoryType) { t.source = Source{Path: path, Text: text} })
}

// Aliases sets a prebuilt alias table, bypassing source scanning
func (b *TypeBuilder) Aliases(table *aliases.Table) *TypeBuilder {
	return b.update(func(t *memoryType) { t.aliases = table })
}

// Doc sets the comment block of the type itself
func (b *TypeBuilder) Doc(comment string, attrs ...StructuredAttribute) *TypeBuilder {
	return b.update(func(t *memoryType) {
		t.decls[annotations.TypeKey(b.name)] = &memoryDecl{comment: comment, attrs: attrs}
	})
}

// Property declares a property with its comment block and native attributes
func (b *TypeBuilder) Property(name, comment string, attrs ...StructuredAttribute) *TypeBuilder {
	return b.member(annotations.PropertyKey(b.name, name), comment, attrs)
}

// Method declares a method with its comment block and native attributes
func (b *TypeBuilder) Method(name, comment string, attrs ...StructuredAttribute) *TypeBuilder {
	return b.member(annotations.MethodKey(b.name, name), comment, attrs)
}

func (b *TypeBuilder) member(key annotations.Key, comment string, attrs []StructuredAttribute) *TypeBuilder {
	return b.update(func(t *memoryType) {
		if _, exists := t.decls[key]; !exists {
			t.members = append(t.members, key)
		}
		t.decls[key] = &memoryDecl{comment: comment, attrs: attrs}
	})
}

func (m *Memory) lookup(decl annotations.Key) (*memoryDecl, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.types[decl.Type]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(decl.Type, decl.Member)
	}
	d, exists := t.decls[decl]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(decl.Type, decl.Member)
	}
	return d, nil
}

// Comment implements Host
func (m *Memory) Comment(decl annotations.Key) (string, error) {
	d, err := m.lookup(decl)
	if err != nil {
		return "", err
	}
	return d.comment, nil
}

// StructuredAttributes implements Host
func (m *Memory) StructuredAttributes(decl annotations.Key) ([]StructuredAttribute, error) {
	d, err := m.lookup(decl)
	if err != nil {
		return nil, err
	}
	return append([]StructuredAttribute(nil), d.attrs...), nil
}

// Source implements Host
func (m *Memory) Source(typeName string) (Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.types[typeName]
	if !exists {
		return Source{}, errors.NewHostDeclarationNotFoundError(typeName, "")
	}
	return t.source, nil
}

// Members implements Host
func (m *Memory) Members(typeName string) ([]annotations.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.types[typeName]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(typeName, "")
	}
	return append([]annotations.Key(nil), t.members...), nil
}

// Aliases implements AliasProvider
func (m *Memory) Aliases(typeName string) (*aliases.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.types[typeName]
	if !exists {
		return nil, errors.NewHostDeclarationNotFoundError(typeName, "")
	}
	return t.aliases, nil
}
