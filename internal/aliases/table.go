// Package aliases maps the short names written in annotations to the
// fully-qualified names they refer to, using the import statements that
// precede a declaration.
package aliases

import (
	"strings"
)

// DefaultSeparator separates namespace segments in fully-qualified names
const DefaultSeparator = `\`

// TypeIndex reports whether a fully-qualified name is known. The annotation
// registry satisfies it.
type TypeIndex interface {
	IsRegistered(name string) bool
}

// Table maps short or partially-qualified names to fully-qualified names for
// one enclosing type. The zero value is not usable; call NewTable.
type Table struct {
	Namespace string // ambient namespace of the enclosing type
	Separator string // namespace separator

	entries map[string]string
	aliased []string // qualified names imported with an alias, oldest first
}

// NewTable creates an empty table for the given ambient namespace
func NewTable(namespace, separator string) *Table {
	if separator == "" {
		separator = DefaultSeparator
	}
	return &Table{
		Namespace: strings.Trim(namespace, separator),
		Separator: separator,
		entries:   make(map[string]string),
	}
}

// Add records an import of path. Without an alias the import is keyed by
// its short name. With an alias it is keyed by the fully-qualified name and
// by the alias, and a stale short-name entry for the same path is removed.
// Later imports of the same key win.
func (t *Table) Add(path, alias string) {
	path = strings.TrimPrefix(path, t.Separator)
	if path == "" {
		return
	}

	if alias == "" {
		t.entries[t.shortName(path)] = path
		return
	}

	if short := t.shortName(path); short != alias && t.entries[short] == path {
		delete(t.entries, short)
	}
	t.entries[path] = path
	t.entries[alias] = path

	for i, p := range t.aliased {
		if p == path {
			t.aliased = append(t.aliased[:i], t.aliased[i+1:]...)
			break
		}
	}
	t.aliased = append(t.aliased, path)
}

// Entries returns a copy of the table. The "" key holds the ambient namespace.
func (t *Table) Entries() map[string]string {
	out := make(map[string]string, len(t.entries)+1)
	for k, v := range t.entries {
		out[k] = v
	}
	out[""] = t.Namespace
	return out
}

// Len returns the number of import entries
func (t *Table) Len() int {
	return len(t.entries)
}

// FindQualifiedName resolves name to a fully-qualified name.
//
// It tries, in order: an exact import entry, an import whose canonical
// short name matches, a namespace prefix naming an import followed by the
// separator, and finally the ambient namespace. Only the ambient fallback is
// checked against index. When that check fails the result is absent if
// mustExist is set and name itself otherwise.
func (t *Table) FindQualifiedName(name string, mustExist bool, index TypeIndex) (string, bool) {
	if name == "" {
		return "", false
	}
	if strings.HasPrefix(name, t.Separator) {
		return strings.TrimPrefix(name, t.Separator), true
	}
	// Import paths are already fully qualified.
	if strings.Contains(name, "/") {
		return name, true
	}

	if path, ok := t.lookup(name); ok {
		return path, true
	}

	if i := strings.Index(name, t.Separator); i > 0 {
		if path, ok := t.lookup(name[:i]); ok {
			return path + name[i:], true
		}
	}

	candidate := name
	if t.Namespace != "" {
		candidate = t.Namespace + t.Separator + name
	}
	if index != nil && index.IsRegistered(candidate) {
		return candidate, true
	}
	if mustExist {
		return "", false
	}
	return name, true
}

// lookup finds an exact entry, then the most recent aliased import whose
// own short name is name
func (t *Table) lookup(name string) (string, bool) {
	if path, ok := t.entries[name]; ok {
		return path, true
	}

	for i := len(t.aliased) - 1; i >= 0; i-- {
		if path := t.aliased[i]; t.entries[path] == path && t.shortName(path) == name {
			return path, true
		}
	}
	return "", false
}

// shortName returns the last segment of path, split on the separator or '/'
func (t *Table) shortName(path string) string {
	cut := strings.LastIndex(path, t.Separator)
	if slash := strings.LastIndex(path, "/"); slash > cut {
		return path[slash+1:]
	}
	if cut < 0 {
		return path
	}
	return path[cut+len(t.Separator):]
}

// Finder binds a table to a type index so it can be handed to the hydrator
// and the generic annotation model as a name finder
type Finder struct {
	Table *Table
	Index TypeIndex
}

// FindQualifiedName implements annotations.QualifiedNameFinder
func (f Finder) FindQualifiedName(name string, mustExist bool) (string, bool) {
	if f.Table == nil {
		if mustExist && (f.Index == nil || !f.Index.IsRegistered(name)) {
			return "", false
		}
		return name, name != ""
	}
	return f.Table.FindQualifiedName(name, mustExist, f.Index)
}
