// Package engine resolves the annotations attached to host declarations.
//
// For each declaration the engine tokenizes the comment block (or the host's
// native structured attributes), qualifies every annotation name through the
// alias table of the enclosing type, and hands each fragment to the Hydrator.
// Tokenized fragments, alias tables, resolved results and attribute reads are
// cached per enclosing type.
package engine

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/toyz/docmeta/internal/aliases"
	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/cache"
	"github.com/toyz/docmeta/internal/errors"
	"github.com/toyz/docmeta/internal/host"
)

// Engine resolves annotations for the declarations of one host. It is safe
// for concurrent use; concurrent first lookups of the same type may compute
// its caches twice, and the first stored result wins.
type Engine struct {
	host     host.Host
	hydrator *annotations.Hydrator
	types    *cache.Cache[string, *typeState]
	tables   *cache.Cache[string, *aliases.Table] // by source path

	mu            sync.RWMutex
	silent        bool
	typeNameAttrs []string
	logger        Logger
	lastErr       error

	generation    atomic.Int64 // bumped when resolved results are invalidated
	tokenizations atomic.Int64
	aliasBuilds   atomic.Int64
	hydrations    atomic.Int64
	fallbacks     atomic.Int64
}

// Stats counts the work the engine has done
type Stats struct {
	Tokenizations int64 // comment blocks or attribute lists tokenized
	AliasBuilds   int64 // alias tables built or fetched from the host
	Hydrations    int64 // Hydrator invocations, children included
	Fallbacks     int64 // hydrations that failed and produced a generic annotation instead
	SharedTables  int64 // alias tables reused from another type declared in the same file
	CachedTypes   int   // enclosing types with live caches
}

// typeState holds the caches of one enclosing type
type typeState struct {
	finder aliases.Finder

	mu        sync.RWMutex
	fragments map[annotations.Key][]annotations.Fragment
	resolved  map[annotations.Key]*Set
	reads     map[uuid.UUID]annotations.AttributeMap
	gen       int64
}

// New creates an engine over h. A nil reg uses annotations.DefaultRegistry.
func New(h host.Host, reg annotations.Registry, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Engine{
		host:          h,
		hydrator:      annotations.NewHydrator(reg),
		types:         cache.New[string, *typeState](),
		tables:        cache.New[string, *aliases.Table](),
		silent:        cfg.Silent,
		typeNameAttrs: append([]string(nil), cfg.TypeNameAttributes...),
		logger:        logger,
	}
}

// Registry returns the schema registry used for hydration
func (e *Engine) Registry() annotations.Registry { return e.hydrator.Registry() }

// Resolve returns the annotation named wanted on decl, or nil if the
// declaration does not carry it. wanted is qualified through the alias
// table of decl's enclosing type. When only an occurrence written under a
// short name exists and wanted names a registered type, the occurrence is
// hydrated again as wanted and replaces the cached generic result.
func (e *Engine) Resolve(decl annotations.Key, wanted string) (*Result, error) {
	state, set, err := e.resolveDeclaration(decl)
	if err != nil {
		return nil, e.surface(err)
	}

	name, _ := state.finder.FindQualifiedName(wanted, false)
	if r, ok := set.Get(name); ok {
		return r, nil
	}

	r, err := e.upgrade(state, decl, set, name)
	if err != nil {
		return nil, e.surface(err)
	}
	return r, nil
}

// ResolveAll returns every annotation on decl keyed by resolved name. When an
// error is swallowed in silent mode the result is an empty Set.
func (e *Engine) ResolveAll(decl annotations.Key) (*Set, error) {
	_, set, err := e.resolveDeclaration(decl)
	if err != nil {
		if err := e.surface(err); err != nil {
			return nil, err
		}
		return newSet(), nil
	}
	return set, nil
}

// ResolveType resolves the type declaration and each of its members in
// declaration order
func (e *Engine) ResolveType(typeName string) ([]Declaration, error) {
	members, err := e.host.Members(typeName)
	if err != nil {
		e.record(err)
		return nil, err
	}

	keys := append([]annotations.Key{annotations.TypeKey(typeName)}, members...)
	decls := make([]Declaration, 0, len(keys))
	for _, key := range keys {
		set, err := e.ResolveAll(key)
		if err != nil {
			return decls, err
		}
		decls = append(decls, Declaration{Key: key, Annotations: set})
	}
	return decls, nil
}

// AttributesRead returns the final attribute map of the annotation type on
// decl, as supplied after child and type-name substitution. When the type
// occurs more than once the last occurrence is kept.
func (e *Engine) AttributesRead(decl annotations.Key, annotationType string) (annotations.AttributeMap, bool) {
	state, _, err := e.resolveDeclaration(decl)
	if err != nil {
		e.record(err)
		return nil, false
	}

	name, _ := state.finder.FindQualifiedName(annotationType, false)
	state.mu.RLock()
	defer state.mu.RUnlock()
	attrs, ok := state.reads[decl.AnnotationFingerprint(name)]
	if !ok {
		return nil, false
	}
	return attrs.Clone(), true
}

// SetTypeNameAttributes replaces the set of type-name attributes. Resolved
// results and attribute reads are dropped; tokenized fragments and alias
// tables are kept.
func (e *Engine) SetTypeNameAttributes(names ...string) {
	e.mu.Lock()
	e.typeNameAttrs = append([]string(nil), names...)
	e.mu.Unlock()

	gen := e.generation.Add(1)
	e.types.ForEach(func(_ string, state *typeState) {
		state.invalidate(gen)
	})
}

// TypeNameAttributes returns the current type-name attributes
func (e *Engine) TypeNameAttributes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.typeNameAttrs...)
}

// SetSilent toggles silent mode
func (e *Engine) SetSilent(silent bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.silent = silent
}

// Silent reports whether silent mode is on
func (e *Engine) Silent() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.silent
}

// LastError returns the most recent error the engine caught or returned
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// LastErrorMessage returns the message of LastError, empty if none
func (e *Engine) LastErrorMessage() string {
	if err := e.LastError(); err != nil {
		return err.Error()
	}
	return ""
}

// ClearLastError empties the last-error slot
func (e *Engine) ClearLastError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = nil
}

// Stats returns the engine's work counters
func (e *Engine) Stats() Stats {
	return Stats{
		Tokenizations: e.tokenizations.Load(),
		AliasBuilds:   e.aliasBuilds.Load(),
		Hydrations:    e.hydrations.Load(),
		Fallbacks:     e.fallbacks.Load(),
		SharedTables:  e.tables.Stats().Hits,
		CachedTypes:   e.types.Size(),
	}
}

func (e *Engine) record(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
}

// surface records err and decides whether the caller sees it
func (e *Engine) surface(err error) error {
	e.record(err)

	if errors.HasCode(err, errors.HostDeclarationNotFoundCode) || errors.IsPrivileged(err) {
		e.logger.Warn("%v", err)
		return err
	}
	if !e.Silent() {
		return err
	}
	e.logger.Debug("suppressed: %v", err)
	return nil
}

func (e *Engine) typeState(typeName string) (*typeState, error) {
	return e.types.GetOrCompute(typeName, func() (*typeState, error) {
		table, err := e.aliasTable(typeName)
		if err != nil {
			return nil, err
		}
		return &typeState{
			finder:    aliases.Finder{Table: table, Index: e.hydrator.Registry()},
			fragments: make(map[annotations.Key][]annotations.Fragment),
			resolved:  make(map[annotations.Key]*Set),
			reads:     make(map[uuid.UUID]annotations.AttributeMap),
			gen:       e.generation.Load(),
		}, nil
	})
}

// aliasTable asks an AliasProvider host first, then scans the source header.
// Tables scanned from files are shared by every type declared in that file.
func (e *Engine) aliasTable(typeName string) (*aliases.Table, error) {
	if provider, ok := e.host.(host.AliasProvider); ok {
		table, err := provider.Aliases(typeName)
		if err != nil {
			return nil, err
		}
		if table != nil {
			e.aliasBuilds.Add(1)
			return table, nil
		}
	}

	src, err := e.host.Source(typeName)
	if err != nil {
		return nil, err
	}
	if src.Path != "" {
		if table, ok := e.tables.GetWithFileValidation(src.Path, src.Path); ok {
			return table, nil
		}
	}

	table, err := aliases.Resolve(src.Text)
	if err != nil {
		return nil, errors.Wrapf(errors.CodeOf(err), err, "failed to resolve imports for %s", typeName).
			WithContext("path", src.Path)
	}
	e.aliasBuilds.Add(1)
	e.logger.Debug("alias table for %s: %d entries", typeName, table.Len())

	if src.Path != "" {
		// Paths that are not real files are simply not cached.
		_ = e.tables.SetWithFileInfo(src.Path, table, src.Path)
	}
	return table, nil
}

func (e *Engine) resolveDeclaration(decl annotations.Key) (*typeState, *Set, error) {
	state, err := e.typeState(decl.Type)
	if err != nil {
		return nil, nil, err
	}

	state.mu.RLock()
	set, ok := state.resolved[decl]
	state.mu.RUnlock()
	if ok {
		return state, set, nil
	}

	fragments, err := e.fragments(state, decl)
	if err != nil {
		return nil, nil, err
	}

	gen := e.generation.Load()
	typeNameAttrs := e.TypeNameAttributes()

	set = newSet()
	reads := make(map[uuid.UUID]annotations.AttributeMap, len(fragments))
	for _, frag := range fragments {
		name, occ, err := e.resolveFragment(state, decl, frag, typeNameAttrs)
		if err != nil {
			return nil, nil, err
		}
		set.add(name, occ)
		reads[decl.AnnotationFingerprint(name)] = occ.Attributes
	}

	return state, state.store(decl, set, reads, gen, e.generation.Load()), nil
}

// fragments tokenizes decl once. Native structured attributes, when the
// host has any, replace the comment block.
func (e *Engine) fragments(state *typeState, decl annotations.Key) ([]annotations.Fragment, error) {
	state.mu.RLock()
	fragments, ok := state.fragments[decl]
	state.mu.RUnlock()
	if ok {
		return fragments, nil
	}

	attrs, err := e.host.StructuredAttributes(decl)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		for _, attr := range attrs {
			fragments = append(fragments, annotations.Tokenize(structuredSource(attr))...)
		}
	} else {
		comment, err := e.host.Comment(decl)
		if err != nil {
			return nil, err
		}
		fragments = annotations.Tokenize(comment)
	}
	e.tokenizations.Add(1)

	state.mu.Lock()
	defer state.mu.Unlock()
	if existing, ok := state.fragments[decl]; ok {
		return existing, nil
	}
	state.fragments[decl] = fragments
	return fragments, nil
}

func structuredSource(attr host.StructuredAttribute) string {
	args := strings.TrimSpace(attr.Arguments)
	if args == "" || strings.HasPrefix(args, "(") {
		return string(annotations.Sigil) + attr.Name + args
	}
	return string(annotations.Sigil) + attr.Name + " " + args
}

func (e *Engine) resolveFragment(state *typeState, decl annotations.Key, frag annotations.Fragment, typeNameAttrs []string) (string, *Occurrence, error) {
	children, err := e.resolveChildren(state, decl, frag.Children, typeNameAttrs)
	if err != nil {
		return "", nil, err
	}

	name, _ := state.finder.FindQualifiedName(frag.Name, false)
	occ, err := e.hydrate(state, decl, name, frag, children, typeNameAttrs)
	if err != nil {
		return "", nil, err
	}
	return name, occ, nil
}

// resolveChildren resolves nested annotations before their parent. A group
// holding more than one fragment becomes a list.
func (e *Engine) resolveChildren(state *typeState, decl annotations.Key, groups []annotations.ChildGroup, typeNameAttrs []string) (map[string]interface{}, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	children := make(map[string]interface{}, len(groups))
	for _, group := range groups {
		values := make([]interface{}, 0, len(group.Fragments))
		for _, child := range group.Fragments {
			_, occ, err := e.resolveFragment(state, decl, child, typeNameAttrs)
			if err != nil {
				return nil, err
			}
			values = append(values, occ.Value)
		}
		switch len(values) {
		case 0:
		case 1:
			children[group.Placeholder] = values[0]
		default:
			children[group.Placeholder] = values
		}
	}
	return children, nil
}

func (e *Engine) hydrate(state *typeState, decl annotations.Key, typeName string, frag annotations.Fragment, children map[string]interface{}, typeNameAttrs []string) (*Occurrence, error) {
	out, err := e.hydrator.Hydrate(annotations.HydrateRequest{
		TypeName:           typeName,
		Name:               frag.Name,
		RawValue:           frag.RawValue,
		Children:           children,
		Host:               decl,
		Finder:             state.finder,
		TypeNameAttributes: typeNameAttrs,
	})
	e.hydrations.Add(1)
	if err != nil {
		return nil, err
	}

	if out.Fallback != nil {
		e.fallbacks.Add(1)
		e.record(out.Fallback)
		e.logger.Debug("%s: @%s falls back to a generic annotation: %v", decl, frag.Name, out.Fallback)
	}

	return &Occurrence{
		Value:      out.Value,
		Attributes: out.Attributes,
		Typed:      out.Typed,
		Line:       frag.Line,
		fragment:   frag,
		children:   children,
	}, nil
}

// upgrade looks for a result written under a short name that matches wanted.
// A generic match is hydrated again as wanted when wanted is registered.
func (e *Engine) upgrade(state *typeState, decl annotations.Key, set *Set, wanted string) (*Result, error) {
	sep := state.separator()
	short := shortName(wanted, sep)

	for _, name := range set.names {
		if shortName(name, sep) != short || (name != short && wanted != short) {
			continue
		}

		existing := set.results[name]
		if existing.Typed() || !e.hydrator.Registry().IsRegistered(wanted) {
			return existing, nil
		}

		gen := e.generation.Load()
		typeNameAttrs := e.TypeNameAttributes()

		upgraded := &Result{Name: wanted}
		for _, occ := range existing.occurrences {
			next, err := e.hydrate(state, decl, wanted, occ.fragment, occ.children, typeNameAttrs)
			if err != nil {
				return nil, err
			}
			if !next.Typed {
				return existing, nil
			}
			upgraded.occurrences = append(upgraded.occurrences, next)
		}

		e.logger.Debug("%s: upgraded @%s to %s", decl, name, wanted)
		return state.replace(decl, name, upgraded, gen, e.generation.Load()), nil
	}

	return nil, nil
}

func (s *typeState) separator() string {
	if s.finder.Table != nil {
		return s.finder.Table.Separator
	}
	return aliases.DefaultSeparator
}

// store caches set unless the results were invalidated while it was built
func (s *typeState) store(decl annotations.Key, set *Set, reads map[uuid.UUID]annotations.AttributeMap, gen, current int64) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != current {
		return set
	}
	s.sync(current)
	if existing, ok := s.resolved[decl]; ok {
		return existing
	}
	s.resolved[decl] = set
	for id, attrs := range reads {
		s.reads[id] = attrs
	}
	return set
}

// replace swaps the cached result old for r in a copy of decl's set
func (s *typeState) replace(decl annotations.Key, old string, r *Result, gen, generation int64) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != generation {
		return r
	}
	s.sync(generation)
	current, ok := s.resolved[decl]
	if !ok {
		return r
	}
	if existing, ok := current.Get(r.Name); ok {
		return existing
	}
	if _, ok := current.Get(old); !ok {
		return r
	}

	s.resolved[decl] = current.replace(old, r)
	delete(s.reads, decl.AnnotationFingerprint(old))
	s.reads[decl.AnnotationFingerprint(r.Name)] = r.occurrences[len(r.occurrences)-1].Attributes
	return r
}

func (s *typeState) invalidate(gen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(gen)
}

// sync drops resolved results that belong to an older generation. The
// caller holds s.mu.
func (s *typeState) sync(gen int64) {
	if s.gen == gen {
		return
	}
	s.gen = gen
	s.resolved = make(map[annotations.Key]*Set)
	s.reads = make(map[uuid.UUID]annotations.AttributeMap)
}

// shortName returns the last segment of a qualified name
func shortName(name, sep string) string {
	cut := strings.LastIndex(name, sep)
	if slash := strings.LastIndex(name, "/"); slash > cut {
		return name[slash+1:]
	}
	if cut < 0 {
		return name
	}
	return name[cut+len(sep):]
}
