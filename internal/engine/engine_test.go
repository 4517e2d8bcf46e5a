package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/docmeta/internal/aliases"
	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/errors"
	"github.com/toyz/docmeta/internal/host"
)

const (
	routeType = `Vocab\Route`
	outerType = `Test\Outer`
	innerType = `Test\Inner`

	controller = `App\Http\UserController`
	legacy     = `Legacy\Thing`
)

type route struct {
	Path   string
	Method string
}

type inner struct {
	X int
}

type outer struct {
	Name  string
	Inner *inner
}

const controllerSource = `<?php
namespace App\Http;

use Vocab\Route;
use Test\{Outer, Inner};

/**
 * Serves users.
 */
class UserController extends Base
{
}
`

func newRegistry(t *testing.T) annotations.Registry {
	t.Helper()

	reg := annotations.NewRegistry()
	require.NoError(t, reg.Register(annotations.TypeSchema{
		Name:       routeType,
		Privileged: true,
		Required:   []annotations.ParameterSpec{{Name: "path", Type: annotations.StringType}},
		Construct: func(args []interface{}) (interface{}, error) {
			return &route{Path: args[0].(string)}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"method": annotations.Bind(annotations.ConvertToString, func(r *route, v string) { r.Method = v }),
		},
	}))
	require.NoError(t, reg.Register(annotations.TypeSchema{
		Name: innerType,
		Construct: func([]interface{}) (interface{}, error) {
			return &inner{}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"x": annotations.Bind(annotations.ConvertToInt, func(i *inner, v int) { i.X = v }),
		},
	}))
	require.NoError(t, reg.Register(annotations.TypeSchema{
		Name:     outerType,
		Required: []annotations.ParameterSpec{{Name: "name", Type: annotations.StringType}},
		Construct: func(args []interface{}) (interface{}, error) {
			return &outer{Name: args[0].(string)}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"inner": annotations.Bind(annotations.As[*inner](), func(o *outer, v *inner) { o.Inner = v }),
		},
	}))
	return reg
}

func newFixture() *host.Memory {
	h := host.NewMemory()
	h.Type(controller).
		Source("", controllerSource).
		Doc("/**\n * @Route(path=\"/users\", method=\"GET\")\n */").
		Property("id", "/** @var int $id The identifier */").
		Property("tags", "/**\n * @Tag first\n * @Tag second\n * @Tag third\n */").
		Property("profile", `/** @Outer(name="o", inner=@Inner(x=2)) */`).
		Property("broken", `/** @Outer(inner=@Inner(x=1)) */`).
		Property("link", `/** @Link(target="Outer") */`).
		Method("index", `/** @Route(method="GET") */`)
	h.Type(legacy).
		Source("", "<?php\nnamespace Legacy;\n\nclass Thing {}\n").
		Doc("/** @Inner(x=5) */")
	return h
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(newFixture(), newRegistry(t), DefaultConfig())
}

func TestResolveTypedAnnotation(t *testing.T) {
	e := newTestEngine(t)
	decl := annotations.TypeKey(controller)

	r, err := e.Resolve(decl, "Route")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, routeType, r.Name)
	assert.True(t, r.Typed())
	assert.False(t, r.IsList())
	assert.Equal(t, &route{Path: "/users", Method: "GET"}, r.Value())

	// The fully-qualified name reaches the same result.
	qualified, err := e.Resolve(decl, `\Vocab\Route`)
	require.NoError(t, err)
	assert.Same(t, r, qualified)

	attrs, ok := e.AttributesRead(decl, "Route")
	require.True(t, ok)
	assert.Equal(t, annotations.AttributeMap{"path": "/users", "method": "GET"}, attrs)

	missing, err := e.Resolve(decl, "Deprecated")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestResolveGenericAnnotation(t *testing.T) {
	e := newTestEngine(t)

	r, err := e.Resolve(annotations.PropertyKey(controller, "id"), "var")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.False(t, r.Typed())

	g, ok := r.Occurrences()[0].Generic()
	require.True(t, ok)

	typeName, ok := g.Type()
	require.True(t, ok)
	assert.Equal(t, "int", typeName)

	variable, ok := g.Variable()
	require.True(t, ok)
	assert.Equal(t, "$id", variable)

	comment, ok := g.Comment()
	require.True(t, ok)
	assert.Equal(t, "The identifier", comment)
}

func TestRepeatedAnnotationsKeepSourceOrder(t *testing.T) {
	e := newTestEngine(t)

	r, err := e.Resolve(annotations.PropertyKey(controller, "tags"), "Tag")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.True(t, r.IsList())
	require.Equal(t, 3, r.Len())

	values, ok := r.Value().([]interface{})
	require.True(t, ok)
	require.Len(t, values, 3)

	var types []string
	for _, v := range values {
		g, ok := v.(*annotations.GenericAnnotation)
		require.True(t, ok)
		typeName, _ := g.Type()
		types = append(types, typeName)
	}
	assert.Equal(t, []string{"first", "second", "third"}, types)
}

func TestNestedChildIsHydrated(t *testing.T) {
	e := newTestEngine(t)

	r, err := e.Resolve(annotations.PropertyKey(controller, "profile"), "Outer")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.True(t, r.Typed())

	o, ok := r.Value().(*outer)
	require.True(t, ok)
	assert.Equal(t, "o", o.Name)
	require.NotNil(t, o.Inner)
	assert.Equal(t, 2, o.Inner.X)

	// Nested annotations do not appear as their own results.
	set, err := e.ResolveAll(annotations.PropertyKey(controller, "profile"))
	require.NoError(t, err)
	assert.Equal(t, []string{outerType}, set.Names())
}

func TestMissingRequiredAttributeFallsBackForOrdinaryTypes(t *testing.T) {
	e := newTestEngine(t)

	r, err := e.Resolve(annotations.PropertyKey(controller, "broken"), "Outer")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.False(t, r.Typed())
	_, ok := r.Occurrences()[0].Generic()
	assert.True(t, ok)

	lastErr := e.LastError()
	require.Error(t, lastErr)
	assert.True(t, errors.HasCode(lastErr, errors.MissingRequiredAttributeCode))
	assert.False(t, errors.IsPrivileged(lastErr))
	assert.Contains(t, e.LastErrorMessage(), "requires attribute 'name'")
	assert.Equal(t, int64(1), e.Stats().Fallbacks)
}

func TestMissingRequiredAttributeIsFatalForPrivilegedTypes(t *testing.T) {
	e := newTestEngine(t)
	require.True(t, e.Silent())
	decl := annotations.MethodKey(controller, "index")

	r, err := e.Resolve(decl, "Route")
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, errors.IsPrivileged(err))
	assert.True(t, errors.HasCode(err, errors.MissingRequiredAttributeCode))

	var missing *errors.MissingAttributeError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "path", missing.Parameter)
	assert.Equal(t, routeType, missing.AnnotationType)
	assert.Equal(t, controller+"::index()", missing.Host)

	set, err := e.ResolveAll(decl)
	require.Error(t, err)
	assert.Nil(t, set)
	assert.Equal(t, err, e.LastError())
}

func TestResolveIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	decl := annotations.PropertyKey(controller, "profile")

	first, err := e.Resolve(decl, "Outer")
	require.NoError(t, err)
	stats := e.Stats()
	assert.Equal(t, int64(1), stats.Tokenizations)
	assert.Equal(t, int64(1), stats.AliasBuilds)

	second, err := e.Resolve(decl, "Outer")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, first.Value(), second.Value())

	all, err := e.ResolveAll(decl)
	require.NoError(t, err)
	fromSet, ok := all.Get(outerType)
	require.True(t, ok)
	assert.Same(t, first, fromSet)

	assert.Equal(t, stats, e.Stats())
}

func TestUpgradeReplacesGenericResult(t *testing.T) {
	e := newTestEngine(t)
	decl := annotations.TypeKey(legacy)

	// Inner is not imported in the Legacy namespace, so it stays generic.
	generic, err := e.Resolve(decl, "Inner")
	require.NoError(t, err)
	require.NotNil(t, generic)
	assert.Equal(t, "Inner", generic.Name)
	assert.False(t, generic.Typed())

	typed, err := e.Resolve(decl, innerType)
	require.NoError(t, err)
	require.NotNil(t, typed)
	assert.Equal(t, innerType, typed.Name)
	assert.Equal(t, &inner{X: 5}, typed.Value())

	again, err := e.Resolve(decl, "Inner")
	require.NoError(t, err)
	assert.Same(t, typed, again)

	set, err := e.ResolveAll(decl)
	require.NoError(t, err)
	assert.Equal(t, []string{innerType}, set.Names())

	attrs, ok := e.AttributesRead(decl, innerType)
	require.True(t, ok)
	assert.Equal(t, annotations.AttributeMap{"x": 5}, attrs)
	assert.Equal(t, int64(1), e.Stats().Tokenizations)
}

func TestSetTypeNameAttributes(t *testing.T) {
	e := newTestEngine(t)
	decl := annotations.PropertyKey(controller, "link")

	before, ok := e.AttributesRead(decl, "Link")
	require.True(t, ok)
	assert.Equal(t, "Outer", before["target"])
	first, err := e.Resolve(decl, "Link")
	require.NoError(t, err)
	stats := e.Stats()

	e.SetTypeNameAttributes("target")
	assert.Equal(t, []string{"target"}, e.TypeNameAttributes())

	after, ok := e.AttributesRead(decl, "Link")
	require.True(t, ok)
	assert.Equal(t, outerType, after["target"])

	second, err := e.Resolve(decl, "Link")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	// Fragments and alias tables survive the change.
	assert.Equal(t, stats.Tokenizations, e.Stats().Tokenizations)
	assert.Equal(t, stats.AliasBuilds, e.Stats().AliasBuilds)
}

func TestAliasTableSharedWithinFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Http.php")
	source := "<?php\nnamespace App\\Http;\n\nuse Vocab\\Route;\n\nclass A {}\nclass B {}\n"
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	h := host.NewMemory()
	h.Type(`App\Http\A`).Source(path, source).Doc(`/** @Route(path="/a") */`)
	h.Type(`App\Http\B`).Source(path, source).Doc(`/** @Route(path="/b") */`)
	e := New(h, newRegistry(t), DefaultConfig())

	for _, name := range []string{`App\Http\A`, `App\Http\B`} {
		r, err := e.Resolve(annotations.TypeKey(name), routeType)
		require.NoError(t, err)
		require.NotNil(t, r, name)
	}

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.AliasBuilds)
	assert.Equal(t, int64(1), stats.SharedTables)
	assert.Equal(t, 2, stats.CachedTypes)
}

func TestSilentAndStrictModes(t *testing.T) {
	h := host.NewMemory()
	h.Type(`Bad\Thing`).
		Source("", "<?php\nnamespace Bad;\nuse A\\{B;\n\nclass Thing {}\n").
		Doc("/** @Inner(x=1) */")
	e := New(h, newRegistry(t), DefaultConfig())
	decl := annotations.TypeKey(`Bad\Thing`)

	set, err := e.ResolveAll(decl)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.True(t, errors.HasCode(e.LastError(), errors.UnbalancedImportGroupCode))

	r, err := e.Resolve(decl, "Inner")
	require.NoError(t, err)
	assert.Nil(t, r)

	e.ClearLastError()
	assert.Empty(t, e.LastErrorMessage())

	e.SetSilent(false)
	_, err = e.ResolveAll(decl)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.UnbalancedImportGroupCode))
	assert.Equal(t, err, e.LastError())
}

func TestHostDeclarationNotFoundIsAlwaysSurfaced(t *testing.T) {
	e := newTestEngine(t)
	require.True(t, e.Silent())

	_, err := e.Resolve(annotations.PropertyKey(controller, "missing"), "Route")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.HostDeclarationNotFoundCode))

	_, err = e.ResolveAll(annotations.TypeKey(`App\Missing`))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.HostDeclarationNotFoundCode))

	_, err = e.ResolveType(`App\Missing`)
	assert.Error(t, err)

	_, ok := e.AttributesRead(annotations.TypeKey(`App\Missing`), "Route")
	assert.False(t, ok)
}

func TestStructuredAttributesReplaceComment(t *testing.T) {
	table := aliases.NewTable(`App\Http`, aliases.DefaultSeparator)
	table.Add(routeType, "")

	h := host.NewMemory()
	h.Type(`App\Http\Tagged`).
		Aliases(table).
		Doc("/** @Ignored */",
			host.StructuredAttribute{Name: "Route", Arguments: `(path="/tagged")`},
			host.StructuredAttribute{Name: "Note", Arguments: "plain text"},
		)
	e := New(h, newRegistry(t), DefaultConfig())

	set, err := e.ResolveAll(annotations.TypeKey(`App\Http\Tagged`))
	require.NoError(t, err)
	assert.Equal(t, []string{routeType, "Note"}, set.Names())

	r, _ := set.Get(routeType)
	assert.Equal(t, &route{Path: "/tagged"}, r.Value())

	note, _ := set.Get("Note")
	g, ok := note.Occurrences()[0].Generic()
	require.True(t, ok)
	comment, _ := g.Comment()
	assert.Equal(t, "plain text", comment)

	assert.Equal(t, int64(1), e.Stats().AliasBuilds)
}

func TestResolveType(t *testing.T) {
	e := newTestEngine(t)

	decls, err := e.ResolveType(legacy)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, annotations.TypeKey(legacy), decls[0].Key)
	assert.Equal(t, []string{"Inner"}, decls[0].Annotations.Names())

	// The privileged failure on index() stops the walk.
	decls, err = e.ResolveType(controller)
	require.Error(t, err)
	assert.True(t, errors.IsPrivileged(err))
	assert.NotEmpty(t, decls)
}

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Debug(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, "debug: "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, "warn: "+fmt.Sprintf(format, args...))
}

func TestLoggerReceivesFallbacks(t *testing.T) {
	logger := &recordingLogger{}
	cfg := DefaultConfig()
	cfg.Logger = logger
	e := New(newFixture(), newRegistry(t), cfg)

	_, err := e.Resolve(annotations.PropertyKey(controller, "broken"), "Outer")
	require.NoError(t, err)

	var found bool
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "debug:") && strings.Contains(msg, "@Outer falls back to a generic annotation") {
			found = true
		}
	}
	assert.True(t, found, "messages: %v", logger.messages)
}

func TestConcurrentResolve(t *testing.T) {
	e := newTestEngine(t)
	decl := annotations.PropertyKey(controller, "profile")

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := e.Resolve(decl, "Outer")
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Value(), r.Value())
	}
}
