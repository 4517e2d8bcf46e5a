package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapFinder resolves names from a fixed table
type mapFinder map[string]string

func (f mapFinder) FindQualifiedName(name string, mustExist bool) (string, bool) {
	if resolved, ok := f[name]; ok {
		return resolved, true
	}
	if mustExist {
		return "", false
	}
	return name, true
}

func TestGenericAnnotationTypeVariableComment(t *testing.T) {
	key := MethodKey(`App\UserController`, "show")
	g := NewGenericAnnotation(key, "param", "int $i Some text", nil)

	typeName, ok := g.Type()
	require.True(t, ok)
	assert.Equal(t, "int", typeName)

	variable, ok := g.Variable()
	require.True(t, ok)
	assert.Equal(t, "$i", variable)

	comment, ok := g.Comment()
	require.True(t, ok)
	assert.Equal(t, "Some text", comment)

	assert.Empty(t, g.PreVariableParts())
	assert.Equal(t, "param", g.Name())
	assert.Equal(t, "int $i Some text", g.RawValue())
	assert.Equal(t, key, g.Key())
}

func TestGenericAnnotationBareTypeResolvesAlias(t *testing.T) {
	finder := mapFinder{"MyClass": `App\Model\MyClass`}
	g := NewGenericAnnotation(TypeKey(`App\Service`), "var", "MyClass", finder)

	typeName, ok := g.Type()
	require.True(t, ok)
	assert.Equal(t, `App\Model\MyClass`, typeName)

	_, ok = g.Variable()
	assert.False(t, ok)
	_, ok = g.Comment()
	assert.False(t, ok)
}

func TestGenericAnnotationUnresolvedTypeKeptAsWritten(t *testing.T) {
	g := NewGenericAnnotation(TypeKey("T"), "return", "Unknown", mapFinder{})

	typeName, ok := g.Type()
	require.True(t, ok)
	assert.Equal(t, "Unknown", typeName)
}

func TestGenericAnnotationMultiWordPreVariable(t *testing.T) {
	g := NewGenericAnnotation(TypeKey("T"), "param", "Several words here $variableName", nil)

	assert.Equal(t, []string{"Several", "words", "here"}, g.PreVariableParts())

	variable, ok := g.Variable()
	require.True(t, ok)
	assert.Equal(t, "$variableName", variable)

	_, ok = g.Type()
	assert.False(t, ok)
	_, ok = g.Comment()
	assert.False(t, ok)

	part, ok := g.Part(1)
	require.True(t, ok)
	assert.Equal(t, "Several", part)
	part, ok = g.Part(3)
	require.True(t, ok)
	assert.Equal(t, "here", part)
	_, ok = g.Part(0)
	assert.False(t, ok)
	_, ok = g.Part(4)
	assert.False(t, ok)
}

func TestGenericAnnotationDecomposition(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		typeName string
		variable string
		comment  string
	}{
		{name: "empty", raw: ""},
		{name: "variable only", raw: "$x", variable: "$x"},
		{name: "variable and comment", raw: "$x the value", variable: "$x", comment: "the value"},
		{name: "free text", raw: "Some free text", comment: "Some free text"},
		{name: "comment keeps inner spacing", raw: "string $s  padded", typeName: "string", variable: "$s", comment: " padded"},
		{name: "dollar inside word is not a variable", raw: "cost US$5 today", comment: "cost US$5 today"},
		{name: "surrounding whitespace", raw: "  bool  ", typeName: "bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenericAnnotation(TypeKey("T"), "n", tt.raw, nil)

			typeName, _ := g.Type()
			variable, _ := g.Variable()
			comment, _ := g.Comment()
			assert.Equal(t, tt.typeName, typeName)
			assert.Equal(t, tt.variable, variable)
			assert.Equal(t, tt.comment, comment)
		})
	}
}

func TestGenericAnnotationWithAttributes(t *testing.T) {
	attrs := AttributeMap{"level": 3}
	g := newGenericWithAttributes(TypeKey("T"), "Custom", "(level=3)", attrs)

	assert.Equal(t, AttributeMap{"level": 3}, g.Attributes())

	// The stored map is private to the annotation.
	attrs["level"] = 4
	returned := g.Attributes()
	returned["level"] = 5
	assert.Equal(t, 3, g.Attributes()["level"])

	_, ok := g.Type()
	assert.False(t, ok)
}

func TestGenericAnnotationEqualAndCacheKey(t *testing.T) {
	key := PropertyKey("T", "id")
	a := NewGenericAnnotation(key, "var", "int $id", nil)
	b := NewGenericAnnotation(key, "var", "int $id", nil)
	c := NewGenericAnnotation(key, "var", "string $id", nil)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.Equal(t, key.AnnotationFingerprint("var"), a.CacheKey())
	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), NewGenericAnnotation(key, "param", "int $id", nil).CacheKey())
}
