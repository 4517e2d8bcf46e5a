package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeMapLookup(t *testing.T) {
	attrs := AttributeMap{"Method": "GET", "path": "/x"}

	key, value, ok := attrs.Lookup("Method")
	require.True(t, ok)
	assert.Equal(t, "Method", key)
	assert.Equal(t, "GET", value)

	key, value, ok = attrs.Lookup("method")
	require.True(t, ok)
	assert.Equal(t, "Method", key)
	assert.Equal(t, "GET", value)

	_, _, ok = attrs.Lookup("missing")
	assert.False(t, ok)

	_, ok = attrs.Get("method")
	assert.False(t, ok, "Get matches exactly")
	assert.Equal(t, []string{"Method", "path"}, attrs.Keys())
}

func TestAttributeMapClone(t *testing.T) {
	original := AttributeMap{
		"list":   []interface{}{"a", "b"},
		"nested": AttributeMap{"x": 1},
	}
	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone["list"].([]interface{})[0] = "changed"
	clone["nested"].(AttributeMap)["x"] = 2
	assert.Equal(t, "a", original["list"].([]interface{})[0])
	assert.Equal(t, 1, original["nested"].(AttributeMap)["x"])

	var empty AttributeMap
	assert.Nil(t, empty.Clone())
}

func TestParameterTypeString(t *testing.T) {
	tests := []struct {
		paramType ParameterType
		expected  string
	}{
		{StringType, "string"},
		{BoolType, "bool"},
		{IntType, "int"},
		{StringSliceType, "[]string"},
		{AnyType, "any"},
		{ParameterType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.paramType.String())
		})
	}
}

func TestConvertToString(t *testing.T) {
	s, err := ConvertToString("x")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	s, err = ConvertToString(42)
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	s, err = ConvertToString(nil)
	require.NoError(t, err)
	assert.Equal(t, "", s)

	_, err = ConvertToString([]interface{}{"a"})
	assert.Error(t, err)
	_, err = ConvertToString(AttributeMap{})
	assert.Error(t, err)
}

func TestConvertToBool(t *testing.T) {
	tests := []struct {
		input    interface{}
		expected bool
		wantErr  bool
	}{
		{true, true, false},
		{"yes", true, false},
		{"OFF", false, false},
		{1, true, false},
		{0.0, false, false},
		{"maybe", false, true},
		{[]interface{}{}, false, true},
	}

	for _, tt := range tests {
		got, err := ConvertToBool(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.input)
			continue
		}
		require.NoError(t, err, "%v", tt.input)
		assert.Equal(t, tt.expected, got, "%v", tt.input)
	}
}

func TestConvertToInt(t *testing.T) {
	n, err := ConvertToInt(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = ConvertToInt(3.9)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ConvertToInt(true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = ConvertToInt("twelve")
	assert.Error(t, err)
}

func TestConvertToStringSlice(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected []string
	}{
		{"list", []interface{}{"a", 1}, []string{"a", "1"}},
		{"comma separated", `Auth, "Log,ging"`, []string{"Auth", "Log,ging"}},
		{"single", "Auth", []string{"Auth"}},
		{"empty", "", []string{}},
		{"scalar", 5, []string{"5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertToStringSlice(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ConvertToStringSlice([]interface{}{AttributeMap{}})
	assert.Error(t, err)
}

func TestAsAndSliceOf(t *testing.T) {
	inner := &testInner{X: 1}

	got, err := As[*testInner]()(inner)
	require.NoError(t, err)
	assert.Same(t, inner, got)

	_, err = As[*testInner]()("nope")
	assert.Error(t, err)

	many, err := SliceOf[*testInner]()([]interface{}{inner, inner})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	one, err := SliceOf[*testInner]()(inner)
	require.NoError(t, err)
	assert.Equal(t, []*testInner{inner}, one)

	_, err = SliceOf[*testInner]()([]interface{}{inner, "x"})
	assert.Error(t, err)
}
