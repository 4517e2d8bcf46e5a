package annotations

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// VariableSigil starts a variable token in a generic annotation value
const VariableSigil = '$'

// QualifiedNameFinder resolves short or partially-qualified names to
// fully-qualified ones. When mustExist is false an unresolved name is
// returned unchanged.
type QualifiedNameFinder interface {
	FindQualifiedName(name string, mustExist bool) (string, bool)
}

// GenericAnnotation is the structural decomposition of an annotation that
// has no registered type, e.g. "@param int $id The identifier".
// It is immutable after construction.
type GenericAnnotation struct {
	key        Key
	name       string
	rawValue   string
	typeName   string
	hasType    bool
	variable   string
	comment    string
	hasComment bool
	parts      []string
	attributes AttributeMap
}

// NewGenericAnnotation decomposes rawValue into type, variable, pre-variable
// parts and comment. finder may be nil, in which case type names are kept as written.
func NewGenericAnnotation(key Key, name, rawValue string, finder QualifiedNameFinder) *GenericAnnotation {
	g := &GenericAnnotation{
		key:      key,
		name:     name,
		rawValue: rawValue,
	}
	g.decompose(strings.TrimSpace(rawValue), finder)
	return g
}

// newGenericWithAttributes builds a generic annotation for a parenthesized
// value that parsed into attributes; no word decomposition applies to it
func newGenericWithAttributes(key Key, name, rawValue string, attrs AttributeMap) *GenericAnnotation {
	return &GenericAnnotation{
		key:        key,
		name:       name,
		rawValue:   rawValue,
		attributes: attrs.Clone(),
	}
}

func (g *GenericAnnotation) decompose(value string, finder QualifiedNameFinder) {
	if value == "" {
		return
	}

	if start, end, ok := findVariable(value); ok {
		g.variable = value[start:end]

		rest := value[end:]
		if len(rest) > 0 {
			_, size := utf8.DecodeRuneInString(rest)
			rest = rest[size:]
		}
		if rest != "" {
			g.comment = rest
			g.hasComment = true
		}

		words := strings.Fields(value[:start])
		switch len(words) {
		case 0:
		case 1:
			g.setType(words[0], finder)
		default:
			g.parts = words
		}
		return
	}

	words := strings.Fields(value)
	if len(words) == 1 {
		g.setType(words[0], finder)
		return
	}
	g.comment = value
	g.hasComment = true
}

func (g *GenericAnnotation) setType(word string, finder QualifiedNameFinder) {
	g.typeName = word
	g.hasType = true
	if finder == nil {
		return
	}
	if resolved, ok := finder.FindQualifiedName(word, false); ok && resolved != "" {
		g.typeName = resolved
	}
}

// findVariable locates the first whitespace-delimited token that starts
// with the variable sigil
func findVariable(value string) (int, int, bool) {
	inWord := false
	for i, r := range value {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord && r == VariableSigil {
			end := strings.IndexFunc(value[i:], unicode.IsSpace)
			if end < 0 {
				return i, len(value), true
			}
			return i, i + end, true
		}
		inWord = true
	}
	return 0, 0, false
}

// Name returns the annotation name as received
func (g *GenericAnnotation) Name() string { return g.name }

// RawValue returns the unparsed value as received
func (g *GenericAnnotation) RawValue() string { return g.rawValue }

// Key returns the declaration the annotation is attached to
func (g *GenericAnnotation) Key() Key { return g.key }

// CacheKey returns a stable identifier for this annotation on its declaration
func (g *GenericAnnotation) CacheKey() uuid.UUID {
	return g.key.AnnotationFingerprint(g.name)
}

// Type returns the resolved type name, if the value named one
func (g *GenericAnnotation) Type() (string, bool) { return g.typeName, g.hasType }

// Variable returns the first token starting with '$', if any
func (g *GenericAnnotation) Variable() (string, bool) { return g.variable, g.variable != "" }

// Comment returns the trailing free text, if any
func (g *GenericAnnotation) Comment() (string, bool) { return g.comment, g.hasComment }

// PreVariableParts returns the words before the variable when there is more than one
func (g *GenericAnnotation) PreVariableParts() []string {
	if len(g.parts) == 0 {
		return nil
	}
	return append([]string(nil), g.parts...)
}

// Part returns the n-th pre-variable word, counting from 1
func (g *GenericAnnotation) Part(n int) (string, bool) {
	if n < 1 || n > len(g.parts) {
		return "", false
	}
	return g.parts[n-1], true
}

// Attributes returns the parsed attributes of a parenthesized value
func (g *GenericAnnotation) Attributes() AttributeMap { return g.attributes.Clone() }

// Equal reports whether two generic annotations carry the same content
func (g *GenericAnnotation) Equal(other *GenericAnnotation) bool {
	if g == nil || other == nil {
		return g == other
	}
	return reflect.DeepEqual(*g, *other)
}
