package annotations

import (
	"fmt"

	"github.com/google/uuid"
)

// MemberKind identifies what kind of declaration a Key points at
type MemberKind int

const (
	TypeMember MemberKind = iota
	PropertyMember
	MethodMember
)

// String returns the string representation of the member kind
func (k MemberKind) String() string {
	switch k {
	case TypeMember:
		return "type"
	case PropertyMember:
		return "property"
	case MethodMember:
		return "method"
	default:
		return "unknown"
	}
}

// keyNamespace seeds the name-based UUIDs produced by Key.Fingerprint
var keyNamespace = uuid.MustParse("6f3b1c2e-8d4a-5e7f-9a1b-2c3d4e5f6a7b")

// Key identifies a host declaration: the enclosing type first, then the member.
// It is a plain value computed once and never used to reach the declaration itself.
type Key struct {
	Type   string     // fully-qualified enclosing type
	Kind   MemberKind // member kind
	Member string     // member name, empty for the type itself
}

// TypeKey returns the key of an enclosing type
func TypeKey(typeName string) Key {
	return Key{Type: typeName, Kind: TypeMember}
}

// PropertyKey returns the key of a property (struct field) of typeName
func PropertyKey(typeName, name string) Key {
	return Key{Type: typeName, Kind: PropertyMember, Member: name}
}

// MethodKey returns the key of a method of typeName
func MethodKey(typeName, name string) Key {
	return Key{Type: typeName, Kind: MethodMember, Member: name}
}

// String renders the key as Type, Type::$property or Type::method()
func (k Key) String() string {
	switch k.Kind {
	case PropertyMember:
		return fmt.Sprintf("%s::$%s", k.Type, k.Member)
	case MethodMember:
		return fmt.Sprintf("%s::%s()", k.Type, k.Member)
	default:
		return k.Type
	}
}

// Fingerprint returns a deterministic UUID derived from the key
func (k Key) Fingerprint() uuid.UUID {
	return uuid.NewSHA1(keyNamespace, []byte(k.String()))
}

// AnnotationFingerprint returns a deterministic UUID for one annotation type on this key
func (k Key) AnnotationFingerprint(annotationType string) uuid.UUID {
	return uuid.NewSHA1(keyNamespace, []byte(k.String()+"#"+annotationType))
}
