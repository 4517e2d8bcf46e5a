package annotations

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/toyz/docmeta/internal/errors"
)

// ParameterSpec describes one required constructor input of a typed annotation
type ParameterSpec struct {
	Name        string                  // attribute name, matched exactly then case-insensitively
	Type        ParameterType           // value is converted to this type before construction
	Description string                  // human-readable description
	Validator   func(interface{}) error // optional check on the converted value
}

// FieldBinding assigns one optional attribute to a constructed annotation
type FieldBinding struct {
	Type        ParameterType
	Description string
	Assign      func(target interface{}, value interface{}) error
	Validator   func(interface{}) error
}

// TypeSchema declares how to hydrate one annotation type
type TypeSchema struct {
	Name        string                      // fully-qualified annotation type name
	Description string                      // human-readable description
	Privileged  bool                        // first-party vocabulary; hydration failures are fatal
	Required    []ParameterSpec             // ordered constructor inputs
	Construct   func([]interface{}) (interface{}, error)
	Fields      map[string]FieldBinding     // publicly settable members, matched exactly
	Setters     map[string]FieldBinding     // accessor methods, matched case-insensitively
	Validate    func(interface{}) error     // checks the instance once every attribute is assigned
	Examples    []string                    // usage examples
}

// Bind builds a FieldBinding that converts the attribute value with convert
// and hands it to set on a *T target
func Bind[T any, V any](convert func(interface{}) (V, error), set func(*T, V)) FieldBinding {
	return FieldBinding{
		Type: AnyType,
		Assign: func(target interface{}, value interface{}) error {
			t, ok := target.(*T)
			if !ok {
				return fmt.Errorf("binding expects %T, got %T", (*T)(nil), target)
			}
			v, err := convert(value)
			if err != nil {
				return err
			}
			set(t, v)
			return nil
		},
	}
}

// BindError is Bind for setters that validate their input
func BindError[T any, V any](convert func(interface{}) (V, error), set func(*T, V) error) FieldBinding {
	return FieldBinding{
		Type: AnyType,
		Assign: func(target interface{}, value interface{}) error {
			t, ok := target.(*T)
			if !ok {
				return fmt.Errorf("binding expects %T, got %T", (*T)(nil), target)
			}
			v, err := convert(value)
			if err != nil {
				return err
			}
			return set(t, v)
		},
	}
}

// Registry defines the interface for managing typed annotation schemas
type Registry interface {
	// Register adds a typed annotation schema
	Register(schema TypeSchema) error

	// Lookup retrieves the schema registered under a fully-qualified name
	Lookup(name string) (TypeSchema, bool)

	// IsRegistered checks if a type name is registered
	IsRegistered(name string) bool

	// Names returns all registered type names in sorted order
	Names() []string
}

// registry is the concrete implementation of Registry
type registry struct {
	mu      sync.RWMutex          // Protects concurrent access
	schemas map[string]TypeSchema // Schema storage
}

// NewRegistry creates a new annotation registry
func NewRegistry() Registry {
	return &registry{
		schemas: make(map[string]TypeSchema),
	}
}

// defaultRegistry is the global registry instance
var (
	defaultRegistry     Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the global annotation registry
func DefaultRegistry() Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register adds a typed annotation schema to the registry
func (r *registry) Register(schema TypeSchema) error {
	if err := validateSchema(schema); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Name]; exists {
		return errors.NewRegistrationError(schema.Name, "already registered")
	}

	r.schemas[schema.Name] = schema
	return nil
}

// Lookup retrieves the schema for a type name
func (r *registry) Lookup(name string) (TypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[name]
	return schema, exists
}

// IsRegistered checks if a type name is registered
func (r *registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.schemas[name]
	return exists
}

// Names returns all registered type names
func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// validateSchema checks a schema once, at registration time
func validateSchema(schema TypeSchema) error {
	if strings.TrimSpace(schema.Name) == "" {
		return errors.NewRegistrationError(schema.Name, "type name cannot be empty")
	}
	if schema.Construct == nil {
		return errors.NewRegistrationError(schema.Name, "constructor is required")
	}

	seen := make(map[string]string)
	claim := func(name, role string) error {
		if strings.TrimSpace(name) == "" {
			return errors.NewRegistrationError(schema.Name, role+" name cannot be empty")
		}
		folded := strings.ToLower(name)
		if previous, exists := seen[folded]; exists {
			return errors.NewRegistrationError(schema.Name,
				fmt.Sprintf("%s '%s' collides with %s", role, name, previous))
		}
		seen[folded] = fmt.Sprintf("%s '%s'", role, name)
		return nil
	}

	for _, param := range schema.Required {
		if err := claim(param.Name, "required parameter"); err != nil {
			return err
		}
		if param.Type < StringType || param.Type > AnyType {
			return errors.NewRegistrationError(schema.Name,
				fmt.Sprintf("invalid parameter type for %s: %d", param.Name, param.Type))
		}
	}
	for _, name := range sortedBindingNames(schema.Fields) {
		if err := claim(name, "field"); err != nil {
			return err
		}
		if schema.Fields[name].Assign == nil {
			return errors.NewRegistrationError(schema.Name, fmt.Sprintf("field '%s' has no assign function", name))
		}
	}
	for _, name := range sortedBindingNames(schema.Setters) {
		if err := claim(name, "setter"); err != nil {
			return err
		}
		if schema.Setters[name].Assign == nil {
			return errors.NewRegistrationError(schema.Name, fmt.Sprintf("setter '%s' has no assign function", name))
		}
	}

	return nil
}

func sortedBindingNames(bindings map[string]FieldBinding) []string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// binding finds the member an attribute key assigns to: a field by exact
// name, then a setter case-insensitively
func (s TypeSchema) binding(key string) (FieldBinding, bool) {
	if b, ok := s.Fields[key]; ok {
		return b, true
	}
	if b, ok := s.Setters[key]; ok {
		return b, true
	}
	for name, b := range s.Setters {
		if strings.EqualFold(name, key) {
			return b, true
		}
	}
	return FieldBinding{}, false
}
