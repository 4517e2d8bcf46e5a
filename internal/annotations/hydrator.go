package annotations

import (
	"fmt"
	"strings"

	"github.com/toyz/docmeta/internal/errors"
)

// HydrateRequest carries one resolved fragment into the Hydrator
type HydrateRequest struct {
	TypeName   string                 // fully-qualified annotation type
	Name       string                 // annotation name as written
	RawValue   string                 // unparsed value text
	Attributes AttributeMap           // pre-parsed attributes; nil means parse RawValue
	Children   map[string]interface{} // placeholder -> already-resolved child annotation
	Host       Key                    // declaration the annotation is attached to
	Finder     QualifiedNameFinder    // alias lookup for type-name attributes and generic types

	// TypeNameAttributes lists attribute names whose string values are
	// resolved as type references before assignment
	TypeNameAttributes []string
}

// Hydrated is the outcome of one hydration
type Hydrated struct {
	Value      interface{}  // typed instance or *GenericAnnotation
	Attributes AttributeMap // final attribute map after substitution
	Typed      bool         // Value was built from a registered schema
	Fallback   error        // why a registered type fell back to generic, if it did
}

// Hydrator builds typed annotations from registered schemas
type Hydrator struct {
	registry Registry
}

// NewHydrator creates a hydrator backed by reg
func NewHydrator(reg Registry) *Hydrator {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Hydrator{registry: reg}
}

// Registry returns the schema registry the hydrator consults
func (h *Hydrator) Registry() Registry { return h.registry }

// Hydrate constructs the annotation described by req.
//
// Unregistered types yield a *GenericAnnotation with a nil error. Failures
// while building a registered type are wrapped in a *errors.HydrationError:
// privileged types return it, other types fall back to a generic annotation
// and report it in Hydrated.Fallback.
func (h *Hydrator) Hydrate(req HydrateRequest) (*Hydrated, error) {
	schema, registered := h.registry.Lookup(req.TypeName)

	attrs := req.Attributes
	if attrs == nil {
		parsed, err := ParseAttributes(req.RawValue)
		if err != nil {
			if !registered {
				return h.generic(req, nil, err), nil
			}
			return h.fail(req, schema, nil, err)
		}
		attrs = parsed
	}
	attrs = substitute(attrs.Clone(), req.Children)
	resolveTypeNames(attrs, req.TypeNameAttributes, req.Finder)

	if !registered {
		return h.generic(req, attrs, nil), nil
	}

	if len(attrs) == 0 && !strings.HasPrefix(strings.TrimSpace(req.RawValue), "(") {
		if bare := strings.TrimSpace(req.RawValue); bare != "" {
			attrs = AttributeMap{"value": bare}
		}
	}

	value, err := build(schema, attrs, req.Host)
	if err != nil {
		return h.fail(req, schema, attrs, err)
	}

	return &Hydrated{Value: value, Attributes: attrs, Typed: true}, nil
}

func (h *Hydrator) fail(req HydrateRequest, schema TypeSchema, attrs AttributeMap, cause error) (*Hydrated, error) {
	err := errors.NewHydrationError(schema.Name, req.Host.String(), schema.Privileged, cause)
	if schema.Privileged {
		return nil, err
	}
	return h.generic(req, attrs, err), nil
}

func (h *Hydrator) generic(req HydrateRequest, attrs AttributeMap, fallback error) *Hydrated {
	var g *GenericAnnotation
	if len(attrs) > 0 {
		g = newGenericWithAttributes(req.Host, req.Name, req.RawValue, attrs)
	} else {
		g = NewGenericAnnotation(req.Host, req.Name, req.RawValue, req.Finder)
	}
	if attrs == nil {
		attrs = AttributeMap{}
	}
	return &Hydrated{Value: g, Attributes: attrs, Fallback: fallback}
}

// build runs the schema's constructor with the required inputs, then assigns
// every remaining attribute that names a field or setter. The n-th required
// input may also be given as the n-th unnamed value. The schema's Validate
// hook sees the finished instance.
func build(schema TypeSchema, attrs AttributeMap, host Key) (interface{}, error) {
	consumed := make(map[string]bool, len(schema.Required))
	args := make([]interface{}, 0, len(schema.Required))

	for i, param := range schema.Required {
		key, raw, ok := attrs.Lookup(param.Name)
		if !ok {
			key = positionalKey(i)
			raw, ok = attrs[key]
		}
		if !ok {
			return nil, errors.NewMissingAttributeError(param.Name, schema.Name, host.String())
		}
		consumed[key] = true

		value, err := param.Type.Convert(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", param.Name, err)
		}
		if param.Validator != nil {
			if err := param.Validator(value); err != nil {
				return nil, fmt.Errorf("parameter %s: %w", param.Name, err)
			}
		}
		args = append(args, value)
	}

	var instance interface{}
	if err := guard(func() error {
		var err error
		instance, err = schema.Construct(args)
		return err
	}); err != nil {
		return nil, fmt.Errorf("construct: %w", err)
	}

	for _, key := range attrs.Keys() {
		if consumed[key] {
			continue
		}
		binding, ok := schema.binding(key)
		if !ok {
			continue
		}

		value, err := binding.Type.Convert(attrs[key])
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", key, err)
		}
		if binding.Validator != nil {
			if err := binding.Validator(value); err != nil {
				return nil, fmt.Errorf("attribute %s: %w", key, err)
			}
		}
		if err := guard(func() error { return binding.Assign(instance, value) }); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", key, err)
		}
	}

	if schema.Validate != nil {
		if err := guard(func() error { return schema.Validate(instance) }); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
	}

	return instance, nil
}

// guard turns a panic in user-supplied schema code into an error
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// substitute replaces child placeholders with resolved children at the top
// level, inside lists, and inside one level of nested map
func substitute(attrs AttributeMap, children map[string]interface{}) AttributeMap {
	if len(children) == 0 {
		return attrs
	}
	for k, v := range attrs {
		attrs[k] = substituteValue(v, children, true)
	}
	return attrs
}

func substituteValue(v interface{}, children map[string]interface{}, descend bool) interface{} {
	switch tv := v.(type) {
	case string:
		if IsPlaceholder(tv) {
			if child, ok := children[tv]; ok {
				return child
			}
		}
		return tv
	case []interface{}:
		for i, item := range tv {
			tv[i] = substituteValue(item, children, descend)
		}
		return tv
	case AttributeMap:
		if !descend {
			return tv
		}
		for k, item := range tv {
			tv[k] = substituteValue(item, children, false)
		}
		return tv
	default:
		return v
	}
}

// resolveTypeNames rewrites designated attributes as fully-qualified type names
func resolveTypeNames(attrs AttributeMap, names []string, finder QualifiedNameFinder) {
	if finder == nil || len(names) == 0 {
		return
	}
	for _, name := range names {
		key, value, ok := attrs.Lookup(name)
		if !ok {
			continue
		}
		switch tv := value.(type) {
		case string:
			attrs[key] = qualify(tv, finder)
		case []interface{}:
			for i, item := range tv {
				if s, ok := item.(string); ok {
					tv[i] = qualify(s, finder)
				}
			}
		}
	}
}

func qualify(name string, finder QualifiedNameFinder) string {
	if name == "" || IsPlaceholder(name) {
		return name
	}
	if resolved, ok := finder.FindQualifiedName(name, false); ok && resolved != "" {
		return resolved
	}
	return name
}
