package cli

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/engine"
)

// Printer renders resolved declarations as indented text
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Type prints every annotated declaration of typeName. Types without any
// annotation print nothing.
func (p *Printer) Type(typeName string, decls []engine.Declaration) {
	printed := false
	for _, decl := range decls {
		if decl.Annotations.Len() == 0 {
			continue
		}
		if !printed {
			fmt.Fprintf(p.out, "%s\n", typeName)
			printed = true
		}
		fmt.Fprintf(p.out, "  %s\n", label(decl.Key))
		for _, result := range decl.Annotations.Results() {
			for _, occ := range result.Occurrences() {
				p.occurrence(result.Name, occ)
			}
		}
	}
	if printed {
		fmt.Fprintln(p.out)
	}
}

func (p *Printer) occurrence(name string, occ *engine.Occurrence) {
	if g, ok := occ.Generic(); ok {
		fmt.Fprintf(p.out, "    @%s\n", name)
		if t, ok := g.Type(); ok {
			fmt.Fprintf(p.out, "      type: %s\n", t)
		}
		if v, ok := g.Variable(); ok {
			fmt.Fprintf(p.out, "      variable: %s\n", v)
		}
		if parts := g.PreVariableParts(); len(parts) > 0 {
			fmt.Fprintf(p.out, "      parts: %s\n", strings.Join(parts, " "))
		}
		if c, ok := g.Comment(); ok {
			fmt.Fprintf(p.out, "      comment: %s\n", c)
		}
		p.attributes(occ.Attributes)
		return
	}

	fmt.Fprintf(p.out, "    @%s %s\n", name, describe(occ.Value))
	p.attributes(occ.Attributes)
}

func (p *Printer) attributes(attrs annotations.AttributeMap) {
	for _, key := range attrs.Keys() {
		fmt.Fprintf(p.out, "      %s = %s\n", key, describe(attrs[key]))
	}
}

// label renders a declaration key relative to its type
func label(key annotations.Key) string {
	switch key.Kind {
	case annotations.PropertyMember:
		return "field " + key.Member
	case annotations.MethodMember:
		return "method " + key.Member + "()"
	default:
		return "type"
	}
}

// describe renders a value compactly: typed annotations as their struct
// fields, lists and maps recursively
func describe(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case []interface{}:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = describe(item)
		}
		return "{" + strings.Join(items, ", ") + "}"
	case annotations.AttributeMap:
		items := make([]string, 0, len(v))
		for _, key := range v.Keys() {
			items = append(items, key+"="+describe(v[key]))
		}
		return "(" + strings.Join(items, ", ") + ")"
	case *annotations.GenericAnnotation:
		return "@" + v.Name()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		return fmt.Sprintf("%s%+v", rv.Elem().Type().Name(), rv.Elem().Interface())
	}
	return fmt.Sprintf("%v", v)
}
