package gosrc

import (
	"fmt"
	"go/ast"
	"reflect"
	"strconv"
	"strings"

	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/host"
)

// TagKey is the struct tag key whose value lists native annotations, e.g.
//
//	ID string `meta:"Column(type='uuid');Inject"`
const TagKey = "meta"

// ParseTag splits a meta tag value into structured attributes. Entries are
// separated by ';' outside quotes and parentheses.
func ParseTag(value string) ([]host.StructuredAttribute, error) {
	var attrs []host.StructuredAttribute

	for _, entry := range splitEntries(value) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		end := strings.IndexAny(entry, "( \t")
		if end < 0 {
			end = len(entry)
		}
		name := strings.TrimPrefix(entry[:end], "@")
		if name == "" {
			return nil, fmt.Errorf("tag entry %q has no annotation name", entry)
		}

		attrs = append(attrs, host.StructuredAttribute{
			Name:      name,
			Arguments: strings.TrimSpace(entry[end:]),
		})
	}

	return attrs, nil
}

func splitEntries(value string) []string {
	var entries []string
	var quote byte
	depth := 0
	start := 0

	for i := 0; i < len(value); i++ {
		c := value[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			if annotations.OpensQuote(value, i) {
				quote = c
			}
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		case ';':
			if depth == 0 {
				entries = append(entries, value[start:i])
				start = i + 1
			}
		}
	}
	return append(entries, value[start:])
}

// fieldAttributes reads the meta tag of a struct field
func fieldAttributes(field *ast.Field) ([]host.StructuredAttribute, error) {
	if field.Tag == nil {
		return nil, nil
	}
	raw, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid struct tag %s: %w", field.Tag.Value, err)
	}
	value, ok := reflect.StructTag(raw).Lookup(TagKey)
	if !ok {
		return nil, nil
	}
	return ParseTag(value)
}
