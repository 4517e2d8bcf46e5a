package annotations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/docmeta/internal/errors"
)

// The value language
//
//	@Name( key = "string" | bareword | true | false | number | { list, of, values } , ... )
//
// is normalized into a structured literal before strict parsing: keys are
// quoted and followed by ':', parentheses become map braces, braces become
// list brackets. The literal grammar below parses that normalized form.

type literalMap struct {
	Open    string          `parser:"@'{'"`
	Entries []*literalEntry `parser:"( @@ ( ',' @@ )* )? '}'"`
}

type literalEntry struct {
	Key   *string       `parser:"@Key?"`
	Value *literalValue `parser:"@@"`
}

type literalValue struct {
	String *string      `parser:"  @String"`
	List   *literalList `parser:"| @@"`
	Map    *literalMap  `parser:"| @@"`
	Bare   []string     `parser:"| @Bare+"`
}

type literalList struct {
	Open  string          `parser:"@'['"`
	Items []*literalValue `parser:"( @@ ( ',' @@ )* )? ']'"`
}

var literalLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Key", Pattern: `"(\\.|[^"\\])*"\s*:`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Bare", Pattern: `[^\s{}\[\],":][^\s{}\[\],"]*`},
	{Name: "Punct", Pattern: `[{}\[\],:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var literalParser = participle.MustBuild[literalMap](
	participle.Lexer(literalLexer),
	participle.Elide("Whitespace"),
)

// ParseAttributes converts an annotation's raw value into an AttributeMap.
//
// A value without parenthesized structure yields an empty map; the caller
// treats it as a bare value. A MalformedValueError is returned only when the
// text cannot be normalized or the normalized literal does not parse while
// carrying named attributes. Child placeholders are kept as literal strings.
func ParseAttributes(raw string) (AttributeMap, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "(") {
		return AttributeMap{}, nil
	}

	normalized, keys, err := normalizeValue(s)
	if err != nil {
		return nil, errors.NewMalformedValueError(raw, normalized, err)
	}

	literal, err := literalParser.ParseString("", normalized)
	if err != nil {
		if keys == 0 {
			// Free text in parentheses, e.g. @todo (later)
			return AttributeMap{}, nil
		}
		return nil, errors.NewMalformedValueError(raw, normalized, err)
	}

	return literal.attributes(0)
}

// normalizeValue rewrites value-language text into the structured literal
// form. It returns the normalized text and the number of keys it quoted.
func normalizeValue(s string) (string, int, error) {
	var out []byte
	var stack []byte
	var quote byte
	keys := 0

	expectKey := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			switch {
			case c == '\n' || c == '\r' || c == '\t':
			case c == '\\' && i+1 < len(s) && (s[i+1] == quote || s[i+1] == '\\'):
				out = append(out, '\\', s[i+1])
				i++
			case c == '\\':
				out = append(out, '\\', '\\')
			case c == quote:
				out = append(out, c)
				quote = 0
			default:
				out = append(out, c)
			}
			continue
		}

		if expectKey {
			expectKey = false
			if key, end, ok := scanKey(s, i); ok {
				out = append(out, '"')
				out = append(out, escapeKey(key)...)
				out = append(out, '"', ':')
				keys++
				i = end
				continue
			}
		}

		switch c {
		case '"', '\'':
			if OpensQuote(s, i) {
				quote = c
			}
			out = append(out, c)
		case '(':
			stack = append(stack, c)
			out = append(out, '{')
			expectKey = true
		case '{':
			stack = append(stack, c)
			out = append(out, '[')
		case ')', '}':
			open := byte('(')
			closing := byte('}')
			if c == '}' {
				open = '{'
				closing = ']'
			}
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return string(out), keys, fmt.Errorf("unbalanced '%c' at offset %d", c, i)
			}
			stack = stack[:len(stack)-1]
			out = trimTrailingComma(out)
			out = append(out, closing)
		case ',':
			out = append(out, c)
			expectKey = len(stack) > 0 && stack[len(stack)-1] == '('
		case '\n', '\r', '\t':
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}

	if quote != 0 {
		return string(out), keys, fmt.Errorf("unterminated quoted string")
	}
	if len(stack) > 0 {
		return string(out), keys, fmt.Errorf("unclosed '%c'", stack[len(stack)-1])
	}

	return string(out), keys, nil
}

// scanKey looks for "name =" starting at position from. The '=' must come
// before any delimiter and outside quotes.
func scanKey(s string, from int) (string, int, bool) {
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case isQuote(c) && OpensQuote(s, i):
			quote = c
		case c == '=':
			key := s[from:i]
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				return "", 0, false
			}
			if unquoted := unquoteKey(trimmed); unquoted != trimmed {
				return unquoted, i, true
			}
			return key, i, true
		case strings.IndexByte(",(){}", c) >= 0:
			return "", 0, false
		}
	}
	return "", 0, false
}

func unquoteKey(key string) string {
	if len(key) >= 2 && (key[0] == '"' || key[0] == '\'') && key[len(key)-1] == key[0] {
		return key[1 : len(key)-1]
	}
	return key
}

func escapeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(key[i])
		case '\n', '\r', '\t':
		default:
			b.WriteByte(key[i])
		}
	}
	return b.String()
}

func trimTrailingComma(out []byte) []byte {
	end := len(out)
	for end > 0 && out[end-1] == ' ' {
		end--
	}
	if end > 0 && out[end-1] == ',' {
		return out[:end-1]
	}
	return out
}

func (m *literalMap) attributes(level int) (AttributeMap, error) {
	attrs := make(AttributeMap, len(m.Entries))
	positional := 0

	for _, entry := range m.Entries {
		value, err := entry.Value.value(level + 1)
		if err != nil {
			return nil, err
		}

		var key string
		if entry.Key == nil {
			key = positionalKey(positional)
			positional++
		} else {
			key = unquote(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(*entry.Key), ":")))
			if level <= 1 {
				key = strings.TrimSpace(key)
			}
		}
		attrs[key] = value
	}

	return attrs, nil
}

// positionalKey names unnamed entries: value, value1, value2, ...
func positionalKey(n int) string {
	if n == 0 {
		return "value"
	}
	return "value" + strconv.Itoa(n)
}

func (v *literalValue) value(level int) (interface{}, error) {
	switch {
	case v.String != nil:
		return unquote(*v.String), nil
	case v.Map != nil:
		return v.Map.attributes(level)
	case v.List != nil:
		items := make([]interface{}, 0, len(v.List.Items))
		for _, item := range v.List.Items {
			iv, err := item.value(level)
			if err != nil {
				return nil, err
			}
			items = append(items, iv)
		}
		return items, nil
	default:
		return bareValue(v.Bare), nil
	}
}

// bareValue interprets unquoted words: booleans, null and numbers get their
// native types, anything else stays a string
func bareValue(words []string) interface{} {
	text := strings.Join(words, " ")
	if len(words) != 1 {
		return text
	}

	switch strings.ToLower(text) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	if strings.ContainsAny(text, ".eE") {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	}
	return text
}

func unquote(s string) string {
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') || s[len(s)-1] != s[0] {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.Contains(body, "\\") {
		return body
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}
