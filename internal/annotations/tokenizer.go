package annotations

import (
	"strconv"
	"strings"
)

// Sigil marks the start of an annotation in a comment block
const Sigil = '@'

const placeholderPrefix = "_child_"

// Fragment is one annotation occurrence found in a comment block.
// Fragments are created by Tokenize and never mutated afterwards.
type Fragment struct {
	Name     string       // annotation name as written, possibly an alias
	RawValue string       // unparsed text after the name; parenthesized values keep their parentheses
	Children []ChildGroup // nested annotations replaced in RawValue by placeholders
	Line     int          // 1-based line of the sigil within the comment block
}

// ChildGroup holds the fragments tokenized from one nested annotation span
type ChildGroup struct {
	Placeholder string
	Fragments   []Fragment
}

// Placeholder returns the token that stands in for the n-th child annotation
func Placeholder(n int) string {
	return placeholderPrefix + strconv.Itoa(n)
}

// IsPlaceholder reports whether s is a child placeholder token
func IsPlaceholder(s string) bool {
	if !strings.HasPrefix(s, placeholderPrefix) || len(s) == len(placeholderPrefix) {
		return false
	}
	for _, r := range s[len(placeholderPrefix):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Tokenize splits a comment block into its annotation fragments in source
// order. Repeated names are kept as separate fragments.
func Tokenize(comment string) []Fragment {
	t := &tokenizer{}
	return t.scan(CleanCommentBlock(comment), false)
}

// CleanCommentBlock strips comment delimiters and line continuation markers
// (/**, */, leading *, //, ///) and returns the remaining lines joined by newlines
func CleanCommentBlock(comment string) string {
	lines := strings.Split(strings.ReplaceAll(comment, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		if i == 0 {
			switch {
			case strings.HasPrefix(line, "/**"):
				line = line[3:]
			case strings.HasPrefix(line, "/*"):
				line = line[2:]
			}
		}
		if strings.HasSuffix(strings.TrimRight(line, " \t"), "*/") {
			line = strings.TrimRight(line, " \t")
			line = line[:len(line)-2]
		}
		switch {
		case strings.HasPrefix(line, "//"):
			line = strings.TrimLeft(line, "/")
		case strings.HasPrefix(line, "*"):
			line = strings.TrimLeft(line, "*")
		}
		if strings.HasPrefix(line, " ") {
			line = line[1:]
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}

	return strings.Join(out, "\n")
}

type tokenizer struct {
	children int // next placeholder index, shared across nested calls
}

// scan tokenizes src. Inside a child (nested is true) further annotations are
// kept as text, so a value nests at most one level deep.
func (t *tokenizer) scan(src string, nested bool) []Fragment {
	var fragments []Fragment

	i := 0
	for i < len(src) {
		at := nextSigil(src, i)
		if at < 0 {
			break
		}
		fragment, end := t.fragment(src, at, nested)
		fragment.Line = strings.Count(src[:at], "\n") + 1
		fragments = append(fragments, fragment)
		i = end
	}

	return fragments
}

// fragment reads the annotation starting at the sigil at position at and
// returns it together with the position where scanning resumes
func (t *tokenizer) fragment(src string, at int, nested bool) (Fragment, int) {
	j := at + 1
	for j < len(src) && isNameChar(src[j]) {
		j++
	}
	// Punctuation closing a sentence is not part of the name.
	for j > at+2 && (src[j-1] == '.' || src[j-1] == '-') {
		j--
	}
	fragment := Fragment{Name: src[at+1 : j]}

	k := j
	for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
		k++
	}

	if k < len(src) && src[k] == '(' {
		end, balanced := valueEnd(src, k, len(src))
		if !balanced {
			// Unclosed value: stop at the next annotation that starts a line.
			if cut := nextLineSigil(src, k); cut > 0 {
				end = cut
			}
		}
		fragment.RawValue, fragment.Children = t.parenthesized(src, k, end, nested)
		return fragment, end
	}

	end := len(src)
	if next := nextSigil(src, j); next >= 0 {
		end = next
	}
	fragment.RawValue = strings.TrimSpace(src[j:end])
	return fragment, end
}

// parenthesized captures the value starting at the open parenthesis at
// position open, never reading past limit. Balanced child annotations are
// tokenized and replaced by placeholders; an unbalanced one stays as text.
func (t *tokenizer) parenthesized(src string, open, limit int, nested bool) (string, []ChildGroup) {
	var b strings.Builder
	var children []ChildGroup
	var quote byte
	depth := 0

	i := open
	for i < limit {
		c := src[i]

		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < limit {
				b.WriteByte(src[i+1])
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}

		switch {
		case isQuote(c) && OpensQuote(src, i):
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				b.WriteByte(c)
				return b.String(), children
			}
		case c == Sigil && !nested && depth > 0 && isSigilStart(src, i):
			if end, ok := childSpan(src, i, limit); ok {
				placeholder := Placeholder(t.children)
				t.children++
				children = append(children, ChildGroup{
					Placeholder: placeholder,
					Fragments:   t.scan(src[i:end], true),
				})
				b.WriteString(placeholder)
				i = end
				continue
			}
		}

		b.WriteByte(c)
		i++
	}

	return b.String(), children
}

// childSpan reports the end of a nested annotation written as @Name( ... )
// starting at position at. The name must be followed directly by '(' and the
// parentheses must close before limit.
func childSpan(src string, at, limit int) (int, bool) {
	j := at + 1
	for j < limit && isNameChar(src[j]) {
		j++
	}
	if j == at+1 || j >= limit || src[j] != '(' {
		return 0, false
	}
	return valueEnd(src, j, limit)
}

// valueEnd returns the position just past the parenthesis closing the one at
// position open. Quoted text is skipped. It reports false, with limit, when
// the value does not close before limit.
func valueEnd(src string, open, limit int) (int, bool) {
	var quote byte
	depth := 0
	for i := open; i < limit; i++ {
		c := src[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case isQuote(c) && OpensQuote(src, i):
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return limit, false
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// OpensQuote reports whether the quote at position i of s starts a string. A
// double quote always does. A single quote only does where a value starts,
// after an opening delimiter, comma or '=', so apostrophes inside barewords
// stay literal.
func OpensQuote(s string, i int) bool {
	if s[i] == '"' {
		return true
	}
	for j := i - 1; j >= 0; j-- {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case '(', '{', ',', '=':
			return true
		}
		return false
	}
	return true
}

// nextSigil returns the position of the next annotation sigil at or after from
func nextSigil(src string, from int) int {
	for i := from; i < len(src); i++ {
		if src[i] == Sigil && isSigilStart(src, i) {
			return i
		}
	}
	return -1
}

// nextLineSigil returns the first sigil after from that is the first
// non-blank character of its line
func nextLineSigil(src string, from int) int {
	for i := from; i < len(src); i++ {
		if src[i] != '\n' {
			continue
		}
		j := i + 1
		for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
			j++
		}
		if j < len(src) && src[j] == Sigil && isSigilStart(src, j) {
			return j
		}
	}
	return -1
}

// isSigilStart reports whether the sigil at position i starts an annotation:
// it must follow whitespace or an opening delimiter and precede a name
func isSigilStart(src string, i int) bool {
	if i+1 >= len(src) || !isNameStart(src[i+1]) {
		return false
	}
	if i == 0 {
		return true
	}
	switch src[i-1] {
	case ' ', '\t', '\n', '(', '{', ',', '=':
		return true
	}
	return false
}

func isNameStart(c byte) bool {
	return c == '_' || c == '\\' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '-'
}
