package aliases

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/docmeta/internal/errors"
)

// importLexer splits the header of a source file into the tokens that
// matter for namespace and use statements
var importLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|#[^\[\n][^\n]*|(?s:/\*.*?\*/)`},
	{Name: "OpenTag", Pattern: `<\?php|<\?=?|\?>`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Ident", Pattern: `[A-Za-z_\\][A-Za-z0-9_\\]*`},
	{Name: "Punct", Pattern: `[{};,()=]`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `.`},
})

// declarationKeywords start the first line that is no longer part of the
// file header
var declarationKeywords = []string{
	"class", "interface", "trait", "enum", "abstract", "final", "readonly", "#[",
}

// Resolve builds the alias table of the source text that precedes a type
// declaration. Only the header is scanned: scanning stops at the first line
// that begins with a declaration keyword.
func Resolve(source string) (*Table, error) {
	header := Header(source)

	lex, err := importLexer.LexString("", header)
	if err != nil {
		return nil, errors.Wrap(errors.UnknownErrorCode, "failed to scan import header", err)
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, errors.Wrap(errors.UnknownErrorCode, "failed to scan import header", err)
	}

	s := &scanner{
		tokens: significant(tokens),
		table:  NewTable("", DefaultSeparator),
	}
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.table, nil
}

// Header returns the part of source before the first declaration line
func Header(source string) string {
	offset := 0
	for _, line := range strings.SplitAfter(source, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		for _, keyword := range declarationKeywords {
			if !strings.HasPrefix(trimmed, keyword) {
				continue
			}
			rest := trimmed[len(keyword):]
			if keyword == "#[" || rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '\r' {
				return source[:offset]
			}
		}
		offset += len(line)
	}
	return source
}

var (
	symbols    = importLexer.Symbols()
	identToken = symbols["Ident"]
	punctToken = symbols["Punct"]
)

// significant drops whitespace, comments and open tags
func significant(tokens []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.Type {
		case symbols["Whitespace"], symbols["Comment"], symbols["OpenTag"], lexer.EOF:
			continue
		}
		out = append(out, tok)
	}
	return out
}

type scanner struct {
	tokens []lexer.Token
	pos    int
	table  *Table
}

func (s *scanner) run() error {
	for s.pos < len(s.tokens) {
		tok := s.tokens[s.pos]
		s.pos++
		if tok.Type != identToken {
			continue
		}

		switch strings.ToLower(tok.Value) {
		case "namespace":
			s.namespace()
		case "use":
			if err := s.use(tok); err != nil {
				return err
			}
		}
	}
	return nil
}

// namespace reads "namespace A\B;" or "namespace A\B {". A new namespace
// starts with an empty import set.
func (s *scanner) namespace() {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].Type != identToken {
		return
	}
	s.table = NewTable(s.tokens[s.pos].Value, DefaultSeparator)
	s.pos++
}

// importClause is one path of a use statement, with its optional alias
type importClause struct {
	path  string
	alias string
	skip  bool // function or const import
}

// use reads one use statement up to its terminating ';'
func (s *scanner) use(start lexer.Token) error {
	statement := s.statement()
	if len(statement) == 0 || (statement[0].Type != identToken && statement[0].Value != "{") {
		// Closure binding or something else that is not an import.
		return nil
	}

	text := render(start, statement)
	loc := errors.SourceLocation{Line: start.Pos.Line, Column: start.Pos.Column}

	var (
		prefix  string
		inGroup bool
		skipAll bool // use function ... / use const ...
		current importClause
	)
	flush := func() {
		if !skipAll && !current.skip && current.path != "" {
			path := current.path
			if inGroup {
				path = prefix + DefaultSeparator + strings.TrimPrefix(path, DefaultSeparator)
			}
			s.table.Add(path, current.alias)
		}
		current = importClause{}
	}

	for i := 0; i < len(statement); i++ {
		tok := statement[i]

		if tok.Type == identToken {
			word := strings.ToLower(tok.Value)
			switch {
			case word == "as" && current.path != "":
				if i+1 < len(statement) && statement[i+1].Type == identToken {
					current.alias = statement[i+1].Value
					i++
				}
			case (word == "function" || word == "const") && current.path == "":
				if inGroup {
					current.skip = true
				} else {
					skipAll = true
				}
			case current.path == "":
				current.path = tok.Value
			}
			continue
		}

		if tok.Type != punctToken {
			continue
		}
		switch tok.Value {
		case "{":
			if inGroup || !strings.HasSuffix(current.path, DefaultSeparator) {
				return errors.NewUnbalancedImportGroupError(text, loc)
			}
			prefix = strings.TrimSuffix(current.path, DefaultSeparator)
			inGroup = true
			current = importClause{}
		case ",":
			flush()
		case "}":
			if !inGroup {
				return errors.NewUnbalancedImportGroupError(text, loc)
			}
			flush()
			inGroup = false
			prefix = ""
		}
	}

	if inGroup {
		return errors.NewUnbalancedImportGroupError(text, loc)
	}
	flush()
	return nil
}

// statement collects the tokens up to the next ';'
func (s *scanner) statement() []lexer.Token {
	var out []lexer.Token
	for s.pos < len(s.tokens) {
		tok := s.tokens[s.pos]
		s.pos++
		if tok.Type == punctToken && tok.Value == ";" {
			break
		}
		out = append(out, tok)
	}
	return out
}

func render(start lexer.Token, tokens []lexer.Token) string {
	var b strings.Builder
	b.WriteString(start.Value)
	for _, tok := range tokens {
		if tok.Type == identToken {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Value)
	}
	return b.String()
}
