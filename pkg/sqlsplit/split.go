package sqlsplit

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// Dialect selects the statement-separator convention.
type Dialect string

const (
	// TSQL splits on whole-word GO batch separators (case-insensitive, at
	// the start of a line) as understood by sqlcmd and SSMS. Semicolons are
	// kept inside batches.
	TSQL Dialect = "tsql"

	// Standard splits on semicolons at statement boundaries, as used by
	// PostgreSQL and most other engines.
	Standard Dialect = "standard"
)

// sqlLexer tokenizes SQL with exact literal and comment tracking. Rules are
// tried in order, so literals and comments win over everything they can
// contain.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "BlockComment", Pattern: `/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "LineComment", Pattern: `--[^\n]*`},
	{Name: "DollarString", Pattern: `\$\$(?:[^$]|\$[^$])*\$\$`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "BracketIdent", Pattern: `\[[^\]]*\]`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"`},
	{Name: "Word", Pattern: `[A-Za-z_@#][A-Za-z0-9_@#$]*`},
	{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Other", Pattern: `.`},
})

var symbols = sqlLexer.Symbols()

// Split breaks a script into executable statements for the dialect. Comments
// travel with the statement that follows them; fragments containing only
// whitespace and comments are dropped.
func Split(sql string, dialect Dialect) ([]string, error) {
	tokens, err := tokenize(sql)
	if err != nil {
		return nil, err
	}

	var (
		statements []string
		buf        strings.Builder
		hasContent bool // buf holds something beyond whitespace/comments
		lineBlank  bool = true
	)

	flush := func() {
		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		if hasContent && stmt != "" {
			statements = append(statements, stmt)
		}
		hasContent = false
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		switch tok.Type {
		case symbols["EOL"]:
			lineBlank = true
			buf.WriteString(tok.Value)
			continue
		case symbols["Whitespace"], symbols["LineComment"], symbols["BlockComment"]:
			buf.WriteString(tok.Value)
			continue
		}

		if dialect == TSQL && tok.Type == symbols["Word"] && lineBlank && strings.EqualFold(tok.Value, "GO") {
			flush()
			// Consume the rest of the GO line, including an optional repeat
			// count.
			for i+1 < len(tokens) && tokens[i+1].Type != symbols["EOL"] {
				i++
			}
			continue
		}

		if dialect == Standard && tok.Type == symbols["Semicolon"] {
			flush()
			lineBlank = false
			continue
		}

		lineBlank = false
		hasContent = true
		buf.WriteString(tok.Value)
	}
	flush()

	return statements, nil
}

// Words returns the lowercase bare words of a script in order, skipping
// everything inside string literals, quoted identifiers, and comments. Used
// by migration validation to scan for denylisted commands without being
// fooled by literals.
func Words(sql string) ([]string, error) {
	tokens, err := tokenize(sql)
	if err != nil {
		return nil, err
	}

	var words []string
	for _, tok := range tokens {
		if tok.Type == symbols["Word"] {
			words = append(words, strings.ToLower(tok.Value))
		}
	}
	return words, nil
}

func tokenize(sql string) ([]lexer.Token, error) {
	lex, err := sqlLexer.LexString("", sql)
	if err != nil {
		return nil, errors.Wrap(err, "lexing sql")
	}

	var tokens []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, errors.Wrap(err, "lexing sql")
		}
		if tok.EOF() {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
