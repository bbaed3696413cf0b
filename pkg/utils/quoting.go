package utils

import "strings"

// QuoteStyle selects the identifier quoting convention for a SQL dialect.
type QuoteStyle int

const (
	// QuoteDouble wraps identifiers in double quotes ("name") as used by
	// PostgreSQL and standard SQL.
	QuoteDouble QuoteStyle = iota

	// QuoteBracket wraps identifiers in square brackets ([name]) as used by
	// SQL Server T-SQL.
	QuoteBracket
)

// QuoteIdentifier wraps a single identifier in the dialect's quoting
// characters. Embedded closing quote characters are escaped by doubling.
// Already quoted identifiers are returned unchanged.
//
// Example:
//
//	utils.QuoteIdentifier("order", utils.QuoteBracket) // [order]
//	utils.QuoteIdentifier("order", utils.QuoteDouble)  // "order"
func QuoteIdentifier(name string, style QuoteStyle) string {
	if name == "" {
		return name
	}
	if isQuoted(name, style) {
		return name
	}

	switch style {
	case QuoteBracket:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QuoteQualified quotes a schema-qualified object name part by part. An empty
// schema yields just the quoted object name.
//
// Example:
//
//	utils.QuoteQualified("dbo", "orders", utils.QuoteBracket) // [dbo].[orders]
//	utils.QuoteQualified("", "orders", utils.QuoteDouble)     // "orders"
func QuoteQualified(schema, name string, style QuoteStyle) string {
	if schema == "" {
		return QuoteIdentifier(name, style)
	}
	return QuoteIdentifier(schema, style) + "." + QuoteIdentifier(name, style)
}

// StripQuotes removes bracket or double-quote identifier quoting from each
// dot-separated part of a possibly qualified name. Doubled escape sequences
// are collapsed back to single characters.
//
// Example:
//
//	utils.StripQuotes("[dbo].[orders]") // dbo.orders
//	utils.StripQuotes(`"public"."users"`) // public.users
func StripQuotes(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = stripQuotedPart(part)
	}
	return strings.Join(parts, ".")
}

func isQuoted(name string, style QuoteStyle) bool {
	if len(name) < 2 {
		return false
	}
	switch style {
	case QuoteBracket:
		return strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]")
	default:
		return strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`)
	}
}

func stripQuotedPart(part string) string {
	switch {
	case len(part) >= 2 && strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
		return strings.ReplaceAll(part[1:len(part)-1], "]]", "]")
	case len(part) >= 2 && strings.HasPrefix(part, `"`) && strings.HasSuffix(part, `"`):
		return strings.ReplaceAll(part[1:len(part)-1], `""`, `"`)
	default:
		return part
	}
}
