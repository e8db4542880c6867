package ir

import "strings"

// QuoteIdentifier quotes an identifier for DM8, handling dotted
// qualified names part by part. DM8 folds unquoted identifiers to
// uppercase, so every part is quoted unconditionally to preserve the
// exact catalog spelling.
func QuoteIdentifier(identifier string) string {
	parts := strings.Split(identifier, ".")
	for i, part := range parts {
		parts[i] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// QualifyTable returns the quoted schema-qualified table name.
func QualifyTable(schema, table string) string {
	if schema == "" {
		return QuoteIdentifier(table)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(table)
}

// EscapeSingleQuotes doubles single quotes for use inside a SQL string
// literal.
func EscapeSingleQuotes(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
