package dump

import (
	"fmt"
	"strings"

	"github.com/dmdump/dmdump/internal/ir"
)

// formatDataType renders a column's type declaration. Types whose
// catalog name already carries precision, like "NUMBER(10,2)", pass
// through untouched.
func formatDataType(col *ir.Column) string {
	dataType := strings.ToUpper(strings.TrimSpace(col.DataType))

	if strings.Contains(dataType, "(") {
		return dataType
	}

	switch dataType {
	case "VARCHAR", "VARCHAR2", "CHAR", "NCHAR", "NVARCHAR", "NVARCHAR2", "RAW", "BINARY", "VARBINARY":
		if col.Length != nil && *col.Length > 0 {
			switch col.CharSemantics {
			case ir.CharSemanticsChar:
				return fmt.Sprintf("%s(%d CHAR)", dataType, *col.Length)
			case ir.CharSemanticsByte:
				return fmt.Sprintf("%s(%d BYTE)", dataType, *col.Length)
			default:
				return fmt.Sprintf("%s(%d)", dataType, *col.Length)
			}
		}
	case "NUMBER", "DECIMAL", "NUMERIC":
		// Precision and scale only; DATA_LENGTH holds the byte size and
		// must never leak into the declaration.
		if col.Precision != nil && *col.Precision > 0 {
			switch {
			case col.Scale != nil && *col.Scale > 0:
				return fmt.Sprintf("%s(%d,%d)", dataType, *col.Precision, *col.Scale)
			case col.Scale != nil && *col.Scale == 0:
				return fmt.Sprintf("%s(%d,0)", dataType, *col.Precision)
			default:
				return fmt.Sprintf("%s(%d)", dataType, *col.Precision)
			}
		}
	case "FLOAT", "DOUBLE", "REAL":
		if col.Precision != nil && *col.Precision > 0 {
			return fmt.Sprintf("%s(%d)", dataType, *col.Precision)
		}
	case "TIMESTAMP":
		// The scale field carries the fractional seconds precision. 6 is
		// the default and stays implicit.
		if col.Scale != nil && *col.Scale >= 0 && *col.Scale <= 9 && *col.Scale != 6 {
			return fmt.Sprintf("TIMESTAMP(%d)", *col.Scale)
		}
	}

	return dataType
}

// formatDefault renders a column default expression so that it survives
// replay on a fresh database. Most expressions pass through untouched;
// only plain literals get quoted or wrapped in conversion functions.
func formatDefault(col *ir.Column, raw string) string {
	dataType := strings.ToUpper(strings.TrimSpace(col.DataType))
	expr := strings.TrimSpace(raw)
	exprUpper := strings.ToUpper(expr)

	if exprUpper == "NULL" {
		return "NULL"
	}

	// Quoted string literal. For date/time columns a quoted date-like
	// value is wrapped explicitly so the replay does not depend on the
	// session's NLS date format.
	if len(expr) >= 2 && strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'") {
		inner := expr[1 : len(expr)-1]
		if dataType == "DATE" && isDateLiteral(inner) {
			return fmt.Sprintf("TO_DATE('%s','%s')", ir.EscapeSingleQuotes(inner), dateFormat(inner))
		}
		if strings.HasPrefix(dataType, "TIMESTAMP") && (isDateLiteral(inner) || isTimestampLiteral(inner)) {
			return wrapTimestamp(dataType, inner)
		}
		return expr
	}

	if strings.HasPrefix(exprUpper, "N'") && strings.HasSuffix(expr, "'") {
		return expr
	}
	if (strings.HasPrefix(exprUpper, "X'") && strings.HasSuffix(expr, "'")) || strings.HasPrefix(exprUpper, "0X") {
		return expr
	}
	if strings.HasPrefix(exprUpper, "DATE ") || strings.HasPrefix(exprUpper, "TIMESTAMP ") || strings.HasPrefix(exprUpper, "INTERVAL ") {
		return expr
	}
	if strings.Contains(expr, "(") {
		return expr
	}
	if strings.Contains(expr, "||") {
		return expr
	}
	if strings.HasPrefix(exprUpper, "CASE ") || strings.Contains(exprUpper, " CASE ") {
		return expr
	}
	if strings.HasPrefix(exprUpper, "NEXT VALUE FOR") || strings.Contains(exprUpper, ".NEXTVAL") {
		return expr
	}

	for _, kw := range sqlDefaultKeywords {
		if exprUpper == kw {
			return expr
		}
		if strings.HasPrefix(exprUpper, kw) {
			rest := exprUpper[len(kw):]
			if rest == "" || strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "+") ||
				strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "*") || strings.HasPrefix(rest, "/") {
				return expr
			}
		}
	}

	dateLike := isDateLiteral(expr)
	if !dateLike && looksArithmetic(expr) {
		return expr
	}

	if isStringType(dataType) {
		if looksLikeExpression(expr) {
			return expr
		}
		return "'" + ir.EscapeSingleQuotes(expr) + "'"
	}

	if isNumericType(dataType) {
		return expr
	}

	if dataType == "DATE" {
		if dateLike {
			return fmt.Sprintf("TO_DATE('%s','%s')", ir.EscapeSingleQuotes(expr), dateFormat(expr))
		}
		return expr
	}

	if strings.HasPrefix(dataType, "TIMESTAMP") {
		if dateLike || isTimestampLiteral(expr) {
			return wrapTimestamp(dataType, expr)
		}
		return expr
	}

	if isBinaryType(dataType) {
		if strings.HasPrefix(exprUpper, "HEXTORAW") || strings.HasPrefix(exprUpper, "X'") {
			return expr
		}
		if isHexString(expr) {
			return fmt.Sprintf("HEXTORAW('%s')", expr)
		}
		return expr
	}

	return expr
}

var sqlDefaultKeywords = []string{
	"SYSDATE",
	"SYSTIMESTAMP",
	"CURRENT_DATE",
	"CURRENT_TIME",
	"CURRENT_TIMESTAMP",
	"LOCALTIMESTAMP",
	"LOCALTIME",
	"USER",
	"CURRENT_USER",
	"CURRENT USER",
	"SESSION_USER",
	"SESSION USER",
	"CURRENT_SCHEMA",
	"CURRENT SCHEMA",
	"CURRENT_ROLE",
	"CURRENT ROLE",
	"DBTIMEZONE",
	"SESSIONTIMEZONE",
	"TRUE",
	"FALSE",
}

func dateFormat(value string) string {
	if strings.Contains(value, ":") {
		return "YYYY-MM-DD HH24:MI:SS"
	}
	return "YYYY-MM-DD"
}

func wrapTimestamp(dataType, value string) string {
	normalized := normalizeISOTimestamp(value)
	withTZ := strings.Contains(dataType, "TIME ZONE")
	format := buildTimestampFormat(normalized, withTZ)
	if withTZ && hasTimezone(normalized) {
		return fmt.Sprintf("TO_TIMESTAMP_TZ('%s','%s')", ir.EscapeSingleQuotes(normalized), format)
	}
	return fmt.Sprintf("TO_TIMESTAMP('%s','%s')", ir.EscapeSingleQuotes(normalized), format)
}

// normalizeISOTimestamp rewrites ISO 8601 notation into the space and
// offset form DM8's conversion functions accept.
func normalizeISOTimestamp(value string) string {
	out := strings.ReplaceAll(value, "T", " ")
	if strings.HasSuffix(out, "Z") {
		out = out[:len(out)-1] + "+00:00"
	}
	return out
}

func buildTimestampFormat(value string, withTimezone bool) string {
	format := "YYYY-MM-DD HH24:MI:SS"
	if dot := strings.LastIndex(value, "."); dot >= 0 && strings.Contains(value[:dot], ":") {
		format += ".FF"
	}
	if withTimezone && hasTimezone(value) {
		format += " TZH:TZM"
	}
	return format
}

func hasTimezone(value string) bool {
	if pos := strings.LastIndex(value, "+"); pos >= 0 {
		rest := value[pos:]
		return len(rest) >= 5 && isASCIIDigit(rest[1])
	}
	if pos := strings.LastIndex(value, "-"); pos >= 0 && strings.Contains(value[:pos], ":") {
		rest := value[pos:]
		return len(rest) >= 5 && isASCIIDigit(rest[1])
	}
	return false
}

func isStringType(dataType string) bool {
	switch dataType {
	case "CHAR", "NCHAR", "VARCHAR", "VARCHAR2", "NVARCHAR", "NVARCHAR2",
		"TEXT", "CLOB", "NCLOB", "LONG", "LONG VARCHAR":
		return true
	}
	for _, prefix := range []string{"CHAR(", "VARCHAR(", "VARCHAR2(", "NCHAR(", "NVARCHAR(", "NVARCHAR2("} {
		if strings.HasPrefix(dataType, prefix) {
			return true
		}
	}
	return false
}

func isNumericType(dataType string) bool {
	switch dataType {
	case "NUMBER", "INTEGER", "INT", "SMALLINT", "TINYINT", "BIGINT",
		"DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "DOUBLE PRECISION", "REAL", "BYTE":
		return true
	}
	for _, prefix := range []string{"NUMBER(", "DECIMAL(", "NUMERIC(", "FLOAT("} {
		if strings.HasPrefix(dataType, prefix) {
			return true
		}
	}
	return false
}

func isBinaryType(dataType string) bool {
	switch dataType {
	case "RAW", "BINARY", "VARBINARY", "BLOB", "LONGVARBINARY":
		return true
	}
	for _, prefix := range []string{"RAW(", "BINARY(", "VARBINARY("} {
		if strings.HasPrefix(dataType, prefix) {
			return true
		}
	}
	return false
}

func isNumericLiteral(expr string) bool {
	if expr == "" {
		return false
	}
	i := 0
	if expr[0] == '+' || expr[0] == '-' {
		i = 1
	}
	hasDigit, hasDot, hasExp := false, false, false
	for ; i < len(expr); i++ {
		c := expr[i]
		switch {
		case isASCIIDigit(c):
			hasDigit = true
		case c == '.' && !hasDot && !hasExp:
			hasDot = true
		case (c == 'e' || c == 'E') && hasDigit && !hasExp:
			hasExp = true
			if i+1 < len(expr) && (expr[i+1] == '+' || expr[i+1] == '-') {
				i++
			}
			hasDigit = false
		default:
			return false
		}
	}
	return hasDigit
}

// isDateLiteral recognizes the YYYY-MM-DD shape, optionally followed by
// a time component.
func isDateLiteral(expr string) bool {
	parts := strings.FieldsFunc(expr, func(r rune) bool {
		return r == '-' || r == ' ' || r == ':' || r == '.' || r == 'T'
	})
	if len(parts) < 3 {
		return false
	}
	if len(parts[0]) != 4 || !allDigits(parts[0]) {
		return false
	}
	if parts[1] == "" || len(parts[1]) > 2 || !allDigits(parts[1]) {
		return false
	}
	if parts[2] == "" || len(parts[2]) > 2 || !allDigits(parts[2]) {
		return false
	}
	return true
}

func isTimestampLiteral(expr string) bool {
	return isDateLiteral(expr) && (strings.Contains(expr, ":") || strings.Contains(expr, "T"))
}

func looksLikeExpression(expr string) bool {
	upper := strings.ToUpper(expr)
	return strings.Contains(upper, "||") ||
		strings.Contains(upper, " AND ") ||
		strings.Contains(upper, " OR ") ||
		strings.Contains(upper, " CASE ") ||
		strings.HasPrefix(upper, "CASE ") ||
		strings.Contains(upper, ".NEXTVAL") ||
		strings.Contains(upper, ".CURRVAL") ||
		strings.Contains(expr, "(") ||
		strings.Contains(expr, ")")
}

// looksArithmetic detects operator use in an unquoted default. A minus
// needs care: it separates date parts and signs negative numbers, so it
// only counts when the previous character marks subtraction.
func looksArithmetic(expr string) bool {
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '*' || c == '/' {
			return true
		}
		if c == '+' && i > 0 {
			rest := expr[i:]
			if !strings.HasPrefix(rest, "+0") && !strings.HasPrefix(rest, "+1") {
				return true
			}
		}
		if c == '-' && i > 0 {
			prev := expr[i-1]
			if prev == ' ' || prev == ')' {
				return true
			}
			if isASCIILetter(prev) {
				return true
			}
		}
	}
	return false
}

func isHexString(expr string) bool {
	if expr == "" {
		return false
	}
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if !isASCIIDigit(c) && !(c >= 'a' && c <= 'f') && !(c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isASCIIDigit(s[i]) {
			return false
		}
	}
	return true
}

func isASCIIDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
