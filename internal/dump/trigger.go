package dump

import (
	"fmt"
	"strings"

	"github.com/dmdump/dmdump/internal/compat"
	"github.com/dmdump/dmdump/internal/ir"
)

// Triggers renders trigger DDL in the shape the resolved client mode
// expects. Bodies that already carry a full CREATE TRIGGER statement
// keep their own header; everything else gets a rebuilt header from the
// catalog fields.
func (g *Generator) Triggers(triggers []*ir.Trigger) ([]string, []ir.Warning) {
	// The datagrip-script mode routes triggers to a side file but renders
	// them in script shape there.
	mode := g.Mode
	if mode == compat.ModeDataGripScript {
		mode = compat.ModeScript
	}

	var stmts []string
	var warnings []ir.Warning

	for _, tr := range triggers {
		body := strings.TrimSpace(tr.Body)
		bodyUpper := strings.ToUpper(body)
		if strings.HasPrefix(bodyUpper, "CREATE TRIGGER") || strings.HasPrefix(bodyUpper, "CREATE OR REPLACE TRIGGER") {
			stmt := normalizeTriggerBody(body)
			stmts = append(stmts, applyTriggerTerminator(stmt, mode))
			continue
		}

		// A WHEN clause is only legal on row-level triggers; the catalog
		// stores it inline in the body.
		whenClause, bodyWithoutWhen := "", body
		if tr.EachRow {
			var balanced bool
			whenClause, bodyWithoutWhen, balanced = extractWhenClause(body)
			if !balanced {
				warnings = append(warnings, ir.Warning{
					Code: ir.WarningTriggerParse,
					Message: fmt.Sprintf("trigger %s has an unbalanced WHEN clause; emitted without WHEN",
						tr.Name),
				})
				whenClause, bodyWithoutWhen = "", body
			}
		}

		var b strings.Builder
		fmt.Fprintf(&b, "CREATE OR REPLACE TRIGGER %s.%s\n%s %s ON %s",
			ir.QuoteIdentifier(g.TargetSchema), ir.QuoteIdentifier(tr.Name),
			tr.Timing, strings.Join(tr.Events, " OR "),
			ir.QualifyTable(g.TargetSchema, tr.Table))
		if tr.EachRow {
			b.WriteString(" REFERENCING OLD AS OLD NEW AS NEW")
			b.WriteString("\nFOR EACH ROW")
		}
		if when := normalizeTriggerRefs(whenClause); when != "" {
			fmt.Fprintf(&b, "\nWHEN (%s)", when)
		}
		b.WriteString("\n")

		normalized := normalizeTriggerBody(normalizeTriggerRefs(bodyWithoutWhen))
		startUpper := strings.ToUpper(strings.TrimSpace(normalized))
		if !strings.HasPrefix(startUpper, "BEGIN") && !strings.HasPrefix(startUpper, "DECLARE") {
			b.WriteString("BEGIN\n")
			b.WriteString(strings.TrimSpace(normalized))
			b.WriteString("\nEND")
		} else {
			b.WriteString(strings.TrimSpace(normalized))
		}

		stmt := b.String()
		if !strings.HasSuffix(strings.TrimRight(stmt, " \t\n"), ";") {
			stmt += ";"
		}
		stmts = append(stmts, applyTriggerTerminator(stmt, mode))
	}
	return stmts, warnings
}

// applyTriggerTerminator ensures the statement ends with a semicolon
// and, in script mode, a standalone "/" line.
func applyTriggerTerminator(stmt string, mode compat.Mode) string {
	if !strings.HasSuffix(strings.TrimRight(stmt, " \t\n"), ";") {
		stmt += ";"
	}
	if mode == compat.ModeScript {
		if !strings.HasSuffix(strings.TrimRight(stmt, " \t\n"), "/") {
			if !strings.HasSuffix(stmt, "\n") {
				stmt += "\n"
			}
			stmt += "/"
		}
	}
	return stmt
}

// extractWhenClause splits an inline WHEN (...) condition from the rest
// of the body. The scan tracks parenthesis depth across lines and
// ignores parentheses inside single-quoted literals, so nested and
// multi-line conditions come out intact. The returned condition has its
// outer parentheses removed. balanced reports whether the clause closed
// before the body ended.
func extractWhenClause(body string) (when string, rest string, balanced bool) {
	var whenClause strings.Builder
	var bodyLines []string
	inWhen := false
	everInWhen := false
	depth := 0
	inLiteral := false

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		if !inWhen && !everInWhen && strings.HasPrefix(upper, "WHEN") {
			afterWhen := strings.TrimLeft(trimmed[4:], " \t")
			if strings.HasPrefix(afterWhen, "(") {
				inWhen = true
				everInWhen = true
				depth = 0
				for _, ch := range afterWhen {
					if ch == '\'' {
						inLiteral = !inLiteral
					}
					switch {
					case ch == '(' && !inLiteral:
						depth++
						if depth > 1 {
							whenClause.WriteRune(ch)
						}
					case ch == ')' && !inLiteral:
						depth--
						if depth == 0 {
							inWhen = false
						} else {
							whenClause.WriteRune(ch)
						}
					case depth > 0:
						whenClause.WriteRune(ch)
					}
					if !inWhen && everInWhen && depth == 0 {
						break
					}
				}
				continue
			}
		}

		if inWhen {
			for _, ch := range trimmed {
				if ch == '\'' {
					inLiteral = !inLiteral
				}
				switch {
				case ch == '(' && !inLiteral:
					depth++
					whenClause.WriteRune(ch)
				case ch == ')' && !inLiteral:
					depth--
					if depth == 0 {
						inWhen = false
					} else {
						whenClause.WriteRune(ch)
					}
				default:
					whenClause.WriteRune(ch)
				}
				if !inWhen {
					break
				}
			}
			if inWhen {
				whenClause.WriteRune(' ')
			}
		} else {
			bodyLines = append(bodyLines, line)
		}
	}

	return strings.TrimSpace(whenClause.String()), strings.Join(bodyLines, "\n"), !inWhen
}

// normalizeTriggerRefs rewrites bare NEW./OLD. pseudo-record references
// into :NEW./:OLD. form. References already prefixed with a colon or
// embedded in a longer identifier stay untouched.
func normalizeTriggerRefs(input string) string {
	var out strings.Builder
	out.Grow(len(input) + 8)

	for i := 0; i < len(input); {
		if i+4 <= len(input) {
			b0 := upperByte(input[i])
			b1 := upperByte(input[i+1])
			b2 := upperByte(input[i+2])
			b3 := input[i+3]

			isNew := b0 == 'N' && b1 == 'E' && b2 == 'W' && b3 == '.'
			isOld := b0 == 'O' && b1 == 'L' && b2 == 'D' && b3 == '.'
			if isNew || isOld {
				prevIsWord, prevIsColon := false, false
				if i > 0 {
					prev := input[i-1]
					prevIsWord = isASCIILetter(prev) || isASCIIDigit(prev) || prev == '_'
					prevIsColon = prev == ':'
				}
				if !prevIsWord && !prevIsColon {
					if isNew {
						out.WriteString(":NEW.")
					} else {
						out.WriteString(":OLD.")
					}
					i += 4
					continue
				}
			}
		}
		out.WriteByte(input[i])
		i++
	}
	return out.String()
}

func upperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// normalizeTriggerBody repairs catalog bodies that lost their statement
// terminators. A first pass marks multi-line SELECT...INTO statements
// so only their last line is terminated; the second pass appends a
// semicolon to statement-shaped lines at parenthesis depth zero.
func normalizeTriggerBody(body string) string {
	allLines := strings.Split(body, "\n")
	isSelectInto := make([]bool, len(allLines))

	for i, line := range allLines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		if !strings.HasPrefix(upper, "SELECT ") {
			continue
		}
		foundInto := false
		intoIdx := i
		for j := i + 1; j < len(allLines); j++ {
			nextUpper := strings.ToUpper(strings.TrimSpace(allLines[j]))
			if strings.HasPrefix(nextUpper, "INTO ") {
				foundInto = true
				intoIdx = j
				break
			}
			if strings.HasSuffix(nextUpper, ";") || strings.HasPrefix(nextUpper, "SELECT ") {
				break
			}
		}
		if !foundInto {
			continue
		}

		endIdx := intoIdx
		depth := 0
		for j := intoIdx + 1; j < len(allLines); j++ {
			nextLine := strings.TrimSpace(allLines[j])
			nextUpper := strings.ToUpper(nextLine)

			depth += strings.Count(nextLine, "(") - strings.Count(nextLine, ")")

			if depth == 0 && (strings.HasSuffix(nextUpper, ";") ||
				strings.HasPrefix(nextUpper, "SELECT ") ||
				strings.HasPrefix(nextUpper, "INSERT ") ||
				strings.HasPrefix(nextUpper, "UPDATE ") ||
				strings.HasPrefix(nextUpper, "DELETE ") ||
				strings.Contains(nextUpper, ":NEW.") ||
				strings.Contains(nextUpper, ":OLD.") ||
				strings.Contains(nextUpper, ":=") ||
				strings.HasPrefix(nextUpper, "END")) {
				break
			}
			endIdx = j
		}
		for k := i; k <= endIdx; k++ {
			isSelectInto[k] = true
		}
	}

	lines := make([]string, 0, len(allLines))
	cumulativeDepth := 0
	for idx, line := range allLines {
		trimmed := strings.TrimRight(line, " \t")
		upper := strings.ToUpper(strings.TrimSpace(trimmed))

		if upper == "" {
			lines = append(lines, trimmed)
			continue
		}

		prevDepth := cumulativeDepth
		cumulativeDepth += strings.Count(trimmed, "(") - strings.Count(trimmed, ")")

		lastSelectIntoLine := isSelectInto[idx] && (idx+1 >= len(allLines) || !isSelectInto[idx+1])

		needsSemicolon := !strings.HasSuffix(upper, ";") &&
			prevDepth == 0 &&
			cumulativeDepth == 0 &&
			(!isSelectInto[idx] || lastSelectIntoLine) &&
			!strings.HasPrefix(upper, "CREATE ") &&
			!strings.HasPrefix(upper, "DECLARE") &&
			!strings.HasPrefix(upper, "WHEN ") &&
			!strings.HasPrefix(upper, "IF ") &&
			!strings.HasPrefix(upper, "ELSIF ") &&
			!strings.HasPrefix(upper, "ELSE") &&
			!strings.HasPrefix(upper, "FOR ") &&
			!strings.HasPrefix(upper, "WHILE ") &&
			!strings.HasPrefix(upper, "LOOP") &&
			!strings.HasPrefix(upper, "BEGIN") &&
			!strings.HasPrefix(upper, "END") &&
			!strings.HasPrefix(upper, "EXCEPTION") &&
			!strings.HasPrefix(upper, "THEN") &&
			(strings.HasPrefix(upper, "SELECT ") ||
				strings.HasPrefix(upper, "INSERT ") ||
				strings.HasPrefix(upper, "UPDATE ") ||
				strings.HasPrefix(upper, "DELETE ") ||
				strings.HasPrefix(upper, "INTO ") ||
				strings.HasPrefix(upper, "NULL") ||
				strings.HasPrefix(upper, "RAISE") ||
				strings.Contains(upper, ":NEW.") ||
				strings.Contains(upper, ":OLD.") ||
				strings.Contains(upper, ":=") ||
				lastSelectIntoLine)

		if needsSemicolon {
			trimmed += ";"
		}
		lines = append(lines, trimmed)
	}

	if len(lines) > 0 {
		last := lines[len(lines)-1]
		if strings.ToUpper(strings.TrimSpace(last)) == "END" {
			lines[len(lines)-1] = last + ";"
		}
	}

	return strings.Join(lines, "\n")
}
