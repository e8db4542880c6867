// Package dump renders the canonical table model into DM8 SQL scripts.
// DDL and data rendering are pure text generation; nothing in this
// package touches the database.
package dump

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmdump/dmdump/internal/compat"
	"github.com/dmdump/dmdump/internal/ir"
)

// maxIdentifierLength is DM8's identifier limit.
const maxIdentifierLength = 128

// Generator renders DDL statements for one export call. TargetSchema
// replaces the source schema in every rendered name; Mode governs the
// trigger terminator shape.
type Generator struct {
	TargetSchema string
	Mode         compat.Mode
}

func NewGenerator(targetSchema string, mode compat.Mode) *Generator {
	return &Generator{TargetSchema: targetSchema, Mode: mode}
}

func (g *Generator) tableName(t *ir.Table) string {
	return ir.QualifyTable(g.TargetSchema, t.Name)
}

// DropTable renders the guarded drop used when the caller asked for a
// clean re-create.
func (g *Generator) DropTable(t *ir.Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", g.tableName(t))
}

// CreateTable renders the CREATE TABLE statement followed by COMMENT ON
// statements for the table and any commented columns.
func (g *Generator) CreateTable(t *ir.Table) string {
	name := g.tableName(t)

	lines := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		lines = append(lines, "    "+columnDefinition(col))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n%s\n);", name, strings.Join(lines, ",\n"))

	if comment := strings.TrimSpace(t.Comment); comment != "" {
		fmt.Fprintf(&b, "\nCOMMENT ON TABLE %s IS '%s';", name, ir.EscapeSingleQuotes(comment))
	}
	for _, col := range t.Columns {
		if comment := strings.TrimSpace(col.Comment); comment != "" {
			fmt.Fprintf(&b, "\nCOMMENT ON COLUMN %s.%s IS '%s';",
				name, ir.QuoteIdentifier(col.Name), ir.EscapeSingleQuotes(comment))
		}
	}
	return b.String()
}

// columnDefinition renders one column line. An identity column never
// renders its default: DM8 rejects IDENTITY combined with DEFAULT, and
// the identity generator supersedes the default anyway.
func columnDefinition(col *ir.Column) string {
	parts := []string{ir.QuoteIdentifier(col.Name), formatDataType(col)}

	if col.Identity != nil {
		parts = append(parts, fmt.Sprintf("IDENTITY(%d, %d)", col.Identity.Seed, col.Identity.Increment))
	} else if col.DefaultValue != nil {
		if def := strings.TrimSpace(*col.DefaultValue); def != "" {
			parts = append(parts, "DEFAULT "+formatDefault(col, def))
		}
	}

	if col.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// PrimaryKey renders the primary-key constraint, or "" when the table
// has none. The constraint name derives from the bare table name.
func (g *Generator) PrimaryKey(t *ir.Table) string {
	if len(t.PrimaryKey) == 0 {
		return ""
	}
	cols := quoteAll(t.PrimaryKey)
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);",
		g.tableName(t), ir.QuoteIdentifier("PK_"+t.Name), strings.Join(cols, ", "))
}

// Indexes renders secondary indexes. Indexes whose column set matches
// the primary key or a unique constraint are suppressed, as are exact
// duplicates of an already rendered ordered column list. Auto-generated
// catalog names (INDEX33555463 and the like) are replaced with stable
// descriptive names.
func (g *Generator) Indexes(t *ir.Table) ([]string, []ir.Warning) {
	reserved := make(map[string]bool)
	if len(t.PrimaryKey) > 0 {
		reserved[sortedColumnsKey(t.PrimaryKey)] = true
	}
	for _, uc := range t.UniqueConstraints {
		if len(uc.Columns) > 0 {
			reserved[sortedColumnsKey(uc.Columns)] = true
		}
	}

	seenOrdered := make(map[string]bool)
	usedNames := make(map[string]bool)
	var stmts []string
	var warnings []ir.Warning

	for _, index := range t.Indexes {
		if len(index.Columns) == 0 {
			continue
		}
		if reserved[sortedColumnsKey(index.Columns)] {
			continue
		}
		orderedKey := orderedColumnsKey(index.Columns)
		if seenOrdered[orderedKey] {
			continue
		}
		seenOrdered[orderedKey] = true

		name, warn := normalizeIndexName(t.Name, index, usedNames)
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		usedNames[strings.ToUpper(name)] = true

		prefix := "CREATE INDEX"
		if index.Unique {
			prefix = "CREATE UNIQUE INDEX"
		}
		stmts = append(stmts, fmt.Sprintf("%s %s ON %s (%s);",
			prefix, ir.QuoteIdentifier(name), g.tableName(t),
			strings.Join(quoteAll(index.Columns), ", ")))
	}
	return stmts, warnings
}

// normalizeIndexName rewrites auto-generated INDEX<digits> names into
// IDX_<TABLE>_<COLUMNS>, truncating at the identifier limit. Truncation
// can collide for long column lists, so collisions get a numeric suffix.
func normalizeIndexName(tableName string, index *ir.Index, usedNames map[string]bool) (string, *ir.Warning) {
	upper := strings.ToUpper(index.Name)
	if !strings.HasPrefix(upper, "INDEX") || !allDigits(upper[len("INDEX"):]) || len(upper) == len("INDEX") {
		return index.Name, nil
	}

	cols := make([]string, len(index.Columns))
	for i, c := range index.Columns {
		cols[i] = strings.ToUpper(c)
	}
	name := fmt.Sprintf("IDX_%s_%s", strings.ToUpper(tableName), strings.Join(cols, "_"))
	if len(name) <= maxIdentifierLength {
		return name, nil
	}

	truncated := name[:maxIdentifierLength]
	candidate := truncated
	for n := 2; usedNames[strings.ToUpper(candidate)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		candidate = truncated[:maxIdentifierLength-len(suffix)] + suffix
	}
	warn := &ir.Warning{
		Code: ir.WarningIdentifierTooLong,
		Message: fmt.Sprintf("index name %s exceeds %d characters; renamed to %s",
			name, maxIdentifierLength, candidate),
	}
	return candidate, warn
}

// UniqueConstraints renders the table's named unique constraints.
func (g *Generator) UniqueConstraints(t *ir.Table) []string {
	var stmts []string
	for _, uc := range t.UniqueConstraints {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);",
			g.tableName(t), ir.QuoteIdentifier(uc.Name), strings.Join(quoteAll(uc.Columns), ", ")))
	}
	return stmts
}

// CheckConstraints renders the table's check constraints. The condition
// is catalog text and passes through unquoted.
func (g *Generator) CheckConstraints(t *ir.Table) []string {
	var stmts []string
	for _, ck := range t.CheckConstraints {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);",
			g.tableName(t), ir.QuoteIdentifier(ck.Name), ck.Condition))
	}
	return stmts
}

// ForeignKeys renders referential constraints. Rules equal to the
// engine default NO ACTION stay implicit. The referenced table is
// re-qualified into the target schema unless it already carries a
// different schema.
func (g *Generator) ForeignKeys(t *ir.Table) []string {
	var stmts []string
	for _, fk := range t.ForeignKeys {
		refTable := fk.ReferencedTable
		if !strings.Contains(refTable, ".") {
			refTable = g.TargetSchema + "." + refTable
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			g.tableName(t), ir.QuoteIdentifier(fk.Name),
			strings.Join(quoteAll(fk.Columns), ", "),
			ir.QuoteIdentifier(refTable),
			strings.Join(quoteAll(fk.ReferencedColumns), ", "))
		if rule := strings.TrimSpace(fk.DeleteRule); rule != "" && !strings.EqualFold(rule, "NO ACTION") {
			stmt += " ON DELETE " + rule
		}
		if rule := strings.TrimSpace(fk.UpdateRule); rule != "" && !strings.EqualFold(rule, "NO ACTION") {
			stmt += " ON UPDATE " + rule
		}
		stmts = append(stmts, stmt+";")
	}
	return stmts
}

// Sequences renders CREATE SEQUENCE statements. DM8 has no CREATE OR
// REPLACE SEQUENCE, so replays over an existing schema must drop first.
func (g *Generator) Sequences(seqs []*ir.Sequence) []string {
	var stmts []string
	for _, seq := range seqs {
		var b strings.Builder
		fmt.Fprintf(&b, "CREATE SEQUENCE %s.%s",
			ir.QuoteIdentifier(g.TargetSchema), ir.QuoteIdentifier(seq.Name))
		if seq.StartWith != nil {
			fmt.Fprintf(&b, " START WITH %d", *seq.StartWith)
		}
		if seq.MinValue != nil {
			fmt.Fprintf(&b, " MINVALUE %d", *seq.MinValue)
		}
		if seq.MaxValue != nil {
			fmt.Fprintf(&b, " MAXVALUE %d", *seq.MaxValue)
		}
		fmt.Fprintf(&b, " INCREMENT BY %d", seq.IncrementBy)
		if seq.CacheSize != nil && *seq.CacheSize > 0 {
			fmt.Fprintf(&b, " CACHE %d", *seq.CacheSize)
		} else {
			b.WriteString(" NOCACHE")
		}
		if seq.Cycle {
			b.WriteString(" CYCLE")
		} else {
			b.WriteString(" NOCYCLE")
		}
		if seq.Order {
			b.WriteString(" ORDER")
		} else {
			b.WriteString(" NOORDER")
		}
		b.WriteString(";")
		stmts = append(stmts, b.String())
	}
	return stmts
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ir.QuoteIdentifier(n)
	}
	return out
}

func orderedColumnsKey(columns []string) string {
	upper := make([]string, len(columns))
	for i, c := range columns {
		upper[i] = strings.ToUpper(c)
	}
	return strings.Join(upper, "|")
}

func sortedColumnsKey(columns []string) string {
	upper := make([]string, len(columns))
	for i, c := range columns {
		upper[i] = strings.ToUpper(c)
	}
	sort.Strings(upper)
	return strings.Join(upper, "|")
}
