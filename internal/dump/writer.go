package dump

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmdump/dmdump/internal/compat"
	"github.com/dmdump/dmdump/internal/ir"
)

// FilenameTimestampLayout is the timestamp layout used in export
// filenames.
const FilenameTimestampLayout = "20060102_150405"

// FormatFilename builds an export filename from its parts. The target
// schema is only encoded when it differs from the source, so the common
// same-schema export reads as <schema>_<kind>_<timestamp>.sql.
func FormatFilename(source, target, kind, timestamp string) string {
	if target == "" || strings.EqualFold(source, target) {
		return fmt.Sprintf("%s_%s_%s.sql", source, kind, timestamp)
	}
	return fmt.Sprintf("%s_to_%s_%s_%s.sql", source, target, kind, timestamp)
}

// TriggerFilename derives the side-file name that holds trigger DDL in
// datagrip-script mode.
func TriggerFilename(base string) string {
	return strings.TrimSuffix(base, ".sql") + ".triggers.sql"
}

const bannerRule = "-- ============================================"

// DDLScript assembles a full schema export. Tables render in input
// order; foreign keys follow all tables so that creation order cannot
// break references; sequences and triggers close the script because
// triggers usually read the sequences.
type DDLScript struct {
	SourceSchema string
	TargetSchema string
	Mode         compat.Mode
	DropExisting bool
	Tables       []*ir.Table
	Sequences    []*ir.Sequence
	GeneratedAt  time.Time

	// TriggerFile names the side file mentioned in the main script when
	// Mode is datagrip-script.
	TriggerFile string
}

// Write renders the script to w. In datagrip-script mode trigger DDL
// goes to triggerW instead; triggerW is ignored in the other modes and
// may be nil there.
func (s *DDLScript) Write(w, triggerW io.Writer) error {
	gen := NewGenerator(s.TargetSchema, s.Mode)

	warnings := collectWarnings(s.Tables)

	var body strings.Builder
	var triggerStmts []string
	var triggerTables []string

	for i, t := range s.Tables {
		if i > 0 {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "-- Table: %s\n", ir.QualifyTable(s.TargetSchema, t.Name))
		if s.DropExisting {
			body.WriteString(gen.DropTable(t) + "\n")
		}
		body.WriteString(gen.CreateTable(t) + "\n")

		if pk := gen.PrimaryKey(t); pk != "" {
			body.WriteString("\n" + pk + "\n")
		}
		writeStatementBlock(&body, gen.UniqueConstraints(t))
		writeStatementBlock(&body, gen.CheckConstraints(t))

		indexStmts, indexWarnings := gen.Indexes(t)
		warnings = append(warnings, indexWarnings...)
		writeStatementBlock(&body, indexStmts)

		stmts, trigWarnings := gen.Triggers(t.Triggers)
		warnings = append(warnings, trigWarnings...)
		if len(stmts) > 0 {
			triggerStmts = append(triggerStmts, stmts...)
			triggerTables = append(triggerTables, t.Name)
		}
	}

	var fkStmts []string
	for _, t := range s.Tables {
		fkStmts = append(fkStmts, gen.ForeignKeys(t)...)
	}

	seqStmts := gen.Sequences(s.Sequences)

	if err := s.writeHeader(w, warnings); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"+body.String()); err != nil {
		return err
	}

	if len(fkStmts) > 0 {
		fmt.Fprintf(w, "\n-- Foreign keys\n")
		for _, stmt := range fkStmts {
			fmt.Fprintln(w, stmt)
		}
	}

	if len(seqStmts) > 0 || len(triggerStmts) > 0 {
		fmt.Fprintf(w, "\n%s\n-- Sequences and triggers\n%s\n", bannerRule, bannerRule)
		fmt.Fprintln(w, "-- Important: run the sequences before the triggers.")
	}
	if len(seqStmts) > 0 {
		fmt.Fprintf(w, "\n-- Sequences (step 1: run these first)\n")
		for _, stmt := range seqStmts {
			fmt.Fprintln(w, stmt)
		}
	}

	if len(triggerStmts) == 0 {
		return nil
	}

	if s.Mode == compat.ModeDataGripScript {
		if err := s.writeTriggerFile(triggerW, triggerStmts, triggerTables); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n-- Triggers (step 2: run after the sequences)\n")
		fmt.Fprintf(w, "-- Note: triggers were exported to a separate file: %s\n", s.TriggerFile)
		fmt.Fprintln(w, "-- Run that file with DIsql or another native DM8 tool.")
		return nil
	}

	fmt.Fprintf(w, "\n-- Triggers (step 2: run after the sequences)\n")
	for _, stmt := range triggerStmts {
		fmt.Fprintln(w, stmt)
	}
	return nil
}

func (s *DDLScript) writeHeader(w io.Writer, warnings []ir.Warning) error {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}

	fmt.Fprintf(w, "%s\n-- DM8 DDL export\n%s\n", bannerRule, bannerRule)
	fmt.Fprintf(w, "-- Generated at: %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "-- Source schema: %s\n", s.SourceSchema)
	fmt.Fprintf(w, "-- Target schema: %s\n", s.TargetSchema)
	fmt.Fprintf(w, "-- Tables: %d\n", len(s.Tables))
	fmt.Fprintf(w, "-- Included tables: %s\n", strings.Join(names, ", "))
	fmt.Fprintln(w, "--")

	switch s.Mode {
	case compat.ModeDataGripScript:
		fmt.Fprintln(w, "-- Execution: DataGrip with separate trigger script")
		fmt.Fprintln(w, "-- Note: triggers live in a separate file; run it with DIsql or another native DM8 tool.")
	case compat.ModeScript:
		fmt.Fprintln(w, "-- Execution: script mode (DBeaver/SQLark/DIsql)")
		fmt.Fprintln(w, "-- Note: triggers use / as the statement separator.")
	default:
		fmt.Fprintln(w, "-- Execution: DataGrip, statement by statement")
		fmt.Fprintln(w, "-- Note: run the statements one at a time in DataGrip.")
	}
	if s.DropExisting {
		fmt.Fprintln(w, "-- Warning: this script drops existing tables before re-creating them.")
	} else {
		fmt.Fprintln(w, "-- Note: this script does not drop existing tables.")
	}
	fmt.Fprintln(w, "-- Important: triggers usually rely on sequences for key generation.")
	fmt.Fprintln(w, "-- Important: run the sequences before the triggers.")

	if len(warnings) > 0 {
		fmt.Fprintln(w, "--")
		fmt.Fprintf(w, "-- Warnings (%d):\n", len(warnings))
		for _, warn := range warnings {
			fmt.Fprintf(w, "--   [%s] %s\n", warn.Code, warn.Message)
		}
	}

	_, err := fmt.Fprintln(w, bannerRule)
	return err
}

func (s *DDLScript) writeTriggerFile(w io.Writer, stmts, tables []string) error {
	fmt.Fprintf(w, "%s\n-- DM8 trigger DDL export\n%s\n", bannerRule, bannerRule)
	fmt.Fprintf(w, "-- Generated at: %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "-- Target schema: %s\n", s.TargetSchema)
	fmt.Fprintf(w, "-- Triggers: %d\n", len(stmts))
	fmt.Fprintf(w, "-- Included tables: %s\n", strings.Join(tables, ", "))
	fmt.Fprintln(w, "--")
	fmt.Fprintln(w, "-- Execution:")
	fmt.Fprintln(w, "--   1. DIsql command line: disql USER/PASSWORD@HOST:PORT -f <this file>")
	fmt.Fprintln(w, "--   2. Open and run this file in the DM8 management tool.")
	fmt.Fprintln(w, "--   3. In DataGrip, select and run each trigger statement individually (not Run Script).")
	fmt.Fprintln(w, "--")
	fmt.Fprintln(w, "-- Important: run the sequences in the main DDL file before this one.")
	fmt.Fprintln(w, "-- Note: each trigger ends with / as the statement separator.")
	fmt.Fprintln(w, bannerRule)
	for _, stmt := range stmts {
		if _, err := fmt.Fprintf(w, "\n%s\n", stmt); err != nil {
			return err
		}
	}
	return nil
}

func writeStatementBlock(b *strings.Builder, stmts []string) {
	if len(stmts) == 0 {
		return
	}
	b.WriteString("\n")
	for _, stmt := range stmts {
		b.WriteString(stmt + "\n")
	}
}

func collectWarnings(tables []*ir.Table) []ir.Warning {
	var warnings []ir.Warning
	for _, t := range tables {
		warnings = append(warnings, t.Warnings...)
	}
	return warnings
}

// DataScript assembles a full data export: sequence restarts first,
// then per-table clear statements, identity restarts, and batched
// INSERTs.
type DataScript struct {
	SourceSchema string
	TargetSchema string
	Sequences    []*ir.Sequence
	GeneratedAt  time.Time
	Options      DataOptions

	// RowCounts pairs table names with their estimated counts for the
	// header; nil skips the estimate line per table.
	RowCounts map[string]int64
}

// WriteHeader renders the data script banner. The table sections follow
// via Generator.ExportTableData as each table's rows stream in.
func (s *DataScript) WriteHeader(w io.Writer, tables []string) error {
	gen := NewGenerator(s.TargetSchema, compat.ModeDataGrip)

	fmt.Fprintln(w, "-- DM8 data export")
	fmt.Fprintf(w, "-- Tables: %d\n", len(tables))
	if s.RowCounts != nil {
		var total int64
		for _, t := range tables {
			total += s.RowCounts[t]
		}
		fmt.Fprintf(w, "-- Rows (estimated): %d\n", total)
	} else {
		fmt.Fprintln(w, "-- Rows (estimated): skipped (per request)")
	}
	fmt.Fprintf(w, "-- Generated at: %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	if s.Options.ClearTable {
		if s.Options.UseDelete {
			fmt.Fprintln(w, "-- Warning: this script deletes table contents before inserting data.")
		} else {
			fmt.Fprintln(w, "-- Warning: this script truncates tables before inserting data.")
		}
	}
	if len(s.Sequences) > 0 {
		fmt.Fprintln(w, "-- Sequences will be reset to their current values before the inserts.")
	}
	fmt.Fprintln(w)

	if len(s.Sequences) > 0 {
		fmt.Fprintln(w, "-- Reset sequences")
		for _, seq := range s.Sequences {
			fmt.Fprintln(w, gen.SequenceRestart(seq))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
