package dump

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/dmdump/dmdump/internal/ir"
)

const (
	// DefaultBatchSize is the number of rows grouped into one INSERT.
	DefaultBatchSize = 1000
	minBatchSize     = 100
	maxBatchSize     = 10000
)

// ClampBatchSize bounds a caller-supplied batch size to [100, 10000].
// Zero selects the default. Call sites that accept user input clamp
// before building DataOptions; the generator itself honors whatever it
// is given.
func ClampBatchSize(n int) int {
	if n == 0 {
		return DefaultBatchSize
	}
	if n < minBatchSize {
		return minBatchSize
	}
	if n > maxBatchSize {
		return maxBatchSize
	}
	return n
}

// DataOptions controls table-data rendering.
type DataOptions struct {
	// BatchSize is the number of rows per INSERT; zero selects the
	// default.
	BatchSize int
	// ClearTable prepends a statement that empties the table before the
	// inserts.
	ClearTable bool
	// UseDelete replaces TRUNCATE with DELETE FROM, for targets where
	// the exporting user lacks the TRUNCATE privilege or needs the clear
	// to be transactional.
	UseDelete bool
}

func (o DataOptions) batchSize() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

// UnsupportedValueEncodingError reports a cell value that cannot be
// rendered as a SQL literal. It aborts the affected table's data export
// and leaves other tables untouched.
type UnsupportedValueEncodingError struct {
	Table  string
	Column string
	Value  string
}

func (e *UnsupportedValueEncodingError) Error() string {
	return fmt.Sprintf("unsupported value encoding in %s.%s: %q", e.Table, e.Column, e.Value)
}

// RowSource yields one row per call as nullable text cells in column
// order. It returns io.EOF after the last row.
type RowSource interface {
	Next() ([]*string, error)
}

type sqlRowSource struct {
	rows  *sql.Rows
	width int
}

// NewSQLRowSource adapts a result set to a RowSource. width is the
// number of selected columns.
func NewSQLRowSource(rows *sql.Rows, width int) RowSource {
	return &sqlRowSource{rows: rows, width: width}
}

func (s *sqlRowSource) Next() ([]*string, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	cells := make([]sql.NullString, s.width)
	dest := make([]any, s.width)
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		return nil, err
	}
	row := make([]*string, s.width)
	for i := range cells {
		if cells[i].Valid {
			v := cells[i].String
			row[i] = &v
		}
	}
	return row, nil
}

// SequenceRestart renders the statement that realigns a sequence on the
// target with its current value on the source.
func (g *Generator) SequenceRestart(seq *ir.Sequence) string {
	value := int64(1)
	if seq.StartWith != nil {
		value = *seq.StartWith
	}
	return fmt.Sprintf("ALTER SEQUENCE %s.%s RESTART WITH %d;",
		ir.QuoteIdentifier(g.TargetSchema), ir.QuoteIdentifier(seq.Name), value)
}

// ExportTableData renders one table's data section: an optional clear
// statement, identity restarts, and batched multi-row INSERTs. It
// returns the number of rows written.
func (g *Generator) ExportTableData(w io.Writer, t *ir.Table, rows RowSource, opts DataOptions) (int64, error) {
	name := ir.QualifyTable(g.TargetSchema, t.Name)

	fmt.Fprintf(w, "-- Data for table %s\n", name)
	if opts.ClearTable {
		if opts.UseDelete {
			fmt.Fprintf(w, "DELETE FROM %s;\n", name)
		} else {
			fmt.Fprintf(w, "TRUNCATE TABLE %s;\n", name)
		}
	}
	for _, col := range t.Columns {
		if col.Identity != nil {
			fmt.Fprintf(w, "ALTER TABLE %s ALTER COLUMN %s RESTART WITH %d;\n",
				name, ir.QuoteIdentifier(col.Name), col.Identity.Seed)
		}
	}

	batchSize := opts.batchSize()
	batch := make([]string, 0, batchSize)
	var total int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := fmt.Fprintf(w, "INSERT INTO %s VALUES\n%s;\n", name, strings.Join(batch, ",\n")); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("reading rows of %s: %w", name, err)
		}

		values := make([]string, len(row))
		for i, cell := range row {
			lit, err := renderLiteral(t, t.Columns[i], cell)
			if err != nil {
				return total, err
			}
			values[i] = lit
		}
		batch = append(batch, "("+strings.Join(values, ", ")+")")
		total++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// renderLiteral turns one text cell into a SQL literal for its column's
// type. Date and timestamp values are wrapped in conversion functions
// so the script replays independently of session settings.
func renderLiteral(t *ir.Table, col *ir.Column, cell *string) (string, error) {
	if cell == nil {
		return "NULL", nil
	}
	value := *cell
	dataType := strings.ToUpper(strings.TrimSpace(col.DataType))

	switch {
	case isNumericType(dataType):
		if !isNumericLiteral(strings.TrimSpace(value)) {
			return "", &UnsupportedValueEncodingError{Table: t.Name, Column: col.Name, Value: value}
		}
		return strings.TrimSpace(value), nil

	case isBinaryType(dataType):
		hex := strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
		if !isHexString(hex) {
			return "", &UnsupportedValueEncodingError{Table: t.Name, Column: col.Name, Value: value}
		}
		return fmt.Sprintf("HEXTORAW('%s')", hex), nil

	case dataType == "DATE":
		return fmt.Sprintf("TO_DATE('%s','YYYY-MM-DD HH24:MI:SS')", ir.EscapeSingleQuotes(value)), nil

	case strings.HasPrefix(dataType, "TIMESTAMP"):
		return fmt.Sprintf("TO_TIMESTAMP('%s','YYYY-MM-DD HH24:MI:SS.FF')", ir.EscapeSingleQuotes(value)), nil

	default:
		return "'" + ir.EscapeSingleQuotes(value) + "'", nil
	}
}

// TableResult reports one table's data-export outcome. A non-nil Err
// means the table was skipped or cut short; other tables proceed.
type TableResult struct {
	Table string
	Rows  int64
	Err   error
}
