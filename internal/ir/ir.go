// Package ir holds the canonical, dialect-independent model of a table
// and the machinery that builds it from raw DM8 catalog metadata. All
// dialect-specific field encodings (bit-flag identity markers,
// OR-separated event lists, CHAR/BYTE semantics flags) are decoded
// exactly once, at ingestion; downstream generators only ever see the
// decoded model.
package ir

// Table is the canonical model of one exported table. It is constructed
// once per export call from a metadata snapshot and immutable afterward.
type Table struct {
	Schema  string
	Name    string
	Comment string

	// Columns preserves the exact order reported by the catalog.
	Columns []*Column

	// PrimaryKey lists primary-key column names in constraint order.
	PrimaryKey []string

	Indexes           []*Index
	UniqueConstraints []*UniqueConstraint
	CheckConstraints  []*CheckConstraint
	ForeignKeys       []*ForeignKey
	Triggers          []*Trigger

	// RowCount is the catalog's row estimate, -1 when unknown.
	RowCount int64

	// Warnings collects the non-fatal conditions encountered while
	// decoding the metadata snapshot for this table.
	Warnings []Warning
}

// CharSemantics states whether a character column's declared length
// counts characters or bytes.
type CharSemantics int

const (
	CharSemanticsUnspecified CharSemantics = iota
	CharSemanticsChar
	CharSemanticsByte
)

// IdentitySpec describes an auto-generated identity column.
type IdentitySpec struct {
	Seed      int64
	Increment int64
}

// Column is a single table column. Identity and DefaultValue may both
// be present in source metadata; generators must never render both
// (identity wins).
type Column struct {
	Name          string
	DataType      string
	Length        *int
	Precision     *int
	Scale         *int
	CharSemantics CharSemantics
	Nullable      bool
	Comment       string
	DefaultValue  *string
	Identity      *IdentitySpec
}

// Index is a secondary index. Whether it survives rendering is decided
// by the DDL generator (primary-key and unique-constraint column-set
// suppression).
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// UniqueConstraint is a named UNIQUE constraint.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// CheckConstraint is a named CHECK constraint with its raw condition.
type CheckConstraint struct {
	Name      string
	Condition string
}

// ForeignKey is a referential constraint. DeleteRule and UpdateRule
// hold the catalog's rule text ("CASCADE", "SET NULL", "NO ACTION", or
// empty).
type ForeignKey struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	DeleteRule        string
	UpdateRule        string
}

// TriggerTiming is the firing time of a trigger.
type TriggerTiming string

const (
	TriggerTimingBefore    TriggerTiming = "BEFORE"
	TriggerTimingAfter     TriggerTiming = "AFTER"
	TriggerTimingInsteadOf TriggerTiming = "INSTEAD OF"
)

// Trigger is a table trigger. Body carries the raw body text as stored
// in the catalog; a WHEN clause, if any, is embedded in the body and
// extracted at rendering time for row-level triggers.
type Trigger struct {
	Name    string
	Table   string
	Timing  TriggerTiming
	Events  []string
	EachRow bool
	Body    string
}

// Sequence is a schema-level sequence.
type Sequence struct {
	Name        string
	StartWith   *int64
	MinValue    *int64
	MaxValue    *int64
	IncrementBy int64
	CacheSize   *int64
	Cycle       bool
	Order       bool
}

// WarningCode classifies non-fatal export conditions.
type WarningCode string

const (
	WarningMetadataInconsistency WarningCode = "metadata-inconsistency"
	WarningIdentifierTooLong     WarningCode = "identifier-too-long"
	WarningTriggerParse          WarningCode = "trigger-parse-ambiguity"
)

// Warning is a non-fatal condition recorded during model building or
// rendering. Warnings surface in the generated script header; they
// never block the export.
type Warning struct {
	Code    WarningCode
	Message string
}

// TableInfo is a lightweight table listing entry.
type TableInfo struct {
	Name     string
	Comment  string
	RowCount int64
}
