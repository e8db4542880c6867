package ir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

func TestBuildTableDecodesColumns(t *testing.T) {
	raw := &RawTable{
		Schema:  "HR",
		Name:    "EMPLOYEES",
		Comment: " staff roster ",
		Columns: []RawColumn{
			{
				Name:              "ID",
				DataType:          "BIGINT",
				Nullable:          "N",
				Flags:             1,
				IdentitySeed:      int64p(100),
				IdentityIncrement: int64p(5),
				DefaultValue:      "0",
			},
			{
				Name:     "NAME",
				DataType: "VARCHAR",
				Length:   intp(50),
				CharUsed: "C",
				Nullable: "Y",
				Comment:  "display name",
			},
			{
				Name:         "CODE",
				DataType:     "VARCHAR",
				Length:       intp(20),
				CharUsed:     "B",
				Nullable:     "N",
				DefaultValue: "  'X'  ",
			},
		},
		PrimaryKey: []string{"ID"},
		RowCount:   42,
	}

	got, err := BuildTable(raw)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	def := "'X'"
	zero := "0"
	want := &Table{
		Schema:  "HR",
		Name:    "EMPLOYEES",
		Comment: "staff roster",
		Columns: []*Column{
			{
				Name:         "ID",
				DataType:     "BIGINT",
				Nullable:     false,
				DefaultValue: &zero,
				Identity:     &IdentitySpec{Seed: 100, Increment: 5},
			},
			{
				Name:          "NAME",
				DataType:      "VARCHAR",
				Length:        intp(50),
				CharSemantics: CharSemanticsChar,
				Nullable:      true,
				Comment:       "display name",
			},
			{
				Name:          "CODE",
				DataType:      "VARCHAR",
				Length:        intp(20),
				CharSemantics: CharSemanticsByte,
				Nullable:      false,
				DefaultValue:  &def,
			},
		},
		PrimaryKey: []string{"ID"},
		RowCount:   42,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTableMissingPrimaryKeyColumn(t *testing.T) {
	raw := &RawTable{
		Name: "ORDERS",
		Columns: []RawColumn{
			{Name: "ID", DataType: "INT", Nullable: "N"},
		},
		PrimaryKey: []string{"ORDER_ID"},
	}

	_, err := BuildTable(raw)
	var mErr *MetadataInconsistencyError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MetadataInconsistencyError, got %v", err)
	}
	if mErr.Table != "ORDERS" {
		t.Errorf("error names table %q, want ORDERS", mErr.Table)
	}
}

func TestBuildTableIdentityMissingSeed(t *testing.T) {
	raw := &RawTable{
		Name: "T",
		Columns: []RawColumn{
			{Name: "ID", DataType: "INT", Nullable: "N", Flags: 1},
		},
	}

	got, err := BuildTable(raw)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	want := &IdentitySpec{Seed: 1, Increment: 1}
	if diff := cmp.Diff(want, got.Columns[0].Identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
	if len(got.Warnings) != 1 || got.Warnings[0].Code != WarningMetadataInconsistency {
		t.Errorf("expected one metadata-inconsistency warning, got %v", got.Warnings)
	}
}

func TestBuildTableSecondIdentityDegrades(t *testing.T) {
	raw := &RawTable{
		Name: "T",
		Columns: []RawColumn{
			{Name: "A", DataType: "INT", Nullable: "N", Flags: 1, IdentitySeed: int64p(1), IdentityIncrement: int64p(1)},
			{Name: "B", DataType: "INT", Nullable: "N", Flags: 1, IdentitySeed: int64p(1), IdentityIncrement: int64p(1)},
		},
	}

	got, err := BuildTable(raw)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if got.Columns[0].Identity == nil {
		t.Error("first identity column lost its identity spec")
	}
	if got.Columns[1].Identity != nil {
		t.Error("second identity column kept its identity spec")
	}
	if len(got.Warnings) != 1 || got.Warnings[0].Code != WarningMetadataInconsistency {
		t.Errorf("expected one metadata-inconsistency warning, got %v", got.Warnings)
	}
}

func TestBuildTableIndexUniqueness(t *testing.T) {
	raw := &RawTable{
		Name: "T",
		Columns: []RawColumn{
			{Name: "A", DataType: "INT", Nullable: "Y"},
		},
		Indexes: []RawIndex{
			{Name: "IDX_A", Columns: []string{"A"}, Uniqueness: "UNIQUE"},
			{Name: "IDX_B", Columns: []string{"A"}, Uniqueness: "Y"},
			{Name: "IDX_C", Columns: []string{"A"}, Uniqueness: "NONUNIQUE"},
		},
	}

	got, err := BuildTable(raw)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	want := []*Index{
		{Name: "IDX_A", Columns: []string{"A"}, Unique: true},
		{Name: "IDX_B", Columns: []string{"A"}, Unique: true},
		{Name: "IDX_C", Columns: []string{"A"}, Unique: false},
	}
	if diff := cmp.Diff(want, got.Indexes); diff != "" {
		t.Errorf("indexes mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTrigger(t *testing.T) {
	tests := []struct {
		name       string
		raw        RawTrigger
		wantTiming TriggerTiming
		wantRow    bool
		wantEvents []string
	}{
		{
			name:       "before each row multi event",
			raw:        RawTrigger{Name: "TRG", TriggerType: "BEFORE EACH ROW", TriggeringEvent: "INSERT OR UPDATE"},
			wantTiming: TriggerTimingBefore,
			wantRow:    true,
			wantEvents: []string{"INSERT", "UPDATE"},
		},
		{
			name:       "after statement",
			raw:        RawTrigger{Name: "TRG", TriggerType: "AFTER STATEMENT", TriggeringEvent: "DELETE"},
			wantTiming: TriggerTimingAfter,
			wantRow:    false,
			wantEvents: []string{"DELETE"},
		},
		{
			name:       "instead of",
			raw:        RawTrigger{Name: "TRG", TriggerType: "INSTEAD OF EACH ROW", TriggeringEvent: "insert"},
			wantTiming: TriggerTimingInsteadOf,
			wantRow:    true,
			wantEvents: []string{"INSERT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig, warns := decodeTrigger("T", tt.raw)
			if len(warns) != 0 {
				t.Errorf("unexpected warnings: %v", warns)
			}
			if trig.Timing != tt.wantTiming {
				t.Errorf("timing = %q, want %q", trig.Timing, tt.wantTiming)
			}
			if trig.EachRow != tt.wantRow {
				t.Errorf("each row = %v, want %v", trig.EachRow, tt.wantRow)
			}
			if diff := cmp.Diff(tt.wantEvents, trig.Events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeTriggerUnknownTiming(t *testing.T) {
	trig, warns := decodeTrigger("T", RawTrigger{Name: "TRG", TriggerType: "COMPOUND", TriggeringEvent: "INSERT"})
	if trig.Timing != TriggerTimingBefore {
		t.Errorf("timing = %q, want fallback BEFORE", trig.Timing)
	}
	if len(warns) != 1 || warns[0].Code != WarningMetadataInconsistency {
		t.Errorf("expected one metadata-inconsistency warning, got %v", warns)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"EMPLOYEES", `"EMPLOYEES"`},
		{"HR.EMPLOYEES", `"HR"."EMPLOYEES"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		if got := QuoteIdentifier(tt.in); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
