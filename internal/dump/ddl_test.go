package dump

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dmdump/dmdump/internal/compat"
	"github.com/dmdump/dmdump/internal/ir"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }
func strp(v string) *string { return &v }

func baseTable(name string, indexes []*ir.Index) *ir.Table {
	return &ir.Table{
		Schema:     "SRC",
		Name:       name,
		PrimaryKey: []string{"ID"},
		Columns: []*ir.Column{
			{Name: "ID", DataType: "BIGINT"},
		},
		Indexes: indexes,
	}
}

func TestCreateTableRendersColumnsAndComments(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := &ir.Table{
		Schema:  "SRC",
		Name:    "ACCOUNTS",
		Comment: "customer accounts",
		Columns: []*ir.Column{
			{Name: "ID", DataType: "BIGINT", Identity: &ir.IdentitySpec{Seed: 1, Increment: 1}},
			{Name: "NAME", DataType: "VARCHAR", Length: intp(100), CharSemantics: ir.CharSemanticsChar, Nullable: true, Comment: "display name"},
			{Name: "STATUS", DataType: "VARCHAR", Length: intp(10), DefaultValue: strp("'ACTIVE'")},
		},
	}

	want := strings.Join([]string{
		`CREATE TABLE "TGT"."ACCOUNTS" (`,
		`    "ID" BIGINT IDENTITY(1, 1) NOT NULL,`,
		`    "NAME" VARCHAR(100 CHAR) NULL,`,
		`    "STATUS" VARCHAR(10) DEFAULT 'ACTIVE' NOT NULL`,
		`);`,
		`COMMENT ON TABLE "TGT"."ACCOUNTS" IS 'customer accounts';`,
		`COMMENT ON COLUMN "TGT"."ACCOUNTS"."NAME" IS 'display name';`,
	}, "\n")

	if diff := cmp.Diff(want, gen.CreateTable(table)); diff != "" {
		t.Errorf("CreateTable mismatch (-want +got):\n%s", diff)
	}
}

func TestColumnDefinitionIdentityWinsOverDefault(t *testing.T) {
	col := &ir.Column{
		Name:         "ID",
		DataType:     "BIGINT",
		DefaultValue: strp("0"),
		Identity:     &ir.IdentitySpec{Seed: 10, Increment: 2},
	}
	got := columnDefinition(col)
	if !strings.Contains(got, "IDENTITY(10, 2)") {
		t.Errorf("missing identity clause: %s", got)
	}
	if strings.Contains(got, "DEFAULT") {
		t.Errorf("identity column rendered a DEFAULT clause: %s", got)
	}
}

func TestPrimaryKey(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := baseTable("ORDERS", nil)
	table.PrimaryKey = []string{"ID", "SEQ"}

	want := `ALTER TABLE "TGT"."ORDERS" ADD CONSTRAINT "PK_ORDERS" PRIMARY KEY ("ID", "SEQ");`
	if got := gen.PrimaryKey(table); got != want {
		t.Errorf("PrimaryKey = %s, want %s", got, want)
	}

	table.PrimaryKey = nil
	if got := gen.PrimaryKey(table); got != "" {
		t.Errorf("PrimaryKey on keyless table = %q, want empty", got)
	}
}

func TestIndexesSkipsPrimaryKeyColumnSet(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := baseTable("T", []*ir.Index{
		{Name: "INDEX33555463", Columns: []string{"ID"}},
		{Name: "IDX_T_NAME", Columns: []string{"NAME"}},
	})

	stmts, warns := gen.Indexes(table)
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], `"IDX_T_NAME"`) {
		t.Errorf("expected only the non-PK index, got %v", stmts)
	}
}

func TestIndexesSkipsUniqueConstraintColumnSet(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := baseTable("T", []*ir.Index{
		{Name: "IDX_EMAIL", Columns: []string{"EMAIL"}, Unique: true},
	})
	table.UniqueConstraints = []*ir.UniqueConstraint{
		{Name: "UQ_EMAIL", Columns: []string{"EMAIL"}},
	}

	stmts, _ := gen.Indexes(table)
	if len(stmts) != 0 {
		t.Errorf("expected index matching unique constraint to be suppressed, got %v", stmts)
	}
}

func TestIndexesSkipsDuplicateColumnList(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := baseTable("T", []*ir.Index{
		{Name: "IDX_A", Columns: []string{"A", "B"}},
		{Name: "IDX_B", Columns: []string{"a", "b"}},
		{Name: "IDX_C", Columns: []string{"B", "A"}},
	})

	stmts, _ := gen.Indexes(table)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements (duplicate ordered list dropped), got %v", stmts)
	}
	if !strings.Contains(stmts[0], `"IDX_A"`) || !strings.Contains(stmts[1], `"IDX_C"`) {
		t.Errorf("unexpected surviving indexes: %v", stmts)
	}
}

func TestIndexesDoesNotQualifyIndexName(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := baseTable("T", []*ir.Index{
		{Name: "IDX_NAME", Columns: []string{"NAME"}},
	})

	stmts, _ := gen.Indexes(table)
	want := `CREATE INDEX "IDX_NAME" ON "TGT"."T" ("NAME");`
	if len(stmts) != 1 || stmts[0] != want {
		t.Errorf("Indexes = %v, want [%s]", stmts, want)
	}
}

func TestIndexesRenamesAutoGeneratedNames(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := baseTable("ORDERS", []*ir.Index{
		{Name: "INDEX33555463", Columns: []string{"CUSTOMER_ID", "CREATED_AT"}},
	})

	stmts, warns := gen.Indexes(table)
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], `"IDX_ORDERS_CUSTOMER_ID_CREATED_AT"`) {
		t.Errorf("auto-generated name not rewritten: %v", stmts)
	}
}

func TestIndexesTruncatesLongNamesWithWarning(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	long := strings.Repeat("C", 140)
	table := baseTable("T", []*ir.Index{
		{Name: "INDEX1", Columns: []string{long, "A"}},
		{Name: "INDEX2", Columns: []string{long, "B"}},
	})

	stmts, warns := gen.Indexes(table)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if len(warns) != 2 {
		t.Fatalf("expected 2 identifier warnings, got %v", warns)
	}
	for _, warn := range warns {
		if warn.Code != ir.WarningIdentifierTooLong {
			t.Errorf("warning code = %s, want %s", warn.Code, ir.WarningIdentifierTooLong)
		}
	}

	name1 := between(t, stmts[0], `CREATE INDEX "`, `" ON`)
	name2 := between(t, stmts[1], `CREATE INDEX "`, `" ON`)
	if len(name1) > maxIdentifierLength || len(name2) > maxIdentifierLength {
		t.Errorf("truncated names exceed the limit: %q %q", name1, name2)
	}
	if name1 == name2 {
		t.Errorf("truncation collision not resolved: both indexes named %q", name1)
	}
	if !strings.HasSuffix(name2, "_2") {
		t.Errorf("second name lacks the collision suffix: %q", name2)
	}
}

func between(t *testing.T, s, start, end string) string {
	t.Helper()
	i := strings.Index(s, start)
	if i < 0 {
		t.Fatalf("missing %q in %q", start, s)
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		t.Fatalf("missing %q in %q", end, s)
	}
	return rest[:j]
}

func TestForeignKeysOmitsNoActionRule(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	table := baseTable("ORDERS", nil)
	table.ForeignKeys = []*ir.ForeignKey{
		{
			Name:              "FK_CUSTOMER",
			Columns:           []string{"CUSTOMER_ID"},
			ReferencedTable:   "CUSTOMERS",
			ReferencedColumns: []string{"ID"},
			DeleteRule:        "CASCADE",
			UpdateRule:        "NO ACTION",
		},
	}

	stmts := gen.ForeignKeys(table)
	want := `ALTER TABLE "TGT"."ORDERS" ADD CONSTRAINT "FK_CUSTOMER" FOREIGN KEY ("CUSTOMER_ID") REFERENCES "TGT"."CUSTOMERS" ("ID") ON DELETE CASCADE;`
	if len(stmts) != 1 || stmts[0] != want {
		t.Errorf("ForeignKeys = %v, want [%s]", stmts, want)
	}
}

func TestSequences(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	seqs := []*ir.Sequence{
		{
			Name:        "SEQ_ORDERS",
			StartWith:   int64p(500),
			MinValue:    int64p(1),
			MaxValue:    int64p(999999),
			IncrementBy: 1,
			CacheSize:   int64p(20),
			Cycle:       false,
			Order:       true,
		},
		{
			Name:        "SEQ_PLAIN",
			IncrementBy: 2,
		},
	}

	want := []string{
		`CREATE SEQUENCE "TGT"."SEQ_ORDERS" START WITH 500 MINVALUE 1 MAXVALUE 999999 INCREMENT BY 1 CACHE 20 NOCYCLE ORDER;`,
		`CREATE SEQUENCE "TGT"."SEQ_PLAIN" INCREMENT BY 2 NOCACHE NOCYCLE NOORDER;`,
	}
	if diff := cmp.Diff(want, gen.Sequences(seqs)); diff != "" {
		t.Errorf("Sequences mismatch (-want +got):\n%s", diff)
	}
}

func TestDropTable(t *testing.T) {
	gen := NewGenerator("TGT", compat.ModeDataGrip)
	want := `DROP TABLE IF EXISTS "TGT"."T";`
	if got := gen.DropTable(baseTable("T", nil)); got != want {
		t.Errorf("DropTable = %s, want %s", got, want)
	}
}
