package dump

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dmdump/dmdump/internal/compat"
	"github.com/dmdump/dmdump/internal/ir"
)

func rowTrigger(name, body string) *ir.Trigger {
	return &ir.Trigger{
		Name:    name,
		Table:   "ORDERS",
		Timing:  ir.TriggerTimingBefore,
		Events:  []string{"INSERT"},
		EachRow: true,
		Body:    body,
	}
}

func TestTriggersBuildsHeaderFromCatalogFields(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGrip)
	trig := &ir.Trigger{
		Name:    "TRG_AUDIT",
		Table:   "ORDERS",
		Timing:  ir.TriggerTimingAfter,
		Events:  []string{"INSERT", "UPDATE"},
		EachRow: true,
		Body:    "BEGIN\nNEW.UPDATED_AT := SYSDATE;\nEND;",
	}

	stmts, warns := g.Triggers([]*ir.Trigger{trig})
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	got := stmts[0]

	for _, fragment := range []string{
		`CREATE OR REPLACE TRIGGER "TGT"."TRG_AUDIT"`,
		`AFTER INSERT OR UPDATE ON "TGT"."ORDERS"`,
		"REFERENCING OLD AS OLD NEW AS NEW",
		"FOR EACH ROW",
		":NEW.UPDATED_AT := SYSDATE;",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("missing %q in:\n%s", fragment, got)
		}
	}
}

func TestTriggersUsesFullBodyWhenBodyContainsCreate(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGrip)
	body := "CREATE OR REPLACE TRIGGER T1\nBEFORE INSERT ON X\nBEGIN\nNULL;\nEND;"
	stmts, _ := g.Triggers([]*ir.Trigger{rowTrigger("T1", body)})

	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	if strings.Count(stmts[0], "CREATE OR REPLACE TRIGGER") != 1 {
		t.Errorf("header rebuilt over an existing CREATE TRIGGER body:\n%s", stmts[0])
	}
}

func TestTriggersPlacesWhenAfterForEachRow(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGrip)
	body := "WHEN (NEW.STATUS = 'PAID')\nBEGIN\nNULL;\nEND;"
	stmts, warns := g.Triggers([]*ir.Trigger{rowTrigger("TRG", body)})
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	got := stmts[0]

	forIdx := strings.Index(got, "FOR EACH ROW")
	whenIdx := strings.Index(got, "WHEN (:NEW.STATUS = 'PAID')")
	if forIdx < 0 || whenIdx < 0 || whenIdx < forIdx {
		t.Errorf("WHEN clause misplaced:\n%s", got)
	}
	if strings.Count(got, "WHEN") != 1 {
		t.Errorf("WHEN appears more than once:\n%s", got)
	}
}

func TestTriggersSkipsWhenForStatementLevelTrigger(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGrip)
	trig := rowTrigger("TRG", "WHEN (NEW.A = 1)\nBEGIN\nNULL;\nEND;")
	trig.EachRow = false

	stmts, _ := g.Triggers([]*ir.Trigger{trig})
	got := stmts[0]
	if strings.Contains(got, "FOR EACH ROW") {
		t.Errorf("statement-level trigger rendered FOR EACH ROW:\n%s", got)
	}
	// Statement-level triggers cannot carry WHEN; the line stays in the
	// body untouched.
	if !strings.Contains(got, "WHEN (") {
		t.Errorf("body WHEN line lost:\n%s", got)
	}
}

func TestTriggersUnbalancedWhenFallsBack(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGrip)
	body := "WHEN (NEW.A = 1 AND (NEW.B = 2)\nBEGIN\nNULL;\nEND;"
	stmts, warns := g.Triggers([]*ir.Trigger{rowTrigger("TRG", body)})

	if len(warns) != 1 || warns[0].Code != ir.WarningTriggerParse {
		t.Fatalf("expected one trigger-parse warning, got %v", warns)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
}

func TestTriggersDataGripHasNoSlashTerminator(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGrip)
	stmts, _ := g.Triggers([]*ir.Trigger{rowTrigger("TRG", "BEGIN\nNULL;\nEND;")})
	for _, line := range strings.Split(stmts[0], "\n") {
		if strings.TrimSpace(line) == "/" {
			t.Errorf("datagrip mode emitted a / separator:\n%s", stmts[0])
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(stmts[0]), ";") {
		t.Errorf("statement does not end with a semicolon:\n%s", stmts[0])
	}
}

func TestTriggersScriptAddsSlashTerminator(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeScript)
	stmts, _ := g.Triggers([]*ir.Trigger{
		rowTrigger("TRG1", "BEGIN\nNULL;\nEND;"),
		rowTrigger("TRG2", "BEGIN\nNULL;\nEND;"),
	})

	for _, stmt := range stmts {
		count := 0
		for _, line := range strings.Split(stmt, "\n") {
			if strings.TrimSpace(line) == "/" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("expected exactly one / line, got %d in:\n%s", count, stmt)
		}
	}
}

func TestTriggersDataGripScriptUsesScriptShape(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGripScript)
	stmts, _ := g.Triggers([]*ir.Trigger{rowTrigger("TRG", "BEGIN\nNULL;\nEND;")})
	if !strings.HasSuffix(strings.TrimSpace(stmts[0]), "/") {
		t.Errorf("datagrip-script trigger lacks the / terminator:\n%s", stmts[0])
	}
}

func TestTriggersHandlesDeclareBlock(t *testing.T) {
	g := NewGenerator("TGT", compat.ModeDataGrip)
	body := "DECLARE\nv_count INT;\nBEGIN\nSELECT COUNT(*) INTO v_count FROM DUAL;\nEND;"
	stmts, _ := g.Triggers([]*ir.Trigger{rowTrigger("TRG", body)})
	got := stmts[0]

	if strings.Contains(got, "BEGIN\nDECLARE") {
		t.Errorf("DECLARE block was wrapped in an extra BEGIN:\n%s", got)
	}
}

func TestNormalizeTriggerBodyAddsMissingSemicolons(t *testing.T) {
	body := "BEGIN\nUPDATE T SET A = 1 WHERE ID = :NEW.ID\nEND"
	got := normalizeTriggerBody(body)
	want := "BEGIN\nUPDATE T SET A = 1 WHERE ID = :NEW.ID;\nEND;"
	if got != want {
		t.Errorf("normalizeTriggerBody = %q, want %q", got, want)
	}
}

func TestNormalizeTriggerBodyHandlesMultilineSelect(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN",
		"SELECT MAX(ID)",
		"INTO v_id",
		"FROM ORDERS",
		"END",
	}, "\n")
	got := normalizeTriggerBody(body)

	if strings.Contains(got, "SELECT MAX(ID);") {
		t.Errorf("semicolon inserted mid statement:\n%s", got)
	}
	if !strings.Contains(got, "FROM ORDERS;") {
		t.Errorf("last line of SELECT INTO not terminated:\n%s", got)
	}
}

func TestNormalizeTriggerRefs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare new", "NEW.ID", ":NEW.ID"},
		{"bare old lowercase", "old.id", ":OLD.id"},
		{"already prefixed", ":NEW.ID", ":NEW.ID"},
		{"embedded in identifier", "RENEW.ID", "RENEW.ID"},
		{"mid expression", "SET A = NEW.A + OLD.B", "SET A = :NEW.A + :OLD.B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeTriggerRefs(tt.in); got != tt.want {
				t.Errorf("normalizeTriggerRefs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractWhenClause(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantWhen string
	}{
		{
			name:     "simple",
			body:     "WHEN (NEW.A = 1)\nBEGIN\nNULL;\nEND;",
			wantWhen: "NEW.A = 1",
		},
		{
			name:     "nested parentheses",
			body:     "WHEN (NVL(NEW.A, 0) > (1 + 2))\nBEGIN\nNULL;\nEND;",
			wantWhen: "NVL(NEW.A, 0) > (1 + 2)",
		},
		{
			name:     "multi line",
			body:     "WHEN (NEW.A = 1\nAND NEW.B = 2)\nBEGIN\nNULL;\nEND;",
			wantWhen: "NEW.A = 1 AND NEW.B = 2",
		},
		{
			name:     "paren inside literal",
			body:     "WHEN (NEW.NOTE = ':-)')\nBEGIN\nNULL;\nEND;",
			wantWhen: "NEW.NOTE = ':-)'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			when, rest, balanced := extractWhenClause(tt.body)
			if !balanced {
				t.Fatalf("clause reported unbalanced")
			}
			if when != tt.wantWhen {
				t.Errorf("when = %q, want %q", when, tt.wantWhen)
			}
			if strings.Contains(strings.ToUpper(rest), "WHEN (") {
				t.Errorf("WHEN line still present in body: %q", rest)
			}
		})
	}
}

// Any balanced parenthesized condition must come back intact and be
// removed from the body exactly once.
func TestExtractWhenClauseProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	condition := gen.RegexMatch(`[A-Z0-9 =<>.+']{0,40}`)

	properties.Property("balanced condition round-trips", prop.ForAll(
		func(cond string, depth uint8) bool {
			// Quotes must pair up or the literal scanner legitimately
			// disagrees with naive nesting.
			if strings.Count(cond, "'")%2 != 0 {
				cond = strings.ReplaceAll(cond, "'", "")
			}
			wrapped := cond
			for i := 0; i < int(depth%3); i++ {
				wrapped = "(" + wrapped + ")"
			}
			body := "WHEN (" + wrapped + ")\nBEGIN\nNULL;\nEND;"

			when, rest, balanced := extractWhenClause(body)
			if !balanced {
				return false
			}
			if when != strings.TrimSpace(wrapped) {
				return false
			}
			return !strings.Contains(rest, "WHEN (")
		},
		condition,
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
