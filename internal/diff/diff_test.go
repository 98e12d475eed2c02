package diff

import (
	"errors"
	"strings"
	"testing"

	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
)

func strptr(s string) *string { return &s }

func TestUnified_SingleLineChange(t *testing.T) {
	out, err := Unified(strptr("A"), strptr("B"), "summary", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "-A") || !strings.Contains(out, "+B") {
		t.Fatalf("expected -A/+B lines, got:\n%s", out)
	}
	if !strings.Contains(out, "--- summary") || !strings.Contains(out, "+++ summary") {
		t.Fatalf("expected both headers labeled with the field name, got:\n%s", out)
	}
}

func TestUnified_EqualInputsYieldEmptyDiff(t *testing.T) {
	out, err := Unified(strptr("same\ntext"), strptr("same\ntext"), "infobox", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty diff for equal inputs, got:\n%s", out)
	}
}

func TestUnified_NilAfterMeansNoChange(t *testing.T) {
	out, err := Unified(strptr("anything"), nil, "name", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty diff, got:\n%s", out)
	}
}

func TestUnified_NilBeforeIsDataIntegrityError(t *testing.T) {
	_, err := Unified(nil, strptr("proposed"), "name", 0)
	if !errors.Is(err, errs.ErrDataIntegrity) {
		t.Fatalf("expected ErrDataIntegrity, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("expected the field name in the error, got %v", err)
	}
}

func TestUnified_NoTrailingNewlineStillDiffsLastLine(t *testing.T) {
	out, err := Unified(strptr("line1\nline2"), strptr("line1\nline2 changed"), "summary", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "-line2\n") || !strings.Contains(out, "+line2 changed\n") {
		t.Fatalf("expected last line in hunk, got:\n%s", out)
	}
}

func TestUnified_ContextWidth(t *testing.T) {
	lines := make([]string, 0, 21)
	for i := 0; i < 21; i++ {
		lines = append(lines, "ctx")
	}
	before := strings.Join(lines, "\n")
	changed := append([]string{}, lines...)
	changed[10] = "mid"
	after := strings.Join(changed, "\n")

	narrow, err := Unified(strptr(before), strptr(after), "infobox", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wide, err := Unified(strptr(before), strptr(after), "infobox", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(narrow, "\n") >= strings.Count(wide, "\n") {
		t.Fatalf("expected wider context to produce more lines:\nnarrow:\n%s\nwide:\n%s", narrow, wide)
	}
}

func TestInline_SpansCoverBothSides(t *testing.T) {
	spans := Inline("the old value", "the new value")
	var sawDelete, sawInsert bool
	var left, right strings.Builder
	for _, s := range spans {
		switch s.Op {
		case OpDelete:
			sawDelete = true
			left.WriteString(s.Text)
		case OpInsert:
			sawInsert = true
			right.WriteString(s.Text)
		case OpEqual:
			left.WriteString(s.Text)
			right.WriteString(s.Text)
		}
	}
	if !sawDelete || !sawInsert {
		t.Fatalf("expected both delete and insert spans, got %+v", spans)
	}
	if left.String() != "the old value" || right.String() != "the new value" {
		t.Fatalf("spans do not reassemble inputs: %q / %q", left.String(), right.String())
	}
}
