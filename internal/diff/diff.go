package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
)

// DefaultContext is the unified-diff context window used when a field
// descriptor does not ask for a wider one.
const DefaultContext = 3

// Unified renders a line-oriented unified diff between a field's
// captured original and its proposed (or edited) value, both sides
// labeled with the field name.
//
// A nil after means no change exists for the field and yields an empty
// diff. A set after with a nil before cannot occur through the create
// path; observing one means a corrupted record, reported as
// ErrDataIntegrity. Equal inputs yield an empty diff.
func Unified(before, after *string, label string, contextLines int) (string, error) {
	if after == nil {
		return "", nil
	}
	if before == nil {
		return "", fmt.Errorf("%w: field %q has a proposed value but no captured original", errs.ErrDataIntegrity, label)
	}
	if contextLines <= 0 {
		contextLines = DefaultContext
	}
	// SplitLines newline-terminates the last line, so values stored
	// without a trailing newline still diff their final line correctly.
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(*before),
		B:        difflib.SplitLines(*after),
		FromFile: label,
		ToFile:   label,
		Context:  contextLines,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Op classifies an inline span.
type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

// Span is one run of an inline character diff.
type Span struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// Inline computes character-level spans between two single-line
// values, for in-place change highlighting of short fields.
func Inline(before, after string) []Span {
	d := diffpatch.New()
	diffs := d.DiffMain(before, after, false)
	diffs = d.DiffCleanupSemantic(diffs)
	out := make([]Span, 0, len(diffs))
	for _, df := range diffs {
		var op Op
		switch df.Type {
		case diffpatch.DiffDelete:
			op = OpDelete
		case diffpatch.DiffInsert:
			op = OpInsert
		default:
			op = OpEqual
		}
		out = append(out, Span{Op: op, Text: df.Text})
	}
	return out
}
