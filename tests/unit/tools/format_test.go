package tools_test

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/arm-emulator/tools"
)

func TestFormat_BasicInstruction(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES,#10\n    halt\n"

	formatter := tools.NewFormatter(tools.DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "ldiw") {
		t.Error("expected ldiw instruction in output")
	}
	if !strings.Contains(result, "RRES, #10") {
		t.Errorf("expected operand formatting with RRES, #10, got: %s", result)
	}
}

func TestFormat_WithLabel(t *testing.T) {
	source := ".entry loop\nloop: ldiw RRES,#10\n halt\n"

	formatter := tools.NewFormatter(tools.DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "loop:") {
		t.Error("expected label with colon")
	}
}

func TestFormat_WithComment(t *testing.T) {
	source := ".entry start\nstart: ldiw RRES, #10 ; load ten\n halt\n"

	formatter := tools.NewFormatter(tools.DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "load ten") {
		t.Error("expected comment text in output")
	}
	if !strings.Contains(result, ";") {
		t.Error("expected semicolon for comment")
	}
}

func TestFormat_CompactStyleHasNoTabs(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES, #10\n    halt\n"

	formatter := tools.NewFormatter(tools.CompactFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if strings.Contains(result, "\t") {
		t.Errorf("compact style should not use tab padding, got: %q", result)
	}
}

func TestFormat_ExpandedStyleWidensColumns(t *testing.T) {
	compact, err := tools.FormatStringWithStyle(".entry start\nstart:\n    ldiw RRES,#10\n    halt\n", "test.oi", tools.FormatCompact)
	if err != nil {
		t.Fatalf("FormatStringWithStyle(compact) error: %v", err)
	}
	expanded, err := tools.FormatStringWithStyle(".entry start\nstart:\n    ldiw RRES,#10\n    halt\n", "test.oi", tools.FormatExpanded)
	if err != nil {
		t.Fatalf("FormatStringWithStyle(expanded) error: %v", err)
	}

	if len(expanded) < len(compact) {
		t.Errorf("expanded formatting should not be shorter than compact, compact=%q expanded=%q", compact, expanded)
	}
}

func TestFormat_RoundTripsThroughLinterCleanly(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES, #10\n    halt\n"

	formatted, err := tools.FormatString(source, "test.oi")
	if err != nil {
		t.Fatalf("FormatString error: %v", err)
	}

	linter := tools.NewLinter(tools.DefaultLintOptions())
	issues := linter.Lint(formatted, "test.oi")
	for _, issue := range issues {
		if issue.Level == tools.LintError {
			t.Errorf("reformatted output introduced a lint error: %s", issue.Message)
		}
	}
}
