package tools

import (
	"strings"
	"testing"
)

func TestFormat_BasicInstruction(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES,#10\n    halt\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "ldiw") {
		t.Errorf("expected ldiw instruction in output, got: %s", result)
	}
	if !strings.Contains(result, "RRES, #10") {
		t.Errorf("expected operand formatting with RRES, #10, got: %s", result)
	}
}

func TestFormat_WithLabel(t *testing.T) {
	source := ".entry loop\nloop: ldiw RRES,#10\n halt\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "loop:") {
		t.Error("expected label with colon")
	}

	lines := strings.Split(strings.TrimSpace(result), "\n")
	found := false
	for _, line := range lines {
		if strings.HasPrefix(line, "loop:") {
			found = true
		}
	}
	if !found {
		t.Error("expected a line to start with the label")
	}
}

func TestFormat_WithComment(t *testing.T) {
	source := ".entry start\nstart: ldiw RRES, #10 ; load ten\n halt\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "; load ten") {
		t.Errorf("expected trailing comment to be preserved, got: %s", result)
	}
}

func TestFormat_Directive(t *testing.T) {
	source := ".entry start\n.width 4\n.stack 256\nstart: halt\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, ".width") || !strings.Contains(result, "4") {
		t.Errorf("expected .width directive with argument preserved, got: %s", result)
	}
	if !strings.Contains(result, ".stack") || !strings.Contains(result, "256") {
		t.Errorf("expected .stack directive with argument preserved, got: %s", result)
	}
}

func TestFormat_MemoryOperand(t *testing.T) {
	source := ".entry start\nstart:\n    call [callee]\n    halt\ncallee:\n    ret\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "[callee]") {
		t.Errorf("expected bracketed memory operand [callee], got: %s", result)
	}
}

func TestFormat_CompactStyle(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES,#10 ; comment\n    halt\n"

	formatter := NewFormatter(CompactFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if strings.Contains(result, "\t") {
		t.Errorf("compact style should not use tab padding, got: %q", result)
	}
}

func TestFormat_SuffixPreserved(t *testing.T) {
	source := ".entry start\nstart:\n    zero RRES\n    inc RRES\n    j.lt RRES, RRES, [start]\n    halt\n"

	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.oi")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, "j.lt") {
		t.Errorf("expected mnemonic.suffix form j.lt preserved, got: %s", result)
	}
}

func TestFormat_InvalidSourceReturnsError(t *testing.T) {
	source := ".entry start\nstart:\n    notanopcode RRES\n"

	formatter := NewFormatter(DefaultFormatOptions())
	if _, err := formatter.Format(source, "test.oi"); err == nil {
		t.Error("expected an error for an unrecognized mnemonic")
	}
}

func TestFormatString_UsesDefaultOptions(t *testing.T) {
	source := ".entry start\nstart: halt\n"

	result, err := FormatString(source, "test.oi")
	if err != nil {
		t.Fatalf("FormatString error: %v", err)
	}
	if !strings.Contains(result, "halt") {
		t.Errorf("expected halt in output, got: %s", result)
	}
}

func TestFormatStringWithStyle_Compact(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES,#1\n    halt\n"

	result, err := FormatStringWithStyle(source, "test.oi", FormatCompact)
	if err != nil {
		t.Fatalf("FormatStringWithStyle error: %v", err)
	}
	if strings.Contains(result, "\t") {
		t.Errorf("compact style should not use tabs, got: %q", result)
	}
}
