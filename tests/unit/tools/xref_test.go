package tools_test

import (
	"testing"

	"github.com/lookbusy1344/arm-emulator/tools"
)

func TestXRef_BasicProgram(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES, #10\n    call [subroutine]\n    halt\nsubroutine:\n    inc RRES\n    ret\n"

	gen := tools.NewXRefGenerator()
	symbols, err := gen.Generate(source, "test.oi")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if _, exists := symbols["start"]; !exists {
		t.Error("expected start symbol")
	}
	if _, exists := symbols["subroutine"]; !exists {
		t.Error("expected subroutine symbol")
	}

	if sub := symbols["subroutine"]; sub != nil {
		if !sub.IsFunction {
			t.Error("expected subroutine to be marked as a function")
		}
		if sub.Definition == nil {
			t.Error("expected subroutine to have a definition")
		}
		if len(sub.References) == 0 {
			t.Error("expected subroutine to have references")
		}
	}
}

func TestXRef_StandaloneLabel(t *testing.T) {
	source := ".entry start\nstart:\n    zero RRES\nloop:\n    inc RRES\n    j.lt RRES, RRES, [loop]\n    halt\n"

	gen := tools.NewXRefGenerator()
	symbols, err := gen.Generate(source, "test.oi")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	loop, exists := symbols["loop"]
	if !exists {
		t.Fatal("expected loop symbol")
	}
	if loop.Definition == nil {
		t.Error("expected loop to have a definition")
	}
	if len(loop.References) == 0 {
		t.Error("expected loop to have at least one reference")
	}
}

func TestXRef_MultipleStandaloneLabels(t *testing.T) {
	source := ".entry start\nstart:\n    zero RRES\nloop1:\n    inc RRES\n    j.lt RRES, RRES, [loop1]\nloop2:\n    dec RRES\n    j.gt RRES, RZERO, [loop2]\nend:\n    halt\n"

	gen := tools.NewXRefGenerator()
	symbols, err := gen.Generate(source, "test.oi")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	for _, name := range []string{"start", "loop1", "loop2", "end"} {
		sym, exists := symbols[name]
		if !exists {
			t.Errorf("expected symbol %s", name)
			continue
		}
		if sym.Definition == nil {
			t.Errorf("expected %s to have a definition", name)
		}
	}

	if loop1 := symbols["loop1"]; loop1 != nil && len(loop1.References) == 0 {
		t.Error("expected loop1 to have references")
	}
	if loop2 := symbols["loop2"]; loop2 != nil && len(loop2.References) == 0 {
		t.Error("expected loop2 to have references")
	}
}

func TestXRef_UndefinedSymbol(t *testing.T) {
	source := ".entry start\nstart:\n    jmp [undefined_label]\n"

	gen := tools.NewXRefGenerator()
	_, err := gen.Generate(source, "test.oi")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	undefined := gen.GetUndefinedSymbols()
	if len(undefined) != 1 {
		t.Fatalf("expected 1 undefined symbol, got %d", len(undefined))
	}
	if undefined[0].Name != "undefined_label" {
		t.Errorf("expected undefined_label, got %s", undefined[0].Name)
	}
}

func TestXRef_UnusedSymbol(t *testing.T) {
	source := ".entry start\nstart:\n    ldiw RRES, #10\n    halt\nunused:\n    ldiw RARG1, #20\n    halt\n"

	gen := tools.NewXRefGenerator()
	_, err := gen.Generate(source, "test.oi")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	unused := gen.GetUnusedSymbols()
	foundUnused := false
	for _, sym := range unused {
		if sym.Name == "unused" {
			foundUnused = true
		}
	}
	if !foundUnused {
		t.Error("expected unused symbol to be reported")
	}
}

func TestXRef_CallMarksFunction(t *testing.T) {
	source := ".entry start\nstart:\n    call [helper]\n    halt\nhelper:\n    ret\n"

	gen := tools.NewXRefGenerator()
	_, err := gen.Generate(source, "test.oi")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	functions := gen.GetFunctions()
	found := false
	for _, fn := range functions {
		if fn.Name == "helper" {
			found = true
		}
	}
	if !found {
		t.Error("expected helper to be reported as a function")
	}
}

func TestXRef_ConstantIsMarked(t *testing.T) {
	source := ".entry start\n.equ limit, 10\nstart:\n    ldiw RRES, #limit\n    halt\n"

	gen := tools.NewXRefGenerator()
	symbols, err := gen.Generate(source, "test.oi")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	limit, exists := symbols["limit"]
	if !exists {
		t.Fatal("expected limit symbol")
	}
	if !limit.IsConstant {
		t.Error("expected limit to be marked as a constant")
	}
	if limit.Value != 10 {
		t.Errorf("expected limit value 10, got %d", limit.Value)
	}
}

func TestGenerateXRef_ProducesReport(t *testing.T) {
	source := ".entry start\nstart:\n    call [helper]\n    halt\nhelper:\n    ret\n"

	report, err := tools.GenerateXRef(source, "test.oi")
	if err != nil {
		t.Fatalf("GenerateXRef error: %v", err)
	}

	if report == "" {
		t.Error("expected a non-empty report")
	}
}
