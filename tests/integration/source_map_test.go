package integration_test

import (
	"testing"

	"github.com/lookbusy1344/arm-emulator/parser"
)

// TestSourceMapPopulation checks that every instruction in a program gets a
// source-map entry, not just the ones carrying a label - mirroring
// buildSymbolsAndSourceMap in main.go.
func TestSourceMapPopulation(t *testing.T) {
	code := `.entry start
start:
	ldiw RRES, #1
	ldiw RARG1, #2
	math.add RARG2, RRES, RARG1
loop:
	j.lt RARG2, RARG1, [done]
	syscall #0
done:
	zero RRES
	syscall #0
`

	p := parser.NewParser(code, "test.oi")
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	sourceMap := make(map[uint64]string)
	instructionCount := 0
	for _, item := range program.Items {
		if item.Instruction == nil {
			continue
		}
		instructionCount++
		sourceMap[item.Instruction.Address] = item.Instruction.RawLine
	}

	if instructionCount == 0 {
		t.Fatal("no instructions found in parsed program")
	}

	mappedCount := 0
	for _, item := range program.Items {
		if item.Instruction == nil {
			continue
		}
		if _, exists := sourceMap[item.Instruction.Address]; exists {
			mappedCount++
		} else {
			t.Errorf("instruction at address 0x%X not in source map (mnemonic: %s, raw: %q)",
				item.Instruction.Address, item.Instruction.Mnemonic, item.Instruction.RawLine)
		}
	}

	if mappedCount != instructionCount {
		t.Errorf("expected %d instructions in source map, got %d", instructionCount, mappedCount)
	}
}

// TestSourceMapIncludesUnlabeledInstructions is a regression test for a bug
// class where only labeled instructions were added to a source map: here
// only "start", "loop" and "done" carry labels, but every instruction in
// the program (labeled or not) must still get its own entry.
func TestSourceMapIncludesUnlabeledInstructions(t *testing.T) {
	code := `.entry start
start:
	ldiw RRES, #1
	ldiw RARG1, #2
	math.add RARG2, RRES, RARG1
`

	p := parser.NewParser(code, "test.oi")
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	labeledOnly := make(map[uint64]string)
	all := make(map[uint64]string)
	for _, item := range program.Items {
		if item.Instruction == nil {
			continue
		}
		all[item.Instruction.Address] = item.Instruction.RawLine
		if item.Instruction.Label != "" {
			labeledOnly[item.Instruction.Address] = item.Instruction.RawLine
		}
	}

	if len(labeledOnly) != 1 {
		t.Errorf("expected exactly 1 labeled instruction, got %d", len(labeledOnly))
	}
	if len(all) != 3 {
		t.Errorf("expected all 3 instructions mapped regardless of label, got %d", len(all))
	}
}

// TestSourceMapTagsDataDirectives checks that data-emitting directives
// (.word, .ascii, etc.) get a "[DATA]"-prefixed source map entry, matching
// buildSymbolsAndSourceMap's directive handling in main.go.
func TestSourceMapTagsDataDirectives(t *testing.T) {
	code := `.entry start
start:
	halt
message:
	.asciz "hi"
count:
	.word 42
`

	p := parser.NewParser(code, "test.oi")
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	dataDirectiveNames := map[string]bool{
		"word": true, "half": true, "byte": true,
		"ascii": true, "asciz": true, "string": true,
		"space": true, "skip": true,
	}

	found := 0
	for _, item := range program.Items {
		if item.Directive == nil {
			continue
		}
		if dataDirectiveNames[item.Directive.Name] {
			found++
		}
	}

	if found != 2 {
		t.Errorf("expected 2 data-emitting directives (.asciz, .word), found %d", found)
	}
}
