package encoder

import (
	"fmt"

	"github.com/lookbusy1344/arm-emulator/loader"
	"github.com/lookbusy1344/arm-emulator/parser"
)

// Assemble parses source (no .include/.ifdef preprocessing) and encodes it
// into a complete OI image: a 40-byte header (loader.BuildImage) followed by
// the concatenated bytes of every instruction and data directive in source
// order. Labels, .entry, .stack and .ramrequired are resolved against the
// parsed program's symbol table before any byte is emitted, so a forward
// reference to a later label assembles exactly like a backward one.
func Assemble(source, filename string) ([]byte, *parser.Program, error) {
	p := parser.NewParser(source, filename)
	prog, err := p.Parse()
	if err != nil {
		return nil, prog, err
	}
	return buildImageFromProgram(prog)
}

// AssembleFile reads path with the preprocessor enabled (.include, .ifdef,
// ...) and assembles the result, the entry point main.go should use.
func AssembleFile(path string, opts parser.ParseFileOptions) ([]byte, *parser.Program, error) {
	prog, _, err := parser.ParseFile(path, opts)
	if err != nil {
		return nil, prog, err
	}
	return buildImageFromProgram(prog)
}

func buildImageFromProgram(prog *parser.Program) ([]byte, *parser.Program, error) {
	body, err := EncodeProgram(prog)
	if err != nil {
		return nil, prog, err
	}

	entryPC, err := resolveEntryPC(prog)
	if err != nil {
		return nil, prog, err
	}

	image, err := loader.BuildImage(prog.ImageWidth, body, nil, 0, uint32(prog.StackSize), uint32(prog.RamRequired), entryPC)
	if err != nil {
		return nil, prog, err
	}
	return image, prog, nil
}

// EncodeProgram walks a parsed program in source order and returns the
// concatenated bytes of every instruction and data directive. Every item's
// Address already matches its offset into the returned slice, since the
// parser assigned addresses and lengths in the same single pass.
func EncodeProgram(prog *parser.Program) ([]byte, error) {
	enc := NewEncoder(prog.SymbolTable, prog.ImageWidth)

	var body []byte
	for _, item := range prog.Items {
		switch {
		case item.Instruction != nil:
			b, err := enc.EncodeInstruction(item.Instruction)
			if err != nil {
				return nil, err
			}
			body = append(body, b...)
		case item.Directive != nil:
			b, err := parser.EncodeDirective(item.Directive, prog.ImageWidth, prog.SymbolTable)
			if err != nil {
				return nil, err
			}
			body = append(body, b...)
		}
	}
	return body, nil
}

// resolveEntryPC returns the program's entry address: the `.entry` label if
// set, else the `.org` origin if set, else zero.
func resolveEntryPC(prog *parser.Program) (uint64, error) {
	if prog.EntryLabel != "" {
		addr, err := prog.SymbolTable.Get(prog.EntryLabel)
		if err != nil {
			return 0, fmt.Errorf(".entry: %w", err)
		}
		return addr, nil
	}
	if prog.OriginSet {
		return prog.Origin, nil
	}
	return 0, nil
}
