package parser

import "fmt"

// A handful of mnemonics are spelled the same across more than one OI
// opcode-length family (the instruction set reuses the mnemonic, not the
// opcode). classifyLength disambiguates those from the syntax alone -
// operand count, operand kind, or presence of a dot-suffix - never from a
// resolved value, so it can run during the single parsing pass and give
// every instruction a final byte length before any label address is needed
// downstream.
var oneByteLen = map[string]bool{
	"halt": true, "ret0": true, "ret0nf": true, "retnf": true,
	"push": true, "pop": true, "zero": true, "shl": true, "shr": true, "inv": true,
	"imulst": true, "shlimg": true, "shrimg": true, "subst": true,
	"addst": true, "idivst": true, "imgwid": true, "natwid": true, "andst": true,
}

var twoByteLen = map[string]bool{
	"mov": true, "cmov": true, "cmpst": true, "ldf": true, "stf": true,
	"ldib": true, "signex": true, "memf": true, "stadd": true, "moddiv": true,
	"syscall": true, "pushf": true, "stst": true, "addimgw": true, "subimgw": true,
	"swap": true, "addnatw": true, "subnatw": true,
	"stind": true, "ldind": true, "pushtwo": true, "poptwo": true, "mathst": true,
}

var widthImmLen = map[string]bool{
	"ldi": true, "jmp": true, "ldae": true,
}

var fourByteLen = map[string]bool{
	"j": true, "ji": true, "jrelb": true, "jrel": true, "callnf": true, "calld": true,
	"sto": true, "ldo": true, "ldoinc": true, "ldiw": true, "sti": true,
	"cmp": true, "fzero": true, "stoi": true, "stor": true, "ldor": true,
	"cstf": true, "ldinc": true,
}

// classifyLength returns an instruction's final encoded byte length. suffix
// is the mnemonic's dot-suffix (already split off by the caller), needed
// because `ld` with no suffix and `ld` with an explicit width suffix name
// two different opcode families (absolute image-width load vs pc-relative
// load at an arbitrary width).
func classifyLength(mnemonic string, suffix string, operands []Operand, imageWidth uint8) (uint64, error) {
	widthImmSize := uint64(imageWidth) + 1

	switch {
	case oneByteLen[mnemonic]:
		return 1, nil
	case twoByteLen[mnemonic]:
		return 2, nil
	case widthImmLen[mnemonic]:
		return widthImmSize, nil
	case fourByteLen[mnemonic]:
		return 4, nil
	}

	switch mnemonic {
	case "ret":
		// Plain `ret` (funct=6,reg=RZERO) takes no operands and is the
		// one-byte form; `ret #extra` pops extra stack slots and only
		// exists as the two-byte Group2Micro form.
		switch len(operands) {
		case 0:
			return 1, nil
		case 1:
			return 2, nil
		default:
			return 0, fmt.Errorf("ret: expected 0 or 1 operands, got %d", len(operands))
		}

	case "inc", "dec":
		if len(operands) == 1 && operands[0].Kind == OperandRegister {
			return 1, nil
		}
		if hasMemoryOperand(operands) {
			return widthImmSize, nil
		}
		return 0, fmt.Errorf("%s: expected a register or a memory operand", mnemonic)

	case "ld":
		// Plain `ld rdst, [addr]` is the absolute, always-image-width form
		// (Width3Ld). `ld.b/.h/.w/.dw rdst, [addr]` names an explicit access
		// width and is the pc-relative four-byte form (Misc0Ld).
		if suffix != "" {
			return 4, nil
		}
		return widthImmSize, nil

	case "st":
		return widthImmSize, nil

	case "call":
		// `call [addr]` (one operand) is the frame-establishing indirect
		// call through a function-pointer table (Call0Full, four bytes).
		// `call rindex, [addr]` (two operands) is the direct, width-imm
		// scaled call (Width3Call).
		switch len(operands) {
		case 1:
			if !hasMemoryOperand(operands) {
				return 0, fmt.Errorf("call: single-operand form requires a memory operand")
			}
			return 4, nil
		case 2:
			return widthImmSize, nil
		default:
			return 0, fmt.Errorf("call: expected 1 or 2 operands, got %d", len(operands))
		}

	case "stinc":
		if len(operands) != 2 {
			return 0, fmt.Errorf("stinc: expected 2 operands, got %d", len(operands))
		}
		switch operands[1].Kind {
		case OperandRegister:
			return 2, nil
		case OperandImmediate:
			return 4, nil
		default:
			return 0, fmt.Errorf("stinc: second operand must be a register or immediate")
		}

	case "math":
		switch len(operands) {
		case 2:
			return 2, nil
		case 3:
			return 4, nil
		default:
			return 0, fmt.Errorf("math: expected 2 or 3 operands, got %d", len(operands))
		}
	}

	return 0, fmt.Errorf("unrecognized mnemonic for length classification: %q", mnemonic)
}

func hasMemoryOperand(operands []Operand) bool {
	for _, op := range operands {
		if op.Kind == OperandMemory {
			return true
		}
	}
	return false
}
