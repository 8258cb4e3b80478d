package encoder

import (
	"fmt"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

func (e *Encoder) encodeFourByte(inst *parser.Instruction) ([]byte, error) {
	switch inst.Mnemonic {
	case "j":
		return e.encodeBranch4(inst, vm.Branch0J, 3)
	case "ji":
		return e.encodeBranch4(inst, vm.Branch1Ji, 3)
	case "jrelb":
		return e.encodeBranch4(inst, vm.Branch2Jrelb, 4)
	case "jrel":
		return e.encodeBranch4(inst, vm.Branch3Jrel, 4)
	case "call":
		return e.encodeCall4(inst, vm.Call0Full)
	case "callnf":
		return e.encodeCall4(inst, vm.Call1NoFrame)
	case "calld":
		return e.encodeCalld(inst)
	case "stinc":
		return e.encodeStinc4(inst)
	case "ldinc":
		return e.encodeLdinc(inst)
	case "sto":
		return e.encodeSto(inst)
	case "ldo":
		return e.encodeLdo(inst, vm.Ldo0Plain)
	case "ldoinc":
		return e.encodeLdo(inst, vm.Ldo1Inc)
	case "ldiw":
		return e.encodeLdiw(inst)
	case "ld":
		return e.encodeFourByteLd(inst)
	case "sti":
		return e.encodeSti(inst)
	case "math":
		return e.encodeMath4(inst)
	case "cmp":
		return e.encodeCmp4(inst)
	case "fzero":
		return e.encodeFzero(inst)
	case "stoi":
		return e.encodeStoi(inst)
	case "stor":
		return e.encodeStor(inst)
	case "ldor":
		return e.encodeLdor(inst)
	case "cstf":
		return e.encodeCstf(inst)
	}
	return nil, fmt.Errorf("unrecognized four-byte mnemonic: %q", inst.Mnemonic)
}

// targetDisplacement resolves a bare/memory operand naming a branch or
// pc-relative target into its signed 16-bit displacement from inst.
func (e *Encoder) targetDisplacement(inst *parser.Instruction, op *parser.Operand) (int64, error) {
	addr, err := e.resolveOperandValue(op)
	if err != nil {
		return 0, err
	}
	return pcRelativeDisplacement16(inst.Address, addr)
}

// encodeBranch4 encodes j/ji/jrelb/jrel. variant selects the addressing
// mode (carried in op1's width field); numOperands is 3 for j/ji and 4 for
// jrelb/jrel, which also carry an explicit byte offset.
func (e *Encoder) encodeBranch4(inst *parser.Instruction, variant uint8, numOperands int) ([]byte, error) {
	if err := wantOperands(inst, numOperands); err != nil {
		return nil, err
	}
	rel, err := relationSuffix(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rleft, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}

	switch variant {
	case vm.Branch0J:
		rright, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
		if err != nil {
			return nil, err
		}
		disp, err := e.targetDisplacement(inst, &inst.Operands[2])
		if err != nil {
			return nil, err
		}
		op0 := fourByteOp(vm.Four0Branch, rleft)
		op1 := byteSub(rel, rright, variant)
		return append([]byte{op0, op1}, signed16Bytes(disp)...), nil

	case vm.Branch1Ji:
		imm, err := smallImmediate(inst.Mnemonic, &inst.Operands[1], 3)
		if err != nil {
			return nil, err
		}
		disp, err := e.targetDisplacement(inst, &inst.Operands[2])
		if err != nil {
			return nil, err
		}
		op0 := fourByteOp(vm.Four0Branch, rleft)
		op1 := byteSub(rel, imm, variant)
		return append([]byte{op0, op1}, signed16Bytes(disp)...), nil

	default: // Branch2Jrelb, Branch3Jrel
		rright, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
		if err != nil {
			return nil, err
		}
		byteOff, err := smallImmediate(inst.Mnemonic, &inst.Operands[2], 8)
		if err != nil {
			return nil, err
		}
		targetAddr, err := e.resolveOperandValue(&inst.Operands[3])
		if err != nil {
			return nil, err
		}
		disp := int64(targetAddr) - int64(inst.Address)
		if disp < -128 || disp > 127 {
			return nil, fmt.Errorf("%s: branch displacement %d out of 8-bit signed range", inst.Mnemonic, disp)
		}
		op0 := fourByteOp(vm.Four0Branch, rleft)
		op1 := byteSub(rel, rright, variant)
		return []byte{op0, op1, byteOff, byte(int8(disp))}, nil
	}
}

// encodeCall4 encodes the indirect call forms (call, callnf), which take a
// memory target and an optional leading index register.
func (e *Encoder) encodeCall4(inst *parser.Instruction, funct uint8) ([]byte, error) {
	if len(inst.Operands) != 1 && len(inst.Operands) != 2 {
		return nil, fmt.Errorf("%s: expected 1 or 2 operands, got %d", inst.Mnemonic, len(inst.Operands))
	}
	idx := uint8(vm.RZERO)
	if len(inst.Operands) == 2 {
		r, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
		if err != nil {
			return nil, err
		}
		idx = r
	}
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	disp, err := e.targetDisplacement(inst, mem)
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four3Call, idx)
	op1 := byteSub(funct, 0, 0)
	return append([]byte{op0, op1}, signed16Bytes(disp)...), nil
}

func (e *Encoder) encodeCalld(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	idx, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	disp, err := e.targetDisplacement(inst, mem)
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four3Call, idx)
	op1 := byteSub(vm.Call2Direct, 0, 0)
	return append([]byte{op0, op1}, signed16Bytes(disp)...), nil
}

// encodeStinc4 encodes the four-byte `stinc rptr, #imm, .width` form.
func (e *Encoder) encodeStinc4(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rptr, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	val, err := e.resolveOperandValue(&inst.Operands[1])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four1Stinc, rptr)
	op1 := byteSub(0, 0, width)
	return append([]byte{op0, op1}, imm16Bytes(val)...), nil
}

func (e *Encoder) encodeLdinc(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	r1, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	val, err := e.resolveOperandValue(&inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four2Ldinc, rdst)
	op1 := byteSub(0, r1, width)
	return append([]byte{op0, op1}, imm16Bytes(val)...), nil
}

func (e *Encoder) encodeSto(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rindex, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	disp, err := e.targetDisplacement(inst, &inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four4Sto, rsrc)
	op1 := byteSub(0, rindex, width)
	return append([]byte{op0, op1}, signed16Bytes(disp)...), nil
}

func (e *Encoder) encodeLdo(inst *parser.Instruction, variant uint8) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rindex, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	disp, err := e.targetDisplacement(inst, &inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four5Ldo, rdst)
	op1 := byteSub(variant, rindex, width)
	return append([]byte{op0, op1}, signed16Bytes(disp)...), nil
}

func (e *Encoder) encodeLdiw(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	val, err := e.resolveOperandValue(&inst.Operands[1])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four5Ldo, rdst)
	op1 := byteSub(vm.Ldo2Imm, 0, 0)
	return append([]byte{op0, op1}, imm16Bytes(val)...), nil
}

func (e *Encoder) encodeFourByteLd(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	disp, err := e.targetDisplacement(inst, mem)
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, rdst)
	op1 := byteSub(vm.Misc0Ld, 0, width)
	return append([]byte{op0, op1}, signed16Bytes(disp)...), nil
}

// sixBitSigned packs a -32..31 constant into two 3-bit register fields the
// way Misc1Sti's bit layout requires: the high 3 bits ride in op0's reg
// field, the low 3 in op1's.
func sixBitSigned(mnemonic string, op *parser.Operand) (hi uint8, lo uint8, err error) {
	if op.Kind != parser.OperandImmediate {
		return 0, 0, fmt.Errorf("%s: expected an immediate operand", mnemonic)
	}
	v := int64(op.Value)
	if v < -32 || v > 31 {
		return 0, 0, fmt.Errorf("%s: constant %d out of 6-bit signed range", mnemonic, v)
	}
	raw := uint8(v) & 0x3f
	return (raw >> 3) & 0x7, raw & 0x7, nil
}

func (e *Encoder) encodeSti(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	var constOp *parser.Operand
	for i := range inst.Operands {
		if inst.Operands[i].Kind == parser.OperandImmediate {
			constOp = &inst.Operands[i]
		}
	}
	if constOp == nil {
		return nil, fmt.Errorf("sti: expected an immediate constant operand")
	}
	hi, lo, err := sixBitSigned(inst.Mnemonic, constOp)
	if err != nil {
		return nil, err
	}
	disp, err := e.targetDisplacement(inst, mem)
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, hi)
	op1 := byteSub(vm.Misc1Sti, lo, width)
	return append([]byte{op0, op1}, signed16Bytes(disp)...), nil
}

func (e *Encoder) encodeMath4(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	mop, err := mathSuffix(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	r1, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	r2, err := wantRegister(inst.Mnemonic, &inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, rdst)
	op1 := byteSub(vm.Misc2Math, r1, 0)
	op2 := byteSub(mop, r2, 0)
	return []byte{op0, op1, op2, 0}, nil
}

func (e *Encoder) encodeCmp4(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	rel, err := relationSuffix(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	r1, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	r2, err := wantRegister(inst.Mnemonic, &inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, rdst)
	op1 := byteSub(vm.Misc3Cmp, r1, 0)
	op2 := byteSub(rel, r2, 0)
	return []byte{op0, op1, op2, 0}, nil
}

func (e *Encoder) encodeFzero(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rindex, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rarray, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	limit, err := e.resolveOperandValue(&inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, rindex)
	op1 := byteSub(vm.Misc4Fzero, rarray, width)
	return append([]byte{op0, op1}, imm16Bytes(limit)...), nil
}

func (e *Encoder) encodeStoi(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rbase, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rindex, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	val, err := e.resolveOperandValue(&inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, rbase)
	op1 := byteSub(vm.Misc5Stoi, rindex, width)
	return append([]byte{op0, op1}, imm16Bytes(val)...), nil
}

func (e *Encoder) encodeStor(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rbase, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rindex, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, rbase)
	op1 := byteSub(vm.Misc6Stor, rindex, width)
	op2 := byteSub(0, rsrc, 0)
	return []byte{op0, op1, op2, 0}, nil
}

func (e *Encoder) encodeLdor(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	r1, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	r2, err := wantRegister(inst.Mnemonic, &inst.Operands[2])
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four6Misc, rdst)
	op1 := byteSub(vm.Misc7Ldor, r1, width)
	op2 := byteSub(0, r2, 0)
	return []byte{op0, op1, op2, 0}, nil
}

func (e *Encoder) encodeCstf(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 3); err != nil {
		return nil, err
	}
	rel, err := relationSuffix(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	rleft, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rright, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	frameSlot, err := smallImmediate(inst.Mnemonic, &inst.Operands[2], 3)
	if err != nil {
		return nil, err
	}
	op0 := fourByteOp(vm.Four7Cstf, rleft)
	op1 := byteSub(rel, rright, 0)
	op2 := byteSub(0, frameSlot, 0)
	return []byte{op0, op1, op2, 0}, nil
}
