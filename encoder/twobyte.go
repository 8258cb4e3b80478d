package encoder

import (
	"fmt"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

func (e *Encoder) encodeTwoByte(inst *parser.Instruction) ([]byte, error) {
	switch inst.Mnemonic {
	case "mov":
		return e.encodeMov(inst)
	case "cmov":
		return e.encodeCmov(inst)
	case "cmpst":
		return e.encodeCmpst(inst)
	case "ldf":
		return e.encodeLdf(inst)
	case "stf":
		return e.encodeStf(inst)
	case "ret":
		return e.encodeRet2(inst)
	case "ldib":
		return e.encodeLdib(inst)
	case "signex":
		return e.encodeSignex(inst)
	case "memf":
		return e.encodeMemf(inst)
	case "stadd":
		return e.encodeStadd(inst)
	case "moddiv":
		return e.encodeModdiv(inst)
	case "syscall":
		return e.encodeSyscall(inst)
	case "pushf":
		return e.encodePushf(inst)
	case "stst":
		return e.encodeStst(inst)
	case "addimgw", "subimgw":
		return e.encodeImgwArit(inst)
	case "stinc":
		return e.encodeStinc2(inst)
	case "swap":
		return e.encodeSwap(inst)
	case "addnatw", "subnatw":
		return e.encodeNatwArit(inst)
	case "stind":
		return e.encodeStind(inst)
	case "ldind":
		return e.encodeLdind(inst)
	case "pushtwo":
		return e.encodePushtwo(inst)
	case "poptwo":
		return e.encodePoptwo(inst)
	case "mathst":
		return e.encodeMathst(inst)
	case "math":
		return e.encodeMath2(inst)
	}
	return nil, fmt.Errorf("unrecognized two-byte mnemonic: %q", inst.Mnemonic)
}

func (e *Encoder) encodeMov(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Mov, rdst), byteSub(0, rsrc, 0)}, nil
}

func (e *Encoder) encodeCmov(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
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
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Cmov, rdst), byteSub(rel, rsrc, 0)}, nil
}

func (e *Encoder) encodeCmpst(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
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
	rright, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Cmpst, rdst), byteSub(rel, rright, 0)}, nil
}

// smallImmediate resolves an immediate operand and checks it fits in the
// given number of unsigned bits.
func smallImmediate(mnemonic string, op *parser.Operand, bits uint) (uint8, error) {
	if op.Kind != parser.OperandImmediate {
		return 0, fmt.Errorf("%s: expected an immediate operand", mnemonic)
	}
	max := uint64(1)<<bits - 1
	if op.Value > max {
		return 0, fmt.Errorf("%s: immediate %d exceeds %d-bit range", mnemonic, op.Value, bits)
	}
	return uint8(op.Value), nil
}

func (e *Encoder) encodeLdf(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	offset, err := smallImmediate(inst.Mnemonic, &inst.Operands[1], 3)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Micro, rdst), byteSub(vm.Micro2Ldf, offset, 0)}, nil
}

func (e *Encoder) encodeStf(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	offset, err := smallImmediate(inst.Mnemonic, &inst.Operands[1], 3)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Micro, rsrc), byteSub(vm.Micro2Stf, offset, 0)}, nil
}

// encodeRet2 encodes the two-byte `ret #extra` form: extra is 1..8 extra
// slots popped, stored as extra-1 in a 3-bit field.
func (e *Encoder) encodeRet2(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	op := &inst.Operands[0]
	if op.Kind != parser.OperandImmediate {
		return nil, fmt.Errorf("ret: expected an immediate operand")
	}
	if op.Value < 1 || op.Value > 8 {
		return nil, fmt.Errorf("ret: extra-slot count %d out of range 1..8", op.Value)
	}
	return []byte{twoByteOp(vm.Group2Micro, 0), byteSub(vm.Micro2Ret, uint8(op.Value-1), 0)}, nil
}

func (e *Encoder) encodeLdib(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	op := &inst.Operands[1]
	if op.Kind != parser.OperandImmediate {
		return nil, fmt.Errorf("ldib: expected an immediate operand")
	}
	v := int64(op.Value)
	if v < -16 || v > 15 {
		return nil, fmt.Errorf("ldib: immediate %d out of 5-bit signed range", v)
	}
	op1 := (uint8(vm.Micro2Ldib) << vm.FunctShift) | (uint8(v) & 0x1f)
	return []byte{twoByteOp(vm.Group2Micro, rdst), op1}, nil
}

func (e *Encoder) encodeSignex(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
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
	return []byte{twoByteOp(vm.Group2Micro, rdst), byteSub(vm.Micro2Signex, 0, width)}, nil
}

func (e *Encoder) encodeMemf(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 0); err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Micro, 0), byteSub(vm.Micro2Memf, 0, width)}, nil
}

func (e *Encoder) encodeStadd(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 0); err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Micro, 0), byteSub(vm.Micro2Stadd, 0, width)}, nil
}

func (e *Encoder) encodeModdiv(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Micro, rdst), byteSub(vm.Micro2Moddiv, rsrc, 0)}, nil
}

func (e *Encoder) encodeSyscall(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	id, err := smallImmediate(inst.Mnemonic, &inst.Operands[0], 6)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Ops, (id>>3)&0x7), byteSub(vm.Ops2Syscall, id&0x7, 0)}, nil
}

func (e *Encoder) encodePushf(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	offset, err := smallImmediate(inst.Mnemonic, &inst.Operands[0], 3)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Ops, 0), byteSub(vm.Ops2Pushf, offset, 0)}, nil
}

func (e *Encoder) encodeStst(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Ops, rsrc), byteSub(vm.Ops2Stst, 0, 0)}, nil
}

func (e *Encoder) encodeImgwArit(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	rx, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	width := uint8(0)
	if inst.Mnemonic == "subimgw" {
		width = 1
	}
	return []byte{twoByteOp(vm.Group2Ops, rx), byteSub(vm.Ops2ImgwArit, 0, width)}, nil
}

func (e *Encoder) encodeStinc2(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rptr, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rval, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Ops, rptr), byteSub(vm.Ops2Stinc, rval, width)}, nil
}

func (e *Encoder) encodeSwap(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	ra, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rb, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Ops, ra), byteSub(vm.Ops2Swap, rb, 0)}, nil
}

func (e *Encoder) encodeNatwArit(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	rx, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	width := uint8(0)
	if inst.Mnemonic == "subnatw" {
		width = 1
	}
	return []byte{twoByteOp(vm.Group2Ops, rx), byteSub(vm.Ops2NatwArit, 0, width)}, nil
}

func (e *Encoder) encodeStind(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rptr, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rval, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2MemStack, rptr), byteSub(vm.Mem2Store, rval, width)}, nil
}

func (e *Encoder) encodeLdind(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rptr, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	width, err := widthSuffixRequired(inst.Mnemonic, inst.Suffix)
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2MemStack, rdst), byteSub(vm.Mem2Load, rptr, width)}, nil
}

func (e *Encoder) encodePushtwo(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	ra, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rb, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2MemStack, ra), byteSub(vm.Mem2PushTwo, rb, 0)}, nil
}

func (e *Encoder) encodePoptwo(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	ra, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	rb, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2MemStack, ra), byteSub(vm.Mem2PopTwo, rb, 0)}, nil
}

func (e *Encoder) encodeMathst(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
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
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2Mathst, rdst), byteSub(mop, rsrc, 0)}, nil
}

func (e *Encoder) encodeMath2(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
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
	rsrc, err := wantRegister(inst.Mnemonic, &inst.Operands[1])
	if err != nil {
		return nil, err
	}
	return []byte{twoByteOp(vm.Group2MathRR, rdst), byteSub(mop, rsrc, 0)}, nil
}
