package encoder

import (
	"fmt"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

func (e *Encoder) encodeWidthImm(inst *parser.Instruction) ([]byte, error) {
	switch inst.Mnemonic {
	case "ld":
		return e.encodeWidthLd(inst)
	case "ldi":
		return e.encodeLdi(inst)
	case "st":
		return e.encodeSt(inst)
	case "jmp":
		return e.encodeJmp(inst)
	case "inc", "dec":
		return e.encodeIncDecMem(inst)
	case "ldae":
		return e.encodeLdae(inst)
	case "call":
		return e.encodeWidthCall(inst)
	}
	return nil, fmt.Errorf("unrecognized width-imm mnemonic: %q", inst.Mnemonic)
}

// resolveMemory returns a memory operand's resolved base address and its
// index register (vm.RZERO when the operand has none).
func (e *Encoder) resolveMemory(mnemonic string, op *parser.Operand) (uint64, uint8, error) {
	if op.Kind != parser.OperandMemory {
		return 0, 0, fmt.Errorf("%s: expected a memory operand", mnemonic)
	}
	addr, err := e.resolveOperandValue(op)
	if err != nil {
		return 0, 0, err
	}
	idx := uint8(vm.RZERO)
	if op.HasIndex {
		idx = uint8(op.IndexReg)
	}
	return addr, idx, nil
}

func (e *Encoder) encodeWidthLd(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rdst, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	addr, err := e.resolveOperandValue(mem)
	if err != nil {
		return nil, err
	}
	return append([]byte{widthImmOp(vm.Width3Ld, rdst)}, e.imageWordBytes(addr)...), nil
}

func (e *Encoder) encodeLdi(inst *parser.Instruction) ([]byte, error) {
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
	return append([]byte{widthImmOp(vm.Width3Ldi, rdst)}, e.imageWordBytes(val)...), nil
}

func (e *Encoder) encodeSt(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	var rsrc parser.Operand
	for _, op := range inst.Operands {
		if op.Kind == parser.OperandRegister {
			rsrc = op
		}
	}
	if rsrc.Kind != parser.OperandRegister {
		return nil, fmt.Errorf("st: expected a source register operand")
	}
	addr, err := e.resolveOperandValue(mem)
	if err != nil {
		return nil, err
	}
	return append([]byte{widthImmOp(vm.Width3St, uint8(rsrc.Reg))}, e.imageWordBytes(addr)...), nil
}

func (e *Encoder) encodeJmp(inst *parser.Instruction) ([]byte, error) {
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	idx := uint8(vm.RZERO)
	for _, op := range inst.Operands {
		if op.Kind == parser.OperandRegister {
			idx = uint8(op.Reg)
		}
	}
	addr, err := e.resolveOperandValue(mem)
	if err != nil {
		return nil, err
	}
	return append([]byte{widthImmOp(vm.Width3Jmp, idx)}, e.imageWordBytes(addr)...), nil
}

func (e *Encoder) encodeIncDecMem(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	addr, idx, err := e.resolveMemory(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	funct := uint8(vm.Width3Inc)
	if inst.Mnemonic == "dec" {
		funct = vm.Width3Dec
	}
	return append([]byte{widthImmOp(funct, idx)}, e.imageWordBytes(addr)...), nil
}

func (e *Encoder) encodeLdae(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 1); err != nil {
		return nil, err
	}
	addr, idx, err := e.resolveMemory(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	return append([]byte{widthImmOp(vm.Width3Ldae, idx)}, e.imageWordBytes(addr)...), nil
}

func (e *Encoder) encodeWidthCall(inst *parser.Instruction) ([]byte, error) {
	if err := wantOperands(inst, 2); err != nil {
		return nil, err
	}
	rindex, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
	if err != nil {
		return nil, err
	}
	mem, err := memoryOperand(inst.Mnemonic, inst.Operands)
	if err != nil {
		return nil, err
	}
	addr, err := e.resolveOperandValue(mem)
	if err != nil {
		return nil, err
	}
	return append([]byte{widthImmOp(vm.Width3Call, rindex)}, e.imageWordBytes(addr)...), nil
}
