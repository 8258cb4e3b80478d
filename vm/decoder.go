package vm

// Instruction is a decoded OI instruction. Unlike the ARM teacher's
// Instruction (one fixed 32-bit shape per type), OI's shape varies by
// length class, so this struct carries every field any family might need
// and Execute dispatches on LengthClass/Op before touching the rest.
type Instruction struct {
	Address     uint64
	Op          uint8 // byte 0
	LengthClass uint8 // op & 3

	// Byte1 holds the raw second byte for class 1 and class 3 instructions;
	// HasByte1 records whether decoding read it.
	Byte1    uint8
	HasByte1 bool

	// Imm holds the class-2 image-width immediate, or the class-3 16-bit
	// signed value (sign-extended into a uint64 for uniform arithmetic).
	Imm    uint64
	RawOp1 uint8 // byte 1 for class 1 and class 3 instructions
}

// funct extracts bits 7..5 of a byte: the primary or secondary function
// selector.
func funct(b uint8) uint8 {
	return b >> FunctShift
}

// regField extracts bits 4..2 of a byte: a register index 0..7.
func regField(b uint8) uint8 {
	return (b >> RegShift) & RegMask
}

// widthField extracts bits 1..0 of a byte: an operand-width selector 0..3.
func widthField(b uint8) uint8 {
	return b & WidthFieldMask
}

// lengthClass computes op & 3, the instruction's family index.
func lengthClass(op uint8) uint8 {
	return op & LengthClassMask
}

// InstructionByteLen returns the total byte length of the instruction whose
// opcode byte is op, given the current image width. Exported for callers
// outside the package (disassembly views) that need to walk memory without
// decoding each instruction fully.
func InstructionByteLen(op uint8, imageWidth uint8) uint8 {
	return instructionByteLen(lengthClass(op), imageWidth)
}

// instructionByteLen returns the total byte length of an instruction given
// its length class and the current image width.
func instructionByteLen(class uint8, imageWidth uint8) uint8 {
	switch class {
	case LengthClassOne:
		return 1
	case LengthClassTwo:
		return 2
	case LengthClassWidth:
		return 1 + imageWidth
	default: // LengthClassFour
		return 4
	}
}

// Decode reads the instruction at cpu's current RPC out of memory and
// extracts its fields. It does not advance RPC; the caller (Step) does that
// only if the handler did not redirect RPC itself.
func (vm *VM) Decode() (*Instruction, error) {
	pc := vm.CPU.MaskAddress(vm.CPU.R[RPC])
	op, err := vm.Memory.ReadByte(pc)
	if err != nil {
		return nil, err
	}

	inst := &Instruction{
		Address:     pc,
		Op:          op,
		LengthClass: lengthClass(op),
	}

	switch inst.LengthClass {
	case LengthClassOne:
		// No further bytes.
	case LengthClassTwo:
		b1, err := vm.Memory.ReadByte(vm.CPU.MaskAddress(pc + 1))
		if err != nil {
			return nil, err
		}
		inst.Byte1 = b1
		inst.HasByte1 = true
		inst.RawOp1 = b1
	case LengthClassWidth:
		imm, err := vm.Memory.ReadImageWord(vm.CPU.MaskAddress(pc+1), vm.CPU.ImageWidth)
		if err != nil {
			return nil, err
		}
		inst.Imm = imm
	case LengthClassFour:
		b1, err := vm.Memory.ReadByte(vm.CPU.MaskAddress(pc + 1))
		if err != nil {
			return nil, err
		}
		inst.Byte1 = b1
		inst.HasByte1 = true
		inst.RawOp1 = b1

		lo, err := vm.Memory.ReadWidth(vm.CPU.MaskAddress(pc+2), 2)
		if err != nil {
			return nil, err
		}
		inst.Imm = uint64(int64(signExtend(lo, 2)))
	}

	return inst, nil
}
