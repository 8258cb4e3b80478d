package encoder

import (
	"fmt"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

// Encoder turns a parsed Instruction into its final byte sequence. OI has no
// literal pools or rotated immediates to track across instructions the way
// the ARM teacher's Encoder does - every instruction's bytes are a pure
// function of its own mnemonic, suffix and operands plus the symbol table,
// so Encoder carries no running encoding state at all.
type Encoder struct {
	symbolTable *parser.SymbolTable
	imageWidth  uint8
}

// NewEncoder creates an Encoder resolving labels against symbolTable and
// sizing width-imm instructions and address arithmetic to imageWidth.
func NewEncoder(symbolTable *parser.SymbolTable, imageWidth uint8) *Encoder {
	return &Encoder{symbolTable: symbolTable, imageWidth: imageWidth}
}

// EncodeInstruction returns the instruction's encoded bytes. Dispatch is on
// inst.Length rather than mnemonic, since the parser has already resolved
// every overloaded mnemonic (ld, call, stinc, math, ret, inc, dec) down to
// an unambiguous byte length from its operand shapes.
func (e *Encoder) EncodeInstruction(inst *parser.Instruction) ([]byte, error) {
	var (
		b   []byte
		err error
	)

	switch inst.Length {
	case 1:
		b, err = e.encodeOneByte(inst)
	case 2:
		b, err = e.encodeTwoByte(inst)
	case 4:
		b, err = e.encodeFourByte(inst)
	default:
		b, err = e.encodeWidthImm(inst)
	}

	if err != nil {
		return nil, WrapEncodingError(inst, err)
	}
	if uint64(len(b)) != inst.Length {
		return nil, NewEncodingError(inst, fmt.Sprintf("encoded %d bytes, expected %d", len(b), inst.Length))
	}
	return b, nil
}

// resolveOperandValue returns an operand's final numeric value, resolving a
// symbol reference through the symbol table when the operand carries one.
func (e *Encoder) resolveOperandValue(op *parser.Operand) (uint64, error) {
	if op.Symbol == "" {
		return op.Value, nil
	}
	return e.symbolTable.Get(op.Symbol)
}

// wantOperands checks an instruction has exactly n operands.
func wantOperands(inst *parser.Instruction, n int) error {
	if len(inst.Operands) != n {
		return fmt.Errorf("%s: expected %d operand(s), got %d", inst.Mnemonic, n, len(inst.Operands))
	}
	return nil
}

func wantRegister(mnemonic string, op *parser.Operand) (uint8, error) {
	if op.Kind != parser.OperandRegister {
		return 0, fmt.Errorf("%s: expected a register operand", mnemonic)
	}
	return uint8(op.Reg), nil
}

// memoryOperand returns the sole OperandMemory among operands, or an error
// if none is present.
func memoryOperand(mnemonic string, operands []parser.Operand) (*parser.Operand, error) {
	for i := range operands {
		if operands[i].Kind == parser.OperandMemory {
			return &operands[i], nil
		}
	}
	return nil, fmt.Errorf("%s: expected a memory operand", mnemonic)
}

// putLittleEndian writes v's low `width` bytes into dst, least significant
// first, matching Memory.ReadWidth/WriteWidth's byte order.
func putLittleEndian(dst []byte, v uint64, width int) {
	for i := 0; i < width; i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}

// imageWordBytes encodes v as an image_width-byte little-endian word.
func (e *Encoder) imageWordBytes(v uint64) []byte {
	b := make([]byte, e.imageWidth)
	putLittleEndian(b, v, int(e.imageWidth))
	return b
}

// signed16Bytes encodes v truncated to a 16-bit two's-complement value.
func signed16Bytes(v int64) []byte {
	b := make([]byte, 2)
	putLittleEndian(b, uint64(v), 2)
	return b
}

// imm16Bytes encodes v's low 16 bits, little-endian, with no range check -
// the trailing word for four-byte opcodes that carry a raw literal rather
// than a pc-relative displacement.
func imm16Bytes(v uint64) []byte {
	b := make([]byte, 2)
	putLittleEndian(b, v, 2)
	return b
}

// pcRelativeDisplacement16 computes target-from as a signed 16-bit
// pc-relative displacement, used by every four-byte family whose trailing
// word is relative to the instruction's own address rather than absolute.
func pcRelativeDisplacement16(from, target uint64) (int64, error) {
	disp := int64(target) - int64(from)
	if disp < -32768 || disp > 32767 {
		return 0, fmt.Errorf("pc-relative displacement %d out of 16-bit signed range", disp)
	}
	return disp, nil
}

// twoByteOp packs funct/reg into a class-1 opcode byte.
func twoByteOp(funct, reg uint8) uint8 { return byteOp(funct, reg, vm.LengthClassTwo) }

// fourByteOp packs funct/reg into a class-3 opcode byte.
func fourByteOp(funct, reg uint8) uint8 { return byteOp(funct, reg, vm.LengthClassFour) }

// widthImmOp packs funct/reg into a class-2 opcode byte.
func widthImmOp(funct, reg uint8) uint8 { return byteOp(funct, reg, vm.LengthClassWidth) }

// oneByteOp packs funct/reg into a class-0 opcode byte.
func oneByteOp(funct, reg uint8) uint8 { return byteOp(funct, reg, vm.LengthClassOne) }
