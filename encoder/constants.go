package encoder

import (
	"fmt"

	"github.com/lookbusy1344/arm-emulator/vm"
)

// relationSuffixes maps a dot-suffix name to its 3-bit relation code.
var relationSuffixes = map[string]uint8{
	"gt": vm.RelGT, "lt": vm.RelLT, "eq": vm.RelEQ, "ne": vm.RelNE,
	"ge": vm.RelGE, "le": vm.RelLE, "even": vm.RelEven, "odd": vm.RelOdd,
}

// mathSuffixes maps a dot-suffix name to its 3-bit math-op code.
var mathSuffixes = map[string]uint8{
	"add": vm.MathAdd, "sub": vm.MathSub, "mul": vm.MathMul, "div": vm.MathDiv,
	"or": vm.MathOr, "xor": vm.MathXor, "and": vm.MathAnd, "cmp": vm.MathCmp,
}

// widthSuffixes maps a dot-suffix name to its 2-bit width-field code.
var widthSuffixes = map[string]uint8{
	"b": 0, "h": 1, "w": 2, "dw": 3,
}

func lookupSuffix(table map[string]uint8, mnemonic, suffix string) (uint8, error) {
	if suffix == "" {
		return 0, fmt.Errorf("%s: missing required .<suffix>", mnemonic)
	}
	v, ok := table[suffix]
	if !ok {
		return 0, fmt.Errorf("%s: unrecognized suffix %q", mnemonic, suffix)
	}
	return v, nil
}

func relationSuffix(mnemonic, suffix string) (uint8, error) {
	return lookupSuffix(relationSuffixes, mnemonic, suffix)
}

func mathSuffix(mnemonic, suffix string) (uint8, error) {
	return lookupSuffix(mathSuffixes, mnemonic, suffix)
}

// widthSuffixRequired resolves an explicit width suffix, erroring if absent.
func widthSuffixRequired(mnemonic, suffix string) (uint8, error) {
	return lookupSuffix(widthSuffixes, mnemonic, suffix)
}

// byteOp packs a funct/reg/lengthClass triple into an opcode byte.
func byteOp(funct uint8, reg uint8, lengthClass uint8) uint8 {
	return (funct << vm.FunctShift) | (reg << vm.RegShift) | lengthClass
}

// byteSub packs a funct/reg/width triple into a secondary opcode byte
// (op1, op2, ...), used everywhere a non-primary byte carries its own
// funct/reg/width sub-fields.
func byteSub(funct uint8, reg uint8, width uint8) uint8 {
	return (funct << vm.FunctShift) | (reg << vm.RegShift) | (width & vm.WidthFieldMask)
}
