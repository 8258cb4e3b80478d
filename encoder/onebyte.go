package encoder

import (
	"fmt"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

// oneByteFixed are the no-operand mnemonics that name a specific (funct,reg)
// pair reassigned away from the plain register operation that funct would
// otherwise perform (vm/onebyte.go's override table, mirrored here exactly).
var oneByteFixed = map[string]struct {
	funct uint8
	reg   uint8
}{
	"halt":   {0, vm.RZERO},
	"ret0":   {0, vm.RSP},
	"imulst": {1, vm.RZERO},
	"shlimg": {1, vm.RSP},
	"ret0nf": {2, vm.RSP},
	"retnf":  {3, vm.RSP},
	"subst":  {4, vm.RZERO},
	"imgwid": {4, vm.RPC},
	"shrimg": {4, vm.RSP},
	"addst":  {5, vm.RZERO},
	"idivst": {5, vm.RSP},
	"ret":    {6, vm.RZERO},
	"natwid": {6, vm.RSP},
	"andst":  {7, vm.RZERO},
}

// oneByteRegForm are the mnemonics taking a single register operand, whose
// reg field selects the operation via the same override table (e.g.
// `push RSP` reads back as ret0nf, `shr RPC` as illegal) - the encoder does
// not second-guess that, since it is the documented reassignment scheme.
var oneByteRegForm = map[string]uint8{
	"inc": 0, "dec": 1, "push": 2, "pop": 3,
	"zero": 4, "shl": 5, "shr": 6, "inv": 7,
}

func (e *Encoder) encodeOneByte(inst *parser.Instruction) ([]byte, error) {
	if fixed, ok := oneByteFixed[inst.Mnemonic]; ok {
		if err := wantOperands(inst, 0); err != nil {
			return nil, err
		}
		return []byte{oneByteOp(fixed.funct, fixed.reg)}, nil
	}

	if funct, ok := oneByteRegForm[inst.Mnemonic]; ok {
		if err := wantOperands(inst, 1); err != nil {
			return nil, err
		}
		reg, err := wantRegister(inst.Mnemonic, &inst.Operands[0])
		if err != nil {
			return nil, err
		}
		return []byte{oneByteOp(funct, reg)}, nil
	}

	return nil, fmt.Errorf("unrecognized one-byte mnemonic: %q", inst.Mnemonic)
}
