package vm

// One-byte opcodes (class 0). The high 3 bits (funct) select one of
// {inc, dec, push, pop, zero, shl, shr, inv} applied to reg(op); the
// original author reassigns several (funct, reg) pairs that would otherwise
// describe nonsense operations (mutating RZERO, or shifting/inverting
// RPC/RSP) to standalone instructions. The override table below is taken
// directly from the reference source's opcode switch and must not be
// "cleaned up".
func (vm *VM) executeOneByte(inst *Instruction) (bool, error) {
	f := funct(inst.Op)
	r := int(regField(inst.Op))

	switch f {
	case 0: // inc family
		switch r {
		case RZERO:
			vm.halt()
			return true, nil
		case RSP:
			return vm.doRet0()
		default:
			vm.CPU.R[r]++
			return false, nil
		}

	case 1: // dec family
		switch r {
		case RZERO:
			return false, vm.opImulst()
		case RSP:
			vm.CPU.R[RRES] <<= vm.CPU.ImageShift
			return false, nil
		default:
			vm.CPU.R[r]--
			return false, nil
		}

	case 2: // push family
		switch r {
		case RSP:
			return vm.doRet0NoFrame()
		default:
			return false, vm.Push(vm.CPU.GetRegister(r))
		}

	case 3: // pop family
		switch r {
		case RZERO:
			_, err := vm.Pop() // discard; never overwrites RZERO
			return false, err
		case RSP:
			return true, vm.doRetNoFrame()
		default:
			v, err := vm.Pop()
			if err != nil {
				return false, err
			}
			vm.CPU.SetRegister(r, v)
			return false, nil
		}

	case 4: // zero family
		switch r {
		case RZERO:
			return false, vm.opSubst()
		case RPC:
			vm.CPU.R[RRES] = uint64(vm.CPU.ImageWidth)
			return false, nil
		case RSP:
			vm.CPU.R[RRES] >>= vm.CPU.ImageShift
			return false, nil
		default:
			vm.CPU.SetRegister(r, 0)
			return false, nil
		}

	case 5: // shl family
		switch r {
		case RZERO:
			return false, vm.opAddst()
		case RPC:
			return false, vm.illegalInstruction(inst)
		case RSP:
			return false, vm.opIdivst()
		default:
			vm.CPU.R[r] <<= 1
			return false, nil
		}

	case 6: // shr family
		switch r {
		case RZERO:
			return true, vm.doRet()
		case RPC:
			return false, vm.illegalInstruction(inst)
		case RSP:
			vm.CPU.R[RRES] = NativeWordSize
			return false, nil
		default:
			vm.CPU.R[r] >>= 1
			return false, nil
		}

	case 7: // inv family
		switch r {
		case RZERO:
			return false, vm.opAndst()
		case RPC, RSP:
			return false, vm.illegalInstruction(inst)
		default:
			if vm.CPU.R[r] == 0 {
				vm.CPU.R[r] = 1
			} else {
				vm.CPU.R[r] = 0
			}
			return false, nil
		}
	}

	return false, vm.illegalInstruction(inst)
}

// doRet0 implements `ret0`: RRES←0, then a full ret.
func (vm *VM) doRet0() (bool, error) {
	vm.CPU.R[RRES] = 0
	if err := vm.doRet(); err != nil {
		return true, err
	}
	return true, nil
}

// doRet0NoFrame implements `ret0nf`: RRES←0, then retnf.
func (vm *VM) doRet0NoFrame() (bool, error) {
	vm.CPU.R[RRES] = 0
	if err := vm.doRetNoFrame(); err != nil {
		return true, err
	}
	return true, nil
}

func (vm *VM) opImulst() error {
	v, err := vm.Pop()
	if err != nil {
		return err
	}
	vm.CPU.R[RRES] = Math(v, vm.CPU.R[RRES], MathMul, vm.CPU.ImageWidth)
	return nil
}

func (vm *VM) opSubst() error {
	v, err := vm.Pop()
	if err != nil {
		return err
	}
	vm.CPU.R[RRES] = Math(v, vm.CPU.R[RRES], MathSub, vm.CPU.ImageWidth)
	return nil
}

func (vm *VM) opAddst() error {
	v, err := vm.Pop()
	if err != nil {
		return err
	}
	vm.CPU.R[RRES] = Math(v, vm.CPU.R[RRES], MathAdd, vm.CPU.ImageWidth)
	return nil
}

func (vm *VM) opAndst() error {
	v, err := vm.Pop()
	if err != nil {
		return err
	}
	vm.CPU.R[RRES] = Math(v, vm.CPU.R[RRES], MathAnd, vm.CPU.ImageWidth)
	return nil
}

// opIdivst implements `idivst`: RRES ← pop / RRES, signed, at image width.
// Division by zero sets RRES to zero and continues (open question,
// decided in DESIGN.md).
func (vm *VM) opIdivst() error {
	v, err := vm.Pop()
	if err != nil {
		return err
	}
	if signExtend(vm.CPU.R[RRES], vm.CPU.ImageWidth) == 0 {
		vm.CPU.R[RRES] = 0
		return nil
	}
	vm.CPU.R[RRES] = Math(v, vm.CPU.R[RRES], MathDiv, vm.CPU.ImageWidth)
	return nil
}
