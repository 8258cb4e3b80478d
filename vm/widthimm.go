package vm

// (1 + image_width)-byte opcodes (class 2): ld, ldi, st, jmp,
// inc/dec through a memory address, ldae, call. The decoder has already
// fetched the instruction's trailing image-width operand into inst.Imm.
func (vm *VM) executeWidthImm(inst *Instruction) (bool, error) {
	r := int(regField(inst.Op))

	switch funct(inst.Op) {
	case Width3Ld: // ld rdst, [address]
		v, err := vm.Memory.ReadImageWord(vm.CPU.MaskAddress(inst.Imm), vm.CPU.ImageWidth)
		if err != nil {
			return false, err
		}
		vm.CPU.SetRegister(r, v)
		return false, nil

	case Width3Ldi: // ldi rdst, value
		vm.CPU.SetRegister(r, vm.CPU.MaskImageWord(inst.Imm))
		return false, nil

	case Width3St: // st [address], rsrc
		return false, vm.Memory.WriteImageWord(vm.CPU.MaskAddress(inst.Imm), vm.CPU.GetRegister(r), vm.CPU.ImageWidth)

	case Width3Jmp: // jmp address + image_width*reg(op)
		vm.CPU.R[RPC] = inst.Imm + uint64(vm.CPU.ImageWidth)*vm.CPU.GetRegister(r)
		return true, nil

	case Width3Inc: // inc [address + reg(op)]
		addr := vm.CPU.MaskAddress(inst.Imm + vm.CPU.GetRegister(r))
		return false, vm.incDecMemory(addr, 1)

	case Width3Dec: // dec [address + reg(op)]
		addr := vm.CPU.MaskAddress(inst.Imm + vm.CPU.GetRegister(r))
		return false, vm.incDecMemory(addr, -1)

	case Width3Ldae: // ldae rres(implied), address[reg(op)]
		addr := vm.CPU.MaskAddress(inst.Imm + uint64(vm.CPU.ImageWidth)*vm.CPU.GetRegister(r))
		v, err := vm.Memory.ReadImageWord(addr, vm.CPU.ImageWidth)
		if err != nil {
			return false, err
		}
		vm.CPU.R[RRES] = v
		return false, nil

	default: // Width3Call: call address + image_width*reg(op)
		returnAddr := inst.Address + 1 + uint64(vm.CPU.ImageWidth)
		if err := vm.callPrologue(returnAddr); err != nil {
			return false, err
		}
		vm.CPU.R[RPC] = inst.Imm + uint64(vm.CPU.ImageWidth)*vm.CPU.GetRegister(r)
		return true, nil
	}
}

// incDecMemory adds delta (+1 or -1) to the image-width word at address.
func (vm *VM) incDecMemory(addr uint64, delta int64) error {
	v, err := vm.Memory.ReadImageWord(addr, vm.CPU.ImageWidth)
	if err != nil {
		return err
	}
	nv := vm.CPU.MaskImageWord(uint64(int64(v) + delta))
	return vm.Memory.WriteImageWord(addr, nv, vm.CPU.ImageWidth)
}
