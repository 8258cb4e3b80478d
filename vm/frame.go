package vm

// Stack and frame discipline. Every push/pop/call/ret moves RSP by
// NativeWordSize, never by image width: stack slots and frame pointers are
// always native-width regardless of the image's addressing width.

// Push decrements RSP by the native word size and stores v there.
func (vm *VM) Push(v uint64) error {
	sp := vm.CPU.R[RSP] - NativeWordSize
	if err := vm.Memory.WriteWidth(vm.CPU.MaskAddress(sp), v, NativeWordSize); err != nil {
		return err
	}
	vm.CPU.R[RSP] = sp
	if vm.StackTrace != nil {
		vm.StackTrace.RecordPush(vm.CPU.Cycles, vm.CPU.R[RPC], sp, v)
	}
	return nil
}

// Pop reads the native-word-size value at RSP and increments RSP by the
// native word size.
func (vm *VM) Pop() (uint64, error) {
	sp := vm.CPU.R[RSP]
	v, err := vm.Memory.ReadWidth(vm.CPU.MaskAddress(sp), NativeWordSize)
	if err != nil {
		return 0, err
	}
	vm.CPU.R[RSP] = sp + NativeWordSize
	if vm.StackTrace != nil {
		vm.StackTrace.RecordPop(vm.CPU.Cycles, vm.CPU.R[RPC], sp, v)
	}
	return v, nil
}

// frameOffset computes the address of local/argument slot i relative to
// rframe: positive i addresses incoming-argument slots above the saved
// return/frame pair, negative i addresses locals below RFRAME.
func frameOffset(rframe uint64, i int64) uint64 {
	if i >= 0 {
		return rframe + NativeWordSize*uint64(i+3)
	}
	return rframe + uint64(int64(NativeWordSize)*(i+1))
}

// callPrologue implements the shared call sequence: push the saved frame
// pointer, push the return address, then point RFRAME at the new frame
// base. Used by both the class-2 `call` opcode and the class-3 indirect
// call family.
func (vm *VM) callPrologue(returnAddr uint64) error {
	if err := vm.Push(vm.CPU.R[RFRAME]); err != nil {
		return err
	}
	if err := vm.Push(returnAddr); err != nil {
		return err
	}
	vm.CPU.R[RFRAME] = vm.CPU.R[RSP] - NativeWordSize
	return nil
}

// callNoFrame pushes only the return address, leaving RFRAME untouched —
// used by the callnf variants.
func (vm *VM) callNoFrame(returnAddr uint64) error {
	return vm.Push(returnAddr)
}

// doRet pops the return address then the saved frame pointer, and sets
// RPC to the popped return address.
func (vm *VM) doRet() error {
	retAddr, err := vm.Pop()
	if err != nil {
		return err
	}
	savedFrame, err := vm.Pop()
	if err != nil {
		return err
	}
	vm.CPU.R[RFRAME] = savedFrame
	vm.CPU.R[RPC] = retAddr
	return nil
}

// doRetNoFrame pops only the return address, leaving RFRAME untouched.
func (vm *VM) doRetNoFrame() error {
	retAddr, err := vm.Pop()
	if err != nil {
		return err
	}
	vm.CPU.R[RPC] = retAddr
	return nil
}

// doRetExtra is like doRet, but afterward discards `extra` additional
// native words from the stack — used to pop caller-pushed arguments on
// return.
func (vm *VM) doRetExtra(extra uint64) error {
	if err := vm.doRet(); err != nil {
		return err
	}
	for i := uint64(0); i < extra; i++ {
		if _, err := vm.Pop(); err != nil {
			return err
		}
	}
	return nil
}
