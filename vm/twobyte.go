package vm

// Two-byte opcodes (class 1). funct(op) selects one of eight
// sub-families; most consume a second byte (op1) whose own funct/reg/width
// fields select a further operation or operand. Frame-slot accesses
// (ldf/stf/pushf) address the same native-word-sized slots push/call/ret
// use, so they read/write at NativeWordSize. Of the in-image memory
// accesses, stst uses the image width, while stinc and ld/st reg,[reg] use
// the width encoded in op1.
func (vm *VM) executeTwoByte(inst *Instruction) (bool, error) {
	op1 := inst.Byte1
	r := int(regField(inst.Op))

	switch funct(inst.Op) {
	case Group2MathRR:
		r1 := int(regField(op1))
		vm.CPU.SetRegister(r, Math(vm.CPU.GetRegister(r), vm.CPU.GetRegister(r1), funct(op1), vm.CPU.ImageWidth))
		return false, nil

	case Group2Cmov:
		vm.opCmov(r, op1)
		return false, nil

	case Group2Cmpst:
		return false, vm.opCmpst(r, op1)

	case Group2Micro:
		return vm.executeMicro(r, op1)

	case Group2Ops:
		return vm.executeOps(r, op1)

	case Group2MemStack:
		return false, vm.executeMemStack(r, op1)

	case Group2Mov:
		r1 := int(regField(op1))
		vm.CPU.SetRegister(r, vm.CPU.GetRegister(r1))
		return false, nil

	case Group2Mathst:
		v, err := vm.Pop()
		if err != nil {
			return false, err
		}
		r1 := int(regField(op1))
		vm.CPU.SetRegister(r, Math(v, vm.CPU.GetRegister(r1), funct(op1), vm.CPU.ImageWidth))
		return false, nil
	}

	return false, vm.illegalInstruction(inst)
}

// opCmov implements conditional move: reg(op) <- reg(op1) when the relation
// holds. NE is unconditionally true (matches the reference's "shortcut for
// NE" rather than evaluating CheckRelation for it).
func (vm *VM) opCmov(r int, op1 uint8) {
	rel := funct(op1)
	r1 := int(regField(op1))
	if rel == RelNE || CheckRelation(vm.CPU.GetRegister(r), vm.CPU.GetRegister(r1), rel, vm.CPU.ImageWidth) {
		vm.CPU.SetRegister(r, vm.CPU.GetRegister(r1))
	}
}

// opCmpst implements `cmpst rdst, rright, relation`: rdst <- bool(pop() REL rright).
func (vm *VM) opCmpst(r int, op1 uint8) error {
	v, err := vm.Pop()
	if err != nil {
		return err
	}
	r1 := int(regField(op1))
	if CheckRelation(v, vm.CPU.GetRegister(r1), funct(op1), vm.CPU.ImageWidth) {
		vm.CPU.SetRegister(r, 1)
	} else {
		vm.CPU.SetRegister(r, 0)
	}
	return nil
}

// executeMicro implements the funct=3 micro-op group, sub-dispatched on
// funct(op1): ldf, stf, ret x, ldib, signex, memf, stadd, moddiv.
func (vm *VM) executeMicro(r int, op1 uint8) (bool, error) {
	switch funct(op1) {
	case Micro2Ldf:
		offset := int64(regField(op1))
		addr := frameOffset(vm.CPU.R[RFRAME], offset)
		v, err := vm.Memory.ReadWidth(vm.CPU.MaskAddress(addr), NativeWordSize)
		if err != nil {
			return false, err
		}
		vm.CPU.SetRegister(r, v)
		return false, nil

	case Micro2Stf:
		offset := int64(regField(op1))
		addr := frameOffset(vm.CPU.R[RFRAME], offset)
		return false, vm.Memory.WriteWidth(vm.CPU.MaskAddress(addr), vm.CPU.GetRegister(r), NativeWordSize)

	case Micro2Ret:
		extra := 1 + uint64(regField(op1))
		return true, vm.doRetExtra(extra)

	case Micro2Ldib:
		v := signExtendField(uint64(op1&0x1f), 4)
		vm.CPU.SetRegister(r, vm.CPU.MaskImageWord(uint64(v)))
		return false, nil

	case Micro2Signex:
		vm.opSignex(r, widthField(op1))
		return false, nil

	case Micro2Memf:
		return false, vm.opMemf(widthField(op1))

	case Micro2Stadd:
		return false, vm.opStadd(widthField(op1))

	default: // Micro2Moddiv
		r1 := int(regField(op1))
		return false, vm.opModdiv(r, r1)
	}
}

// signExtendField sign-extends the low (bits+1) bits of x, treating bit
// `bits` as the sign bit (the reference's XOR-subtract trick).
func signExtendField(x uint64, bits uint) int64 {
	sign := uint64(1) << bits
	return int64(x^sign) - int64(sign)
}

// opSignex sign-extends reg(r) from a byte/word/dword-sized value, truncated
// back to the current image width.
func (vm *VM) opSignex(r int, width uint8) {
	v := vm.CPU.R[r]
	var se int64
	switch width {
	case 0:
		se = int64(int8(v))
	case 1:
		se = int64(int16(v))
	default:
		se = int64(int32(v))
	}
	vm.CPU.SetRegister(r, vm.CPU.MaskImageWord(uint64(se)))
}

// opMemf implements `memf`: fill RARG2 elements of the given width, starting
// at element index RRES within the array based at RARG1, with the low
// `width`-bytes of RTMP.
func (vm *VM) opMemf(width uint8) error {
	elemSize := sizeofWidthField(width)
	base := vm.CPU.R[RARG1]
	start := vm.CPU.R[RRES]
	count := vm.CPU.R[RARG2]
	val := vm.CPU.R[RTMP]
	for i := uint64(0); i < count; i++ {
		addr := base + (start+i)*uint64(elemSize)
		if err := vm.Memory.WriteWidth(vm.CPU.MaskAddress(addr), val, elemSize); err != nil {
			return err
		}
	}
	return nil
}

// opStadd implements `stadd`: starting at element index RTMP, zero-fill the
// array based at RARG1 every RARG2 elements until the index exceeds RRES.
// RARG2 == 0 loops forever, matching the reference (a guest bug, not an
// engine-trapped condition).
func (vm *VM) opStadd(width uint8) error {
	elemSize := sizeofWidthField(width)
	base := vm.CPU.R[RARG1]
	stride := vm.CPU.R[RARG2]
	limit := vm.CPU.R[RRES]
	cur := vm.CPU.R[RTMP]
	for {
		addr := base + cur*uint64(elemSize)
		if err := vm.Memory.WriteWidth(vm.CPU.MaskAddress(addr), 0, elemSize); err != nil {
			return err
		}
		cur += stride
		if cur > limit {
			return nil
		}
	}
}

// opModdiv implements `moddiv`: push(rdst / rsrc) and rdst <- rdst % rsrc,
// using unsigned division (unlike idivst/Math, which are signed). Division
// by zero pushes 0 and leaves rdst untouched.
func (vm *VM) opModdiv(rDst, rSrc int) error {
	y := vm.CPU.MaskImageWord(vm.CPU.GetRegister(rSrc))
	if y == 0 {
		return vm.Push(0)
	}
	x := vm.CPU.MaskImageWord(vm.CPU.GetRegister(rDst))
	vm.CPU.SetRegister(rDst, vm.CPU.MaskImageWord(x%y))
	return vm.Push(x / y)
}

// executeOps implements the funct=4 group, sub-dispatched on funct(op1):
// syscall, pushf, stst, addimgw/subimgw, stinc, swap, addnatw/subnatw.
func (vm *VM) executeOps(r int, op1 uint8) (bool, error) {
	switch funct(op1) {
	case Ops2Syscall:
		before := vm.CPU.R[RPC]
		id := (uint8(r) << 3) | regField(op1)
		if err := vm.ExecuteSyscall(id); err != nil {
			return false, err
		}
		return vm.CPU.R[RPC] != before, nil

	case Ops2Pushf:
		offset := int64(regField(op1))
		addr := frameOffset(vm.CPU.R[RFRAME], offset)
		v, err := vm.Memory.ReadWidth(vm.CPU.MaskAddress(addr), NativeWordSize)
		if err != nil {
			return false, err
		}
		return false, vm.Push(v)

	case Ops2Stst:
		addr, err := vm.Pop()
		if err != nil {
			return false, err
		}
		return false, vm.Memory.WriteImageWord(vm.CPU.MaskAddress(addr), vm.CPU.GetRegister(r), vm.CPU.ImageWidth)

	case Ops2ImgwArit:
		switch widthField(op1) {
		case 0:
			vm.CPU.R[r] += uint64(vm.CPU.ImageWidth)
		case 1:
			vm.CPU.R[r] -= uint64(vm.CPU.ImageWidth)
		}
		return false, nil

	case Ops2Stinc:
		width := widthField(op1)
		elemSize := sizeofWidthField(width)
		r1 := int(regField(op1))
		val := vm.CPU.GetRegister(r1)
		addr := vm.CPU.MaskAddress(vm.CPU.R[r])
		if err := vm.Memory.WriteWidth(addr, val, elemSize); err != nil {
			return false, err
		}
		vm.CPU.R[r] += uint64(elemSize)
		return false, nil

	case Ops2Swap:
		r1 := int(regField(op1))
		a, b := vm.CPU.GetRegister(r), vm.CPU.GetRegister(r1)
		vm.CPU.SetRegister(r, b)
		vm.CPU.SetRegister(r1, a)
		return false, nil

	default: // Ops2NatwArit
		switch widthField(op1) {
		case 0:
			vm.CPU.R[r] += NativeWordSize
		case 1:
			vm.CPU.R[r] -= NativeWordSize
		}
		return false, nil
	}
}

// executeMemStack implements the funct=5 group: st/ld through a register
// pointer, and pushtwo/poptwo.
func (vm *VM) executeMemStack(r int, op1 uint8) error {
	width := sizeofWidthField(widthField(op1))
	r1 := int(regField(op1))

	switch funct(op1) {
	case Mem2Store:
		addr := vm.CPU.MaskAddress(vm.CPU.R[r])
		return vm.Memory.WriteWidth(addr, vm.CPU.GetRegister(r1), width)

	case Mem2Load:
		addr := vm.CPU.MaskAddress(vm.CPU.R[r1])
		v, err := vm.Memory.ReadWidth(addr, width)
		if err != nil {
			return err
		}
		vm.CPU.SetRegister(r, v)
		return nil

	case Mem2PushTwo:
		if err := vm.Push(vm.CPU.GetRegister(r)); err != nil {
			return err
		}
		return vm.Push(vm.CPU.GetRegister(r1))

	default: // Mem2PopTwo
		v, err := vm.Pop()
		if err != nil {
			return err
		}
		vm.CPU.SetRegister(r, v)
		v, err = vm.Pop()
		if err != nil {
			return err
		}
		vm.CPU.SetRegister(r1, v)
		return nil
	}
}
