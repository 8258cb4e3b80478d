package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// ExecutionState represents the current state of execution.
type ExecutionState int

const (
	StateRunning ExecutionState = iota
	StateHalted
	StateBreakpoint
	StateError
)

// VM represents the complete OneImage virtual machine: register file, RAM
// arena, and the host boundary a loader/CLI/TUI/API server
// drives it through.
type VM struct {
	CPU    *CPU
	Memory *Memory
	State  ExecutionState

	// Execution limits and history.
	MaxCycles      uint64
	InstructionLog []uint64

	LastError error

	// Runtime environment staged by the loader.
	EntryPoint       uint64
	StackTop         uint64
	ProgramArguments []string
	ExitCode         int64

	// Host boundary.
	Host Host

	// I/O redirection, matching the teacher's TUI/test accommodation.
	OutputWriter io.Writer

	// Optional diagnostics (trace_instructions, ambient stack).
	Disassembler   func(mem *Memory, addr uint64, imageWidth uint8) (text string, length uint8)
	ExecutionTrace *ExecutionTrace
	RegisterTrace  *RegisterTrace
	StackTrace     *StackTrace
	Statistics     *PerformanceStatistics
	CodeCoverage   *CodeCoverage

	stdinReader *bufio.Reader
	heapBump    uint64
	heapBase    uint64
}

// NewVM creates a VM with a fresh, empty register file and memory arena.
// Call Reset to install a concrete RAM size and image width before use.
func NewVM() *VM {
	return &VM{
		CPU:            NewCPU(),
		Memory:         NewMemory(),
		State:          StateHalted,
		MaxCycles:      DefaultMaxCycles,
		InstructionLog: make([]uint64, 0, DefaultLogCapacity),
		OutputWriter:   os.Stdout,
		stdinReader:    bufio.NewReader(os.Stdin),
	}
}

// Reset implements the host-exposed reset entry point: it
// (re)allocates the RAM arena, zeroes the register file, installs the image
// width, pushes the two sentinel frame words, and points RFRAME below them.
func (vm *VM) Reset(memSize uint64, initialPC, initialSP uint64, imageWidth uint8) {
	vm.Memory.Resize(memSize)
	vm.CPU.Reset(imageWidth)
	vm.CPU.R[RPC] = initialPC
	vm.CPU.R[RSP] = initialSP
	vm.EntryPoint = initialPC
	vm.StackTop = initialSP
	vm.State = StateHalted
	vm.InstructionLog = vm.InstructionLog[:0]
	vm.LastError = nil
	vm.heapBump = vm.heapBase

	// Sentinel frame: (return-address 0, saved-RFRAME 0), RFRAME below them.
	// A ret out of the outermost frame therefore pops RPC=0, which halts on
	// the next fetch — the documented termination path alongside `halt`.
	_ = vm.Push(0) // saved RFRAME
	_ = vm.Push(0) // return address
	vm.CPU.R[RFRAME] = vm.CPU.R[RSP] - NativeWordSize
}

// SetHeapBase configures where the `allocate` syscall starts bump
// allocating from; the loader calls this after laying out code/data/stack.
func (vm *VM) SetHeapBase(base uint64) {
	vm.heapBase = base
	vm.heapBump = base
}

// RamInformation implements the host-exposed ram_information entry point
// it hands back the arena pointer/size, capped at 64 KiB when the
// image width is 2 bytes (a 16-bit image can never address more anyway).
func (vm *VM) RamInformation(required uint64, imageWidth uint8) (available uint64, ok bool) {
	cap := vm.Memory.Size()
	if imageWidth == ImageWidth2 && cap > 0x10000 {
		cap = 0x10000
	}
	if cap < required {
		return cap, false
	}
	return cap, true
}

// TraceInstructions implements the optional debug toggle: it flips
// the execution trace on or off without otherwise touching configuration
// (MaxEntries, filters, etc. are controlled separately).
func (vm *VM) TraceInstructions(enabled bool) {
	if vm.ExecutionTrace == nil {
		vm.ExecutionTrace = NewExecutionTrace(vm.OutputWriter)
	}
	vm.ExecutionTrace.Enabled = enabled
}

// Fetch/Decode/Execute pipeline.

// Step executes exactly one instruction: fetch, decode, dispatch, and
// (unless the handler redirected RPC) advance RPC by the instruction's
// length class.
func (vm *VM) Step() error {
	if vm.State == StateError {
		return fmt.Errorf("VM is in error state: %w", vm.LastError)
	}

	if vm.MaxCycles > 0 && vm.CPU.Cycles >= vm.MaxCycles {
		vm.State = StateError
		vm.LastError = fmt.Errorf("cycle limit exceeded (%d cycles)", vm.MaxCycles)
		return vm.LastError
	}

	pcBefore := vm.CPU.R[RPC]
	vm.InstructionLog = append(vm.InstructionLog, pcBefore)

	if pcBefore == 0 {
		// A branch to address 0 halts (RAM arena invariant: address 0
		// permanently holds a zero word, interpreted as the syscall
		// handler pointer; reaching it as code means "stop").
		vm.halt()
		return nil
	}

	inst, err := vm.Decode()
	if err != nil {
		vm.State = StateError
		vm.LastError = fmt.Errorf("decode failed at RPC=0x%X: %w", pcBefore, err)
		return vm.LastError
	}

	var regsBefore [RegisterCount]uint64
	if vm.RegisterTrace != nil && vm.RegisterTrace.Enabled {
		regsBefore = vm.CPU.R
	}

	pcBeforeExecute := vm.CPU.R[RPC]
	took, err := vm.Execute(inst)
	if err != nil {
		if vm.State != StateHalted && vm.State != StateBreakpoint {
			vm.State = StateError
			vm.LastError = fmt.Errorf("execute failed at RPC=0x%X (op=0x%02X): %w", inst.Address, inst.Op, err)
		}
		return vm.LastError
	}

	if vm.State == StateHalted {
		return nil
	}

	// A non-branch op that happens to write RPC back to its own current
	// value (as plain data, not control flow) would be mistaken for "PC
	// untouched" and get auto-advanced on top of that write. No conforming
	// op does this.
	if !took && vm.CPU.R[RPC] == pcBeforeExecute {
		vm.CPU.R[RPC] += uint64(instructionByteLen(inst.LengthClass, vm.CPU.ImageWidth))
	}

	vm.CPU.IncrementCycles(1)

	if vm.CodeCoverage != nil {
		vm.CodeCoverage.RecordExecution(inst.Address, vm.CPU.Cycles)
	}
	if vm.Statistics != nil {
		vm.Statistics.RecordInstruction(mnemonicFor(inst), vm.CPU.Cycles)
		vm.Statistics.RecordHotPath(inst.Address)
	}
	if vm.RegisterTrace != nil && vm.RegisterTrace.Enabled {
		for i := 0; i < RegisterCount; i++ {
			if vm.CPU.R[i] != regsBefore[i] {
				vm.RegisterTrace.RecordWrite(vm.CPU.Cycles, inst.Address, RegisterNames[i], regsBefore[i], vm.CPU.R[i])
			}
		}
	}
	if vm.ExecutionTrace != nil && vm.ExecutionTrace.Enabled {
		disasm := fmt.Sprintf("0x%02X", inst.Op)
		if vm.Disassembler != nil {
			disasm, _ = vm.Disassembler(vm.Memory, inst.Address, vm.CPU.ImageWidth)
		}
		vm.ExecutionTrace.RecordInstruction(vm, disasm)
	}

	return nil
}

// halt implements the `halt` opcode and the implicit halt-on-PC==0 path:
// it notifies the host and stops the run loop.
func (vm *VM) halt() {
	vm.State = StateHalted
	if vm.Host != nil {
		vm.Host.Halt(vm)
	}
}

// illegalInstruction: emit a diagnostic and hard-terminate.
// This is not recoverable by the image.
func (vm *VM) illegalInstruction(inst *Instruction) error {
	vm.State = StateError
	second := uint8(0)
	if inst.HasByte1 {
		second = inst.Byte1
	}
	vm.LastError = fmt.Errorf(
		"illegal instruction at 0x%X: byte0=0x%02X byte1=0x%02X regs=%v",
		inst.Address, inst.Op, second, vm.CPU.R,
	)
	if vm.Host != nil {
		vm.Host.HardTermination(vm, inst.Op, second)
	}
	return vm.LastError
}

// Run executes instructions until halt or error.
func (vm *VM) Run() (uint64, error) {
	vm.State = StateRunning
	startCycles := vm.CPU.Cycles
	for vm.State == StateRunning {
		if err := vm.Step(); err != nil {
			return vm.CPU.Cycles - startCycles, err
		}
	}
	return vm.CPU.Cycles - startCycles, nil
}

// Execute dispatches a decoded instruction to its family handler. The
// returned bool is true when the handler redirected RPC itself (a control
// transfer), suppressing the automatic pc advance.
func (vm *VM) Execute(inst *Instruction) (bool, error) {
	switch inst.LengthClass {
	case LengthClassOne:
		return vm.executeOneByte(inst)
	case LengthClassTwo:
		return vm.executeTwoByte(inst)
	case LengthClassWidth:
		return vm.executeWidthImm(inst)
	default: // LengthClassFour
		return vm.executeFourByte(inst)
	}
}

// mnemonicFor gives a coarse opcode label for statistics; the disassembler
// (an external collaborator) is the authority on exact mnemonics.
func mnemonicFor(inst *Instruction) string {
	return fmt.Sprintf("class%d/0x%02X", inst.LengthClass, inst.Op)
}
