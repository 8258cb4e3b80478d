package service

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lookbusy1344/arm-emulator/debugger"
	"github.com/lookbusy1344/arm-emulator/encoder"
	"github.com/lookbusy1344/arm-emulator/loader"
	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

const (
	// Validator limits for API safety
	maxDisassemblyCount = 1000   // Maximum number of instructions to disassemble
	maxStackCount       = 1000   // Maximum number of stack entries to return
	maxStackOffset      = 100000 // Maximum stack offset to prevent wraparound attacks
	stepsBeforeYield    = 1000   // Yield every N steps during execution
)

var serviceLog *log.Logger

func init() {
	// Check if debug logging is enabled via environment variable
	if os.Getenv("OIVM_DEBUG") != "" {
		// Create debug log file.
		// Note: File handle intentionally not closed - kept open for process lifetime.
		// This is acceptable for debug logging; the OS cleans up on process exit.
		logPath := filepath.Join(os.TempDir(), "oivm-service-debug.log")
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			serviceLog = log.New(os.Stderr, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			serviceLog = log.New(f, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		// Disable logging by default
		serviceLog = log.New(io.Discard, "", 0)
	}
}

// DebuggerService provides a thread-safe interface to debugger functionality.
// This service is shared by the TUI, CLI, and remote (websocket API) hosts.
//
// Lock Ordering:
// The service uses its own sync.RWMutex (s.mu) to protect all field access,
// including access to the debugger. When calling Debugger methods that have
// their own internal mutex (like ShouldBreak), the lock order is:
// s.mu -> debugger.mu
//
// This is safe because:
// - The TUI uses the Debugger's internal mutex directly (no service mutex)
// - The service always acquires s.mu before any Debugger method that uses d.mu
// - The remote API only accesses debugger state through the service
//
// Do NOT acquire locks in the reverse order (debugger.mu -> s.mu) as this
// would create a deadlock risk.
type DebuggerService struct {
	mu                   sync.RWMutex
	vm                   *vm.VM
	debugger             *debugger.Debugger
	symbols              map[string]uint64
	sourceMap            []SourceMapEntry  // Address to source line mapping with line numbers
	sourceMapByAddr      map[uint64]string // Quick lookup by address (for debugger)
	program              *parser.Program
	layout               *loader.Layout
	outputWriter         *bytes.Buffer
	stateChangedCallback func() // Callback for remote-host state broadcasting

	// stdin redirection for guest programs
	stdinPipeReader *io.PipeReader
	stdinPipeWriter *io.PipeWriter
	stdinBuffer     strings.Builder // Buffer for stdin sent before execution starts
}

// NewDebuggerService creates a new debugger service
func NewDebuggerService(machine *vm.VM) *DebuggerService {
	// Setup stdin pipe for guest program input
	stdinReader, stdinWriter := io.Pipe()
	machine.SetStdinReader(stdinReader)

	return &DebuggerService{
		vm:              machine,
		debugger:        debugger.NewDebugger(machine),
		symbols:         make(map[string]uint64),
		sourceMap:       nil,
		sourceMapByAddr: make(map[uint64]string),
		stdinPipeReader: stdinReader,
		stdinPipeWriter: stdinWriter,
	}
}

// GetVM returns the underlying VM (for testing)
func (s *DebuggerService) GetVM() *vm.VM {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vm
}

// SetStateChangedCallback sets a callback invoked after every step, used by
// remote hosts to broadcast state changes to subscribed clients
func (s *DebuggerService) SetStateChangedCallback(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateChangedCallback = callback
}

func (s *DebuggerService) notifyStateChangedLocked() {
	if s.stateChangedCallback != nil {
		s.stateChangedCallback()
	}
}

// LoadProgram assembles a parsed program into an OI image and loads it into
// the VM. entryPoint resolution follows the encoder's own rule: the
// .entry label if one was declared, else the .org origin, else zero.
func (s *DebuggerService) LoadProgram(program *parser.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := encoder.EncodeProgram(program)
	if err != nil {
		return fmt.Errorf("failed to encode program: %w", err)
	}

	// Entry PC resolution mirrors the encoder's own rule: the .entry label
	// if one was declared, else the .org origin, else zero.
	entryPC := uint64(0)
	if program.EntryLabel != "" {
		addr, err := program.SymbolTable.Get(program.EntryLabel)
		if err != nil {
			return fmt.Errorf(".entry: %w", err)
		}
		entryPC = addr
	} else if program.OriginSet {
		entryPC = program.Origin
	}

	image, err := loader.BuildImage(program.ImageWidth, body, nil, 0,
		uint32(program.StackSize), uint32(program.RamRequired), entryPC) // #nosec G115 -- parser-bounded sizes
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}

	// Extract symbols
	s.symbols = make(map[string]uint64)
	for name, symbol := range program.SymbolTable.GetAllSymbols() {
		if symbol.Type == parser.SymbolLabel {
			s.symbols[name] = symbol.Value
		}
	}

	// Build source map with line numbers. Instructions are valid breakpoint
	// locations; data directives are kept for display but tagged so they
	// can be rejected as breakpoint targets.
	s.sourceMap = nil
	s.sourceMapByAddr = make(map[uint64]string)
	for _, item := range program.Items {
		switch {
		case item.Instruction != nil:
			inst := item.Instruction
			entry := SourceMapEntry{
				Address:    inst.Address,
				LineNumber: inst.Pos.Line,
				Line:       inst.RawLine,
			}
			s.sourceMap = append(s.sourceMap, entry)
			s.sourceMapByAddr[inst.Address] = inst.RawLine
		case item.Directive != nil:
			dir := item.Directive
			switch dir.Name {
			case "word", "half", "byte", "ascii", "asciz", "string", "space", "skip":
				s.sourceMapByAddr[dir.Address] = "[DATA]" + dir.RawLine
			}
		}
	}

	// Create output buffer.
	// IMPORTANT: Only set OutputWriter if it hasn't been configured already.
	// The remote API sets up its own broadcasting writer before calling
	// LoadProgram; the CLI/TUI leave OutputWriter at its default (os.Stdout)
	// so the service takes over buffering here.
	if s.vm.OutputWriter == os.Stdout {
		s.outputWriter = &bytes.Buffer{}
		s.vm.OutputWriter = s.outputWriter
	}

	// Load into debugger
	s.debugger.LoadSymbols(s.symbols)
	s.debugger.LoadSourceMap(s.sourceMapByAddr)

	// Load into VM memory; Reset() (called internally) installs the RAM
	// layout, stack pointer and PC from the image header.
	layout, err := loader.LoadImage(s.vm, image)
	if err != nil {
		return err
	}
	s.program = program
	s.layout = layout

	// Reset execution state to halted (not running until execution begins)
	s.vm.State = vm.StateHalted
	s.debugger.Running = false

	return nil
}

// GetRegisterState returns current register state (thread-safe)
func (s *DebuggerService) GetRegisterState() RegisterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var regs RegisterState
	regs.Registers = s.vm.CPU.R
	regs.ImageWidth = s.vm.CPU.ImageWidth
	regs.Cycles = s.vm.CPU.Cycles
	return regs
}

// Step executes a single instruction
func (s *DebuggerService) Step() error {
	s.mu.Lock()
	// Release lock BEFORE Step() because Step() may block on stdin read.
	// This allows SendInput() to acquire RLock and write to the stdin pipe.
	s.mu.Unlock()

	err := s.vm.Step()

	s.mu.Lock()
	s.notifyStateChangedLocked()
	s.mu.Unlock()

	return err
}

// Continue runs until breakpoint or halt
func (s *DebuggerService) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.Running = true
	s.debugger.StepMode = debugger.StepNone

	return nil
}

// Pause pauses execution and sets VM state to halted
func (s *DebuggerService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Running = false
	s.vm.State = vm.StateHalted
}

// Reset performs a complete reset to initial state.
// This clears the loaded program, all breakpoints, and resets the VM to
// pristine (empty-memory) state.
// Use ResetToEntryPoint() if you want to restart the current program instead.
func (s *DebuggerService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vm.Reset(0, 0, 0, s.vm.CPU.ImageWidth)

	// Reinstall this session's stdin pipe; Reset() otherwise leaves the
	// VM's stdinReader pointed at whatever it had before.
	s.vm.SetStdinReader(s.stdinPipeReader)

	// Clear loaded program and associated metadata
	s.program = nil
	s.layout = nil
	s.vm.EntryPoint = 0
	s.vm.StackTop = 0
	s.symbols = make(map[string]uint64)
	s.sourceMap = nil
	s.sourceMapByAddr = make(map[uint64]string)

	// Clear all breakpoints
	s.debugger.Breakpoints.Clear()

	// Reset execution control
	s.debugger.Running = false
	s.vm.State = vm.StateHalted

	return nil
}

// ResetToEntryPoint resets VM to the program's entry point without clearing
// the loaded program. Useful for restarting execution of the current program.
func (s *DebuggerService) ResetToEntryPoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program == nil || s.layout == nil {
		// No program loaded, perform full reset
		s.vm.Reset(0, 0, 0, s.vm.CPU.ImageWidth)
		s.vm.State = vm.StateHalted
		s.debugger.Running = false
		return nil
	}

	// Re-run the same image load to restore registers and re-zero memory.
	body, err := encoder.EncodeProgram(s.program)
	if err != nil {
		return fmt.Errorf("failed to re-encode program: %w", err)
	}
	image, err := loader.BuildImage(s.layout.ImageWidth, body, nil, 0,
		uint32(s.program.StackSize), uint32(s.program.RamRequired), s.layout.EntryPC) // #nosec G115 -- parser-bounded sizes
	if err != nil {
		return fmt.Errorf("failed to rebuild image: %w", err)
	}
	layout, err := loader.LoadImage(s.vm, image)
	if err != nil {
		return fmt.Errorf("failed to reload image: %w", err)
	}
	s.layout = layout

	s.vm.State = vm.StateHalted
	s.debugger.Running = false

	return nil
}

// GetExecutionState returns current execution state
func (s *DebuggerService) GetExecutionState() ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return VMStateToExecution(s.vm.State)
}

// AddBreakpoint adds a breakpoint at the specified address
func (s *DebuggerService) AddBreakpoint(address uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate that the address corresponds to actual code (not data)
	// Use sourceMapByAddr which contains both code and data entries
	line, exists := s.sourceMapByAddr[address]
	if !exists {
		return fmt.Errorf("invalid breakpoint address: 0x%X does not correspond to executable code", address)
	}
	// Reject data locations (prefixed with [DATA])
	if strings.HasPrefix(line, "[DATA]") {
		return fmt.Errorf("invalid breakpoint address: 0x%X is a data location, not executable code", address)
	}

	s.debugger.Breakpoints.AddBreakpoint(address, false, "")
	return nil
}

// RemoveBreakpoint removes a breakpoint
func (s *DebuggerService) RemoveBreakpoint(address uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Breakpoints.DeleteBreakpointAt(address)
}

// GetBreakpoints returns all breakpoints
func (s *DebuggerService) GetBreakpoints() []BreakpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bps := s.debugger.Breakpoints.GetAllBreakpoints()
	result := make([]BreakpointInfo, len(bps))
	for i, bp := range bps {
		result[i] = BreakpointInfo{
			Address: bp.Address,
			Enabled: bp.Enabled,
		}
	}
	return result
}

// ClearAllBreakpoints removes all breakpoints
func (s *DebuggerService) ClearAllBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Breakpoints.Clear()
}

// GetMemory returns memory contents for a region
func (s *DebuggerService) GetMemory(address uint64, size uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	serviceLog.Printf("GetMemory: address=0x%X, size=%d", address, size)
	data := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		b, err := s.vm.Memory.ReadByte(address + i)
		if err != nil {
			serviceLog.Printf("GetMemory: ReadByte failed at offset %d: %v", i, err)
			// Return 0 for unmapped or unreadable memory instead of failing the whole request
			// This allows the memory view to show partial results at segment boundaries
			data[i] = 0
			continue
		}
		data[i] = b
	}
	serviceLog.Printf("GetMemory: success, returning %d bytes", len(data))
	return data, nil
}

// GetSourceLine returns the source line for an address
func (s *DebuggerService) GetSourceLine(address uint64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceMapByAddr[address]
}

// GetSourceMap returns the source map entries with line numbers
func (s *DebuggerService) GetSourceMap() []SourceMapEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return copy of source map to prevent external modification
	result := make([]SourceMapEntry, len(s.sourceMap))
	copy(result, s.sourceMap)
	return result
}

// GetSourceMapByAddr returns address-to-line lookup (for debugger display)
func (s *DebuggerService) GetSourceMapByAddr() map[uint64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return copy to prevent external modification
	result := make(map[uint64]string, len(s.sourceMapByAddr))
	for addr, line := range s.sourceMapByAddr {
		result[addr] = line
	}
	return result
}

// GetSymbols returns all symbols
func (s *DebuggerService) GetSymbols() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to prevent external modification
	symbols := make(map[string]uint64, len(s.symbols))
	for k, v := range s.symbols {
		symbols[k] = v
	}
	return symbols
}

// GetSymbolForAddress resolves an address to a symbol name
func (s *DebuggerService) GetSymbolForAddress(addr uint64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSymbolForAddressUnsafe(addr)
}

// RunUntilHalt runs program until halt or breakpoint.
// If Running is already false (e.g., paused before goroutine started), returns immediately.
// This handles the race where Pause() is called between Continue() setting Running=true
// and this function starting execution.
func (s *DebuggerService) RunUntilHalt() error {
	serviceLog.Println("RunUntilHalt() called")
	s.mu.Lock()
	// Check if already paused before we started (handles race with Pause())
	if !s.debugger.Running {
		serviceLog.Println("RunUntilHalt() - already paused, exiting early")
		s.mu.Unlock()
		return nil
	}

	// Flush any buffered stdin to the pipe in a background goroutine
	// This supports the batch stdin pattern where input is sent before calling run
	// We use a goroutine because pipe writes block until there's a reader,
	// but the reader only starts when the VM execution loop begins
	if s.stdinBuffer.Len() > 0 {
		buffered := s.stdinBuffer.String()
		s.stdinBuffer.Reset()
		serviceLog.Printf("Flushing %d bytes of buffered stdin in background", len(buffered))

		// Launch goroutine to write to pipe (won't block RunUntilHalt)
		go func() {
			if _, err := s.stdinPipeWriter.Write([]byte(buffered)); err != nil {
				serviceLog.Printf("Error writing buffered stdin to pipe: %v", err)
			}
		}()
	}

	s.vm.State = vm.StateRunning
	s.mu.Unlock()

	stepCount := 0

	for {
		s.mu.Lock()
		if !s.debugger.Running || s.vm.State != vm.StateRunning {
			serviceLog.Printf("Exiting loop: Running=%v, State=%v", s.debugger.Running, s.vm.State)
			s.mu.Unlock()
			break
		}

		// Check breakpoints
		if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
			serviceLog.Println("Breakpoint hit")
			s.debugger.Running = false
			s.vm.State = vm.StateBreakpoint
			s.notifyStateChangedLocked()
			s.mu.Unlock()
			break
		}

		// Capture values needed for step
		pc := s.vm.CPU.R[vm.RPC]

		// Release lock BEFORE Step() because Step() may block on stdin read.
		// This allows SendInput() to acquire RLock and write to the stdin pipe.
		s.mu.Unlock()

		// Execute step (without holding lock - Step may block on stdin)
		err := s.vm.Step()

		// Reacquire lock to check state
		s.mu.Lock()
		halted := s.vm.State == vm.StateHalted
		s.notifyStateChangedLocked()
		s.mu.Unlock()

		if stepCount == 0 {
			serviceLog.Printf("Executing at PC=0x%X", pc)
		}

		// If error but VM is halted, it's normal program termination
		if err != nil && !halted {
			serviceLog.Printf("Step error: %v", err)
			s.mu.Lock()
			s.debugger.Running = false
			s.mu.Unlock()
			return err
		}

		if halted {
			serviceLog.Println("VM halted")
			s.mu.Lock()
			s.debugger.Running = false
			s.mu.Unlock()
			break
		}

		// Periodically yield to allow remote clients to query state
		stepCount++
		if stepCount >= stepsBeforeYield {
			serviceLog.Printf("Yielding after %d steps", stepCount)
			stepCount = 0
			// Brief sleep to yield to scheduler and allow queries
			time.Sleep(1 * time.Millisecond)
		}
	}

	serviceLog.Println("RunUntilHalt() completed")
	return nil
}

// IsRunning returns whether execution is in progress
func (s *DebuggerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debugger.Running
}

// SetRunning sets the running state synchronously.
// Used by async execution methods to set state before launching goroutines.
func (s *DebuggerService) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Running = running
	if running {
		s.vm.State = vm.StateRunning
	} else {
		// Don't override other states (halted, error, breakpoint)
		if s.vm.State == vm.StateRunning {
			s.vm.State = vm.StateHalted
		}
	}
}

// GetExitCode returns the program exit code
func (s *DebuggerService) GetExitCode() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vm.ExitCode
}

// GetOutput returns captured program output (clears buffer)
func (s *DebuggerService) GetOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outputWriter == nil {
		return ""
	}

	output := s.outputWriter.String()
	s.outputWriter.Reset()
	return output
}

// GetDisassembly returns disassembled instructions starting at address.
// Returns an empty slice if inputs are invalid or memory reads fail.
// Truncates the result if memory errors occur before count is reached.
//
// Unlike ARM's fixed 4-byte instructions, OI instructions are variable
// length (1, 2, 1+image_width, or 4 bytes), so each line's length is read
// from the opcode's low 2 bits rather than assumed.
func (s *DebuggerService) GetDisassembly(startAddr uint64, count int) []DisassemblyLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > maxDisassemblyCount {
		return []DisassemblyLine{}
	}

	if s.vm == nil {
		return []DisassemblyLine{}
	}

	lines := make([]DisassemblyLine, 0, count)
	addr := startAddr

	for i := 0; i < count; i++ {
		opcode, err := s.vm.Memory.ReadByte(addr)
		if err != nil {
			// Memory read error - return what we have so far (truncated result)
			break
		}

		length := vm.InstructionByteLen(opcode, s.vm.CPU.ImageWidth)

		symbol := s.getSymbolForAddressUnsafe(addr)

		mnemonic := ""
		if sourceLine, ok := s.sourceMapByAddr[addr]; ok {
			mnemonic = sourceLine
		}

		line := DisassemblyLine{
			Address:  addr,
			Opcode:   opcode,
			Length:   uint64(length),
			Mnemonic: mnemonic,
			Symbol:   symbol,
		}

		lines = append(lines, line)
		addr += uint64(length)
	}

	return lines
}

// GetStack returns stack contents from SP+offset, one image word per entry.
// Returns an empty slice if inputs are invalid or memory reads fail.
//
// Parameters:
//   - offset: stack offset in image words (multiplied by image width for
//     byte offset). Must be in range [-maxStackOffset, maxStackOffset] to
//     prevent wraparound attacks.
//   - count: number of stack entries to read. Must be positive and <= maxStackCount.
func (s *DebuggerService) GetStack(offset int, count int) []StackEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > maxStackCount {
		return []StackEntry{}
	}

	if offset < -maxStackOffset || offset > maxStackOffset {
		return []StackEntry{}
	}

	if s.vm == nil {
		return []StackEntry{}
	}

	width := uint64(s.vm.CPU.ImageWidth)
	if width == 0 {
		return []StackEntry{}
	}

	entries := make([]StackEntry, 0, count)
	sp := s.vm.CPU.R[vm.RSP]

	offsetBytes := int64(offset) * int64(width)
	newAddr := int64(sp) + offsetBytes
	if newAddr < 0 {
		return []StackEntry{}
	}
	startAddr := uint64(newAddr)

	for i := 0; i < count; i++ {
		addr := startAddr + uint64(i)*width
		if addr < startAddr {
			// Address wrapped around - return what we have so far
			break
		}

		value, err := s.vm.Memory.ReadImageWord(addr, s.vm.CPU.ImageWidth)
		if err != nil {
			// Memory read error - return what we have so far (truncated result)
			break
		}

		symbol := s.getSymbolForAddressUnsafe(value)

		entries = append(entries, StackEntry{
			Address: addr,
			Value:   value,
			Symbol:  symbol,
		})
	}

	return entries
}

// getSymbolForAddressUnsafe is the internal version without locking
func (s *DebuggerService) getSymbolForAddressUnsafe(addr uint64) string {
	for name, symbolAddr := range s.symbols {
		if symbolAddr == addr {
			return name
		}
	}
	return ""
}

// StepOver executes one instruction, stepping over function calls
func (s *DebuggerService) StepOver() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debugger == nil || s.program == nil {
		return fmt.Errorf("no program loaded")
	}

	// Use debugger's SetStepOver to configure mode
	s.debugger.SetStepOver()

	// Execute until step completes
	for s.debugger.Running {
		// Check if we should break
		if s.debugger.StepMode != debugger.StepSingle {
			if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
				s.debugger.Running = false
				break
			}
		}

		// Release lock BEFORE Step() because Step() may block on stdin read.
		s.mu.Unlock()

		// Execute one instruction
		err := s.vm.Step()

		// Re-acquire lock
		s.mu.Lock()

		if err != nil {
			s.debugger.Running = false
			return err
		}

		// For single-step mode, check after execution
		if s.debugger.StepMode == debugger.StepSingle {
			if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
				s.debugger.Running = false
				break
			}
		}
	}

	return nil
}

// StepOut executes until the current function returns
func (s *DebuggerService) StepOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debugger == nil || s.program == nil {
		return fmt.Errorf("no program loaded")
	}

	// Use debugger's public method instead of accessing fields directly
	s.debugger.SetStepOut()

	return nil
}

// AddWatchpoint adds a watchpoint at the specified address
func (s *DebuggerService) AddWatchpoint(address uint64, watchType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debugger == nil {
		return fmt.Errorf("no program loaded")
	}

	// Convert string type to debugger.WatchType
	var wpType debugger.WatchType
	switch watchType {
	case "read":
		wpType = debugger.WatchRead
	case "write":
		wpType = debugger.WatchWrite
	case "readwrite":
		wpType = debugger.WatchReadWrite
	default:
		return fmt.Errorf("invalid watchpoint type: %s", watchType)
	}

	// Add watchpoint (address watchpoint, not register)
	// expression is the formatted address, isRegister=false, register=0
	expression := fmt.Sprintf("[0x%X]", address)
	s.debugger.Watchpoints.AddWatchpoint(wpType, expression, address, false, 0)

	return nil
}

// RemoveWatchpoint removes a watchpoint by ID
func (s *DebuggerService) RemoveWatchpoint(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debugger == nil {
		return fmt.Errorf("no program loaded")
	}

	return s.debugger.Watchpoints.DeleteWatchpoint(id)
}

// GetWatchpoints returns all watchpoints
func (s *DebuggerService) GetWatchpoints() []WatchpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.debugger == nil {
		return []WatchpointInfo{}
	}

	wps := s.debugger.Watchpoints.GetAllWatchpoints()
	result := make([]WatchpointInfo, len(wps))
	for i, wp := range wps {
		var wpType string
		switch wp.Type {
		case debugger.WatchRead:
			wpType = "read"
		case debugger.WatchWrite:
			wpType = "write"
		case debugger.WatchReadWrite:
			wpType = "readwrite"
		}

		result[i] = WatchpointInfo{
			ID:      wp.ID,
			Address: wp.Address,
			Type:    wpType,
			Enabled: wp.Enabled,
		}
	}
	return result
}

// ExecuteCommand executes a debugger command and returns output
func (s *DebuggerService) ExecuteCommand(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debugger == nil {
		return "", fmt.Errorf("no program loaded")
	}

	// Execute command (debugger writes to its Output buffer)
	err := s.debugger.ExecuteCommand(command)

	// Get output and clear buffer
	output := s.debugger.GetOutput()

	return output, err
}

// EvaluateExpression evaluates an expression and returns the result
func (s *DebuggerService) EvaluateExpression(expr string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debugger == nil || s.debugger.Evaluator == nil {
		return 0, fmt.Errorf("no program loaded")
	}

	return s.debugger.Evaluator.EvaluateExpression(expr, s.vm, s.symbols)
}

// SendInput sends user input to the guest program's stdin.
// This is called from a remote host when the user provides input.
func (s *DebuggerService) SendInput(input string) error {
	if s.stdinPipeWriter == nil {
		return fmt.Errorf("stdin pipe not initialized")
	}

	// If not running, buffer the input for later (batch stdin pattern)
	s.mu.RLock()
	running := s.debugger.Running
	s.mu.RUnlock()

	if !running {
		s.mu.Lock()
		// Note: input should already include newline from API layer
		s.stdinBuffer.WriteString(input)
		s.mu.Unlock()
		serviceLog.Printf("SendInput: Buffered %d bytes for later", len(input))
		return nil
	}

	// VM is running - echo to output and write to pipe.
	// NOTE: No mutex lock for pipe write! io.Pipe is already thread-safe.
	// Taking a lock here causes deadlock when RunUntilHalt holds the lock while blocked on stdin read.

	// Echo the input to the output window so the user can see what they typed
	s.mu.RLock()
	outputWriter := s.vm.OutputWriter
	s.mu.RUnlock()

	if outputWriter != nil {
		_, _ = outputWriter.Write([]byte(input + "\n"))
	}

	// Write input + newline to the stdin pipe (io.Pipe.Write is thread-safe)
	_, err := s.stdinPipeWriter.Write([]byte(input + "\n"))
	return err
}

// EnableExecutionTrace enables execution tracing
func (s *DebuggerService) EnableExecutionTrace() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Create execution trace if it doesn't exist
	if s.vm.ExecutionTrace == nil {
		// Use a bytes buffer for the trace output
		var buf bytes.Buffer
		s.vm.ExecutionTrace = vm.NewExecutionTrace(&buf)
	}

	s.vm.ExecutionTrace.Enabled = true
	s.vm.ExecutionTrace.Start()
	return nil
}

// DisableExecutionTrace disables execution tracing
func (s *DebuggerService) DisableExecutionTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vm.ExecutionTrace != nil {
		s.vm.ExecutionTrace.Enabled = false
	}
}

// GetExecutionTraceData returns execution trace entries
func (s *DebuggerService) GetExecutionTraceData() ([]vm.TraceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vm.ExecutionTrace == nil {
		return []vm.TraceEntry{}, nil
	}

	return s.vm.ExecutionTrace.GetEntries(), nil
}

// ClearExecutionTrace clears execution trace entries
func (s *DebuggerService) ClearExecutionTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vm.ExecutionTrace != nil {
		s.vm.ExecutionTrace.Clear()
	}
}

// EnableStatistics enables performance statistics collection
func (s *DebuggerService) EnableStatistics() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Create statistics collector if it doesn't exist
	if s.vm.Statistics == nil {
		s.vm.Statistics = vm.NewPerformanceStatistics()
	}

	s.vm.Statistics.Enabled = true
	s.vm.Statistics.Start()
	return nil
}

// DisableStatistics disables performance statistics collection
func (s *DebuggerService) DisableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vm.Statistics != nil {
		s.vm.Statistics.Enabled = false
	}
}

// GetStatistics returns performance statistics
func (s *DebuggerService) GetStatistics() (*vm.PerformanceStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vm.Statistics == nil {
		return nil, fmt.Errorf("statistics not enabled")
	}

	// Finalize statistics before returning
	s.vm.Statistics.Finalize()

	return s.vm.Statistics, nil
}
