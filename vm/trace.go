package vm

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// TraceEntry represents a single execution trace entry
type TraceEntry struct {
	Sequence        uint64            // Instruction sequence number (cycle count)
	Address         uint64            // Instruction address
	Disassembly     string            // Disassembled instruction
	RegisterChanges map[string]uint64 // Register changes (name -> new value)
	Duration        time.Duration     // Execution time
}

// ExecutionTrace manages execution tracing
type ExecutionTrace struct {
	Enabled       bool
	Writer        io.Writer
	FilterRegs    map[string]bool // Registers to track (empty = all)
	IncludeTiming bool
	MaxEntries    int

	entries      []TraceEntry
	startTime    time.Time
	lastSnapshot map[string]uint64 // Previous register values
}

// NewExecutionTrace creates a new execution trace
func NewExecutionTrace(writer io.Writer) *ExecutionTrace {
	return &ExecutionTrace{
		Enabled:       true,
		Writer:        writer,
		FilterRegs:    make(map[string]bool),
		IncludeTiming: true,
		MaxEntries:    100000,
		entries:       make([]TraceEntry, 0, 1000),
		lastSnapshot:  make(map[string]uint64),
	}
}

// SetFilterRegisters sets which registers to track
// Pass empty slice or nil to track all registers
func (t *ExecutionTrace) SetFilterRegisters(regs []string) {
	t.FilterRegs = make(map[string]bool)
	for _, reg := range regs {
		t.FilterRegs[strings.ToUpper(reg)] = true
	}
}

// Start starts the trace
func (t *ExecutionTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
	t.lastSnapshot = make(map[string]uint64)
}

// RecordInstruction records an instruction execution. vm.InstructionLog's
// last entry is the address of the instruction just executed, since Step
// appends it before dispatch and RPC may already have advanced by the time
// this is called.
func (t *ExecutionTrace) RecordInstruction(vm *VM, disasm string) {
	if !t.Enabled {
		return
	}

	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	var addr uint64
	if n := len(vm.InstructionLog); n > 0 {
		addr = vm.InstructionLog[n-1]
	}

	entry := TraceEntry{
		Sequence:        vm.CPU.Cycles,
		Address:         addr,
		Disassembly:     disasm,
		RegisterChanges: make(map[string]uint64),
	}

	if t.IncludeTiming {
		entry.Duration = time.Since(t.startTime)
	}

	for i, name := range RegisterNames {
		if len(t.FilterRegs) > 0 && !t.FilterRegs[name] {
			continue
		}

		value := vm.CPU.R[i]
		if oldValue, exists := t.lastSnapshot[name]; !exists || oldValue != value {
			entry.RegisterChanges[name] = value
			t.lastSnapshot[name] = value
		}
	}

	t.entries = append(t.entries, entry)
}

// Flush writes all trace entries to the writer
func (t *ExecutionTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}

	for _, entry := range t.entries {
		if err := t.writeEntry(entry); err != nil {
			return err
		}
	}

	return nil
}

// writeEntry writes a single trace entry
func (t *ExecutionTrace) writeEntry(entry TraceEntry) error {
	line := fmt.Sprintf("[%8d] 0x%X: %-30s", entry.Sequence, entry.Address, entry.Disassembly)

	if len(entry.RegisterChanges) > 0 {
		changes := make([]string, 0, len(entry.RegisterChanges))
		for name, value := range entry.RegisterChanges {
			changes = append(changes, fmt.Sprintf("%s=0x%X", name, value))
		}
		line += " | " + strings.Join(changes, " ")
	} else {
		line += " | (no changes)"
	}

	if t.IncludeTiming {
		line += fmt.Sprintf(" | %v", entry.Duration)
	}

	line += "\n"

	_, err := t.Writer.Write([]byte(line))
	return err
}

// GetEntries returns all trace entries
func (t *ExecutionTrace) GetEntries() []TraceEntry {
	return t.entries
}

// Clear clears all trace entries
func (t *ExecutionTrace) Clear() {
	t.entries = t.entries[:0]
	t.lastSnapshot = make(map[string]uint64)
}

// MemoryAccessEntry represents a memory access
type MemoryAccessEntry struct {
	Sequence  uint64        // Instruction sequence number
	Address   uint64        // Memory address accessed
	PC        uint64        // Program counter at time of access
	Type      string        // "READ" or "WRITE"
	Size      string        // e.g. "1", "2", "4", "8"
	Value     uint64        // Value read or written
	Timestamp time.Duration // Time since start
}

// MemoryTrace manages memory access tracing
type MemoryTrace struct {
	Enabled    bool
	Writer     io.Writer
	MaxEntries int

	entries   []MemoryAccessEntry
	startTime time.Time
}

// NewMemoryTrace creates a new memory trace
func NewMemoryTrace(writer io.Writer) *MemoryTrace {
	return &MemoryTrace{
		Enabled:    true,
		Writer:     writer,
		MaxEntries: 100000,
		entries:    make([]MemoryAccessEntry, 0, 1000),
	}
}

// Start starts the memory trace
func (t *MemoryTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
}

// RecordRead records a memory read
func (t *MemoryTrace) RecordRead(sequence uint64, pc, address, value uint64, size string) {
	if !t.Enabled {
		return
	}

	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	t.entries = append(t.entries, MemoryAccessEntry{
		Sequence:  sequence,
		Address:   address,
		PC:        pc,
		Type:      "READ",
		Size:      size,
		Value:     value,
		Timestamp: time.Since(t.startTime),
	})
}

// RecordWrite records a memory write
func (t *MemoryTrace) RecordWrite(sequence uint64, pc, address, value uint64, size string) {
	if !t.Enabled {
		return
	}

	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}

	t.entries = append(t.entries, MemoryAccessEntry{
		Sequence:  sequence,
		Address:   address,
		PC:        pc,
		Type:      "WRITE",
		Size:      size,
		Value:     value,
		Timestamp: time.Since(t.startTime),
	})
}

// Flush writes all memory trace entries to the writer
func (t *MemoryTrace) Flush() error {
	if t.Writer == nil {
		return nil
	}

	for _, entry := range t.entries {
		if err := t.writeEntry(entry); err != nil {
			return err
		}
	}

	return nil
}

// writeEntry writes a single memory trace entry
func (t *MemoryTrace) writeEntry(entry MemoryAccessEntry) error {
	var line string
	if entry.Type == "READ" {
		line = fmt.Sprintf("[%8d] [%-5s] 0x%X <- [0x%X] = 0x%X (%s)\n",
			entry.Sequence, entry.Type, entry.PC, entry.Address, entry.Value, entry.Size)
	} else {
		line = fmt.Sprintf("[%8d] [%-5s] 0x%X -> [0x%X] = 0x%X (%s)\n",
			entry.Sequence, entry.Type, entry.PC, entry.Address, entry.Value, entry.Size)
	}

	_, err := t.Writer.Write([]byte(line))
	return err
}

// GetEntries returns all memory trace entries
func (t *MemoryTrace) GetEntries() []MemoryAccessEntry {
	return t.entries
}

// Clear clears all memory trace entries
func (t *MemoryTrace) Clear() {
	t.entries = t.entries[:0]
}

// OpenTraceFile opens a trace file for writing
func OpenTraceFile(filename string) (*os.File, error) {
	return os.Create(filename)
}
