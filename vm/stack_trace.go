package vm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// StackOperation represents a stack operation type
type StackOperation string

const (
	StackPush StackOperation = "PUSH"
	StackPop  StackOperation = "POP"
)

// StackTraceEntry represents a single push or pop against the native-word
// stack. Unlike a register-addressed ISA there is no "register
// involved" to record: every push/pop moves whatever value the opcode
// handler gave it, addressed purely through RSP.
type StackTraceEntry struct {
	Cycle     uint64         // cycle count this operation happened on
	PC        uint64         // RPC of the instruction that caused it
	Operation StackOperation // PUSH or POP
	SP        uint64         // stack pointer before the push / after the pop's predecrement is undone
	Value     uint64         // value pushed or popped
}

// StackTrace tracks stack operations and detects overflow/underflow against
// a configured [StackBase, StackTop] range. StackBase is the lowest
// address the stack may grow down to; StackTop is the initial RSP.
type StackTrace struct {
	Enabled bool
	Writer  io.Writer

	StackBase uint64
	StackTop  uint64

	entries    []StackTraceEntry
	maxEntries int
	currentSP  uint64
	minSP      uint64
	maxSP      uint64

	totalPushes    uint64
	totalPops      uint64
	totalBytes     uint64
	overflowCount  uint64
	underflowCount uint64
}

// NewStackTrace creates a new stack trace tracker
func NewStackTrace(writer io.Writer, stackBase, stackTop uint64) *StackTrace {
	return &StackTrace{
		Writer:     writer,
		StackBase:  stackBase,
		StackTop:   stackTop,
		entries:    make([]StackTraceEntry, 0, 1000),
		maxEntries: 100000,
		currentSP:  stackTop,
		minSP:      stackTop,
		maxSP:      stackTop,
	}
}

// Start starts stack tracing
func (s *StackTrace) Start(initialSP uint64) {
	s.entries = s.entries[:0]
	s.currentSP = initialSP
	s.minSP = initialSP
	s.maxSP = initialSP
	s.totalPushes = 0
	s.totalPops = 0
	s.totalBytes = 0
	s.overflowCount = 0
	s.underflowCount = 0
}

// RecordPush records a push of value at stack pointer sp, the RSP value
// before Push() decremented it by NativeWordSize.
func (s *StackTrace) RecordPush(cycle, pc, sp, value uint64) {
	if !s.Enabled {
		return
	}

	newSP := sp - NativeWordSize
	s.totalPushes++
	s.updateTracking(newSP, NativeWordSize)

	if s.StackBase != 0 && newSP < s.StackBase {
		s.overflowCount++
	}

	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		return
	}
	s.entries = append(s.entries, StackTraceEntry{
		Cycle: cycle, PC: pc, Operation: StackPush, SP: sp, Value: value,
	})
}

// RecordPop records a pop of value from stack pointer sp, the RSP value
// before Pop() incremented it by NativeWordSize.
func (s *StackTrace) RecordPop(cycle, pc, sp, value uint64) {
	if !s.Enabled {
		return
	}

	newSP := sp + NativeWordSize
	s.totalPops++
	s.updateTracking(newSP, NativeWordSize)

	if s.StackTop != 0 && newSP > s.StackTop {
		s.underflowCount++
	}

	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		return
	}
	s.entries = append(s.entries, StackTraceEntry{
		Cycle: cycle, PC: pc, Operation: StackPop, SP: sp, Value: value,
	})
}

// updateTracking updates internal tracking state
func (s *StackTrace) updateTracking(newSP, bytes uint64) {
	s.currentSP = newSP
	s.totalBytes += bytes

	if newSP < s.minSP {
		s.minSP = newSP
	}
	if newSP > s.maxSP {
		s.maxSP = newSP
	}
}

// GetStackUsage returns the maximum stack usage in bytes
func (s *StackTrace) GetStackUsage() uint64 {
	if s.StackTop >= s.minSP {
		return s.StackTop - s.minSP
	}
	return 0
}

// GetStackDepth returns current stack depth in bytes
func (s *StackTrace) GetStackDepth() uint64 {
	if s.StackTop >= s.currentSP {
		return s.StackTop - s.currentSP
	}
	return 0
}

// HasOverflow returns whether stack overflow was detected
func (s *StackTrace) HasOverflow() bool {
	return s.overflowCount > 0
}

// HasUnderflow returns whether stack underflow was detected
func (s *StackTrace) HasUnderflow() bool {
	return s.underflowCount > 0
}

// GetEntries returns all stack trace entries
func (s *StackTrace) GetEntries() []StackTraceEntry {
	return s.entries
}

// Flush writes stack trace report to the writer
func (s *StackTrace) Flush() error {
	if s.Writer == nil {
		return nil
	}

	header := "Stack Trace Report\n"
	header += "==================\n\n"

	header += "Stack Configuration:\n"
	header += fmt.Sprintf("  Base (low):       0x%X\n", s.StackBase)
	header += fmt.Sprintf("  Top (high):       0x%X\n", s.StackTop)
	if s.StackTop > s.StackBase {
		header += fmt.Sprintf("  Total Size:       %d bytes\n\n", s.StackTop-s.StackBase)
	}

	header += "Stack Usage:\n"
	header += fmt.Sprintf("  Max Depth:        %d bytes\n", s.GetStackUsage())
	header += fmt.Sprintf("  Current Depth:    %d bytes\n", s.GetStackDepth())
	header += fmt.Sprintf("  Min SP:           0x%X\n", s.minSP)
	header += fmt.Sprintf("  Max SP:           0x%X\n\n", s.maxSP)

	header += "Operations:\n"
	header += fmt.Sprintf("  Total Pushes:     %d\n", s.totalPushes)
	header += fmt.Sprintf("  Total Pops:       %d\n", s.totalPops)
	header += fmt.Sprintf("  Total Bytes:      %d\n\n", s.totalBytes)

	if s.overflowCount > 0 || s.underflowCount > 0 {
		header += "WARNINGS:\n"
		if s.overflowCount > 0 {
			header += fmt.Sprintf("  ⚠️  Stack overflow detected: %d times (RSP < 0x%X)\n", s.overflowCount, s.StackBase)
		}
		if s.underflowCount > 0 {
			header += fmt.Sprintf("  ⚠️  Stack underflow detected: %d times (RSP > 0x%X)\n", s.underflowCount, s.StackTop)
		}
		header += "\n"
	}

	if _, err := s.Writer.Write([]byte(header)); err != nil {
		return err
	}

	if _, err := s.Writer.Write([]byte("Stack Operations:\n-----------------\n")); err != nil {
		return err
	}

	for _, entry := range s.entries {
		if _, err := s.Writer.Write([]byte(s.formatEntry(entry))); err != nil {
			return err
		}
	}

	return nil
}

// formatEntry formats a stack trace entry for output
func (s *StackTrace) formatEntry(entry StackTraceEntry) string {
	var line string

	switch entry.Operation {
	case StackPush:
		line = fmt.Sprintf("[%8d] 0x%X: PUSH  RSP: 0x%X -> 0x%X  value=0x%X",
			entry.Cycle, entry.PC, entry.SP, entry.SP-NativeWordSize, entry.Value)
		if entry.SP-NativeWordSize < s.StackBase {
			line += " ⚠️ OVERFLOW"
		}
	default: // StackPop
		line = fmt.Sprintf("[%8d] 0x%X: POP   RSP: 0x%X -> 0x%X  value=0x%X",
			entry.Cycle, entry.PC, entry.SP, entry.SP+NativeWordSize, entry.Value)
		if entry.SP+NativeWordSize > s.StackTop {
			line += " ⚠️ UNDERFLOW"
		}
	}

	line += "\n"
	return line
}

// ExportJSON exports stack trace data as JSON
func (s *StackTrace) ExportJSON(w io.Writer) error {
	data := map[string]interface{}{
		"stack_base":      s.StackBase,
		"stack_top":       s.StackTop,
		"max_usage":       s.GetStackUsage(),
		"current_depth":   s.GetStackDepth(),
		"min_sp":          s.minSP,
		"max_sp":          s.maxSP,
		"total_pushes":    s.totalPushes,
		"total_pops":      s.totalPops,
		"total_bytes":     s.totalBytes,
		"overflow_count":  s.overflowCount,
		"underflow_count": s.underflowCount,
		"entries":         s.entries,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// String returns a formatted string representation
func (s *StackTrace) String() string {
	var sb strings.Builder

	sb.WriteString("Stack Trace Summary\n")
	sb.WriteString("===================\n\n")

	sb.WriteString(fmt.Sprintf("Max Stack Usage:    %d bytes\n", s.GetStackUsage()))
	sb.WriteString(fmt.Sprintf("Current Depth:      %d bytes\n", s.GetStackDepth()))
	sb.WriteString(fmt.Sprintf("Total Pushes:       %d\n", s.totalPushes))
	sb.WriteString(fmt.Sprintf("Total Pops:         %d\n", s.totalPops))

	if s.overflowCount > 0 || s.underflowCount > 0 {
		sb.WriteString("\nWARNINGS:\n")
		if s.overflowCount > 0 {
			sb.WriteString(fmt.Sprintf("  ⚠️  Stack overflow:  %d times\n", s.overflowCount))
		}
		if s.underflowCount > 0 {
			sb.WriteString(fmt.Sprintf("  ⚠️  Stack underflow: %d times\n", s.underflowCount))
		}
	}

	return sb.String()
}
