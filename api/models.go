package api

import (
	"time"

	"github.com/lookbusy1344/arm-emulator/service"
)

// SessionCreateRequest represents a request to create a new session.
// Reserved for future per-session options; the OI image itself declares
// its RAM and stack requirements via .ramrequired/.stack directives.
type SessionCreateRequest struct{}

// SessionCreateResponse represents the response from creating a session
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStatusResponse represents the current status of a session
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	PC        uint64 `json:"pc"`
	Cycles    uint64 `json:"cycles"`
	Error     string `json:"error,omitempty"`
}

// LoadProgramRequest represents a request to load a program
type LoadProgramRequest struct {
	Source string `json:"source"` // Assembly source code
}

// LoadProgramResponse represents the response from loading a program
type LoadProgramResponse struct {
	Success bool              `json:"success"`
	Errors  []string          `json:"errors,omitempty"`
	Symbols map[string]uint64 `json:"symbols,omitempty"`
}

// RegistersResponse represents the current register state.
// OI has a fixed 8-register file; there is no CPSR.
type RegistersResponse struct {
	RZero      uint64 `json:"rzero"`
	RPC        uint64 `json:"rpc"`
	RSP        uint64 `json:"rsp"`
	RFrame     uint64 `json:"rframe"`
	RArg1      uint64 `json:"rarg1"`
	RArg2      uint64 `json:"rarg2"`
	RRes       uint64 `json:"rres"`
	RTmp       uint64 `json:"rtmp"`
	ImageWidth uint8  `json:"imageWidth"`
	Cycles     uint64 `json:"cycles"`
}

// MemoryRequest represents a request for memory data
type MemoryRequest struct {
	Address uint64 `json:"address"`
	Length  uint64 `json:"length"`
}

// MemoryResponse represents memory data
type MemoryResponse struct {
	Address uint64 `json:"address"`
	Data    []byte `json:"data"`
	Length  uint64 `json:"length"`
}

// DisassemblyRequest represents a request for disassembly
type DisassemblyRequest struct {
	Address uint64 `json:"address"`
	Count   uint64 `json:"count"`
}

// DisassemblyResponse represents disassembled instructions
type DisassemblyResponse struct {
	Instructions []InstructionInfo `json:"instructions"`
}

// InstructionInfo represents a disassembled instruction
type InstructionInfo struct {
	Address     uint64 `json:"address"`
	Opcode      uint8  `json:"opcode"`
	Length      uint64 `json:"length"`
	Disassembly string `json:"disassembly"`
	Symbol      string `json:"symbol,omitempty"`
}

// BreakpointRequest represents a request to add/remove a breakpoint
type BreakpointRequest struct {
	Address uint64 `json:"address"`
}

// BreakpointsResponse represents a list of breakpoints
type BreakpointsResponse struct {
	Breakpoints []uint64 `json:"breakpoints"`
}

// WatchpointRequest represents a request to add a watchpoint
type WatchpointRequest struct {
	Address uint64 `json:"address"`
	Type    string `json:"type"` // "read", "write", "readwrite"
}

// WatchpointResponse represents a single created watchpoint
type WatchpointResponse struct {
	ID      int    `json:"id"`
	Address uint64 `json:"address"`
	Type    string `json:"type"`
}

// WatchpointsResponse represents a list of watchpoints
type WatchpointsResponse struct {
	Watchpoints []service.WatchpointInfo `json:"watchpoints"`
}

// StdinRequest represents a request to send stdin data
type StdinRequest struct {
	Data string `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Event represents a WebSocket event
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StateEvent represents a state change event
type StateEvent struct {
	State  string `json:"state"`
	PC     uint64 `json:"pc"`
	Cycles uint64 `json:"cycles"`
}

// OutputEvent represents console output
type OutputEvent struct {
	Stream  string `json:"stream"`  // "stdout" or "stderr"
	Content string `json:"content"` // Output content
}

// ExecutionEvent represents execution events like breakpoints
type ExecutionEvent struct {
	Event   string `json:"event"` // "breakpoint_hit", "error", "halted"
	Address uint64 `json:"address,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message,omitempty"`
}

// TraceEntryInfo mirrors vm.TraceEntry for JSON transport
type TraceEntryInfo struct {
	Sequence        uint64            `json:"sequence"`
	Address         uint64            `json:"address"`
	Disassembly     string            `json:"disassembly"`
	RegisterChanges map[string]uint64 `json:"registerChanges,omitempty"`
	DurationNs      int64             `json:"durationNs"`
}

// TraceDataResponse represents a batch of execution trace entries
type TraceDataResponse struct {
	Entries []TraceEntryInfo `json:"entries"`
	Count   int              `json:"count"`
}

// StatisticsResponse mirrors vm.PerformanceStatistics for JSON transport
type StatisticsResponse struct {
	TotalInstructions  uint64            `json:"totalInstructions"`
	TotalCycles        uint64            `json:"totalCycles"`
	ExecutionTimeMs    int64             `json:"executionTimeMs"`
	InstructionsPerSec float64           `json:"instructionsPerSec"`
	InstructionCounts  map[string]uint64 `json:"instructionCounts,omitempty"`
	BranchCount        uint64            `json:"branchCount"`
	BranchTakenCount   uint64            `json:"branchTakenCount"`
	BranchMissedCount  uint64            `json:"branchMissedCount"`
	MemoryReads        uint64            `json:"memoryReads"`
	MemoryWrites       uint64            `json:"memoryWrites"`
	BytesRead          uint64            `json:"bytesRead"`
	BytesWritten       uint64            `json:"bytesWritten"`
}

// ExampleInfo describes a bundled example program
type ExampleInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ExamplesResponse lists available example programs
type ExamplesResponse struct {
	Examples []ExampleInfo `json:"examples"`
	Count    int           `json:"count"`
}

// ExampleContentResponse carries a single example's source
type ExampleContentResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// ConsoleOutputResponse carries buffered stdout/stderr text for a session
type ConsoleOutputResponse struct {
	Output string `json:"output"`
}

// SourceMapResponse lists the address-to-source-line mapping for a loaded program
type SourceMapResponse struct {
	Entries []service.SourceMapEntry `json:"entries"`
}

// EvaluateRequest represents a request to evaluate a debugger expression
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse carries the result of an evaluated expression
type EvaluateResponse struct {
	Value uint64 `json:"value"`
}

// ToRegisterResponse converts service.RegisterState to API response
func ToRegisterResponse(regs *service.RegisterState) *RegistersResponse {
	return &RegistersResponse{
		RZero:      regs.Registers[0],
		RPC:        regs.Registers[1],
		RSP:        regs.Registers[2],
		RFrame:     regs.Registers[3],
		RArg1:      regs.Registers[4],
		RArg2:      regs.Registers[5],
		RRes:       regs.Registers[6],
		RTmp:       regs.Registers[7],
		ImageWidth: regs.ImageWidth,
		Cycles:     regs.Cycles,
	}
}

// ToInstructionInfo converts service.DisassemblyLine to API response
func ToInstructionInfo(line *service.DisassemblyLine) InstructionInfo {
	return InstructionInfo{
		Address:     line.Address,
		Opcode:      line.Opcode,
		Length:      line.Length,
		Disassembly: line.Mnemonic,
		Symbol:      line.Symbol,
	}
}

