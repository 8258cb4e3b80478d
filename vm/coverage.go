package vm

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// CoverageEntry represents coverage information for an address
type CoverageEntry struct {
	Address        uint64 // Instruction address
	ExecutionCount uint64 // Number of times executed
	FirstExecution uint64 // Cycle number of first execution
	LastExecution  uint64 // Cycle number of last execution
}

// CodeCoverage tracks which instructions have been executed. Instructions
// are variable length (1, 2, 1+image_width, or 4 bytes), so unlike
// a fixed-width ISA this can only report unique addresses reached, not a
// percentage of a statically-known instruction count, unless the code
// range has been walked externally to seed it.
type CodeCoverage struct {
	Enabled bool
	Writer  io.Writer

	// Coverage data
	executed  map[uint64]*CoverageEntry // address -> execution info
	codeStart uint64                    // Start of code segment
	codeEnd   uint64                    // End of code segment

	// Symbol information (optional)
	symbols         map[string]uint64 // label -> address
	addressToSymbol map[uint64]string // address -> label
}

// NewCodeCoverage creates a new code coverage tracker
func NewCodeCoverage(writer io.Writer) *CodeCoverage {
	return &CodeCoverage{
		Enabled:         true,
		Writer:          writer,
		executed:        make(map[uint64]*CoverageEntry),
		symbols:         make(map[string]uint64),
		addressToSymbol: make(map[uint64]string),
	}
}

// SetCodeRange sets the range of code addresses to track
func (c *CodeCoverage) SetCodeRange(start, end uint64) {
	c.codeStart = start
	c.codeEnd = end
}

// LoadSymbols loads symbol information for better reporting
func (c *CodeCoverage) LoadSymbols(symbols map[string]uint64) {
	c.symbols = symbols
	// Build reverse map
	for name, addr := range symbols {
		c.addressToSymbol[addr] = name
	}
}

// Start starts coverage tracking
func (c *CodeCoverage) Start() {
	c.executed = make(map[uint64]*CoverageEntry)
}

// RecordExecution records that an instruction was executed
func (c *CodeCoverage) RecordExecution(address uint64, cycle uint64) {
	if !c.Enabled {
		return
	}

	// Only track if address is in code range (if range is set)
	if c.codeStart != 0 || c.codeEnd != 0 {
		if address < c.codeStart || address >= c.codeEnd {
			return
		}
	}

	if entry, exists := c.executed[address]; exists {
		entry.ExecutionCount++
		entry.LastExecution = cycle
	} else {
		c.executed[address] = &CoverageEntry{
			Address:        address,
			ExecutionCount: 1,
			FirstExecution: cycle,
			LastExecution:  cycle,
		}
	}
}

// GetCoverage returns the fraction of bytes in the code range that were an
// executed instruction's starting address, as a percentage. Instructions
// are variable length, so this undercounts true instruction coverage
// by the average instruction length; it is a lower bound, not an exact
// percentage.
func (c *CodeCoverage) GetCoverage() float64 {
	if c.codeStart == 0 && c.codeEnd == 0 {
		return 0.0
	}

	totalBytes := c.codeEnd - c.codeStart
	if totalBytes == 0 {
		return 0.0
	}

	return float64(len(c.executed)) / float64(totalBytes) * 100.0
}

// GetExecutedAddresses returns all executed addresses sorted
func (c *CodeCoverage) GetExecutedAddresses() []uint64 {
	addresses := make([]uint64, 0, len(c.executed))
	for addr := range c.executed {
		addresses = append(addresses, addr)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i] < addresses[j]
	})
	return addresses
}

// GetUnexecutedAddresses returns byte addresses in the code range that were
// never recorded as an instruction start. Without a decoder walk this can't
// distinguish "never reached" from "mid-instruction byte", so it is a
// conservative superset of true dead code.
func (c *CodeCoverage) GetUnexecutedAddresses() []uint64 {
	if c.codeStart == 0 && c.codeEnd == 0 {
		return nil
	}

	unexecuted := make([]uint64, 0)
	for addr := c.codeStart; addr < c.codeEnd; addr++ {
		if _, exists := c.executed[addr]; !exists {
			unexecuted = append(unexecuted, addr)
		}
	}
	return unexecuted
}

// GetEntry returns coverage entry for an address
func (c *CodeCoverage) GetEntry(address uint64) *CoverageEntry {
	return c.executed[address]
}

// Flush writes coverage report to the writer
func (c *CodeCoverage) Flush() error {
	if c.Writer == nil {
		return nil
	}

	// Write header
	header := "Code Coverage Report\n"
	header += "====================\n\n"

	if c.codeStart != 0 || c.codeEnd != 0 {
		totalBytes := c.codeEnd - c.codeStart
		executedCount := len(c.executed)
		coverage := c.GetCoverage()

		header += fmt.Sprintf("Code Range:           0x%X - 0x%X\n", c.codeStart, c.codeEnd)
		header += fmt.Sprintf("Range Size (bytes):   %d\n", totalBytes)
		header += fmt.Sprintf("Executed Addresses:   %d\n", executedCount)
		header += fmt.Sprintf("Coverage (lower bound): %.2f%%\n\n", coverage)
	} else {
		header += fmt.Sprintf("Total Executed:       %d unique addresses\n\n", len(c.executed))
	}

	if _, err := c.Writer.Write([]byte(header)); err != nil {
		return err
	}

	// Write executed addresses
	if _, err := c.Writer.Write([]byte("Executed Addresses:\n")); err != nil {
		return err
	}
	if _, err := c.Writer.Write([]byte("-------------------\n")); err != nil {
		return err
	}

	executedAddrs := c.GetExecutedAddresses()
	for _, addr := range executedAddrs {
		entry := c.executed[addr]
		line := fmt.Sprintf("0x%X: executed %6d times (first: cycle %6d, last: cycle %6d)",
			addr, entry.ExecutionCount, entry.FirstExecution, entry.LastExecution)

		// Add symbol if available
		if symbol, exists := c.addressToSymbol[addr]; exists {
			line += fmt.Sprintf(" [%s]", symbol)
		}

		line += "\n"
		if _, err := c.Writer.Write([]byte(line)); err != nil {
			return err
		}
	}

	// Write unexecuted addresses if code range is set
	unexecuted := c.GetUnexecutedAddresses()
	if len(unexecuted) > 0 {
		if _, err := c.Writer.Write([]byte("\nNot Executed:\n")); err != nil {
			return err
		}
		if _, err := c.Writer.Write([]byte("-------------\n")); err != nil {
			return err
		}

		for _, addr := range unexecuted {
			line := fmt.Sprintf("0x%X", addr)

			// Add symbol if available
			if symbol, exists := c.addressToSymbol[addr]; exists {
				line += fmt.Sprintf(" [%s]", symbol)
			}

			line += "\n"
			if _, err := c.Writer.Write([]byte(line)); err != nil {
				return err
			}
		}
	}

	return nil
}

// ExportJSON exports coverage data as JSON
func (c *CodeCoverage) ExportJSON(w io.Writer) error {
	data := map[string]interface{}{
		"code_start":           c.codeStart,
		"code_end":             c.codeEnd,
		"coverage_percent":     c.GetCoverage(),
		"executed_count":       len(c.executed),
		"unexecuted_count":     len(c.GetUnexecutedAddresses()),
		"executed_addresses":   c.executed,
		"unexecuted_addresses": c.GetUnexecutedAddresses(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// String returns a formatted string representation
func (c *CodeCoverage) String() string {
	var sb strings.Builder

	sb.WriteString("Code Coverage Summary\n")
	sb.WriteString("=====================\n\n")

	if c.codeStart != 0 || c.codeEnd != 0 {
		executedCount := len(c.executed)
		coverage := c.GetCoverage()

		sb.WriteString(fmt.Sprintf("Code Range:         0x%X - 0x%X\n", c.codeStart, c.codeEnd))
		sb.WriteString(fmt.Sprintf("Executed Addresses: %d\n", executedCount))
		sb.WriteString(fmt.Sprintf("Coverage:           %.2f%%\n", coverage))
	} else {
		sb.WriteString(fmt.Sprintf("Executed:           %d unique addresses\n", len(c.executed)))
	}

	return sb.String()
}
