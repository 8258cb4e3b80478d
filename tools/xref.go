package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/arm-emulator/parser"
)

// ReferenceType indicates how a symbol is used
type ReferenceType int

const (
	RefDefinition ReferenceType = iota // Symbol defined here
	RefBranch                          // Unconditional/conditional jump target
	RefLoad                            // Read via a load-family opcode
	RefStore                           // Write via a store-family opcode
	RefData                            // Referenced as a plain symbolic operand
	RefCall                            // Function call (call/calld/callnf)
)

func (r ReferenceType) String() string {
	switch r {
	case RefDefinition:
		return "definition"
	case RefBranch:
		return "branch"
	case RefLoad:
		return "load"
	case RefStore:
		return "store"
	case RefData:
		return "data"
	case RefCall:
		return "call"
	default:
		return "unknown"
	}
}

// Reference represents a single reference to a symbol
type Reference struct {
	Type   ReferenceType
	Line   int
	Column int
	Source string // Source line text
}

// Symbol represents a symbol and all its references
type Symbol struct {
	Name        string
	Definition  *Reference   // Where it's defined
	References  []*Reference // Where it's used
	Value       uint64       // Symbol value (if constant)
	IsConstant  bool         // True for equ/set symbols
	IsFunction  bool         // True if referenced via call/calld/callnf
	IsDataLabel bool         // True if attached to a directive rather than an instruction
}

// XRefGenerator generates cross-reference information
type XRefGenerator struct {
	parser  *parser.Parser
	program *parser.Program
	symbols map[string]*Symbol
}

// NewXRefGenerator creates a new cross-reference generator
func NewXRefGenerator() *XRefGenerator {
	return &XRefGenerator{
		symbols: make(map[string]*Symbol),
	}
}

// Generate generates cross-reference information from source code
func (x *XRefGenerator) Generate(input, filename string) (map[string]*Symbol, error) {
	x.parser = parser.NewParser(input, filename)
	prog, err := x.parser.Parse()
	if err != nil {
		// Undefined symbols are part of the report; any other error is fatal.
		for _, perr := range x.parser.Errors().Errors {
			if perr.Kind != parser.ErrorUndefinedLabel {
				return nil, fmt.Errorf("parse error: %w", err)
			}
		}
	}

	if prog == nil {
		return nil, fmt.Errorf("failed to parse program")
	}

	x.program = prog

	x.collectDefinitions()
	x.collectReferences()
	x.analyzeCallGraph()

	return x.symbols, nil
}

func (x *XRefGenerator) getOrCreate(name string) *Symbol {
	if sym, exists := x.symbols[name]; exists {
		return sym
	}
	sym := &Symbol{Name: name, References: make([]*Reference, 0)}
	x.symbols[name] = sym
	return sym
}

// collectDefinitions collects all symbol definitions
func (x *XRefGenerator) collectDefinitions() {
	for _, item := range x.program.Items {
		switch {
		case item.Instruction != nil && item.Instruction.Label != "":
			inst := item.Instruction
			sym := x.getOrCreate(inst.Label)
			sym.Definition = &Reference{
				Type:   RefDefinition,
				Line:   inst.Pos.Line,
				Column: inst.Pos.Column,
				Source: inst.RawLine,
			}

		case item.Directive != nil && item.Directive.Label != "":
			dir := item.Directive
			sym := x.getOrCreate(dir.Label)
			sym.Definition = &Reference{
				Type:   RefDefinition,
				Line:   dir.Pos.Line,
				Column: dir.Pos.Column,
				Source: dir.RawLine,
			}
			sym.IsDataLabel = true
		}
	}

	if x.program.SymbolTable != nil {
		for name, ps := range x.program.SymbolTable.GetAllSymbols() {
			sym := x.getOrCreate(name)
			if ps.Type == parser.SymbolConstant {
				sym.IsConstant = true
				sym.Value = ps.Value
			}
		}
	}
}

// referenceTypeFor classifies a symbol reference by the mnemonic that
// carries it: ld*/st* prefixes follow the load/store naming convention used
// throughout the opcode table, call-family mnemonics are calls, jump-family
// mnemonics are branches, everything else is a plain data reference.
func referenceTypeFor(mnemonic string) ReferenceType {
	mnem := strings.ToLower(mnemonic)
	switch mnem {
	case "call", "calld", "callnf":
		return RefCall
	case "jmp", "j", "ji", "jrel", "jrelb":
		return RefBranch
	}
	switch {
	case strings.HasPrefix(mnem, "ld"):
		return RefLoad
	case strings.HasPrefix(mnem, "st"):
		return RefStore
	default:
		return RefData
	}
}

// collectReferences collects all symbol references carried by instruction
// operands. Operand.Symbol holds the unresolved label/constant name for
// OperandBare/OperandMemory/OperandImmediate operands.
func (x *XRefGenerator) collectReferences() {
	for _, item := range x.program.Items {
		if item.Instruction == nil {
			continue
		}
		inst := item.Instruction
		refType := referenceTypeFor(inst.Mnemonic)

		for _, op := range inst.Operands {
			if op.Symbol == "" {
				continue
			}
			x.addReference(op.Symbol, refType, inst.Pos.Line, inst.Pos.Column, inst.RawLine)
		}
	}
}

// addReference adds a reference to a symbol
func (x *XRefGenerator) addReference(name string, refType ReferenceType, line, column int, source string) {
	name = strings.TrimSpace(name)
	sym := x.getOrCreate(name)
	sym.References = append(sym.References, &Reference{
		Type:   refType,
		Line:   line,
		Column: column,
		Source: source,
	})
}

// analyzeCallGraph determines which symbols are functions
func (x *XRefGenerator) analyzeCallGraph() {
	for _, symbol := range x.symbols {
		for _, ref := range symbol.References {
			if ref.Type == RefCall {
				symbol.IsFunction = true
				break
			}
		}
	}
}

// XRefReport generates a formatted cross-reference report
type XRefReport struct {
	symbols []*Symbol
}

// NewXRefReport creates a new cross-reference report
func NewXRefReport(symbols map[string]*Symbol) *XRefReport {
	sortedSymbols := make([]*Symbol, 0, len(symbols))
	for _, sym := range symbols {
		sortedSymbols = append(sortedSymbols, sym)
	}
	sort.Slice(sortedSymbols, func(i, j int) bool {
		return sortedSymbols[i].Name < sortedSymbols[j].Name
	})

	return &XRefReport{
		symbols: sortedSymbols,
	}
}

// String generates a text report
func (r *XRefReport) String() string {
	var sb strings.Builder

	sb.WriteString("Symbol Cross-Reference\n")
	sb.WriteString("======================\n\n")

	for _, sym := range r.symbols {
		sb.WriteString(fmt.Sprintf("%-30s", sym.Name))

		switch {
		case sym.IsConstant:
			sb.WriteString(fmt.Sprintf(" [constant=0x%016X]", sym.Value))
		case sym.IsFunction:
			sb.WriteString(" [function]")
		case sym.IsDataLabel:
			sb.WriteString(" [data]")
		default:
			sb.WriteString(" [label]")
		}
		sb.WriteString("\n")

		if sym.Definition != nil {
			sb.WriteString(fmt.Sprintf("  Defined:     line %d\n", sym.Definition.Line))
		} else {
			sb.WriteString("  Defined:     (undefined)\n")
		}

		if len(sym.References) == 0 {
			sb.WriteString("  Referenced:  (never)\n")
		} else {
			sb.WriteString(fmt.Sprintf("  Referenced:  %d time(s)\n", len(sym.References)))

			refsByType := make(map[ReferenceType][]*Reference)
			for _, ref := range sym.References {
				refsByType[ref.Type] = append(refsByType[ref.Type], ref)
			}

			types := []ReferenceType{RefCall, RefBranch, RefLoad, RefStore, RefData}
			for _, refType := range types {
				refs := refsByType[refType]
				if len(refs) > 0 {
					lines := make([]string, len(refs))
					for i, ref := range refs {
						lines[i] = fmt.Sprintf("%d", ref.Line)
					}
					sb.WriteString(fmt.Sprintf("    %-10s: line(s) %s\n", refType.String(), strings.Join(lines, ", ")))
				}
			}
		}

		sb.WriteString("\n")
	}

	totalSymbols := len(r.symbols)
	definedSymbols := 0
	undefinedSymbols := 0
	unusedSymbols := 0
	functionCount := 0

	for _, sym := range r.symbols {
		if sym.Definition != nil {
			definedSymbols++
		} else {
			undefinedSymbols++
		}
		if len(sym.References) == 0 {
			unusedSymbols++
		}
		if sym.IsFunction {
			functionCount++
		}
	}

	sb.WriteString("Summary\n")
	sb.WriteString("=======\n")
	sb.WriteString(fmt.Sprintf("Total symbols:     %d\n", totalSymbols))
	sb.WriteString(fmt.Sprintf("Defined:           %d\n", definedSymbols))
	sb.WriteString(fmt.Sprintf("Undefined:         %d\n", undefinedSymbols))
	sb.WriteString(fmt.Sprintf("Unused:            %d\n", unusedSymbols))
	sb.WriteString(fmt.Sprintf("Functions:         %d\n", functionCount))

	return sb.String()
}

// GenerateXRef is a convenience function to generate a cross-reference report
func GenerateXRef(input, filename string) (string, error) {
	gen := NewXRefGenerator()
	symbols, err := gen.Generate(input, filename)
	if err != nil {
		return "", err
	}

	report := NewXRefReport(symbols)
	return report.String(), nil
}

// GetSymbols returns all symbols found in the source
func (x *XRefGenerator) GetSymbols() map[string]*Symbol {
	return x.symbols
}

// GetSymbol returns a specific symbol by name
func (x *XRefGenerator) GetSymbol(name string) (*Symbol, bool) {
	sym, exists := x.symbols[name]
	return sym, exists
}

// GetFunctions returns all symbols that are functions
func (x *XRefGenerator) GetFunctions() []*Symbol {
	functions := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.IsFunction {
			functions = append(functions, sym)
		}
	}
	sort.Slice(functions, func(i, j int) bool {
		return functions[i].Name < functions[j].Name
	})
	return functions
}

// GetDataLabels returns all symbols that are data labels
func (x *XRefGenerator) GetDataLabels() []*Symbol {
	dataLabels := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.IsDataLabel {
			dataLabels = append(dataLabels, sym)
		}
	}
	sort.Slice(dataLabels, func(i, j int) bool {
		return dataLabels[i].Name < dataLabels[j].Name
	})
	return dataLabels
}

// GetUndefinedSymbols returns all symbols that are referenced but not defined
func (x *XRefGenerator) GetUndefinedSymbols() []*Symbol {
	undefined := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.Definition == nil && len(sym.References) > 0 {
			undefined = append(undefined, sym)
		}
	}
	sort.Slice(undefined, func(i, j int) bool {
		return undefined[i].Name < undefined[j].Name
	})
	return undefined
}

// GetUnusedSymbols returns all symbols that are defined but never referenced
func (x *XRefGenerator) GetUnusedSymbols() []*Symbol {
	unused := make([]*Symbol, 0)
	for _, sym := range x.symbols {
		if sym.Definition != nil && len(sym.References) == 0 {
			if !isSpecialLabel(sym.Name) {
				unused = append(unused, sym)
			}
		}
	}
	sort.Slice(unused, func(i, j int) bool {
		return unused[i].Name < unused[j].Name
	})
	return unused
}
