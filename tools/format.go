package tools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

// FormatStyle defines formatting options
type FormatStyle int

const (
	FormatDefault  FormatStyle = iota // Standard formatting
	FormatCompact                     // Minimal whitespace
	FormatExpanded                    // Extra whitespace for readability
)

// FormatOptions controls formatter behavior
type FormatOptions struct {
	Style              FormatStyle
	LabelColumn        int  // Column for labels (default: 0)
	InstructionColumn  int  // Column for instructions (default: 8)
	OperandColumn      int  // Column for operands (default: 16)
	CommentColumn      int  // Column for comments (default: 40)
	AlignOperands      bool // Align operands in columns
	AlignComments      bool // Align comments in columns
	IndentSize         int  // Spaces for indentation
	PreserveEmptyLines bool // Keep empty lines
	TabWidth           int  // Tab width (for expanding tabs)
}

// DefaultFormatOptions returns default formatter options
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{
		Style:              FormatDefault,
		LabelColumn:        0,
		InstructionColumn:  8,
		OperandColumn:      16,
		CommentColumn:      40,
		AlignOperands:      true,
		AlignComments:      true,
		IndentSize:         8,
		PreserveEmptyLines: true,
		TabWidth:           8,
	}
}

// CompactFormatOptions returns options for compact formatting
func CompactFormatOptions() *FormatOptions {
	opts := DefaultFormatOptions()
	opts.Style = FormatCompact
	opts.InstructionColumn = 0
	opts.OperandColumn = 0
	opts.CommentColumn = 0
	opts.AlignOperands = false
	opts.AlignComments = false
	return opts
}

// ExpandedFormatOptions returns options for expanded formatting
func ExpandedFormatOptions() *FormatOptions {
	opts := DefaultFormatOptions()
	opts.Style = FormatExpanded
	opts.InstructionColumn = 12
	opts.OperandColumn = 24
	opts.CommentColumn = 50
	return opts
}

// Formatter formats assembly source code
type Formatter struct {
	options *FormatOptions
	parser  *parser.Parser
	program *parser.Program
	output  strings.Builder
}

// NewFormatter creates a new formatter
func NewFormatter(options *FormatOptions) *Formatter {
	if options == nil {
		options = DefaultFormatOptions()
	}
	return &Formatter{
		options: options,
	}
}

// Format formats the given assembly source code
func (f *Formatter) Format(input, filename string) (string, error) {
	f.parser = parser.NewParser(input, filename)
	prog, err := f.parser.Parse()
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}

	if prog == nil {
		return "", fmt.Errorf("failed to parse program")
	}

	f.program = prog
	f.output.Reset()

	f.formatProgram()

	return f.output.String(), nil
}

// formatProgram formats the entire program, walking Items in source order
// and interleaving any standalone labels (labels with no attached
// instruction or directive) at their recorded line.
func (f *Formatter) formatProgram() {
	attachedLabels := make(map[string]bool)
	for _, item := range f.program.Items {
		switch {
		case item.Instruction != nil && item.Instruction.Label != "":
			attachedLabels[item.Instruction.Label] = true
		case item.Directive != nil && item.Directive.Label != "":
			attachedLabels[item.Directive.Label] = true
		}
	}

	type standaloneLabel struct {
		name string
		line int
	}
	var standaloneLabels []standaloneLabel
	if f.program.SymbolTable != nil {
		for name, sym := range f.program.SymbolTable.GetAllSymbols() {
			if !attachedLabels[name] && sym.Type == parser.SymbolLabel {
				standaloneLabels = append(standaloneLabels, standaloneLabel{name: name, line: sym.Pos.Line})
			}
		}
	}
	sort.Slice(standaloneLabels, func(i, j int) bool { return standaloneLabels[i].line < standaloneLabels[j].line })

	labelIdx := 0
	for _, item := range f.program.Items {
		var itemLine int
		switch {
		case item.Instruction != nil:
			itemLine = item.Instruction.Pos.Line
		case item.Directive != nil:
			itemLine = item.Directive.Pos.Line
		}

		for labelIdx < len(standaloneLabels) && standaloneLabels[labelIdx].line <= itemLine {
			f.output.WriteString(standaloneLabels[labelIdx].name)
			f.output.WriteString(":\n")
			labelIdx++
		}

		switch {
		case item.Instruction != nil:
			f.formatInstruction(item.Instruction)
		case item.Directive != nil:
			f.formatDirective(item.Directive)
		}
	}

	for labelIdx < len(standaloneLabels) {
		f.output.WriteString(standaloneLabels[labelIdx].name)
		f.output.WriteString(":\n")
		labelIdx++
	}
}

// formatInstruction formats a single instruction
func (f *Formatter) formatInstruction(inst *parser.Instruction) {
	line := strings.Builder{}

	if inst.Label != "" {
		line.WriteString(inst.Label)
		line.WriteString(":")
		if f.options.Style != FormatCompact {
			f.padToColumn(&line, f.options.InstructionColumn)
		} else {
			line.WriteString(" ")
		}
	} else if f.options.Style != FormatCompact {
		f.padToColumn(&line, f.options.InstructionColumn)
	}

	mnemonic := strings.ToLower(inst.Mnemonic)
	if inst.Suffix != "" {
		mnemonic += "." + strings.ToLower(inst.Suffix)
	}
	line.WriteString(mnemonic)

	if len(inst.Operands) > 0 {
		if f.options.Style == FormatCompact {
			line.WriteString(" ")
		} else if f.options.AlignOperands {
			f.padToColumn(&line, f.options.OperandColumn)
		} else {
			line.WriteString("\t")
		}
		line.WriteString(formatOperands(inst.Operands))
	}

	f.appendComment(&line, inst.RawLine)

	f.output.WriteString(line.String())
	f.output.WriteString("\n")
}

// formatDirective formats a single directive
func (f *Formatter) formatDirective(dir *parser.Directive) {
	line := strings.Builder{}

	if dir.Label != "" {
		line.WriteString(dir.Label)
		line.WriteString(":")
		if f.options.Style != FormatCompact {
			f.padToColumn(&line, f.options.InstructionColumn)
		} else {
			line.WriteString(" ")
		}
	} else if f.options.Style != FormatCompact {
		f.padToColumn(&line, f.options.InstructionColumn)
	}

	directiveName := strings.ToLower(dir.Name)
	if !strings.HasPrefix(directiveName, ".") {
		directiveName = "." + directiveName
	}
	line.WriteString(directiveName)

	if len(dir.Args) > 0 {
		if f.options.Style == FormatCompact {
			line.WriteString(" ")
		} else {
			line.WriteString("\t")
		}
		line.WriteString(strings.Join(dir.Args, ", "))
	}

	f.appendComment(&line, dir.RawLine)

	f.output.WriteString(line.String())
	f.output.WriteString("\n")
}

// appendComment looks for a trailing line comment on the original source
// line (starting with ;, @ or //, whichever appears first) and re-appends
// it after the reformatted code. This is a best-effort textual scan, not a
// lexer re-run: a comment marker that appears inside a quoted string or
// character literal earlier on the line will be misdetected as the comment
// start.
func (f *Formatter) appendComment(line *strings.Builder, rawLine string) {
	comment := extractComment(rawLine)
	if comment == "" {
		return
	}

	if f.options.Style == FormatCompact {
		line.WriteString(" ; ")
		line.WriteString(comment)
	} else if f.options.AlignComments {
		f.padToColumn(line, f.options.CommentColumn)
		line.WriteString("; ")
		line.WriteString(comment)
	} else {
		line.WriteString("\t; ")
		line.WriteString(comment)
	}
}

func extractComment(rawLine string) string {
	inString := false
	for i := 0; i < len(rawLine); i++ {
		switch rawLine[i] {
		case '"', '\'':
			inString = !inString
		case ';', '@':
			if !inString {
				return strings.TrimSpace(rawLine[i+1:])
			}
		case '/':
			if !inString && i+1 < len(rawLine) && rawLine[i+1] == '/' {
				return strings.TrimSpace(rawLine[i+2:])
			}
		}
	}
	return ""
}

// formatOperands renders a parsed operand list back into OI assembly text.
func formatOperands(operands []parser.Operand) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = formatOperand(op)
	}
	return strings.Join(parts, ", ")
}

func formatOperand(op parser.Operand) string {
	switch op.Kind {
	case parser.OperandRegister:
		return registerName(op.Reg)
	case parser.OperandImmediate:
		return "#" + operandValueText(op)
	case parser.OperandBare:
		return operandValueText(op)
	case parser.OperandMemory:
		inner := operandValueText(op)
		if op.HasIndex {
			inner += " + " + registerName(op.IndexReg)
		}
		return "[" + inner + "]"
	default:
		return operandValueText(op)
	}
}

func operandValueText(op parser.Operand) string {
	if op.Symbol != "" {
		return op.Symbol
	}
	return strconv.FormatUint(op.Value, 10)
}

func registerName(reg int) string {
	if reg >= 0 && reg < len(vm.RegisterNames) {
		return vm.RegisterNames[reg]
	}
	return "R" + strconv.Itoa(reg)
}

// padToColumn pads the string builder to the specified column
func (f *Formatter) padToColumn(sb *strings.Builder, column int) {
	current := sb.Len()
	if current < column {
		sb.WriteString(strings.Repeat(" ", column-current))
	} else if current > column {
		sb.WriteString(" ")
	}
}

// FormatString is a convenience function to format a string with default options
func FormatString(input, filename string) (string, error) {
	formatter := NewFormatter(DefaultFormatOptions())
	return formatter.Format(input, filename)
}

// FormatStringWithStyle formats a string with the specified style
func FormatStringWithStyle(input, filename string, style FormatStyle) (string, error) {
	var options *FormatOptions
	switch style {
	case FormatCompact:
		options = CompactFormatOptions()
	case FormatExpanded:
		options = ExpandedFormatOptions()
	default:
		options = DefaultFormatOptions()
	}
	formatter := NewFormatter(options)
	return formatter.Format(input, filename)
}
