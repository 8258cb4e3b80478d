package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

// LintLevel represents the severity of a lint issue
type LintLevel int

const (
	LintError   LintLevel = iota // Syntax errors, undefined references
	LintWarning                  // Best practice violations, potential issues
	LintInfo                     // Suggestions, style recommendations
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	case LintInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LintIssue represents a single lint finding
type LintIssue struct {
	Level   LintLevel
	Line    int
	Column  int
	Message string
	Code    string // Issue code like "UNDEF_LABEL", "UNREACHABLE_CODE"
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("line %d:%d: %s: %s [%s]", i.Line, i.Column, i.Level, i.Message, i.Code)
}

// LintOptions controls linter behavior
type LintOptions struct {
	Strict       bool // Treat warnings as errors
	CheckUnused  bool // Check for unused labels
	CheckReach   bool // Check for unreachable code
	CheckRegUse  bool // Check register usage
	SuggestFixes bool // Suggest fixes for common issues
}

// DefaultLintOptions returns default linter options
func DefaultLintOptions() *LintOptions {
	return &LintOptions{
		Strict:       false,
		CheckUnused:  true,
		CheckReach:   true,
		CheckRegUse:  true,
		SuggestFixes: true,
	}
}

// Linter analyzes assembly code for issues
type Linter struct {
	options *LintOptions
	issues  []*LintIssue
	program *parser.Program
	parser  *parser.Parser

	definedLabels    map[string]int   // label/symbol -> defining line (0 if no specific line)
	referencedLabels map[string][]int // label -> lines where referenced
	instructions     []*parser.Instruction
	directives       []*parser.Directive
}

// NewLinter creates a new linter
func NewLinter(options *LintOptions) *Linter {
	if options == nil {
		options = DefaultLintOptions()
	}
	return &Linter{
		options:          options,
		issues:           make([]*LintIssue, 0),
		definedLabels:    make(map[string]int),
		referencedLabels: make(map[string][]int),
	}
}

// Lint analyzes the given assembly source code
func (l *Linter) Lint(input, filename string) []*LintIssue {
	l.parser = parser.NewParser(input, filename)
	prog, err := l.parser.Parse()

	if err != nil {
		l.issues = append(l.issues, &LintIssue{
			Level:   LintError,
			Line:    1,
			Column:  1,
			Message: fmt.Sprintf("Parse error: %v", err),
			Code:    "PARSE_ERROR",
		})
	}

	if l.parser.Errors() != nil {
		for _, perr := range l.parser.Errors().Errors {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintError,
				Line:    perr.Pos.Line,
				Column:  perr.Pos.Column,
				Message: perr.Message,
				Code:    "PARSE_ERROR",
			})
		}
	}

	if prog == nil {
		return l.issues
	}

	l.program = prog
	for _, item := range prog.Items {
		switch {
		case item.Instruction != nil:
			l.instructions = append(l.instructions, item.Instruction)
		case item.Directive != nil:
			l.directives = append(l.directives, item.Directive)
		}
	}

	l.collectLabels()
	l.checkUndefinedLabels()

	if l.options.CheckUnused {
		l.checkUnusedLabels()
	}

	if l.options.CheckReach {
		l.checkUnreachableCode()
	}

	if l.options.CheckRegUse {
		l.checkRegisterUsage()
	}

	l.checkDirectives()

	sort.Slice(l.issues, func(i, j int) bool {
		if l.issues[i].Line == l.issues[j].Line {
			return l.issues[i].Column < l.issues[j].Column
		}
		return l.issues[i].Line < l.issues[j].Line
	})

	return l.issues
}

// collectLabels builds a map of all defined labels and symbols
func (l *Linter) collectLabels() {
	for _, inst := range l.instructions {
		if inst.Label != "" {
			l.recordLabelDef(inst.Label, inst.Pos)
		}
	}
	for _, dir := range l.directives {
		if dir.Label != "" {
			l.recordLabelDef(dir.Label, dir.Pos)
		}
	}

	if l.program != nil && l.program.SymbolTable != nil {
		for name, sym := range l.program.SymbolTable.GetAllSymbols() {
			if !sym.Defined {
				continue // referenced only; checkUndefinedLabels reports it
			}
			if _, exists := l.definedLabels[name]; !exists {
				l.definedLabels[name] = 0
			}
		}
	}
}

func (l *Linter) recordLabelDef(label string, pos parser.Position) {
	if _, exists := l.definedLabels[label]; exists {
		l.issues = append(l.issues, &LintIssue{
			Level:   LintWarning,
			Line:    pos.Line,
			Column:  pos.Column,
			Message: fmt.Sprintf("Duplicate label '%s'", label),
			Code:    "DUPLICATE_LABEL",
		})
		return
	}
	l.definedLabels[label] = pos.Line
}

// checkUndefinedLabels checks every operand carrying an unresolved symbol
// reference against the set of defined labels/symbols.
func (l *Linter) checkUndefinedLabels() {
	for _, inst := range l.instructions {
		for _, op := range inst.Operands {
			if op.Symbol == "" {
				continue
			}
			l.checkLabelReference(op.Symbol, inst.Pos.Line, inst.Pos.Column)
		}
	}
}

// checkLabelReference verifies a label exists and records usage
func (l *Linter) checkLabelReference(label string, line, column int) {
	label = strings.TrimSpace(label)

	l.referencedLabels[label] = append(l.referencedLabels[label], line)

	if _, exists := l.definedLabels[label]; !exists {
		suggestion := l.findSimilarLabel(label)
		msg := fmt.Sprintf("Undefined label '%s'", label)
		if suggestion != "" && l.options.SuggestFixes {
			msg += fmt.Sprintf(" (did you mean '%s'?)", suggestion)
		}
		l.issues = append(l.issues, &LintIssue{
			Level:   LintError,
			Line:    line,
			Column:  column,
			Message: msg,
			Code:    "UNDEF_LABEL",
		})
	}
}

// checkUnusedLabels warns about defined but unused labels
func (l *Linter) checkUnusedLabels() {
	for label, defLine := range l.definedLabels {
		if defLine == 0 {
			continue // constant/equ symbol, not a code label
		}
		if isSpecialLabel(label) {
			continue
		}
		if _, used := l.referencedLabels[label]; !used {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintWarning,
				Line:    defLine,
				Column:  1,
				Message: fmt.Sprintf("Label '%s' defined but never referenced", label),
				Code:    "UNUSED_LABEL",
			})
		}
	}
}

// unconditionalTerminators are mnemonics that always redirect or stop
// control flow: any instruction immediately following one, with no label
// of its own, is unreachable.
var unconditionalTerminators = map[string]bool{
	"halt": true, "ret": true, "retnf": true, "ret0": true, "ret0nf": true,
	"jmp": true,
}

// checkUnreachableCode detects code after unconditional control transfers
func (l *Linter) checkUnreachableCode() {
	for i, inst := range l.instructions {
		mnem := strings.ToLower(inst.Mnemonic)
		if !unconditionalTerminators[mnem] {
			continue
		}

		if i+1 < len(l.instructions) {
			nextInst := l.instructions[i+1]
			if nextInst.Label == "" {
				l.issues = append(l.issues, &LintIssue{
					Level:   LintWarning,
					Line:    nextInst.Pos.Line,
					Column:  nextInst.Pos.Column,
					Message: "Unreachable code detected",
					Code:    "UNREACHABLE_CODE",
				})
			}
		}
	}
}

// destWritingMnemonics are base mnemonics whose first operand is the
// instruction's write target.
var destWritingMnemonics = map[string]bool{
	"mov": true, "cmov": true, "ldiw": true, "zero": true, "inc": true, "dec": true,
	"math": true, "ld": true, "ldi": true, "ldae": true, "ldo": true, "ldoinc": true,
	"shl": true, "shr": true, "inv": true,
}

// checkRegisterUsage flags writes to RZERO, which SetRegister silently
// discards — the write has no observable effect.
func (l *Linter) checkRegisterUsage() {
	for _, inst := range l.instructions {
		mnem := strings.ToLower(inst.Mnemonic)
		if !destWritingMnemonics[mnem] || len(inst.Operands) == 0 {
			continue
		}
		dest := inst.Operands[0]
		if dest.Kind == parser.OperandRegister && dest.Reg == vm.RZERO {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintWarning,
				Line:    inst.Pos.Line,
				Column:  inst.Pos.Column,
				Message: fmt.Sprintf("%s writes to RZERO, which discards the value", inst.Mnemonic),
				Code:    "WRITE_TO_RZERO",
			})
		}
	}
}

// directiveArgRules maps a directive name to its required argument count,
// or -1 for "at least one".
var directiveArgRules = map[string]int{
	"org": 1, "width": 1, "stack": 1, "ramrequired": 1, "entry": 1,
	"equ": 2, "set": 2,
	"word": -1, "half": -1, "byte": -1, "ascii": -1, "asciz": -1, "string": -1,
	"space": 1, "skip": 1, "align": 1, "balign": 1,
	"global": 0, "text": 0, "data": 0,
}

// checkDirectives validates assembler directive argument counts
func (l *Linter) checkDirectives() {
	for _, dir := range l.directives {
		name := strings.ToLower(dir.Name)
		rule, known := directiveArgRules[name]
		if !known {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintError,
				Line:    dir.Pos.Line,
				Column:  dir.Pos.Column,
				Message: fmt.Sprintf("Unknown directive '.%s'", dir.Name),
				Code:    "UNKNOWN_DIRECTIVE",
			})
			continue
		}

		switch {
		case rule == -1 && len(dir.Args) == 0:
			l.issues = append(l.issues, &LintIssue{
				Level:   LintError,
				Line:    dir.Pos.Line,
				Column:  dir.Pos.Column,
				Message: fmt.Sprintf(".%s directive requires at least one argument", dir.Name),
				Code:    "INVALID_DIRECTIVE",
			})
		case rule >= 0 && len(dir.Args) != rule:
			l.issues = append(l.issues, &LintIssue{
				Level:   LintError,
				Line:    dir.Pos.Line,
				Column:  dir.Pos.Column,
				Message: fmt.Sprintf(".%s directive requires exactly %d argument(s)", dir.Name, rule),
				Code:    "INVALID_DIRECTIVE",
			})
		}
	}
}

// Helper functions

// findSimilarLabel finds a label with a similar name (for suggestions)
func (l *Linter) findSimilarLabel(target string) string {
	target = strings.ToLower(target)
	bestMatch := ""
	bestDistance := 999

	for label := range l.definedLabels {
		dist := levenshteinDistance(strings.ToLower(label), target)
		if dist < bestDistance && dist <= 3 {
			bestMatch = label
			bestDistance = dist
		}
	}

	return bestMatch
}

// levenshteinDistance calculates edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

// isSpecialLabel checks if a label is a special entry point
func isSpecialLabel(label string) bool {
	special := []string{"_start", "main", "__start", "start", "_exit", "_main"}
	for _, s := range special {
		if strings.EqualFold(label, s) {
			return true
		}
	}
	return false
}

func min(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
