package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/arm-emulator/parser"
)

func parseOK(t *testing.T, src string) *parser.Program {
	t.Helper()
	p := parser.NewParser(src, "test.oi")
	prog, err := p.Parse()
	require.NoError(t, err)
	return prog
}

func TestParser_SimpleInstruction(t *testing.T) {
	prog := parseOK(t, "mov RRES, RARG1\n")

	require.Len(t, prog.Items, 1)
	inst := prog.Items[0].Instruction
	require.NotNil(t, inst)
	require.Equal(t, "mov", inst.Mnemonic)
	require.Len(t, inst.Operands, 2)
	require.Equal(t, parser.OperandRegister, inst.Operands[0].Kind)
	require.Equal(t, 6, inst.Operands[0].Reg) // RRES
	require.Equal(t, 4, inst.Operands[1].Reg) // RARG1
}

func TestParser_LabelDefinesSymbol(t *testing.T) {
	prog := parseOK(t, "start: halt\n")

	inst := prog.Items[0].Instruction
	require.Equal(t, "start", inst.Label)

	addr, err := prog.SymbolTable.Get("start")
	require.NoError(t, err)
	require.Equal(t, uint64(0), addr)
}

func TestParser_Directive_Org(t *testing.T) {
	prog := parseOK(t, ".org 0x8000\nhalt\n")

	require.True(t, prog.OriginSet)
	require.Equal(t, uint64(0x8000), prog.Origin)

	dir := prog.Items[0].Directive
	require.NotNil(t, dir)
	require.Equal(t, "org", dir.Name)

	inst := prog.Items[1].Instruction
	require.Equal(t, uint64(0x8000), inst.Address)
}

func TestParser_Directive_Equ(t *testing.T) {
	prog := parseOK(t, ".equ LIMIT, 10\nldi RRES, #LIMIT\n")

	v, err := prog.SymbolTable.Get("LIMIT")
	require.NoError(t, err)
	require.Equal(t, uint64(10), v)

	inst := prog.Items[1].Instruction
	require.Equal(t, "LIMIT", inst.Operands[1].Symbol)
}

func TestParser_Directive_Width(t *testing.T) {
	prog := parseOK(t, ".width 8\nhalt\n")
	require.Equal(t, uint8(8), prog.ImageWidth)
}

func TestParser_Directive_Width_RejectsBadValue(t *testing.T) {
	p := parser.NewParser(".width 3\nhalt\n", "test.oi")
	_, err := p.Parse()
	require.Error(t, err)
}

func TestParser_Directive_StackAndRamRequired(t *testing.T) {
	prog := parseOK(t, ".stack 4096\n.ramrequired 65536\nhalt\n")
	require.Equal(t, uint64(4096), prog.StackSize)
	require.Equal(t, uint64(65536), prog.RamRequired)
}

func TestParser_Directive_Entry(t *testing.T) {
	prog := parseOK(t, ".entry main\nmain: halt\n")
	require.Equal(t, "main", prog.EntryLabel)
}

func TestParser_ForwardLabelReference(t *testing.T) {
	prog := parseOK(t, "jmp [done]\nhalt\ndone: halt\n")

	jmp := prog.Items[0].Instruction
	require.Equal(t, "done", jmp.Operands[0].Symbol)

	addr, err := prog.SymbolTable.Get("done")
	require.NoError(t, err)
	require.Equal(t, jmp.Length+1, addr) // one-byte halt between jmp and done
}

func TestParser_MemoryOperandWithIndex(t *testing.T) {
	prog := parseOK(t, "ld.w RRES, [100 + RTMP]\n")

	inst := prog.Items[0].Instruction
	mem := inst.Operands[1]
	require.Equal(t, parser.OperandMemory, mem.Kind)
	require.Equal(t, uint64(100), mem.Value)
	require.True(t, mem.HasIndex)
	require.Equal(t, 7, mem.IndexReg) // RTMP
}

func TestParser_RegisterAliasesAndNumbered(t *testing.T) {
	prog := parseOK(t, "mov R0, R7\n")
	inst := prog.Items[0].Instruction
	require.Equal(t, 0, inst.Operands[0].Reg)
	require.Equal(t, 7, inst.Operands[1].Reg)
}

func TestParser_DotSuffixSplit(t *testing.T) {
	prog := parseOK(t, "cmov.gt RRES, RARG1\n")
	inst := prog.Items[0].Instruction
	require.Equal(t, "cmov", inst.Mnemonic)
	require.Equal(t, "gt", inst.Suffix)
}

func TestParser_WordDirective_OccupiesImageWidthBytes(t *testing.T) {
	prog := parseOK(t, ".width 8\nhalt\n.word 1, 2, 3\n")
	dir := prog.Items[2].Directive
	require.Equal(t, "word", dir.Name)
	require.Equal(t, uint64(1), dir.Address) // right after the one-byte halt
}

func TestParser_AsciizDirective_IncludesNulTerminator(t *testing.T) {
	prog := parseOK(t, ".asciz \"hi\"\nhalt\n")
	halt := prog.Items[1].Instruction
	require.Equal(t, uint64(3), halt.Address) // "hi" + nul
}

func TestParser_AlignDirective_PadsToBoundary(t *testing.T) {
	prog := parseOK(t, "halt\n.align 4\nhalt\n")
	second := prog.Items[2].Instruction
	require.Equal(t, uint64(4), second.Address)
}

func TestClassify_RetAmbiguity(t *testing.T) {
	noArg := parseOK(t, "ret\n").Items[0].Instruction
	require.Equal(t, uint64(1), noArg.Length)

	withArg := parseOK(t, "ret #2\n").Items[0].Instruction
	require.Equal(t, uint64(2), withArg.Length)
}

func TestClassify_IncDecAmbiguity(t *testing.T) {
	reg := parseOK(t, "inc RRES\n").Items[0].Instruction
	require.Equal(t, uint64(1), reg.Length)

	mem := parseOK(t, ".width 4\ninc [1000]\n").Items[1].Instruction
	require.Equal(t, uint64(5), mem.Length) // 1 + image_width
}

func TestClassify_LdAmbiguity(t *testing.T) {
	absolute := parseOK(t, ".width 4\nld RRES, [1000]\n").Items[1].Instruction
	require.Equal(t, uint64(5), absolute.Length) // width-imm: 1 + image_width

	pcRelative := parseOK(t, "ld.w RRES, [1000]\n").Items[0].Instruction
	require.Equal(t, uint64(4), pcRelative.Length)
}

func TestClassify_CallAmbiguity(t *testing.T) {
	indirect := parseOK(t, "call [table]\ntable: halt\n").Items[0].Instruction
	require.Equal(t, uint64(4), indirect.Length)

	direct := parseOK(t, ".width 4\ncall RTMP, [table]\ntable: halt\n").Items[1].Instruction
	require.Equal(t, uint64(5), direct.Length)
}

func TestClassify_StincAmbiguity(t *testing.T) {
	regForm := parseOK(t, "stinc.w RTMP, RRES\n").Items[0].Instruction
	require.Equal(t, uint64(2), regForm.Length)

	immForm := parseOK(t, "stinc.w RTMP, #4\n").Items[0].Instruction
	require.Equal(t, uint64(4), immForm.Length)
}

func TestClassify_MathAmbiguity(t *testing.T) {
	twoOperand := parseOK(t, "math.add RRES, RARG1\n").Items[0].Instruction
	require.Equal(t, uint64(2), twoOperand.Length)

	threeOperand := parseOK(t, "math.add RRES, RARG1, RARG2\n").Items[0].Instruction
	require.Equal(t, uint64(4), threeOperand.Length)
}

func TestParser_UndefinedSymbol_ErrorsOnResolve(t *testing.T) {
	prog := parseOK(t, "jmp [nowhere]\n")
	_, err := prog.SymbolTable.Get("nowhere")
	require.Error(t, err)
}

func TestParser_DuplicateLabel_IsError(t *testing.T) {
	p := parser.NewParser("a: halt\na: halt\n", "test.oi")
	_, err := p.Parse()
	require.Error(t, err)
}
