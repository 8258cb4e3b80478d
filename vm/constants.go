package vm

// ============================================================================
// OneImage Architecture Constants
// ============================================================================
// These values are defined by the OI instruction set and should not be modified.

// Register indices. The register file is 8 machine words, each with a fixed
// role; there is no general-purpose register bank the way ARM has R0-R12.
const (
	RZERO  = 0 // always reads as 0; writes are discarded
	RPC    = 1 // program counter
	RSP    = 2 // stack pointer
	RFRAME = 3 // points to the first local slot after a call prologue
	RARG1  = 4 // first argument / syscall argument
	RARG2  = 5 // second argument
	RRES   = 6 // function result register
	RTMP   = 7 // fourth argument / scratch
)

// RegisterCount is the size of the OI register file.
const RegisterCount = 8

// RegisterNames gives the canonical display name for each register index.
var RegisterNames = [RegisterCount]string{"RZERO", "RPC", "RSP", "RFRAME", "RARG1", "RARG2", "RRES", "RTMP"}

// NativeWordSize is the byte width of a host machine word. Every stack push,
// pop, call and return moves RSP by this many bytes regardless of image
// width.
const NativeWordSize = 8

// Supported image widths in bytes.
const (
	ImageWidth2 = 2
	ImageWidth4 = 4
	ImageWidth8 = 8
)

// ImageShiftForWidth maps an image width to its shift amount (used by shlimg/shrimg).
func ImageShiftForWidth(width uint8) uint8 {
	switch width {
	case ImageWidth2:
		return 1
	case ImageWidth4:
		return 2
	case ImageWidth8:
		return 3
	default:
		return 0
	}
}

// Opcode length classes: class = op & 3.
const (
	LengthClassOne    = 0 // 1 byte
	LengthClassTwo    = 1 // 2 bytes
	LengthClassWidth  = 2 // 1 + image_width bytes
	LengthClassFour   = 3 // 4 bytes
	LengthClassMask   = 0x3
	FunctShift        = 5
	RegShift          = 2
	RegMask           = 0x7
	WidthFieldMask    = 0x3
	OneByteFunctShift = 5
)

// Relation predicate indices.
const (
	RelGT   = 0
	RelLT   = 1
	RelEQ   = 2
	RelNE   = 3
	RelGE   = 4
	RelLE   = 5
	RelEven = 6
	RelOdd  = 7
)

// Math operation indices.
const (
	MathAdd = 0
	MathSub = 1
	MathMul = 2
	MathDiv = 3
	MathOr  = 4
	MathXor = 5
	MathAnd = 6
	MathCmp = 7
)

// 2-byte opcode (class 1) top-level group selectors, decoded from funct(op).
const (
	Group2MathRR   = 0
	Group2Cmov     = 1
	Group2Cmpst    = 2
	Group2Micro    = 3
	Group2Ops      = 4
	Group2MemStack = 5
	Group2Mov      = 6
	Group2Mathst   = 7
)

// Group2Micro sub-functions, decoded from funct(op1).
const (
	Micro2Ldf    = 0
	Micro2Stf    = 1
	Micro2Ret    = 2
	Micro2Ldib   = 3
	Micro2Signex = 4
	Micro2Memf   = 5
	Micro2Stadd  = 6
	Micro2Moddiv = 7
)

// Group2Ops sub-functions, decoded from funct(op1).
const (
	Ops2Syscall  = 0
	Ops2Pushf    = 1
	Ops2Stst     = 2
	Ops2ImgwArit = 3
	Ops2Stinc    = 4
	Ops2Swap     = 5
	Ops2NatwArit = 6
)

// Group2MemStack sub-functions, decoded from funct(op1).
const (
	Mem2Store   = 0
	Mem2Load    = 1
	Mem2PushTwo = 2
	Mem2PopTwo  = 3
)

// 3-byte / (1+image_width)-byte opcode (class 2) group selectors, decoded from funct(op).
const (
	Width3Ld   = 0
	Width3Ldi  = 1
	Width3St   = 2
	Width3Jmp  = 3
	Width3Inc  = 4
	Width3Dec  = 5
	Width3Ldae = 6
	Width3Call = 7
)

// 4-byte opcode (class 3) group selectors, decoded from funct(op).
const (
	Four0Branch  = 0
	Four1Stinc   = 1
	Four2Ldinc   = 2
	Four3Call    = 3
	Four4Sto     = 4
	Four5Ldo     = 5
	Four6Misc    = 6
	Four7Cstf    = 7
)

// Four0Branch sub-variants, decoded from width(op1).
const (
	Branch0J     = 0
	Branch1Ji    = 1
	Branch2Jrelb = 2
	Branch3Jrel  = 3
)

// Four3Call sub-variants, decoded from funct(op1).
const (
	Call0Full    = 0
	Call1NoFrame = 1
	Call2Direct  = 2
)

// Four5Ldo sub-variants, decoded from funct(op1).
const (
	Ldo0Plain = 0
	Ldo1Inc   = 1
	Ldo2Imm   = 2
)

// Four6Misc sub-variants, decoded from funct(op1).
const (
	Misc0Ld    = 0
	Misc1Sti   = 1
	Misc2Math  = 2
	Misc3Cmp   = 3
	Misc4Fzero = 4
	Misc5Stoi  = 5
	Misc6Stor  = 6
	Misc7Ldor  = 7
)

// pcOffsetReturnLimit is the largest taken-branch displacement that is
// interpreted as a return variant: a displacement in 0..pcOffsetReturnLimit
// selects a return, any other value (negative ones included) is added to RPC.
const pcOffsetReturnLimit = 3

// Return-variant selector values encoded in the low pc-offset range.
const (
	RetVariantRet     = 0
	RetVariantRetnf   = 1
	RetVariantRet0    = 2
	RetVariantRet0nf  = 3
)

// Default cycle limit, log capacity and file-descriptor table size, used
// when a host doesn't override them via config.
const (
	DefaultMaxCycles   = 1_000_000
	DefaultLogCapacity = 1000
	DefaultFDTableSize = 3 // stdin, stdout, stderr
)
