package parser

// Macro Processing Constants
const (
	// MaxMacroNestingDepth is the maximum depth for nested macro expansions.
	// Prevents infinite recursion in macro processing.
	MaxMacroNestingDepth = 100
)

// Mnemonics is the full set of base mnemonics the assembler recognizes,
// before any relation/math dot-suffix is split off. The list is written
// out here by hand and must be kept in step with the encoder's opcode tables.
var Mnemonics = map[string]bool{
	"halt": true, "ret0": true, "ret0nf": true, "retnf": true, "ret": true,
	"inc": true, "dec": true, "push": true, "pop": true, "zero": true,
	"shl": true, "shr": true, "inv": true,
	"imulst": true, "shlimg": true, "shrimg": true, "subst": true,
	"addst": true, "idivst": true, "imgwid": true, "natwid": true, "andst": true,

	"mov": true, "cmov": true, "cmpst": true, "ldf": true, "stf": true,
	"ldib": true, "signex": true, "memf": true, "stadd": true, "moddiv": true,
	"syscall": true, "pushf": true, "stst": true, "addimgw": true, "subimgw": true,
	"stinc": true, "swap": true, "addnatw": true, "subnatw": true,
	"stind": true, "ldind": true, "pushtwo": true, "poptwo": true, "mathst": true,
	"math": true,

	"ld": true, "ldi": true, "st": true, "jmp": true, "ldae": true, "call": true,

	"j": true, "ji": true, "jrelb": true, "jrel": true, "callnf": true, "calld": true,
	"sto": true, "ldo": true, "ldoinc": true, "ldiw": true, "sti": true,
	"cmp": true, "fzero": true, "stoi": true, "stor": true, "ldor": true,
	"cstf": true, "ldinc": true,
}

// IsMnemonic reports whether name (already split of any dot-suffix) names a
// base mnemonic.
func IsMnemonic(name string) bool {
	return Mnemonics[name]
}

// Directives is the set of assembler directives, not counting the leading dot.
var Directives = map[string]bool{
	"org": true, "word": true, "half": true, "byte": true,
	"ascii": true, "asciz": true, "string": true,
	"space": true, "skip": true, "align": true, "balign": true,
	"equ": true, "set": true, "global": true, "text": true, "data": true,
	"width": true, "stack": true, "ramrequired": true, "entry": true,
}
