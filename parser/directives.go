package parser

import "fmt"

// EncodeDirective returns the bytes a data directive contributes to the
// image body. Must agree with applyDirective's size computation exactly -
// this is the inverse operation, run once addresses and symbols are final.
func EncodeDirective(dir *Directive, imageWidth uint8, symbols *SymbolTable) ([]byte, error) {
	switch dir.Name {
	case "word":
		return encodeIntList(dir, symbols, int(imageWidth))
	case "half":
		return encodeIntList(dir, symbols, 2)
	case "byte":
		return encodeIntList(dir, symbols, 1)
	case "ascii":
		return encodeAscii(dir, false)
	case "asciz", "string":
		return encodeAscii(dir, true)
	case "space", "skip":
		n, err := directiveUint(dir, 0)
		if err != nil {
			return nil, err
		}
		return make([]byte, n), nil
	case "align", "balign":
		v, err := directiveUint(dir, 0)
		if err != nil {
			return nil, err
		}
		if v == 0 {
			return nil, nil
		}
		rem := dir.Address % v
		if rem == 0 {
			return nil, nil
		}
		return make([]byte, v-rem), nil
	case "org", "width", "stack", "ramrequired", "entry", "equ", "set", "global", "text", "data":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown directive: .%s", dir.Name)
	}
}

func encodeIntList(dir *Directive, symbols *SymbolTable, width int) ([]byte, error) {
	buf := make([]byte, 0, len(dir.Args)*width)
	for _, arg := range dir.Args {
		v, err := resolveDirectiveArg(arg, symbols)
		if err != nil {
			return nil, fmt.Errorf(".%s: %w", dir.Name, err)
		}
		word := make([]byte, width)
		for i := 0; i < width; i++ {
			word[i] = byte(v >> (8 * uint(i)))
		}
		buf = append(buf, word...)
	}
	return buf, nil
}

// resolveDirectiveArg parses a directive argument as either a numeric
// literal or a symbol reference, resolving the latter through symbols.
func resolveDirectiveArg(arg string, symbols *SymbolTable) (uint64, error) {
	if v, err := parseNumber(arg); err == nil {
		return v, nil
	}
	return symbols.Get(arg)
}

func encodeAscii(dir *Directive, nulTerminate bool) ([]byte, error) {
	var buf []byte
	for _, a := range dir.Args {
		buf = append(buf, []byte(ProcessEscapeSequences(a))...)
	}
	if nulTerminate {
		buf = append(buf, 0)
	}
	return buf, nil
}
