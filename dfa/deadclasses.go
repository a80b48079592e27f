package dfa

import (
	"regexp/syntax"
	"unicode"

	"github.com/coregx/tokenguide/nfa"
)

// DeadByteClasses computes the byte classes that cannot occur on any
// accepting path of the pattern.
//
// The pattern's syntax tree is walked collecting every byte that a
// literal, character class or assertion can observe; classes whose
// bytes are all outside that set are dead. Tokens containing a dead
// class can never be emitted and are dropped before projection, which
// shrinks the token-class grid considerably for schema-derived regexes
// (most of the byte space never appears in them).
func DeadByteClasses(pattern string, bc *nfa.ByteClasses) (map[byte]struct{}, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, &BuildError{Kind: InvalidPattern, Message: "dead byte analysis", Cause: err}
	}

	var live [256]bool
	collectLiveBytes(re, &live)

	dead := make(map[byte]struct{})
	for class := 0; class < bc.AlphabetLen(); class++ {
		anyLive := false
		for _, b := range bc.Elements(byte(class)) {
			if live[b] {
				anyLive = true
				break
			}
		}
		if !anyLive {
			dead[byte(class)] = struct{}{}
		}
	}
	return dead, nil
}

// largeRangeThreshold bounds per-codepoint enumeration; wider rune
// ranges get a conservative byte-span approximation instead (extra
// live bytes only weaken the optimization, never correctness).
const largeRangeThreshold = 2048

func collectLiveBytes(re *syntax.Regexp, live *[256]bool) {
	switch re.Op {
	case syntax.OpLiteral:
		var buf [4]byte
		for _, r := range re.Rune {
			markRuneBytes(r, live, &buf)
			if re.Flags&syntax.FoldCase != 0 {
				for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
					markRuneBytes(f, live, &buf)
				}
			}
		}

	case syntax.OpCharClass:
		var buf [4]byte
		for i := 0; i < len(re.Rune); i += 2 {
			lo, hi := re.Rune[i], re.Rune[i+1]
			if hi-lo > largeRangeThreshold {
				markRangeConservative(lo, hi, live)
				continue
			}
			for r := lo; r <= hi; r++ {
				markRuneBytes(r, live, &buf)
			}
		}

	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		for b := 0; b < 256; b++ {
			live[b] = true
		}

	case syntax.OpBeginLine, syntax.OpEndLine:
		live['\n'] = true

	case syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		for b := byte('0'); b <= '9'; b++ {
			live[b] = true
		}
		for b := byte('A'); b <= 'Z'; b++ {
			live[b] = true
		}
		for b := byte('a'); b <= 'z'; b++ {
			live[b] = true
		}
		live['_'] = true

	case syntax.OpConcat, syntax.OpAlternate:
		for _, sub := range re.Sub {
			collectLiveBytes(sub, live)
		}

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat, syntax.OpCapture:
		for _, sub := range re.Sub {
			collectLiveBytes(sub, live)
		}
	}
}

func markRuneBytes(r rune, live *[256]bool, buf *[4]byte) {
	if r < 0 || r > 0x10FFFF {
		return
	}
	n := encodeRune(buf[:], r)
	for i := 0; i < n; i++ {
		live[buf[i]] = true
	}
}

// markRangeConservative marks the lead-byte span of [lo, hi] plus all
// continuation bytes.
func markRangeConservative(lo, hi rune, live *[256]bool) {
	var bufLo, bufHi [4]byte
	if lo < 0 {
		lo = 0
	}
	if hi > 0x10FFFF {
		hi = 0x10FFFF
	}
	encodeRune(bufLo[:], lo)
	encodeRune(bufHi[:], hi)
	for b := int(bufLo[0]); b <= int(bufHi[0]); b++ {
		live[b] = true
	}
	if hi >= 0x80 {
		for b := 0x80; b <= 0xBF; b++ {
			live[b] = true
		}
	}
}

func encodeRune(buf []byte, r rune) int {
	switch {
	case r < 0x80:
		buf[0] = byte(r)
		return 1
	case r < 0x800:
		buf[0] = byte(0xC0 | (r >> 6))
		buf[1] = byte(0x80 | (r & 0x3F))
		return 2
	case r < 0x10000:
		buf[0] = byte(0xE0 | (r >> 12))
		buf[1] = byte(0x80 | ((r >> 6) & 0x3F))
		buf[2] = byte(0x80 | (r & 0x3F))
		return 3
	default:
		buf[0] = byte(0xF0 | (r >> 18))
		buf[1] = byte(0x80 | ((r >> 12) & 0x3F))
		buf[2] = byte(0x80 | ((r >> 6) & 0x3F))
		buf[3] = byte(0x80 | (r & 0x3F))
		return 4
	}
}
