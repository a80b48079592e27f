package nfa

import (
	"fmt"
	"regexp/syntax"
)

// CompilerConfig configures NFA compilation behavior.
type CompilerConfig struct {
	// MaxRecursionDepth limits recursion during compilation to prevent
	// stack overflow on pathologically nested patterns. Default: 100.
	MaxRecursionDepth int
}

// DefaultCompilerConfig returns a compiler configuration with sensible
// defaults.
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{MaxRecursionDepth: 100}
}

// Compiler compiles regexp/syntax patterns into byte-level Thompson
// NFAs. Matching is anchored: the produced NFA recognizes exactly the
// strings the whole pattern matches.
type Compiler struct {
	config  CompilerConfig
	builder *Builder
	depth   int
}

// NewCompiler creates a compiler with the given configuration.
func NewCompiler(config CompilerConfig) *Compiler {
	if config.MaxRecursionDepth == 0 {
		config.MaxRecursionDepth = 100
	}
	return &Compiler{config: config}
}

// Compile parses and compiles a pattern.
//
// Syntax is Go's Perl-compatible flavor (regexp/syntax). Capture groups
// compile transparently: the DFA only tracks match/no-match.
func (c *Compiler) Compile(pattern string) (*NFA, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}
	return c.CompileRegexp(re)
}

// CompileRegexp compiles a parsed syntax.Regexp.
func (c *Compiler) CompileRegexp(re *syntax.Regexp) (*NFA, error) {
	c.builder = NewBuilder()
	c.depth = 0

	start, end, err := c.compile(re)
	if err != nil {
		return nil, err
	}

	matchID := c.builder.AddMatch()
	if err := c.builder.Patch(end, matchID); err != nil {
		// End may be a split; route through an epsilon.
		epsilon := c.builder.AddEpsilon(matchID)
		if patchErr := c.builder.Patch(end, epsilon); patchErr != nil {
			return nil, &CompileError{Err: fmt.Errorf("connect to match state: %w", patchErr)}
		}
	}

	c.builder.SetStart(start)
	nfa, err := c.builder.Build()
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return nfa, nil
}

// compile recursively compiles a syntax node, returning the fragment's
// start state and the state whose target still needs patching.
func (c *Compiler) compile(re *syntax.Regexp) (start, end StateID, err error) {
	c.depth++
	if c.depth > c.config.MaxRecursionDepth {
		return InvalidState, InvalidState, &CompileError{Err: ErrTooComplex}
	}
	defer func() { c.depth-- }()

	switch re.Op {
	case syntax.OpLiteral:
		return c.compileLiteral(re)
	case syntax.OpCharClass:
		return c.compileCharClass(re.Rune)
	case syntax.OpAnyChar:
		return c.compileCharClass([]rune{0, 0x10FFFF})
	case syntax.OpAnyCharNotNL:
		return c.compileCharClass([]rune{0, '\n' - 1, '\n' + 1, 0x10FFFF})
	case syntax.OpConcat:
		return c.compileConcat(re.Sub)
	case syntax.OpAlternate:
		return c.compileAlternate(re.Sub)
	case syntax.OpStar:
		return c.compileStar(re.Sub[0])
	case syntax.OpPlus:
		return c.compilePlus(re.Sub[0])
	case syntax.OpQuest:
		return c.compileQuest(re.Sub[0])
	case syntax.OpRepeat:
		return c.compileRepeat(re.Sub[0], re.Min, re.Max)
	case syntax.OpCapture:
		// Captures are transparent here: only match/no-match matters.
		if len(re.Sub) == 0 {
			return c.compileEmptyMatch()
		}
		return c.compile(re.Sub[0])
	case syntax.OpBeginText:
		id := c.builder.AddLook(LookStartText, InvalidState)
		return id, id, nil
	case syntax.OpEndText:
		id := c.builder.AddLook(LookEndText, InvalidState)
		return id, id, nil
	case syntax.OpBeginLine:
		id := c.builder.AddLook(LookStartLine, InvalidState)
		return id, id, nil
	case syntax.OpEndLine:
		id := c.builder.AddLook(LookEndLine, InvalidState)
		return id, id, nil
	case syntax.OpWordBoundary:
		id := c.builder.AddLook(LookWordBoundary, InvalidState)
		return id, id, nil
	case syntax.OpNoWordBoundary:
		id := c.builder.AddLook(LookNoWordBoundary, InvalidState)
		return id, id, nil
	case syntax.OpEmptyMatch:
		return c.compileEmptyMatch()
	case syntax.OpNoMatch:
		return c.compileNoMatch()
	default:
		return InvalidState, InvalidState, &CompileError{
			Err: fmt.Errorf("%w: unsupported operation %v", ErrInvalidPattern, re.Op),
		}
	}
}

// compileLiteral compiles a literal rune sequence, handling the
// FoldCase flag for ASCII letters with a per-rune alternation.
func (c *Compiler) compileLiteral(re *syntax.Regexp) (start, end StateID, err error) {
	runes := re.Rune
	if len(runes) == 0 {
		return c.compileEmptyMatch()
	}

	foldCase := re.Flags&syntax.FoldCase != 0

	prev := InvalidState
	first := InvalidState
	for _, r := range runes {
		if foldCase && isASCIILetter(r) {
			prev, err = c.compileFoldCaseRune(r, prev, &first)
		} else {
			prev, err = c.compileRuneChain(r, prev, &first)
		}
		if err != nil {
			return InvalidState, InvalidState, err
		}
	}
	return first, prev, nil
}

// compileFoldCaseRune compiles a case-insensitive ASCII letter as an
// alternation of its two cases converging on a join state.
func (c *Compiler) compileFoldCaseRune(r rune, prev StateID, first *StateID) (StateID, error) {
	upper := r &^ 0x20
	lower := r | 0x20

	upperID := c.builder.AddByteRange(byte(upper), byte(upper), InvalidState)
	lowerID := c.builder.AddByteRange(byte(lower), byte(lower), InvalidState)

	join := c.builder.AddEpsilon(InvalidState)
	if err := c.builder.Patch(upperID, join); err != nil {
		return InvalidState, err
	}
	if err := c.builder.Patch(lowerID, join); err != nil {
		return InvalidState, err
	}

	split := c.builder.AddSplit(upperID, lowerID)
	if prev == InvalidState {
		*first = split
	} else if err := c.builder.Patch(prev, split); err != nil {
		return InvalidState, err
	}
	return join, nil
}

// compileRuneChain appends the UTF-8 byte chain of r after prev.
func (c *Compiler) compileRuneChain(r rune, prev StateID, first *StateID) (StateID, error) {
	var buf [4]byte
	n := encodeRune(buf[:], r)
	for i := 0; i < n; i++ {
		id := c.builder.AddByteRange(buf[i], buf[i], InvalidState)
		if *first == InvalidState {
			*first = id
		}
		if prev != InvalidState {
			if err := c.builder.Patch(prev, id); err != nil {
				return InvalidState, err
			}
		}
		prev = id
	}
	return prev, nil
}

// compileCharClass compiles a character class given as rune range pairs
// [lo1, hi1, lo2, hi2, ...].
func (c *Compiler) compileCharClass(ranges []rune) (start, end StateID, err error) {
	if len(ranges) == 0 {
		return c.compileNoMatch()
	}

	allASCII := true
	for _, r := range ranges {
		if r > 0x7F {
			allASCII = false
			break
		}
	}

	if allASCII {
		var transitions []Transition
		for i := 0; i < len(ranges); i += 2 {
			transitions = append(transitions, Transition{
				Lo: byte(ranges[i]), Hi: byte(ranges[i+1]), Next: InvalidState,
			})
		}
		if len(transitions) == 1 {
			t := transitions[0]
			id := c.builder.AddByteRange(t.Lo, t.Hi, InvalidState)
			return id, id, nil
		}
		target := c.builder.AddEpsilon(InvalidState)
		for i := range transitions {
			transitions[i].Next = target
		}
		id := c.builder.AddSparse(transitions)
		return id, target, nil
	}

	return c.compileUnicodeClass(ranges)
}

// compileUnicodeClass builds a UTF-8 automaton for a class containing
// non-ASCII runes.
//
// The ASCII part becomes one sparse state; each non-ASCII range is
// split along UTF-8 byte-length boundaries into chains of byte ranges.
// Classes whose non-ASCII part covers all of Unicode (negated ASCII
// classes like [^,]) take a precomputed branch set instead of the
// per-range construction.
func (c *Compiler) compileUnicodeClass(ranges []rune) (start, end StateID, err error) {
	var asciiRanges []Transition
	var nonASCII [][2]rune

	for i := 0; i < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		switch {
		case hi < 0x80:
			asciiRanges = append(asciiRanges, Transition{Lo: byte(lo), Hi: byte(hi), Next: InvalidState})
		case lo >= 0x80:
			nonASCII = append(nonASCII, [2]rune{lo, hi})
		default:
			asciiRanges = append(asciiRanges, Transition{Lo: byte(lo), Hi: 0x7F, Next: InvalidState})
			nonASCII = append(nonASCII, [2]rune{0x80, hi})
		}
	}

	coversAllNonASCII := len(nonASCII) == 1 &&
		nonASCII[0][0] <= 0x80 && nonASCII[0][1] >= 0x10FFFF

	target := c.builder.AddEpsilon(InvalidState)
	var altStarts []StateID

	if len(asciiRanges) > 0 {
		if len(asciiRanges) == 1 {
			id := c.builder.AddByteRange(asciiRanges[0].Lo, asciiRanges[0].Hi, target)
			altStarts = append(altStarts, id)
		} else {
			for i := range asciiRanges {
				asciiRanges[i].Next = target
			}
			id := c.builder.AddSparse(asciiRanges)
			altStarts = append(altStarts, id)
		}
	}

	if coversAllNonASCII {
		altStarts = append(altStarts, c.buildUTF8NonASCIIBranches(target)...)
	} else {
		for _, rng := range nonASCII {
			altStarts = append(altStarts, c.compileUTF8Range(rng[0], rng[1], target)...)
		}
	}

	if len(altStarts) == 0 {
		return c.compileNoMatch()
	}
	if len(altStarts) == 1 {
		return altStarts[0], target, nil
	}
	return c.buildSplitChain(altStarts), target, nil
}

// compileUTF8Range builds byte-chain branches for the Unicode range
// [lo, hi], split along UTF-8 encoding-length boundaries:
//
//	1-byte: U+0000-U+007F
//	2-byte: U+0080-U+07FF
//	3-byte: U+0800-U+FFFF (minus surrogates)
//	4-byte: U+10000-U+10FFFF
func (c *Compiler) compileUTF8Range(lo, hi rune, endState StateID) []StateID {
	var starts []StateID

	if lo <= 0x7F {
		asciiHi := hi
		if asciiHi > 0x7F {
			asciiHi = 0x7F
		}
		starts = append(starts, c.builder.AddByteRange(byte(lo), byte(asciiHi), endState))
		lo = 0x80
	}
	if lo > hi {
		return starts
	}

	if lo <= 0x7FF {
		twoHi := hi
		if twoHi > 0x7FF {
			twoHi = 0x7FF
		}
		starts = append(starts, c.compileUTF82ByteRange(lo, twoHi, endState)...)
		lo = 0x800
	}
	if lo > hi {
		return starts
	}

	if lo <= 0xFFFF {
		threeHi := hi
		if threeHi > 0xFFFF {
			threeHi = 0xFFFF
		}
		starts = append(starts, c.compileUTF83ByteRange(lo, threeHi, endState)...)
		lo = 0x10000
	}
	if lo > hi {
		return starts
	}

	return append(starts, c.compileUTF84ByteRange(lo, hi, endState)...)
}

// compileUTF82ByteRange handles U+0080-U+07FF (lead 0xC2-0xDF).
func (c *Compiler) compileUTF82ByteRange(lo, hi rune, endState StateID) []StateID {
	var starts []StateID

	loLead := byte(0xC0 | (lo >> 6))
	loCont := byte(0x80 | (lo & 0x3F))
	hiLead := byte(0xC0 | (hi >> 6))
	hiCont := byte(0x80 | (hi & 0x3F))

	if loLead == hiLead {
		cont := c.builder.AddByteRange(loCont, hiCont, endState)
		starts = append(starts, c.builder.AddByteRange(loLead, loLead, cont))
		return starts
	}

	cont1 := c.builder.AddByteRange(loCont, 0xBF, endState)
	starts = append(starts, c.builder.AddByteRange(loLead, loLead, cont1))

	if hiLead > loLead+1 {
		contM := c.builder.AddByteRange(0x80, 0xBF, endState)
		starts = append(starts, c.builder.AddByteRange(loLead+1, hiLead-1, contM))
	}

	cont2 := c.builder.AddByteRange(0x80, hiCont, endState)
	starts = append(starts, c.builder.AddByteRange(hiLead, hiLead, cont2))
	return starts
}

// compileUTF83ByteRange handles U+0800-U+FFFF, excluding the surrogate
// gap U+D800-U+DFFF.
func (c *Compiler) compileUTF83ByteRange(lo, hi rune, endState StateID) []StateID {
	var starts []StateID

	if lo <= 0xD7FF && hi >= 0xE000 {
		starts = append(starts, c.compileUTF83ByteRangeSimple(lo, 0xD7FF, endState)...)
		starts = append(starts, c.compileUTF83ByteRangeSimple(0xE000, hi, endState)...)
		return starts
	}
	if lo >= 0xD800 && hi <= 0xDFFF {
		return starts
	}
	if lo >= 0xD800 && lo <= 0xDFFF {
		lo = 0xE000
	}
	if hi >= 0xD800 && hi <= 0xDFFF {
		hi = 0xD7FF
	}
	if lo > hi {
		return starts
	}
	return c.compileUTF83ByteRangeSimple(lo, hi, endState)
}

func (c *Compiler) compileUTF83ByteRangeSimple(lo, hi rune, endState StateID) []StateID {
	var starts []StateID

	loLead := byte(0xE0 | (lo >> 12))
	loCont1 := byte(0x80 | ((lo >> 6) & 0x3F))
	loCont2 := byte(0x80 | (lo & 0x3F))
	hiLead := byte(0xE0 | (hi >> 12))
	hiCont1 := byte(0x80 | ((hi >> 6) & 0x3F))
	hiCont2 := byte(0x80 | (hi & 0x3F))

	switch {
	case loLead == hiLead && loCont1 == hiCont1:
		cont2 := c.builder.AddByteRange(loCont2, hiCont2, endState)
		cont1 := c.builder.AddByteRange(loCont1, loCont1, cont2)
		starts = append(starts, c.builder.AddByteRange(loLead, loLead, cont1))

	case loLead == hiLead:
		// Same lead byte: low-edge chain, middle block, high-edge chain.
		midLo, midHi := loCont1, hiCont1
		if loCont2 > 0x80 {
			cont2 := c.builder.AddByteRange(loCont2, 0xBF, endState)
			cont1 := c.builder.AddByteRange(loCont1, loCont1, cont2)
			starts = append(starts, c.builder.AddByteRange(loLead, loLead, cont1))
			midLo = loCont1 + 1
		}
		if hiCont2 < 0xBF {
			cont2 := c.builder.AddByteRange(0x80, hiCont2, endState)
			cont1 := c.builder.AddByteRange(hiCont1, hiCont1, cont2)
			starts = append(starts, c.builder.AddByteRange(loLead, loLead, cont1))
			midHi = hiCont1 - 1
		}
		if midLo <= midHi {
			cont2 := c.builder.AddByteRange(0x80, 0xBF, endState)
			cont1 := c.builder.AddByteRange(midLo, midHi, cont2)
			starts = append(starts, c.builder.AddByteRange(loLead, loLead, cont1))
		}

	default:
		// Different lead bytes: low edge, middle leads, high edge.
		starts = append(starts, c.compileUTF83ByteRangeSimple(lo, rune(loLead&0x0F)<<12|0xFFF, endState)...)
		if hiLead > loLead+1 {
			for lead := loLead + 1; lead <= hiLead-1; lead++ {
				c1lo := byte(0x80)
				if lead == 0xE0 {
					c1lo = 0xA0
				}
				cont2 := c.builder.AddByteRange(0x80, 0xBF, endState)
				cont1 := c.builder.AddByteRange(c1lo, 0xBF, cont2)
				starts = append(starts, c.builder.AddByteRange(lead, lead, cont1))
			}
		}
		starts = append(starts, c.compileUTF83ByteRangeSimple(rune(hiLead&0x0F)<<12, hi, endState)...)
	}

	return starts
}

// compileUTF84ByteRange handles U+10000-U+10FFFF (lead 0xF0-0xF4).
func (c *Compiler) compileUTF84ByteRange(lo, hi rune, endState StateID) []StateID {
	var starts []StateID

	if hi > 0x10FFFF {
		hi = 0x10FFFF
	}
	if lo < 0x10000 {
		lo = 0x10000
	}
	if lo > hi {
		return starts
	}

	loLead := byte(0xF0 | (lo >> 18))
	hiLead := byte(0xF0 | (hi >> 18))

	for lead := loLead; lead <= hiLead; lead++ {
		c1lo, c1hi := byte(0x80), byte(0xBF)
		if lead == 0xF0 {
			c1lo = 0x90
		}
		if lead == 0xF4 {
			c1hi = 0x8F
		}
		cont3 := c.builder.AddByteRange(0x80, 0xBF, endState)
		cont2 := c.builder.AddByteRange(0x80, 0xBF, cont3)
		cont1 := c.builder.AddByteRange(c1lo, c1hi, cont2)
		starts = append(starts, c.builder.AddByteRange(lead, lead, cont1))
	}
	return starts
}

// buildUTF8NonASCIIBranches builds branches for every valid multi-byte
// UTF-8 sequence, used by classes whose non-ASCII part is unrestricted.
func (c *Compiler) buildUTF8NonASCIIBranches(endState StateID) []StateID {
	var branches []StateID

	cont := func(next StateID) StateID {
		return c.builder.AddByteRange(0x80, 0xBF, next)
	}

	// 2-byte: C2-DF 80-BF
	branches = append(branches, c.builder.AddByteRange(0xC2, 0xDF, cont(endState)))

	// 3-byte: E0 A0-BF 80-BF | E1-EC 80-BF 80-BF | ED 80-9F 80-BF | EE-EF 80-BF 80-BF
	branches = append(branches,
		c.builder.AddByteRange(0xE0, 0xE0, c.builder.AddByteRange(0xA0, 0xBF, cont(endState))),
		c.builder.AddByteRange(0xE1, 0xEC, cont(cont(endState))),
		c.builder.AddByteRange(0xED, 0xED, c.builder.AddByteRange(0x80, 0x9F, cont(endState))),
		c.builder.AddByteRange(0xEE, 0xEF, cont(cont(endState))),
	)

	// 4-byte: F0 90-BF ... | F1-F3 80-BF ... | F4 80-8F ...
	branches = append(branches,
		c.builder.AddByteRange(0xF0, 0xF0, c.builder.AddByteRange(0x90, 0xBF, cont(cont(endState)))),
		c.builder.AddByteRange(0xF1, 0xF3, cont(cont(cont(endState)))),
		c.builder.AddByteRange(0xF4, 0xF4, c.builder.AddByteRange(0x80, 0x8F, cont(cont(endState)))),
	)

	return branches
}

func (c *Compiler) compileConcat(subs []*syntax.Regexp) (start, end StateID, err error) {
	if len(subs) == 0 {
		return c.compileEmptyMatch()
	}
	if len(subs) == 1 {
		return c.compile(subs[0])
	}

	start, end, err = c.compile(subs[0])
	if err != nil {
		return InvalidState, InvalidState, err
	}
	for i := 1; i < len(subs); i++ {
		nextStart, nextEnd, err := c.compile(subs[i])
		if err != nil {
			return InvalidState, InvalidState, err
		}
		if err := c.builder.Patch(end, nextStart); err != nil {
			epsilon := c.builder.AddEpsilon(nextStart)
			if err := c.builder.Patch(end, epsilon); err != nil {
				return InvalidState, InvalidState, err
			}
		}
		end = nextEnd
	}
	return start, end, nil
}

func (c *Compiler) compileAlternate(subs []*syntax.Regexp) (start, end StateID, err error) {
	if len(subs) == 0 {
		return c.compileEmptyMatch()
	}
	if len(subs) == 1 {
		return c.compile(subs[0])
	}

	starts := make([]StateID, 0, len(subs))
	join := c.builder.AddEpsilon(InvalidState)
	for _, sub := range subs {
		s, e, err := c.compile(sub)
		if err != nil {
			return InvalidState, InvalidState, err
		}
		starts = append(starts, s)
		if err := c.builder.Patch(e, join); err != nil {
			epsilon := c.builder.AddEpsilon(join)
			if err := c.builder.Patch(e, epsilon); err != nil {
				return InvalidState, InvalidState, err
			}
		}
	}
	return c.buildSplitChain(starts), join, nil
}

// buildSplitChain builds a binary tree of split states over targets.
func (c *Compiler) buildSplitChain(targets []StateID) StateID {
	if len(targets) == 1 {
		return targets[0]
	}
	if len(targets) == 2 {
		return c.builder.AddSplit(targets[0], targets[1])
	}
	right := c.buildSplitChain(targets[1:])
	return c.builder.AddSplit(targets[0], right)
}

func (c *Compiler) compileStar(sub *syntax.Regexp) (start, end StateID, err error) {
	subStart, subEnd, err := c.compile(sub)
	if err != nil {
		return InvalidState, InvalidState, err
	}
	end = c.builder.AddEpsilon(InvalidState)
	split := c.builder.AddSplit(subStart, end)
	if err := c.builder.Patch(subEnd, split); err != nil {
		epsilon := c.builder.AddEpsilon(split)
		if err := c.builder.Patch(subEnd, epsilon); err != nil {
			return InvalidState, InvalidState, err
		}
	}
	return split, end, nil
}

func (c *Compiler) compilePlus(sub *syntax.Regexp) (start, end StateID, err error) {
	subStart, subEnd, err := c.compile(sub)
	if err != nil {
		return InvalidState, InvalidState, err
	}
	end = c.builder.AddEpsilon(InvalidState)
	split := c.builder.AddSplit(subStart, end)
	if err := c.builder.Patch(subEnd, split); err != nil {
		epsilon := c.builder.AddEpsilon(split)
		if err := c.builder.Patch(subEnd, epsilon); err != nil {
			return InvalidState, InvalidState, err
		}
	}
	return subStart, end, nil
}

func (c *Compiler) compileQuest(sub *syntax.Regexp) (start, end StateID, err error) {
	subStart, subEnd, err := c.compile(sub)
	if err != nil {
		return InvalidState, InvalidState, err
	}
	end = c.builder.AddEpsilon(InvalidState)
	split := c.builder.AddSplit(subStart, end)
	if err := c.builder.Patch(subEnd, end); err != nil {
		epsilon := c.builder.AddEpsilon(end)
		if err := c.builder.Patch(subEnd, epsilon); err != nil {
			return InvalidState, InvalidState, err
		}
	}
	return split, end, nil
}

// compileRepeat compiles a{m,n}. The DFA has no thread priorities, so
// greedy and non-greedy variants compile identically.
func (c *Compiler) compileRepeat(sub *syntax.Regexp, minCount, maxCount int) (start, end StateID, err error) {
	if maxCount == -1 {
		// a{m,}: m copies followed by a*.
		if minCount == 0 {
			return c.compileStar(sub)
		}
		subs := repeatSubs(sub, minCount)
		subs = append(subs, &syntax.Regexp{Op: syntax.OpStar, Sub: []*syntax.Regexp{sub}})
		return c.compileConcat(subs)
	}
	if minCount == maxCount {
		if minCount == 0 {
			return c.compileEmptyMatch()
		}
		return c.compileConcat(repeatSubs(sub, minCount))
	}
	if minCount > maxCount {
		return InvalidState, InvalidState, &CompileError{
			Err: fmt.Errorf("%w: invalid repeat range {%d,%d}", ErrInvalidPattern, minCount, maxCount),
		}
	}
	// a{m,n}: m copies plus n-m optional copies.
	subs := repeatSubs(sub, minCount)
	for i := 0; i < maxCount-minCount; i++ {
		subs = append(subs, &syntax.Regexp{Op: syntax.OpQuest, Sub: []*syntax.Regexp{sub}})
	}
	return c.compileConcat(subs)
}

func repeatSubs(sub *syntax.Regexp, n int) []*syntax.Regexp {
	subs := make([]*syntax.Regexp, 0, n+1)
	for i := 0; i < n; i++ {
		subs = append(subs, sub)
	}
	return subs
}

func (c *Compiler) compileEmptyMatch() (start, end StateID, err error) {
	id := c.builder.AddEpsilon(InvalidState)
	return id, id, nil
}

// compileNoMatch builds a fragment that can never reach its end state,
// used for empty character classes like [^\S\s].
func (c *Compiler) compileNoMatch() (start, end StateID, err error) {
	start = c.builder.AddFail()
	end = c.builder.AddEpsilon(InvalidState)
	return start, end, nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// encodeRune encodes r as UTF-8 into buf (capacity >= 4) and returns
// the byte count.
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
