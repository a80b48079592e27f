package dfa

import (
	"encoding/binary"
	"sort"

	"github.com/coregx/tokenguide/internal/conv"
	"github.com/coregx/tokenguide/internal/sparse"
	"github.com/coregx/tokenguide/nfa"
)

// Config configures DFA construction.
type Config struct {
	// MaxStates bounds the number of determinized states. Construction
	// fails with ErrStateLimitExceeded when exceeded. Zero means the
	// default (1 << 20).
	MaxStates int
}

// DefaultConfig returns a construction configuration with defaults.
func DefaultConfig() Config {
	return Config{MaxStates: 1 << 20}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxStates < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Compile parses pattern, compiles it to an NFA and determinizes it.
func Compile(pattern string, config Config) (*DFA, error) {
	n, err := nfa.NewCompiler(nfa.DefaultCompilerConfig()).Compile(pattern)
	if err != nil {
		return nil, err
	}
	return FromNFA(n, config)
}

// FromNFA determinizes an NFA into a dense DFA by subset construction.
func FromNFA(n *nfa.NFA, config Config) (*DFA, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	maxStates := config.MaxStates
	if maxStates == 0 {
		maxStates = DefaultConfig().MaxStates
	}

	b := &builder{
		nfa:             n,
		scratch:         sparse.New(conv.IntToUint32(n.Len())),
		hasWordBoundary: n.HasWordBoundary(),
	}

	bc := n.ByteClasses()
	stride := bc.AlphabetLen()
	reps := bc.Representatives()

	d := &DFA{
		stride:      stride,
		byteClasses: *bc,
		reps:        reps,
	}

	// Key -> state id, with the dead state pre-interned as state 0.
	interned := map[string]StateID{"": DeadState}
	d.trans = make([]StateID, stride) // dead state row: all zeroes
	d.match = []bool{false}
	d.eoiMatch = []bool{false}

	// Per-state determinization scratch, dropped when construction ends.
	sets := [][]nfa.StateID{nil}
	fromWord := []bool{false}

	intern := func(states []nfa.StateID, fw bool) (StateID, error) {
		key := stateKey(states, fw)
		if id, ok := interned[key]; ok {
			return id, nil
		}
		if len(d.match) >= maxStates {
			return DeadState, ErrStateLimitExceeded
		}
		id := StateID(len(d.match))
		interned[key] = id
		d.trans = append(d.trans, make([]StateID, stride)...)
		d.match = append(d.match, b.containsMatch(states))
		d.eoiMatch = append(d.eoiMatch, b.matchesAtEOI(states, fw))
		sets = append(sets, states)
		fromWord = append(fromWord, fw)
		return id, nil
	}

	startSet := b.closure([]nfa.StateID{n.Start()}, lookStartText|lookStartLine)
	start, err := intern(startSet, false)
	if err != nil {
		return nil, err
	}
	d.start = start

	// BFS over interned states; new states extend the arrays in place.
	for s := int(start); s < len(d.match); s++ {
		for class := 0; class < stride; class++ {
			rep := reps[class]
			target := b.move(sets[s], rep, fromWord[s])
			if len(target) == 0 {
				continue
			}
			id, err := intern(target, b.hasWordBoundary && nfa.IsWordByte(rep))
			if err != nil {
				return nil, err
			}
			d.trans[s*stride+class] = id
		}
	}

	return d, nil
}

// builder holds NFA-side scratch state for subset construction.
type builder struct {
	nfa             *nfa.NFA
	scratch         *sparse.Set
	hasWordBoundary bool
}

// lookSet is a bitset of satisfied zero-width assertions. The closure
// follows a Look state only when its assertion's bit is set.
type lookSet uint8

const (
	lookStartText lookSet = 1 << iota
	lookEndText
	lookStartLine
	lookEndLine
	lookWordBoundary
	lookNoWordBoundary
)

func (ls lookSet) contains(look nfa.Look) bool {
	switch look {
	case nfa.LookStartText:
		return ls&lookStartText != 0
	case nfa.LookEndText:
		return ls&lookEndText != 0
	case nfa.LookStartLine:
		return ls&lookStartLine != 0
	case nfa.LookEndLine:
		return ls&lookEndLine != 0
	case nfa.LookWordBoundary:
		return ls&lookWordBoundary != 0
	case nfa.LookNoWordBoundary:
		return ls&lookNoWordBoundary != 0
	}
	return false
}

// closure computes the epsilon closure of states under the satisfied
// assertions in lookHave, returning a sorted slice.
func (b *builder) closure(states []nfa.StateID, lookHave lookSet) []nfa.StateID {
	set := b.scratch
	set.Clear()
	stack := make([]nfa.StateID, 0, len(states)*2)

	push := func(id nfa.StateID) {
		if id != nfa.InvalidState && !set.Contains(uint32(id)) {
			set.Insert(uint32(id))
			stack = append(stack, id)
		}
	}
	for _, sid := range states {
		push(sid)
	}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		state := b.nfa.State(current)
		if state == nil {
			continue
		}
		switch state.Kind() {
		case nfa.StateEpsilon:
			push(state.Epsilon())
		case nfa.StateSplit:
			left, right := state.Split()
			push(left)
			push(right)
		case nfa.StateLook:
			look, next := state.Look()
			if lookHave.contains(look) {
				push(next)
			}
		}
	}

	out := make([]nfa.StateID, set.Len())
	for i, v := range set.Values() {
		out[i] = nfa.StateID(v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// move computes the state set reached from states on input byte b,
// resolving word boundaries against the previous-byte context first
// and line-start assertions after consuming the byte.
func (b *builder) move(states []nfa.StateID, input byte, isFromWord bool) []nfa.StateID {
	resolved := states
	if b.hasWordBoundary {
		var wordLook lookSet
		if isFromWord != nfa.IsWordByte(input) {
			wordLook = lookWordBoundary
		} else {
			wordLook = lookNoWordBoundary
		}
		resolved = b.closure(states, wordLook)
	}

	var targets []nfa.StateID
	for _, sid := range resolved {
		state := b.nfa.State(sid)
		if state == nil {
			continue
		}
		switch state.Kind() {
		case nfa.StateByteRange:
			lo, hi, next := state.ByteRange()
			if input >= lo && input <= hi {
				targets = append(targets, next)
			}
		case nfa.StateSparse:
			for _, tr := range state.Transitions() {
				if input >= tr.Lo && input <= tr.Hi {
					targets = append(targets, tr.Next)
				}
			}
		}
	}
	if len(targets) == 0 {
		return nil
	}

	var lookAfter lookSet
	if input == '\n' {
		lookAfter = lookStartLine
	}
	return b.closure(targets, lookAfter)
}

// matchesAtEOI reports whether the set reaches a match state once
// end-of-input assertions are satisfied. Word boundaries resolve
// against "next byte is not a word byte".
func (b *builder) matchesAtEOI(states []nfa.StateID, isFromWord bool) bool {
	lookHave := lookEndText | lookEndLine
	if b.hasWordBoundary {
		if isFromWord {
			lookHave |= lookWordBoundary
		} else {
			lookHave |= lookNoWordBoundary
		}
	}
	return b.containsMatch(b.closure(states, lookHave))
}

func (b *builder) containsMatch(states []nfa.StateID) bool {
	for _, sid := range states {
		if s := b.nfa.State(sid); s != nil && s.IsMatch() {
			return true
		}
	}
	return false
}

// stateKey builds a canonical key for a sorted NFA state set plus the
// word context flag.
func stateKey(states []nfa.StateID, fromWord bool) string {
	buf := make([]byte, 1+4*len(states))
	if fromWord {
		buf[0] = 1
	}
	for i, sid := range states {
		binary.LittleEndian.PutUint32(buf[1+4*i:], uint32(sid))
	}
	return string(buf)
}
