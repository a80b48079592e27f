// Package dfa builds eager dense DFAs over bytes from compiled NFAs.
//
// Unlike a search-oriented lazy DFA, every reachable state is
// determinized up front: the token projection walks the automaton once
// per token-class prefix and needs stable state identities, cheap
// class-indexed stepping, and an end-of-input probe per state. The
// transition table is dense over byte classes (stride = alphabet
// length), with state 0 reserved as the dead state.
package dfa

import (
	"github.com/coregx/tokenguide/nfa"
)

// StateID uniquely identifies a DFA state.
type StateID uint32

// DeadState is the state with no outgoing transitions. Once entered,
// the input can never match.
const DeadState StateID = 0

// DFA is a fully determinized automaton over bytes.
//
// A DFA is immutable after construction and safe for concurrent use.
type DFA struct {
	// stride is the number of byte equivalence classes; each state owns
	// stride consecutive entries in trans.
	stride int

	// trans holds class-indexed transitions: trans[s*stride+class].
	trans []StateID

	// match[s] reports whether s is a match state (the pattern matched
	// on some prefix ending here).
	match []bool

	// eoiMatch[s] reports whether ending the input at s completes a
	// match, with end-of-input assertions resolved.
	eoiMatch []bool

	byteClasses nfa.ByteClasses

	// reps[class] is a representative byte of the class.
	reps []byte

	start StateID
}

// Start returns the anchored start state.
func (d *DFA) Start() StateID { return d.start }

// Len returns the number of states, including the dead state.
func (d *DFA) Len() int { return len(d.match) }

// AlphabetLen returns the number of byte equivalence classes.
func (d *DFA) AlphabetLen() int { return d.stride }

// ByteClasses returns the byte equivalence classes of the automaton.
func (d *DFA) ByteClasses() *nfa.ByteClasses { return &d.byteClasses }

// Representatives returns one byte per class, indexed by class number.
func (d *DFA) Representatives() []byte { return d.reps }

// NextState advances from s on input byte b.
func (d *DFA) NextState(s StateID, b byte) StateID {
	return d.trans[int(s)*d.stride+int(d.byteClasses.Get(b))]
}

// NextClass advances from s on the byte class (not byte) class.
// This is the projection's hot path: token classes are already
// rewritten to class bytes, so no per-byte class lookup is needed.
func (d *DFA) NextClass(s StateID, class byte) StateID {
	return d.trans[int(s)*d.stride+int(class)]
}

// IsDeadState reports whether s is the dead state.
func (d *DFA) IsDeadState(s StateID) bool { return s == DeadState }

// IsMatchState reports whether s is a match state.
func (d *DFA) IsMatchState(s StateID) bool { return d.match[s] }

// MatchesAtEOI reports whether ending the input at s completes a
// match. This is independent of IsMatchState: a state can match
// mid-stream yet fail a trailing assertion at end of input, and a
// state holding a pending \b or $ can match only there.
func (d *DFA) MatchesAtEOI(s StateID) bool { return d.eoiMatch[s] }

// LiveClasses returns the byte classes that lead out of s to a
// non-dead state.
func (d *DFA) LiveClasses(s StateID) []byte {
	var live []byte
	base := int(s) * d.stride
	for class := 0; class < d.stride; class++ {
		if d.trans[base+class] != DeadState {
			live = append(live, byte(class))
		}
	}
	return live
}

// LiveBytes returns, in ascending order, the input bytes that lead out
// of s to a non-dead state. Used for incompatible-vocabulary
// diagnostics.
func (d *DFA) LiveBytes(s StateID) []byte {
	var live []byte
	for b := 0; b < 256; b++ {
		if d.NextState(s, byte(b)) != DeadState {
			live = append(live, byte(b))
		}
	}
	return live
}
