// Package nfa compiles regexp/syntax patterns into byte-level Thompson
// NFAs.
//
// The NFA is the input of the dense DFA built by the dfa package: every
// transition consumes exactly one byte (multi-byte runes are expanded
// into UTF-8 byte-range chains at compile time), and the byte-class
// partition required by the DFA is tracked during construction.
//
// Matching is always anchored at the start of input; there is no
// unanchored prefix. The projection that consumes the DFA only ever
// asks "does the whole stream match", so the unanchored machinery of a
// general-purpose engine has no place here.
package nfa

import "fmt"

// StateID uniquely identifies an NFA state.
type StateID uint32

// InvalidState represents an invalid/uninitialized state ID.
const InvalidState StateID = 0xFFFFFFFF

// StateKind identifies the type of NFA state and determines which
// transitions are valid.
type StateKind uint8

const (
	// StateMatch represents an accepting state.
	StateMatch StateKind = iota

	// StateByteRange represents a single byte-range transition [lo, hi].
	StateByteRange

	// StateSparse represents multiple byte-range transitions
	// (character classes like [a-zA-Z0-9]).
	StateSparse

	// StateSplit represents an epsilon transition to two states
	// (alternation, quantifiers).
	StateSplit

	// StateEpsilon represents an epsilon transition to one state.
	StateEpsilon

	// StateLook represents a zero-width assertion (^, $, \b, \B).
	StateLook

	// StateFail represents a dead state with no transitions.
	StateFail
)

// String returns a human-readable representation of the StateKind.
func (k StateKind) String() string {
	switch k {
	case StateMatch:
		return "Match"
	case StateByteRange:
		return "ByteRange"
	case StateSparse:
		return "Sparse"
	case StateSplit:
		return "Split"
	case StateEpsilon:
		return "Epsilon"
	case StateLook:
		return "Look"
	case StateFail:
		return "Fail"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Look identifies a zero-width assertion carried by a StateLook state.
type Look uint8

const (
	// LookStartText is \A (and ^ outside multiline mode).
	LookStartText Look = iota
	// LookEndText is \z (and $ outside multiline mode).
	LookEndText
	// LookStartLine is ^ in multiline mode.
	LookStartLine
	// LookEndLine is $ in multiline mode.
	LookEndLine
	// LookWordBoundary is \b (ASCII word boundary).
	LookWordBoundary
	// LookNoWordBoundary is \B.
	LookNoWordBoundary
)

// Transition represents a byte range and target state for sparse states.
type Transition struct {
	Lo   byte
	Hi   byte
	Next StateID
}

// State is a single NFA state. The kind determines which fields are
// meaningful.
type State struct {
	id   StateID
	kind StateKind

	// ByteRange: [lo, hi] -> next. Epsilon/Look: next.
	lo, hi byte
	next   StateID

	// Sparse: multiple byte ranges.
	transitions []Transition

	// Split: epsilon transitions to two states.
	left, right StateID

	// Look: the assertion kind.
	look Look
}

// ID returns the state's identifier.
func (s *State) ID() StateID { return s.id }

// Kind returns the state's type.
func (s *State) Kind() StateKind { return s.kind }

// IsMatch reports whether this is an accepting state.
func (s *State) IsMatch() bool { return s.kind == StateMatch }

// ByteRange returns the byte range for ByteRange states.
// Returns (0, 0, InvalidState) for other kinds.
func (s *State) ByteRange() (lo, hi byte, next StateID) {
	if s.kind == StateByteRange {
		return s.lo, s.hi, s.next
	}
	return 0, 0, InvalidState
}

// Split returns the two targets of a Split state.
func (s *State) Split() (left, right StateID) {
	if s.kind == StateSplit {
		return s.left, s.right
	}
	return InvalidState, InvalidState
}

// Epsilon returns the target of an Epsilon state.
func (s *State) Epsilon() StateID {
	if s.kind == StateEpsilon {
		return s.next
	}
	return InvalidState
}

// Transitions returns the transition list of a Sparse state.
func (s *State) Transitions() []Transition {
	if s.kind == StateSparse {
		return s.transitions
	}
	return nil
}

// Look returns the assertion and target of a Look state.
func (s *State) Look() (Look, StateID) {
	if s.kind == StateLook {
		return s.look, s.next
	}
	return 0, InvalidState
}

// NFA is a compiled byte-level Thompson NFA.
type NFA struct {
	states []State

	// start is the anchored start state. Matching always begins here.
	start StateID

	// byteClasses partitions bytes so that two bytes in the same class
	// take identical transitions from every state.
	byteClasses ByteClasses

	// hasWordBoundary is true when the pattern contains \b or \B.
	// The determinizer skips word-context tracking when it is false.
	hasWordBoundary bool
}

// Start returns the anchored start state.
func (n *NFA) Start() StateID { return n.start }

// State returns the state with the given ID, or nil if invalid.
func (n *NFA) State(id StateID) *State {
	if id == InvalidState || int(id) >= len(n.states) {
		return nil
	}
	return &n.states[id]
}

// Len returns the number of states.
func (n *NFA) Len() int { return len(n.states) }

// ByteClasses returns the byte equivalence classes of this NFA.
func (n *NFA) ByteClasses() *ByteClasses { return &n.byteClasses }

// HasWordBoundary reports whether the pattern contains \b or \B.
func (n *NFA) HasWordBoundary() bool { return n.hasWordBoundary }

// IsWordByte reports whether b is an ASCII word byte ([0-9A-Za-z_]).
// Word boundaries are resolved against this predicate, matching Go's
// regexp \b semantics.
func IsWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z')
}
