package nfa

// Builder constructs NFAs incrementally. The Compiler drives it; the
// low-level API is exported for tests.
type Builder struct {
	states       []State
	start        StateID
	byteClassSet ByteClassSet
	hasWordBound bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		states: make([]State, 0, 64),
		start:  InvalidState,
	}
}

// AddMatch adds an accepting state and returns its ID.
func (b *Builder) AddMatch() StateID {
	id := StateID(len(b.states))
	b.states = append(b.states, State{id: id, kind: StateMatch})
	return id
}

// AddByteRange adds a state that consumes one byte in [lo, hi].
func (b *Builder) AddByteRange(lo, hi byte, next StateID) StateID {
	b.byteClassSet.SetRange(lo, hi)
	id := StateID(len(b.states))
	b.states = append(b.states, State{
		id:   id,
		kind: StateByteRange,
		lo:   lo,
		hi:   hi,
		next: next,
	})
	return id
}

// AddSparse adds a state with multiple byte-range transitions.
// The transitions slice is copied.
func (b *Builder) AddSparse(transitions []Transition) StateID {
	for _, tr := range transitions {
		b.byteClassSet.SetRange(tr.Lo, tr.Hi)
	}
	id := StateID(len(b.states))
	trans := make([]Transition, len(transitions))
	copy(trans, transitions)
	b.states = append(b.states, State{
		id:          id,
		kind:        StateSparse,
		transitions: trans,
	})
	return id
}

// AddSplit adds an epsilon state with two targets.
func (b *Builder) AddSplit(left, right StateID) StateID {
	id := StateID(len(b.states))
	b.states = append(b.states, State{
		id:    id,
		kind:  StateSplit,
		left:  left,
		right: right,
	})
	return id
}

// AddEpsilon adds an epsilon state with one target.
func (b *Builder) AddEpsilon(next StateID) StateID {
	id := StateID(len(b.states))
	b.states = append(b.states, State{id: id, kind: StateEpsilon, next: next})
	return id
}

// AddLook adds a zero-width assertion state.
//
// Assertions constrain the byte-class partition: line anchors observe
// '\n', word boundaries observe the ASCII word bytes. Without these
// boundary marks the determinizer could not resolve the assertion per
// class representative.
func (b *Builder) AddLook(look Look, next StateID) StateID {
	switch look {
	case LookStartLine, LookEndLine:
		b.byteClassSet.SetRange('\n', '\n')
	case LookWordBoundary, LookNoWordBoundary:
		b.hasWordBound = true
		b.byteClassSet.SetRange('0', '9')
		b.byteClassSet.SetRange('A', 'Z')
		b.byteClassSet.SetRange('_', '_')
		b.byteClassSet.SetRange('a', 'z')
	}
	id := StateID(len(b.states))
	b.states = append(b.states, State{id: id, kind: StateLook, look: look, next: next})
	return id
}

// AddFail adds a dead state with no transitions.
func (b *Builder) AddFail() StateID {
	id := StateID(len(b.states))
	b.states = append(b.states, State{id: id, kind: StateFail})
	return id
}

// Patch updates the target of a state with a single next pointer.
// Returns an error for kinds without one (Split, Sparse, Match, Fail).
func (b *Builder) Patch(stateID, target StateID) error {
	if int(stateID) >= len(b.states) {
		return &BuildError{Message: "state ID out of bounds", StateID: stateID}
	}
	s := &b.states[stateID]
	switch s.kind {
	case StateByteRange, StateEpsilon, StateLook:
		s.next = target
		return nil
	default:
		return &BuildError{
			Message: "cannot patch state of kind " + s.kind.String(),
			StateID: stateID,
		}
	}
}

// SetStart records the anchored start state.
func (b *Builder) SetStart(start StateID) {
	b.start = start
}

// Build finalizes the NFA.
func (b *Builder) Build() (*NFA, error) {
	if b.start == InvalidState {
		return nil, &BuildError{Message: "start state not set", StateID: InvalidState}
	}
	return &NFA{
		states:          b.states,
		start:           b.start,
		byteClasses:     b.byteClassSet.ByteClasses(),
		hasWordBoundary: b.hasWordBound,
	}, nil
}
