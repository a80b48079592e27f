package tokenguide

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"
)

// Guide is a stateful cursor over an immutable Index.
//
// A Guide holds a shared reference to its Index plus the current
// state; it is cheap to copy and serialize. The Index side is safe for
// any number of concurrent Guides, but an individual Guide is a
// single-threaded value.
type Guide struct {
	index *Index
	state StateID
}

// NewGuide creates a guide positioned at the index's initial state.
func NewGuide(index *Index) *Guide {
	return &Guide{index: index, state: index.InitialState()}
}

// GetState returns the current state.
func (g *Guide) GetState() StateID { return g.state }

// Index returns the underlying index.
func (g *Guide) Index() *Index { return g.index }

// AllowedMask returns the allowed-token bitmask at the current state
// without advancing.
func (g *Guide) AllowedMask() *bitset.BitSet {
	return g.index.AllowedMask(g.state)
}

// AllowedTokens materializes the allowed token ids at the current
// state without advancing.
func (g *Guide) AllowedTokens() []TokenID {
	return g.index.AllowedTokens(g.state)
}

// Advance feeds tokenID into the automaton and returns the allowed
// mask of the new state.
//
// Advancing by the EOS is a terminating no-op at a final state (the
// state does not change) and an error anywhere else. Any other token
// outside the current mask is an error and leaves the state untouched.
func (g *Guide) Advance(tokenID TokenID) (*bitset.BitSet, error) {
	if tokenID == g.index.EOSTokenID() {
		if g.index.IsFinalState(g.state) {
			return g.AllowedMask(), nil
		}
		return nil, &GuideError{State: g.state, TokenID: tokenID}
	}
	next, ok := g.index.NextState(g.state, tokenID)
	if !ok {
		return nil, &GuideError{State: g.state, TokenID: tokenID}
	}
	g.state = next
	return g.AllowedMask(), nil
}

// IsFinished reports whether the current state is final.
func (g *Guide) IsFinished() bool {
	return g.index.IsFinalState(g.state)
}

// Clone returns an independent cursor at the same state over the same
// index.
func (g *Guide) Clone() *Guide {
	return &Guide{index: g.index, state: g.state}
}

// Serialize persists the guide: the current state id followed by the
// index in its v1 binary format.
func (g *Guide) Serialize() ([]byte, error) {
	indexData, err := g.index.Serialize()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4, 4+len(indexData))
	binary.LittleEndian.PutUint32(out, g.state)
	return append(out, indexData...), nil
}

// DeserializeGuide restores a guide written by Serialize.
func DeserializeGuide(data []byte) (*Guide, error) {
	if len(data) < 4 {
		return nil, &IndexError{Kind: IOError, Message: "unexpected end of buffer"}
	}
	state := binary.LittleEndian.Uint32(data)
	index, err := DeserializeIndex(data[4:])
	if err != nil {
		return nil, err
	}
	return &Guide{index: index, state: state}, nil
}
