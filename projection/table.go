package projection

import (
	"encoding/binary"
	"hash/fnv"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"

	"github.com/coregx/tokenguide/vocab"
)

// StateID identifies a projected state: a dense id assigned to each
// reachable byte-DFA state in discovery order.
type StateID = uint32

// MasksTable is the transition store of the token-aligned automaton.
//
// For every projected state it holds a dense bitmask over token ids
// (the allowed set, with the EOS bit set on final states) and a sparse
// map from token-class id to successor state. All reads are pure;
// a MasksTable is immutable once built and safe for any number of
// concurrent readers.
type MasksTable struct {
	vocabSize  int
	maskBits   uint
	eosTokenID vocab.TokenID
	eosClassID ClassID

	initial StateID
	finals  *roaring.Bitmap

	classOf map[vocab.TokenID]ClassID
	masks   []*bitset.BitSet
	next    []map[ClassID]StateID

	// Construction scratch, dropped by reduce.
	temp     []map[ClassID]StateID
	tokensIn [][]vocab.TokenID
	muted    map[vocab.TokenID]struct{}
}

func newMasksTable(vocabSize int, maskBits uint, eosTokenID vocab.TokenID) *MasksTable {
	return &MasksTable{
		vocabSize:  vocabSize,
		maskBits:   maskBits,
		eosTokenID: eosTokenID,
		finals:     roaring.New(),
	}
}

// addTransition records (departure, classID) -> arrival during
// construction.
func (t *MasksTable) addTransition(departure StateID, classID ClassID, arrival StateID) {
	for int(departure) >= len(t.temp) {
		t.temp = append(t.temp, nil)
	}
	if t.temp[departure] == nil {
		t.temp[departure] = make(map[ClassID]StateID)
	}
	t.temp[departure][classID] = arrival
}

// reduce materializes masks and next-state maps from the recorded
// transitions, resolving muted placeholder classes back to the class
// of their original token, then drops the construction scratch.
func (t *MasksTable) reduce(numStates int) {
	for len(t.temp) < numStates {
		t.temp = append(t.temp, nil)
	}
	t.masks = make([]*bitset.BitSet, len(t.temp))
	t.next = make([]map[ClassID]StateID, len(t.temp))

	for s, transitions := range t.temp {
		mask := bitset.New(t.maskBits)
		next := make(map[ClassID]StateID, len(transitions))

		// Un-muted classes first: when a placeholder resolves to a
		// class that also has a direct transition, the direct one
		// carries the true target for the real token bytes.
		for pass := 0; pass < 2; pass++ {
			for classID, target := range transitions {
				tokens := t.tokensIn[classID]
				for _, id := range tokens {
					mask.Set(uint(id))
				}
				resolved := classID
				if len(tokens) > 0 && t.allMuted(tokens) {
					resolved = t.classOf[tokens[0]]
				}
				isMuted := resolved != classID
				if (pass == 0) == isMuted {
					continue
				}
				if _, taken := next[resolved]; taken && isMuted {
					continue
				}
				next[resolved] = target
			}
		}

		t.masks[s] = mask
		t.next[s] = next
	}

	t.temp = nil
	t.tokensIn = nil
	t.muted = nil
}

func (t *MasksTable) allMuted(tokens []vocab.TokenID) bool {
	for _, id := range tokens {
		if _, ok := t.muted[id]; !ok {
			return false
		}
	}
	return true
}

// promoteDeadEnds turns every state without outgoing transitions into
// a final state with an EOS self-loop, so a guide can always stop.
func (t *MasksTable) promoteDeadEnds() {
	for s := range t.next {
		if len(t.next[s]) > 0 {
			continue
		}
		sid := StateID(s)
		if !t.finals.Contains(sid) {
			t.finals.Add(sid)
		}
		t.next[s][t.eosClassID] = sid
		t.masks[s].Set(uint(t.eosTokenID))
	}
}

// InitialState returns the projected start state.
func (t *MasksTable) InitialState() StateID { return t.initial }

// IsFinal reports whether state is final.
func (t *MasksTable) IsFinal(state StateID) bool { return t.finals.Contains(state) }

// FinalStates returns the final states in ascending order.
func (t *MasksTable) FinalStates() []StateID { return t.finals.ToArray() }

// EOSTokenID returns the end-of-sequence token id.
func (t *MasksTable) EOSTokenID() vocab.TokenID { return t.eosTokenID }

// EOSClassID returns the token class of the EOS.
func (t *MasksTable) EOSClassID() ClassID { return t.eosClassID }

// VocabSize returns the vocabulary size the table was built from.
func (t *MasksTable) VocabSize() int { return t.vocabSize }

// NumStates returns the number of projected states.
func (t *MasksTable) NumStates() int { return len(t.next) }

// AllowedMask returns the allowed-token bitmask of state, or nil for
// unknown states. The mask is shared, not copied: callers must not
// mutate it. Word-level access is available through its Bytes method.
func (t *MasksTable) AllowedMask(state StateID) *bitset.BitSet {
	if int(state) >= len(t.masks) {
		return nil
	}
	return t.masks[state]
}

// AllowedTokens materializes the allowed token ids of state, or nil
// for unknown states.
func (t *MasksTable) AllowedTokens(state StateID) []vocab.TokenID {
	mask := t.AllowedMask(state)
	if mask == nil {
		return nil
	}
	out := make([]vocab.TokenID, 0, mask.Count())
	for i, ok := mask.NextSet(0); ok; i, ok = mask.NextSet(i + 1) {
		out = append(out, vocab.TokenID(i))
	}
	return out
}

// NextState advances state by tokenID. It returns false for the EOS
// (stopping is the caller's decision, not a transition), for unknown
// states, and for tokens whose class has no transition here.
func (t *MasksTable) NextState(state StateID, tokenID vocab.TokenID) (StateID, bool) {
	if tokenID == t.eosTokenID {
		return 0, false
	}
	if int(state) >= len(t.next) {
		return 0, false
	}
	classID, ok := t.classOf[tokenID]
	if !ok {
		return 0, false
	}
	target, ok := t.next[state][classID]
	return target, ok
}

// Equal reports semantic equality: same initial state, final set, EOS,
// vocabulary size, and identical per-state masks and per-token
// transitions. Class identities are not compared; they are an internal
// encoding.
func (t *MasksTable) Equal(other *MasksTable) bool {
	if other == nil ||
		t.initial != other.initial ||
		t.eosTokenID != other.eosTokenID ||
		t.vocabSize != other.vocabSize ||
		len(t.next) != len(other.next) ||
		!t.finals.Equals(other.finals) {
		return false
	}
	for s := range t.next {
		sid := StateID(s)
		mask, otherMask := t.masks[s], other.masks[s]
		// Masks are compared as sets: widths may differ when a table
		// was rebuilt from the persisted format, which cannot see ids
		// that are allowed nowhere.
		if mask.Count() != otherMask.Count() {
			return false
		}
		for i, ok := mask.NextSet(0); ok; i, ok = mask.NextSet(i + 1) {
			if !otherMask.Test(i) {
				return false
			}
		}
		for i, ok := mask.NextSet(0); ok; i, ok = mask.NextSet(i + 1) {
			id := vocab.TokenID(i)
			if id == t.eosTokenID {
				continue
			}
			a, aok := t.NextState(sid, id)
			b, bok := other.NextState(sid, id)
			if aok != bok || a != b {
				return false
			}
		}
	}
	return true
}

// FromTransitions rebuilds a MasksTable from token-level transitions,
// the shape the v1 persisted format stores. Tokens with identical
// transition behavior are re-interned into shared classes by signature
// hashing, so a loaded table costs the same to query as a built one.
func FromTransitions(
	vocabSize int,
	eosTokenID vocab.TokenID,
	initial StateID,
	finals []StateID,
	transitions map[StateID]map[vocab.TokenID]StateID,
) *MasksTable {
	maxState := initial
	maxToken := eosTokenID
	perToken := make(map[vocab.TokenID][][2]uint32)
	for state, byToken := range transitions {
		if state > maxState {
			maxState = state
		}
		for tokenID, target := range byToken {
			if tokenID > maxToken {
				maxToken = tokenID
			}
			if target > maxState {
				maxState = target
			}
			if tokenID != eosTokenID {
				perToken[tokenID] = append(perToken[tokenID], [2]uint32{state, target})
			}
		}
	}
	for _, s := range finals {
		if s > maxState {
			maxState = s
		}
	}

	t := newMasksTable(vocabSize, uint(maxToken)+1, eosTokenID)
	t.initial = initial
	for _, s := range finals {
		t.finals.Add(s)
	}
	numStates := int(maxState) + 1
	t.classOf = make(map[vocab.TokenID]ClassID, len(perToken)+1)
	t.masks = make([]*bitset.BitSet, numStates)
	t.next = make([]map[ClassID]StateID, numStates)
	for s := 0; s < numStates; s++ {
		t.masks[s] = bitset.New(t.maskBits)
		t.next[s] = make(map[ClassID]StateID)
	}

	// Group tokens by transition signature.
	signatures := make(map[uint64]ClassID)
	nextClass := ClassID(0)
	classRep := make(map[ClassID]vocab.TokenID)

	tokenIDs := make([]vocab.TokenID, 0, len(perToken))
	for id := range perToken {
		tokenIDs = append(tokenIDs, id)
	}
	sort.Slice(tokenIDs, func(i, j int) bool { return tokenIDs[i] < tokenIDs[j] })

	for _, id := range tokenIDs {
		pairs := perToken[id]
		sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
		sig := signatureHash(pairs)
		classID, ok := signatures[sig]
		if ok && !samePairs(perToken[classRep[classID]], pairs) {
			// Hash collision: fall back to a fresh class. Masks and
			// transitions stay exact either way.
			ok = false
		}
		if !ok {
			classID = nextClass
			nextClass++
			signatures[sig] = classID
			classRep[classID] = id
			for _, p := range pairs {
				t.next[p[0]][classID] = p[1]
			}
		}
		t.classOf[id] = classID
		for _, p := range pairs {
			t.masks[p[0]].Set(uint(id))
		}
	}

	// The EOS gets its own class and the final-state bits.
	t.eosClassID = nextClass
	t.classOf[eosTokenID] = t.eosClassID
	for _, s := range finals {
		t.masks[s].Set(uint(eosTokenID))
		t.next[s][t.eosClassID] = s
	}

	return t
}

func signatureHash(pairs [][2]uint32) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, p := range pairs {
		binary.LittleEndian.PutUint32(buf[:4], p[0])
		binary.LittleEndian.PutUint32(buf[4:], p[1])
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func samePairs(a, b [][2]uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
