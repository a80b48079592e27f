package tokenguide

import (
	"errors"
	"testing"

	"github.com/coregx/tokenguide/projection"
	"github.com/coregx/tokenguide/vocab"
)

func mustVocab(t *testing.T, eos TokenID, tokens map[string]TokenID) *vocab.Vocabulary {
	t.Helper()
	v := vocab.New(eos)
	for token, id := range tokens {
		if err := v.InsertString(token, id); err != nil {
			t.Fatalf("InsertString(%q, %d) failed: %v", token, id, err)
		}
	}
	return v
}

func integerVocab(t *testing.T) *vocab.Vocabulary {
	return mustVocab(t, 4, map[string]TokenID{
		"blah": 0,
		"1a":   1,
		"2":    2,
		"0":    3,
	})
}

func maskHas(i *Index, state StateID, id TokenID) bool {
	mask := i.AllowedMask(state)
	return mask != nil && mask.Test(uint(id))
}

func TestIndex_IntegerRegex(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithoutLiteralMuting()}} {
		index, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t), opts...)
		if err != nil {
			t.Fatalf("NewIndex failed: %v", err)
		}

		initial := index.InitialState()
		if index.IsFinalState(initial) {
			t.Error("initial state is final, want non-final")
		}
		for _, id := range []TokenID{2, 3} {
			if !maskHas(index, initial, id) {
				t.Errorf("token %d missing from initial mask", id)
			}
		}
		if maskHas(index, initial, 0) || maskHas(index, initial, 1) {
			t.Error("initial mask allows tokens that cannot start an integer")
		}

		// "0" completes the match: a final state whose mask is {EOS}.
		zeroState, ok := index.NextState(initial, 3)
		if !ok {
			t.Fatal("NextState(initial, 3) not defined")
		}
		if !index.IsFinalState(zeroState) {
			t.Error("state after \"0\" is not final")
		}
		mask := index.AllowedMask(zeroState)
		if mask.Count() != 1 || !mask.Test(uint(index.EOSTokenID())) {
			t.Errorf("mask after \"0\" = %v, want {EOS}", index.AllowedTokens(zeroState))
		}

		// "2" leads to a state that can terminate or continue with "0".
		twoState, ok := index.NextState(initial, 2)
		if !ok {
			t.Fatal("NextState(initial, 2) not defined")
		}
		if !index.IsFinalState(twoState) {
			t.Error("state after \"2\" is not final")
		}
		tail, ok := index.NextState(twoState, 3)
		if !ok {
			t.Fatal("NextState(after 2, 3) not defined")
		}
		if !index.IsFinalState(tail) {
			t.Error("state after \"20\" is not final")
		}
	}
}

func TestIndex_InitialStateInAllowed(t *testing.T) {
	v := mustVocab(t, 104, map[string]TokenID{
		"\n": 103,
		".":  102,
		"`":  101,
	})
	index, err := NewIndex("`\\n(\\.\\n)?`\\n", v)
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	if !maskHas(index, index.InitialState(), 101) {
		t.Error("token 101 (backquote) missing from initial mask")
	}
}

func TestIndex_MultibyteRegex(t *testing.T) {
	v := mustVocab(t, 8, map[string]TokenID{
		" 😍":   5,
		"blah": 0,
		"😇":    2,
		"😈a":   1,
		"😍":    3,
	})
	for token, id := range map[string]TokenID{
		string([]byte{32, 240, 159, 152, 136}): 7,
		string([]byte{32, 240, 159, 152, 141}): 6,
		string([]byte{240, 159, 152, 141}):     4,
	} {
		if err := v.InsertString(token, id); err != nil {
			t.Fatalf("InsertString failed: %v", err)
		}
	}

	index, err := NewIndex(`😇| [😈-😍][😇-😎]*`, v)
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	// "blah" and "😈a" decode to bytes the regex can never accept.
	for s := 0; s < index.NumStates(); s++ {
		if maskHas(index, StateID(s), 0) {
			t.Errorf("token 0 (blah) allowed at state %d", s)
		}
		if maskHas(index, StateID(s), 1) {
			t.Errorf("token 1 (😈a) allowed at state %d", s)
		}
	}

	initial := index.InitialState()

	// Bare 😇 route.
	s1, ok := index.NextState(initial, 2)
	if !ok {
		t.Fatal("NextState(initial, 😇) not defined")
	}
	if !index.IsFinalState(s1) {
		t.Error("state after 😇 is not final")
	}

	// Space-prefixed route: " 😍" then "😍" keeps matching.
	s2, ok := index.NextState(initial, 5)
	if !ok {
		t.Fatal("NextState(initial, \" 😍\") not defined")
	}
	if !index.IsFinalState(s2) {
		t.Error("state after \" 😍\" is not final")
	}
	s3, ok := index.NextState(s2, 4)
	if !ok {
		t.Fatal("NextState(after \" 😍\", 😍) not defined")
	}
	if !index.IsFinalState(s3) {
		t.Error("state after \" 😍😍\" is not final")
	}

	// Synonymous byte-split variants appear together.
	if !maskHas(index, initial, 6) || !maskHas(index, initial, 7) {
		t.Error("space-prefixed byte variants missing from initial mask")
	}
}

func TestIndex_IncompatibleVocabulary(t *testing.T) {
	v := mustVocab(t, 3, map[string]TokenID{
		"0": 0, "0 ": 1, "1": 2,
	})
	_, err := NewIndex(`0 1`, v)
	if err == nil {
		t.Fatal("NewIndex succeeded, want incompatible-vocabulary error")
	}

	var indexErr *IndexError
	if !errors.As(err, &indexErr) || indexErr.Kind != VocabularyIncompatible {
		t.Fatalf("error = %v, want VocabularyIncompatible", err)
	}
	var incompatible *projection.IncompatibleVocabularyError
	if !errors.As(err, &incompatible) {
		t.Fatalf("error %v does not wrap IncompatibleVocabularyError", err)
	}
	found := false
	for _, missing := range incompatible.MissingTokens {
		if missing == " " {
			found = true
		}
	}
	if !found {
		t.Errorf("MissingTokens = %v, want to contain %q", incompatible.MissingTokens, " ")
	}
}

func TestIndex_IncompatibleVocabularyNonASCII(t *testing.T) {
	v := mustVocab(t, 3, map[string]TokenID{
		"😈": 0, " ": 1, "b": 2,
	})
	_, err := NewIndex(`😈😍`, v)
	if err == nil {
		t.Fatal("NewIndex succeeded, want incompatible-vocabulary error")
	}
	var incompatible *projection.IncompatibleVocabularyError
	if !errors.As(err, &incompatible) {
		t.Fatalf("error %v does not wrap IncompatibleVocabularyError", err)
	}
	found := false
	for _, missing := range incompatible.MissingTokens {
		if missing == `\xf0` {
			found = true
		}
	}
	if !found {
		t.Errorf("MissingTokens = %v, want to contain \\xf0", incompatible.MissingTokens)
	}
}

func TestIndex_EmptyRegex(t *testing.T) {
	index, err := NewIndex(``, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	initial := index.InitialState()
	if !index.IsFinalState(initial) {
		t.Error("initial state of empty regex is not final")
	}
	mask := index.AllowedMask(initial)
	if mask.Count() != 1 || !mask.Test(uint(index.EOSTokenID())) {
		t.Errorf("initial mask = %v, want {EOS}", index.AllowedTokens(initial))
	}
}

func TestIndex_FinalStateEOSSelfLoop(t *testing.T) {
	index, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	eos := index.EOSTokenID()
	for _, f := range index.FinalStates() {
		if !maskHas(index, f, eos) {
			t.Errorf("final state %d mask has no EOS bit", f)
		}
		if _, ok := index.NextState(f, eos); ok {
			t.Errorf("NextState(%d, EOS) defined, want none", f)
		}
	}
}

// The allowed mask of every state must agree with the transition
// function: a set bit means the token advances, the EOS bit means the
// state is final.
func TestIndex_MaskTransitionAgreement(t *testing.T) {
	vocabs := []*vocab.Vocabulary{integerVocab(t)}
	patterns := []string{`0|[1-9][0-9]*`, `[0-9]{2}`, `(0|2)+`}

	for _, pattern := range patterns {
		for _, v := range vocabs {
			index, err := NewIndex(pattern, v, WithoutLiteralMuting())
			if err != nil {
				t.Fatalf("NewIndex(%q) failed: %v", pattern, err)
			}
			eos := index.EOSTokenID()
			for s := 0; s < index.NumStates(); s++ {
				sid := StateID(s)
				for id := TokenID(0); id <= eos; id++ {
					_, ok := index.NextState(sid, id)
					inMask := maskHas(index, sid, id)
					if id == eos {
						if inMask != index.IsFinalState(sid) {
							t.Errorf("pattern %q state %d: EOS bit %v, final %v",
								pattern, s, inMask, index.IsFinalState(sid))
						}
						continue
					}
					if ok != inMask {
						t.Errorf("pattern %q state %d token %d: transition %v, mask bit %v",
							pattern, s, id, ok, inMask)
					}
				}
			}
		}
	}
}

// acceptsSequence replays ids through the index and reports whether it
// ends in a final state.
func acceptsSequence(index *Index, ids []TokenID) bool {
	state := index.InitialState()
	for _, id := range ids {
		next, ok := index.NextState(state, id)
		if !ok {
			return false
		}
		state = next
	}
	return index.IsFinalState(state)
}

// Muting must not change the accepted token sequences when every muted
// literal has a single tokenization under the vocabulary.
func TestIndex_MutingPreservesAcceptance(t *testing.T) {
	v := mustVocab(t, 9, map[string]TokenID{
		"true":  1,
		"false": 2,
		"0":     3,
		"1":     4,
	})

	for _, pattern := range []string{`(true|false)`, `true`, `[01]true`} {
		muted, err := NewIndex(pattern, v)
		if err != nil {
			t.Fatalf("NewIndex(%q) failed: %v", pattern, err)
		}
		plain, err := NewIndex(pattern, v, WithoutLiteralMuting())
		if err != nil {
			t.Fatalf("NewIndex(%q, no muting) failed: %v", pattern, err)
		}

		ids := []TokenID{1, 2, 3, 4}
		var sequences [][]TokenID
		for _, a := range ids {
			sequences = append(sequences, []TokenID{a})
			for _, b := range ids {
				sequences = append(sequences, []TokenID{a, b})
				for _, c := range ids {
					sequences = append(sequences, []TokenID{a, b, c})
				}
			}
		}
		for _, seq := range sequences {
			if got, want := acceptsSequence(muted, seq), acceptsSequence(plain, seq); got != want {
				t.Errorf("pattern %q sequence %v: muted accepts %v, plain accepts %v",
					pattern, seq, got, want)
			}
		}
	}
}

func TestIndex_RegexUnsupported(t *testing.T) {
	_, err := NewIndex(`[`, integerVocab(t))
	if err == nil {
		t.Fatal("NewIndex succeeded, want error")
	}
	var indexErr *IndexError
	if !errors.As(err, &indexErr) || indexErr.Kind != RegexUnsupported {
		t.Fatalf("error = %v, want RegexUnsupported", err)
	}
}

func TestIndex_Equal(t *testing.T) {
	a, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	b, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	if !a.Equal(b) {
		t.Error("identical builds are not Equal")
	}
	c, err := NewIndex(`[0-9]+`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	if a.Equal(c) {
		t.Error("different regexes compare Equal")
	}
}
