package tokenguide

import (
	"testing"
)

func TestGuide_Walk(t *testing.T) {
	index, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	guide := NewGuide(index)
	if guide.GetState() != index.InitialState() {
		t.Errorf("GetState() = %d, want initial %d", guide.GetState(), index.InitialState())
	}
	if guide.IsFinished() {
		t.Error("IsFinished() = true at initial state")
	}

	mask, err := guide.Advance(2) // "2"
	if err != nil {
		t.Fatalf("Advance(2) failed: %v", err)
	}
	if !guide.IsFinished() {
		t.Error("IsFinished() = false after \"2\"")
	}
	if !mask.Test(uint(index.EOSTokenID())) {
		t.Error("mask after \"2\" has no EOS bit")
	}

	if _, err := guide.Advance(3); err != nil { // "0" continues the number
		t.Fatalf("Advance(3) failed: %v", err)
	}
	if !guide.IsFinished() {
		t.Error("IsFinished() = false after \"20\"")
	}
}

func TestGuide_DisallowedToken(t *testing.T) {
	index, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	guide := NewGuide(index)
	before := guide.GetState()
	if _, err := guide.Advance(0); err == nil { // "blah"
		t.Fatal("Advance(blah) succeeded, want error")
	}
	if guide.GetState() != before {
		t.Error("failed Advance changed the state")
	}
}

func TestGuide_EOSSemantics(t *testing.T) {
	index, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	eos := index.EOSTokenID()

	guide := NewGuide(index)
	// EOS before anything matched is an error.
	if _, err := guide.Advance(eos); err == nil {
		t.Fatal("Advance(EOS) at non-final state succeeded, want error")
	}

	if _, err := guide.Advance(3); err != nil {
		t.Fatalf("Advance(3) failed: %v", err)
	}
	state := guide.GetState()

	// EOS at a final state terminates without moving.
	if _, err := guide.Advance(eos); err != nil {
		t.Fatalf("Advance(EOS) at final state failed: %v", err)
	}
	if guide.GetState() != state {
		t.Error("Advance(EOS) changed the state")
	}
}

func TestGuide_Clone(t *testing.T) {
	index, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	guide := NewGuide(index)
	if _, err := guide.Advance(2); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	clone := guide.Clone()
	if clone.GetState() != guide.GetState() {
		t.Error("clone state differs")
	}
	original := guide.GetState()
	if _, err := clone.Advance(3); err != nil {
		t.Fatalf("clone Advance failed: %v", err)
	}
	if guide.GetState() != original {
		t.Error("advancing the clone moved the original")
	}
}

func TestGuide_SerializeRoundTrip(t *testing.T) {
	index, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	guide := NewGuide(index)
	if _, err := guide.Advance(2); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	data, err := guide.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	restored, err := DeserializeGuide(data)
	if err != nil {
		t.Fatalf("DeserializeGuide failed: %v", err)
	}

	if restored.GetState() != guide.GetState() {
		t.Errorf("restored state = %d, want %d", restored.GetState(), guide.GetState())
	}
	if !restored.Index().Equal(guide.Index()) {
		t.Error("restored index differs")
	}
	if _, err := restored.Advance(3); err != nil {
		t.Fatalf("restored Advance failed: %v", err)
	}
}

// Many guides may read one index concurrently: the index is immutable,
// each cursor owns only its own state.
func TestGuide_ConcurrentReaders(t *testing.T) {
	index, err := NewIndex(`[0-9]+`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	done := make(chan error, 8)
	for g := 0; g < 8; g++ {
		go func() {
			guide := NewGuide(index)
			for step := 0; step < 100; step++ {
				if _, err := guide.Advance(2); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}
	for g := 0; g < 8; g++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent guide failed: %v", err)
		}
	}
}
