package nfa

import "testing"

func TestByteClassSet_SimpleRange(t *testing.T) {
	var bcs ByteClassSet
	bcs.SetRange('a', 'z')
	bc := bcs.ByteClasses()

	// Three classes: before 'a', 'a'-'z', after 'z'.
	for b := byte(0); b < 'a'; b++ {
		if class := bc.Get(b); class != 0 {
			t.Errorf("Get(%d) = %d, want 0 (before 'a')", b, class)
		}
	}
	for b := byte('a'); b <= 'z'; b++ {
		if class := bc.Get(b); class != 1 {
			t.Errorf("Get(%q) = %d, want 1", b, class)
		}
	}
	for b := 'z' + 1; b <= 255; b++ {
		if class := bc.Get(byte(b)); class != 2 {
			t.Errorf("Get(%d) = %d, want 2 (after 'z')", b, class)
		}
	}
	if got := bc.AlphabetLen(); got != 3 {
		t.Errorf("AlphabetLen() = %d, want 3", got)
	}
}

func TestByteClasses_Representatives(t *testing.T) {
	var bcs ByteClassSet
	bcs.SetRange('0', '9')
	bc := bcs.ByteClasses()

	reps := bc.Representatives()
	if len(reps) != bc.AlphabetLen() {
		t.Fatalf("got %d representatives, want %d", len(reps), bc.AlphabetLen())
	}
	for class, rep := range reps {
		if int(bc.Get(rep)) != class {
			t.Errorf("representative %d maps to class %d, want %d", rep, bc.Get(rep), class)
		}
	}
}

func TestByteClasses_Elements(t *testing.T) {
	var bcs ByteClassSet
	bcs.SetRange('a', 'c')
	bc := bcs.ByteClasses()

	elems := bc.Elements(bc.Get('b'))
	if len(elems) != 3 || elems[0] != 'a' || elems[2] != 'c' {
		t.Errorf("Elements = %q, want [a b c]", elems)
	}
}

func TestByteClassSet_EmptyIsSingleClass(t *testing.T) {
	var bcs ByteClassSet
	bc := bcs.ByteClasses()
	if got := bc.AlphabetLen(); got != 1 {
		t.Errorf("AlphabetLen() = %d, want 1", got)
	}
}
