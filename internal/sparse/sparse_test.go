package sparse

import "testing"

func TestSet_InsertContains(t *testing.T) {
	s := New(16)
	if s.Contains(3) {
		t.Error("Contains(3) = true on empty set")
	}
	s.Insert(3)
	s.Insert(7)
	s.Insert(3) // duplicate is a no-op
	if !s.Contains(3) || !s.Contains(7) {
		t.Error("inserted values missing")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestSet_Clear(t *testing.T) {
	s := New(8)
	s.Insert(1)
	s.Insert(2)
	s.Clear()
	if s.Len() != 0 || s.Contains(1) {
		t.Error("Clear left elements behind")
	}
	s.Insert(1)
	if !s.Contains(1) || s.Len() != 1 {
		t.Error("set unusable after Clear")
	}
}

func TestSet_ValuesInsertionOrder(t *testing.T) {
	s := New(8)
	for _, v := range []uint32{5, 2, 7} {
		s.Insert(v)
	}
	values := s.Values()
	want := []uint32{5, 2, 7}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("Values()[%d] = %d, want %d", i, values[i], want[i])
		}
	}
}

func TestSet_OutOfRange(t *testing.T) {
	s := New(4)
	if s.Contains(100) {
		t.Error("Contains(100) = true beyond capacity")
	}
}
