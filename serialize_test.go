package tokenguide

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSerialize_RoundTrip(t *testing.T) {
	patterns := []string{
		`0|[1-9][0-9]*`,
		`(0|2)+`,
		`[0-9]{2,4}`,
	}
	for _, pattern := range patterns {
		original, err := NewIndex(pattern, integerVocab(t))
		if err != nil {
			t.Fatalf("NewIndex(%q) failed: %v", pattern, err)
		}

		data, err := original.Serialize()
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		loaded, err := DeserializeIndex(data)
		if err != nil {
			t.Fatalf("DeserializeIndex failed: %v", err)
		}

		if !original.Equal(loaded) {
			t.Fatalf("pattern %q: loaded index differs from original", pattern)
		}
		if loaded.InitialState() != original.InitialState() {
			t.Errorf("initial state = %d, want %d", loaded.InitialState(), original.InitialState())
		}
		if loaded.VocabSize() != original.VocabSize() {
			t.Errorf("vocab size = %d, want %d", loaded.VocabSize(), original.VocabSize())
		}

		// Masks and transitions must agree state by state.
		for s := 0; s < original.NumStates(); s++ {
			sid := StateID(s)
			wantTokens := original.AllowedTokens(sid)
			gotTokens := loaded.AllowedTokens(sid)
			if len(wantTokens) != len(gotTokens) {
				t.Fatalf("pattern %q state %d: allowed %v, want %v", pattern, s, gotTokens, wantTokens)
			}
			for i := range wantTokens {
				if wantTokens[i] != gotTokens[i] {
					t.Fatalf("pattern %q state %d: allowed %v, want %v", pattern, s, gotTokens, wantTokens)
				}
				a, aok := original.NextState(sid, wantTokens[i])
				b, bok := loaded.NextState(sid, wantTokens[i])
				if aok != bok || a != b {
					t.Errorf("pattern %q state %d token %d: next (%d,%v), want (%d,%v)",
						pattern, s, wantTokens[i], b, bok, a, aok)
				}
			}
		}
	}
}

func TestSerialize_RoundTripMultibyte(t *testing.T) {
	v := mustVocab(t, 8, map[string]TokenID{
		" 😍": 5, "blah": 0, "😇": 2, "😈a": 1, "😍": 3,
	})
	original, err := NewIndex(`😇| [😈-😍][😇-😎]*`, v)
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	data, err := original.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	loaded, err := DeserializeIndex(data)
	if err != nil {
		t.Fatalf("DeserializeIndex failed: %v", err)
	}
	if !original.Equal(loaded) {
		t.Error("loaded index differs from original")
	}
}

func TestSerialize_SaveLoadFile(t *testing.T) {
	original, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.bin")
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadIndex(path)
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	if !original.Equal(loaded) {
		t.Error("loaded index differs from original")
	}
}

func TestSerialize_LoadNonexistentFile(t *testing.T) {
	_, err := LoadIndex(filepath.Join(t.TempDir(), "missing.bin"))
	if err == nil {
		t.Fatal("LoadIndex succeeded, want error")
	}
	var indexErr *IndexError
	if !errors.As(err, &indexErr) || indexErr.Kind != IOError {
		t.Fatalf("error = %v, want IOError", err)
	}
}

func TestSerialize_CorruptedData(t *testing.T) {
	if _, err := DeserializeIndex([]byte("corrupted data")); err == nil {
		t.Fatal("DeserializeIndex succeeded on garbage, want error")
	}

	// Valid gzip around a truncated payload.
	original, err := NewIndex(`0|[1-9][0-9]*`, integerVocab(t))
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	data, err := original.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if _, err := DeserializeIndex(data[:len(data)/2]); err == nil {
		t.Fatal("DeserializeIndex succeeded on truncated data, want error")
	}
}
