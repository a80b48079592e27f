// Package vocab models the token vocabulary of an LLM.
//
// A Vocabulary maps raw token byte strings to the numeric identifiers
// that decode to them (several ids may share one byte string), plus one
// distinguished end-of-sequence id. It is the read-only input of index
// construction: build it once, hand it to the index, never mutate it
// afterwards.
package vocab

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
)

// TokenID is a numeric token identifier. Dense but not necessarily
// contiguous up to the vocabulary size.
type TokenID = uint32

// Vocabulary maps token byte strings to token ids.
type Vocabulary struct {
	eosTokenID TokenID
	tokens     map[string][]TokenID
}

// New creates an empty vocabulary with the given end-of-sequence id.
func New(eosTokenID TokenID) *Vocabulary {
	return &Vocabulary{
		eosTokenID: eosTokenID,
		tokens:     make(map[string][]TokenID),
	}
}

// Insert binds id to the given token bytes, appending to any ids
// already bound to the same bytes.
//
// The EOS id cannot be inserted: it is not a regular emit target and is
// handled by the index directly.
func (v *Vocabulary) Insert(token []byte, id TokenID) error {
	if id == v.eosTokenID {
		return errors.Errorf("token id %d is the EOS token id and cannot be inserted", id)
	}
	key := string(token)
	v.tokens[key] = append(v.tokens[key], id)
	return nil
}

// InsertString is Insert for string-typed token bytes.
func (v *Vocabulary) InsertString(token string, id TokenID) error {
	return v.Insert([]byte(token), id)
}

// TokenIDs returns the ids bound to the given token bytes, or nil if
// the bytes are not in the vocabulary.
func (v *Vocabulary) TokenIDs(token []byte) []TokenID {
	return v.tokens[string(token)]
}

// EOSTokenID returns the end-of-sequence token id.
func (v *Vocabulary) EOSTokenID() TokenID { return v.eosTokenID }

// Len returns the number of distinct token byte strings.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Tokens returns the underlying token table. The caller must not
// mutate it.
func (v *Vocabulary) Tokens() map[string][]TokenID { return v.tokens }

// MaxTokenID returns the largest id present, including the EOS.
func (v *Vocabulary) MaxTokenID() TokenID {
	max := v.eosTokenID
	for _, ids := range v.tokens {
		for _, id := range ids {
			if id > max {
				max = id
			}
		}
	}
	return max
}

// Equal reports whether two vocabularies have the same EOS id and the
// same token table (id order within an entry is not significant).
func (v *Vocabulary) Equal(other *Vocabulary) bool {
	if other == nil || v.eosTokenID != other.eosTokenID || len(v.tokens) != len(other.tokens) {
		return false
	}
	for token, ids := range v.tokens {
		otherIDs, ok := other.tokens[token]
		if !ok || len(ids) != len(otherIDs) {
			return false
		}
		a := append([]TokenID(nil), ids...)
		b := append([]TokenID(nil), otherIDs...)
		sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
		sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// MarshalBinary serializes the vocabulary: little-endian EOS id, entry
// count, then per entry a length-prefixed token byte string and its
// length-prefixed id list. Entries are sorted by token bytes so the
// encoding is deterministic.
func (v *Vocabulary) MarshalBinary() ([]byte, error) {
	keys := make([]string, 0, len(v.tokens))
	for token := range v.tokens {
		keys = append(keys, token)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	writeU32 := func(n uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], n)
		buf.Write(b[:])
	}

	writeU32(v.eosTokenID)
	writeU32(uint32(len(keys)))
	for _, token := range keys {
		writeU32(uint32(len(token)))
		buf.WriteString(token)
		ids := v.tokens[token]
		writeU32(uint32(len(ids)))
		for _, id := range ids {
			writeU32(id)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a vocabulary written by MarshalBinary.
func (v *Vocabulary) UnmarshalBinary(data []byte) error {
	pos := 0
	readU32 := func() (uint32, error) {
		if pos+4 > len(data) {
			return 0, errors.New("vocabulary: unexpected end of buffer")
		}
		n := binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		return n, nil
	}

	eos, err := readU32()
	if err != nil {
		return err
	}
	count, err := readU32()
	if err != nil {
		return err
	}

	tokens := make(map[string][]TokenID, count)
	for i := uint32(0); i < count; i++ {
		tokenLen, err := readU32()
		if err != nil {
			return err
		}
		if pos+int(tokenLen) > len(data) {
			return errors.New("vocabulary: unexpected end of buffer")
		}
		token := string(data[pos : pos+int(tokenLen)])
		pos += int(tokenLen)

		idCount, err := readU32()
		if err != nil {
			return err
		}
		ids := make([]TokenID, 0, idCount)
		for j := uint32(0); j < idCount; j++ {
			id, err := readU32()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		tokens[token] = ids
	}

	v.eosTokenID = eos
	v.tokens = tokens
	return nil
}
