package tokenguide

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/coregx/tokenguide/internal/conv"
	"github.com/coregx/tokenguide/projection"
)

// Persisted index format, version 1. Little-endian, gzip-wrapped:
//
//	u32  vocab_size
//	u32  eos_token_id
//	u32  initial_state
//	u32  num_final_states
//	u32  final_states[num_final_states]
//	u8   format_tag = 1
//	u32  num_states
//	per state:
//	  u32 state_id
//	  u32 num_transitions
//	  (u32 token_id, u32 next_state)[num_transitions]
//
// Transitions are stored at token granularity: the class encoding is
// an internal compression and is rebuilt on load by re-interning
// tokens with identical transition behavior.

const formatTagV1 = 1

// Serialize encodes the index into the v1 binary format.
func (i *Index) Serialize() ([]byte, error) {
	var payload bytes.Buffer
	writeU32 := func(n uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], n)
		payload.Write(b[:])
	}

	writeU32(conv.IntToUint32(i.VocabSize()))
	writeU32(i.EOSTokenID())
	writeU32(i.InitialState())

	finals := i.FinalStates()
	writeU32(conv.IntToUint32(len(finals)))
	for _, s := range finals {
		writeU32(s)
	}

	payload.WriteByte(formatTagV1)

	type stateRow struct {
		id      StateID
		entries [][2]uint32
	}
	rows := make([]stateRow, 0, i.NumStates())
	eos := i.EOSTokenID()
	for s := 0; s < i.NumStates(); s++ {
		sid := StateID(s)
		mask := i.AllowedMask(sid)
		if mask == nil {
			continue
		}
		var entries [][2]uint32
		for bit, ok := mask.NextSet(0); ok; bit, ok = mask.NextSet(bit + 1) {
			tokenID := TokenID(bit)
			if tokenID == eos {
				// The EOS self-loop marks "may stop here".
				entries = append(entries, [2]uint32{eos, sid})
				continue
			}
			next, ok := i.NextState(sid, tokenID)
			if !ok {
				continue
			}
			entries = append(entries, [2]uint32{tokenID, next})
		}
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a][0] < entries[b][0] })
		rows = append(rows, stateRow{id: sid, entries: entries})
	}

	writeU32(conv.IntToUint32(len(rows)))
	for _, row := range rows {
		writeU32(row.id)
		writeU32(conv.IntToUint32(len(row.entries)))
		for _, e := range row.entries {
			writeU32(e[0])
			writeU32(e[1])
		}
	}

	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(payload.Bytes()); err != nil {
		return nil, &IndexError{Kind: IOError, Message: "compressing index", Cause: err}
	}
	if err := zw.Close(); err != nil {
		return nil, &IndexError{Kind: IOError, Message: "compressing index", Cause: err}
	}
	return out.Bytes(), nil
}

// DeserializeIndex decodes an index from the v1 binary format.
func DeserializeIndex(data []byte) (*Index, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &IndexError{Kind: IOError, Message: "corrupted data", Cause: err}
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, &IndexError{Kind: IOError, Message: "corrupted data", Cause: err}
	}
	if err := zr.Close(); err != nil {
		return nil, &IndexError{Kind: IOError, Message: "corrupted data", Cause: err}
	}

	pos := 0
	readU32 := func() (uint32, error) {
		if pos+4 > len(payload) {
			return 0, &IndexError{Kind: IOError, Message: "unexpected end of buffer"}
		}
		n := binary.LittleEndian.Uint32(payload[pos:])
		pos += 4
		return n, nil
	}

	vocabSize, err := readU32()
	if err != nil {
		return nil, err
	}
	eosTokenID, err := readU32()
	if err != nil {
		return nil, err
	}
	initial, err := readU32()
	if err != nil {
		return nil, err
	}
	numFinals, err := readU32()
	if err != nil {
		return nil, err
	}
	finals := make([]StateID, 0, numFinals)
	for n := uint32(0); n < numFinals; n++ {
		s, err := readU32()
		if err != nil {
			return nil, err
		}
		finals = append(finals, s)
	}

	if pos >= len(payload) {
		return nil, &IndexError{Kind: IOError, Message: "unexpected end of buffer"}
	}
	tag := payload[pos]
	pos++
	if tag != formatTagV1 {
		return nil, &IndexError{Kind: IOError, Message: "unsupported index type"}
	}

	numStates, err := readU32()
	if err != nil {
		return nil, err
	}
	transitions := make(map[StateID]map[TokenID]StateID, numStates)
	for n := uint32(0); n < numStates; n++ {
		stateID, err := readU32()
		if err != nil {
			return nil, err
		}
		numTransitions, err := readU32()
		if err != nil {
			return nil, err
		}
		row := make(map[TokenID]StateID, numTransitions)
		for k := uint32(0); k < numTransitions; k++ {
			tokenID, err := readU32()
			if err != nil {
				return nil, err
			}
			next, err := readU32()
			if err != nil {
				return nil, err
			}
			row[tokenID] = next
		}
		transitions[stateID] = row
	}

	table := projection.FromTransitions(int(vocabSize), eosTokenID, initial, finals, transitions)
	return &Index{table: table}, nil
}

// Save writes the serialized index to a file.
func (i *Index) Save(path string) error {
	data, err := i.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &IndexError{Kind: IOError, Message: "writing index file", Cause: err}
	}
	return nil
}

// LoadIndex reads an index previously written by Save.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IndexError{Kind: IOError, Message: "reading index file", Cause: err}
	}
	return DeserializeIndex(data)
}
