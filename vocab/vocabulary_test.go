package vocab

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabulary_BasicInterface(t *testing.T) {
	v := New(3)
	assert.Equal(t, TokenID(3), v.EOSTokenID())
	assert.Equal(t, 0, v.Len())

	for token, id := range map[string]TokenID{"zero": 0, "one": 1, "two": 2} {
		require.NoError(t, v.InsertString(token, id))
		assert.Equal(t, []TokenID{id}, v.TokenIDs([]byte(token)))
	}
	assert.Equal(t, 3, v.Len())

	// Synonyms accumulate under the same bytes.
	require.NoError(t, v.InsertString("zero", 7))
	assert.Equal(t, []TokenID{0, 7}, v.TokenIDs([]byte("zero")))

	assert.Nil(t, v.TokenIDs([]byte("missing")))
}

func TestVocabulary_RejectsEOSInsert(t *testing.T) {
	v := New(3)
	err := v.InsertString("token", 3)
	require.Error(t, err)
}

func TestVocabulary_Equal(t *testing.T) {
	a := New(9)
	b := New(9)
	for _, v := range []*Vocabulary{a, b} {
		require.NoError(t, v.InsertString("x", 1))
		require.NoError(t, v.InsertString("y", 2))
	}
	assert.True(t, a.Equal(b))

	require.NoError(t, b.InsertString("z", 3))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(New(8)))
}

func TestVocabulary_SerializeRoundTrip(t *testing.T) {
	v := New(50256)
	require.NoError(t, v.InsertString("hello", 1))
	require.NoError(t, v.Insert([]byte{0xFF, 0x00}, 2))
	require.NoError(t, v.InsertString("hello world", 3))
	require.NoError(t, v.InsertString("hello", 4))

	data, err := v.MarshalBinary()
	require.NoError(t, err)

	restored := &Vocabulary{}
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.True(t, v.Equal(restored))
}

func TestVocabulary_UnmarshalTruncated(t *testing.T) {
	v := New(1)
	require.NoError(t, v.InsertString("x", 0))
	data, err := v.MarshalBinary()
	require.NoError(t, err)

	restored := &Vocabulary{}
	assert.Error(t, restored.UnmarshalBinary(data[:len(data)-2]))
}

func TestByteLevelProcessor(t *testing.T) {
	p := newByteLevelProcessor()

	// 'Ġ' is the byte-level spelling of a leading space, 'Ċ' of '\n'.
	decoded, err := p.process("Ġal")
	require.NoError(t, err)
	assert.Equal(t, []byte(" al"), decoded)

	decoded, err = p.process("abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), decoded)

	decoded, err = p.process("ĠĊ")
	require.NoError(t, err)
	assert.Equal(t, []byte(" \n"), decoded)

	_, err = p.process("日")
	assert.Error(t, err, "characters outside the byte-level alphabet must fail")
}

func TestByteFallbackProcessor(t *testing.T) {
	p := byteFallbackProcessor{}

	decoded, err := p.process("<0x20>")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20}, decoded)

	decoded, err = p.process("<0xFF>")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, decoded)

	decoded, err = p.process("▁Wor")
	require.NoError(t, err)
	assert.Equal(t, []byte(" Wor"), decoded)

	// Not a byte token, just angle brackets.
	decoded, err = p.process("<ab>")
	require.NoError(t, err)
	assert.Equal(t, []byte("<ab>"), decoded)
}

// A minimal byte-level tokenizer.json served over HTTP: enough for
// FromPretrained to decode the vocabulary and locate the EOS.
const fakeTokenizerJSON = `{
	"added_tokens": [
		{"id": 4, "content": "<|endoftext|>", "special": true},
		{"id": 5, "content": "<extra>", "special": false}
	],
	"decoder": {"type": "ByteLevel"},
	"model": {
		"type": "BPE",
		"vocab": {"abc": 0, "Ġal": 1, "x": 2, "<|endoftext|>": 4}
	}
}`

func TestFromPretrained(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/test/model/resolve/main/tokenizer.json":
			_, _ = w.Write([]byte(fakeTokenizerJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	v, err := FromPretrained("test/model", &PretrainedOptions{BaseURL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, TokenID(4), v.EOSTokenID())
	assert.Equal(t, []TokenID{0}, v.TokenIDs([]byte("abc")))
	// The byte-level alphabet decodes Ġ to a real space.
	assert.Equal(t, []TokenID{1}, v.TokenIDs([]byte(" al")))
	assert.Nil(t, v.TokenIDs([]byte("Ġal")))
	// Non-special added tokens are inserted verbatim.
	assert.Equal(t, []TokenID{5}, v.TokenIDs([]byte("<extra>")))
}

func TestFromPretrained_EOSOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/test/model/resolve/main/tokenizer.json" {
			_, _ = w.Write([]byte(fakeTokenizerJSON))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	eos := TokenID(2)
	v, err := FromPretrained("test/model", &PretrainedOptions{BaseURL: server.URL, EOSTokenID: &eos})
	require.NoError(t, err)
	assert.Equal(t, TokenID(2), v.EOSTokenID())
}

func TestFromPretrained_NoByteLevelDecoder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/test/model/resolve/main/tokenizer.json" {
			_, _ = w.Write([]byte(`{"model": {"type": "WordPiece", "vocab": {"a": 0}}, "added_tokens": [{"id": 1, "content": "</s>", "special": true}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := FromPretrained("test/model", &PretrainedOptions{BaseURL: server.URL})
	require.Error(t, err)
	var unsupported *UnsupportedTokenizerError
	assert.ErrorAs(t, err, &unsupported)
}

func TestFromPretrained_HubFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := FromPretrained("test/model", &PretrainedOptions{BaseURL: server.URL})
	require.Error(t, err)
}
