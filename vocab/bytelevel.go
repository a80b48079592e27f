package vocab

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// tokenProcessor decodes a tokenizer's printable subword form into the
// raw bytes the model emits during generation.
type tokenProcessor interface {
	process(token string) ([]byte, error)
}

// byteLevelProcessor inverts the GPT-2 byte-level alphabet.
//
// Byte-level BPE tokenizers remap every byte to a printable Unicode
// character before training (space becomes 'Ġ', newline 'Ċ', ...), so
// vocabulary entries are strings over that 256-character alphabet.
// Decoding walks the entry rune by rune through the inverse table.
type byteLevelProcessor struct {
	charToByte map[rune]byte
}

func newByteLevelProcessor() *byteLevelProcessor {
	return &byteLevelProcessor{charToByte: byteLevelCharToByte()}
}

// byteLevelCharToByte builds the inverse of the byte-to-unicode table
// used by GPT-2 style tokenizers: printable bytes map to themselves,
// the rest are assigned codepoints 256, 257, ... in byte order.
func byteLevelCharToByte() map[rune]byte {
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	table := make(map[rune]byte, 256)
	n := 0
	for b := 0; b < 256; b++ {
		if printable(b) {
			table[rune(b)] = byte(b)
		} else {
			table[rune(256+n)] = byte(b)
			n++
		}
	}
	return table
}

func (p *byteLevelProcessor) process(token string) ([]byte, error) {
	out := make([]byte, 0, len(token))
	for _, r := range token {
		b, ok := p.charToByte[r]
		if !ok {
			return nil, errors.Errorf("byte-level token %q contains unmapped character %q", token, r)
		}
		out = append(out, b)
	}
	return out, nil
}

// byteFallbackProcessor decodes SentencePiece-style vocabularies:
// "<0xNN>" entries are single raw bytes, and the '▁' marker (U+2581)
// stands for a space. No prefix space is prepended; a "prepend"
// normalizer would insert a leading space that is absent from the
// decoded byte stream during generation.
type byteFallbackProcessor struct{}

const spMarker = "▁"

func (byteFallbackProcessor) process(token string) ([]byte, error) {
	if strings.HasPrefix(token, "<0x") && strings.HasSuffix(token, ">") && len(token) == 6 {
		n, err := strconv.ParseUint(token[3:5], 16, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "byte-fallback token %q", token)
		}
		return []byte{byte(n)}, nil
	}
	return []byte(strings.ReplaceAll(token, spMarker, " ")), nil
}
