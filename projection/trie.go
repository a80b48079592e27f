package projection

import "github.com/coregx/tokenguide/vocab"

// tokenTrie indexes vocabulary tokens by their bytes so the muting
// decomposer can enumerate every token starting at a given position of
// a literal in one descent.
type tokenTrie struct {
	children map[byte]*tokenTrie
	ids      []vocab.TokenID
}

func newTokenTrie() *tokenTrie {
	return &tokenTrie{children: make(map[byte]*tokenTrie)}
}

func (t *tokenTrie) insert(token string, ids []vocab.TokenID) {
	node := t
	for i := 0; i < len(token); i++ {
		b := token[i]
		next, ok := node.children[b]
		if !ok {
			next = newTokenTrie()
			node.children[b] = next
		}
		node = next
	}
	node.ids = ids
}

// trieMatch is a token found at a position: its byte length and ids.
type trieMatch struct {
	length int
	ids    []vocab.TokenID
}

// tokensAt returns every vocabulary token that matches text starting
// at pos, shortest first.
func (t *tokenTrie) tokensAt(text []byte, pos int) []trieMatch {
	var matches []trieMatch
	node := t
	for i := pos; i < len(text); i++ {
		next, ok := node.children[text[i]]
		if !ok {
			break
		}
		node = next
		if node.ids != nil {
			matches = append(matches, trieMatch{length: i - pos + 1, ids: node.ids})
		}
	}
	return matches
}

// buildTokenTrie indexes the vocabulary, skipping tokens that contain
// the placeholder byte (they could never appear in a literal anyway
// and must not alias synthetic tokens).
func buildTokenTrie(v *vocab.Vocabulary) *tokenTrie {
	trie := newTokenTrie()
	for token, ids := range v.Tokens() {
		if token == "" || containsMuteByte(token) {
			continue
		}
		trie.insert(token, ids)
	}
	return trie
}
