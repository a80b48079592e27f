// Package projection compiles a regular expression and a vocabulary
// into a token-aligned automaton.
//
// The byte DFA of the pattern is walked once per token-class prefix to
// produce, for every reachable state, the set of tokens that are a
// legal continuation and the state each one leads to. Two reductions
// make this tractable on vocabularies of 50-150k tokens:
//
//   - byte-class equivalence: tokens are rewritten under the DFA's byte
//     partition, collapsing tokens the DFA cannot tell apart into one
//     token class;
//   - shared-prefix walking: token classes are grouped into prefix
//     trees so the DFA walks each shared prefix once, resuming child
//     walks from the parent's state.
//
// A third, regex-level reduction (literal muting) collapses long fixed
// literals into placeholder sequences with exactly one tokenization.
package projection

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/coregx/tokenguide/dfa"
	"github.com/coregx/tokenguide/nfa"
	"github.com/coregx/tokenguide/vocab"
)

// ClassID is a dense identifier of a token class.
type ClassID = uint32

// grid bundles the token-class lookup tables built in projection
// phase A. classBytes and tokensIn exist only during construction;
// classOf survives inside the masks table.
type grid struct {
	// classOf maps every usable token id to its class.
	classOf map[vocab.TokenID]ClassID

	// tokensIn lists, per class, the token ids whose bytes rewrite to
	// that class.
	tokensIn [][]vocab.TokenID

	// classBytes holds the class string per class id, in interning
	// order (ascending class length).
	classBytes [][]byte

	// graphClasses is the number of leading class ids that take part
	// in prefix-graph walking. Classes interned after it are
	// lookup-only: dead-byte fallbacks for muted originals and the EOS
	// class.
	graphClasses int

	eosClassID ClassID
}

// classedToken is one vocabulary entry rewritten under the byte
// partition.
type classedToken struct {
	ids        []vocab.TokenID
	class      []byte
	additional bool
	// original holds the pre-rewrite bytes of an additional token's
	// source token, used to bind a class to muted ids whose original
	// entry was dropped by the dead-class filter.
	original []byte
}

// buildGrid rewrites the vocabulary to token classes and interns them.
//
// Rewriting is embarrassingly parallel and fans out over fixed chunks;
// interning is a single-writer step over the sorted results, so class
// ids come out deterministic regardless of scheduling.
func buildGrid(v *vocab.Vocabulary, additional []additionalToken, d *dfa.DFA, dead map[byte]struct{}) *grid {
	bc := d.ByteClasses()

	type entry struct {
		token string
		ids   []vocab.TokenID
	}
	entries := make([]entry, 0, v.Len())
	for token, ids := range v.Tokens() {
		entries = append(entries, entry{token, ids})
	}

	workers := runtime.NumCPU()
	if workers > len(entries) {
		workers = 1
	}
	results := make([][]classedToken, workers)

	var g errgroup.Group
	chunk := (len(entries) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > len(entries) {
			hi = len(entries)
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			var out []classedToken
			for _, e := range entries[lo:hi] {
				if containsMuteByte(e.token) {
					// Placeholder-byte lookalikes would collide with
					// synthetic muting tokens.
					continue
				}
				class := rewriteToken([]byte(e.token), bc)
				if hasDeadClass(class, dead) {
					continue
				}
				out = append(out, classedToken{ids: e.ids, class: class})
			}
			results[w] = out
			return nil
		})
	}
	// Workers cannot fail; Wait only joins them.
	_ = g.Wait()

	classed := make([]classedToken, 0, len(entries)+len(additional))
	for _, r := range results {
		classed = append(classed, r...)
	}
	for _, a := range additional {
		classed = append(classed, classedToken{
			ids:        a.ids,
			class:      rewriteToken(a.bytes, bc),
			additional: true,
			original:   a.original,
		})
	}

	// Ascending class length drives both interning order (the prefix
	// graph builder needs short prefixes first) and determinism.
	sort.SliceStable(classed, func(i, j int) bool {
		a, b := classed[i], classed[j]
		if len(a.class) != len(b.class) {
			return len(a.class) < len(b.class)
		}
		if c := compareBytes(a.class, b.class); c != 0 {
			return c < 0
		}
		return a.ids[0] < b.ids[0]
	})

	gr := &grid{classOf: make(map[vocab.TokenID]ClassID, len(classed))}
	interner := make(map[string]ClassID, len(classed))

	intern := func(key string, class []byte) ClassID {
		if id, ok := interner[key]; ok {
			return id
		}
		id := ClassID(len(gr.classBytes))
		interner[key] = id
		gr.classBytes = append(gr.classBytes, class)
		gr.tokensIn = append(gr.tokensIn, nil)
		return id
	}

	for _, ct := range classed {
		cid := intern("c"+string(ct.class), ct.class)
		gr.tokensIn[cid] = append(gr.tokensIn[cid], ct.ids...)
		if !ct.additional {
			for _, id := range ct.ids {
				gr.classOf[id] = cid
			}
		}
	}
	gr.graphClasses = len(gr.classBytes)

	// Muted ids whose original token was filtered out still need a
	// class for next-state lookups; bind the class of their original
	// bytes without feeding it to the prefix graphs.
	for _, ct := range classed {
		if !ct.additional {
			continue
		}
		for _, id := range ct.ids {
			if _, ok := gr.classOf[id]; ok {
				continue
			}
			class := rewriteToken(ct.original, bc)
			cid := intern("c"+string(class), class)
			gr.tokensIn[cid] = append(gr.tokensIn[cid], id)
			gr.classOf[id] = cid
		}
	}

	// The EOS gets its own class on the synthetic end-of-input class,
	// interned under a reserved key so no rewritten token can collide.
	eos := v.EOSTokenID()
	gr.eosClassID = intern("e", []byte{byte(d.AlphabetLen())})
	gr.tokensIn[gr.eosClassID] = append(gr.tokensIn[gr.eosClassID], eos)
	gr.classOf[eos] = gr.eosClassID

	return gr
}

// rewriteToken maps each byte of token to its byte class.
func rewriteToken(token []byte, bc *nfa.ByteClasses) []byte {
	out := make([]byte, len(token))
	for i, b := range token {
		out[i] = bc.Get(b)
	}
	return out
}

func hasDeadClass(class []byte, dead map[byte]struct{}) bool {
	for _, b := range class {
		if _, ok := dead[b]; ok {
			return true
		}
	}
	return false
}

func containsMuteByte(token string) bool {
	for i := 0; i < len(token); i++ {
		if token[i] == muteByte {
			return true
		}
	}
	return false
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
