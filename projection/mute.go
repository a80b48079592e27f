package projection

import (
	"sort"
	"strconv"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/tokenguide/vocab"
)

// Literal muting rewrites long fixed literals of the regex (JSON
// property names, mostly) into synthetic placeholder sequences bound
// to one pre-chosen tokenization. Without it the projection branches
// over every tokenization of the literal the vocabulary admits, which
// is combinatorial on schema-derived regexes. The accepted token-id
// language is unchanged: masks are rewritten back to the original ids
// when the table is reduced.

const (
	// muteByte is the reserved control byte opening every placeholder.
	// Vocabulary tokens containing it are dropped during grid building
	// so no real token can alias a placeholder.
	muteByte byte = 0x1C
)

// additionalToken is a synthetic vocabulary entry: a placeholder byte
// sequence standing for one emitted token of a muted literal.
type additionalToken struct {
	bytes []byte
	// ids are the token ids the placeholder stands for (all synonyms
	// of the emitted token).
	ids []vocab.TokenID
	// original holds the emitted token's real bytes.
	original []byte
}

// muteLiterals rewrites regex, returning the rewritten pattern, the
// synthetic tokens to append to the projection, and the muted id set.
func muteLiterals(regex string, v *vocab.Vocabulary) (string, []additionalToken, map[vocab.TokenID]struct{}) {
	muted := make(map[vocab.TokenID]struct{})

	literals := extractLiterals(regex)
	if len(literals) == 0 {
		return regex, nil, muted
	}

	prefilter := buildPrefilter(v)
	trie := buildTokenTrie(v)

	type decomposition struct {
		literal   string
		tokens    []trieMatch
		positions []int
	}
	var decomposed []decomposition
	total := 0
	for _, lit := range literals {
		if prefilter != nil && !prefilter.IsMatch([]byte(lit.text)) {
			// No vocabulary token occurs in the literal; the DP cannot
			// cover it.
			continue
		}
		tokens, ok := decomposeLiteral([]byte(lit.text), trie)
		if !ok {
			continue
		}
		decomposed = append(decomposed, decomposition{lit.text, tokens, lit.positions})
		total += len(tokens)
	}
	if total == 0 {
		return regex, nil, muted
	}

	// Zero-padded decimal suffixes keep every placeholder the same
	// width and guarantee no placeholder is a prefix of another.
	width := len(strconv.Itoa(total))
	var additional []additionalToken
	replacements := make([]replacement, 0, len(decomposed))

	counter := 1
	for _, dec := range decomposed {
		placeholder := []byte{'('}
		litPos := 0
		for _, tok := range dec.tokens {
			synthetic := make([]byte, 0, 1+width)
			synthetic = append(synthetic, muteByte)
			suffix := strconv.Itoa(counter)
			for pad := width - len(suffix); pad > 0; pad-- {
				synthetic = append(synthetic, '0')
			}
			synthetic = append(synthetic, suffix...)
			counter++

			placeholder = append(placeholder, synthetic...)
			additional = append(additional, additionalToken{
				bytes:    synthetic,
				ids:      tok.ids,
				original: []byte(dec.literal[litPos : litPos+tok.length]),
			})
			for _, id := range tok.ids {
				muted[id] = struct{}{}
			}
			litPos += tok.length
		}
		placeholder = append(placeholder, ')')
		replacements = append(replacements, replacement{
			literal: dec.literal,
			text:    string(placeholder),
			at:      dec.positions,
		})
	}

	return replaceLiterals(regex, replacements), additional, muted
}

// buildPrefilter builds a multi-pattern automaton over the vocabulary.
// A literal that matches nothing in it cannot be decomposed, so the
// quadratic DP is skipped entirely.
func buildPrefilter(v *vocab.Vocabulary) *ahocorasick.Automaton {
	builder := ahocorasick.NewBuilder()
	count := 0
	for token := range v.Tokens() {
		if token == "" || containsMuteByte(token) {
			continue
		}
		builder.AddPattern([]byte(token))
		count++
	}
	if count == 0 {
		return nil
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return auto
}

// decomposeLiteral finds a minimum-count tokenization of literal over
// the vocabulary trie by dynamic programming over byte positions.
// Returns false when no tokenization covers the whole literal.
func decomposeLiteral(literal []byte, trie *tokenTrie) ([]trieMatch, bool) {
	n := len(literal)
	const unset = -1

	type cell struct {
		count int
		prev  int
		match trieMatch
	}
	dp := make([]cell, n+1)
	for i := range dp {
		dp[i] = cell{count: unset}
	}
	dp[0].count = 0

	for i := 0; i < n; i++ {
		if dp[i].count == unset {
			continue
		}
		for _, m := range trie.tokensAt(literal, i) {
			next := i + m.length
			if dp[next].count == unset || dp[next].count > dp[i].count+1 {
				dp[next] = cell{count: dp[i].count + 1, prev: i, match: m}
			}
		}
	}

	if dp[n].count == unset {
		return nil, false
	}
	tokens := make([]trieMatch, 0, dp[n].count)
	for pos := n; pos > 0; pos = dp[pos].prev {
		tokens = append(tokens, dp[pos].match)
	}
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return tokens, true
}

// literalRun is a maximal alphanumeric run found outside character
// classes, quantifier braces and escape sequences, with every byte
// offset it occurs at.
type literalRun struct {
	text      string
	positions []int
}

// extractLiterals scans the regex text for literal runs. The scan is
// purely textual: it tracks bracket, brace and escape context, flushes
// the run at any metacharacter, and drops the character preceding a
// '?' (it is genuinely optional and must stay outside any muted
// group).
func extractLiterals(regex string) []literalRun {
	found := make(map[string]*literalRun)
	order := []string{}

	var buffer []byte
	start := 0
	insideBrackets := false
	insideBraces := false
	insideEscape := false
	escapeDigits := 0

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		add(found, &order, string(buffer), start)
		buffer = buffer[:0]
	}

	for i := 0; i < len(regex); i++ {
		c := regex[i]
		switch {
		case c == '\\':
			insideEscape = true

		case c == '[':
			insideBrackets = insideBrackets || !insideEscape
			insideEscape = false
			flush()
		case c == ']':
			insideBrackets = false
			insideEscape = false
			flush()
		case c == '{':
			insideBraces = insideBraces || !insideEscape
			insideEscape = false
			flush()
		case c == '}':
			insideBraces = false
			insideEscape = false
			flush()
		case c == '(' || c == ')':
			insideEscape = false
			flush()

		case c == '"' || c == ',' || c == '-' || c == '_' || c == '.' || c == '*' || c == '+' || c == '|':
			insideEscape = false
			flush()

		case insideBrackets || insideBraces:
			// Character classes and counted repetitions contribute no
			// literals.

		case isASCIIAlnum(c):
			if escapeDigits > 0 {
				escapeDigits--
				continue
			}
			if insideEscape {
				// \xNN and \uNNNN consume hex digits that must not be
				// mistaken for literal text.
				if c == 'x' {
					escapeDigits = 2
				} else if c == 'u' {
					escapeDigits = 4
				}
				insideEscape = false
				continue
			}
			if len(buffer) == 0 {
				start = i
			}
			buffer = append(buffer, c)

		case c == '?' && !insideEscape:
			// The char before '?' is optional: emit the run without it.
			if len(buffer) > 0 {
				buffer = buffer[:len(buffer)-1]
				flush()
			}

		default:
			insideEscape = false
			flush()
		}
	}
	flush()

	runs := make([]literalRun, 0, len(order))
	for _, text := range order {
		runs = append(runs, *found[text])
	}
	return runs
}

func add(found map[string]*literalRun, order *[]string, text string, pos int) {
	if run, ok := found[text]; ok {
		run.positions = append(run.positions, pos)
		return
	}
	found[text] = &literalRun{text: text, positions: []int{pos}}
	*order = append(*order, text)
}

func isASCIIAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// replacement substitutes text for literal at each byte offset in at.
type replacement struct {
	literal string
	text    string
	at      []int
}

// replaceLiterals rebuilds the regex with all substitutions applied in
// position order.
func replaceLiterals(regex string, replacements []replacement) string {
	type flat struct {
		pos int
		lit string
		txt string
	}
	var all []flat
	for _, r := range replacements {
		for _, p := range r.at {
			all = append(all, flat{p, r.literal, r.text})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].pos < all[j].pos })

	var out []byte
	last := 0
	for _, f := range all {
		if f.pos < last {
			continue
		}
		out = append(out, regex[last:f.pos]...)
		out = append(out, f.txt...)
		last = f.pos + len(f.lit)
	}
	out = append(out, regex[last:]...)
	return string(out)
}
