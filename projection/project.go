package projection

import (
	"github.com/coregx/tokenguide/dfa"
	"github.com/coregx/tokenguide/vocab"
)

// Config configures projection.
type Config struct {
	// DisableMuting turns literal muting off. Muting is a pure
	// optimization; disabling it is mainly useful for debugging and
	// for differential tests.
	DisableMuting bool

	// MaxDFAStates bounds byte-DFA determinization. Zero means the
	// dfa package default.
	MaxDFAStates int
}

// Compile builds the token-aligned transition table for regex over the
// vocabulary.
func Compile(regex string, v *vocab.Vocabulary, cfg Config) (*MasksTable, error) {
	pattern := regex
	var additional []additionalToken
	muted := map[vocab.TokenID]struct{}{}
	if !cfg.DisableMuting {
		pattern, additional, muted = muteLiterals(regex, v)
	}

	d, err := dfa.Compile(pattern, dfa.Config{MaxStates: cfg.MaxDFAStates})
	if err != nil {
		return nil, err
	}

	dead, err := dfa.DeadByteClasses(pattern, d.ByteClasses())
	if err != nil {
		return nil, err
	}

	gr := buildGrid(v, additional, d, dead)
	f := buildForest(gr)

	maskBits := uint(v.MaxTokenID()) + 1
	table := newMasksTable(v.Len(), maskBits, v.EOSTokenID())
	table.classOf = gr.classOf
	table.tokensIn = gr.tokensIn
	table.muted = muted
	table.eosClassID = gr.eosClassID

	if err := project(regex, d, gr, f, table); err != nil {
		return nil, err
	}

	return table, nil
}

// walkFrame is one pending node of a prefix-graph DFS: the node to
// walk, how many class bytes the parent already consumed, and the DFA
// state the parent stopped at.
type walkFrame struct {
	node      int32
	prefixLen int
	state     dfa.StateID
}

// project runs the BFS over byte-DFA states, emitting a projected
// transition per (state, token class) pair that survives the walk.
func project(regex string, d *dfa.DFA, gr *grid, f *forest, table *MasksTable) error {
	stateFor := map[dfa.StateID]StateID{}
	counter := StateID(0)
	intern := func(s dfa.StateID) StateID {
		if id, ok := stateFor[s]; ok {
			return id
		}
		id := counter
		counter++
		stateFor[s] = id
		return id
	}

	start := d.Start()
	table.initial = intern(start)

	queue := []dfa.StateID{start}
	seen := map[dfa.StateID]struct{}{start: {}}

	var stack []walkFrame
	live := make([]bool, d.AlphabetLen())

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		currentID := intern(current)

		hasValid := false
		if d.MatchesAtEOI(current) {
			table.finals.Add(currentID)
			hasValid = true
		}

		for i := range live {
			live[i] = false
		}
		for _, class := range d.LiveClasses(current) {
			live[class] = true
		}

		for _, g := range f.graphs {
			root := &f.nodes[g.root]
			if !live[root.class[0]] {
				continue
			}
			stack = append(stack[:0], walkFrame{node: g.root, prefixLen: 0, state: current})

			for len(stack) > 0 {
				frame := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				node := &f.nodes[frame.node]

				// Resume from the parent's state across only the bytes
				// this node adds beyond the parent's class.
				walked := frame.state
				ok := true
				for _, classByte := range node.class[frame.prefixLen:] {
					walked = d.NextClass(walked, classByte)
					if d.IsDeadState(walked) {
						ok = false
						break
					}
				}
				if !ok {
					// The whole subtree shares this dead prefix.
					continue
				}

				intermediate := !d.IsMatchState(walked)
				final := d.MatchesAtEOI(walked)
				if intermediate || final {
					hasValid = true
					targetID := intern(walked)
					table.addTransition(currentID, node.id, targetID)
					if _, dup := seen[walked]; !dup {
						seen[walked] = struct{}{}
						queue = append(queue, walked)
					}
				}
				for _, child := range node.children {
					stack = append(stack, walkFrame{
						node:      child,
						prefixLen: len(node.class),
						state:     walked,
					})
				}
			}
		}

		if !hasValid && !d.IsMatchState(current) {
			return newIncompatibleVocabularyError(regex, currentID, d.LiveBytes(current))
		}
	}

	// Stopping at a final state is modeled as an EOS self-loop; the
	// read API still reports no transition for the EOS itself.
	for _, finalID := range table.finals.ToArray() {
		table.addTransition(finalID, gr.eosClassID, finalID)
	}

	table.reduce(int(counter))
	table.promoteDeadEnds()
	return nil
}
