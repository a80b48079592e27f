// Package tokenguide constrains LLM decoding so that every generated
// token sequence matches a regular expression.
//
// Given a byte-level vocabulary and a regex (or a regex derived from a
// JSON Schema via the jsonschema package), an Index precomputes, for
// every reachable parser state, the set of token ids whose decoded
// bytes are a legal continuation. A sampler consults the per-state
// allowed-token bitmask between steps, zeroes the logits of everything
// else, and feeds the chosen token back through a Guide to advance.
//
// Basic usage:
//
//	vocabulary := vocab.New(4)
//	_ = vocabulary.InsertString("0", 3)
//	_ = vocabulary.InsertString("2", 2)
//
//	index, err := tokenguide.NewIndex(`0|[1-9][0-9]*`, vocabulary)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	guide := tokenguide.NewGuide(index)
//	for !guide.IsFinished() {
//	    mask := guide.AllowedMask()
//	    // sample a token under mask, then:
//	    // mask, err = guide.Advance(tokenID)
//	    _ = mask
//	    break
//	}
//
// An Index is immutable after construction: any number of Guides may
// read it concurrently without synchronization.
package tokenguide

import (
	"errors"

	"github.com/bits-and-blooms/bitset"

	"github.com/coregx/tokenguide/jsonschema"
	"github.com/coregx/tokenguide/projection"
	"github.com/coregx/tokenguide/vocab"
)

// TokenID is a numeric token identifier.
type TokenID = vocab.TokenID

// StateID identifies a state of the token-aligned automaton.
type StateID = projection.StateID

// Option configures index construction.
type Option func(*buildConfig)

type buildConfig struct {
	projection projection.Config
}

// WithMaxDFAStates bounds byte-DFA determinization. Construction fails
// with a RegexUnsupported error when the bound is exceeded.
func WithMaxDFAStates(n int) Option {
	return func(c *buildConfig) { c.projection.MaxDFAStates = n }
}

// WithoutLiteralMuting disables the literal-muting optimization.
// Muting never changes the byte language the index accepts; building
// without it is mainly useful for differential testing.
func WithoutLiteralMuting() Option {
	return func(c *buildConfig) { c.projection.DisableMuting = true }
}

// Index maps vocabulary tokens to state transitions of the
// token-aligned automaton compiled from a regex.
type Index struct {
	table *projection.MasksTable
}

// NewIndex builds an Index from a regular expression and a vocabulary.
//
// Construction is a blocking compute operation; no partial index is
// returned on failure.
func NewIndex(regex string, v *vocab.Vocabulary, opts ...Option) (*Index, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	table, err := projection.Compile(regex, v, cfg.projection)
	if err != nil {
		var incompatible *projection.IncompatibleVocabularyError
		if errors.As(err, &incompatible) {
			return nil, &IndexError{Kind: VocabularyIncompatible, Message: "index construction", Cause: err}
		}
		return nil, &IndexError{Kind: RegexUnsupported, Message: "index construction", Cause: err}
	}
	return &Index{table: table}, nil
}

// NewIndexFromSchema translates a JSON Schema document to a regex and
// builds an Index from it. schemaOpts pass through to the schema
// translator.
func NewIndexFromSchema(schemaText string, v *vocab.Vocabulary, schemaOpts []jsonschema.Option, opts ...Option) (*Index, error) {
	regex, err := jsonschema.BuildRegex(schemaText, schemaOpts...)
	if err != nil {
		return nil, &IndexError{Kind: SchemaInvalid, Message: "schema translation", Cause: err}
	}
	return NewIndex(regex, v, opts...)
}

// InitialState returns the state processing begins from.
func (i *Index) InitialState() StateID { return i.table.InitialState() }

// IsFinalState reports whether state is final: generation may legally
// stop there, and the EOS bit is set in its mask.
func (i *Index) IsFinalState(state StateID) bool { return i.table.IsFinal(state) }

// FinalStates returns the final states in ascending order.
func (i *Index) FinalStates() []StateID { return i.table.FinalStates() }

// AllowedMask returns the bitmask over token ids (EOS included) legal
// at state, or nil for unknown states. The mask is shared and must not
// be mutated; word-level access is available through Bytes.
func (i *Index) AllowedMask(state StateID) *bitset.BitSet { return i.table.AllowedMask(state) }

// AllowedTokens materializes the allowed token ids at state, or nil
// for unknown states.
func (i *Index) AllowedTokens(state StateID) []TokenID { return i.table.AllowedTokens(state) }

// NextState advances state by tokenID. The second result is false for
// the EOS (stopping is not a transition), for unknown states, and for
// disallowed tokens.
func (i *Index) NextState(state StateID, tokenID TokenID) (StateID, bool) {
	return i.table.NextState(state, tokenID)
}

// EOSTokenID returns the end-of-sequence token id.
func (i *Index) EOSTokenID() TokenID { return i.table.EOSTokenID() }

// VocabSize returns the size of the vocabulary the index was built
// from.
func (i *Index) VocabSize() int { return i.table.VocabSize() }

// NumStates returns the number of states.
func (i *Index) NumStates() int { return i.table.NumStates() }

// Equal reports whether two indexes accept the same token sequences
// with the same state identities.
func (i *Index) Equal(other *Index) bool {
	if other == nil {
		return false
	}
	return i.table.Equal(other.table)
}
