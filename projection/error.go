package projection

import (
	"fmt"
	"strings"
)

// IncompatibleVocabularyError reports a projected state whose byte-DFA
// state has live outgoing byte edges that no vocabulary token can
// traverse. The vocabulary lacks a byte the regex requires literally.
type IncompatibleVocabularyError struct {
	// Regex is the pattern the index was built from.
	Regex string
	// State is the projected state with no usable continuation.
	State StateID
	// MissingTokens lists the bytes the DFA expected, printable ASCII
	// as literals and other bytes as \xNN escapes.
	MissingTokens []string
}

func newIncompatibleVocabularyError(regex string, state StateID, liveBytes []byte) *IncompatibleVocabularyError {
	missing := make([]string, 0, len(liveBytes))
	for _, b := range liveBytes {
		if b >= 0x20 && b < 0x7F {
			missing = append(missing, string(rune(b)))
		} else {
			missing = append(missing, fmt.Sprintf("\\x%02x", b))
		}
	}
	return &IncompatibleVocabularyError{Regex: regex, State: state, MissingTokens: missing}
}

// Error implements the error interface.
func (e *IncompatibleVocabularyError) Error() string {
	return fmt.Sprintf(
		"vocabulary is incompatible with regex %q: projected state %d expects one of [%s] and no token provides it",
		e.Regex, e.State, strings.Join(e.MissingTokens, " "),
	)
}
