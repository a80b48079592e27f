package vocab

import "fmt"

// UnsupportedTokenizerError indicates a pretrained tokenizer cannot be
// decoded into a byte-level vocabulary.
type UnsupportedTokenizerError struct {
	Model  string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *UnsupportedTokenizerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unsupported tokenizer for model %q: %s: %v", e.Model, e.Reason, e.Cause)
	}
	return fmt.Sprintf("unsupported tokenizer for model %q: %s", e.Model, e.Reason)
}

// Unwrap returns the underlying error.
func (e *UnsupportedTokenizerError) Unwrap() error { return e.Cause }
