package vocab

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// defaultHubBaseURL is the Hugging Face Hub download endpoint.
const defaultHubBaseURL = "https://huggingface.co"

// PretrainedOptions configures FromPretrained.
type PretrainedOptions struct {
	// Revision is the git revision to fetch. Defaults to "main".
	Revision string

	// AuthToken, when set, is sent as a bearer token (gated models).
	AuthToken string

	// EOSTokenID overrides EOS discovery from tokenizer metadata.
	EOSTokenID *TokenID

	// HTTPClient overrides the client used for hub requests.
	HTTPClient *http.Client

	// BaseURL overrides the hub endpoint (tests, mirrors).
	BaseURL string
}

// tokenizerJSON is the subset of Hugging Face's tokenizer.json needed
// to decode a vocabulary into raw byte tokens.
type tokenizerJSON struct {
	AddedTokens []addedToken `json:"added_tokens"`
	Decoder     *decoderSpec `json:"decoder"`
	PreTok      *decoderSpec `json:"pre_tokenizer"`
	Model       struct {
		Type         string         `json:"type"`
		Vocab        map[string]int `json:"vocab"`
		ByteFallback bool           `json:"byte_fallback"`
	} `json:"model"`
}

type addedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type decoderSpec struct {
	Type     string        `json:"type"`
	Decoders []decoderSpec `json:"decoders"`
	PreToks  []decoderSpec `json:"pretokenizers"`
}

// tokenizerConfigJSON is the subset of tokenizer_config.json used to
// locate the EOS token.
type tokenizerConfigJSON struct {
	EOSToken json.RawMessage `json:"eos_token"`
}

// FromPretrained loads a tokenizer from the Hugging Face Hub and
// decodes its id-to-subword table into raw byte tokens.
//
// Supported tokenizers are those with a byte-level decoder (GPT-2
// style byte-level BPE, or SentencePiece byte-fallback). Anything else
// fails with an UnsupportedTokenizerError: without a byte-level
// decoder there is no faithful byte rendition of the vocabulary.
func FromPretrained(model string, opts *PretrainedOptions) (*Vocabulary, error) {
	if opts == nil {
		opts = &PretrainedOptions{}
	}

	raw, err := fetchHubFile(model, "tokenizer.json", opts)
	if err != nil {
		return nil, err
	}
	var tj tokenizerJSON
	if err := json.Unmarshal(raw, &tj); err != nil {
		return nil, &UnsupportedTokenizerError{Model: model, Reason: "malformed tokenizer.json", Cause: err}
	}

	processor, err := selectProcessor(&tj)
	if err != nil {
		return nil, &UnsupportedTokenizerError{Model: model, Reason: "token processor", Cause: err}
	}

	eosID, err := locateEOSTokenID(model, &tj, opts)
	if err != nil {
		return nil, err
	}

	v := New(eosID)
	for _, added := range tj.AddedTokens {
		if added.Special || added.ID < 0 {
			continue
		}
		if err := v.InsertString(added.Content, TokenID(added.ID)); err != nil {
			return nil, err
		}
	}
	for token, id := range tj.Model.Vocab {
		if id < 0 || TokenID(id) == eosID {
			continue
		}
		decoded, err := processor.process(token)
		if err != nil {
			return nil, &UnsupportedTokenizerError{Model: model, Reason: "token processor", Cause: err}
		}
		if err := v.Insert(decoded, TokenID(id)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// selectProcessor picks the byte-level decoder matching the tokenizer
// definition.
func selectProcessor(tj *tokenizerJSON) (tokenProcessor, error) {
	if specContains(tj.Decoder, "ByteLevel") || specContains(tj.PreTok, "ByteLevel") {
		return newByteLevelProcessor(), nil
	}
	if specContains(tj.Decoder, "ByteFallback") || tj.Model.ByteFallback {
		return byteFallbackProcessor{}, nil
	}
	return nil, errors.New("no byte-level decoder found")
}

func specContains(spec *decoderSpec, typ string) bool {
	if spec == nil {
		return false
	}
	if spec.Type == typ {
		return true
	}
	for i := range spec.Decoders {
		if specContains(&spec.Decoders[i], typ) {
			return true
		}
	}
	for i := range spec.PreToks {
		if specContains(&spec.PreToks[i], typ) {
			return true
		}
	}
	return false
}

// wellKnownEOSContents are the EOS spellings of the model families the
// loader supports out of the box.
var wellKnownEOSContents = []string{
	"<|endoftext|>",
	"</s>",
	"<|eot_id|>",
	"<|end_of_text|>",
	"<|im_end|>",
	"<|end▁of▁sentence|>",
}

// locateEOSTokenID finds the EOS id: an explicit override wins, then
// the model's tokenizer_config.json, then well-known added tokens.
func locateEOSTokenID(model string, tj *tokenizerJSON, opts *PretrainedOptions) (TokenID, error) {
	if opts.EOSTokenID != nil {
		return *opts.EOSTokenID, nil
	}

	byContent := make(map[string]TokenID, len(tj.AddedTokens))
	for _, added := range tj.AddedTokens {
		if added.ID >= 0 {
			byContent[added.Content] = TokenID(added.ID)
		}
	}
	for token, id := range tj.Model.Vocab {
		if _, ok := byContent[token]; !ok && id >= 0 {
			byContent[token] = TokenID(id)
		}
	}

	if raw, err := fetchHubFile(model, "tokenizer_config.json", opts); err == nil {
		var cfg tokenizerConfigJSON
		if json.Unmarshal(raw, &cfg) == nil && len(cfg.EOSToken) > 0 {
			if content := eosContentFromConfig(cfg.EOSToken); content != "" {
				if id, ok := byContent[content]; ok {
					return id, nil
				}
			}
		}
	}

	for _, content := range wellKnownEOSContents {
		if id, ok := byContent[content]; ok {
			return id, nil
		}
	}
	return 0, &UnsupportedTokenizerError{Model: model, Reason: "EOS token id"}
}

// eosContentFromConfig extracts the EOS spelling from the
// tokenizer_config.json eos_token field, which is either a plain
// string or an added-token object with a content field.
func eosContentFromConfig(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Content string `json:"content"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Content
	}
	return ""
}

func fetchHubFile(model, name string, opts *PretrainedOptions) ([]byte, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultHubBaseURL
	}
	revision := opts.Revision
	if revision == "" {
		revision = "main"
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	url := fmt.Sprintf("%s/%s/resolve/%s/%s", baseURL, model, revision, name)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "hub request for %s", model)
	}
	if opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.AuthToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s for %s", name, model)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching %s for %s: HTTP %d", name, model, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s for %s", name, model)
	}
	return body, nil
}
