package jsonschema

import (
	"encoding/json"
	"strings"
)

// kind discriminates parsed JSON values.
type kind uint8

const (
	kindNull kind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

// member is one key/value pair of an object, in declaration order.
type member struct {
	key string
	val *value
}

// value is a JSON value that preserves object member order.
//
// encoding/json maps lose declaration order, but the translator emits
// object properties in the order the schema declares them, so the
// document is decoded through the streaming tokenizer instead.
type value struct {
	kind kind
	b    bool
	// num holds the literal number text, preserving the author's
	// spelling (1 vs 1.0 vs 1e0) for const/enum emission.
	num string
	str string
	arr []*value
	obj []member
}

func parseValue(text string) (*value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, &SchemaError{Message: "malformed JSON", Cause: err}
	}
	if dec.More() {
		return nil, &SchemaError{Message: "malformed JSON: trailing data"}
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (*value, error) {
	switch t := tok.(type) {
	case nil:
		return &value{kind: kindNull}, nil
	case bool:
		return &value{kind: kindBool, b: t}, nil
	case json.Number:
		return &value{kind: kindNumber, num: t.String()}, nil
	case string:
		return &value{kind: kindString, str: t}, nil
	case json.Delim:
		switch t {
		case '[':
			v := &value{kind: kindArray}
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				v.arr = append(v.arr, elem)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return nil, err
			}
			return v, nil
		case '{':
			v := &value{kind: kindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				v.obj = append(v.obj, member{key: key, val: val})
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return nil, err
			}
			return v, nil
		}
	}
	return nil, &SchemaError{Message: "malformed JSON value"}
}

// get returns the member named key, or nil.
func (v *value) get(key string) *value {
	if v == nil || v.kind != kindObject {
		return nil
	}
	for _, m := range v.obj {
		if m.key == key {
			return m.val
		}
	}
	return nil
}

func (v *value) isObject() bool { return v != nil && v.kind == kindObject }

// asString returns the string content, or "" and false.
func (v *value) asString() (string, bool) {
	if v == nil || v.kind != kindString {
		return "", false
	}
	return v.str, true
}

// asUint returns the value as an unsigned integer, or 0 and false.
func (v *value) asUint() (uint64, bool) {
	if v == nil || v.kind != kindNumber {
		return 0, false
	}
	var n json.Number = json.Number(v.num)
	i, err := n.Int64()
	if err != nil || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

// asFloat returns the value as a float, or 0 and false.
func (v *value) asFloat() (float64, bool) {
	if v == nil || v.kind != kindNumber {
		return 0, false
	}
	f, err := json.Number(v.num).Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// stringItems returns the elements of a string array.
func (v *value) stringItems() []string {
	if v == nil || v.kind != kindArray {
		return nil
	}
	out := make([]string, 0, len(v.arr))
	for _, elem := range v.arr {
		if s, ok := elem.asString(); ok {
			out = append(out, s)
		}
	}
	return out
}

// serializePrimitive renders a null/bool/number/string value exactly
// as JSON would. Containers are not supported (enum and const accept
// primitives only).
func (v *value) serializePrimitive() (string, bool) {
	switch v.kind {
	case kindNull:
		return "null", true
	case kindBool:
		if v.b {
			return "true", true
		}
		return "false", true
	case kindNumber:
		return v.num, true
	case kindString:
		out, err := json.Marshal(v.str)
		if err != nil {
			return "", false
		}
		return string(out), true
	default:
		return "", false
	}
}

// synthetic values used for unconstrained members.

func typeValue(typ string) *value {
	return &value{kind: kindObject, obj: []member{
		{key: "type", val: &value{kind: kindString, str: typ}},
	}}
}

func typeValueWithDepth(typ string, depth uint64) *value {
	return &value{kind: kindObject, obj: []member{
		{key: "type", val: &value{kind: kindString, str: typ}},
		{key: "depth", val: &value{kind: kindNumber, num: uintString(depth)}},
	}}
}

func uintString(n uint64) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
