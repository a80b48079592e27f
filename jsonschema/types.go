// Package jsonschema translates JSON Schema documents into regular
// expressions recognizing exactly their serialized instances.
//
// The translator is an input adapter for index construction: the
// produced pattern is handed to the same pipeline as a hand-written
// regex. Inter-token whitespace is configurable and defaults to the
// single optional space of Whitespace.
package jsonschema

// Regex fragments for the JSON primitive types.
const (
	// StringInner matches one legal character inside a JSON string:
	// `\"`, `\\`, or anything that is not a control sequence.
	StringInner = `([^"\\\x00-\x1F\x7F-\x9F]|\\["\\])`

	// String matches a complete JSON string.
	String = `"([^"\\\x00-\x1F\x7F-\x9F]|\\["\\])*"`

	// Integer matches a JSON integer.
	Integer = `(-)?(0|[1-9][0-9]*)`

	// Number matches a JSON number.
	Number = `((-)?(0|[1-9][0-9]*))(\.[0-9]+)?([eE][+-][0-9]+)?`

	// Boolean matches a JSON boolean.
	Boolean = `(true|false)`

	// Null matches the JSON null literal.
	Null = `null`

	// Whitespace is the default inter-token whitespace pattern.
	Whitespace = `[ ]?`
)

// Regex fragments for supported string formats.
const (
	// DateTime matches RFC 3339 date-time strings.
	DateTime = `"(-?(?:[1-9][0-9]*)?[0-9]{4})-(1[0-2]|0[1-9])-(3[01]|0[1-9]|[12][0-9])T(2[0-3]|[01][0-9]):([0-5][0-9]):([0-5][0-9])(\.[0-9]{3})?(Z)?"`

	// Date matches full-date strings.
	Date = `"(?:\d{4})-(?:0[1-9]|1[0-2])-(?:0[1-9]|[1-2][0-9]|3[0-1])"`

	// Time matches partial-time strings.
	Time = `"(2[0-3]|[01][0-9]):([0-5][0-9]):([0-5][0-9])(\.[0-9]+)?(Z)?"`

	// UUID matches lowercase hyphenated UUID strings.
	UUID = `"[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}"`
)

// formatRegex maps the supported "format" keyword values.
var formatRegex = map[string]string{
	"date-time": DateTime,
	"date":      Date,
	"time":      Time,
	"uuid":      UUID,
}

// typeRegex maps primitive "type" keyword values to their fragments.
var typeRegex = map[string]string{
	"string":  String,
	"integer": Integer,
	"number":  Number,
	"boolean": Boolean,
	"null":    Null,
}
