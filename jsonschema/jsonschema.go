package jsonschema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// maxRefDepth caps $ref recursion. A reference nested deeper than this
// emits an unconstrained object instead, preventing exponential regex
// blow-up on recursive schemas.
const maxRefDepth = 3

// Option configures BuildRegex.
type Option func(*translator)

// WithWhitespacePattern overrides the inter-token whitespace pattern
// (default Whitespace).
func WithWhitespacePattern(pattern string) Option {
	return func(t *translator) { t.ws = pattern }
}

// BuildRegex translates a JSON Schema document into a regex matching
// exactly the set of JSON serializations conforming to the schema.
func BuildRegex(schemaText string, opts ...Option) (string, error) {
	root, err := parseValue(schemaText)
	if err != nil {
		return "", err
	}
	t := &translator{ws: Whitespace, root: root}
	for _, opt := range opts {
		opt(t)
	}
	return t.toRegex(root)
}

type translator struct {
	ws       string
	root     *value
	refDepth int
}

// toRegex dispatches on the first discriminator key present, in fixed
// priority order.
func (t *translator) toRegex(v *value) (string, error) {
	if !v.isObject() {
		return "", &SchemaError{Message: "expected a schema object"}
	}
	if len(v.obj) == 0 {
		return t.handleEmptyObject()
	}

	switch {
	case v.get("properties") != nil:
		return t.handleProperties(v)
	case v.get("allOf") != nil:
		return t.handleAllOf(v)
	case v.get("anyOf") != nil:
		return t.handleAnyOf(v)
	case v.get("oneOf") != nil:
		return t.handleOneOf(v)
	case v.get("prefixItems") != nil:
		return t.handlePrefixItems(v)
	case v.get("enum") != nil:
		return t.handleEnum(v)
	case v.get("const") != nil:
		return t.handleConst(v)
	case v.get("$ref") != nil:
		return t.handleRef(v)
	case v.get("type") != nil:
		return t.handleType(v)
	default:
		return "", &SchemaError{Message: fmt.Sprintf("unsupported schema structure with keys %v", v.keys())}
	}
}

func (v *value) keys() []string {
	out := make([]string, 0, len(v.obj))
	for _, m := range v.obj {
		out = append(out, m.key)
	}
	return out
}

// handleProperties emits an object with fixed named fields.
//
// With at least one required field, fields appear in declaration order
// and optional fields wrap with comma handling driven by the position
// of the last required one. With none required, the emission is a
// disjunction over which field appears first, with optional prefixes
// and suffixes around it.
func (t *translator) handleProperties(v *value) (string, error) {
	properties := v.get("properties")
	if !properties.isObject() {
		return "", &SchemaError{Message: "'properties' must be an object"}
	}

	required := map[string]bool{}
	for _, name := range v.get("required").stringItems() {
		required[name] = true
	}

	var regex strings.Builder
	regex.WriteString(`\{`)

	lastRequired := -1
	for i, m := range properties.obj {
		if required[m.key] {
			lastRequired = i
		}
	}

	if lastRequired >= 0 {
		for i, m := range properties.obj {
			sub, err := t.toRegex(m.val)
			if err != nil {
				return "", err
			}
			field := fmt.Sprintf(`%s"%s"%s:%s%s`, t.ws, regexp.QuoteMeta(m.key), t.ws, t.ws, sub)
			if i < lastRequired {
				field = field + t.ws + ","
			} else if i > lastRequired {
				field = t.ws + "," + field
			}
			if required[m.key] {
				regex.WriteString(field)
			} else {
				regex.WriteString("(" + field + ")?")
			}
		}
	} else {
		fields := make([]string, 0, len(properties.obj))
		for _, m := range properties.obj {
			sub, err := t.toRegex(m.val)
			if err != nil {
				return "", err
			}
			fields = append(fields, fmt.Sprintf(`%s"%s"%s:%s%s`, t.ws, regexp.QuoteMeta(m.key), t.ws, t.ws, sub))
		}
		patterns := make([]string, 0, len(fields))
		for i := range fields {
			var p strings.Builder
			for _, f := range fields[:i] {
				p.WriteString("(" + f + t.ws + ",)?")
			}
			p.WriteString(fields[i])
			for _, f := range fields[i+1:] {
				p.WriteString("(" + t.ws + "," + f + ")?")
			}
			patterns = append(patterns, p.String())
		}
		if len(patterns) > 0 {
			regex.WriteString("(" + strings.Join(patterns, "|") + ")?")
		}
	}

	regex.WriteString(t.ws + `\}`)
	return regex.String(), nil
}

// handleAllOf concatenates subschema regexes. Joint satisfaction is
// not enforced; this mirrors the keyword's documented limitation.
func (t *translator) handleAllOf(v *value) (string, error) {
	subs, err := t.subRegexes(v.get("allOf"), "allOf")
	if err != nil {
		return "", err
	}
	return "(" + strings.Join(subs, "") + ")", nil
}

func (t *translator) handleAnyOf(v *value) (string, error) {
	subs, err := t.subRegexes(v.get("anyOf"), "anyOf")
	if err != nil {
		return "", err
	}
	return "(" + strings.Join(subs, "|") + ")", nil
}

// handleOneOf emits the same alternation as anyOf: uniqueness of the
// matching branch is not expressible at the regex layer.
func (t *translator) handleOneOf(v *value) (string, error) {
	subs, err := t.subRegexes(v.get("oneOf"), "oneOf")
	if err != nil {
		return "", err
	}
	wrapped := make([]string, 0, len(subs))
	for _, sub := range subs {
		wrapped = append(wrapped, "(?:"+sub+")")
	}
	return "(" + strings.Join(wrapped, "|") + ")", nil
}

func (t *translator) handlePrefixItems(v *value) (string, error) {
	subs, err := t.subRegexes(v.get("prefixItems"), "prefixItems")
	if err != nil {
		return "", err
	}
	sep := t.ws + "," + t.ws
	return `\[` + t.ws + strings.Join(subs, sep) + t.ws + `\]`, nil
}

func (t *translator) subRegexes(list *value, keyword string) ([]string, error) {
	if list == nil || list.kind != kindArray {
		return nil, &SchemaError{Message: "'" + keyword + "' must be an array"}
	}
	out := make([]string, 0, len(list.arr))
	for _, sub := range list.arr {
		r, err := t.toRegex(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *translator) handleEnum(v *value) (string, error) {
	list := v.get("enum")
	if list == nil || list.kind != kindArray {
		return "", &SchemaError{Message: "'enum' must be an array"}
	}
	choices := make([]string, 0, len(list.arr))
	for _, choice := range list.arr {
		serialized, ok := choice.serializePrimitive()
		if !ok {
			return "", &SchemaError{Message: "unsupported data type in enum"}
		}
		choices = append(choices, regexp.QuoteMeta(serialized))
	}
	return "(" + strings.Join(choices, "|") + ")", nil
}

func (t *translator) handleConst(v *value) (string, error) {
	serialized, ok := v.get("const").serializePrimitive()
	if !ok {
		return "", &SchemaError{Message: "unsupported data type in const"}
	}
	return regexp.QuoteMeta(serialized), nil
}

// handleRef resolves a local reference against the document root. Only
// "#/..." references are supported; recursion past maxRefDepth emits
// an unconstrained object.
func (t *translator) handleRef(v *value) (string, error) {
	path, ok := v.get("$ref").asString()
	if !ok {
		return "", &SchemaError{Message: "'$ref' must be a string"}
	}
	if !strings.HasPrefix(path, "#/") {
		return "", &SchemaError{Message: "only local references are supported: " + path}
	}

	if t.refDepth >= maxRefDepth {
		return t.handleObjectType(&value{kind: kindObject})
	}
	t.refDepth++
	defer func() { t.refDepth-- }()

	current := t.root
	for _, part := range strings.Split(path[2:], "/") {
		current = current.get(part)
		if current == nil {
			return "", &SchemaError{Message: "invalid reference path: " + path}
		}
	}
	return t.toRegex(current)
}

func (t *translator) handleType(v *value) (string, error) {
	typ, ok := v.get("type").asString()
	if !ok {
		return "", &SchemaError{Message: "'type' must be a string"}
	}
	switch typ {
	case "string":
		return t.handleStringType(v)
	case "number":
		return t.handleNumberType(v)
	case "integer":
		return t.handleIntegerType(v)
	case "array":
		return t.handleArrayType(v)
	case "object":
		return t.handleObjectType(v)
	case "boolean", "null":
		return typeRegex[typ], nil
	default:
		return "", &SchemaError{Message: "unsupported type: " + typ}
	}
}

// handleEmptyObject emits the unconstrained-value alternation: an
// empty schema admits any JSON value.
func (t *translator) handleEmptyObject() (string, error) {
	types := []*value{
		typeValue("boolean"),
		typeValue("null"),
		typeValue("number"),
		typeValue("integer"),
		typeValue("string"),
		typeValue("array"),
		typeValue("object"),
	}
	parts := make([]string, 0, len(types))
	for _, tv := range types {
		r, err := t.toRegex(tv)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+r+")")
	}
	return strings.Join(parts, "|"), nil
}

func (t *translator) handleStringType(v *value) (string, error) {
	minLen := v.get("minLength")
	maxLen := v.get("maxLength")
	if minLen != nil || maxLen != nil {
		minF, _ := minLen.asFloat()
		maxF, maxSet := maxLen.asFloat()
		if minLen != nil && maxLen != nil && maxSet && minF > maxF {
			return "", &SchemaError{Message: "maxLength must be greater than or equal to minLength"}
		}
		formattedMin := "0"
		if n, ok := minLen.asUint(); ok {
			formattedMin = uintString(n)
		}
		formattedMax := ""
		if n, ok := maxLen.asUint(); ok {
			formattedMax = uintString(n)
		}
		return fmt.Sprintf(`"%s{%s,%s}"`, StringInner, formattedMin, formattedMax), nil
	}

	if pattern, ok := v.get("pattern").asString(); ok {
		if _, err := regexp2.Compile(pattern, regexp2.None); err != nil {
			return "", &SchemaError{Message: "invalid 'pattern' regex", Cause: err}
		}
		if strings.HasPrefix(pattern, "^") && strings.HasSuffix(pattern, "$") {
			return `("` + pattern[1:len(pattern)-1] + `")`, nil
		}
		return `("` + pattern + `")`, nil
	}

	if format, ok := v.get("format").asString(); ok {
		r, supported := formatRegex[format]
		if !supported {
			return "", &SchemaError{Message: "unsupported string format: " + format}
		}
		return r, nil
	}

	return String, nil
}

func (t *translator) handleNumberType(v *value) (string, error) {
	bounds := []string{
		"minDigitsInteger", "maxDigitsInteger",
		"minDigitsFraction", "maxDigitsFraction",
		"minDigitsExponent", "maxDigitsExponent",
	}
	hasBounds := false
	for _, key := range bounds {
		if v.get(key) != nil {
			hasBounds = true
			break
		}
	}
	if !hasBounds {
		return Number, nil
	}

	intMin, intMax, err := validateQuantifiers(v.get("minDigitsInteger"), v.get("maxDigitsInteger"), 1)
	if err != nil {
		return "", err
	}
	fracMin, fracMax, err := validateQuantifiers(v.get("minDigitsFraction"), v.get("maxDigitsFraction"), 0)
	if err != nil {
		return "", err
	}
	expMin, expMax, err := validateQuantifiers(v.get("minDigitsExponent"), v.get("maxDigitsExponent"), 0)
	if err != nil {
		return "", err
	}

	intQuant := quantifier(intMin, intMax, "*", 1)
	fracQuant := quantifier(fracMin, fracMax, "+", 0)
	expQuant := quantifier(expMin, expMax, "+", 0)

	return fmt.Sprintf(`((-)?(0|[1-9][0-9]%s))(\.[0-9]%s)?([eE][+-][0-9]%s)?`,
		intQuant, fracQuant, expQuant), nil
}

func (t *translator) handleIntegerType(v *value) (string, error) {
	if v.get("minDigits") == nil && v.get("maxDigits") == nil {
		return Integer, nil
	}
	min, max, err := validateQuantifiers(v.get("minDigits"), v.get("maxDigits"), 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(-)?(0|[1-9][0-9]%s)`, quantifier(min, max, "*", 0)), nil
}

func (t *translator) handleObjectType(v *value) (string, error) {
	minProps, _ := v.get("minProperties").asUint()
	if n, ok := v.get("maxProperties").asUint(); ok && n < 1 {
		return `\{` + t.ws + `\}`, nil
	}

	allowEmpty := "?"
	if minProps > 0 {
		allowEmpty = ""
	}

	var valuePattern string
	var err error
	additional := v.get("additionalProperties")
	if additional == nil || (additional.kind == kindBool && additional.b) {
		// Unconstrained values: any primitive, plus containers while
		// the depth budget lasts.
		depth := uint64(2)
		if n, ok := v.get("depth").asUint(); ok {
			depth = n
		}
		legal := []*value{
			typeValue("string"),
			typeValue("number"),
			typeValue("boolean"),
			typeValue("null"),
		}
		if depth > 0 {
			legal = append(legal,
				typeValueWithDepth("object", depth-1),
				typeValueWithDepth("array", depth-1),
			)
		}
		anyOf := &value{kind: kindObject, obj: []member{
			{key: "anyOf", val: &value{kind: kindArray, arr: legal}},
		}}
		valuePattern, err = t.toRegex(anyOf)
	} else {
		valuePattern, err = t.toRegex(additional)
	}
	if err != nil {
		return "", err
	}

	keyValue := String + t.ws + ":" + t.ws + valuePattern
	successor := t.ws + "," + t.ws + keyValue
	members := "(" + keyValue + "(" + successor + "){0,})" + allowEmpty

	return `\{` + t.ws + members + t.ws + `\}`, nil
}

func (t *translator) handleArrayType(v *value) (string, error) {
	minItems, _ := v.get("minItems").asUint()
	var maxItems *uint64
	if n, ok := v.get("maxItems").asUint(); ok {
		maxItems = &n
	}

	numRepeats, ok := numItemsPattern(minItems, maxItems)
	if !ok {
		return `\[` + t.ws + `\]`, nil
	}

	allowEmpty := "?"
	if minItems > 0 {
		allowEmpty = ""
	}

	if items := v.get("items"); items != nil {
		itemsRegex, err := t.toRegex(items)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`\[%[1]s((%[2]s)(,%[1]s(%[2]s))%[3]s)%[4]s%[1]s\]`,
			t.ws, itemsRegex, numRepeats, allowEmpty), nil
	}

	// No item schema: any legal value, bounded by the depth budget.
	depth := uint64(2)
	if n, ok := v.get("depth").asUint(); ok {
		depth = n
	}
	legal := []*value{
		typeValue("boolean"),
		typeValue("null"),
		typeValue("number"),
		typeValue("integer"),
		typeValue("string"),
	}
	if depth > 0 {
		legal = append(legal,
			typeValueWithDepth("object", depth-1),
			typeValueWithDepth("array", depth-1),
		)
	}
	parts := make([]string, 0, len(legal))
	for _, lv := range legal {
		r, err := t.toRegex(lv)
		if err != nil {
			return "", err
		}
		parts = append(parts, r)
	}
	joined := strings.Join(parts, "|")
	return fmt.Sprintf(`\[%[1]s((%[2]s)(,%[1]s(%[2]s))%[3]s)%[4]s%[1]s\]`,
		t.ws, joined, numRepeats, allowEmpty), nil
}

// validateQuantifiers converts digit bounds to quantifier operands,
// subtracting startOffset for the digits the base pattern already
// consumes. Bounds that collapse to zero disappear.
func validateQuantifiers(minBound, maxBound *value, startOffset uint64) (*uint64, *uint64, error) {
	var min, max *uint64
	if n, ok := minBound.asUint(); ok {
		if n > startOffset {
			v := n - startOffset
			min = &v
		}
	}
	if n, ok := maxBound.asUint(); ok {
		if n > startOffset {
			v := n - startOffset
			max = &v
		}
	}
	if minBound != nil && maxBound != nil {
		minF, _ := minBound.asFloat()
		maxF, _ := maxBound.asFloat()
		if maxF < minF {
			return nil, nil, &SchemaError{Message: "max bound must be greater than or equal to min bound"}
		}
	}
	return min, max, nil
}

// quantifier renders a repetition operator from optional bounds.
// unbounded is the operator when neither bound is set; loneMaxMin is
// the implied minimum when only a maximum is given.
func quantifier(min, max *uint64, unbounded string, loneMaxMin uint64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("{%d,%d}", *min, *max)
	case min != nil:
		return fmt.Sprintf("{%d,}", *min)
	case max != nil:
		return fmt.Sprintf("{%d,%d}", loneMaxMin, *max)
	default:
		return unbounded
	}
}

// numItemsPattern renders the repetition bound for array items after
// the first one. ok is false when the maximum forbids any item at all.
func numItemsPattern(min uint64, max *uint64) (string, bool) {
	if max != nil && *max < 1 {
		return "", false
	}
	lower := uint64(0)
	if min > 0 {
		lower = min - 1
	}
	if max == nil {
		return fmt.Sprintf("{%d,}", lower), true
	}
	return fmt.Sprintf("{%d,%d}", lower, *max-1), true
}
