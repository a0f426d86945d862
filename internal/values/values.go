// Package values implements the typed value model used to compare
// submission output against expected answers across guest languages.
package values

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind enumerates the supported logical value types.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	Str
	Seq
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "string"
	case Seq:
		return "sequence"
	}
	return "unknown"
}

// Value is an immutable typed value.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
}

func Nil() Value               { return Value{kind: Null} }
func NewBool(b bool) Value     { return Value{kind: Bool, b: b} }
func NewInt(i int64) Value     { return Value{kind: Int, i: i} }
func NewFloat(f float64) Value { return Value{kind: Float, f: f} }
func NewStr(s string) Value    { return Value{kind: Str, s: s} }
func NewSeq(vs []Value) Value  { return Value{kind: Seq, seq: vs} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Len() int       { return len(v.seq) }
func (v Value) At(i int) Value { return v.seq[i] }

// IsNumeric reports whether the value is an int or a float.
func (v Value) IsNumeric() bool { return v.kind == Int || v.kind == Float }

// AsFloat returns the numeric value widened to float64.
func (v Value) AsFloat() float64 {
	if v.kind == Int {
		return float64(v.i)
	}
	return v.f
}

// ToAny converts the value to the corresponding native Go representation.
func (v Value) ToAny() any {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case Str:
		return v.s
	case Seq:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.ToAny()
		}
		return out
	}
	return nil
}

// String renders the value as JSON text.
func (v Value) String() string {
	b, err := json.Marshal(v.ToAny())
	if err != nil {
		return fmt.Sprintf("<unrenderable %s>", v.kind)
	}
	return string(b)
}

// FromJSON decodes a JSON document into a Value. Integral numbers stay
// integers; objects are not part of the value model and are rejected.
func FromJSON(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Value{}, fmt.Errorf("invalid json value: %w", err)
	}
	return fromAny(doc)
}

func fromAny(doc any) (Value, error) {
	switch t := doc.(type) {
	case nil:
		return Nil(), nil
	case bool:
		return NewBool(t), nil
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return NewInt(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NewFloat(f), nil
	case string:
		return NewStr(t), nil
	case []any:
		seq := make([]Value, 0, len(t))
		for _, e := range t {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			seq = append(seq, v)
		}
		return NewSeq(seq), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", doc)
	}
}

// ParseActual interprets raw program output as a Value, using the expected
// value as a type hint. Guest languages render the same logical result in
// different textual shapes; the hint decides which parses are attempted.
// Output that cannot be read as the expected type yields an error, never a
// silently coerced value.
func ParseActual(raw string, hint Value) (Value, error) {
	raw = strings.TrimSpace(raw)

	// A string expectation takes the text verbatim; a quoted JSON string
	// is unwrapped so "BANC" and `"BANC"` both read as BANC.
	if hint.kind == Str {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return NewStr(s), nil
		}
		return NewStr(raw), nil
	}

	if v, err := FromJSON([]byte(raw)); err == nil {
		return coerceToHint(v, hint)
	}
	return parseByHint(raw, hint)
}

// coerceToHint reconciles well-formed values with the expectation where the
// rendering is unambiguous: compiled guests print booleans as 0/1.
func coerceToHint(v Value, hint Value) (Value, error) {
	if hint.kind == Bool && v.kind == Int && (v.i == 0 || v.i == 1) {
		return NewBool(v.i == 1), nil
	}
	if hint.kind == Seq && v.kind != Seq {
		return Value{}, fmt.Errorf("expected a sequence, got %s", v.kind)
	}
	return v, nil
}

func parseByHint(raw string, hint Value) (Value, error) {
	switch hint.kind {
	case Null:
		switch raw {
		case "", "null", "nil", "None", "undefined":
			return Nil(), nil
		}
		return Value{}, fmt.Errorf("cannot read %q as null", raw)
	case Bool:
		switch strings.ToLower(raw) {
		case "true", "1":
			return NewBool(true), nil
		case "false", "0":
			return NewBool(false), nil
		}
		return Value{}, fmt.Errorf("cannot read %q as bool", raw)
	case Int, Float:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return NewInt(i), nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("cannot read %q as a number", raw)
		}
		return NewFloat(f), nil
	case Seq:
		return parseSeq(raw, hint)
	}
	return Value{}, fmt.Errorf("cannot read %q as %s", raw, hint.kind)
}

// parseSeq reads a loosely formatted sequence rendering such as
// "[1, 2, 3]" or "[[1,6],[8,10]]", guided by the hint's element types.
func parseSeq(raw string, hint Value) (Value, error) {
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return Value{}, fmt.Errorf("cannot read %q as a sequence", raw)
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return NewSeq(nil), nil
	}

	parts, err := splitTopLevel(inner)
	if err != nil {
		return Value{}, err
	}
	seq := make([]Value, 0, len(parts))
	for i, part := range parts {
		elemHint := hintElem(hint, i)
		v, err := ParseActual(part, elemHint)
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		seq = append(seq, v)
	}
	return NewSeq(seq), nil
}

// hintElem picks the type hint for element i of a sequence expectation,
// falling back to the last known element for ragged lengths.
func hintElem(hint Value, i int) Value {
	if hint.kind != Seq || len(hint.seq) == 0 {
		return NewStr("")
	}
	if i < len(hint.seq) {
		return hint.seq[i]
	}
	return hint.seq[len(hint.seq)-1]
}

func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth := 0
	inStr := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 || inStr {
		return nil, fmt.Errorf("unbalanced brackets in %q", s)
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts, nil
}
