package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ValueKind names the type carried by a Value.
type ValueKind string

const (
	KindBool   ValueKind = "bool"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindString ValueKind = "string"
	KindColor  ValueKind = "color"
	KindEnum   ValueKind = "enum"
)

// ParseValueKind normalizes a kind name.
func ParseValueKind(raw string) (ValueKind, bool) {
	kind := ValueKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case KindBool, KindInt, KindFloat, KindString, KindColor, KindEnum:
		return kind, true
	}
	return "", false
}

// Color is an RGBA property value.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Value is a typed property value. Only the field matching Kind is
// meaningful.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	Float  float64
	String string
	Color  Color
	// Enum holds the selected variant name.
	Enum string
}

// Bool builds a bool value.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// Int builds an int value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Float builds a float value.
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// String builds a string value.
func String(v string) Value { return Value{Kind: KindString, String: v} }

// RGBA builds a color value.
func RGBA(r, g, b, a uint8) Value {
	return Value{Kind: KindColor, Color: Color{R: r, G: g, B: b, A: a}}
}

// Enum builds an enum value holding variant.
func Enum(variant string) Value { return Value{Kind: KindEnum, Enum: variant} }

// IsZero reports whether the value carries no kind at all.
func (v Value) IsZero() bool {
	return v.Kind == ""
}

// Number returns the numeric reading of an int or float value.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

// Integer returns the integer reading of a numeric value. Floats truncate
// toward zero and saturate at the int range; non-finite floats do not
// convert.
func (v Value) Integer() (int, bool) {
	switch v.Kind {
	case KindInt:
		switch {
		case v.Int > math.MaxInt:
			return math.MaxInt, true
		case v.Int < math.MinInt:
			return math.MinInt, true
		}
		return int(v.Int), true
	case KindFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return 0, false
		}
		f := math.Trunc(v.Float)
		switch {
		case f >= math.MaxInt:
			return math.MaxInt, true
		case f <= math.MinInt:
			return math.MinInt, true
		}
		return int(f), true
	}
	return 0, false
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.String == other.String
	case KindColor:
		return v.Color == other.Color
	case KindEnum:
		return v.Enum == other.Enum
	}
	return true
}

// Compare orders two values. Numbers compare across int and float; strings
// and enums compare lexically; bools and colors only support equality and
// report ok=false when unequal.
func (v Value) Compare(other Value) (cmp int, ok bool) {
	if a, aok := v.Number(); aok {
		b, bok := other.Number()
		if !bok {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	}
	if v.Kind != other.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindString:
		return strings.Compare(v.String, other.String), true
	case KindEnum:
		return strings.Compare(v.Enum, other.Enum), true
	}
	if v.Equal(other) {
		return 0, true
	}
	return 0, false
}

// Display renders the value for explanations and logs.
func (v Value) Display() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return fmt.Sprintf("%q", v.String)
	case KindColor:
		return fmt.Sprintf("#%02x%02x%02x%02x", v.Color.R, v.Color.G, v.Color.B, v.Color.A)
	case KindEnum:
		return v.Enum
	}
	return "<unset>"
}

type valueJSON struct {
	Kind   ValueKind `json:"kind"`
	Bool   *bool     `json:"bool,omitempty"`
	Int    *int64    `json:"int,omitempty"`
	Float  *float64  `json:"float,omitempty"`
	String *string   `json:"string,omitempty"`
	Color  *Color    `json:"color,omitempty"`
	Enum   *string   `json:"enum,omitempty"`
}

// MarshalJSON encodes the value as {"kind": ..., "<kind>": payload}.
func (v Value) MarshalJSON() ([]byte, error) {
	doc := valueJSON{Kind: v.Kind}
	switch v.Kind {
	case KindBool:
		doc.Bool = &v.Bool
	case KindInt:
		doc.Int = &v.Int
	case KindFloat:
		doc.Float = &v.Float
	case KindString:
		doc.String = &v.String
	case KindColor:
		doc.Color = &v.Color
	case KindEnum:
		doc.Enum = &v.Enum
	case "":
	default:
		return nil, fmt.Errorf("unknown value kind %q", v.Kind)
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes the MarshalJSON form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var doc valueJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	out := Value{Kind: doc.Kind}
	switch doc.Kind {
	case KindBool:
		if doc.Bool != nil {
			out.Bool = *doc.Bool
		}
	case KindInt:
		if doc.Int != nil {
			out.Int = *doc.Int
		}
	case KindFloat:
		if doc.Float != nil {
			out.Float = *doc.Float
		}
	case KindString:
		if doc.String != nil {
			out.String = *doc.String
		}
	case KindColor:
		if doc.Color != nil {
			out.Color = *doc.Color
		}
	case KindEnum:
		if doc.Enum != nil {
			out.Enum = *doc.Enum
		}
	case "":
	default:
		return fmt.Errorf("unknown value kind %q", doc.Kind)
	}
	*v = out
	return nil
}
