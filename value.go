package goverlay

import (
	"math"
	"strconv"
)

// Kind classifies a Go value into the JSON-like value model.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindMapping
	KindSequence
	KindUnknown // Any other Go type; merged as an opaque scalar.
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// numberText is satisfied by json.Number and go-json's Number.
type numberText interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

// KindOf reports the kind of v. Only map[string]any and []any are containers.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case string:
		return KindString
	case map[string]any:
		return KindMapping
	case []any:
		return KindSequence
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, numberText:
		return KindNumber
	default:
		return KindUnknown
	}
}

// Identity canonicalises an identity-field value so that equal identities
// compare equal as map keys. Strings and bools are kept; numbers become int64
// when integral and in range, float64 otherwise. Nulls, containers and other
// types are not identities.
func Identity(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return t, true
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return canonicalUint(uint64(t)), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return canonicalUint(t), true
	case float32:
		return canonicalFloat(float64(t))
	case float64:
		return canonicalFloat(t)
	case numberText:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil {
			return canonicalFloat(f)
		}
		return nil, false
	default:
		return nil, false
	}
}

func canonicalUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return float64(u)
}

func canonicalFloat(f float64) (any, bool) {
	if math.IsNaN(f) {
		// NaN never equals itself; it cannot identify anything.
		return nil, false
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), true
	}
	return f, true
}

// toInt converts an integral number of any supported representation to int.
func toInt(v any) (int, bool) {
	id, ok := Identity(v)
	if !ok || KindOf(v) != KindNumber {
		return 0, false
	}
	i, ok := id.(int64)
	if !ok || i < math.MinInt || i > math.MaxInt {
		return 0, false
	}
	return int(i), true
}

// describe renders a short type description for issue messages.
func describe(v any) string {
	k := KindOf(v)
	if k == KindNumber {
		if id, ok := Identity(v); ok {
			if i, isInt := id.(int64); isInt {
				return "number " + strconv.FormatInt(i, 10)
			}
		}
	}
	return k.String()
}
