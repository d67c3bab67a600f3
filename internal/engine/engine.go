package engine

import (
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

var kindNames = [...]string{
	KindBeginObject: "object start",
	KindEndObject:   "object end",
	KindBeginArray:  "array start",
	KindEndArray:    "array end",
	KindKey:         "key",
	KindString:      "string",
	KindNumber:      "number",
	KindBool:        "bool",
	KindNull:        "null",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Token represents a streaming token. Offset is the approximate input offset
// (-1 when unknown); Line and Col are 1-based positions for sources that
// track them (0 otherwise).
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
	Line   int
	Col    int
}

// TokenSource is a minimal interface required by the engine. A source may
// hold several documents back to back; io.EOF is returned after the last.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// NumberMode selects the Go representation of decoded numbers.
type NumberMode int

const (
	NumberNative     NumberMode = iota // int64 when integral, float64 otherwise.
	NumberFloat64                      // Always float64.
	NumberJSONNumber                   // go-json Number, text preserved.
)

// Decode builds one document from src. It returns io.EOF when src holds no
// further documents.
func Decode(src TokenSource, mode NumberMode) (any, error) {
	tok, err := src.NextToken()
	if err != nil {
		return nil, err
	}
	d := decoder{src: src, conv: converter(mode)}
	return d.value(tok)
}

type numberConv func(string) (any, error)

func converter(mode NumberMode) numberConv {
	switch mode {
	case NumberFloat64:
		return func(s string) (any, error) { return strconv.ParseFloat(s, 64) }
	case NumberJSONNumber:
		return func(s string) (any, error) { return j.Number(s), nil }
	default:
		return func(s string) (any, error) {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			return strconv.ParseFloat(s, 64)
		}
	}
}

type decoder struct {
	src  TokenSource
	conv numberConv
}

func (d decoder) value(tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		return d.object()
	case KindBeginArray:
		return d.array()
	case KindString:
		return tok.String, nil
	case KindNumber:
		return d.conv(tok.Number)
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected %s where a value was expected", tok.Kind)
	}
}

func (d decoder) object() (any, error) {
	m := make(map[string]any)
	for {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, fmt.Errorf("unexpected %s where a key was expected", tok.Kind)
		}
		vt, err := d.next()
		if err != nil {
			return nil, err
		}
		v, err := d.value(vt)
		if err != nil {
			return nil, err
		}
		m[tok.String] = v
	}
}

func (d decoder) array() (any, error) {
	// never nil: an empty sequence must stay a sequence
	arr := make([]any, 0)
	for {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		v, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

// next reads inside a container, where EOF means the input was cut short.
func (d decoder) next() (Token, error) {
	tok, err := d.src.NextToken()
	if err == io.EOF {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

// countingReader records how many bytes the wrapped reader has handed out.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
