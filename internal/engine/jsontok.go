package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

// jsonSource tokenizes JSON with go-json. Concatenated top-level values are
// yielded as successive documents.
//
// go-json's Token skips ',' and ':' without checking where they appear, so
// each top-level value is first read raw and checked with a strict decode.
// Tokens are then taken from the checked bytes.
type jsonSource struct {
	top   *j.Decoder
	in    *countingReader
	doc   *j.Decoder // tokenizer of the current document; nil between documents
	stack []jsonFrame
}

type jsonFrame struct {
	kind         containerKind
	expectingKey bool
}

// NewJSONReader wraps an io.Reader into a TokenSource for JSON.
func NewJSONReader(r io.Reader) TokenSource {
	in := &countingReader{r: r}
	return &jsonSource{top: j.NewDecoder(in), in: in}
}

// NewJSONBytes wraps a byte slice into a TokenSource for JSON.
func NewJSONBytes(b []byte) TokenSource { return NewJSONReader(bytes.NewReader(b)) }

func (s *jsonSource) NextToken() (Token, error) {
	if s.doc == nil {
		raw, err := s.nextDocument()
		if err != nil {
			return Token{}, err
		}
		s.doc = j.NewDecoder(bytes.NewReader(raw))
		s.doc.UseNumber()
	}
	tok, err := s.doc.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// a checked document always closes its containers
			return Token{}, io.ErrUnexpectedEOF
		}
		return Token{}, err
	}
	out := s.convert(tok)
	if len(s.stack) == 0 {
		s.doc = nil
	}
	return out, nil
}

// nextDocument reads the raw bytes of the next top-level value and rejects
// it unless it is well-formed JSON.
func (s *jsonSource) nextDocument() (j.RawMessage, error) {
	// Decode skips a leading separator and scans past stray bytes, so the
	// first byte of the value is checked here.
	s.top.More()
	if c := peekByte(s.top.Buffered()); c != 0 && !strings.ContainsRune(valueStart, rune(c)) {
		return nil, fmt.Errorf("json: invalid character '%c' looking for beginning of value", c)
	}
	var raw j.RawMessage
	if err := s.top.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, syntaxErr(err)
	}
	var v any
	check := j.NewDecoder(bytes.NewReader(raw))
	check.UseNumber()
	if err := check.Decode(&v); err != nil {
		// raw holds a complete value, so nothing here is cut short
		return nil, fmt.Errorf("malformed JSON value: %w", err)
	}
	return raw, nil
}

// syntaxErr marks go-json's end-of-input errors while scanning for the end
// of a value as io.ErrUnexpectedEOF, so cut-short input is told apart from
// malformed input.
func syntaxErr(err error) error {
	var se *j.SyntaxError
	if errors.As(err, &se) && strings.Contains(se.Error(), "unexpected end of JSON input") {
		return fmt.Errorf("%w: %s", io.ErrUnexpectedEOF, se.Error())
	}
	return err
}

const valueStart = `{["-0123456789tfn`

func peekByte(r io.Reader) byte {
	var b [1]byte
	if n, _ := r.Read(b[:]); n == 1 {
		return b[0]
	}
	return 0
}

func (s *jsonSource) convert(tok j.Token) Token {
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, jsonFrame{kind: kindObject, expectingKey: true})
			return Token{Kind: KindBeginObject, Offset: -1}
		case '[':
			s.stack = append(s.stack, jsonFrame{kind: kindArray})
			return Token{Kind: KindBeginArray, Offset: -1}
		case '}':
			s.pop()
			return Token{Kind: KindEndObject, Offset: -1}
		default:
			s.pop()
			return Token{Kind: KindEndArray, Offset: -1}
		}
	case string:
		if n := len(s.stack); n > 0 && s.stack[n-1].kind == kindObject && s.stack[n-1].expectingKey {
			s.stack[n-1].expectingKey = false
			return Token{Kind: KindKey, String: v, Offset: -1}
		}
		s.valueDone()
		return Token{Kind: KindString, String: v, Offset: -1}
	case bool:
		s.valueDone()
		return Token{Kind: KindBool, Bool: v, Offset: -1}
	case j.Number:
		s.valueDone()
		return Token{Kind: KindNumber, Number: string(v), Offset: -1}
	case float64:
		s.valueDone()
		return Token{Kind: KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: -1}
	default:
		s.valueDone()
		return Token{Kind: KindNull, Offset: -1}
	}
}

// Location reports how many bytes have been read from the input. Whole
// top-level values are read before their first token, so this is an upper
// bound on the parsed position.
func (s *jsonSource) Location() int64 { return s.in.n }

func (s *jsonSource) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

// valueDone marks the pending value of the enclosing object as consumed.
func (s *jsonSource) valueDone() {
	if n := len(s.stack); n > 0 && s.stack[n-1].kind == kindObject {
		s.stack[n-1].expectingKey = true
	}
}
