package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// yamlSource walks yaml.v3 node trees and emits them as tokens, one document
// after the other. Keys keep their line/column so duplicates can be located.
type yamlSource struct {
	dec     *yaml.Decoder
	in      *countingReader
	pending []Token

	// nodes that alias expansion may still add to the current document
	aliasBudget int
	aliasLimit  int
	aliasDepth  int
}

// Alias expansion may add at most aliasRatio times the nodes written out in
// the document, and never less than aliasMinBudget.
const (
	aliasRatio     = 10
	aliasMinBudget = 4096
)

// NewYAMLReader wraps an io.Reader into a TokenSource for a YAML stream.
func NewYAMLReader(r io.Reader) TokenSource {
	in := &countingReader{r: r}
	return &yamlSource{dec: yaml.NewDecoder(in), in: in}
}

// NewYAMLBytes wraps a byte slice into a TokenSource for a YAML stream.
func NewYAMLBytes(b []byte) TokenSource { return NewYAMLReader(bytes.NewReader(b)) }

func (s *yamlSource) NextToken() (Token, error) {
	if len(s.pending) == 0 {
		var root yaml.Node
		if err := s.dec.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				return Token{}, io.EOF
			}
			return Token{}, err
		}
		s.aliasLimit = max(aliasMinBudget, aliasRatio*countNodes(&root))
		s.aliasBudget = s.aliasLimit
		if err := s.emit(&root); err != nil {
			s.pending = nil
			return Token{}, err
		}
		if len(s.pending) == 0 {
			s.pending = append(s.pending, Token{Kind: KindNull, Offset: -1, Line: root.Line, Col: root.Column})
		}
	}
	tok := s.pending[0]
	s.pending = s.pending[1:]
	return tok, nil
}

func (s *yamlSource) Location() int64 { return s.in.n }

func (s *yamlSource) push(k Kind, n *yaml.Node) *Token {
	s.pending = append(s.pending, Token{Kind: k, Offset: -1, Line: n.Line, Col: n.Column})
	return &s.pending[len(s.pending)-1]
}

func (s *yamlSource) emit(n *yaml.Node) error {
	if s.aliasDepth > 0 {
		if s.aliasBudget--; s.aliasBudget < 0 {
			return fmt.Errorf("yaml: aliases expand to more than %d nodes", s.aliasLimit)
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return s.emit(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return fmt.Errorf("yaml: unresolved alias %q at %d:%d", n.Value, n.Line, n.Column)
		}
		s.aliasDepth++
		err := s.emit(n.Alias)
		s.aliasDepth--
		return err
	case yaml.MappingNode:
		s.push(KindBeginObject, n)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind == yaml.AliasNode && k.Alias != nil {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("yaml: unsupported %s key at %d:%d", kindName(k.Kind), k.Line, k.Column)
			}
			s.push(KindKey, k).String = k.Value
			if err := s.emit(n.Content[i+1]); err != nil {
				return err
			}
		}
		s.push(KindEndObject, n)
		return nil
	case yaml.SequenceNode:
		s.push(KindBeginArray, n)
		for _, c := range n.Content {
			if err := s.emit(c); err != nil {
				return err
			}
		}
		s.push(KindEndArray, n)
		return nil
	case yaml.ScalarNode:
		return s.scalar(n)
	default:
		return fmt.Errorf("yaml: unexpected node kind %d at %d:%d", n.Kind, n.Line, n.Column)
	}
}

func (s *yamlSource) scalar(n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		s.push(KindNull, n)
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		s.push(KindBool, n).Bool = b
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// out of int64 range; keep the value as a float
			var f float64
			if ferr := n.Decode(&f); ferr != nil {
				return err
			}
			s.push(KindNumber, n).Number = strconv.FormatFloat(f, 'g', -1, 64)
			return nil
		}
		s.push(KindNumber, n).Number = strconv.FormatInt(i, 10)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		s.push(KindNumber, n).Number = strconv.FormatFloat(f, 'g', -1, 64)
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their text
		s.push(KindString, n).String = n.Value
	}
	return nil
}

// countNodes counts the nodes of the tree without following aliases.
func countNodes(n *yaml.Node) int {
	c := 1
	for _, ch := range n.Content {
		c += countNodes(ch)
	}
	return c
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	default:
		return "non-scalar"
	}
}
