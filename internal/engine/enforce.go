package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by the enforcement wrapper.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
	Offset  int64
	Params  map[string]any
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives non-fatal issues (duplicate keys in DupWarn mode).
	IssueSink func(SimpleIssue)
}

// WrapWithEnforcement returns a TokenSource that enforces duplicate key policy,
// maximum nesting depth, and maximum consumed bytes. Paths are tracked per
// document and reset when a top-level value completes.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type frame struct {
	kind      containerKind
	path      string
	keys      map[string]Token // first occurrence of each key
	nextIndex int
	key       string // key whose value is pending; "" between pairs
	inValue   bool
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []frame
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		path := e.valuePath()
		kind := kindArray
		if tok.Kind == KindBeginObject {
			kind = kindObject
		}
		e.stack = append(e.stack, frame{kind: kind, path: path, keys: make(map[string]Token)})
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			return Token{}, e.fail(SimpleIssue{Code: "max_depth", Path: path, Message: "max depth exceeded",
				Params: map[string]any{"max": e.opt.MaxDepth}})
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
		e.valueDone()
	case KindKey:
		if n := len(e.stack); n > 0 && e.stack[n-1].kind == kindObject {
			top := &e.stack[n-1]
			if first, dup := top.keys[tok.String]; dup && e.opt.OnDuplicate != DupIgnore {
				si := duplicateIssue(joinJSONPointer(top.path, tok.String), tok, first)
				if e.opt.OnDuplicate == DupError {
					return Token{}, e.fail(si)
				}
				if e.opt.IssueSink != nil {
					e.opt.IssueSink(si)
				}
			} else if !dup {
				top.keys[tok.String] = tok
			}
			top.key = tok.String
			top.inValue = true
		}
	default:
		e.valuePath()
		e.valueDone()
	}

	if e.opt.MaxBytes > 0 {
		if off := e.Location(); off > e.opt.MaxBytes {
			return Token{}, e.fail(SimpleIssue{Code: "truncated", Path: e.currentPath(), Message: "max bytes exceeded",
				Params: map[string]any{"max": e.opt.MaxBytes}})
		}
	}
	return tok, nil
}

func (e *enforcingTokenSource) Location() int64 { return e.inner.Location() }

func (e *enforcingTokenSource) fail(si SimpleIssue) error {
	si.Offset = e.Location()
	return IssueError{si}
}

// valuePath returns the pointer of the value token being read, advancing the
// array index of the enclosing sequence.
func (e *enforcingTokenSource) valuePath() string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := &e.stack[n-1]
	if top.kind == kindArray {
		p := joinJSONPointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	return joinJSONPointer(top.path, top.key)
}

// currentPath is the pointer of the innermost open position, without side effects.
func (e *enforcingTokenSource) currentPath() string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := e.stack[n-1]
	if top.kind == kindObject && top.inValue {
		return joinJSONPointer(top.path, top.key)
	}
	return top.path
}

func (e *enforcingTokenSource) valueDone() {
	if n := len(e.stack); n > 0 && e.stack[n-1].kind == kindObject {
		e.stack[n-1].key = ""
		e.stack[n-1].inValue = false
	}
}

func duplicateIssue(path string, tok, first Token) SimpleIssue {
	si := SimpleIssue{Code: "duplicate_key", Path: path, Message: "key '" + tok.String + "' duplicated"}
	if tok.Line > 0 {
		si.Message = fmt.Sprintf("key '%s' duplicated at %d:%d (first at %d:%d)", tok.String, tok.Line, tok.Col, first.Line, first.Col)
		si.Params = map[string]any{"line": tok.Line, "col": tok.Col, "first_line": first.Line, "first_col": first.Col}
	}
	return si
}

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func joinJSONPointer(base, token string) string {
	return base + "/" + jsonPointerEscaper.Replace(token)
}
