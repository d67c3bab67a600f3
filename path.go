package goverlay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/goverlay/i18n"
)

// PathRef builds JSON Pointer paths in a chain-safe way and creates Issues.
type PathRef interface {
	Field(name string) PathRef
	Index(i int) PathRef
	Pointer() string
	Issue(code, msg string, kv ...any) Issue
}

// RootPath returns the PathRef of a document root.
func RootPath() PathRef { return (*pathRef)(nil) }

// pathRef is a parent-linked segment list; a nil *pathRef is the root. Segments
// are stored escaped so that Pointer only has to join them.
type pathRef struct {
	parent *pathRef
	seg    string
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func (p *pathRef) Field(name string) PathRef {
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	return &pathRef{parent: p, seg: pointerEscaper.Replace(name)}
}

func (p *pathRef) Index(i int) PathRef {
	return &pathRef{parent: p, seg: strconv.Itoa(i)}
}

func (p *pathRef) Pointer() string {
	if p == nil {
		return "/"
	}
	var parts []string
	for cur := p; cur != nil; cur = cur.parent {
		parts = append(parts, cur.seg)
	}
	b := &strings.Builder{}
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

func (p *pathRef) Issue(code, msg string, kv ...any) Issue {
	var m map[string]any
	if len(kv) > 1 {
		m = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	return Issue{Path: p.Pointer(), Code: code, Message: i18n.Detail(code, msg), Params: m, Offset: -1}
}

// IssueAt creates an Issue at the given path with provided code, message and params map.
func IssueAt(p PathRef, code, msg string, params map[string]any) Issue {
	return Issue{Path: p.Pointer(), Code: code, Message: i18n.Detail(code, msg), Params: params, Offset: -1}
}
