package goverlay

import (
	"fmt"
	"sort"
)

// NodeKind tags the shape of a Node.
type NodeKind int

const (
	NodeScalar NodeKind = iota
	NodeMapping
	NodeSequence
)

func (k NodeKind) String() string {
	switch k {
	case NodeScalar:
		return "scalar"
	case NodeMapping:
		return "mapping"
	case NodeSequence:
		return "sequence"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is one document's value at one path together with the resolved policy
// tree governing it. A placeholder node carries no value: it lets a document
// take part in a merge with its policy alone.
type Node struct {
	kind        NodeKind
	tree        *PolicyTree
	placeholder bool

	scalar   any
	mapping  map[string]any
	keys     []string // visible keys of mapping, sorted
	seq      []any
	elements []element
	byID     map[any]*Node
}

type element struct {
	id    any
	hasID bool
	node  *Node
}

// NewNode classifies value and binds it to tree, whose Policy must already be
// the effective policy at this path. A nil tree means an all-default policy.
func NewNode(tree *PolicyTree, value any) *Node {
	if tree == nil {
		tree = LeafTree(Policy{})
	}
	switch v := value.(type) {
	case map[string]any:
		n := &Node{kind: NodeMapping, tree: tree, mapping: v}
		p := tree.Policy
		n.keys = make([]string, 0, len(v))
		for k := range v {
			if p.IsValidKey(k) {
				n.keys = append(n.keys, k)
			}
		}
		sort.Strings(n.keys)
		return n
	case []any:
		n := &Node{kind: NodeSequence, tree: tree, seq: v}
		n.elements = make([]element, len(v))
		for i, raw := range v {
			id, hasID := tree.Policy.ID(raw)
			sub, _ := tree.ResolveID(id, hasID, i)
			child := NewNode(sub, raw)
			n.elements[i] = element{id: id, hasID: hasID, node: child}
			if hasID {
				if n.byID == nil {
					n.byID = make(map[any]*Node)
				}
				if _, dup := n.byID[id]; !dup {
					n.byID[id] = child
				}
			}
		}
		return n
	default:
		return &Node{kind: NodeScalar, tree: tree, scalar: v}
	}
}

// Placeholder returns a value-less node carrying tree's policy.
func Placeholder(tree *PolicyTree) *Node {
	if tree == nil {
		tree = LeafTree(Policy{})
	}
	return &Node{kind: NodeScalar, tree: tree, placeholder: true}
}

func (n *Node) Kind() NodeKind      { return n.kind }
func (n *Node) Policy() Policy      { return n.tree.Policy }
func (n *Node) Tree() *PolicyTree   { return n.tree }
func (n *Node) IsPlaceholder() bool { return n.placeholder }

// Value returns the raw value bound to n (nil for placeholders).
func (n *Node) Value() any {
	switch n.kind {
	case NodeMapping:
		return n.mapping
	case NodeSequence:
		return n.seq
	default:
		return n.scalar
	}
}

// willingToDrive reports whether n may select the merge routine at its path.
func (n *Node) willingToDrive() bool {
	switch n.kind {
	case NodeMapping, NodeSequence:
		return true
	default:
		return n.scalar != nil || n.tree.Policy.IsAllowNone()
	}
}

// childByKey returns n's participant at key: the concrete child when n is a
// mapping holding key, a placeholder when n's tree declares key, nil otherwise.
func (n *Node) childByKey(key string) *Node {
	sub, matched := n.tree.ResolveKey(key)
	switch n.kind {
	case NodeMapping:
		if v, ok := n.mapping[key]; ok {
			return NewNode(sub, v)
		}
	case NodeScalar, NodeSequence:
	}
	if matched {
		return Placeholder(sub)
	}
	return nil
}

// childByID returns n's participant for a sequence identity: the first
// element carrying id, a placeholder when n's tree declares id (or a default
// for id-less elements), nil otherwise.
func (n *Node) childByID(id any, hasID bool) *Node {
	switch n.kind {
	case NodeSequence:
		if hasID {
			if c, ok := n.byID[id]; ok {
				return c
			}
		}
	case NodeScalar, NodeMapping:
	}
	if sub, matched := n.tree.ResolveID(id, hasID, -1); matched {
		return Placeholder(sub)
	}
	return nil
}

func (n *Node) String() string {
	if n.placeholder {
		return "placeholder" + n.tree.Policy.String()
	}
	return fmt.Sprintf("%s%s", n.kind, n.tree.Policy)
}
