package goverlay

import (
	"fmt"
	"sort"
)

// TreeKind tags the shape of a PolicyTree node.
type TreeKind int

const (
	TreeLeaf     TreeKind = iota // Policy only.
	TreeMapping                  // Sub-trees by mapping key.
	TreeSequence                 // Sub-trees by element identity, position or default.
)

func (k TreeKind) String() string {
	switch k {
	case TreeLeaf:
		return "leaf"
	case TreeMapping:
		return "mapping"
	case TreeSequence:
		return "sequence"
	default:
		return fmt.Sprintf("TreeKind(%d)", int(k))
	}
}

// PolicyTree associates a Policy with a path and, depending on Kind, with the
// paths below it. Trees are immutable once built; resolution returns copies.
type PolicyTree struct {
	Kind   TreeKind
	Policy Policy

	// TreeMapping
	Fields map[string]*PolicyTree

	// TreeSequence. IDs is the single identity table consulted by every
	// lookup path; its keys are canonical identities (see Identity).
	IDs     map[any]*PolicyTree
	Index   []*PolicyTree
	Default *PolicyTree
}

// LeafTree returns a tree carrying only a policy.
func LeafTree(p Policy) *PolicyTree { return &PolicyTree{Kind: TreeLeaf, Policy: p} }

// MappingTree returns a tree governing the given mapping keys.
func MappingTree(p Policy, fields map[string]*PolicyTree) *PolicyTree {
	return &PolicyTree{Kind: TreeMapping, Policy: p, Fields: fields}
}

// SequenceOpt configures the element sub-trees of a SequenceTree.
type SequenceOpt struct {
	// IDs maps raw identity values to sub-trees. Keys are canonicalised with
	// Identity; keys that are not valid identities are dropped.
	IDs     map[any]*PolicyTree
	Index   []*PolicyTree
	Default *PolicyTree
}

// SequenceTree returns a tree governing sequence elements.
func SequenceTree(p Policy, opt SequenceOpt) *PolicyTree {
	t := &PolicyTree{Kind: TreeSequence, Policy: p, Index: opt.Index, Default: opt.Default}
	if len(opt.IDs) > 0 {
		t.IDs = make(map[any]*PolicyTree, len(opt.IDs))
		for raw, sub := range opt.IDs {
			if id, ok := Identity(raw); ok {
				t.IDs[id] = sub
			}
		}
	}
	return t
}

// ResolveKey returns the tree governing the child at key with its policy
// overlaid on t's, and whether t declares a dedicated sub-tree for key.
func (t *PolicyTree) ResolveKey(key string) (*PolicyTree, bool) {
	if t == nil {
		return LeafTree(Policy{}), false
	}
	switch t.Kind {
	case TreeMapping:
		if sub, ok := t.Fields[key]; ok && sub != nil {
			return sub.inherit(t.Policy), true
		}
	case TreeLeaf, TreeSequence:
	}
	return LeafTree(Policy{}.Overlay(t.Policy)), false
}

// ResolveID returns the tree governing a sequence element. id is the
// element's canonical identity (hasID false when it has none); index is its
// position (negative when unknown). Evaluation order: the default when neither
// id nor index is known, then the identity table, then the positional list,
// then the default for any element without identity.
func (t *PolicyTree) ResolveID(id any, hasID bool, index int) (*PolicyTree, bool) {
	if t == nil {
		return LeafTree(Policy{}), false
	}
	switch t.Kind {
	case TreeSequence:
		if t.Default != nil && !hasID && index < 0 {
			return t.Default.inherit(t.Policy), true
		}
		if hasID {
			if sub, ok := t.IDs[id]; ok && sub != nil {
				return sub.inherit(t.Policy), true
			}
		}
		if index >= 0 && index < len(t.Index) && t.Index[index] != nil {
			return t.Index[index].inherit(t.Policy), true
		}
		if t.Default != nil && !hasID {
			return t.Default.inherit(t.Policy), true
		}
	case TreeLeaf, TreeMapping:
	}
	return LeafTree(Policy{}.Overlay(t.Policy)), false
}

// inherit returns a shallow copy of t whose policy is overlaid on parent.
func (t *PolicyTree) inherit(parent Policy) *PolicyTree {
	cp := *t
	cp.Policy = t.Policy.Overlay(parent)
	return &cp
}

// withPolicy returns a shallow copy of t (or a leaf) with policy p.
func (t *PolicyTree) withPolicy(p Policy) *PolicyTree {
	if t == nil {
		return LeafTree(p)
	}
	cp := *t
	cp.Policy = p
	return &cp
}

// Describe renders the tree as plain values, suitable for JSON or YAML output.
func (t *PolicyTree) Describe() map[string]any {
	if t == nil {
		return nil
	}
	m := t.Policy.describe()
	switch t.Kind {
	case TreeMapping:
		if len(t.Fields) > 0 {
			fields := make(map[string]any, len(t.Fields))
			for k, sub := range t.Fields {
				fields[k] = sub.Describe()
			}
			m["keys"] = fields
		}
	case TreeSequence:
		if len(t.IDs) > 0 {
			ids := make(map[string]any, len(t.IDs))
			for id, sub := range t.IDs {
				ids[fmt.Sprint(id)] = sub.Describe()
			}
			m["ids"] = ids
		}
		if len(t.Index) > 0 {
			index := make([]any, len(t.Index))
			for i, sub := range t.Index {
				if sub != nil {
					index[i] = sub.Describe()
				}
			}
			m["index"] = index
		}
		if t.Default != nil {
			m["default"] = t.Default.Describe()
		}
	case TreeLeaf:
	}
	return m
}

func (t *PolicyTree) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TreeMapping:
		keys := make([]string, 0, len(t.Fields))
		for k := range t.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("mapping%s%v", t.Policy, keys)
	case TreeSequence:
		return fmt.Sprintf("sequence%s{ids:%d index:%d default:%t}", t.Policy, len(t.IDs), len(t.Index), t.Default != nil)
	default:
		return "leaf" + t.Policy.String()
	}
}
