package goverlay

import "sort"

// DefaultMaxDepth is the nesting limit of Merge, MergeValues, MergeNodes and
// MergeAnnotated, and of the loader and the CLI when none is configured.
const DefaultMaxDepth = 1000

// MergeOpt configures MergeWith.
type MergeOpt struct {
	// MaxDepth bounds container nesting in the merged output. 0 means unlimited.
	MaxDepth int
}

// Document is one input of a merge call.
type Document struct {
	Value any
	// Priority orders documents: higher first. A $priority embedded in the
	// document's policy tree takes precedence.
	Priority int
	// Order breaks priority ties (lower first) and must be unique per call.
	Order int
	// Policy is an optional explicit policy tree. nil means all defaults.
	Policy *PolicyTree
}

// Node returns the root node of d. The root policy is the tree's policy with
// priority and order filled from d where the tree leaves them unset.
func (d Document) Node() *Node {
	base := NewPolicy(Priority(d.Priority), Order(d.Order))
	var own Policy
	if d.Policy != nil {
		own = d.Policy.Policy
	}
	return NewNode(d.Policy.withPolicy(own.Overlay(base)), d.Value)
}

// Merge reconciles docs into one value. ok is false when the result is absent.
// Nesting is bounded by DefaultMaxDepth and a deeper result is absent; use
// MergeWith to get the max_depth issue or to change the limit.
//
// Document values are walked when their nodes are built, before the limit
// applies, so they should come from a bounded source such as Decode with
// DecodeOpt.MaxDepth set.
func Merge(docs ...Document) (any, bool) {
	v, ok, _ := MergeWith(MergeOpt{MaxDepth: DefaultMaxDepth}, docs...)
	return v, ok
}

// MergeWith is Merge with options. The error is an Issues value.
func MergeWith(opt MergeOpt, docs ...Document) (any, bool, error) {
	nodes := make([]*Node, len(docs))
	for i, d := range docs {
		nodes[i] = d.Node()
	}
	m := &merger{maxDepth: opt.MaxDepth}
	v, ok := m.merge(nodes, RootPath(), 0)
	if m.issues != nil {
		return nil, false, m.issues
	}
	return v, ok, nil
}

// MergeValues merges plain values with default policies, ordered by position.
func MergeValues(values ...any) (any, bool) {
	docs := make([]Document, len(values))
	for i, v := range values {
		docs[i] = Document{Value: v, Order: i}
	}
	return Merge(docs...)
}

// MergeNodes reconciles already-built nodes. nil entries are ignored. Nesting
// is bounded by DefaultMaxDepth as in Merge.
func MergeNodes(nodes ...*Node) (any, bool) {
	m := &merger{maxDepth: DefaultMaxDepth}
	return m.merge(nodes, RootPath(), 0)
}

type merger struct {
	maxDepth int
	issues   Issues
}

// merge runs one level of the algorithm. depth counts the containers
// enclosing path.
func (m *merger) merge(nodes []*Node, path PathRef, depth int) (any, bool) {
	sorted := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			sorted = append(sorted, n)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].tree.Policy.Less(sorted[j].tree.Policy)
	})
	for _, n := range sorted {
		if n.willingToDrive() {
			return m.mergeOrdered(n, sorted, path, depth)
		}
	}
	return nil, false
}

func (m *merger) mergeOrdered(driver *Node, sorted []*Node, path PathRef, depth int) (any, bool) {
	switch driver.kind {
	case NodeMapping:
		if !m.enter(path, depth) {
			return nil, false
		}
		return m.mergeMapping(driver, sorted, path, depth+1)
	case NodeSequence:
		if !m.enter(path, depth) {
			return nil, false
		}
		return m.mergeSequence(driver, sorted, path, depth+1)
	case NodeScalar:
		// The first willing scalar wins outright; terminal has no effect here.
		return driver.scalar, true
	default:
		return nil, false
	}
}

// enter reports whether a container may be opened below depth, recording a
// max_depth issue otherwise.
func (m *merger) enter(path PathRef, depth int) bool {
	if m.issues != nil {
		return false
	}
	if m.maxDepth > 0 && depth+1 > m.maxDepth {
		m.issues = AppendIssues(m.issues, path.Issue(CodeMaxDepth, "maximum nesting depth exceeded", "max", m.maxDepth))
		return false
	}
	return true
}

// mergeMapping merges the children at every visible key. A child that merges
// to null is kept only when the contributing node allows null, the same as an
// absent child.
func (m *merger) mergeMapping(driver *Node, sorted []*Node, path PathRef, depth int) (any, bool) {
	result := make(map[string]any)
	seen := make(map[string]struct{})
	for _, doc := range sorted {
		for _, key := range doc.keys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			children := make([]*Node, 0, len(sorted))
			for _, other := range sorted {
				children = append(children, other.childByKey(key))
			}
			v, ok := m.merge(children, path.Field(key), depth)
			if (ok && v != nil) || doc.tree.Policy.IsAllowNone() {
				result[key] = v
			}
		}
		if doc.tree.Policy.IsTerminal() {
			break
		}
	}
	if m.issues != nil {
		return nil, false
	}
	if len(result) > 0 || driver.tree.Policy.IsAllowEmpty() {
		return result, true
	}
	return nil, false
}

func (m *merger) mergeSequence(driver *Node, sorted []*Node, path PathRef, depth int) (any, bool) {
	result := make([]any, 0)
	seen := make(map[any]struct{})
	for i, doc := range sorted {
		for pos, el := range doc.elements {
			if el.hasID {
				if _, ok := seen[el.id]; ok {
					continue
				}
				seen[el.id] = struct{}{}
			}
			participants := make([]*Node, 0, len(sorted))
			participants = append(participants, el.node)
			for j, other := range sorted {
				if j != i {
					participants = append(participants, other.childByID(el.id, el.hasID))
				}
			}
			v, ok := m.merge(participants, path.Index(pos), depth)
			if (ok && v != nil) || doc.tree.Policy.IsAllowNone() {
				result = append(result, v)
			}
		}
		if doc.tree.Policy.IsTerminal() {
			break
		}
	}
	if m.issues != nil {
		return nil, false
	}
	if len(result) > 0 || driver.tree.Policy.IsAllowEmpty() {
		return result, true
	}
	return nil, false
}
