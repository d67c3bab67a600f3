package goverlay

import (
	"fmt"
	"strings"
)

const (
	// DefaultExcludedPrefix marks keys that never appear in merged output.
	DefaultExcludedPrefix = "$"
	// DefaultIDKey is the mapping key that identifies sequence elements.
	DefaultIDKey = "$id"
)

type policyField uint8

const (
	fieldPriority policyField = 1 << iota
	fieldOrder
	fieldTerminal
	fieldAllowNone
	fieldAllowEmpty
	fieldExcludedPrefix
	fieldIDKey
)

// Policy is the merge configuration of one path. Every field is optional:
// unset fields are filled from ancestors by Overlay and otherwise read as
// their zero default. Policy is an immutable value; the With* builders
// return modified copies.
type Policy struct {
	set            policyField
	priority       int
	order          int
	terminal       bool
	allowNone      bool
	allowEmpty     bool
	excludedPrefix string
	idKey          string
}

// NewPolicy is shorthand for Policy{} followed by the given options.
func NewPolicy(opts ...func(Policy) Policy) Policy {
	var p Policy
	for _, o := range opts {
		p = o(p)
	}
	return p
}

// Priority orders documents: higher first.
func Priority(n int) func(Policy) Policy { return func(p Policy) Policy { return p.WithPriority(n) } }

// Order breaks priority ties: lower first. It must be unique per merge call.
func Order(n int) func(Policy) Policy { return func(p Policy) Policy { return p.WithOrder(n) } }

// Terminal stops lower-priority documents from contributing unseen keys/ids.
func Terminal(b bool) func(Policy) Policy { return func(p Policy) Policy { return p.WithTerminal(b) } }

// AllowNone keeps explicit nulls (and absent children) as null.
func AllowNone(b bool) func(Policy) Policy { return func(p Policy) Policy { return p.WithAllowNone(b) } }

// AllowEmpty keeps empty mappings and sequences instead of collapsing them.
func AllowEmpty(b bool) func(Policy) Policy { return func(p Policy) Policy { return p.WithAllowEmpty(b) } }

func (p Policy) WithPriority(n int) Policy {
	p.priority = n
	p.set |= fieldPriority
	return p
}

func (p Policy) WithOrder(n int) Policy {
	p.order = n
	p.set |= fieldOrder
	return p
}

func (p Policy) WithTerminal(b bool) Policy {
	p.terminal = b
	p.set |= fieldTerminal
	return p
}

func (p Policy) WithAllowNone(b bool) Policy {
	p.allowNone = b
	p.set |= fieldAllowNone
	return p
}

func (p Policy) WithAllowEmpty(b bool) Policy {
	p.allowEmpty = b
	p.set |= fieldAllowEmpty
	return p
}

// WithExcludedPrefix sets the prefix of hidden keys. An empty prefix hides nothing.
func (p Policy) WithExcludedPrefix(s string) Policy {
	p.excludedPrefix = s
	p.set |= fieldExcludedPrefix
	return p
}

// WithIDKey sets the mapping key used as sequence element identity.
func (p Policy) WithIDKey(s string) Policy {
	p.idKey = s
	p.set |= fieldIDKey
	return p
}

func (p Policy) Priority() int      { return p.priority }
func (p Policy) Order() int         { return p.order }
func (p Policy) IsTerminal() bool   { return p.terminal }
func (p Policy) IsAllowNone() bool  { return p.allowNone }
func (p Policy) IsAllowEmpty() bool { return p.allowEmpty }

func (p Policy) ExcludedPrefix() string {
	if p.set&fieldExcludedPrefix == 0 {
		return DefaultExcludedPrefix
	}
	return p.excludedPrefix
}

func (p Policy) IDKey() string {
	if p.set&fieldIDKey == 0 {
		return DefaultIDKey
	}
	return p.idKey
}

// IsZero reports whether no field is set.
func (p Policy) IsZero() bool { return p.set == 0 }

// Overlay returns p with every unset field taken from parent. Fields set on p
// are never overwritten.
func (p Policy) Overlay(parent Policy) Policy {
	missing := parent.set &^ p.set
	if missing == 0 {
		return p
	}
	if missing&fieldPriority != 0 {
		p.priority = parent.priority
	}
	if missing&fieldOrder != 0 {
		p.order = parent.order
	}
	if missing&fieldTerminal != 0 {
		p.terminal = parent.terminal
	}
	if missing&fieldAllowNone != 0 {
		p.allowNone = parent.allowNone
	}
	if missing&fieldAllowEmpty != 0 {
		p.allowEmpty = parent.allowEmpty
	}
	if missing&fieldExcludedPrefix != 0 {
		p.excludedPrefix = parent.excludedPrefix
	}
	if missing&fieldIDKey != 0 {
		p.idKey = parent.idKey
	}
	p.set |= missing
	return p
}

// SortKey returns (-priority, order); ascending sort puts the winning document first.
func (p Policy) SortKey() (int, int) { return -p.priority, p.order }

// Less reports whether p sorts before o.
func (p Policy) Less(o Policy) bool {
	a1, a2 := p.SortKey()
	b1, b2 := o.SortKey()
	if a1 != b1 {
		return a1 < b1
	}
	return a2 < b2
}

// IsValidKey reports whether key is visible in merged output.
func (p Policy) IsValidKey(key string) bool {
	prefix := p.ExcludedPrefix()
	if prefix == "" {
		return true
	}
	return !strings.HasPrefix(key, prefix)
}

// ID returns the canonical identity of a sequence element, if it has one.
func (p Policy) ID(v any) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	raw, ok := m[p.IDKey()]
	if !ok {
		return nil, false
	}
	return Identity(raw)
}

func (p Policy) String() string {
	var parts []string
	if p.set&fieldPriority != 0 {
		parts = append(parts, fmt.Sprintf("priority=%d", p.priority))
	}
	if p.set&fieldOrder != 0 {
		parts = append(parts, fmt.Sprintf("order=%d", p.order))
	}
	if p.set&fieldTerminal != 0 {
		parts = append(parts, fmt.Sprintf("terminal=%t", p.terminal))
	}
	if p.set&fieldAllowNone != 0 {
		parts = append(parts, fmt.Sprintf("allow_none=%t", p.allowNone))
	}
	if p.set&fieldAllowEmpty != 0 {
		parts = append(parts, fmt.Sprintf("allow_empty=%t", p.allowEmpty))
	}
	if p.set&fieldExcludedPrefix != 0 {
		parts = append(parts, fmt.Sprintf("excluded_prefix=%q", p.excludedPrefix))
	}
	if p.set&fieldIDKey != 0 {
		parts = append(parts, fmt.Sprintf("id_key=%q", p.idKey))
	}
	return "Policy{" + strings.Join(parts, " ") + "}"
}

// describe returns the set fields as a plain mapping (used for rendering).
func (p Policy) describe() map[string]any {
	m := map[string]any{}
	if p.set&fieldPriority != 0 {
		m["priority"] = p.priority
	}
	if p.set&fieldOrder != 0 {
		m["order"] = p.order
	}
	if p.set&fieldTerminal != 0 {
		m["terminal"] = p.terminal
	}
	if p.set&fieldAllowNone != 0 {
		m["allow_none"] = p.allowNone
	}
	if p.set&fieldAllowEmpty != 0 {
		m["allow_empty"] = p.allowEmpty
	}
	if p.set&fieldExcludedPrefix != 0 {
		m["excluded_prefix"] = p.excludedPrefix
	}
	if p.set&fieldIDKey != 0 {
		m["id_key"] = p.idKey
	}
	return m
}
