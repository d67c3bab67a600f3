package goverlay

import "sort"

// Reserved control keys recognised by ExtractPolicy.
const (
	KeyPriority   = "$priority"
	KeyTerminal   = "$terminal"
	KeyAllowNone  = "$allow_none"
	KeyAllowEmpty = "$allow_empty"
)

// ExtractPolicy derives a policy tree from the control keys embedded in raw.
// It returns nil when raw carries no control information at all. A control
// key whose value is null is treated as unset. Wrongly typed control values
// are reported as invalid_control issues, all of them at once.
func ExtractPolicy(raw any) (*PolicyTree, error) {
	var x extractor
	t := x.extract(raw, RootPath())
	if len(x.issues) > 0 {
		return nil, x.issues
	}
	return t, nil
}

// AnnotatedDocument pairs raw with the policy tree extracted from it.
func AnnotatedDocument(raw any, order int) (Document, error) {
	t, err := ExtractPolicy(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{Value: raw, Order: order, Policy: t}, nil
}

// MergeAnnotated merges self-describing values ordered by position, with
// nesting bounded by DefaultMaxDepth.
func MergeAnnotated(values ...any) (any, bool, error) {
	docs := make([]Document, 0, len(values))
	var iss Issues
	for i, v := range values {
		d, err := AnnotatedDocument(v, i)
		if err != nil {
			found, ok := AsIssues(err)
			if !ok {
				return nil, false, err
			}
			iss = AppendIssues(iss, found...)
			continue
		}
		docs = append(docs, d)
	}
	if len(iss) > 0 {
		return nil, false, iss
	}
	return MergeWith(MergeOpt{MaxDepth: DefaultMaxDepth}, docs...)
}

type extractor struct {
	issues Issues
}

func (x *extractor) extract(raw any, path PathRef) *PolicyTree {
	switch v := raw.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields map[string]*PolicyTree
		for _, key := range keys {
			if sub := x.extract(v[key], path.Field(key)); sub != nil {
				if fields == nil {
					fields = make(map[string]*PolicyTree)
				}
				fields[key] = sub
			}
		}
		p, declared := x.policy(v, path)
		if !declared && len(fields) == 0 {
			return nil
		}
		return MappingTree(p, fields)
	case []any:
		index := make([]*PolicyTree, len(v))
		for i, el := range v {
			index[i] = x.extract(el, path.Index(i))
		}
		return SequenceTree(Policy{}, SequenceOpt{Index: index})
	default:
		return nil
	}
}

// policy reads the control keys of m. declared reports whether any is present.
func (x *extractor) policy(m map[string]any, path PathRef) (Policy, bool) {
	var p Policy
	declared := false
	if raw, ok := m[KeyPriority]; ok {
		declared = true
		if raw != nil {
			if n, ok := toInt(raw); ok {
				p = p.WithPriority(n)
			} else {
				x.invalid(path.Field(KeyPriority), "expected integer", raw)
			}
		}
	}
	flags := []struct {
		key string
		set func(Policy, bool) Policy
	}{
		{KeyTerminal, Policy.WithTerminal},
		{KeyAllowNone, Policy.WithAllowNone},
		{KeyAllowEmpty, Policy.WithAllowEmpty},
	}
	for _, f := range flags {
		raw, ok := m[f.key]
		if !ok {
			continue
		}
		declared = true
		if raw == nil {
			continue
		}
		b, ok := raw.(bool)
		if !ok {
			x.invalid(path.Field(f.key), "expected bool", raw)
			continue
		}
		p = f.set(p, b)
	}
	return p, declared
}

func (x *extractor) invalid(p PathRef, msg string, got any) {
	x.issues = AppendIssues(x.issues, p.Issue(CodeInvalidControl, msg, "got", describe(got)))
}
