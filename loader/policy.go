package loader

import (
	"fmt"
	"sort"

	goverlay "github.com/reoring/goverlay"
)

// PolicySpec is the config-file form of a goverlay.PolicyTree. A spec with
// Keys describes a mapping; a spec with IDs, Index or Default describes a
// sequence; a spec with neither is a leaf.
type PolicySpec struct {
	Priority       *int    `yaml:"priority"`
	Terminal       *bool   `yaml:"terminal"`
	AllowNone      *bool   `yaml:"allow_none"`
	AllowEmpty     *bool   `yaml:"allow_empty"`
	ExcludedPrefix *string `yaml:"excluded_prefix"`
	IDKey          *string `yaml:"id_key"`

	Keys    map[string]*PolicySpec `yaml:"keys"`
	IDs     map[any]*PolicySpec    `yaml:"ids"`
	Index   []*PolicySpec          `yaml:"index"`
	Default *PolicySpec            `yaml:"default"`
}

// Tree converts s into a policy tree. A nil spec yields a nil tree.
func (s *PolicySpec) Tree() (*goverlay.PolicyTree, error) {
	var iss goverlay.Issues
	t := s.tree(goverlay.RootPath(), &iss)
	if len(iss) > 0 {
		return nil, iss
	}
	return t, nil
}

func (s *PolicySpec) policy() goverlay.Policy {
	var p goverlay.Policy
	if s.Priority != nil {
		p = p.WithPriority(*s.Priority)
	}
	if s.Terminal != nil {
		p = p.WithTerminal(*s.Terminal)
	}
	if s.AllowNone != nil {
		p = p.WithAllowNone(*s.AllowNone)
	}
	if s.AllowEmpty != nil {
		p = p.WithAllowEmpty(*s.AllowEmpty)
	}
	if s.ExcludedPrefix != nil {
		p = p.WithExcludedPrefix(*s.ExcludedPrefix)
	}
	if s.IDKey != nil {
		p = p.WithIDKey(*s.IDKey)
	}
	return p
}

func (s *PolicySpec) tree(path goverlay.PathRef, iss *goverlay.Issues) *goverlay.PolicyTree {
	if s == nil {
		return nil
	}
	p := s.policy()
	isSeq := len(s.IDs) > 0 || len(s.Index) > 0 || s.Default != nil
	switch {
	case len(s.Keys) > 0 && isSeq:
		*iss = goverlay.AppendIssues(*iss, path.Issue(goverlay.CodeInvalidPolicy, "keys cannot be combined with ids, index or default"))
		return nil
	case len(s.Keys) > 0:
		names := make([]string, 0, len(s.Keys))
		for k := range s.Keys {
			names = append(names, k)
		}
		sort.Strings(names)
		fields := make(map[string]*goverlay.PolicyTree, len(s.Keys))
		for _, k := range names {
			if sub := s.Keys[k].tree(path.Field("keys").Field(k), iss); sub != nil {
				fields[k] = sub
			}
		}
		return goverlay.MappingTree(p, fields)
	case isSeq:
		opt := goverlay.SequenceOpt{Default: s.Default.tree(path.Field("default"), iss)}
		if len(s.IDs) > 0 {
			opt.IDs = make(map[any]*goverlay.PolicyTree, len(s.IDs))
			for id, sub := range s.IDs {
				if _, ok := goverlay.Identity(id); !ok {
					*iss = goverlay.AppendIssues(*iss, path.Field("ids").Issue(goverlay.CodeInvalidPolicy, "id must be a string, number or bool", "id", id))
					continue
				}
				if t := sub.tree(path.Field("ids").Field(idName(id)), iss); t != nil {
					opt.IDs[id] = t
				}
			}
		}
		if len(s.Index) > 0 {
			opt.Index = make([]*goverlay.PolicyTree, len(s.Index))
			for i, sub := range s.Index {
				opt.Index[i] = sub.tree(path.Field("index").Index(i), iss)
			}
		}
		return goverlay.SequenceTree(p, opt)
	default:
		return goverlay.LeafTree(p)
	}
}

func idName(id any) string { return fmt.Sprint(id) }
