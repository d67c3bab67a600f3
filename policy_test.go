package goverlay

import (
	"sort"
	"testing"
)

func pk(priority, order int) Policy { return NewPolicy(Priority(priority), Order(order)) }

func TestPolicy_SortOrder(t *testing.T) {
	cases := []struct {
		name string
		in   []Policy
		want []Policy
	}{
		{name: "empty"},
		{name: "single", in: []Policy{pk(0, 0)}, want: []Policy{pk(0, 0)}},
		{name: "priority", in: []Policy{pk(0, 0), pk(1, 0)}, want: []Policy{pk(1, 0), pk(0, 0)}},
		{name: "order", in: []Policy{pk(0, 1), pk(0, 0)}, want: []Policy{pk(0, 0), pk(0, 1)}},
		{
			name: "mixed",
			in:   []Policy{pk(1, 0), pk(0, 1), pk(1, 2), pk(0, 3), pk(2, 4), pk(-1, 5)},
			want: []Policy{pk(2, 4), pk(1, 0), pk(1, 2), pk(0, 1), pk(0, 3), pk(-1, 5)},
		},
		{
			name: "unset reads as zero",
			in:   []Policy{pk(1, 0), pk(0, 1), pk(1, 1), pk(-1, 0), pk(0, -1), pk(-1, -1), {}},
			want: []Policy{pk(1, 0), pk(1, 1), pk(0, -1), {}, pk(0, 1), pk(-1, -1), pk(-1, 0)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := append([]Policy(nil), tc.in...)
			sort.SliceStable(got, func(i, j int) bool { return got[i].Less(got[j]) })
			if len(got) != len(tc.want) {
				t.Fatalf("len: got %d want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("position %d: got %s want %s", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestPolicy_Overlay(t *testing.T) {
	all := NewPolicy(Priority(1), Order(1), Terminal(true), AllowNone(true), AllowEmpty(true)).
		WithExcludedPrefix("_").WithIDKey("name")

	if got := (Policy{}).Overlay(Policy{}); !got.IsZero() {
		t.Fatalf("empty+empty: got %s", got)
	}
	if got := (Policy{}).Overlay(all); got != all {
		t.Fatalf("overlay should fill every field: got %s want %s", got, all)
	}

	set := NewPolicy(Priority(0), Order(0), Terminal(false), AllowNone(false), AllowEmpty(false)).
		WithExcludedPrefix("$").WithIDKey("$id")
	if got := set.Overlay(all); got != set {
		t.Fatalf("set fields must not be overwritten: got %s want %s", got, set)
	}

	// transitive: the grandparent value survives a later overlay with a
	// parent that leaves the field unset
	child := NewPolicy(Order(7))
	resolved := child.Overlay(NewPolicy(Terminal(true))).Overlay(NewPolicy(Terminal(false), Priority(3)))
	if !resolved.IsTerminal() || resolved.Priority() != 3 || resolved.Order() != 7 {
		t.Fatalf("unexpected resolution: %s", resolved)
	}
	if child != NewPolicy(Order(7)) {
		t.Fatalf("overlay must not mutate the receiver: %s", child)
	}
}

func TestPolicy_Defaults(t *testing.T) {
	var p Policy
	if p.Priority() != 0 || p.Order() != 0 || p.IsTerminal() || p.IsAllowNone() || p.IsAllowEmpty() {
		t.Fatalf("unexpected zero policy: %s", p)
	}
	if p.ExcludedPrefix() != DefaultExcludedPrefix || p.IDKey() != DefaultIDKey {
		t.Fatalf("unexpected defaults: %q %q", p.ExcludedPrefix(), p.IDKey())
	}
	if a, b := pk(4, 2).SortKey(); a != -4 || b != 2 {
		t.Fatalf("sort key: got (%d,%d)", a, b)
	}
}

func TestPolicy_IsValidKey(t *testing.T) {
	var p Policy
	for key, want := range map[string]bool{"a": true, "$priority": false, "$": false, "a$": true, "": true} {
		if got := p.IsValidKey(key); got != want {
			t.Fatalf("IsValidKey(%q) = %v, want %v", key, got, want)
		}
	}
	if !p.WithExcludedPrefix("").IsValidKey("$id") {
		t.Fatalf("empty prefix must hide nothing")
	}
	if p.WithExcludedPrefix("_").IsValidKey("_x") || !p.WithExcludedPrefix("_").IsValidKey("$x") {
		t.Fatalf("custom prefix not honoured")
	}
}

func TestPolicy_ID(t *testing.T) {
	var p Policy
	cases := []struct {
		in    any
		id    any
		hasID bool
	}{
		{in: map[string]any{"$id": "a"}, id: "a", hasID: true},
		{in: map[string]any{"$id": 3.0}, id: int64(3), hasID: true},
		{in: map[string]any{"$id": 3.5}, id: 3.5, hasID: true},
		{in: map[string]any{"$id": nil}},
		{in: map[string]any{"$id": []any{1}}},
		{in: map[string]any{"id": "a"}},
		{in: "a"},
		{in: []any{"$id"}},
	}
	for _, tc := range cases {
		id, ok := p.ID(tc.in)
		if ok != tc.hasID || id != tc.id {
			t.Fatalf("ID(%#v) = (%#v, %v), want (%#v, %v)", tc.in, id, ok, tc.id, tc.hasID)
		}
	}
	if id, ok := p.WithIDKey("name").ID(map[string]any{"name": "n", "$id": "x"}); !ok || id != "n" {
		t.Fatalf("custom id key: got (%v, %v)", id, ok)
	}
}
