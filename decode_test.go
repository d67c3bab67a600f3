package goverlay_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	j "github.com/goccy/go-json"

	goverlay "github.com/reoring/goverlay"
)

func mustIssues(t *testing.T, err error) goverlay.Issues {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error")
	}
	iss, ok := goverlay.AsIssues(err)
	if !ok || len(iss) == 0 {
		t.Fatalf("expected Issues, got: %v", err)
	}
	return iss
}

func TestDecode_DuplicateKey_Error(t *testing.T) {
	opt := goverlay.DecodeOpt{Strictness: goverlay.Strictness{OnDuplicateKey: goverlay.Error}}
	for in, path := range map[string]string{
		`{"a":1,"a":2}`:           "/a",
		`[{"a":1,"a":2}]`:         "/0/a",
		`{"x":{"a/b":1,"a/b":2}}`: "/x/a~1b",
	} {
		_, err := goverlay.Decode(goverlay.JSONBytes([]byte(in)), opt)
		iss := mustIssues(t, err)
		if iss[0].Code != goverlay.CodeDuplicateKey {
			t.Fatalf("%s: expected duplicate_key issue, got: %v", in, iss)
		}
		if iss[0].Path != path {
			t.Fatalf("%s: expected path=%s, got: %s", in, path, iss[0].Path)
		}
	}
}

func TestDecode_DuplicateKey_Warn(t *testing.T) {
	var warned []goverlay.Issue
	opt := goverlay.DecodeOpt{
		Strictness: goverlay.Strictness{OnDuplicateKey: goverlay.Warn},
		OnIssue:    func(is goverlay.Issue) { warned = append(warned, is) },
	}
	v, err := goverlay.Decode(goverlay.JSONBytes([]byte(`{"a":1,"b":{"c":1,"c":2},"a":3}`)), opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"a": int64(3), "b": map[string]any{"c": int64(2)}}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("later occurrences must win: got %#v", v)
	}
	if len(warned) != 2 || warned[0].Path != "/b/c" || warned[1].Path != "/a" {
		t.Fatalf("unexpected warnings: %v", warned)
	}

	// ignore is the zero value
	if _, err := goverlay.Decode(goverlay.JSONBytes([]byte(`{"a":1,"a":2}`)), goverlay.DecodeOpt{}); err != nil {
		t.Fatalf("duplicates must be ignored by default: %v", err)
	}
}

func TestDecode_YAMLDuplicateKey_Position(t *testing.T) {
	opt := goverlay.DecodeOpt{Strictness: goverlay.Strictness{OnDuplicateKey: goverlay.Error}}
	_, err := goverlay.Decode(goverlay.YAMLBytes([]byte("a: 1\nb: 2\na: 3\n")), opt)
	iss := mustIssues(t, err)
	if iss[0].Code != goverlay.CodeDuplicateKey || iss[0].Path != "/a" {
		t.Fatalf("unexpected issue: %v", iss)
	}
	p := iss[0].Params
	if p["line"] != 3 || p["col"] != 1 || p["first_line"] != 1 || p["first_col"] != 1 {
		t.Fatalf("unexpected position params: %v", p)
	}
	if !strings.Contains(iss[0].Message, "3:1") {
		t.Fatalf("message should name the position: %s", iss[0].Message)
	}
}

func TestDecode_MaxDepth_Exceeded(t *testing.T) {
	// depth = 3 for { a: { b: { c: 1 } } }
	in := `{"a":{"b":{"c":1}}}`
	_, err := goverlay.Decode(goverlay.JSONBytes([]byte(in)), goverlay.DecodeOpt{MaxDepth: 2})
	iss := mustIssues(t, err)
	if iss[0].Code != goverlay.CodeMaxDepth || iss[0].Path != "/a/b" {
		t.Fatalf("expected max_depth at /a/b, got: %v", iss)
	}
	if _, err := goverlay.Decode(goverlay.JSONBytes([]byte(in)), goverlay.DecodeOpt{MaxDepth: 3}); err != nil {
		t.Fatalf("depth 3 must be accepted: %v", err)
	}
	_, err = goverlay.Decode(goverlay.YAMLBytes([]byte("a:\n  - b:\n      c: 1\n")), goverlay.DecodeOpt{MaxDepth: 2})
	iss = mustIssues(t, err)
	if iss[0].Path != "/a/0" {
		t.Fatalf("expected max_depth at /a/0, got: %v", iss)
	}
}

func TestDecode_MaxBytes_Exceeded(t *testing.T) {
	data := `{"a":"` + strings.Repeat("x", 1024) + `"}`
	_, err := goverlay.Decode(goverlay.JSONReader(strings.NewReader(data)), goverlay.DecodeOpt{MaxBytes: 2})
	iss := mustIssues(t, err)
	if iss[0].Code != goverlay.CodeTruncated {
		t.Fatalf("expected truncated issue, got: %v", iss)
	}
	if iss[0].Offset <= 2 {
		t.Fatalf("expected the offset past the limit, got %d", iss[0].Offset)
	}
}

func TestDecode_Numbers(t *testing.T) {
	in := []byte(`{"i":1,"f":1.5,"neg":-7}`)
	cases := []struct {
		mode goverlay.NumberMode
		want map[string]any
	}{
		{goverlay.NumberNative, map[string]any{"i": int64(1), "f": 1.5, "neg": int64(-7)}},
		{goverlay.NumberFloat64, map[string]any{"i": 1.0, "f": 1.5, "neg": -7.0}},
		{goverlay.NumberJSONNumber, map[string]any{"i": j.Number("1"), "f": j.Number("1.5"), "neg": j.Number("-7")}},
	}
	for _, tc := range cases {
		v, err := goverlay.Decode(goverlay.JSONBytes(in), goverlay.DecodeOpt{Numbers: tc.mode})
		if err != nil {
			t.Fatalf("mode %d: %v", tc.mode, err)
		}
		if !reflect.DeepEqual(v, tc.want) {
			t.Fatalf("mode %d: got %#v want %#v", tc.mode, v, tc.want)
		}
	}
}

func TestDecode_YAMLScalars(t *testing.T) {
	in := "i: 1\nf: 1.5\ns: '1'\nb: true\nn: ~\nt: 2001-12-14\nlist: []\nref: &r {x: 1}\ncopy: *r\n"
	v, err := goverlay.Decode(goverlay.YAMLBytes([]byte(in)), goverlay.DecodeOpt{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"i": int64(1), "f": 1.5, "s": "1", "b": true, "n": nil, "t": "2001-12-14",
		"list": []any{},
		"ref":  map[string]any{"x": int64(1)},
		"copy": map[string]any{"x": int64(1)},
	}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %#v", v)
	}
}

// nestedAliases builds levels of anchors where each level repeats the
// previous one ten times.
func nestedAliases(levels int) string {
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i < levels; i++ {
		fmt.Fprintf(&b, "l%d: &l%d [", i, i)
		for k := 0; k < 10; k++ {
			if k > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "*l%d", i-1)
		}
		b.WriteString("]\n")
	}
	return b.String()
}

func TestDecode_YAMLAliasExpansionBounded(t *testing.T) {
	if _, err := goverlay.Decode(goverlay.YAMLBytes([]byte(nestedAliases(2))), goverlay.DecodeOpt{}); err != nil {
		t.Fatalf("a few aliases must decode: %v", err)
	}
	in := nestedAliases(7)
	_, err := goverlay.Decode(goverlay.YAMLBytes([]byte(in)), goverlay.DecodeOpt{MaxBytes: 1024})
	iss := mustIssues(t, err)
	if iss[0].Code != goverlay.CodeParseError || !strings.Contains(iss[0].Message, "aliases expand") {
		t.Fatalf("expected the alias expansion to be refused, got %v", iss)
	}
}

func TestDecode_EmptySequenceStaysSequence(t *testing.T) {
	v, err := goverlay.Decode(goverlay.JSONBytes([]byte(`{"a":[]}`)), goverlay.DecodeOpt{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := v.(map[string]any)["a"].([]any)
	if !ok || arr == nil || len(arr) != 0 {
		t.Fatalf("expected a non-nil empty sequence, got %#v", v)
	}
}

func TestDecodeAll_Streams(t *testing.T) {
	docs, err := goverlay.DecodeAll(goverlay.YAMLBytes([]byte("a: 1\n---\nb: 2\n")), goverlay.DecodeOpt{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []any{map[string]any{"a": int64(1)}, map[string]any{"b": int64(2)}}
	if !reflect.DeepEqual(docs, want) {
		t.Fatalf("got %#v", docs)
	}

	docs, err = goverlay.DecodeAll(goverlay.JSONBytes([]byte(`{"a":1} [2] "s"`)), goverlay.DecodeOpt{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 || docs[2] != "s" {
		t.Fatalf("got %#v", docs)
	}

	docs, err = goverlay.DecodeAll(goverlay.JSONBytes(nil), goverlay.DecodeOpt{})
	if err != nil || len(docs) != 0 {
		t.Fatalf("empty input: got %#v, %v", docs, err)
	}
	_, err = goverlay.Decode(goverlay.JSONBytes(nil), goverlay.DecodeOpt{})
	if iss := mustIssues(t, err); iss[0].Code != goverlay.CodeParseError {
		t.Fatalf("expected parse_error, got %v", iss)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for name, src := range map[string]goverlay.Source{
		"json missing colon":     goverlay.JSONBytes([]byte(`{"a" 1}`)),
		"json missing comma":     goverlay.JSONBytes([]byte(`{"a":1 "b":2}`)),
		"json array comma":       goverlay.JSONBytes([]byte(`[1 2]`)),
		"json double comma":      goverlay.JSONBytes([]byte(`[1,,2]`)),
		"json trailing comma":    goverlay.JSONBytes([]byte(`{"a":1,}`)),
		"json missing value":     goverlay.JSONBytes([]byte(`{"a":}`)),
		"json stray close":       goverlay.JSONBytes([]byte(`}`)),
		"json leading separator": goverlay.JSONBytes([]byte(`, 1`)),
		"yaml sequence key":      goverlay.YAMLBytes([]byte("? [a]\n: 1\n")),
		"yaml syntax":            goverlay.YAMLBytes([]byte("a: [1, 2\n")),
	} {
		_, err := goverlay.Decode(src, goverlay.DecodeOpt{})
		iss := mustIssues(t, err)
		if iss[0].Code != goverlay.CodeParseError || iss[0].Cause == nil {
			t.Fatalf("%s: expected parse_error with a cause, got %v", name, iss)
		}
	}
}

func TestDecodeAll_MalformedLaterDocument(t *testing.T) {
	_, err := goverlay.DecodeAll(goverlay.JSONBytes([]byte(`{"a":1} {"b" 2}`)), goverlay.DecodeOpt{})
	if iss := mustIssues(t, err); iss[0].Code != goverlay.CodeParseError {
		t.Fatalf("expected parse_error, got %v", iss)
	}
	_, err = goverlay.DecodeAll(goverlay.JSONBytes([]byte(`{"a":1}}`)), goverlay.DecodeOpt{})
	if iss := mustIssues(t, err); iss[0].Code != goverlay.CodeParseError {
		t.Fatalf("expected parse_error, got %v", iss)
	}
}

func TestDecode_CutShort(t *testing.T) {
	for _, in := range []string{`{"a": [1, 2`, `{"a":"b`, `["x",`} {
		_, err := goverlay.Decode(goverlay.JSONBytes([]byte(in)), goverlay.DecodeOpt{})
		if iss := mustIssues(t, err); iss[0].Code != goverlay.CodeTruncated {
			t.Fatalf("%s: expected truncated, got %v", in, iss)
		}
	}
}

func TestFormats(t *testing.T) {
	for path, want := range map[string]goverlay.Format{
		"a.json": goverlay.FormatJSON, "b.YAML": goverlay.FormatYAML, "dir/c.yml": goverlay.FormatYAML,
	} {
		if got, ok := goverlay.FormatOf(path); !ok || got != want {
			t.Fatalf("FormatOf(%s) = %s, %v", path, got, ok)
		}
	}
	if _, ok := goverlay.FormatOf("a.toml"); ok {
		t.Fatalf("toml is not a supported format")
	}
	if f, err := goverlay.ParseFormat("yml"); err != nil || f != goverlay.FormatYAML {
		t.Fatalf("ParseFormat(yml) = %s, %v", f, err)
	}
	_, err := goverlay.ParseFormat("xml")
	if iss := mustIssues(t, err); iss[0].Code != goverlay.CodeUnknownFormat {
		t.Fatalf("expected unknown_format, got %v", iss)
	}
	if _, err := goverlay.NewSource("ini", strings.NewReader("")); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}
