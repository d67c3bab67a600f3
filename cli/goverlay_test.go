package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reoring/goverlay/cli"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestMerge_Files(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "name: app\nports: [80]\ndb:\n  host: localhost\n")
	over := writeFile(t, dir, "over.json", `{"$priority": 1, "db": {"host": "db.internal", "port": 5432}}`)

	out, err := cli.Execute("merge", base, over)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"app","ports":[80],"db":{"host":"db.internal","port":5432}}`, string(out))

	out, err = cli.Execute("merge", "-o", "yaml", base, over)
	require.NoError(t, err)
	require.Equal(t, "db:\n  host: db.internal\n  port: 5432\nname: app\nports:\n  - 80\n", string(out))

	out, err = cli.Execute("merge", "--no-control", base, over)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"app","ports":[80],"db":{"host":"localhost","port":5432}}`, string(out))
}

func TestMerge_Config(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"a": {}, "b": 1, "b": 2}`)
	cfg := writeFile(t, dir, "layers.yaml", "duplicates: error\nlayers:\n  - path: a.json\n")

	_, err := cli.Execute("merge", "--config", cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate_key at /b")

	out, err := cli.Execute("merge", "--config", cfg, "--duplicates", "ignore")
	require.NoError(t, err)
	require.JSONEq(t, `{"b":2}`, string(out))

	out, err = cli.Execute("merge", "--config", cfg, "--duplicates", "warn", "--allow-empty")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":{},"b":2}`, string(out))

	_, err = cli.Execute("merge", "--config", cfg, "--duplicates", "loud")
	require.Error(t, err)

	_, err = cli.Execute("merge", "--config", cfg, "--max-depth", "1", "--duplicates", "ignore")
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_depth")
}

func TestMerge_AbsentPrintsNothing(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "empty.json", `{"a": {"b": []}}`)
	out, err := cli.Execute("merge", p)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestMerge_Errors(t *testing.T) {
	_, err := cli.Execute("merge")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nothing to merge")

	_, err = cli.Execute("merge", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing_layer")

	_, err = cli.Execute("--loglevel", "loud", "version")
	require.Error(t, err)

	_, err = cli.Execute("-o", "toml", "version")
	require.Error(t, err)
}

func TestMerge_LogsToErr(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "dup.json", `{"a": 1, "a": 2}`)
	var logs bytes.Buffer
	out, err := cli.ExecuteWithLog(&logs, "--loglevel", "warn", "merge", "--duplicates", "warn", p)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":2}`, string(out))
	require.Contains(t, logs.String(), "input issue")
	require.Contains(t, logs.String(), "duplicate_key")
}

func TestPolicy(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "doc.json", `{"$priority": 2, "x": {"$terminal": true}, "y": 1}`)
	out, err := cli.Execute("policy", "-o", "yaml", p)
	require.NoError(t, err)
	require.Equal(t, "keys:\n  x:\n    terminal: true\npriority: 2\n", string(out))

	plain := writeFile(t, dir, "plain.txt", "a: 1\n")
	_, err = cli.Execute("policy", plain)
	require.Error(t, err)
	out, err = cli.Execute("policy", "--format", "yaml", plain)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(out))
	_, err = cli.Execute("policy", plain)
	require.Error(t, err, "flags must not carry over between runs")

	bad := writeFile(t, dir, "bad.yaml", "a:\n  $allow_none: maybe\n")
	_, err = cli.Execute("policy", bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid_control at /a/$allow_none")
}

func TestVersion(t *testing.T) {
	out, err := cli.Execute("version")
	require.NoError(t, err)
	require.Contains(t, string(out), "dirty")
}

func TestLang(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.json", `{"$terminal": 1}`)
	_, err := cli.Execute("--lang", "ja", "policy", p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "制御キーの値が不正です: expected bool")

	_, err = cli.Execute("policy", p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid_control at /$terminal: expected bool")

	_, err = cli.Execute("--lang", "fr", "version")
	require.Error(t, err)
}
