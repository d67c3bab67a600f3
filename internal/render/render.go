// Package render writes merged values as JSON or YAML.
package render

import (
	"fmt"
	"io"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding name.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Write encodes v to w in format f. Mapping keys are emitted sorted.
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case JSON, "":
		b, err := j.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		b = append(b, '\n')
		_, err = w.Write(b)
		return err
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plain(v)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", string(f))
	}
}

// plain replaces number wrappers with int64/float64 so YAML emits them unquoted.
func plain(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			out[k] = plain(c)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = plain(c)
		}
		return out
	case j.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return string(t)
	default:
		return v
	}
}
