package goverlay

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	eng "github.com/reoring/goverlay/internal/engine"
)

// Format names an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf infers the format of a file from its extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// ParseFormat validates a format name ("yml" is accepted for YAML).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", singleIssue(CodeUnknownFormat, fmt.Sprintf("unknown format %q", s))
	}
}

// Source is a stream of one or more encoded documents. Implementations are
// not safe for concurrent use.
type Source interface {
	Format() Format
	// Location reports the number of input bytes consumed so far.
	Location() int64

	tokens() eng.TokenSource
}

type engineSource struct {
	inner  eng.TokenSource
	format Format
}

func (s *engineSource) Format() Format          { return s.format }
func (s *engineSource) Location() int64         { return s.inner.Location() }
func (s *engineSource) tokens() eng.TokenSource { return s.inner }

// JSONReader wraps an io.Reader as a JSON Source. Concatenated top-level
// values are read as successive documents.
func JSONReader(r io.Reader) Source { return &engineSource{inner: eng.NewJSONReader(r), format: FormatJSON} }

// JSONBytes wraps a byte slice as a JSON Source.
func JSONBytes(b []byte) Source { return &engineSource{inner: eng.NewJSONBytes(b), format: FormatJSON} }

// YAMLReader wraps an io.Reader as a YAML Source. Each "---" document of the
// stream is a separate document.
func YAMLReader(r io.Reader) Source { return &engineSource{inner: eng.NewYAMLReader(r), format: FormatYAML} }

// YAMLBytes wraps a byte slice as a YAML Source.
func YAMLBytes(b []byte) Source { return &engineSource{inner: eng.NewYAMLBytes(b), format: FormatYAML} }

// NewSource returns the Source for format f reading from r.
func NewSource(f Format, r io.Reader) (Source, error) {
	switch f {
	case FormatJSON:
		return JSONReader(r), nil
	case FormatYAML:
		return YAMLReader(r), nil
	default:
		return nil, singleIssue(CodeUnknownFormat, fmt.Sprintf("unknown format %q", string(f)))
	}
}
