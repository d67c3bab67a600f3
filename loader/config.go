// Package loader resolves a layered configuration into documents and merges them.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	goverlay "github.com/reoring/goverlay"
)

// FileName is the config file looked up in the working directory when none is given.
const FileName = "goverlay.yaml"

// Config is the parsed form of a goverlay.yaml file.
type Config struct {
	// MaxDepth bounds nesting while decoding and merging. 0 selects
	// goverlay.DefaultMaxDepth, a negative value disables the check.
	MaxDepth int `yaml:"max_depth"`
	// Duplicates is the duplicate key severity: ignore, warn or error.
	Duplicates string `yaml:"duplicates"`
	// AllowEmpty keeps empty mappings and sequences at every document root
	// that does not decide otherwise.
	AllowEmpty bool    `yaml:"allow_empty"`
	Layers     []Layer `yaml:"layers"`

	// Dir is the directory relative layer paths are resolved against.
	Dir string `yaml:"-"`
	// Path is the file the config was read from, empty for built configs.
	Path string `yaml:"-"`
}

// Layer is one configured source of documents.
type Layer struct {
	// Path is a file or a doublestar glob, relative to Config.Dir.
	Path     string `yaml:"path"`
	Priority int    `yaml:"priority"`
	// Format overrides the format inferred from the file extension.
	Format string `yaml:"format"`
	// Control enables extraction of $-keys; nil means true.
	Control *bool `yaml:"control"`
	// Optional layers may match no file.
	Optional bool `yaml:"optional"`
	// Policy is an explicit policy tree; it replaces control extraction.
	Policy *PolicySpec `yaml:"policy"`
}

// ControlEnabled reports whether $-keys are extracted for l.
func (l Layer) ControlEnabled() bool { return l.Control == nil || *l.Control }

// LoadConfig reads the config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.Path = abs
	cfg.Dir = filepath.Dir(abs)
	return cfg, nil
}

// ParseConfig decodes a config document. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if _, err := cfg.Severity(); err != nil {
		return nil, err
	}
	for i, l := range cfg.Layers {
		if l.Path == "" {
			return nil, fmt.Errorf("layers[%d]: path is required", i)
		}
		if l.Format != "" {
			if _, err := goverlay.ParseFormat(l.Format); err != nil {
				return nil, fmt.Errorf("layers[%d]: %w", i, err)
			}
		}
	}
	return cfg, nil
}

// Severity returns the parsed duplicate key severity.
func (c *Config) Severity() (goverlay.Severity, error) {
	return goverlay.ParseSeverity(c.Duplicates)
}

// EffectiveMaxDepth maps MaxDepth onto the library convention (0 = unlimited).
func (c *Config) EffectiveMaxDepth() int {
	switch {
	case c.MaxDepth == 0:
		return goverlay.DefaultMaxDepth
	case c.MaxDepth < 0:
		return 0
	default:
		return c.MaxDepth
	}
}

// resolve returns p made absolute against the config directory.
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	dir := c.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, p)
}
