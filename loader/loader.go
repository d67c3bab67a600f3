package loader

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/hashicorp/go-hclog"

	goverlay "github.com/reoring/goverlay"
)

// Loader turns the layers of a Config into documents and merges them.
type Loader struct {
	cfg *Config
	log hclog.Logger
}

// New returns a Loader for cfg. A nil logger uses hclog.Default().
func New(cfg *Config, log hclog.Logger) *Loader {
	if log == nil {
		log = hclog.Default()
	}
	return &Loader{cfg: cfg, log: log.Named("loader")}
}

// Config returns the config the loader was built with.
func (l *Loader) Config() *Config { return l.cfg }

// File is one resolved input file.
type File struct {
	Path   string
	Format goverlay.Format
	Layer  int // index into Config.Layers
}

// Files resolves every layer to its files, in merge order. Globs are
// expanded and their matches sorted.
func (l *Loader) Files() ([]File, error) {
	var files []File
	for i, layer := range l.cfg.Layers {
		paths, err := l.match(layer)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			f, err := formatFor(layer, p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p, err)
			}
			files = append(files, File{Path: p, Format: f, Layer: i})
		}
	}
	return files, nil
}

func (l *Loader) match(layer Layer) ([]string, error) {
	pattern := l.cfg.resolve(layer.Path)
	if isGlob(layer.Path) {
		matches, err := doublestar.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", layer.Path, err)
		}
		sort.Strings(matches)
		var files []string
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return nil, l.missing(layer, "no file matches")
		}
		return files, nil
	}
	fi, err := os.Stat(pattern)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, l.missing(layer, "file does not exist")
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", layer.Path)
	}
	return []string{pattern}, nil
}

// missing reports an unmatched layer: skipped when optional, an error otherwise.
func (l *Loader) missing(layer Layer, msg string) error {
	if layer.Optional {
		l.log.Debug("skipping optional layer", "path", layer.Path, "reason", msg)
		return nil
	}
	return fmt.Errorf("%s: %w", layer.Path, goverlay.Issues{goverlay.RootPath().Issue(goverlay.CodeMissingLayer, msg)})
}

func isGlob(p string) bool { return strings.ContainsAny(p, "*?[{") }

func formatFor(layer Layer, path string) (goverlay.Format, error) {
	if layer.Format != "" {
		return goverlay.ParseFormat(layer.Format)
	}
	if f, ok := goverlay.FormatOf(path); ok {
		return f, nil
	}
	return "", goverlay.Issues{goverlay.RootPath().Issue(goverlay.CodeUnknownFormat, "cannot infer format from extension; set format")}
}

// Documents reads every resolved file and returns one document per decoded
// value. Order follows the layer list, then file order, then the position of
// the value inside its file.
func (l *Loader) Documents() ([]goverlay.Document, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}
	sev, err := l.cfg.Severity()
	if err != nil {
		return nil, err
	}
	var docs []goverlay.Document
	for _, f := range files {
		layer := l.cfg.Layers[f.Layer]
		values, err := l.read(f, sev)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		explicit, err := layer.Policy.Tree()
		if err != nil {
			return nil, fmt.Errorf("%s: policy: %w", layer.Path, err)
		}
		for _, v := range values {
			tree := explicit
			if tree == nil && layer.ControlEnabled() {
				if tree, err = goverlay.ExtractPolicy(v); err != nil {
					return nil, fmt.Errorf("%s: %w", f.Path, err)
				}
			}
			if l.cfg.AllowEmpty {
				tree = withRootDefault(tree, goverlay.NewPolicy(goverlay.AllowEmpty(true)))
			}
			docs = append(docs, goverlay.Document{Value: v, Priority: layer.Priority, Order: len(docs), Policy: tree})
		}
		l.log.Debug("loaded layer file", "path", f.Path, "format", f.Format, "documents", len(values), "priority", layer.Priority)
	}
	return docs, nil
}

func (l *Loader) read(f File, sev goverlay.Severity) ([]any, error) {
	in, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	src, err := goverlay.NewSource(f.Format, in)
	if err != nil {
		return nil, err
	}
	return goverlay.DecodeAll(src, goverlay.DecodeOpt{
		Strictness: goverlay.Strictness{OnDuplicateKey: sev},
		MaxDepth:   l.cfg.EffectiveMaxDepth(),
		OnIssue: func(is goverlay.Issue) {
			l.log.Warn("input issue", "path", f.Path, "code", is.Code, "at", is.Path, "message", is.Message)
		},
	})
}

// withRootDefault fills unset fields of the root policy of t from p.
func withRootDefault(t *goverlay.PolicyTree, p goverlay.Policy) *goverlay.PolicyTree {
	if t == nil {
		return goverlay.LeafTree(p)
	}
	cp := *t
	cp.Policy = t.Policy.Overlay(p)
	return &cp
}

// Merge loads all documents and merges them. ok is false when the merged
// result is absent.
func (l *Loader) Merge() (any, bool, error) {
	docs, err := l.Documents()
	if err != nil {
		return nil, false, err
	}
	v, ok, err := goverlay.MergeWith(goverlay.MergeOpt{MaxDepth: l.cfg.EffectiveMaxDepth()}, docs...)
	if err != nil {
		return nil, false, err
	}
	l.log.Info("merged documents", "documents", len(docs), "absent", !ok)
	return v, ok, nil
}
