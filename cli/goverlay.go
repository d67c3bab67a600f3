// Package cli implements the goverlay command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	goverlay "github.com/reoring/goverlay"
	"github.com/reoring/goverlay/i18n"
	"github.com/reoring/goverlay/internal/render"
	"github.com/reoring/goverlay/loader"
)

var (
	logLevel   string
	lang       string
	configPath string
	output     string
	maxDepth   int
	duplicates string
	noControl  bool
	allowEmpty bool
	watch      bool
	format     string

	logger hclog.Logger
)

// NewCommand creates the goverlay Command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goverlay",
		Short: `goverlay - merge prioritized JSON and YAML documents`,
		Long: `goverlay - merge prioritized JSON and YAML documents.
    Layers are merged by priority under per-path policies that are either
    embedded in the documents ($priority, $terminal, $allow_none, $allow_empty)
    or declared in the config file.`,
		Version:           getVersion().String(),
		PersistentPreRunE: initialize,
		SilenceErrors:     true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, `loglevel`, `error`,
		`error/warn/info/debug/trace`)
	cmd.PersistentFlags().StringVarP(&output, `output`, `o`, `json`,
		`json/yaml: output format`)
	cmd.PersistentFlags().StringVar(&lang, `lang`, `en`,
		strings.Join(i18n.Languages(), `/`)+`: language of issue messages`)

	cmd.AddCommand(newMergeCommand(), newPolicyCommand(), newVersionCommand())
	return cmd
}

func newMergeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   `merge [file ...]`,
		Short: `Merge the configured layers followed by the given files`,
		Long: `Merge the layers of the config file followed by the given files.
    Files given as arguments have priority 0 and follow the configured layers in order.
    An absent result prints nothing.`,
		RunE: cmdMerge,
	}
	flags := cmd.Flags()
	flags.StringVar(&configPath, `config`, ``,
		`path to the config file. Defaults to <current directory>/`+loader.FileName+` when present`)
	flags.IntVar(&maxDepth, `max-depth`, 0,
		`maximum nesting depth; 0 uses the config value or the default, negative disables the limit`)
	flags.StringVar(&duplicates, `duplicates`, ``,
		`ignore/warn/error: duplicate key handling (overrides the config)`)
	flags.BoolVar(&noControl, `no-control`, false,
		`do not extract $-control keys from documents`)
	flags.BoolVar(&allowEmpty, `allow-empty`, false,
		`keep empty mappings and sequences at the document roots`)
	flags.BoolVar(&watch, `watch`, false,
		`re-merge and print whenever an input file changes`)
	return cmd
}

func newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   `policy <file>`,
		Short: `Print the policy tree embedded in a document`,
		Args:  cobra.ExactArgs(1),
		RunE:  cmdPolicy,
	}
	cmd.Flags().StringVar(&format, `format`, ``,
		`json/yaml: input format; inferred from the extension when empty`)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   `version`,
		Short: `Print the version`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), getVersion())
			return err
		},
	}
}

func initialize(cmd *cobra.Command, _ []string) error {
	level := hclog.LevelFromString(logLevel)
	if level == hclog.NoLevel {
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	logger = hclog.New(&hclog.LoggerOptions{
		Name:   `goverlay`,
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})
	if !validLang(lang) {
		return fmt.Errorf("unknown language %q (want %s)", lang, strings.Join(i18n.Languages(), " or "))
	}
	i18n.SetLanguage(lang)
	switch render.Format(output) {
	case render.JSON, render.YAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", output)
	}
}

func validLang(l string) bool {
	for _, known := range i18n.Languages() {
		if l == known {
			return true
		}
	}
	return false
}

func cmdMerge(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg, err := mergeConfig(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := runMerge(out, cfg); err != nil {
		if !watch {
			return err
		}
		logger.Error("merge failed", "error", err)
	}
	if !watch {
		return nil
	}

	ctx, cancel := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer cancel()
	w, err := loader.NewWatcher(cfg, logger, 0)
	if err != nil {
		return err
	}
	return w.Watch(ctx, func() error {
		if cfg.Path != "" {
			// the config itself may have changed
			fresh, err := mergeConfig(cmd, args)
			if err != nil {
				return err
			}
			cfg = fresh
		}
		return runMerge(out, cfg)
	})
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// mergeConfig builds the effective config: the config file (explicit or
// found in the working directory), flag overrides, then argument files.
func mergeConfig(cmd *cobra.Command, args []string) (*loader.Config, error) {
	path := configPath
	if path == `` {
		if _, err := os.Stat(loader.FileName); err == nil {
			path = loader.FileName
		}
	}
	cfg := &loader.Config{Dir: `.`}
	if path != `` {
		var err error
		if cfg, err = loader.LoadConfig(path); err != nil {
			return nil, err
		}
		logger.Debug("loaded config", "path", cfg.Path, "layers", len(cfg.Layers))
	}

	flags := cmd.Flags()
	if flags.Changed(`max-depth`) {
		cfg.MaxDepth = maxDepth
	}
	if flags.Changed(`duplicates`) {
		if _, err := goverlay.ParseSeverity(duplicates); err != nil {
			return nil, err
		}
		cfg.Duplicates = duplicates
	}
	if allowEmpty {
		cfg.AllowEmpty = true
	}
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		cfg.Layers = append(cfg.Layers, loader.Layer{Path: abs})
	}
	if noControl {
		off := false
		for i := range cfg.Layers {
			cfg.Layers[i].Control = &off
		}
	}
	if len(cfg.Layers) == 0 {
		return nil, errors.New("nothing to merge: give files as arguments or configure layers")
	}
	return cfg, nil
}

func runMerge(out io.Writer, cfg *loader.Config) error {
	v, ok, err := loader.New(cfg, logger).Merge()
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("merged result is absent")
		return nil
	}
	return render.Write(out, render.Format(output), v)
}

func cmdPolicy(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	name := args[0]
	f, ok := goverlay.FormatOf(name)
	if format != `` {
		var err error
		if f, err = goverlay.ParseFormat(format); err != nil {
			return err
		}
	} else if !ok {
		return fmt.Errorf("%s: cannot infer format from extension; use --format", name)
	}
	in, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()
	src, err := goverlay.NewSource(f, in)
	if err != nil {
		return err
	}
	values, err := goverlay.DecodeAll(src, goverlay.DecodeOpt{
		Strictness: goverlay.Strictness{OnDuplicateKey: goverlay.Error},
		MaxDepth:   goverlay.DefaultMaxDepth,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, v := range values {
		t, err := goverlay.ExtractPolicy(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		var desc any = map[string]any{}
		if t != nil {
			desc = t.Describe()
		}
		if err := render.Write(cmd.OutOrStdout(), render.Format(output), desc); err != nil {
			return err
		}
	}
	return nil
}
