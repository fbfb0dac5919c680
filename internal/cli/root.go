// Package cli implements the docsplit command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/logging"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app holds the state shared by every subcommand once the root's pre-run
// has merged flags, config file, environment and defaults.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *slog.Logger
}

func Execute() {
	if err := NewRootCommand(config.New(), os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree on v. Command output goes to out,
// logs and errors to errOut.
func NewRootCommand(v *viper.Viper, out, errOut io.Writer) *cobra.Command {
	a := &app{v: v}
	def := chunker.DefaultConfig()

	root := &cobra.Command{
		Use:          "docsplit",
		Short:        "docsplit splits documents into heading trees and size-normalized chunks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			a.log = logging.New(a.cfg.LogFormat, a.cfg.LogLevel, cmd.ErrOrStderr())
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	pf.Int("min", def.Min, "minimum chunk size in characters")
	pf.Int("target", def.Target, "target size for merged chunks")
	pf.Int("max", def.Max, "paragraphs above this are split at sentence boundaries")
	pf.String("markdown-mode", parser.ModeLine, "markdown heading detection: line or goldmark")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "json", "log format: json or text")
	bindFlags(v, pf, map[string]string{
		"min":           "MIN_TOKENS",
		"target":        "TARGET_TOKENS",
		"max":           "MAX_TOKENS",
		"markdown-mode": "MARKDOWN_MODE",
		"log-level":     "LOG_LEVEL",
		"log-format":    "LOG_FORMAT",
	})

	root.AddCommand(a.walkCmd(), a.treeCmd(), a.chunkCmd(), a.serveCmd())
	return root
}

// loadConfig reads the optional config file, then materializes the merged
// configuration (flags > env > file > defaults) and validates it.
func (a *app) loadConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	a.cfg = config.Load(a.v)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// bindFlags binds each flag to its viper key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}
