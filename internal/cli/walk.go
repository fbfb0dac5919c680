package cli

import (
	"fmt"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/dgallion1/docsplit/internal/sink"
	"github.com/dgallion1/docsplit/internal/walker"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// walkCmd flattens a directory tree into the configured sink.
func (a *app) walkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk [dir]",
		Short: "Flatten every matching file under dir into records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.DataDir
			if len(args) == 1 {
				root = args[0]
			}

			opts := a.cfg.SinkOptions()
			opts.Stdout = cmd.OutOrStdout()
			out, err := sink.Open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer out.Close()

			w := walker.New(afero.NewOsFs(), walkerOptions(a.cfg), a.log)
			sum, err := pipeline.NewIndexer(w, out, pipeline.NewParseStats(0), a.log).Run(cmd.Context(), root)
			if err != nil {
				return err
			}
			if n := len(sum.ParseFailures) + len(sum.WriteFailures); n > 0 {
				return fmt.Errorf("%d of %d files failed", n, sum.Files)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("ext", ".md", "comma-separated file extensions to visit")
	f.Bool("nested", false, "emit a record for every block with its breadcrumb")
	f.String("sink", config.SinkJSON, "record sink: json, sqlite or pathstore")
	f.StringP("output", "o", "", "JSON lines output file (default stdout)")
	f.String("sqlite-path", "docsplit.db", "database file for the sqlite sink")
	bindFlags(a.v, f, map[string]string{
		"ext":         "EXTENSIONS",
		"nested":      "NESTED",
		"sink":        "SINK",
		"output":      "OUTPUT",
		"sqlite-path": "SQLITE_PATH",
	})
	return cmd
}

func walkerOptions(cfg config.Config) walker.Options {
	return walker.Options{
		Parser:     cfg.ParserOptions(),
		Extensions: cfg.Extensions,
		Nested:     cfg.Nested,
	}
}
