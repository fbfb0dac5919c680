package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/spf13/cobra"
)

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the heading tree of one document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			p, err := parser.ForFile(path, a.cfg.ParserOptions())
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			tree, err := p.Parse(f, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(tree)
		},
	}
}
