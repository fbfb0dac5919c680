package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/spf13/cobra"
)

// chunkCmd splits plain text into blank-line separated paragraphs and prints
// the adjusted chunks, one JSON string per line.
func (a *app) chunkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunk [file]",
		Short: "Normalize the paragraphs of a text file (or stdin) into chunks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return err
			}

			chunks := chunker.Adjust(parser.Paragraphs(string(data)), a.cfg.Chunk())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for _, c := range chunks {
				if err := enc.Encode(c); err != nil {
					return err
				}
			}
			a.log.Debug("chunked input", "chunks", len(chunks))
			return nil
		},
	}
}
