package cli

import (
	"context"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docsplit/internal/api"
	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/dgallion1/docsplit/internal/sink"
	"github.com/dgallion1/docsplit/internal/walker"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, a.cfg, a.log, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("port", "8090", "listen port")
	f.String("data-dir", "data", "directory indexed by POST /api/index")
	bindFlags(a.v, f, map[string]string{
		"port":     "PORT",
		"data-dir": "DATA_DIR",
	})
	return cmd
}

// Serve runs the HTTP API until ctx is done. POST /api/index walks
// cfg.DataDir on the local filesystem into the configured sink. A JSON sink
// without OUTPUT writes records to stdout, so log must write elsewhere.
func Serve(ctx context.Context, cfg config.Config, log *slog.Logger, stdout io.Writer) error {
	opts := cfg.SinkOptions()
	opts.Stdout = stdout
	out, err := sink.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer out.Close()

	stats := pipeline.NewParseStats(time.Hour)
	w := walker.New(afero.NewOsFs(), walkerOptions(cfg), log)
	srv := api.NewServer(pipeline.NewIndexer(w, out, stats, log), stats, log, cfg)

	log.Info("starting docsplit", "port", cfg.Port, "sink", cfg.Sink, "data_dir", cfg.DataDir)
	return api.ListenAndServe(ctx, ":"+cfg.Port, srv, log)
}
