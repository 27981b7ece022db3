package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lens-io/lens/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the lineage API server",
		Long: `Start the HTTP API on the configured address. The server shuts down
gracefully on SIGINT or SIGTERM.`,
		Example: `  # Serve with defaults (sqlite, 127.0.0.1:8080)
  lens serve

  # Serve on all interfaces against postgres
  lens serve --addr 0.0.0.0:8080 --db-dialect postgres --db-dsn "postgres://localhost/lens"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			logger := getLogger(cmd.Context())

			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Store:  st,
				Addr:   cfg.Server.Addr,
				Logger: logger,
			})
			err = srv.Serve(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}
