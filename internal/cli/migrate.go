package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Bring the configured database up to the current schema version.
Migrations are embedded in the binary; no external files are needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			logger := getLogger(cmd.Context())

			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Database %s (%s) is up to date\n",
				cfg.Database.DSN, cfg.Database.Dialect)
			return nil
		},
	}
}
