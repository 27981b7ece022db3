package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lens-io/lens/internal/seed"
)

func newSeedCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a lineage graph from a YAML seed file",
		Long: `Create the nodes, edges, column mappings, and runs declared in a seed
file. Edges reference nodes by qualified name, so a seed file can extend
a graph that already exists in the database.`,
		Example: `  # Seed the configured database
  lens seed -f lineage.yaml

  # Seed an in-memory run for a quick demo
  lens seed -f lineage.yaml --db-dsn :memory:`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			logger := getLogger(cmd.Context())

			f, err := seed.Load(path)
			if err != nil {
				return err
			}

			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			nodes, edges, runs, err := seed.Apply(cmd.Context(), f, st, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d nodes, %d edges, %d runs\n", nodes, edges, runs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "seed file to load (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
