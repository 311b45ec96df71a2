package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shipq/conjecture/proptest"
)

func newSampleCmd(a *app) *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print generated rows for a table",
		Long: `Describes the table's columns, builds a strategy for each one and prints
the generated rows. The seed is printed to stderr so a run can be repeated
with --seed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				count = a.cfg.CLI.Count
			}
			s, err := a.settings()
			if err != nil {
				return err
			}
			switch {
			case seed != 0:
				s.Seed = seed
			case s.Seed == 0 && s.Derandomize:
				s.Seed = proptest.DerivedSeed(a.table)
			case s.Seed == 0:
				s.Seed = uint64(time.Now().UnixNano()) | 1
			}

			strategy, names, err := a.rowStrategy(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := proptest.GenerateN(cmd.Context(), strategy, count, s)
			if err != nil {
				return err
			}
			cmd.PrintErrf("seed: %d\n", s.Seed)
			return printRows(cmd.OutOrStdout(), names, rows)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of rows (default: [cli] count, or 10)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default: from the profile, or the clock)")
	return cmd
}
