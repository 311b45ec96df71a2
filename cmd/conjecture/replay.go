package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shipq/conjecture/proptest"
)

func newReplayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <choices>",
		Short: "Rebuild a row from a recorded choice sequence",
		Long: `Replays choice values, as printed by a failing property, through the
table's row strategy and prints the row along with the choices it used.
Values may be separated by commas or spaces: "3,0,1" or "[3/9, 0/1, 1/1]".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := proptest.ParseValues(strings.Join(args, " "))
			if err != nil {
				return err
			}
			strategy, names, err := a.rowStrategy(cmd.Context())
			if err != nil {
				return err
			}
			row, choices, err := proptest.Replay(strategy, values)
			if errors.Is(err, proptest.ErrOverrun) {
				return fmt.Errorf("the sequence ran out after %d choices; the table may have changed since it was recorded", len(values))
			}
			if err != nil {
				return err
			}
			if err := printRows(cmd.OutOrStdout(), names, []map[string]any{row}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "choices: %s\n", choices)
			if used := len(choices); used < len(values) {
				cmd.PrintErrf("warning: %d trailing choices were not used\n", len(values)-used)
			}
			return nil
		},
	}
}
