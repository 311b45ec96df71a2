package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shipq/conjecture/cli"
	"github.com/shipq/conjecture/inifile"
	"github.com/shipq/conjecture/proptest"
)

func newProfilesCmd(a *app) *cobra.Command {
	var export, out string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List settings profiles, or export one as an INI section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if export != "" {
				s, err := proptest.Profile(export)
				if err != nil {
					return err
				}
				f := &inifile.File{}
				proptest.WriteProfile(f, export, s)
				if out == "" {
					return f.Write(cmd.OutOrStdout())
				}
				if err := f.WriteFile(out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote profile %s to %s\n", export, out)
				return nil
			}

			header := []string{"", "NAME", "MAX_EXAMPLES", "MAX_SHRINKS", "TIMEOUT", "SEED", "PHASES", "SUPPRESSED"}
			var rows [][]string
			for _, name := range proptest.ProfileNames() {
				s, err := proptest.Profile(name)
				if err != nil {
					return err
				}
				rows = append(rows, profileRow(name, name == a.profile, s))
			}
			return cli.Table(cmd.OutOrStdout(), header, rows)
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "Print the named profile as a [profile.<name>] section")
	cmd.Flags().StringVar(&out, "out", "", "With --export, write the section to this file instead of stdout")
	return cmd
}

func profileRow(name string, selected bool, s proptest.Settings) []string {
	mark := ""
	if selected {
		mark = "*"
	}
	timeout := "none"
	if s.Timeout > 0 {
		timeout = s.Timeout.String()
	}
	seed := "random"
	switch {
	case s.Seed != 0:
		seed = strconv.FormatUint(s.Seed, 10)
	case s.Derandomize:
		seed = "derived"
	}
	suppressed := make([]string, len(s.SuppressHealthCheck))
	for i, hc := range s.SuppressHealthCheck {
		suppressed[i] = hc.String()
	}
	return []string{
		mark,
		name,
		strconv.Itoa(s.MaxExamples),
		strconv.Itoa(s.MaxShrinks),
		timeout,
		seed,
		strings.ReplaceAll(s.Phases.String(), " ", ""),
		strings.Join(suppressed, ","),
	}
}
