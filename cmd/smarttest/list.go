package main

import (
	"fmt"

	"smarttest/internal/infrastructure/suitefs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newListSuitesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list-suites",
		Short: "List the suites under --suites-dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := suitefs.ListSuites(g.suitesDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(suites) == 0 {
				fmt.Fprintf(out, "No suites found in %s\n", g.suitesDir)
				return nil
			}
			for _, s := range suites {
				tests, err := s.DiscoverTests()
				if err != nil {
					color.New(color.FgYellow).Fprintf(out, "%-20s ", s.Name)
					fmt.Fprintf(out, "(unreadable tests: %v)\n", err)
					continue
				}
				color.New(color.FgCyan).Fprintf(out, "%-20s ", s.Name)
				fmt.Fprintf(out, "%d tests  %s\n", len(tests), s.Dir)
			}
			return nil
		},
	}
}
