package main

import (
	"fmt"

	"smarttest/internal/di"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a suite's config, page objects and tests without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("%w: --suite is required", errUsage)
			}
			c, err := di.NewContainer(cmd.Context(), di.Options{
				SuitesDir:  g.suitesDir,
				Suite:      name,
				ConfigFile: g.configFile,
				LogLevel:   g.logLevel,
				LogConsole: cmd.ErrOrStderr(),
				Env:        g.env,
				Ephemeral:  true,
			})
			if err != nil {
				return err
			}
			defer c.Close()

			tests, err := c.Suite.DiscoverTests()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, tc := range tests {
				if err := c.Executor.Validate(tc); err != nil {
					invalid++
					color.New(color.FgRed).Fprintf(out, "✗ %s (%s)\n", tc.Name, tc.File)
					fmt.Fprintf(out, "   %v\n", err)
				}
			}
			fmt.Fprintf(out, "%d pages, %d tests, %d invalid\n", len(c.Pages.Names()), len(tests), invalid)
			if invalid > 0 {
				return &exitError{code: exitFailed}
			}
			color.New(color.FgGreen).Fprintln(out, "✓ suite is valid")
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "suite", "s", "", "Suite name")
	return cmd
}
