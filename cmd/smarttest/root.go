package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"smarttest/internal/infrastructure/config"
	"smarttest/internal/infrastructure/env"
	"smarttest/internal/infrastructure/suitefs"
	"smarttest/internal/usecase/suite"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const (
	exitOK       = 0
	exitFailed   = 1
	exitBadInput = 2
)

// exitError carries an exit code without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type globalFlags struct {
	suitesDir  string
	logLevel   string
	configFile string
	env        *env.EnvService
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "smarttest",
		Short:         "AI-augmented UI and API test runner",
		Long:          "Runs declarative YAML test suites in a real browser, heals broken locators with an LLM, generates tests and analyzes runs.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := env.NewEnvService(".")
			if err != nil {
				return fmt.Errorf("%w: %w", config.ErrConfig, err)
			}
			g.env = e
			return nil
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})
	root.PersistentFlags().StringVar(&g.suitesDir, "suites-dir", "suites", "Directory containing test suites")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "Config file to use instead of <suite>/config.yaml")

	root.AddCommand(
		newRunCmd(g),
		newListSuitesCmd(g),
		newValidateCmd(g),
		newServeCmd(g),
	)
	return root
}

func execute(args []string) int {
	return executeWith(args, os.Stdout, os.Stderr)
}

func executeWith(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	code := exitCode(err)
	var ee *exitError
	if err != nil && !errors.As(err, &ee) {
		color.New(color.FgRed).Fprint(stderr, "Error: ")
		fmt.Fprintln(stderr, err)
	}
	return code
}

func exitCode(err error) int {
	var ee *exitError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, config.ErrConfig),
		errors.Is(err, suitefs.ErrSuiteNotFound),
		errors.Is(err, suite.ErrUnknownMode),
		errors.Is(err, errUsage):
		return exitBadInput
	default:
		return exitFailed
	}
}

var errUsage = errors.New("invalid usage")
