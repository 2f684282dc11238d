package main

import (
	"os"
	"os/signal"
	"syscall"

	"smarttest/internal/infrastructure/logger"
	"smarttest/internal/infrastructure/server"

	"github.com/spf13/cobra"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var dir, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(logger.Config{Level: g.logLevel, Console: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer log.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(dir, log).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "test-results", "Results directory holding run_* folders")
	cmd.Flags().StringVar(&addr, "addr", ":8088", "Listen address")
	return cmd
}
