package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/giygas/substance-mapper/handlers"
	"github.com/giygas/substance-mapper/health"
	"github.com/giygas/substance-mapper/logging"
	"github.com/giygas/substance-mapper/scheduler"
	"github.com/giygas/substance-mapper/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use: "serve",

		Short: "Serves the mapping tools over HTTP.",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			a, err := setup(cmd, opts.verbose)
			if err != nil {
				return err
			}
			defer logging.Close()

			return runServer(cmd.Context(), a)
		},
	}
}

// runServer serves until ctx is cancelled, then shuts down gracefully
func runServer(ctx context.Context, a *app) error {
	probe := scheduler.NewScheduler(a.cfg.ProbeInterval, a.terminology, a.atc)
	if err := probe.Start(); err != nil {
		return err
	}
	defer probe.Stop()

	checker := health.NewHealthChecker(probe, progVersion, a.matcher, a.atc)
	h := handlers.NewHTTPHandler(a.registry, checker, progVersion, a.cfg.MaxRequestBody)
	srv := server.NewServer(a.cfg, h)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logging.Error("Server failed to start", "error", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
