package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localforge/localforge"
)

func newServeCmd(gf *GlobalFlags) *cobra.Command {
	var basePath string
	var autostart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the UI-facing HTTP daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := localforge.LoadConfig(gf.ConfigPath)
			if err != nil {
				return err
			}
			f, err := localforge.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			log := f.Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if autostart && len(cfg.AutoStart) > 0 {
				for _, line := range f.AutoStartBatch(ctx, cfg.AutoStart) {
					log.Info("autostart", "result", line)
				}
			}

			srv := f.HTTPServer(basePath)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			log.Info("daemon listening", "addr", srv.Addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shCtx); err != nil {
				return err
			}
			return f.StopAll(shCtx)
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "", "base path for the HTTP API")
	cmd.Flags().BoolVar(&autostart, "autostart", true, "start the configured services on boot")
	return cmd
}
