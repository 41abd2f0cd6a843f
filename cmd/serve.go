package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/adwizard/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port      int
		staticDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wizard web interface",
		Long: `Starts the adwizard web interface.

The browser front-end talks to a local JSON API; wizard progress, results and
history are kept in the session store so a restart resumes where you left off.`,
		Example: `  # Start server on the configured port (8888 by default)
  adwizard serve

  # Start server on a custom port
  adwizard serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if !cmd.Flags().Changed("port") {
				port = cfg.Port
			}

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := handlers.New(a.wizard,
				handlers.WithStaticDir(staticDir),
				handlers.WithAllowedOrigins(cfg.AllowedOrigins),
			)

			addr := fmt.Sprintf(":%d", port)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("adwizard interface available", "addr", addr, "url", "http://localhost"+addr, "backend", cfg.Backend)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on (overrides config)")
	cmd.Flags().StringVar(&staticDir, "static", "static", "Directory holding the front-end files")

	return cmd
}
