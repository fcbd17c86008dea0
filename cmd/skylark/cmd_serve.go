package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/api"
)

// drainTimeout bounds how long in-flight requests may run after a signal.
const drainTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/JSON API server",
		Long: `Serve the coordinator over HTTP. Routes live under /v1 with /healthz
unauthenticated; expvar counters are published at /debug/vars.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("serve: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if cfg.API.AuthToken == "" {
				logger.Warn("serve: no api.auth_token set, every request is accepted")
			}
			coordAPI := api.NewServer(newCoordinator(st, logger), logger, cfg.API.AuthToken)

			mux := http.NewServeMux()
			mux.Handle("/debug/vars", expvar.Handler())
			mux.Handle("/", coordAPI.Handler())

			httpSrv := &http.Server{
				Addr:              cfg.API.ListenAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       20 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       90 * time.Second,
			}
			logger.Info("serve: listening", "addr", httpSrv.Addr, "backend", cfg.Store.Backend)
			return listenUntilDone(cmd.Context(), httpSrv, drainTimeout, logger)
		},
	}
	return cmd
}

// listenUntilDone runs httpSrv until ctx is cancelled or the listener
// fails, then drains it for at most drain.
func listenUntilDone(ctx context.Context, httpSrv *http.Server, drain time.Duration, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("serve: draining connections", "timeout", drain)
		if err := api.Shutdown(httpSrv, drain); err != nil {
			return fmt.Errorf("serve: graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
