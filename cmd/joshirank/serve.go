package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/okian/joshirank/internal/adapters/http/api"
	"github.com/okian/joshirank/internal/adapters/http/swagger"
	"github.com/okian/joshirank/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest run over HTTP and reload when the store changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(cmd, f)
			if err != nil {
				return err
			}
			log := logger.Get()

			svc, err := newService(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if _, err := svc.Load(ctx, cfg.InputPath); err != nil {
				return err
			}
			if cfg.Watch {
				go func() {
					if err := svc.Watch(ctx, cfg.InputPath); err != nil {
						log.Error(ctx, "watch failed", logger.Error(err))
					}
				}()
			}

			router := mux.NewRouter()
			swagger.Register(router)
			api.NewServer(svc,
				api.WithMaxLimit(cfg.MaxLeaderboardLimit),
				api.WithLogger(log.Named("http")),
			).Register(ctx, router)

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           router,
				ReadTimeout:       readTimeout,
				WriteTimeout:      writeTimeout,
				IdleTimeout:       idleTimeout,
				ReadHeaderTimeout: readHeaderTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return errors.Join(api.ErrServe, err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info(ctx, "shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(ctx, "server shutdown failed", logger.Error(err))
				return err
			}
			log.Info(ctx, "server stopped")
			return nil
		},
	}
}
