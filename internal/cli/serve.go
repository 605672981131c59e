package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/seed"
	"github.com/dukerupert/castle/internal/server"
	"github.com/dukerupert/castle/internal/store"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	var noSeed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checklist API server",
		Long: `Run the HTTP API, live-update websocket and notification dispatcher.

On first start against an empty database the built-in catalog and roster
are seeded, unless --no-seed is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			logger := rt.logger

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !noSeed {
				catalog, err := seed.Default()
				if err != nil {
					return err
				}
				seeder := seed.NewSeeder(store.NewCatalogStore(rt.db), store.NewStaffStore(rt.db), logger.With("component", "seed"))
				if _, err := seeder.Seed(ctx, catalog, false); err != nil {
					return fmt.Errorf("seed database: %w", err)
				}
			}

			srv := server.New(rt.db, rt.cfg, rt.clock, logger)
			go srv.RateLimiter().Run(ctx, 5*time.Minute)

			httpServer := &http.Server{
				Addr:         rt.cfg.Addr(),
				Handler:      srv.Router(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("castle listening", "addr", httpServer.Addr, "timezone", rt.cfg.Timezone)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if err := srv.Close(shutdownCtx); err != nil {
				logger.Warn("notifications still in flight at exit", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "do not seed an empty database on start")
	return cmd
}
