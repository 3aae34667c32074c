package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/delivery/http/router"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		apiHandler := handler.NewHandler(a.scraper, a.checks, a.logger)
		server := &http.Server{
			Addr:        ":" + a.cfg.ServerPort,
			Handler:     router.New(apiHandler, a.logger),
			ReadTimeout: 10 * time.Second,
			// Scrapes answer only once every page has been visited.
			WriteTimeout: 15 * time.Minute,
			IdleTimeout:  120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()
		a.logger.Info("server started", zap.String("port", a.cfg.ServerPort))

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		a.logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server forced to shutdown", zap.Error(err))
			return err
		}
		a.logger.Info("server exiting")
		return nil
	},
}
