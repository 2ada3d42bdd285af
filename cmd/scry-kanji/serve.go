package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/phrazzld/scry-kanji/internal/api"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the study API over HTTP",
		Long: `Serve the study session, statistics, export/import and metrics
endpoints as JSON over HTTP. The session is saved on shutdown.

Examples:
  # Listen on the configured host and port
  scry-kanji serve

  # Override the port
  SCRY_SERVER_PORT=9000 scry-kanji serve`,
		Args: cobra.NoArgs,
		RunE: c.runServe,
	}
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	sc, err := c.scheduler(cmd)
	if err != nil {
		return err
	}
	defer sc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(sc.Config.Server.Host, strconv.Itoa(sc.Config.Server.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(sc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sc.Logger.Info("Starting server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sc.Logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := sc.Controller.Leave(shutdownCtx); err != nil {
			sc.Logger.Error("session not saved", slog.String("error", err.Error()))
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	sc.Logger.Info("Server shutdown completed")
	return nil
}
