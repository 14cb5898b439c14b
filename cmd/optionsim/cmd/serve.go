package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/optionsim/internal/dashboard"
	"github.com/eddiefleurent/optionsim/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve archived backtest results over HTTP",
	Long: `Serve starts the dashboard API over a run archive. Endpoints:

  GET /health
  GET /api/runs
  GET /api/runs/{id}
  GET /api/runs/{id}/equity
  GET /api/runs/{id}/trades
  GET /api/runs/{id}/progress`,
	RunE: runServe,
}

var (
	servePort    int
	serveArchive string
	serveToken   string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "listen port")
	serveCmd.Flags().StringVar(&serveArchive, "archive", "runs.json", "path to the run archive")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "require this auth token on API requests")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger("info")

	archive, err := storage.NewStorage(serveArchive)
	if err != nil {
		return err
	}

	server := dashboard.NewServer(dashboard.Config{
		Port:      servePort,
		AuthToken: serveToken,
	}, archive, dashboard.NewTracker(), logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
