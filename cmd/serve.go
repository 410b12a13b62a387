package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/tycho/internal/server"
)

var (
	serveAddr      string
	serveDataDir   string
	serveStoreKind string
	noTrace        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP job server",
	Long: `Starts the HTTP API for submitting optimization jobs, following their
progress over server-sent events and cancelling them. Finished runs are
recorded in the run store.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "./data", "Base directory for run records and traces")
	serveCmd.Flags().StringVar(&serveStoreKind, "store", "fs", "Run store: fs or sql")
	serveCmd.Flags().BoolVar(&noTrace, "no-trace", false, "Do not write progress traces")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	runStore, closeStore, err := openStore(serveStoreKind, serveDataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	traceDir := serveDataDir
	if noTrace {
		traceDir = ""
	}
	srv := server.NewServer(serveAddr, runStore, traceDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown incomplete", "error", err)
		return err
	}
	return nil
}
