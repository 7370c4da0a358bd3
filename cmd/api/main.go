package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"employee-records/internal/app"
)

func main() {
	runtime, err := app.Build(app.Options{LoadDotEnv: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	logger := runtime.Logger

	server := &http.Server{
		Addr:              runtime.Addr,
		Handler:           runtime.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"addr": runtime.Addr})
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_failed", map[string]any{"error": err.Error()})
			_ = runtime.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("server_shutdown", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server_shutdown_failed", map[string]any{"error": err.Error()})
		}
	}

	if err := runtime.Close(); err != nil {
		logger.Error("close_failed", map[string]any{"error": err.Error()})
	}
}
