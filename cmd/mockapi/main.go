package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/its-ammu/ai-interview-bot/internal/mockapi"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "Listen address")
	cookie := flag.String("session-cookie", "", "Require this session cookie value")
	audioDir := flag.String("audio-dir", "", "Directory to store uploaded answers")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *audioDir != "" {
		if err := os.MkdirAll(*audioDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create audio directory: %v\n", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr: *addr,
		Handler: mockapi.New(mockapi.Options{
			SessionCookie: *cookie,
			AudioDir:      *audioDir,
		}, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Mock interview backend listening", slog.String("address", *addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", slog.String("error", err.Error()))
	}
}
