// Command stubd starts the in-memory LearnHub stub backend.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/learnhub/learnhub-go/internal/stub"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses flags and runs a plain-HTTP server until interrupted.
func main() {
	addr := flag.String("addr", ":8080", "listen address")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key (required)")
	jobDelay := flag.Duration("job-delay", 2*time.Second, "fake job time per state")
	smsWindow := flag.Duration("sms-window", time.Minute, "SMS send window")
	smsMax := flag.Int("sms-max", 3, "max SMS sends per phone per window")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	if *jwtKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key)")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := stub.NewStore()
	runner := stub.NewRunner(store, *jobDelay, logger)
	limiter := stub.NewSMSLimiter(*smsWindow, *smsMax)
	app := stub.New(ctx, store, runner, limiter, []byte(*jwtKey), logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
