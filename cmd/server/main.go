package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/m2tx/benchagent/assets"
	"github.com/m2tx/benchagent/internal/app"
	"github.com/m2tx/benchagent/internal/config"
	"github.com/m2tx/benchagent/internal/httpapi"
	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/runner"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close(context.Background())

	api := httpapi.New(a.Agent, a.Transcripts,
		httpapi.WithStatic(assets.Dir),
		httpapi.WithBatch(func(ctx context.Context, req httpapi.BatchRequest) (*runner.Report, error) {
			return a.Runner(req.Username, req.AgentCode, req.DryRun).Run(ctx)
		}),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("server: shutdown: %v", err)
		}
	}()

	log.Infof("server: listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
