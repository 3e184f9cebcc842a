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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Sketch/internal/adapters/http"
	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/app/orch"
	"github.com/dkeye/Sketch/internal/auth"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/history"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := history.Open(cfg.History.Driver, cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	relay := orch.New()
	relay.Policy = app.PolicyFor(cfg.Backpressure)
	relay.Joins = app.NewRoomRateLimiter(cfg.JoinRate.Limit, cfg.JoinRate.Interval)
	if store != nil {
		relay.History = history.NewRecorder(store, cfg.History.Buffer)
	}

	r := router.SetupRouter(ctx, cfg, relay, auth.NewAuthenticator(cfg.Secret), store)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	g, gctx := errgroup.WithContext(ctx)
	if relay.History != nil {
		g.Go(func() error { return relay.History.Run(recorderCtx) })
	}
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Sketch relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := relay.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("relay shutdown incomplete")
		}
		// draws already queued still reach the store
		stopRecorder()
		return nil
	})

	err = g.Wait()
	if store != nil {
		if cerr := store.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("close history store")
		}
	}
	return err
}
