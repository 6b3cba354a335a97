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
	"golang.org/x/time/rate"

	router "github.com/dkeye/QuizRush/internal/adapters/http"
	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/app/orch"
	"github.com/dkeye/QuizRush/internal/config"
	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/questions"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	bank, err := questions.Load(cfg.Questions.BankPath)
	if err != nil {
		return fmt.Errorf("loading question bank: %w", err)
	}

	rooms := app.NewRoomRegistry(core.RoomOptions{
		Source:  bank,
		Tickers: core.RealTickers{},
		Timing: core.Timing{
			Tick:           cfg.Game.TickInterval,
			QuestionTime:   cfg.Game.QuestionTime,
			RevealTime:     cfg.Game.RevealTime,
			StartCountdown: cfg.Game.StartCountdown,
			FetchTimeout:   cfg.Game.FetchTimeout,
		},
		Chat: core.ChatPolicy{
			Rate:      rate.Limit(cfg.Chat.Rate),
			Burst:     cfg.Chat.Burst,
			MaxLength: cfg.Chat.MaxLength,
		},
	}, cfg.Game.EmptyRoomTTL, app.SimplePolicy{})

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Int("questions", bank.Len()).Msg("QuizRush server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := rooms.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("rooms forced to shutdown")
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
