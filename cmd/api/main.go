package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "feedback_board/internal/adapters/http_server"
	"feedback_board/internal/adapters/observability"
	redisad "feedback_board/internal/adapters/redis"
	"feedback_board/internal/adapters/supabase"
	"feedback_board/internal/app"
	"feedback_board/internal/domain"
	"feedback_board/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// deps
	store, err := supabase.New(cfg.StoreBase, cfg.StoreKey, cfg.StoreRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewBoardQueryService(store, cache, cfg.CacheTTL)
	board := app.NewBoard(app.BoardConfig{
		WindowSize:      cfg.WindowSize,
		StaticThreshold: cfg.StaticThreshold,
		Interval:        cfg.RotationEvery,
	})
	defer board.Close()
	sub := app.NewSubmissionService(store, q, board)

	// initial load; an unreachable store leaves an empty board, not a crash
	if reviews, err := q.LoadBoard(ctx, domain.Viewer{}); err != nil {
		log.Warn().Err(err).Msg("initial board load failed; starting empty")
	} else {
		board.Replace(reviews)
		log.Info().Int("reviews", len(reviews)).Msg("board loaded")
	}

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Sub: sub, Board: board}, cfg.JWTSecret)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	go func() {
		<-ctx.Done()
		board.Close()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("bye")
}
