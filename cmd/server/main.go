package main // entry point: wires configuration, sources, caches and the HTTP server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-showtimes/internal/aggregator"
	"github.com/iliyamo/cinema-showtimes/internal/config"
	"github.com/iliyamo/cinema-showtimes/internal/handler"
	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/middleware"
	"github.com/iliyamo/cinema-showtimes/internal/prefetch"
	"github.com/iliyamo/cinema-showtimes/internal/queue"
	"github.com/iliyamo/cinema-showtimes/internal/repository"
	"github.com/iliyamo/cinema-showtimes/internal/router"
	queue_publisher "github.com/iliyamo/cinema-showtimes/internal/service"
	"github.com/iliyamo/cinema-showtimes/internal/source"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logging.Fatal().Err(err).Str("file", cfg.SourcesFile).Msg("cannot load source table")
	}
	client := source.NewClient(cfg.FetchTimeout)
	adapters := source.Build(table, client, cfg.Location, source.Options{Breaker: cfg.BreakerEnabled})
	agg := aggregator.New(adapters, cfg.Location)
	cacheOpts := []prefetch.Option{prefetch.WithDays(cfg.PrefetchDays)}
	for _, feed := range source.BuildUpcoming(table, client, cfg.Location) {
		cacheOpts = append(cacheOpts, prefetch.WithUpcoming(feed))
	}
	cache := prefetch.New(agg, cfg.Location, cacheOpts...)
	logging.Info().Strs("sources", agg.Sources()).Str("tz", cfg.Location.String()).Msg("sources configured")

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logging.Warn().Err(err).Msg("redis unavailable, response cache off and rate limit in-process")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	publisher := queue_publisher.NewPublisher(cfg.AMQPEnabled, cfg.AMQPURL, cfg.Location)
	if cfg.AMQPEnabled {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.AggregationLog)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("aggregation consumer stopped")
			}
		}()
	}

	sessions := repository.NewSessionRepo(cfg.SessionTTL)
	go sessions.RunJanitor(ctx, time.Minute)

	if cfg.PrefetchOnStart {
		go func() { _ = cache.EnsureTitlesPrefetched(ctx) }()
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = handler.JSONSerializer{}
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog())

	router.RegisterRoutes(e, echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1", middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterShowtimes(v1, &handler.ShowtimeHandler{
		Aggregator: agg,
		Catalog:    cache,
		Notifier:   publisher,
		Location:   cfg.Location,
	}, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterSessions(v1, &handler.SessionHandler{
		Repo:     sessions,
		Source:   agg,
		Catalog:  cache,
		Notifier: publisher,
		Location: cfg.Location,
	})

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown")
	}
}
