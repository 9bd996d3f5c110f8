package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	server "peakstay_mcp/internal/adapters/http_server"
	"peakstay_mcp/internal/adapters/observability"
	"peakstay_mcp/internal/adapters/peakstay"
	redisad "peakstay_mcp/internal/adapters/redis"
	"peakstay_mcp/internal/app"
	"peakstay_mcp/internal/cache"
	"peakstay_mcp/internal/ratelimit"
	"peakstay_mcp/internal/resolve"
	"peakstay_mcp/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// deps
	client, err := peakstay.New(cfg.ProviderBase, cfg.ProviderKey, cfg.APITimeout, 5, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PeakStay client")
	}
	durable := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	mgr := cache.NewManager(durable, cfg.CacheMaxLocal, cfg.CacheTTL, log.Logger)
	limiter := ratelimit.New(cfg.RateMax, cfg.RateWindow)
	resolver := resolve.New(client, cfg.RefDataTTL, cfg.MatchThreshold, cfg.TypePriorities, log.Logger)
	svc := app.NewSearchService(client, mgr, limiter, resolver, cfg, log.Logger)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{S: svc})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
