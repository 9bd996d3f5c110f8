package main

import (
	"github.com/rs/zerolog/log"

	"peakstay_mcp/internal/adapters/mcpserver"
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

	// logs go to stderr; stdout carries the MCP transport
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	observability.Serve()

	client, err := peakstay.New(cfg.ProviderBase, cfg.ProviderKey, cfg.APITimeout, 5, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PeakStay client")
	}

	durable := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	mgr := cache.NewManager(durable, cfg.CacheMaxLocal, cfg.CacheTTL, log.Logger)
	limiter := ratelimit.New(cfg.RateMax, cfg.RateWindow)
	resolver := resolve.New(client, cfg.RefDataTTL, cfg.MatchThreshold, cfg.TypePriorities, log.Logger)
	svc := app.NewSearchService(client, mgr, limiter, resolver, cfg, log.Logger)

	srv := mcpserver.New(svc, cfg.ProviderKey, log.Logger)
	if err := srv.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
