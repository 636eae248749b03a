package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/stats"
)

// statsCache is the optional Redis-backed cache for /api/stats responses.
// nil means caching is disabled and every request recomputes from the store.
var statsCache *StatsCache

// StatsCache stores whole JSON responses keyed by the resolved time window.
// Mutations do not invalidate entries; staleness is bounded by the TTL.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// InitStatsCache connects to Redis and enables stats response caching.
// Call only when cfg.RedisAddr is set.
func InitStatsCache(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	statsCache = &StatsCache{
		client: client,
		ttl:    time.Duration(cfg.StatsCacheTTLSec) * time.Second,
	}
	log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", statsCache.ttl).Msg("stats cache enabled")
	return nil
}

// statsCacheKey derives the cache key for a time range. Preset windows are
// keyed by name; explicit windows by their bounds; no window by "all".
func statsCacheKey(tr *stats.TimeRange) string {
	switch {
	case tr == nil:
		return "fleetdeck:stats:all"
	case tr.Preset != "":
		return "fleetdeck:stats:" + tr.Preset
	case tr.Start != nil && tr.End != nil:
		return "fleetdeck:stats:" +
			strconv.FormatInt(tr.Start.Unix(), 10) + "-" +
			strconv.FormatInt(tr.End.Unix(), 10)
	default:
		return "fleetdeck:stats:all"
	}
}

// statsCacheGet returns a cached response body, if caching is on and a fresh
// entry exists. Cache errors are treated as misses.
func statsCacheGet(c *gin.Context, tr *stats.TimeRange) ([]byte, bool) {
	if statsCache == nil {
		return nil, false
	}
	body, err := statsCache.client.Get(c.Request.Context(), statsCacheKey(tr)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("stats cache read failed")
		}
		return nil, false
	}
	return body, true
}

// statsCachePut stores a response body. Best-effort: failures only log.
func statsCachePut(c *gin.Context, tr *stats.TimeRange, payload any) {
	if statsCache == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := statsCache.client.Set(c.Request.Context(), statsCacheKey(tr), body, statsCache.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("stats cache write failed")
	}
}
