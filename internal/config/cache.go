package config

import (
	"strconv"
	"strings"
	"time"
)

// CacheConfig controls the Redis response cache middleware. Availability
// listings are the main beneficiary: the same date-range query tends to be
// issued repeatedly while guests browse. When Enabled is false or no Redis
// client exists, caching is a pass-through.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads cache settings from the environment with defaults.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenvDefault("CACHE_ENABLED", "true") == "true",
		Methods:      parseMethods(getenvDefault("CACHE_METHODS", "GET")),
		TTL:          parseDur(getenvDefault("CACHE_TTL", "30s")),
		KeyStrategy:  getenvDefault("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       getenvDefault("CACHE_PREFIX", "cache"),
		MaxBodyBytes: atoi(getenvDefault("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
