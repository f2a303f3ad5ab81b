// Package config reads server configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr      string
	DSN       string
	RedisAddr string
	JWTSecret string

	// SwipeDailyLimit is the number of swipes a user may record per UTC day.
	// Zero disables the limit.
	SwipeDailyLimit int

	// PassCooldown is how long a passed profile stays out of explore results.
	PassCooldown time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:            envOr("LISTEN_ADDR", ":8080"),
		DSN:             os.Getenv("DB_DSN"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SwipeDailyLimit: envInt("SWIPE_DAILY_LIMIT", 100),
		PassCooldown:    envDuration("PASS_COOLDOWN", 2*time.Hour),
	}
	if cfg.DSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
