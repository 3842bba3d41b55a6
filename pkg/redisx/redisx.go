// Package redisx builds the shared Redis client from environment variables
// with the REDIS_ prefix (REDIS_URL, REDIS_READ_TIMEOUT, ...).
package redisx

import (
	"context"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	URL          string `split_words:"true" required:"true"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
}

func (r *Config) New() (*redis.Client, error) {
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = time.Duration(r.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(r.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(r.DialTimeout) * time.Second

	client := redis.NewClient(opts)

	if cmd := client.Ping(context.Background()); cmd.Err() != nil {
		return nil, cmd.Err()
	}

	return client, nil
}

// FromEnv loads the REDIS_* variables and connects.
func FromEnv() (*redis.Client, error) {
	var cfg Config
	if err := envconfig.Process("redis", &cfg); err != nil {
		return nil, err
	}
	return cfg.New()
}

// Configured reports whether a Redis URL is set in the environment.
func Configured() bool {
	var cfg Config
	return envconfig.Process("redis", &cfg) == nil && cfg.URL != ""
}
