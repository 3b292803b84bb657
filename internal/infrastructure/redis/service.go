package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/relay/pkg/logger"
)

type Service struct {
	client *redis.Client
}

// NewService connects to Redis. It returns nil when the URL is empty or the server is unreachable,
// in which case callers fall back to in-memory storage.
func NewService(url, password string) *Service {
	if url == "" {
		log.Warn().Msg("Redis URL not configured - service will be unavailable")
		return nil
	}

	opts := &redis.Options{
		Addr:     url,
		Password: password,
		DB:       0,
	}
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			log.Error().Err(err).Msg("Invalid Redis URL")
			return nil
		}
		if password != "" {
			parsed.Password = password
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Error().
			Err(err).
			Str("addr", opts.Addr).
			Msg("Failed to establish Redis connection")
		_ = client.Close()
		return nil
	}

	log.Info().Str("addr", opts.Addr).Msg("Redis service initialized successfully")

	return &Service{
		client: client,
	}
}

// IncrWindow increments key and refreshes its expiry. It returns the new count.
func (s *Service) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Dur("window", window).
			Msg("Critical Redis INCR operation failed")
		return 0, err
	}
	return incr.Val(), nil
}

// Ping checks if Redis is accessible
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Service) Close() error {
	logger.Debug(logger.REDIS, "Closing Redis connection")
	return s.client.Close()
}
